package port

import (
	"context"
	"interior-sync-service/internal/core/domain"

	"github.com/google/uuid"
)

// InteriorRepositoryPort - проекты и планировки. Каждый Upsert - отдельная атомарная операция,
// общей транзакции на несколько строк нет.
type InteriorRepositoryPort interface {
	FindProjectByName(ctx context.Context, name string) (*domain.Project, error)
	FindProjectBySlug(ctx context.Context, slug string) (*domain.Project, error)
	// UpsertProject по естественному ключу (имя); возвращает сохраненную версию с ID
	UpsertProject(ctx context.Context, project *domain.Project) (*domain.Project, error)
	ListProjects(ctx context.Context) ([]domain.Project, error)
	MarkProjectSynced(ctx context.Context, projectID uuid.UUID, syncHash string) error

	FindLayoutByKey(ctx context.Context, key string) (*domain.Layout, error)
	UpsertLayout(ctx context.Context, layout *domain.Layout) (*domain.Layout, error)
	ListLayouts(ctx context.Context) ([]domain.Layout, error)
	MarkLayoutSynced(ctx context.Context, layoutID uuid.UUID, syncHash string) error
}
