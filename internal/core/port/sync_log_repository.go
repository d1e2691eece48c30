package port

import (
	"context"
	"interior-sync-service/internal/core/domain"

	"github.com/google/uuid"
)

// SyncLogRepositoryPort - журнал прогонов. Удаления нет: журнал только дополняется.
type SyncLogRepositoryPort interface {
	Append(ctx context.Context, entry *domain.SyncLogEntry) error
	// Update меняет только запись в статусе RUNNING, иначе domain.ErrSyncLogFinalized
	Update(ctx context.Context, id uuid.UUID, patch domain.SyncLogPatch) (*domain.SyncLogEntry, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.SyncLogEntry, error)
	List(ctx context.Context, filter domain.SyncLogFilter) (*domain.SyncLogPage, error)
}
