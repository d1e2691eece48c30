package usecases_port

import (
	"context"

	"interior-sync-service/internal/core/domain"

	"github.com/google/uuid"
)

type ListSyncLogsUseCase interface {
	Execute(ctx context.Context, filter domain.SyncLogFilter) (*domain.SyncLogPage, error)
}

type GetSyncLogUseCase interface {
	Execute(ctx context.Context, id uuid.UUID) (*domain.SyncLogEntry, error)
}
