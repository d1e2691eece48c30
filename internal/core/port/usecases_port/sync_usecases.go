package usecases_port

import (
	"context"

	"interior-sync-service/internal/core/domain"
)

type PullFromSheetUseCase interface {
	Execute(ctx context.Context, sheetID string) (*domain.PullResult, error)
}

type PushToSheetUseCase interface {
	Execute(ctx context.Context, sheetID string) (*domain.PushResult, error)
}

type PreviewSyncUseCase interface {
	Execute(ctx context.Context, sheetID string, direction domain.SyncDirection) (*domain.PreviewResult, error)
}
