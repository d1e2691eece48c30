package usecase

import (
	"context"
	"errors"

	"interior-sync-service/internal/contextkeys"
	"interior-sync-service/internal/core/domain"
	"interior-sync-service/internal/core/port"

	"github.com/google/uuid"
)

type GetSyncLogUseCase struct {
	repo port.SyncLogRepositoryPort
}

func NewGetSyncLogUseCase(repo port.SyncLogRepositoryPort) *GetSyncLogUseCase {
	return &GetSyncLogUseCase{
		repo: repo,
	}
}

func (uc *GetSyncLogUseCase) Execute(ctx context.Context, id uuid.UUID) (*domain.SyncLogEntry, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{"use_case": "GetSyncLog", "log_id": id.String()})

	entry, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrSyncLogNotFound) {
			ucLogger.Warn("Sync log entry not found", nil)
		} else {
			ucLogger.Error("Repository failed to find sync log entry", err, nil)
		}
		return nil, err
	}
	return entry, nil
}
