package usecase

import (
	"context"

	"interior-sync-service/internal/contextkeys"
	"interior-sync-service/internal/core/domain"
	"interior-sync-service/internal/core/port"
)

type ListSyncLogsUseCase struct {
	repo port.SyncLogRepositoryPort
}

func NewListSyncLogsUseCase(repo port.SyncLogRepositoryPort) *ListSyncLogsUseCase {
	return &ListSyncLogsUseCase{
		repo: repo,
	}
}

func (uc *ListSyncLogsUseCase) Execute(ctx context.Context, filter domain.SyncLogFilter) (*domain.SyncLogPage, error) {
	filter = filter.Normalize()

	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{"use_case": "ListSyncLogs", "sheet_id": filter.SheetID, "limit": filter.Limit, "offset": filter.Offset})

	ucLogger.Info("Use case started", nil)

	page, err := uc.repo.List(ctx, filter)
	if err != nil {
		ucLogger.Error("Repository failed to list sync logs", err, nil)
		return nil, err
	}

	ucLogger.Info("Use case finished successfully", port.Fields{"found_on_page": len(page.Items), "total_count": page.Total})
	return page, nil
}
