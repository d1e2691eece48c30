package port

import (
	"context"
	"interior-sync-service/internal/core/domain"
)

// SyncReporterPort сообщает наружу о завершении прогона
type SyncReporterPort interface {
	ReportCompleted(ctx context.Context, entry *domain.SyncLogEntry) error
}
