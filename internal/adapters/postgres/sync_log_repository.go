package postgres_adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"interior-sync-service/internal/contextkeys"
	"interior-sync-service/internal/core/domain"
	"interior-sync-service/internal/core/port"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSyncLogRepository - журнал прогонов. Ошибки строк лежат в JSONB.
type PostgresSyncLogRepository struct {
	pool *pgxpool.Pool
	sq   sq.StatementBuilderType
}

func NewPostgresSyncLogRepository(pool *pgxpool.Pool) (*PostgresSyncLogRepository, error) {
	if pool == nil {
		return nil, fmt.Errorf("pgxpool.Pool cannot be nil")
	}
	return &PostgresSyncLogRepository{
		pool: pool,
		sq:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}, nil
}

var syncLogColumns = []string{
	"id", "sheet_id", "direction", "preview", "status", "started_at", "completed_at",
	"rows_total", "rows_succeeded", "rows_skipped", "rows_failed", "errors",
}

func scanSyncLog(row pgx.Row) (*domain.SyncLogEntry, error) {
	var e domain.SyncLogEntry
	var errorsJSON []byte
	if err := row.Scan(&e.ID, &e.SheetID, &e.Direction, &e.Preview, &e.Status, &e.StartedAt, &e.CompletedAt,
		&e.RowsTotal, &e.RowsSucceeded, &e.RowsSkipped, &e.RowsFailed, &errorsJSON); err != nil {
		return nil, err
	}
	e.Errors = []domain.SyncError{}
	if len(errorsJSON) > 0 {
		if err := json.Unmarshal(errorsJSON, &e.Errors); err != nil {
			return nil, fmt.Errorf("failed to unmarshal sync errors: %w", err)
		}
	}
	return &e, nil
}

func marshalSyncErrors(errs []domain.SyncError) ([]byte, error) {
	if errs == nil {
		errs = []domain.SyncError{}
	}
	return json.Marshal(errs)
}

func (r *PostgresSyncLogRepository) Append(ctx context.Context, entry *domain.SyncLogEntry) error {
	logger := contextkeys.LoggerFromContext(ctx)
	repoLogger := logger.WithFields(port.Fields{
		"component": "PostgresSyncLogRepository",
		"method":    "Append",
		"log_id":    entry.ID.String(),
	})

	errorsJSON, err := marshalSyncErrors(entry.Errors)
	if err != nil {
		return fmt.Errorf("failed to marshal sync errors: %w", err)
	}

	sqlStr, args, err := r.sq.Insert("interior_sync_logs").Columns(syncLogColumns...).
		Values(entry.ID, entry.SheetID, entry.Direction, entry.Preview, entry.Status, entry.StartedAt, entry.CompletedAt,
			entry.RowsTotal, entry.RowsSucceeded, entry.RowsSkipped, entry.RowsFailed, errorsJSON).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert: %w", err)
	}

	if _, err := r.pool.Exec(ctx, sqlStr, args...); err != nil {
		repoLogger.Error("Failed to append sync log entry", err, port.Fields{"query": sqlStr})
		return fmt.Errorf("failed to append sync log entry: %w", err)
	}

	repoLogger.Debug("Sync log entry appended", nil)
	return nil
}

// Update применяет патч к записи в статусе RUNNING. Проверки статуса и счетчиков -
// в domain.SyncLogEntry.Apply; строка блокируется на время транзакции.
func (r *PostgresSyncLogRepository) Update(ctx context.Context, id uuid.UUID, patch domain.SyncLogPatch) (*domain.SyncLogEntry, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	repoLogger := logger.WithFields(port.Fields{
		"component": "PostgresSyncLogRepository",
		"method":    "Update",
		"log_id":    id.String(),
	})

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		repoLogger.Error("Failed to begin transaction", err, nil)
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	selectSQL, args, err := r.sq.Select(syncLogColumns...).From("interior_sync_logs").
		Where(sq.Eq{"id": id}).Suffix("FOR UPDATE").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select: %w", err)
	}
	entry, err := scanSyncLog(tx.QueryRow(ctx, selectSQL, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSyncLogNotFound
		}
		repoLogger.Error("Failed to lock sync log entry", err, nil)
		return nil, fmt.Errorf("failed to lock sync log entry: %w", err)
	}

	if err := entry.Apply(patch); err != nil {
		repoLogger.Warn("Sync log patch rejected", port.Fields{"error": err.Error(), "status": string(entry.Status)})
		return nil, err
	}

	errorsJSON, err := marshalSyncErrors(entry.Errors)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sync errors: %w", err)
	}

	updateSQL, args, err := r.sq.Update("interior_sync_logs").
		Set("status", entry.Status).
		Set("completed_at", entry.CompletedAt).
		Set("rows_total", entry.RowsTotal).
		Set("rows_succeeded", entry.RowsSucceeded).
		Set("rows_skipped", entry.RowsSkipped).
		Set("rows_failed", entry.RowsFailed).
		Set("errors", errorsJSON).
		Where(sq.Eq{"id": id, "status": domain.SyncStatusRunning}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build update: %w", err)
	}

	cmdTag, err := tx.Exec(ctx, updateSQL, args...)
	if err != nil {
		repoLogger.Error("Failed to update sync log entry", err, port.Fields{"query": updateSQL})
		return nil, fmt.Errorf("failed to update sync log entry: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return nil, domain.ErrSyncLogFinalized
	}

	if err := tx.Commit(ctx); err != nil {
		repoLogger.Error("Failed to commit sync log update", err, nil)
		return nil, fmt.Errorf("failed to commit sync log update: %w", err)
	}

	repoLogger.Debug("Sync log entry updated", port.Fields{"status": string(entry.Status)})
	return entry, nil
}

func (r *PostgresSyncLogRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.SyncLogEntry, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	repoLogger := logger.WithFields(port.Fields{
		"component": "PostgresSyncLogRepository",
		"method":    "FindByID",
		"log_id":    id.String(),
	})

	sqlStr, args, err := r.sq.Select(syncLogColumns...).From("interior_sync_logs").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select: %w", err)
	}

	entry, err := scanSyncLog(r.pool.QueryRow(ctx, sqlStr, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			repoLogger.Warn("Sync log entry not found.", nil)
			return nil, domain.ErrSyncLogNotFound
		}
		repoLogger.Error("Failed to find sync log entry", err, port.Fields{"query": sqlStr})
		return nil, fmt.Errorf("failed to find sync log entry: %w", err)
	}
	return entry, nil
}

// List - страница журнала, новые записи первыми. Фильтры собираются squirrel'ом.
func (r *PostgresSyncLogRepository) List(ctx context.Context, filter domain.SyncLogFilter) (*domain.SyncLogPage, error) {
	filter = filter.Normalize()

	logger := contextkeys.LoggerFromContext(ctx)
	repoLogger := logger.WithFields(port.Fields{
		"component": "PostgresSyncLogRepository",
		"method":    "List",
		"limit":     filter.Limit,
		"offset":    filter.Offset,
	})

	where := sq.And{}
	if filter.SheetID != "" {
		where = append(where, sq.Eq{"sheet_id": filter.SheetID})
	}
	if filter.Direction != nil {
		where = append(where, sq.Eq{"direction": *filter.Direction})
	}
	if filter.Status != nil {
		where = append(where, sq.Eq{"status": *filter.Status})
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		repoLogger.Error("Failed to begin transaction", err, nil)
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	countSQL, countArgs, err := r.sq.Select("COUNT(*)").From("interior_sync_logs").Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build count query: %w", err)
	}
	var total int64
	if err := tx.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		repoLogger.Error("Failed to count sync log entries", err, port.Fields{"query": countSQL})
		return nil, fmt.Errorf("failed to count sync log entries: %w", err)
	}

	page := &domain.SyncLogPage{Items: []domain.SyncLogEntry{}, Total: total, Limit: filter.Limit, Offset: filter.Offset}
	if total == 0 {
		return page, nil
	}

	dataSQL, dataArgs, err := r.sq.Select(syncLogColumns...).From("interior_sync_logs").Where(where).
		OrderBy("started_at DESC", "id").
		Limit(uint64(filter.Limit)).Offset(uint64(filter.Offset)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list query: %w", err)
	}

	rows, err := tx.Query(ctx, dataSQL, dataArgs...)
	if err != nil {
		repoLogger.Error("Failed to query sync log entries", err, port.Fields{"query": dataSQL})
		return nil, fmt.Errorf("failed to query sync log entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		entry, err := scanSyncLog(rows)
		if err != nil {
			repoLogger.Error("Failed to scan sync log row", err, nil)
			return nil, fmt.Errorf("failed to scan sync log entry: %w", err)
		}
		page.Items = append(page.Items, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sync log rows: %w", err)
	}

	repoLogger.Debug("Sync log page fetched", port.Fields{"found_on_page": len(page.Items), "total_count": total})
	return page, nil
}
