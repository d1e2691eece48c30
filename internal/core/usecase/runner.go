package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"interior-sync-service/internal/contextkeys"
	"interior-sync-service/internal/core/domain"
	"interior-sync-service/internal/core/port"

	"golang.org/x/sync/errgroup"
)

// RunnerConfig - ограничения одного прогона
type RunnerConfig struct {
	Workers    int
	RowTimeout time.Duration
	RunTimeout time.Duration
}

const (
	defaultRunWorkers = 8
	defaultRowTimeout = 15 * time.Second
	defaultRunTimeout = 5 * time.Minute
)

func (c RunnerConfig) withDefaults() RunnerConfig {
	if c.Workers <= 0 {
		c.Workers = defaultRunWorkers
	}
	if c.RowTimeout <= 0 {
		c.RowTimeout = defaultRowTimeout
	}
	if c.RunTimeout <= 0 {
		c.RunTimeout = defaultRunTimeout
	}
	return c
}

// SyncRunner - общий конвейер для PULL, PUSH и PREVIEW:
// запись журнала -> блокировка -> строки в пуле воркеров -> финализация -> событие.
type SyncRunner struct {
	logs     port.SyncLogRepositoryPort
	reporter port.SyncReporterPort
	lock     *RunLock
	cfg      RunnerConfig
}

// NewSyncRunner. reporter может быть nil (RabbitMQ выключен).
func NewSyncRunner(logs port.SyncLogRepositoryPort, reporter port.SyncReporterPort, lock *RunLock, cfg RunnerConfig) *SyncRunner {
	if lock == nil {
		lock = NewRunLock()
	}
	return &SyncRunner{
		logs:     logs,
		reporter: reporter,
		lock:     lock,
		cfg:      cfg.withDefaults(),
	}
}

// rowTask - работа над одной строкой листа или одной записью БД
type rowTask struct {
	tab      string
	rowIndex int
	run      func(ctx context.Context) domain.RowOutcome
}

// syncRun - состояние одного прогона, общее для всех воркеров
type syncRun struct {
	entry  *domain.SyncLogEntry
	cfg    RunnerConfig
	logger port.LoggerPort

	mu            sync.Mutex
	outcomes      []domain.RowOutcome
	abortRecorded bool
}

func (r *syncRun) record(outcomes ...domain.RowOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcomes...)
}

// recordParseErrors - строки, которые отсеял парсер, считаются упавшими
func (r *syncRun) recordParseErrors(tab string, errs []domain.SyncError) {
	for _, se := range errs {
		se.Tab = tab
		r.record(domain.Failed(tab, se.RowIndex, se))
	}
}

// abort помечает необработанные задачи как прерванные, чтобы сходились счетчики
func (r *syncRun) abort(tasks []rowTask) {
	for _, t := range tasks {
		r.record(domain.Failed(t.tab, t.rowIndex, domain.ErrRowAborted))
	}
}

// process гонит задачи через ограниченный пул. Ошибка строки остается в ее итоге,
// наружу выходит только ошибка транспорта: она отменяет остальные строки.
func (r *syncRun) process(ctx context.Context, tasks []rowTask) error {
	if len(tasks) == 0 {
		return ctx.Err()
	}

	done := make([]bool, len(tasks))
	var doneMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)

	for i := range tasks {
		if gctx.Err() != nil {
			break
		}
		i, task := i, tasks[i]
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			rowCtx, cancel := context.WithTimeout(gctx, r.cfg.RowTimeout)
			defer cancel()
			rowLogger := r.logger.WithFields(port.Fields{"tab": task.tab, "row_index": task.rowIndex})
			rowCtx = contextkeys.ContextWithLogger(rowCtx, rowLogger)

			outcome := task.run(rowCtx)
			outcome.Tab, outcome.RowIndex = task.tab, task.rowIndex
			if outcome.Status == domain.RowFailed && gctx.Err() != nil && !domain.IsTransportError(outcome.Err) {
				// строку оборвала отмена всего прогона, а не ее собственная ошибка
				outcome.Err = fmt.Errorf("%w: %v", domain.ErrRowAborted, outcome.Err)
			}
			r.record(outcome)

			doneMu.Lock()
			done[i] = true
			doneMu.Unlock()

			switch outcome.Status {
			case domain.RowFailed:
				rowLogger.Warn("Row failed", port.Fields{"error": outcome.Err.Error()})
				if domain.IsTransportError(outcome.Err) {
					r.mu.Lock()
					r.abortRecorded = true
					r.mu.Unlock()
					return outcome.Err
				}
			case domain.RowSkipped:
				rowLogger.Debug("Row skipped", port.Fields{"reason": outcome.Err.Error()})
			}
			return nil
		})
	}
	err := g.Wait()

	var aborted []rowTask
	for i, task := range tasks {
		if !done[i] {
			aborted = append(aborted, task)
		}
	}
	if len(aborted) > 0 {
		r.logger.Warn("Rows aborted", port.Fields{"count": len(aborted)})
		r.abort(aborted)
	}

	if err != nil {
		return err
	}
	return ctx.Err()
}

// runBody - собственно работа операции. Вернуть ошибку = операция не удалась целиком.
type runBody func(ctx context.Context, run *syncRun) error

// Run выполняет прогон и всегда финализирует ровно одну запись журнала.
// Возвращает финальную запись и ошибку операции (если была).
func (s *SyncRunner) Run(ctx context.Context, sheetID string, direction domain.SyncDirection, preview bool, body runBody) (*domain.SyncLogEntry, error) {
	if err := domain.ValidateSyncRequest(sheetID, direction); err != nil {
		return nil, err
	}
	entry := domain.NewSyncLogEntry(sheetID, direction, preview)
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "SyncRunner",
		"sheet_id":  sheetID,
		"direction": string(direction),
		"preview":   preview,
		"run_id":    entry.ID.String(),
	})

	if err := s.logs.Append(ctx, entry); err != nil {
		logger.Error("Failed to append sync log entry", err, nil)
		return nil, fmt.Errorf("append sync log: %w", err)
	}
	logger.Info("Sync run started", nil)

	run := &syncRun{entry: entry, cfg: s.cfg, logger: logger}
	opErr := s.execute(ctx, sheetID, direction, run, body)

	tally := domain.Tally(run.outcomes)
	status := tally.TerminalStatus(opErr != nil)

	var extra []domain.SyncError
	if opErr != nil && !run.abortRecorded {
		extra = append(extra, runLevelError(opErr))
	}

	// финализируем даже после таймаута/отмены прогона
	finalCtx := context.WithoutCancel(ctx)
	final, err := s.logs.Update(finalCtx, entry.ID, tally.FinalPatch(status, extra...))
	if err != nil {
		logger.Error("Failed to finalize sync log entry", err, nil)
		return nil, errors.Join(opErr, fmt.Errorf("finalize sync log: %w", err))
	}

	fields := port.Fields{
		"status":    string(final.Status),
		"total":     final.RowsTotal,
		"succeeded": final.RowsSucceeded,
		"skipped":   final.RowsSkipped,
		"failed":    final.RowsFailed,
	}
	if opErr != nil {
		logger.Error("Sync run failed", opErr, fields)
	} else {
		logger.Info("Sync run finished", fields)
	}

	if s.reporter != nil {
		if err := s.reporter.ReportCompleted(finalCtx, final); err != nil {
			logger.Warn("Failed to report sync run completion", port.Fields{"error": err.Error()})
		}
	}

	return final, opErr
}

func (s *SyncRunner) execute(ctx context.Context, sheetID string, direction domain.SyncDirection, run *syncRun, body runBody) error {
	release, err := s.lock.Acquire(ctx, sheetID, direction)
	if err != nil {
		return err
	}
	defer release()

	runCtx, cancel := context.WithTimeout(ctx, s.cfg.RunTimeout)
	defer cancel()
	runCtx = contextkeys.ContextWithRunID(runCtx, run.entry.ID.String())
	runCtx = contextkeys.ContextWithLogger(runCtx, run.logger)

	if err := body(runCtx, run); err != nil {
		return err
	}
	return runCtx.Err()
}

// runLevelError - запись журнала для ошибки, не привязанной к строке
func runLevelError(err error) domain.SyncError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return domain.SyncError{
			Message:  fmt.Sprintf("run interrupted: %v", err),
			Kind:     domain.SyncErrorAborted,
			Severity: domain.SeverityError,
		}
	}
	se := domain.AsSyncError(0, err)
	se.RowIndex = 0
	return se
}
