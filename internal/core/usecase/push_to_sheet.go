package usecase

import (
	"context"
	"fmt"
	"sync/atomic"

	"interior-sync-service/internal/contextkeys"
	"interior-sync-service/internal/core/domain"
	"interior-sync-service/internal/core/port"
)

// PushToSheetUseCase - БД -> таблица. Строки с конфликтом не перезаписываются.
type PushToSheetUseCase struct {
	runner    *SyncRunner
	transport port.SheetTransportPort
	repo      port.InteriorRepositoryPort
}

func NewPushToSheetUseCase(runner *SyncRunner, transport port.SheetTransportPort, repo port.InteriorRepositoryPort) *PushToSheetUseCase {
	return &PushToSheetUseCase{
		runner:    runner,
		transport: transport,
		repo:      repo,
	}
}

func (uc *PushToSheetUseCase) Execute(ctx context.Context, sheetID string) (*domain.PushResult, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{"use_case": "PushToSheet", "sheet_id": sheetID})
	ucLogger.Info("Use case started", nil)

	var written, unchanged, conflicts atomic.Int64

	entry, err := uc.runner.Run(ctx, sheetID, domain.DirectionPush, false, func(ctx context.Context, run *syncRun) error {
		snapshot, projects, layouts, err := loadPushSources(ctx, uc.transport, uc.repo, sheetID)
		if err != nil {
			return err
		}
		plan := planPush(snapshot, projects, layouts)

		// заголовок пишем только во вкладку, куда реально что-то добавится
		for tab, header := range plan.headers {
			if !plan.hasAdds(tab) {
				continue
			}
			if err := writeRow(ctx, uc.transport, sheetID, tab, 1, header); err != nil {
				run.abort(plan.tasks(nil))
				return err
			}
		}

		tasks := plan.tasks(func(item pushItem) func(ctx context.Context) domain.RowOutcome {
			return func(ctx context.Context) domain.RowOutcome {
				switch item.diff {
				case domain.DiffUnchanged:
					unchanged.Add(1)
					if item.syncHash != item.hash {
						if err := uc.markSynced(ctx, item); err != nil {
							return domain.Failed(item.tab, item.rowIndex, &domain.PersistenceError{RowIndex: item.rowIndex, Err: err})
						}
					}
					return domain.Succeeded(item.tab, item.rowIndex)
				case domain.DiffConflict:
					conflicts.Add(1)
					return domain.Skipped(item.tab, item.rowIndex, &domain.ConflictError{RowIndex: item.rowIndex, Key: item.key, Reason: item.reason})
				}

				if err := writeRow(ctx, uc.transport, sheetID, item.tab, item.rowIndex, item.cells); err != nil {
					return domain.Failed(item.tab, item.rowIndex, err)
				}
				written.Add(1)
				if err := uc.markSynced(ctx, item); err != nil {
					return domain.Failed(item.tab, item.rowIndex, &domain.PersistenceError{RowIndex: item.rowIndex, Err: err})
				}
				return domain.Succeeded(item.tab, item.rowIndex)
			}
		})
		return run.process(ctx, tasks)
	})

	if err != nil && entry == nil {
		ucLogger.Error("Push to sheet failed", err, nil)
		return nil, err
	}

	result := &domain.PushResult{
		Written:   int(written.Load()),
		Unchanged: int(unchanged.Load()),
		Conflicts: int(conflicts.Load()),
		Errors:    entry.Errors,
		Log:       entry,
	}
	if err != nil {
		ucLogger.Error("Push to sheet failed", err, nil)
		return result, fmt.Errorf("push to sheet %s: %w", sheetID, err)
	}

	ucLogger.Info("Use case finished successfully", port.Fields{
		"status":    string(entry.Status),
		"written":   result.Written,
		"unchanged": result.Unchanged,
		"conflicts": result.Conflicts,
	})
	return result, nil
}

func (uc *PushToSheetUseCase) markSynced(ctx context.Context, item pushItem) error {
	switch {
	case item.project != nil:
		return uc.repo.MarkProjectSynced(ctx, item.project.ID, item.hash)
	case item.layout != nil:
		return uc.repo.MarkLayoutSynced(ctx, item.layout.ID, item.hash)
	}
	return nil
}

// loadPushSources читает обе вкладки и все записи БД
func loadPushSources(ctx context.Context, transport port.SheetTransportPort, repo port.InteriorRepositoryPort, sheetID string) (sheetSnapshot, []domain.Project, []domain.Layout, error) {
	var snapshot sheetSnapshot
	var err error
	if snapshot.duAnRows, err = readTab(ctx, transport, sheetID, domain.TabDuAn); err != nil {
		return snapshot, nil, nil, err
	}
	if snapshot.layoutRows, err = readTab(ctx, transport, sheetID, domain.TabLayoutIDs); err != nil {
		return snapshot, nil, nil, err
	}

	projects, err := repo.ListProjects(ctx)
	if err != nil {
		return snapshot, nil, nil, fmt.Errorf("listing projects: %w", err)
	}
	layouts, err := repo.ListLayouts(ctx)
	if err != nil {
		return snapshot, nil, nil, fmt.Errorf("listing layouts: %w", err)
	}
	return snapshot, projects, layouts, nil
}

func (p pushPlan) hasAdds(tab string) bool {
	for _, item := range p.items {
		if item.tab == tab && item.diff == domain.DiffAdd {
			return true
		}
	}
	return false
}

// tasks превращает план в задачи пула. build == nil - только для учета прерванных строк.
func (p pushPlan) tasks(build func(item pushItem) func(ctx context.Context) domain.RowOutcome) []rowTask {
	tasks := make([]rowTask, 0, len(p.items))
	for _, item := range p.items {
		task := rowTask{tab: item.tab, rowIndex: item.rowIndex}
		if build != nil {
			task.run = build(item)
		}
		tasks = append(tasks, task)
	}
	return tasks
}
