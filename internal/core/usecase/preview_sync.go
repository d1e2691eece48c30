package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"interior-sync-service/internal/contextkeys"
	"interior-sync-service/internal/core/domain"
	"interior-sync-service/internal/core/port"
	"interior-sync-service/internal/core/sheetparser"
)

// PreviewSyncUseCase - dry-run любого направления. Ничего не пишет, кроме записи журнала.
type PreviewSyncUseCase struct {
	runner    *SyncRunner
	transport port.SheetTransportPort
	repo      port.InteriorRepositoryPort
}

func NewPreviewSyncUseCase(runner *SyncRunner, transport port.SheetTransportPort, repo port.InteriorRepositoryPort) *PreviewSyncUseCase {
	return &PreviewSyncUseCase{
		runner:    runner,
		transport: transport,
		repo:      repo,
	}
}

func (uc *PreviewSyncUseCase) Execute(ctx context.Context, sheetID string, direction domain.SyncDirection) (*domain.PreviewResult, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{"use_case": "PreviewSync", "sheet_id": sheetID, "direction": string(direction)})
	ucLogger.Info("Use case started", nil)

	var (
		rows   []domain.PreviewRow
		rowsMu sync.Mutex
	)
	addRow := func(row domain.PreviewRow) {
		rowsMu.Lock()
		rows = append(rows, row)
		rowsMu.Unlock()
	}

	body := func(ctx context.Context, run *syncRun) error {
		if direction == domain.DirectionPush {
			return uc.previewPush(ctx, run, sheetID, addRow)
		}
		return uc.previewPull(ctx, run, sheetID, addRow)
	}

	entry, err := uc.runner.Run(ctx, sheetID, direction, true, body)
	if err != nil && entry == nil {
		ucLogger.Error("Preview failed", err, nil)
		return nil, err
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Tab != rows[j].Tab {
			return rows[i].Tab == domain.TabDuAn
		}
		return rows[i].RowIndex < rows[j].RowIndex
	})
	result := &domain.PreviewResult{
		Direction: direction,
		Rows:      rows,
		Summary:   domain.NewPreviewSummary(),
		Errors:    entry.Errors,
		Log:       entry,
	}
	if result.Rows == nil {
		result.Rows = []domain.PreviewRow{}
	}
	for _, r := range result.Rows {
		result.Summary[r.DiffKind]++
	}

	if err != nil {
		ucLogger.Error("Preview failed", err, nil)
		return result, fmt.Errorf("preview %s of sheet %s: %w", direction, sheetID, err)
	}
	ucLogger.Info("Use case finished successfully", port.Fields{"rows": len(result.Rows), "summary": result.Summary})
	return result, nil
}

// previewOutcome: конфликт в dry-run учитывается как пропуск, как его учел бы настоящий прогон
func previewOutcome(tab string, rowIndex int, key string, kind domain.DiffKind, reason string) domain.RowOutcome {
	if kind == domain.DiffConflict {
		return domain.Skipped(tab, rowIndex, &domain.ConflictError{RowIndex: rowIndex, Key: key, Reason: reason})
	}
	return domain.Succeeded(tab, rowIndex)
}

func (uc *PreviewSyncUseCase) previewPush(ctx context.Context, run *syncRun, sheetID string, addRow func(domain.PreviewRow)) error {
	snapshot, projects, layouts, err := loadPushSources(ctx, uc.transport, uc.repo, sheetID)
	if err != nil {
		return err
	}
	plan := planPush(snapshot, projects, layouts)

	tasks := plan.tasks(func(item pushItem) func(ctx context.Context) domain.RowOutcome {
		return func(ctx context.Context) domain.RowOutcome {
			addRow(domain.PreviewRow{
				RowIndex: item.rowIndex,
				Tab:      item.tab,
				Key:      item.key,
				DiffKind: item.diff,
				Current:  item.current,
				Incoming: item.incoming,
			})
			return previewOutcome(item.tab, item.rowIndex, item.key, item.diff, item.reason)
		}
	})
	return run.process(ctx, tasks)
}

func (uc *PreviewSyncUseCase) previewPull(ctx context.Context, run *syncRun, sheetID string, addRow func(domain.PreviewRow)) error {
	duAnRows, err := readTab(ctx, uc.transport, sheetID, domain.TabDuAn)
	if err != nil {
		return err
	}
	layoutRows, err := readTab(ctx, uc.transport, sheetID, domain.TabLayoutIDs)
	if err != nil {
		return err
	}

	duAn := sheetparser.ParseDuAnSheet(duAnRows)
	layouts := sheetparser.ParseLayoutIDsSheet(layoutRows)
	run.recordParseErrors(domain.TabDuAn, duAn.Errors)
	run.recordParseErrors(domain.TabLayoutIDs, layouts.Errors)

	tasks := make([]rowTask, 0, len(duAn.Parsed)+len(layouts.Parsed))
	for _, parsed := range duAn.Parsed {
		parsed := parsed
		tasks = append(tasks, rowTask{
			tab:      domain.TabDuAn,
			rowIndex: parsed.RowIndex,
			run: func(ctx context.Context) domain.RowOutcome {
				row, err := uc.classifyProject(ctx, parsed)
				if err != nil {
					return domain.Failed(domain.TabDuAn, parsed.RowIndex, &domain.PersistenceError{RowIndex: parsed.RowIndex, Err: err})
				}
				addRow(row)
				return previewOutcome(row.Tab, row.RowIndex, row.Key, row.DiffKind, "")
			},
		})
	}
	for _, parsed := range layouts.Parsed {
		parsed := parsed
		tasks = append(tasks, rowTask{
			tab:      domain.TabLayoutIDs,
			rowIndex: parsed.RowIndex,
			run: func(ctx context.Context) domain.RowOutcome {
				if parsed.MappedUnitType == nil {
					return domain.Skipped(domain.TabLayoutIDs, parsed.RowIndex, &domain.MappingError{
						RowIndex: parsed.RowIndex,
						Column:   sheetparser.ApartmentTypeLabel,
						Label:    parsed.ApartmentTypeRaw,
					})
				}
				row, err := uc.classifyLayout(ctx, parsed)
				if err != nil {
					return domain.Failed(domain.TabLayoutIDs, parsed.RowIndex, &domain.PersistenceError{RowIndex: parsed.RowIndex, Err: err})
				}
				addRow(row)
				return previewOutcome(row.Tab, row.RowIndex, row.Key, row.DiffKind, "")
			},
		})
	}
	return run.process(ctx, tasks)
}

func (uc *PreviewSyncUseCase) classifyProject(ctx context.Context, parsed domain.ParsedDuAnData) (domain.PreviewRow, error) {
	row := domain.PreviewRow{
		RowIndex: parsed.RowIndex,
		Tab:      domain.TabDuAn,
		Key:      domain.ProjectNameKey(parsed.Name),
		Incoming: parsed,
	}
	current, err := uc.repo.FindProjectByName(ctx, parsed.Name)
	switch {
	case errors.Is(err, domain.ErrProjectNotFound):
		row.DiffKind = domain.DiffAdd
		return row, nil
	case err != nil:
		return row, err
	}
	row.Current = *current
	row.DiffKind = domain.ClassifyDiff(true, current.Fingerprint(), parsed.Fingerprint(), current.SyncHash)
	return row, nil
}

func (uc *PreviewSyncUseCase) classifyLayout(ctx context.Context, parsed domain.ParsedLayoutData) (domain.PreviewRow, error) {
	row := domain.PreviewRow{
		RowIndex: parsed.RowIndex,
		Tab:      domain.TabLayoutIDs,
		Incoming: parsed,
	}

	slug := domain.GenerateSlug(parsed.ProjectName)
	project, err := uc.repo.FindProjectByName(ctx, parsed.ProjectName)
	switch {
	case err == nil:
		slug = project.Slug
	case !errors.Is(err, domain.ErrProjectNotFound):
		return row, err
	}
	row.Key = domain.LayoutNaturalKey(slug, parsed.LayoutCode, *parsed.MappedUnitType, parsed.Area)
	if project == nil {
		row.DiffKind = domain.DiffAdd
		return row, nil
	}

	current, err := uc.repo.FindLayoutByKey(ctx, row.Key)
	switch {
	case errors.Is(err, domain.ErrLayoutNotFound):
		row.DiffKind = domain.DiffAdd
		return row, nil
	case err != nil:
		return row, err
	}
	row.Current = *current
	row.DiffKind = domain.ClassifyDiff(true, current.Fingerprint(), parsed.Fingerprint(), current.SyncHash)
	return row, nil
}
