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

// PullFromSheetUseCase - таблица -> БД. Только добавление и обновление, удаления нет.
type PullFromSheetUseCase struct {
	runner    *SyncRunner
	transport port.SheetTransportPort
	repo      port.InteriorRepositoryPort
	projects  *projectWriter
}

func NewPullFromSheetUseCase(runner *SyncRunner, transport port.SheetTransportPort, repo port.InteriorRepositoryPort) *PullFromSheetUseCase {
	return &PullFromSheetUseCase{
		runner:    runner,
		transport: transport,
		repo:      repo,
		projects:  newProjectWriter(repo),
	}
}

func (uc *PullFromSheetUseCase) Execute(ctx context.Context, sheetID string) (*domain.PullResult, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{"use_case": "PullFromSheet", "sheet_id": sheetID})
	ucLogger.Info("Use case started", nil)

	result := &domain.PullResult{
		ParsedProjects: []domain.ParsedDuAnData{},
		ParsedLayouts:  []domain.ParsedLayoutData{},
		Projects:       []domain.Project{},
		Layouts:        []domain.Layout{},
	}
	var resultMu sync.Mutex

	entry, err := uc.runner.Run(ctx, sheetID, domain.DirectionPull, false, func(ctx context.Context, run *syncRun) error {
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
		result.ParsedProjects = duAn.Parsed
		result.ParsedLayouts = layouts.Parsed

		var slugs map[string]string
		projectTasks := make([]rowTask, 0, len(duAn.Parsed))
		for _, parsed := range duAn.Parsed {
			parsed := parsed
			projectTasks = append(projectTasks, rowTask{
				tab:      domain.TabDuAn,
				rowIndex: parsed.RowIndex,
				run: func(ctx context.Context) domain.RowOutcome {
					saved, err := uc.projects.upsert(ctx, parsed, slugs[domain.ProjectNameKey(parsed.Name)])
					if err != nil {
						return domain.Failed(domain.TabDuAn, parsed.RowIndex, &domain.PersistenceError{RowIndex: parsed.RowIndex, Err: err})
					}
					resultMu.Lock()
					result.Projects = append(result.Projects, *saved)
					resultMu.Unlock()
					return domain.Succeeded(domain.TabDuAn, parsed.RowIndex)
				},
			})
		}

		layoutTasks := make([]rowTask, 0, len(layouts.Parsed))
		for _, parsed := range layouts.Parsed {
			parsed := parsed
			layoutTasks = append(layoutTasks, rowTask{
				tab:      domain.TabLayoutIDs,
				rowIndex: parsed.RowIndex,
				run: func(ctx context.Context) domain.RowOutcome {
					saved, outcome := uc.applyLayout(ctx, parsed)
					if saved != nil {
						resultMu.Lock()
						result.Layouts = append(result.Layouts, *saved)
						resultMu.Unlock()
					}
					return outcome
				},
			})
		}

		// слаги новых проектов раздаются по порядку строк, до запуска пула
		if slugs, err = uc.projects.reserveSlugs(ctx, duAn.Parsed); err != nil {
			run.abort(projectTasks)
			run.abort(layoutTasks)
			return err
		}

		// планировки ссылаются на проекты, поэтому сначала вся вкладка DuAn
		if err := run.process(ctx, projectTasks); err != nil {
			run.abort(layoutTasks)
			return err
		}
		return run.process(ctx, layoutTasks)
	})

	if entry != nil {
		sort.Slice(result.Projects, func(i, j int) bool { return result.Projects[i].Name < result.Projects[j].Name })
		sort.Slice(result.Layouts, func(i, j int) bool { return result.Layouts[i].Key() < result.Layouts[j].Key() })
		result.Errors = entry.Errors
		result.Log = entry
	}
	if err != nil {
		ucLogger.Error("Pull from sheet failed", err, nil)
		if entry == nil {
			return nil, err
		}
		return result, fmt.Errorf("pull from sheet %s: %w", sheetID, err)
	}

	ucLogger.Info("Use case finished successfully", port.Fields{
		"status":   string(entry.Status),
		"projects": len(result.Projects),
		"layouts":  len(result.Layouts),
	})
	return result, nil
}

// applyLayout сохраняет одну строку LayoutIDs. Несопоставленный тип - пропуск, а не ошибка.
func (uc *PullFromSheetUseCase) applyLayout(ctx context.Context, parsed domain.ParsedLayoutData) (*domain.Layout, domain.RowOutcome) {
	tab, row := domain.TabLayoutIDs, parsed.RowIndex
	if parsed.MappedUnitType == nil {
		return nil, domain.Skipped(tab, row, &domain.MappingError{
			RowIndex: row,
			Column:   sheetparser.ApartmentTypeLabel,
			Label:    parsed.ApartmentTypeRaw,
		})
	}

	project, err := uc.projects.ensure(ctx, parsed.ProjectName)
	if err != nil {
		return nil, domain.Failed(tab, row, &domain.PersistenceError{RowIndex: row, Err: fmt.Errorf("resolving project %q: %w", parsed.ProjectName, err)})
	}

	layout := &domain.Layout{
		ProjectID:   project.ID,
		ProjectSlug: project.Slug,
		ProjectName: project.Name,
		LayoutCode:  parsed.LayoutCode,
		UnitType:    *parsed.MappedUnitType,
		Area:        parsed.Area,
		Price:       parsed.Price,
		ImageIDs:    parsed.ImageIDs,
		SyncHash:    parsed.Fingerprint(),
	}

	existing, err := uc.repo.FindLayoutByKey(ctx, layout.Key())
	switch {
	case err == nil:
		layout.ID = existing.ID
	case !errors.Is(err, domain.ErrLayoutNotFound):
		return nil, domain.Failed(tab, row, &domain.PersistenceError{RowIndex: row, Err: err})
	}

	saved, err := uc.repo.UpsertLayout(ctx, layout)
	if err != nil {
		return nil, domain.Failed(tab, row, &domain.PersistenceError{RowIndex: row, Err: err})
	}
	return saved, domain.Succeeded(tab, row)
}
