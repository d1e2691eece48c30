package usecase

import (
	"fmt"
	"sort"

	"interior-sync-service/internal/core/domain"
	"interior-sync-service/internal/core/sheetparser"
)

// pushItem - одна запись БД, сопоставленная со строкой листа
type pushItem struct {
	tab      string
	rowIndex int // куда писать: существующая строка или новая после последней занятой
	key      string
	diff     domain.DiffKind
	current  any // то, что сейчас в листе (nil для ADD)
	incoming any // запись БД
	cells    []string
	hash     string
	syncHash string // SyncHash записи на момент планирования
	reason   string // почему строку нельзя трогать (только для CONFLICT)

	project *domain.Project
	layout  *domain.Layout
}

// pushPlan - что и куда писать. headers - заголовки для пустых вкладок.
type pushPlan struct {
	items   []pushItem
	headers map[string][]string
}

type sheetSnapshot struct {
	duAnRows   []domain.SheetRow
	layoutRows []domain.SheetRow
}

// planPush сопоставляет записи БД со строками листа по естественному ключу.
// Ничего не пишет: его же использует PREVIEW.
func planPush(snapshot sheetSnapshot, projects []domain.Project, layouts []domain.Layout) pushPlan {
	plan := pushPlan{headers: map[string][]string{}}

	// --- DuAn ---
	duAnLayout := sheetparser.ResolveDuAnLayout(snapshot.duAnRows)
	duAnNext := lastUsedRow(snapshot.duAnRows) + 1
	if duAnLayout.Empty {
		header := sheetparser.DuAnHeader()
		plan.headers[domain.TabDuAn] = header
		duAnLayout = sheetparser.ResolveDuAnLayout([]domain.SheetRow{{RowIndex: 1, Cells: header}})
		duAnNext = 2
	}

	duAnParse := sheetparser.ParseDuAnSheet(snapshot.duAnRows)
	parsedDuAn := make(map[int]domain.ParsedDuAnData, len(duAnParse.Parsed))
	for _, parsed := range duAnParse.Parsed {
		parsedDuAn[parsed.RowIndex] = parsed
	}
	// индекс строится по ключевой колонке, а не по разобранным строкам:
	// строка с битой ячейкой все равно занимает свой ключ
	duAnRowByKey := make(map[string]int)
	for _, k := range sheetparser.DuAnRowKeys(snapshot.duAnRows) {
		key := domain.ProjectNameKey(k.Name)
		if _, dup := duAnRowByKey[key]; !dup {
			duAnRowByKey[key] = k.RowIndex
		}
	}
	duAnBroken := parseErrorsByRow(duAnParse.Errors)
	duAnCells := cellsByRow(snapshot.duAnRows)

	sortedProjects := append([]domain.Project(nil), projects...)
	sort.Slice(sortedProjects, func(i, j int) bool { return sortedProjects[i].Name < sortedProjects[j].Name })

	for i := range sortedProjects {
		p := sortedProjects[i]
		key := domain.ProjectNameKey(p.Name)
		item := pushItem{
			tab:      domain.TabDuAn,
			key:      key,
			incoming: p,
			hash:     p.Fingerprint(),
			syncHash: p.SyncHash,
			project:  &p,
		}
		if rowIndex, ok := duAnRowByKey[key]; ok {
			item.rowIndex = rowIndex
			if current, parsed := parsedDuAn[rowIndex]; parsed {
				item.current = current
				item.diff = domain.ClassifyDiff(true, current.Fingerprint(), item.hash, p.SyncHash)
				item.cells = duAnLayout.RenderProject(duAnCells[rowIndex], p)
			} else {
				item.current = duAnCells[rowIndex]
				item.diff = domain.DiffConflict
				item.reason = unparseableRowReason(duAnBroken[rowIndex])
			}
		} else {
			item.rowIndex = duAnNext
			duAnNext++
			item.diff = domain.DiffAdd
			item.cells = duAnLayout.RenderProject(nil, p)
		}
		plan.items = append(plan.items, item)
	}

	// --- LayoutIDs ---
	layoutSheetLayout := sheetparser.ResolveLayoutIDsLayout(snapshot.layoutRows)
	layoutNext := lastUsedRow(snapshot.layoutRows) + 1
	if layoutSheetLayout.Empty {
		header := sheetparser.LayoutIDsHeader()
		plan.headers[domain.TabLayoutIDs] = header
		layoutSheetLayout = sheetparser.ResolveLayoutIDsLayout([]domain.SheetRow{{RowIndex: 1, Cells: header}})
		layoutNext = 2
	}

	slugByName := make(map[string]string, len(projects))
	for _, p := range projects {
		slugByName[domain.ProjectNameKey(p.Name)] = p.Slug
	}
	layoutParse := sheetparser.ParseLayoutIDsSheet(snapshot.layoutRows)
	parsedLayouts := make(map[int]domain.ParsedLayoutData, len(layoutParse.Parsed))
	for _, parsed := range layoutParse.Parsed {
		parsedLayouts[parsed.RowIndex] = parsed
	}
	layoutRowByKey := make(map[string]int)
	for _, k := range sheetparser.LayoutIDsRowKeys(snapshot.layoutRows) {
		slug, ok := slugByName[domain.ProjectNameKey(k.ProjectName)]
		if !ok {
			slug = domain.GenerateSlug(k.ProjectName)
		}
		key, ok := k.NaturalKey(slug)
		if !ok {
			continue // ключевые колонки не разбираются, такую строку не сопоставить
		}
		if _, dup := layoutRowByKey[key]; !dup {
			layoutRowByKey[key] = k.RowIndex
		}
	}
	layoutBroken := parseErrorsByRow(layoutParse.Errors)
	layoutCells := cellsByRow(snapshot.layoutRows)

	sortedLayouts := append([]domain.Layout(nil), layouts...)
	sort.Slice(sortedLayouts, func(i, j int) bool { return sortedLayouts[i].Key() < sortedLayouts[j].Key() })

	for i := range sortedLayouts {
		l := sortedLayouts[i]
		key := l.Key()
		item := pushItem{
			tab:      domain.TabLayoutIDs,
			key:      key,
			incoming: l,
			hash:     l.Fingerprint(),
			syncHash: l.SyncHash,
			layout:   &l,
		}
		if rowIndex, ok := layoutRowByKey[key]; ok {
			item.rowIndex = rowIndex
			current, parsed := parsedLayouts[rowIndex]
			switch {
			case !parsed:
				item.current = layoutCells[rowIndex]
				item.diff = domain.DiffConflict
				item.reason = unparseableRowReason(layoutBroken[rowIndex])
			case current.MappedUnitType == nil:
				item.current = current
				item.diff = domain.DiffConflict
				item.reason = fmt.Sprintf("sheet row has unknown apartment type %q", current.ApartmentTypeRaw)
			default:
				item.current = current
				item.diff = domain.ClassifyDiff(true, current.Fingerprint(), item.hash, l.SyncHash)
				item.cells = layoutSheetLayout.RenderLayout(layoutCells[rowIndex], l)
			}
		} else {
			item.rowIndex = layoutNext
			layoutNext++
			item.diff = domain.DiffAdd
			item.cells = layoutSheetLayout.RenderLayout(nil, l)
		}
		plan.items = append(plan.items, item)
	}

	return plan
}

func cellsByRow(rows []domain.SheetRow) map[int][]string {
	m := make(map[int][]string, len(rows))
	for _, r := range rows {
		m[r.RowIndex] = r.Cells
	}
	return m
}

// parseErrorsByRow - первая ошибка разбора каждой строки
func parseErrorsByRow(errs []domain.SyncError) map[int]domain.SyncError {
	m := make(map[int]domain.SyncError, len(errs))
	for _, e := range errs {
		if _, ok := m[e.RowIndex]; !ok {
			m[e.RowIndex] = e
		}
	}
	return m
}

func unparseableRowReason(parseErr domain.SyncError) string {
	if parseErr.Message == "" {
		return "sheet row cannot be parsed"
	}
	if parseErr.Column != "" {
		return fmt.Sprintf("sheet row cannot be parsed: column %q: %s", parseErr.Column, parseErr.Message)
	}
	return "sheet row cannot be parsed: " + parseErr.Message
}
