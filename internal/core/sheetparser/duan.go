package sheetparser

import (
	"fmt"

	"interior-sync-service/internal/core/domain"
)

// DuAnParseResult - итог разбора вкладки DuAn
type DuAnParseResult struct {
	Parsed    []domain.ParsedDuAnData
	Errors    []domain.SyncError
	HeaderRow int // 0, если заголовка не было
}

var projectStatusValues = map[string]domain.ProjectStatus{
	"":           domain.ProjectStatusActive,
	"active":     domain.ProjectStatusActive,
	"1":          domain.ProjectStatusActive,
	"x":          domain.ProjectStatusActive,
	"true":       domain.ProjectStatusActive,
	"yes":        domain.ProjectStatusActive,
	"dang ban":   domain.ProjectStatusActive,
	"hoat dong":  domain.ProjectStatusActive,
	"mo ban":     domain.ProjectStatusActive,
	"inactive":   domain.ProjectStatusInactive,
	"0":          domain.ProjectStatusInactive,
	"false":      domain.ProjectStatusInactive,
	"no":         domain.ProjectStatusInactive,
	"ngung":      domain.ProjectStatusInactive,
	"ngung ban":  domain.ProjectStatusInactive,
	"da ban het": domain.ProjectStatusInactive,
	"an":         domain.ProjectStatusInactive,
}

// ParseProjectStatus понимает и английские, и вьетнамские значения колонки "Trạng thái"
func ParseProjectStatus(raw string) (domain.ProjectStatus, error) {
	if status, ok := projectStatusValues[normalizeHeader(raw)]; ok {
		return status, nil
	}
	return "", fmt.Errorf("unknown status %q", raw)
}

// ParseDuAnSheet разбирает вкладку проектов. Битая строка попадает в Errors
// и исключается из Parsed, остальные строки обрабатываются дальше.
func ParseDuAnSheet(rows []domain.SheetRow) DuAnParseResult {
	columns, dataStart := resolveColumns(rows, duAnColumns)
	result := DuAnParseResult{
		Parsed:    make([]domain.ParsedDuAnData, 0, len(rows)),
		Errors:    []domain.SyncError{},
		HeaderRow: columns.headerRow,
	}

	for _, row := range rows[dataStart:] {
		if row.IsBlank() {
			continue
		}
		parsed, syncErr := parseDuAnRow(row, columns)
		if syncErr != nil {
			result.Errors = append(result.Errors, *syncErr)
			continue
		}
		result.Parsed = append(result.Parsed, parsed)
	}
	return result
}

func parseDuAnRow(row domain.SheetRow, columns columnMap) (domain.ParsedDuAnData, *domain.SyncError) {
	name, ok := columns.cell(row, fieldName)
	if !ok {
		return domain.ParsedDuAnData{}, parseFailure(row.RowIndex, columns.labels[fieldName], "column is missing from the sheet")
	}
	if name == "" {
		return domain.ParsedDuAnData{}, parseFailure(row.RowIndex, columns.labels[fieldName], "required value is empty")
	}

	slug := domain.GenerateSlug(name)
	if slug == "" {
		return domain.ParsedDuAnData{}, parseFailure(row.RowIndex, columns.labels[fieldName], fmt.Sprintf("cannot derive slug from %q", name))
	}

	developer, _ := columns.cell(row, fieldDeveloper)
	address, _ := columns.cell(row, fieldAddress)
	rawStatus, _ := columns.cell(row, fieldStatus)
	status, err := ParseProjectStatus(rawStatus)
	if err != nil {
		return domain.ParsedDuAnData{}, parseFailure(row.RowIndex, columns.labels[fieldStatus], err.Error())
	}

	var extra map[string]string
	for idx, label := range columns.extras {
		if v := row.Cell(idx); v != "" {
			if extra == nil {
				extra = make(map[string]string)
			}
			extra[label] = v
		}
	}

	return domain.ParsedDuAnData{
		RowIndex:  row.RowIndex,
		Name:      name,
		Developer: developer,
		Slug:      slug,
		Address:   address,
		Status:    status,
		Extra:     extra,
	}, nil
}

func parseFailure(rowIndex int, column, message string) *domain.SyncError {
	return &domain.SyncError{
		RowIndex: rowIndex,
		Column:   column,
		Message:  message,
		Kind:     domain.SyncErrorParse,
		Severity: domain.SeverityError,
	}
}
