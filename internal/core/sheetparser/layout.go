package sheetparser

import (
	"fmt"
	"strings"

	"interior-sync-service/internal/core/domain"
)

type LayoutParseResult struct {
	Parsed    []domain.ParsedLayoutData
	Errors    []domain.SyncError
	HeaderRow int
}

// ParseLayoutIDsSheet разбирает вкладку планировок.
// Неизвестный тип квартиры ошибкой разбора не является: MappedUnitType остается nil,
// что с такой строкой делать - решает оркестратор.
func ParseLayoutIDsSheet(rows []domain.SheetRow) LayoutParseResult {
	columns, dataStart := resolveColumns(rows, layoutColumns)
	result := LayoutParseResult{
		Parsed:    make([]domain.ParsedLayoutData, 0, len(rows)),
		Errors:    []domain.SyncError{},
		HeaderRow: columns.headerRow,
	}

	for _, row := range rows[dataStart:] {
		if row.IsBlank() {
			continue
		}
		parsed, syncErr := parseLayoutRow(row, columns)
		if syncErr != nil {
			result.Errors = append(result.Errors, *syncErr)
			continue
		}
		result.Parsed = append(result.Parsed, parsed)
	}
	return result
}

func requiredCell(row domain.SheetRow, columns columnMap, f field) (string, *domain.SyncError) {
	value, ok := columns.cell(row, f)
	if !ok {
		return "", parseFailure(row.RowIndex, columns.labels[f], "column is missing from the sheet")
	}
	if value == "" {
		return "", parseFailure(row.RowIndex, columns.labels[f], "required value is empty")
	}
	return value, nil
}

func parseLayoutRow(row domain.SheetRow, columns columnMap) (domain.ParsedLayoutData, *domain.SyncError) {
	project, syncErr := requiredCell(row, columns, fieldProject)
	if syncErr != nil {
		return domain.ParsedLayoutData{}, syncErr
	}
	rawType, syncErr := requiredCell(row, columns, fieldApartmentType)
	if syncErr != nil {
		return domain.ParsedLayoutData{}, syncErr
	}
	rawArea, syncErr := requiredCell(row, columns, fieldArea)
	if syncErr != nil {
		return domain.ParsedLayoutData{}, syncErr
	}

	area, err := ParseLocaleDecimal(rawArea)
	if err != nil {
		return domain.ParsedLayoutData{}, parseFailure(row.RowIndex, columns.labels[fieldArea], err.Error())
	}
	if !area.IsPositive() {
		return domain.ParsedLayoutData{}, parseFailure(row.RowIndex, columns.labels[fieldArea], fmt.Sprintf("area must be positive, got %s", area))
	}

	parsed := domain.ParsedLayoutData{
		RowIndex:         row.RowIndex,
		ProjectName:      project,
		ApartmentTypeRaw: rawType,
		Area:             area,
	}
	if unitType, ok := domain.MapApartmentType(rawType); ok {
		parsed.MappedUnitType = &unitType
	}

	if rawPrice, _ := columns.cell(row, fieldPrice); rawPrice != "" {
		price, err := ParseLocaleDecimal(rawPrice)
		if err != nil {
			return domain.ParsedLayoutData{}, parseFailure(row.RowIndex, columns.labels[fieldPrice], err.Error())
		}
		if price.IsNegative() {
			return domain.ParsedLayoutData{}, parseFailure(row.RowIndex, columns.labels[fieldPrice], fmt.Sprintf("price must not be negative, got %s", price))
		}
		parsed.Price = &price
	}

	if rawImages, _ := columns.cell(row, fieldImages); rawImages != "" {
		parsed.ImageIDs = SplitImageIDs(rawImages)
	}
	parsed.LayoutCode, _ = columns.cell(row, fieldLayoutCode)

	return parsed, nil
}

// SplitImageIDs: id картинок через запятую, точку с запятой или перевод строки
func SplitImageIDs(raw string) []string {
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n'
	})
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, p)
		}
	}
	return ids
}
