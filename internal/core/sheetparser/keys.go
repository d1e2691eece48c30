package sheetparser

import (
	"interior-sync-service/internal/core/domain"

	"github.com/shopspring/decimal"
)

// DuAnRowKey - имя проекта из строки DuAn, прочитанное без разбора остальных ячеек
type DuAnRowKey struct {
	RowIndex int
	Name     string
}

// DuAnRowKeys возвращает ключи всех строк данных, у которых есть имя.
// Строка с битым статусом сюда тоже попадает: по ней PUSH понимает, что строка занята.
func DuAnRowKeys(rows []domain.SheetRow) []DuAnRowKey {
	columns, dataStart := resolveColumns(rows, duAnColumns)
	keys := make([]DuAnRowKey, 0, len(rows))
	for _, row := range rows[dataStart:] {
		if row.IsBlank() {
			continue
		}
		if name, ok := columns.cell(row, fieldName); ok && name != "" {
			keys = append(keys, DuAnRowKey{RowIndex: row.RowIndex, Name: name})
		}
	}
	return keys
}

// LayoutRowKey - ключевые колонки строки LayoutIDs.
// UnitType и Area заполнены, только если они разбираются; при заданном коде layout они не нужны.
type LayoutRowKey struct {
	RowIndex    int
	ProjectName string
	LayoutCode  string
	UnitType    *domain.UnitType
	Area        *decimal.Decimal
}

// NaturalKey собирает ключ планировки. false - ключевых колонок не хватает.
func (k LayoutRowKey) NaturalKey(projectSlug string) (string, bool) {
	if k.LayoutCode != "" {
		return domain.LayoutNaturalKey(projectSlug, k.LayoutCode, "", decimal.Zero), true
	}
	if k.UnitType == nil || k.Area == nil {
		return "", false
	}
	return domain.LayoutNaturalKey(projectSlug, "", *k.UnitType, *k.Area), true
}

// LayoutIDsRowKeys читает только проект, код, тип и площадь. Цена и картинки не смотрятся.
func LayoutIDsRowKeys(rows []domain.SheetRow) []LayoutRowKey {
	columns, dataStart := resolveColumns(rows, layoutColumns)
	keys := make([]LayoutRowKey, 0, len(rows))
	for _, row := range rows[dataStart:] {
		if row.IsBlank() {
			continue
		}
		project, ok := columns.cell(row, fieldProject)
		if !ok || project == "" {
			continue
		}
		key := LayoutRowKey{RowIndex: row.RowIndex, ProjectName: project}
		key.LayoutCode, _ = columns.cell(row, fieldLayoutCode)
		if rawType, _ := columns.cell(row, fieldApartmentType); rawType != "" {
			if unitType, ok := domain.MapApartmentType(rawType); ok {
				key.UnitType = &unitType
			}
		}
		if rawArea, _ := columns.cell(row, fieldArea); rawArea != "" {
			if area, err := ParseLocaleDecimal(rawArea); err == nil && area.IsPositive() {
				key.Area = &area
			}
		}
		keys = append(keys, key)
	}
	return keys
}
