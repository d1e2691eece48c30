package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Вкладки таблицы
const (
	TabDuAn      = "DuAn"
	TabLayoutIDs = "LayoutIDs"
)

// SheetRow - "сырая" строка листа. RowIndex 1-based и совпадает с номером строки в таблице.
type SheetRow struct {
	RowIndex int
	Cells    []string
}

// Cell безопасно достает ячейку, выход за границы = пустая строка
func (r SheetRow) Cell(idx int) string {
	if idx < 0 || idx >= len(r.Cells) {
		return ""
	}
	return strings.TrimSpace(r.Cells[idx])
}

// IsBlank - все ячейки пустые (такие строки просто пропускаются)
func (r SheetRow) IsBlank() bool {
	for _, c := range r.Cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// RowsFromValues нумерует строки, прочитанные транспортом с первой строки диапазона
func RowsFromValues(values [][]string, firstRow int) []SheetRow {
	rows := make([]SheetRow, 0, len(values))
	for i, cells := range values {
		rows = append(rows, SheetRow{RowIndex: firstRow + i, Cells: cells})
	}
	return rows
}

type ProjectStatus string

const (
	ProjectStatusActive   ProjectStatus = "active"
	ProjectStatusInactive ProjectStatus = "inactive"
)

// ParsedDuAnData - строка вкладки DuAn после разбора
type ParsedDuAnData struct {
	RowIndex  int               `json:"row_index"`
	Name      string            `json:"name"`
	Developer string            `json:"developer,omitempty"`
	Slug      string            `json:"slug"`
	Address   string            `json:"address,omitempty"`
	Status    ProjectStatus     `json:"status"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// ParsedLayoutData - строка вкладки LayoutIDs после разбора.
// MappedUnitType == nil, если метку не удалось сопоставить.
type ParsedLayoutData struct {
	RowIndex         int              `json:"row_index"`
	ProjectName      string           `json:"project_name"`
	ApartmentTypeRaw string           `json:"apartment_type_raw"`
	MappedUnitType   *UnitType        `json:"mapped_unit_type"`
	Area             decimal.Decimal  `json:"area"`
	Price            *decimal.Decimal `json:"price,omitempty"`
	ImageIDs         []string         `json:"image_ids,omitempty"`
	LayoutCode       string           `json:"layout_code,omitempty"`
}
