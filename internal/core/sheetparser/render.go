package sheetparser

import (
	"strings"

	"interior-sync-service/internal/core/domain"

	"github.com/shopspring/decimal"
)

// SheetLayout - разрешенные позиции колонок конкретной вкладки.
// Нужна для PUSH: пишем значения туда, где их ожидает лист, не трогая чужие колонки.
type SheetLayout struct {
	columns   columnMap
	HeaderRow int // 0 - заголовка нет
	Empty     bool
}

func ResolveDuAnLayout(rows []domain.SheetRow) SheetLayout {
	return resolveLayout(rows, duAnColumns)
}

func ResolveLayoutIDsLayout(rows []domain.SheetRow) SheetLayout {
	return resolveLayout(rows, layoutColumns)
}

func resolveLayout(rows []domain.SheetRow, specs []columnSpec) SheetLayout {
	columns, _ := resolveColumns(rows, specs)
	empty := true
	for _, r := range rows {
		if !r.IsBlank() {
			empty = false
			break
		}
	}
	return SheetLayout{columns: columns, HeaderRow: columns.headerRow, Empty: empty}
}

func (l SheetLayout) render(base []string, values map[field]string) []string {
	width := len(base)
	for f := range values {
		if idx, ok := l.columns.positions[f]; ok && idx+1 > width {
			width = idx + 1
		}
	}
	out := make([]string, width)
	copy(out, base)
	for f, v := range values {
		if idx, ok := l.columns.positions[f]; ok {
			out[idx] = v
		}
	}
	return out
}

// RenderProject накладывает проект на существующую строку (base может быть nil)
func (l SheetLayout) RenderProject(base []string, p domain.Project) []string {
	return l.render(base, map[field]string{
		fieldName:      p.Name,
		fieldDeveloper: p.Developer,
		fieldAddress:   p.Address,
		fieldStatus:    string(p.Status),
	})
}

func (l SheetLayout) RenderLayout(base []string, lay domain.Layout) []string {
	price := ""
	if lay.Price != nil {
		price = FormatDecimal(*lay.Price)
	}
	return l.render(base, map[field]string{
		fieldProject:       lay.ProjectName,
		fieldApartmentType: domain.SheetLabel(lay.UnitType),
		fieldArea:          FormatDecimal(lay.Area),
		fieldPrice:         price,
		fieldImages:        strings.Join(lay.ImageIDs, ", "),
		fieldLayoutCode:    lay.LayoutCode,
	})
}

// FormatDecimal пишет число так, чтобы ParseLocaleDecimal прочитал его обратно:
// ровно три знака после точки разбор принял бы за разделитель тысяч.
func FormatDecimal(d decimal.Decimal) string {
	s := d.String()
	if dot := strings.IndexByte(s, '.'); dot >= 0 && len(s)-dot-1 == 3 {
		s += "0"
	}
	return s
}
