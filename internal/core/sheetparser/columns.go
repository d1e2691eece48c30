package sheetparser

import (
	"strings"

	"interior-sync-service/internal/core/domain"
)

type field string

const (
	fieldName      field = "name"
	fieldDeveloper field = "developer"
	fieldAddress   field = "address"
	fieldStatus    field = "status"

	fieldProject       field = "project"
	fieldApartmentType field = "apartment_type"
	fieldArea          field = "area"
	fieldPrice         field = "price"
	fieldImages        field = "images"
	fieldLayoutCode    field = "layout_code"
)

// columnSpec: поле, какие заголовки ему соответствуют и обязательно ли оно.
// Порядок в срезе = порядок колонок по умолчанию, если строки заголовка нет.
type columnSpec struct {
	field    field
	label    string // как колонка подписывается в листе и в SyncError.Column
	aliases  []string
	required bool
}

var duAnColumns = []columnSpec{
	{field: fieldName, label: "Tên dự án", aliases: []string{"ten du an", "du an", "project", "project name", "name"}, required: true},
	{field: fieldDeveloper, label: "Chủ đầu tư", aliases: []string{"chu dau tu", "developer", "cdt"}},
	{field: fieldAddress, label: "Địa chỉ", aliases: []string{"dia chi", "address"}},
	{field: fieldStatus, label: "Trạng thái", aliases: []string{"trang thai", "status"}},
}

// ApartmentTypeLabel - подпись колонки типа квартиры, ею помечаются MappingError
const ApartmentTypeLabel = "Loại căn"

var layoutColumns = []columnSpec{
	{field: fieldProject, label: "Dự án", aliases: []string{"du an", "ten du an", "project"}, required: true},
	{field: fieldApartmentType, label: ApartmentTypeLabel, aliases: []string{"loai can", "loai can ho", "type", "apartment type", "unit type"}, required: true},
	{field: fieldArea, label: "Diện tích", aliases: []string{"dien tich", "dien tich (m2)", "area", "area (m2)"}, required: true},
	{field: fieldPrice, label: "Giá", aliases: []string{"gia", "gia ban", "price"}},
	{field: fieldImages, label: "Hình ảnh", aliases: []string{"hinh anh", "images", "image ids"}},
	{field: fieldLayoutCode, label: "Mã layout", aliases: []string{"ma layout", "layout id", "layout code"}},
}

// DuAnHeader / LayoutIDsHeader - заголовки, которые пишем при PUSH в пустой лист
func DuAnHeader() []string { return headerOf(duAnColumns) }

func LayoutIDsHeader() []string { return headerOf(layoutColumns) }

func headerOf(specs []columnSpec) []string {
	header := make([]string, len(specs))
	for i, s := range specs {
		header[i] = s.label
	}
	return header
}

// normalizeHeader: без диакритики, нижний регистр, одинарные пробелы
func normalizeHeader(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(domain.FoldDiacritics(s))), " ")
}

// columnMap - куда смотреть за каждым полем
type columnMap struct {
	positions map[field]int
	labels    map[field]string
	extras    map[int]string // колонки с заголовком, которые мы не знаем (только DuAn)
	headerRow int            // 0, если строки заголовка нет
}

func (m columnMap) cell(row domain.SheetRow, f field) (string, bool) {
	idx, ok := m.positions[f]
	if !ok {
		return "", false
	}
	return row.Cell(idx), true
}

func defaultColumnMap(specs []columnSpec) columnMap {
	m := columnMap{positions: make(map[field]int, len(specs)), labels: make(map[field]string, len(specs))}
	for i, s := range specs {
		m.positions[s.field] = i
		m.labels[s.field] = s.label
	}
	return m
}

func matchSpec(specs []columnSpec, header string) (columnSpec, bool) {
	for _, s := range specs {
		if normalizeHeader(s.label) == header {
			return s, true
		}
		for _, alias := range s.aliases {
			if alias == header {
				return s, true
			}
		}
	}
	return columnSpec{}, false
}

// resolveColumns определяет позиции колонок. Если первая непустая строка содержит
// хотя бы один известный заголовок - это строка заголовка, иначе порядок по умолчанию.
// Возвращает карту и индекс первой строки данных в rows.
func resolveColumns(rows []domain.SheetRow, specs []columnSpec) (columnMap, int) {
	first := -1
	for i, r := range rows {
		if !r.IsBlank() {
			first = i
			break
		}
	}
	if first < 0 {
		return defaultColumnMap(specs), len(rows)
	}

	headerCandidate := rows[first]
	m := columnMap{positions: make(map[field]int), labels: make(map[field]string), extras: make(map[int]string)}
	matched := 0
	for idx, raw := range headerCandidate.Cells {
		header := normalizeHeader(raw)
		if header == "" {
			continue
		}
		spec, ok := matchSpec(specs, header)
		if !ok {
			m.extras[idx] = strings.TrimSpace(raw)
			continue
		}
		if _, dup := m.positions[spec.field]; dup {
			continue // берем первую колонку с таким заголовком
		}
		m.positions[spec.field] = idx
		m.labels[spec.field] = spec.label
		matched++
	}

	if matched == 0 {
		return defaultColumnMap(specs), 0
	}

	// у отсутствующих колонок все равно есть подпись для ошибок
	for _, s := range specs {
		if _, ok := m.labels[s.field]; !ok {
			m.labels[s.field] = s.label
		}
	}
	m.headerRow = headerCandidate.RowIndex
	return m, first + 1
}
