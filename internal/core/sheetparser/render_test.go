package sheetparser

import (
	"testing"

	"interior-sync-service/internal/core/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveLayout_Empty(t *testing.T) {
	assert.True(t, ResolveDuAnLayout(nil).Empty)
	assert.True(t, ResolveLayoutIDsLayout(domain.RowsFromValues([][]string{{"", " "}}, 1)).Empty)

	l := ResolveDuAnLayout(domain.RowsFromValues([][]string{DuAnHeader()}, 1))
	assert.False(t, l.Empty)
	assert.Equal(t, 1, l.HeaderRow)
}

func TestRenderProject_KeepsForeignColumns(t *testing.T) {
	rows := domain.RowsFromValues([][]string{
		{"Ghi chú", "Trạng thái", "Tên dự án"},
		{"giữ nguyên", "active", "Old name"},
	}, 1)
	layout := ResolveDuAnLayout(rows)

	cells := layout.RenderProject(rows[1].Cells, domain.Project{
		Name:      "Vinhomes Grand Park",
		Developer: "Vinhomes",
		Status:    domain.ProjectStatusInactive,
	})

	// колонок застройщика и адреса в листе нет - их не дописываем
	assert.Equal(t, []string{"giữ nguyên", "inactive", "Vinhomes Grand Park"}, cells)
	assert.Equal(t, "active", rows[1].Cells[1], "base row must not be mutated")
}

func TestRenderLayout_ParsesBackToSameFingerprint(t *testing.T) {
	price := decimal.RequireFromString("2500000000")
	lay := domain.Layout{
		ProjectName: "Vinhomes Grand Park",
		LayoutCode:  "B-12",
		UnitType:    domain.UnitTypeStudio,
		Area:        decimal.RequireFromString("32.125"),
		Price:       &price,
		ImageIDs:    []string{"img-1", "img-2"},
	}

	header := LayoutIDsHeader()
	layout := ResolveLayoutIDsLayout(domain.RowsFromValues([][]string{header}, 1))
	cells := layout.RenderLayout(nil, lay)

	result := ParseLayoutIDsSheet(domain.RowsFromValues([][]string{header, cells}, 1))
	require.Empty(t, result.Errors)
	require.Len(t, result.Parsed, 1)
	assert.Equal(t, lay.Fingerprint(), result.Parsed[0].Fingerprint())
}

func TestRenderProject_ParsesBackToSameFingerprint(t *testing.T) {
	p := domain.Project{Name: "Masteri Thảo Điền", Developer: "Masterise", Address: "Quận 2", Status: domain.ProjectStatusActive}

	header := DuAnHeader()
	layout := ResolveDuAnLayout(domain.RowsFromValues([][]string{header}, 1))
	cells := layout.RenderProject(nil, p)

	result := ParseDuAnSheet(domain.RowsFromValues([][]string{header, cells}, 1))
	require.Len(t, result.Parsed, 1)
	assert.Equal(t, p.Fingerprint(), result.Parsed[0].Fingerprint())
}

func TestRenderLayout_NoPriceLeavesCellEmpty(t *testing.T) {
	layout := ResolveLayoutIDsLayout(domain.RowsFromValues([][]string{LayoutIDsHeader()}, 1))
	cells := layout.RenderLayout(nil, domain.Layout{
		ProjectName: "X",
		UnitType:    domain.UnitType2PN,
		Area:        decimal.NewFromInt(70),
	})
	require.Len(t, cells, len(LayoutIDsHeader()))
	assert.Equal(t, []string{"X", "2PN", "70", "", "", ""}, cells)
}
