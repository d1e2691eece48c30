package sheetparser

import (
	"testing"

	"interior-sync-service/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuAnRowKeys_IncludesRowsThatFailToParse(t *testing.T) {
	rows := sheetRows(
		[]string{"Tên dự án", "Trạng thái"},
		[]string{"Vinhomes Grand Park", "sắp mở bán"},
		[]string{"", "active"},
		[]string{"Sunshine City", "active"},
	)

	parsed := ParseDuAnSheet(rows)
	require.Len(t, parsed.Parsed, 1)

	assert.Equal(t, []DuAnRowKey{
		{RowIndex: 2, Name: "Vinhomes Grand Park"},
		{RowIndex: 4, Name: "Sunshine City"},
	}, DuAnRowKeys(rows))
}

func TestLayoutIDsRowKeys(t *testing.T) {
	rows := sheetRows(
		[]string{"Vinhomes Grand Park", "2PN", "70", "Liên hệ"},
		[]string{"Vinhomes Grand Park", "Shophouse", "120", "", "", "PH-01"},
		[]string{"Vinhomes Grand Park", "Shophouse", "120"},
		[]string{"", "1PN", "55"},
	)

	keys := LayoutIDsRowKeys(rows)
	require.Len(t, keys, 3)

	key, ok := keys[0].NaturalKey("vgp")
	require.True(t, ok)
	assert.Equal(t, "vgp/2pn/70", key)

	key, ok = keys[1].NaturalKey("vgp")
	require.True(t, ok)
	assert.Equal(t, "vgp/ph-01", key)

	_, ok = keys[2].NaturalKey("vgp")
	assert.False(t, ok)
}

func sheetRows(cells ...[]string) []domain.SheetRow {
	rows := make([]domain.SheetRow, len(cells))
	for i, c := range cells {
		rows[i] = domain.SheetRow{RowIndex: i + 1, Cells: c}
	}
	return rows
}
