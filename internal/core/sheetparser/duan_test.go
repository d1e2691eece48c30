package sheetparser

import (
	"fmt"
	"testing"

	"interior-sync-service/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuAnSheet_WithHeader(t *testing.T) {
	rows := domain.RowsFromValues([][]string{
		{"Tên dự án", "Chủ đầu tư", "Địa chỉ", "Trạng thái", "Ghi chú"},
		{"Vinhomes Grand Park", "Vinhomes", "Quận 9", "Đang bán", "hot"},
		{"", "", "", ""},
		{"Masteri Thảo Điền", "Masterise", "Quận 2", "inactive"},
	}, 1)

	result := ParseDuAnSheet(rows)

	assert.Equal(t, 1, result.HeaderRow)
	assert.Empty(t, result.Errors)
	require.Len(t, result.Parsed, 2)

	first := result.Parsed[0]
	assert.Equal(t, 2, first.RowIndex)
	assert.Equal(t, "Vinhomes Grand Park", first.Name)
	assert.Equal(t, "vinhomes-grand-park", first.Slug)
	assert.Equal(t, "Vinhomes", first.Developer)
	assert.Equal(t, domain.ProjectStatusActive, first.Status)
	assert.Equal(t, map[string]string{"Ghi chú": "hot"}, first.Extra)

	second := result.Parsed[1]
	assert.Equal(t, 4, second.RowIndex)
	assert.Equal(t, domain.ProjectStatusInactive, second.Status)
	assert.Nil(t, second.Extra)
}

func TestParseDuAnSheet_ReorderedHeader(t *testing.T) {
	rows := domain.RowsFromValues([][]string{
		{"status", "address", "project name"},
		{"active", "Thủ Đức", "The Global City"},
	}, 1)

	result := ParseDuAnSheet(rows)

	require.Len(t, result.Parsed, 1)
	assert.Equal(t, "The Global City", result.Parsed[0].Name)
	assert.Equal(t, "Thủ Đức", result.Parsed[0].Address)
	assert.Empty(t, result.Parsed[0].Developer)
}

func TestParseDuAnSheet_NoHeaderUsesDefaultOrder(t *testing.T) {
	rows := domain.RowsFromValues([][]string{
		{"Sunshine City", "Sunshine Group", "Hà Nội"},
	}, 1)

	result := ParseDuAnSheet(rows)

	assert.Zero(t, result.HeaderRow)
	require.Len(t, result.Parsed, 1)
	assert.Equal(t, 1, result.Parsed[0].RowIndex)
	assert.Equal(t, "Sunshine Group", result.Parsed[0].Developer)
	assert.Equal(t, domain.ProjectStatusActive, result.Parsed[0].Status)
}

// N строк, из них M битых: N-M разобрано, M ошибок с разными номерами строк
func TestParseDuAnSheet_MalformedRowsIsolated(t *testing.T) {
	values := [][]string{{"Tên dự án", "Chủ đầu tư", "Địa chỉ", "Trạng thái"}}
	const total = 20
	malformed := 0
	for i := 0; i < total; i++ {
		switch i % 5 {
		case 1:
			values = append(values, []string{"", "Dev", "Addr", "active"})
			malformed++
		case 3:
			values = append(values, []string{fmt.Sprintf("Project %d", i), "Dev", "Addr", "maybe"})
			malformed++
		default:
			values = append(values, []string{fmt.Sprintf("Project %d", i), "Dev", "Addr", "active"})
		}
	}

	result := ParseDuAnSheet(domain.RowsFromValues(values, 1))

	assert.Len(t, result.Parsed, total-malformed)
	require.Len(t, result.Errors, malformed)
	seen := make(map[int]bool)
	for _, e := range result.Errors {
		assert.False(t, seen[e.RowIndex], "duplicate row index %d", e.RowIndex)
		seen[e.RowIndex] = true
		assert.Equal(t, domain.SyncErrorParse, e.Kind)
		assert.Equal(t, domain.SeverityError, e.Severity)
		assert.NotEmpty(t, e.Column)
	}
}

func TestParseDuAnSheet_ErrorColumns(t *testing.T) {
	rows := domain.RowsFromValues([][]string{
		{"Tên dự án", "Trạng thái"},
		{"  ", "active"},
		{"!!!", "active"},
		{"Ok", "unknown"},
	}, 1)

	result := ParseDuAnSheet(rows)

	assert.Empty(t, result.Parsed)
	require.Len(t, result.Errors, 3)
	assert.Equal(t, "Tên dự án", result.Errors[0].Column)
	assert.Equal(t, 2, result.Errors[0].RowIndex)
	assert.Equal(t, "Tên dự án", result.Errors[1].Column)
	assert.Equal(t, "Trạng thái", result.Errors[2].Column)
	assert.Equal(t, 4, result.Errors[2].RowIndex)
}

func TestParseDuAnSheet_Empty(t *testing.T) {
	result := ParseDuAnSheet(nil)
	assert.Empty(t, result.Parsed)
	assert.NotNil(t, result.Errors)
	assert.Zero(t, result.HeaderRow)
}

func TestParseProjectStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want domain.ProjectStatus
	}{
		{"", domain.ProjectStatusActive},
		{"Active", domain.ProjectStatusActive},
		{"Đang bán", domain.ProjectStatusActive},
		{"Ngừng bán", domain.ProjectStatusInactive},
		{"FALSE", domain.ProjectStatusInactive},
	}
	for _, tt := range tests {
		got, err := ParseProjectStatus(tt.raw)
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}

	_, err := ParseProjectStatus("sold out soon")
	assert.Error(t, err)
}
