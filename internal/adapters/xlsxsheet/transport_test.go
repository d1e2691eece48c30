package xlsxsheet

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"interior-sync-service/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestTransport_WriteThenRead(t *testing.T) {
	tr, err := NewTransport(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, tr.WriteSheet(ctx, "catalog", "DuAn!A1", [][]string{
		{"Tên dự án", "Chủ đầu tư"},
		{"Vinhomes Grand Park", "Vinhomes"},
	}))
	require.NoError(t, tr.WriteSheet(ctx, "catalog", "DuAn!A4", [][]string{{"Sunshine City", "Sunshine Group"}}))

	rows, err := tr.ReadSheet(ctx, "catalog", "DuAn!A1:Z")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Tên dự án", "Chủ đầu tư"}, rows[0])
	assert.Equal(t, []string{"Vinhomes Grand Park", "Vinhomes"}, rows[1])
	assert.Empty(t, rows[2])
	assert.Equal(t, []string{"Sunshine City", "Sunshine Group"}, rows[3])

	// строки листа совпадают с номерами RowIndex
	parsed := domain.RowsFromValues(rows, 1)
	assert.Equal(t, 4, parsed[3].RowIndex)
}

func TestTransport_ReadOffsetRange(t *testing.T) {
	tr, err := NewTransport(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, tr.WriteSheet(ctx, "catalog", "LayoutIDs!A1", [][]string{
		{"h1", "h2", "h3"},
		{"a", "b", "c"},
	}))

	rows, err := tr.ReadSheet(ctx, "catalog", "LayoutIDs!B2:Z")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"b", "c"}}, rows)
}

func TestTransport_MissingTabIsEmpty(t *testing.T) {
	tr, err := NewTransport(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, tr.WriteSheet(ctx, "catalog", "DuAn!A1", [][]string{{"x"}}))

	rows, err := tr.ReadSheet(ctx, "catalog", "LayoutIDs!A1:Z")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestTransport_Errors(t *testing.T) {
	dir := t.TempDir()
	tr, err := NewTransport(dir)
	require.NoError(t, err)

	_, err = tr.ReadSheet(context.Background(), "missing", "DuAn!A1:Z")
	var te *domain.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "read", te.Op)

	err = tr.WriteSheet(context.Background(), "catalog", "A1", [][]string{{"x"}})
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "write", te.Op)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = tr.WriteSheet(ctx, "catalog", "DuAn!A1", [][]string{{"x"}})
	require.True(t, errors.As(err, &te))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTransport_SheetIDCannotEscapeDir(t *testing.T) {
	dir := t.TempDir()
	tr, err := NewTransport(dir)
	require.NoError(t, err)

	require.NoError(t, tr.WriteSheet(context.Background(), "../escape", "DuAn!A1", [][]string{{"x"}}))

	f, err := excelize.OpenFile(filepath.Join(dir, "escape.xlsx"))
	require.NoError(t, err)
	defer f.Close()
	v, err := f.GetCellValue("DuAn", "A1")
	require.NoError(t, err)
	assert.Equal(t, "x", v)
}

func TestNewTransport_RequiresDir(t *testing.T) {
	_, err := NewTransport("")
	assert.Error(t, err)
}
