package xlsxsheet

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"interior-sync-service/internal/contextkeys"
	"interior-sync-service/internal/core/domain"
	"interior-sync-service/internal/core/port"

	"github.com/xuri/excelize/v2"
)

// Transport - локальные .xlsx вместо Google Sheets: sheetID = имя файла в dir.
// Все обращения к файлам сериализованы.
type Transport struct {
	dir string
	mu  sync.Mutex
}

func NewTransport(dir string) (*Transport, error) {
	if dir == "" {
		return nil, fmt.Errorf("xlsx directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create xlsx directory %s: %w", dir, err)
	}
	return &Transport{dir: dir}, nil
}

func (t *Transport) path(sheetID string) string {
	return filepath.Join(t.dir, filepath.Base(sheetID)+".xlsx")
}

// splitRange: "DuAn!A1:Z" -> "DuAn", колонка 1, строка 1
func splitRange(rng string) (tab string, col, row int, err error) {
	tab, cells, found := strings.Cut(rng, "!")
	if !found || tab == "" {
		return "", 0, 0, fmt.Errorf("range %q has no tab name", rng)
	}
	start, _, _ := strings.Cut(cells, ":")
	if start == "" {
		start = "A1"
	}
	col, row, err = excelize.CellNameToCoordinates(start)
	if err != nil {
		return "", 0, 0, fmt.Errorf("range %q: %w", rng, err)
	}
	return tab, col, row, nil
}

func transportError(op, sheetID, rng string, err error) error {
	return &domain.TransportError{Op: op, SheetID: sheetID, Range: rng, Err: err}
}

func (t *Transport) ReadSheet(ctx context.Context, sheetID, rng string) ([][]string, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{"component": "XlsxTransport", "sheet_id": sheetID, "range": rng})

	if err := ctx.Err(); err != nil {
		return nil, transportError("read", sheetID, rng, err)
	}
	tab, col, row, err := splitRange(rng)
	if err != nil {
		return nil, transportError("read", sheetID, rng, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	f, err := excelize.OpenFile(t.path(sheetID))
	if err != nil {
		logger.Error("Failed to open workbook", err, nil)
		return nil, transportError("read", sheetID, rng, err)
	}
	defer f.Close()

	if idx, _ := f.GetSheetIndex(tab); idx < 0 {
		// вкладки еще нет - для нас это пустой лист
		logger.Debug("Tab does not exist, treating as empty", nil)
		return [][]string{}, nil
	}

	rows, err := f.GetRows(tab)
	if err != nil {
		logger.Error("Failed to read rows", err, nil)
		return nil, transportError("read", sheetID, rng, err)
	}

	if row-1 >= len(rows) {
		return [][]string{}, nil
	}
	out := make([][]string, 0, len(rows)-(row-1))
	for _, cells := range rows[row-1:] {
		if col-1 < len(cells) {
			out = append(out, cells[col-1:])
		} else {
			out = append(out, []string{})
		}
	}
	logger.Debug("Rows read", port.Fields{"count": len(out)})
	return out, nil
}

func (t *Transport) WriteSheet(ctx context.Context, sheetID, rng string, rows [][]string) error {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{"component": "XlsxTransport", "sheet_id": sheetID, "range": rng})

	if err := ctx.Err(); err != nil {
		return transportError("write", sheetID, rng, err)
	}
	tab, col, row, err := splitRange(rng)
	if err != nil {
		return transportError("write", sheetID, rng, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	path := t.path(sheetID)
	f, err := excelize.OpenFile(path)
	if errors.Is(err, os.ErrNotExist) {
		f = excelize.NewFile()
		err = nil
	}
	if err != nil {
		logger.Error("Failed to open workbook", err, nil)
		return transportError("write", sheetID, rng, err)
	}
	defer f.Close()

	if idx, _ := f.GetSheetIndex(tab); idx < 0 {
		if _, err := f.NewSheet(tab); err != nil {
			return transportError("write", sheetID, rng, err)
		}
	}

	for i, cells := range rows {
		cell, err := excelize.CoordinatesToCellName(col, row+i)
		if err != nil {
			return transportError("write", sheetID, rng, err)
		}
		values := make([]interface{}, len(cells))
		for j, v := range cells {
			values[j] = v
		}
		if err := f.SetSheetRow(tab, cell, &values); err != nil {
			logger.Error("Failed to set row", err, port.Fields{"cell": cell})
			return transportError("write", sheetID, rng, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		logger.Error("Failed to save workbook", err, nil)
		return transportError("write", sheetID, rng, err)
	}
	logger.Debug("Rows written", port.Fields{"count": len(rows)})
	return nil
}
