package usecase

import (
	"context"
	"fmt"

	"interior-sync-service/internal/core/domain"
	"interior-sync-service/internal/core/port"
)

// Все вкладки читаем целиком с первой строки, чтобы RowIndex совпадал с номером строки в таблице
func tabRange(tab string) string {
	return fmt.Sprintf("%s!A1:Z", tab)
}

// rowRange - левая верхняя ячейка строки для записи
func rowRange(tab string, rowIndex int) string {
	return fmt.Sprintf("%s!A%d", tab, rowIndex)
}

func readTab(ctx context.Context, transport port.SheetTransportPort, sheetID, tab string) ([]domain.SheetRow, error) {
	values, err := transport.ReadSheet(ctx, sheetID, tabRange(tab))
	if err != nil {
		return nil, asTransportError(err, "read", sheetID, tabRange(tab), 0)
	}
	return domain.RowsFromValues(values, 1), nil
}

func writeRow(ctx context.Context, transport port.SheetTransportPort, sheetID, tab string, rowIndex int, cells []string) error {
	rng := rowRange(tab, rowIndex)
	if err := transport.WriteSheet(ctx, sheetID, rng, [][]string{cells}); err != nil {
		return asTransportError(err, "write", sheetID, rng, rowIndex)
	}
	return nil
}

// asTransportError: адаптеры уже отдают TransportError, но контракт проверяем здесь
func asTransportError(err error, op, sheetID, rng string, rowIndex int) error {
	if domain.IsTransportError(err) {
		return err
	}
	return &domain.TransportError{Op: op, SheetID: sheetID, Range: rng, RowIndex: rowIndex, Err: err}
}

// lastUsedRow - номер последней непустой строки (0 для пустого листа)
func lastUsedRow(rows []domain.SheetRow) int {
	for i := len(rows) - 1; i >= 0; i-- {
		if !rows[i].IsBlank() {
			return rows[i].RowIndex
		}
	}
	return 0
}
