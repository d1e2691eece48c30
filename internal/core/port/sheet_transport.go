package port

import "context"

// SheetTransportPort - сырое чтение/запись строк таблицы.
// Строки из ReadSheet начинаются с первой строки диапазона rng (например "DuAn!A1:Z").
// Любую ошибку адаптер оборачивает в domain.TransportError.
type SheetTransportPort interface {
	ReadSheet(ctx context.Context, sheetID, rng string) ([][]string, error)
	WriteSheet(ctx context.Context, sheetID, rng string, rows [][]string) error
}
