package googlesheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"interior-sync-service/internal/contextkeys"
	"interior-sync-service/internal/core/domain"
	"interior-sync-service/internal/core/port"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Transport - Google Sheets API v4 от имени сервисного аккаунта.
// Ретраев и бэкоффа здесь нет: 429 отдается наверх как TransportError с RateLimited.
type Transport struct {
	values *sheets.SpreadsheetsValuesService
}

func NewTransport(ctx context.Context, credentialsFile string) (*Transport, error) {
	if credentialsFile == "" {
		return nil, fmt.Errorf("GOOGLE_CREDENTIALS_FILE is required for the google sheet transport")
	}
	return newTransport(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
}

func newTransport(ctx context.Context, opts ...option.ClientOption) (*Transport, error) {
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return &Transport{values: svc.Spreadsheets.Values}, nil
}

func transportError(op, sheetID, rng string, err error) error {
	te := &domain.TransportError{Op: op, SheetID: sheetID, Range: rng, Err: err}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
		te.RateLimited = true
	}
	return te
}

func (t *Transport) ReadSheet(ctx context.Context, sheetID, rng string) ([][]string, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{"component": "GoogleSheetsTransport", "sheet_id": sheetID, "range": rng})

	resp, err := t.values.Get(sheetID, rng).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		logger.Error("Failed to read range", err, nil)
		return nil, transportError("read", sheetID, rng, err)
	}

	out := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = fmt.Sprint(v)
		}
		out[i] = cells
	}
	logger.Debug("Rows read", port.Fields{"count": len(out)})
	return out, nil
}

func (t *Transport) WriteSheet(ctx context.Context, sheetID, rng string, rows [][]string) error {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{"component": "GoogleSheetsTransport", "sheet_id": sheetID, "range": rng})

	values := make([][]interface{}, len(rows))
	for i, row := range rows {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		values[i] = cells
	}

	_, err := t.values.Update(sheetID, rng, &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		logger.Error("Failed to write range", err, nil)
		return transportError("write", sheetID, rng, err)
	}
	logger.Debug("Rows written", port.Fields{"count": len(rows)})
	return nil
}
