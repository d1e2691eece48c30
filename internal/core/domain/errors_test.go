package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAsSyncError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind SyncErrorKind
		wantRow  int
	}{
		{"parse", &ParseError{RowIndex: 4, Column: "Diện tích", Err: errors.New("not a number")}, SyncErrorParse, 4},
		{"mapping", &MappingError{RowIndex: 5, Label: "apartment"}, SyncErrorMapping, 5},
		{"conflict", &ConflictError{RowIndex: 6, Key: "vgp/a-01"}, SyncErrorConflict, 6},
		{"persistence wrapped", fmt.Errorf("upsert: %w", &PersistenceError{RowIndex: 7, Err: errors.New("dup")}), SyncErrorPersistence, 7},
		{"transport uses given row", &TransportError{Op: "write", Err: errors.New("429")}, SyncErrorTransport, 9},
		{"aborted", fmt.Errorf("row 9: %w", ErrRowAborted), SyncErrorAborted, 9},
		{"unknown", errors.New("boom"), SyncErrorPersistence, 9},
		{"already converted", SyncError{RowIndex: 2, Kind: SyncErrorMapping, Severity: SeverityWarning}, SyncErrorMapping, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AsSyncError(9, tt.err)
			assert.Equal(t, tt.wantKind, got.Kind)
			assert.Equal(t, tt.wantRow, got.RowIndex)
			assert.NotEmpty(t, got.Severity)
		})
	}
}

func TestIsTransportError(t *testing.T) {
	assert.True(t, IsTransportError(fmt.Errorf("read: %w", &TransportError{Err: errors.New("x")})))
	assert.False(t, IsTransportError(&PersistenceError{Err: errors.New("x")}))

	te := &TransportError{Op: "read", SheetID: "s", Range: "DuAn!A1:Z", RateLimited: true, Err: errors.New("quota")}
	assert.Contains(t, te.Error(), "rate limited")
	assert.ErrorContains(t, te, "quota")
}
