package domain

import (
	"errors"
	"fmt"
)

type SyncErrorKind string

const (
	SyncErrorParse       SyncErrorKind = "parse"
	SyncErrorMapping     SyncErrorKind = "mapping"
	SyncErrorTransport   SyncErrorKind = "transport"
	SyncErrorPersistence SyncErrorKind = "persistence"
	SyncErrorConflict    SyncErrorKind = "conflict"
	SyncErrorAborted     SyncErrorKind = "aborted"
)

type SyncErrorSeverity string

const (
	SeverityError   SyncErrorSeverity = "error"
	SeverityWarning SyncErrorSeverity = "warning"
)

// SyncError - запись об ошибке в журнале синхронизации, привязана к одной строке.
// RowIndex == 0 - ошибка всего прогона (таблица недоступна, таймаут).
type SyncError struct {
	Tab      string            `json:"tab,omitempty"`
	RowIndex int               `json:"row_index"`
	Column   string            `json:"column,omitempty"`
	Message  string            `json:"message"`
	Kind     SyncErrorKind     `json:"kind"`
	Severity SyncErrorSeverity `json:"severity"`
}

// SyncError сам по себе тоже error - так парсер отдает ошибки строк оркестратору
func (e SyncError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("row %d: column %q: %s", e.RowIndex, e.Column, e.Message)
	}
	return fmt.Sprintf("row %d: %s", e.RowIndex, e.Message)
}

// ParseError - битое или отсутствующее обязательное значение ячейки
type ParseError struct {
	RowIndex int
	Column   string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("row %d: column %q: %v", e.RowIndex, e.Column, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// MappingError - метка типа квартиры не найдена в таблице алиасов
type MappingError struct {
	RowIndex int
	Column   string
	Label    string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("row %d: unknown apartment type %q", e.RowIndex, e.Label)
}

// TransportError - таблица недоступна или упёрлись в лимит. Прерывает весь прогон.
type TransportError struct {
	Op          string
	SheetID     string
	Range       string
	RowIndex    int
	RateLimited bool
	Err         error
}

func (e *TransportError) Error() string {
	msg := fmt.Sprintf("sheet transport %s %s (%s)", e.Op, e.SheetID, e.Range)
	if e.RateLimited {
		msg += " rate limited"
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// PersistenceError - не удалось записать строку в БД
type PersistenceError struct {
	RowIndex int
	Err      error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("row %d: persistence: %v", e.RowIndex, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ConflictError - строку нельзя перезаписать без ручной проверки.
// Reason пустой - обе стороны изменились с последней синхронизации.
type ConflictError struct {
	RowIndex int
	Key      string
	Reason   string
}

func (e *ConflictError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("row %d: %s: %s", e.RowIndex, e.Key, e.Reason)
	}
	return fmt.Sprintf("row %d: %s changed on both sides since last sync", e.RowIndex, e.Key)
}

// IsTransportError - ошибка уровня всей операции?
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// AsSyncError переводит ошибку строки в запись журнала
func AsSyncError(rowIndex int, err error) SyncError {
	var syncErr SyncError
	if errors.As(err, &syncErr) {
		return syncErr
	}

	var (
		parseErr       *ParseError
		mappingErr     *MappingError
		transportErr   *TransportError
		persistenceErr *PersistenceError
		conflictErr    *ConflictError
	)

	switch {
	case errors.As(err, &parseErr):
		return SyncError{RowIndex: parseErr.RowIndex, Column: parseErr.Column, Message: parseErr.Err.Error(), Kind: SyncErrorParse, Severity: SeverityError}
	case errors.As(err, &mappingErr):
		return SyncError{RowIndex: mappingErr.RowIndex, Column: mappingErr.Column, Message: mappingErr.Error(), Kind: SyncErrorMapping, Severity: SeverityWarning}
	case errors.As(err, &conflictErr):
		return SyncError{RowIndex: conflictErr.RowIndex, Message: conflictErr.Error(), Kind: SyncErrorConflict, Severity: SeverityWarning}
	case errors.As(err, &persistenceErr):
		return SyncError{RowIndex: persistenceErr.RowIndex, Message: persistenceErr.Err.Error(), Kind: SyncErrorPersistence, Severity: SeverityError}
	case errors.As(err, &transportErr):
		return SyncError{RowIndex: rowIndex, Message: transportErr.Error(), Kind: SyncErrorTransport, Severity: SeverityError}
	case errors.Is(err, ErrRowAborted):
		return SyncError{RowIndex: rowIndex, Message: err.Error(), Kind: SyncErrorAborted, Severity: SeverityError}
	default:
		return SyncError{RowIndex: rowIndex, Message: err.Error(), Kind: SyncErrorPersistence, Severity: SeverityError}
	}
}

// ErrRowAborted - строка не обработана, потому что прогон прервался
var ErrRowAborted = errors.New("row not processed: run aborted")
