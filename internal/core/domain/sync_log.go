package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrSyncLogNotFound  = errors.New("sync log entry not found")
	ErrSyncLogFinalized = errors.New("sync log entry is already finalized")
	ErrSyncLogInvariant = errors.New("sync log counters do not add up")

	ErrInvalidSyncRequest = errors.New("invalid sync request")
)

type SyncDirection string

const (
	DirectionPull SyncDirection = "PULL" // лист -> БД
	DirectionPush SyncDirection = "PUSH" // БД -> лист
)

func ParseSyncDirection(s string) (SyncDirection, error) {
	switch d := SyncDirection(strings.ToUpper(strings.TrimSpace(s))); d {
	case DirectionPull, DirectionPush:
		return d, nil
	}
	return "", fmt.Errorf("unknown sync direction %q", s)
}

// ValidateSyncRequest проверяет параметры прогона до создания записи журнала
func ValidateSyncRequest(sheetID string, direction SyncDirection) error {
	if strings.TrimSpace(sheetID) == "" {
		return fmt.Errorf("%w: sheet id is required", ErrInvalidSyncRequest)
	}
	if direction != DirectionPull && direction != DirectionPush {
		return fmt.Errorf("%w: unknown direction %q", ErrInvalidSyncRequest, direction)
	}
	return nil
}

type SyncLogStatus string

const (
	SyncStatusRunning SyncLogStatus = "RUNNING"
	SyncStatusSuccess SyncLogStatus = "SUCCESS"
	SyncStatusPartial SyncLogStatus = "PARTIAL"
	SyncStatusFailed  SyncLogStatus = "FAILED"
)

func ParseSyncLogStatus(s string) (SyncLogStatus, error) {
	switch st := SyncLogStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case SyncStatusRunning, SyncStatusSuccess, SyncStatusPartial, SyncStatusFailed:
		return st, nil
	}
	return "", fmt.Errorf("unknown sync status %q", s)
}

func (s SyncLogStatus) IsTerminal() bool {
	return s == SyncStatusSuccess || s == SyncStatusPartial || s == SyncStatusFailed
}

// SyncLogEntry - одна запись аудита на один прогон синхронизации
type SyncLogEntry struct {
	ID            uuid.UUID     `json:"id"`
	SheetID       string        `json:"sheet_id"`
	Direction     SyncDirection `json:"direction"`
	Preview       bool          `json:"preview"`
	Status        SyncLogStatus `json:"status"`
	StartedAt     time.Time     `json:"started_at"`
	CompletedAt   *time.Time    `json:"completed_at,omitempty"`
	RowsTotal     int           `json:"rows_total"`
	RowsSucceeded int           `json:"rows_succeeded"`
	RowsSkipped   int           `json:"rows_skipped"`
	RowsFailed    int           `json:"rows_failed"`
	Errors        []SyncError   `json:"errors"`
}

// NewSyncLogEntry создает запись в статусе RUNNING
func NewSyncLogEntry(sheetID string, direction SyncDirection, preview bool) *SyncLogEntry {
	return &SyncLogEntry{
		ID:        uuid.New(),
		SheetID:   sheetID,
		Direction: direction,
		Preview:   preview,
		Status:    SyncStatusRunning,
		StartedAt: time.Now().UTC(),
		Errors:    []SyncError{},
	}
}

// SyncLogPatch - частичное обновление записи, пока она RUNNING. nil = не трогать.
type SyncLogPatch struct {
	Status        *SyncLogStatus
	CompletedAt   *time.Time
	RowsTotal     *int
	RowsSucceeded *int
	RowsSkipped   *int
	RowsFailed    *int
	Errors        []SyncError
}

// Apply применяет патч. Терминальная запись больше не меняется.
func (e *SyncLogEntry) Apply(patch SyncLogPatch) error {
	if e.Status.IsTerminal() {
		return ErrSyncLogFinalized
	}

	next := *e
	if patch.Status != nil {
		next.Status = *patch.Status
	}
	if patch.CompletedAt != nil {
		t := patch.CompletedAt.UTC()
		next.CompletedAt = &t
	}
	if patch.RowsTotal != nil {
		next.RowsTotal = *patch.RowsTotal
	}
	if patch.RowsSucceeded != nil {
		next.RowsSucceeded = *patch.RowsSucceeded
	}
	if patch.RowsSkipped != nil {
		next.RowsSkipped = *patch.RowsSkipped
	}
	if patch.RowsFailed != nil {
		next.RowsFailed = *patch.RowsFailed
	}
	if patch.Errors != nil {
		next.Errors = append([]SyncError(nil), patch.Errors...)
	}

	if next.Status.IsTerminal() {
		if next.RowsTotal != next.RowsSucceeded+next.RowsSkipped+next.RowsFailed {
			return fmt.Errorf("%w: total=%d succeeded=%d skipped=%d failed=%d",
				ErrSyncLogInvariant, next.RowsTotal, next.RowsSucceeded, next.RowsSkipped, next.RowsFailed)
		}
		if next.CompletedAt == nil {
			now := time.Now().UTC()
			next.CompletedAt = &now
		}
	}

	*e = next
	return nil
}

// SyncLogFilter - фильтры для журнала (для админки)
type SyncLogFilter struct {
	SheetID   string
	Direction *SyncDirection
	Status    *SyncLogStatus
	Limit     int
	Offset    int
}

const (
	DefaultSyncLogLimit = 20
	MaxSyncLogLimit     = 200
)

// Normalize подставляет разумные значения пагинации
func (f SyncLogFilter) Normalize() SyncLogFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultSyncLogLimit
	}
	if f.Limit > MaxSyncLogLimit {
		f.Limit = MaxSyncLogLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

type SyncLogPage struct {
	Items  []SyncLogEntry `json:"items"`
	Total  int64          `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// RowOutcomeStatus - итог обработки одной строки
type RowOutcomeStatus int

const (
	RowSucceeded RowOutcomeStatus = iota
	RowSkipped
	RowFailed
)

// RowOutcome - тегированный результат строки: Succeeded | Skipped(reason) | Failed(err)
type RowOutcome struct {
	Tab      string
	RowIndex int
	Status   RowOutcomeStatus
	Err      error
}

func Succeeded(tab string, rowIndex int) RowOutcome {
	return RowOutcome{Tab: tab, RowIndex: rowIndex, Status: RowSucceeded}
}

func Skipped(tab string, rowIndex int, reason error) RowOutcome {
	return RowOutcome{Tab: tab, RowIndex: rowIndex, Status: RowSkipped, Err: reason}
}

func Failed(tab string, rowIndex int, err error) RowOutcome {
	return RowOutcome{Tab: tab, RowIndex: rowIndex, Status: RowFailed, Err: err}
}

// RunTally - агрегат по прогону
type RunTally struct {
	Total     int
	Succeeded int
	Skipped   int
	Failed    int
	Errors    []SyncError
}

// Tally собирает итоги строк. Ошибки сортируются по RowIndex, а не по порядку завершения.
func Tally(outcomes []RowOutcome) RunTally {
	t := RunTally{Total: len(outcomes), Errors: []SyncError{}}
	for _, o := range outcomes {
		switch o.Status {
		case RowSucceeded:
			t.Succeeded++
		case RowSkipped:
			t.Skipped++
		case RowFailed:
			t.Failed++
		}
		if o.Err != nil {
			se := AsSyncError(o.RowIndex, o.Err)
			if se.Tab == "" {
				se.Tab = o.Tab
			}
			t.Errors = append(t.Errors, se)
		}
	}
	SortSyncErrors(t.Errors)
	return t
}

// SortSyncErrors: по номеру строки, при равенстве - по вкладке
func SortSyncErrors(errs []SyncError) {
	sort.SliceStable(errs, func(i, j int) bool {
		if errs[i].RowIndex != errs[j].RowIndex {
			return errs[i].RowIndex < errs[j].RowIndex
		}
		return errs[i].Tab < errs[j].Tab
	})
}

// TerminalStatus: SUCCESS - ни одной проблемной строки; FAILED - прогон не смог
// продвинуться (ошибка операции или ни одной успешной строки); иначе PARTIAL.
func (t RunTally) TerminalStatus(operationFailed bool) SyncLogStatus {
	switch {
	case t.Succeeded == 0 && (operationFailed || t.Total > 0):
		return SyncStatusFailed
	case t.Failed+t.Skipped == 0 && !operationFailed:
		return SyncStatusSuccess
	default:
		return SyncStatusPartial
	}
}

// FinalPatch формирует патч финализации записи
func (t RunTally) FinalPatch(status SyncLogStatus, extra ...SyncError) SyncLogPatch {
	now := time.Now().UTC()
	errs := append(append([]SyncError{}, t.Errors...), extra...)
	SortSyncErrors(errs)
	return SyncLogPatch{
		Status:        &status,
		CompletedAt:   &now,
		RowsTotal:     &t.Total,
		RowsSucceeded: &t.Succeeded,
		RowsSkipped:   &t.Skipped,
		RowsFailed:    &t.Failed,
		Errors:        errs,
	}
}
