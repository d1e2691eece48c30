package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	memory_adapter "interior-sync-service/internal/adapters/memory"
	"interior-sync-service/internal/core/domain"
)

const testSheetID = "sheet-1"

// fakeSheet - таблица в памяти с теми же диапазонами, что шлют use case'ы
type fakeSheet struct {
	mu       sync.Mutex
	tabs     map[string][][]string
	writes   []string
	readErr  map[string]error
	writeErr error
}

func newFakeSheet() *fakeSheet {
	return &fakeSheet{tabs: make(map[string][][]string), readErr: make(map[string]error)}
}

func (f *fakeSheet) set(tab string, rows ...[]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tabs[tab] = rows
}

func (f *fakeSheet) rows(tab string) [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]string, len(f.tabs[tab]))
	for i, r := range f.tabs[tab] {
		out[i] = append([]string(nil), r...)
	}
	return out
}

func (f *fakeSheet) writtenRanges() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.writes...)
}

func (f *fakeSheet) ReadSheet(_ context.Context, sheetID, rng string) ([][]string, error) {
	tab, _, _ := strings.Cut(rng, "!")
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.readErr[tab]; err != nil {
		return nil, &domain.TransportError{Op: "read", SheetID: sheetID, Range: rng, Err: err}
	}
	out := make([][]string, len(f.tabs[tab]))
	for i, r := range f.tabs[tab] {
		out[i] = append([]string(nil), r...)
	}
	return out, nil
}

func (f *fakeSheet) WriteSheet(_ context.Context, sheetID, rng string, rows [][]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return &domain.TransportError{Op: "write", SheetID: sheetID, Range: rng, Err: f.writeErr}
	}
	tab, cell, _ := strings.Cut(rng, "!")
	rowIndex, err := strconv.Atoi(strings.TrimPrefix(cell, "A"))
	if err != nil {
		return fmt.Errorf("bad range %q", rng)
	}
	for len(f.tabs[tab]) < rowIndex-1+len(rows) {
		f.tabs[tab] = append(f.tabs[tab], nil)
	}
	for i, r := range rows {
		f.tabs[tab][rowIndex-1+i] = append([]string(nil), r...)
	}
	f.writes = append(f.writes, rng)
	return nil
}

// recordingReporter запоминает все отправленные события
type recordingReporter struct {
	mu      sync.Mutex
	entries []domain.SyncLogEntry
	err     error
}

func (r *recordingReporter) ReportCompleted(_ context.Context, entry *domain.SyncLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return r.err
}

func (r *recordingReporter) reported() []domain.SyncLogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.SyncLogEntry(nil), r.entries...)
}

type testEnv struct {
	sheet    *fakeSheet
	repo     *memory_adapter.InteriorRepository
	logs     *memory_adapter.SyncLogRepository
	reporter *recordingReporter
	runner   *SyncRunner

	pull    *PullFromSheetUseCase
	push    *PushToSheetUseCase
	preview *PreviewSyncUseCase
}

func newTestEnv(cfg RunnerConfig) *testEnv {
	env := &testEnv{
		sheet:    newFakeSheet(),
		repo:     memory_adapter.NewInteriorRepository(),
		logs:     memory_adapter.NewSyncLogRepository(),
		reporter: &recordingReporter{},
	}
	env.runner = NewSyncRunner(env.logs, env.reporter, NewRunLock(), cfg)
	env.pull = NewPullFromSheetUseCase(env.runner, env.sheet, env.repo)
	env.push = NewPushToSheetUseCase(env.runner, env.sheet, env.repo)
	env.preview = NewPreviewSyncUseCase(env.runner, env.sheet, env.repo)
	return env
}

// failingLogs - журнал, который не принимает новые записи
type failingLogs struct {
	*memory_adapter.SyncLogRepository
}

func (failingLogs) Append(context.Context, *domain.SyncLogEntry) error {
	return errors.New("connection refused")
}

func errorKinds(errs []domain.SyncError) []domain.SyncErrorKind {
	kinds := make([]domain.SyncErrorKind, 0, len(errs))
	for _, e := range errs {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}
