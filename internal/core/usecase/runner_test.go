package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	memory_adapter "interior-sync-service/internal/adapters/memory"
	"interior-sync-service/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncRunner_SerializesSameSheetAndDirection(t *testing.T) {
	env := newTestEnv(RunnerConfig{})
	var active, maxActive atomic.Int32

	body := func(ctx context.Context, run *syncRun) error {
		n := active.Add(1)
		for {
			m := maxActive.Load()
			if n <= m || maxActive.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		active.Add(-1)
		return nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			entry, err := env.runner.Run(context.Background(), testSheetID, domain.DirectionPull, false, body)
			assert.NoError(t, err)
			assert.Equal(t, domain.SyncStatusSuccess, entry.Status)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxActive.Load())
	page, err := env.logs.List(context.Background(), domain.SyncLogFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
}

func TestSyncRunner_DifferentSheetsRunConcurrently(t *testing.T) {
	env := newTestEnv(RunnerConfig{})
	entered := make(chan struct{}, 2)
	both := make(chan struct{})
	var once sync.Once

	body := func(ctx context.Context, run *syncRun) error {
		entered <- struct{}{}
		if len(entered) == 2 {
			once.Do(func() { close(both) })
		}
		select {
		case <-both:
			return nil
		case <-time.After(2 * time.Second):
			return errors.New("runs were serialized")
		}
	}

	var wg sync.WaitGroup
	for _, sheet := range []string{"sheet-a", "sheet-b"} {
		wg.Add(1)
		go func(sheet string) {
			defer wg.Done()
			_, err := env.runner.Run(context.Background(), sheet, domain.DirectionPush, false, body)
			assert.NoError(t, err)
		}(sheet)
	}
	wg.Wait()
}

func TestSyncRunner_RowFailuresAreIsolated(t *testing.T) {
	env := newTestEnv(RunnerConfig{Workers: 3})

	entry, err := env.runner.Run(context.Background(), testSheetID, domain.DirectionPull, false, func(ctx context.Context, run *syncRun) error {
		tasks := make([]rowTask, 0, 6)
		for i := 1; i <= 6; i++ {
			i := i
			tasks = append(tasks, rowTask{tab: domain.TabDuAn, rowIndex: i, run: func(ctx context.Context) domain.RowOutcome {
				if i%3 == 0 {
					return domain.Failed(domain.TabDuAn, i, &domain.PersistenceError{RowIndex: i, Err: errors.New("unique violation")})
				}
				return domain.Succeeded(domain.TabDuAn, i)
			}})
		}
		return run.process(ctx, tasks)
	})
	require.NoError(t, err)

	assert.Equal(t, domain.SyncStatusPartial, entry.Status)
	assert.Equal(t, 6, entry.RowsTotal)
	assert.Equal(t, 4, entry.RowsSucceeded)
	assert.Equal(t, 2, entry.RowsFailed)
	require.Len(t, entry.Errors, 2)
	assert.Equal(t, 3, entry.Errors[0].RowIndex)
	assert.Equal(t, 6, entry.Errors[1].RowIndex)
	assert.Equal(t, domain.SyncErrorPersistence, entry.Errors[0].Kind)
}

func TestSyncRunner_RunTimeoutStillFinalizes(t *testing.T) {
	env := newTestEnv(RunnerConfig{RunTimeout: 30 * time.Millisecond})

	entry, err := env.runner.Run(context.Background(), testSheetID, domain.DirectionPull, false, func(ctx context.Context, run *syncRun) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	require.NotNil(t, entry)
	assert.Equal(t, domain.SyncStatusFailed, entry.Status)
	require.Len(t, entry.Errors, 1)
	assert.Equal(t, domain.SyncErrorAborted, entry.Errors[0].Kind)

	stored, err := env.logs.FindByID(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.True(t, stored.Status.IsTerminal())
}

func TestSyncRunner_RowTimeout(t *testing.T) {
	env := newTestEnv(RunnerConfig{RowTimeout: 20 * time.Millisecond})

	entry, err := env.runner.Run(context.Background(), testSheetID, domain.DirectionPull, false, func(ctx context.Context, run *syncRun) error {
		return run.process(ctx, []rowTask{
			{tab: domain.TabDuAn, rowIndex: 2, run: func(ctx context.Context) domain.RowOutcome {
				<-ctx.Done()
				return domain.Failed(domain.TabDuAn, 2, &domain.PersistenceError{RowIndex: 2, Err: ctx.Err()})
			}},
			{tab: domain.TabDuAn, rowIndex: 3, run: func(ctx context.Context) domain.RowOutcome {
				return domain.Succeeded(domain.TabDuAn, 3)
			}},
		})
	})
	require.NoError(t, err)
	assert.Equal(t, domain.SyncStatusPartial, entry.Status)
	assert.Equal(t, 1, entry.RowsFailed)
}

func TestSyncRunner_AppendFailure(t *testing.T) {
	reporter := &recordingReporter{}
	runner := NewSyncRunner(failingLogs{memory_adapter.NewSyncLogRepository()}, reporter, nil, RunnerConfig{})

	called := false
	entry, err := runner.Run(context.Background(), testSheetID, domain.DirectionPull, false, func(ctx context.Context, run *syncRun) error {
		called = true
		return nil
	})

	require.Error(t, err)
	assert.Nil(t, entry)
	assert.False(t, called)
	assert.Empty(t, reporter.reported())
}

func TestSyncRunner_ReporterErrorDoesNotFailRun(t *testing.T) {
	env := newTestEnv(RunnerConfig{})
	env.reporter.err = errors.New("broker unavailable")

	entry, err := env.runner.Run(context.Background(), testSheetID, domain.DirectionPush, false, func(ctx context.Context, run *syncRun) error {
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, domain.SyncStatusSuccess, entry.Status)
	assert.Len(t, env.reporter.reported(), 1)
}

func TestSyncRunner_LogIsRunningWhileWaitingForLock(t *testing.T) {
	env := newTestEnv(RunnerConfig{})
	release, err := env.runner.lock.Acquire(context.Background(), testSheetID, domain.DirectionPull)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan *domain.SyncLogEntry)
	go func() {
		entry, _ := env.runner.Run(ctx, testSheetID, domain.DirectionPull, false, func(ctx context.Context, run *syncRun) error {
			return nil
		})
		done <- entry
	}()

	require.Eventually(t, func() bool {
		page, err := env.logs.List(context.Background(), domain.SyncLogFilter{})
		return err == nil && page.Total == 1 && page.Items[0].Status == domain.SyncStatusRunning
	}, time.Second, 5*time.Millisecond)

	cancel()
	entry := <-done
	release()

	require.NotNil(t, entry)
	assert.Equal(t, domain.SyncStatusFailed, entry.Status)
	assert.Equal(t, domain.SyncErrorAborted, entry.Errors[0].Kind)
}

func TestGetAndListSyncLogs(t *testing.T) {
	env := newTestEnv(RunnerConfig{})
	ctx := context.Background()
	seedSheet(env)

	pulled, err := env.pull.Execute(ctx, testSheetID)
	require.NoError(t, err)
	_, err = env.push.Execute(ctx, testSheetID)
	require.NoError(t, err)

	got, err := NewGetSyncLogUseCase(env.logs).Execute(ctx, pulled.Log.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DirectionPull, got.Direction)

	_, err = NewGetSyncLogUseCase(env.logs).Execute(ctx, domain.NewSyncLogEntry("x", domain.DirectionPull, false).ID)
	assert.ErrorIs(t, err, domain.ErrSyncLogNotFound)

	push := domain.DirectionPush
	page, err := NewListSyncLogsUseCase(env.logs).Execute(ctx, domain.SyncLogFilter{Direction: &push})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, domain.DefaultSyncLogLimit, page.Limit)

	all, err := NewListSyncLogsUseCase(env.logs).Execute(ctx, domain.SyncLogFilter{SheetID: testSheetID})
	require.NoError(t, err)
	assert.Len(t, all.Items, 2)
}
