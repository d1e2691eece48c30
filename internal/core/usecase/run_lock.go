package usecase

import (
	"context"
	"fmt"
	"sync"

	"interior-sync-service/internal/core/domain"

	"golang.org/x/sync/semaphore"
)

// RunLock сериализует прогоны по ключу (sheetID, direction).
// Разные таблицы и встречные направления идут параллельно.
type RunLock struct {
	mu   sync.Mutex
	sems map[string]*semaphore.Weighted
}

func NewRunLock() *RunLock {
	return &RunLock{sems: make(map[string]*semaphore.Weighted)}
}

func runLockKey(sheetID string, direction domain.SyncDirection) string {
	return fmt.Sprintf("%s:%s", direction, sheetID)
}

// Acquire ждет своей очереди или отмены ctx. release обязательно вызвать.
func (l *RunLock) Acquire(ctx context.Context, sheetID string, direction domain.SyncDirection) (func(), error) {
	key := runLockKey(sheetID, direction)

	l.mu.Lock()
	sem, ok := l.sems[key]
	if !ok {
		sem = semaphore.NewWeighted(1)
		l.sems[key] = sem
	}
	l.mu.Unlock()

	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("waiting for %s run on sheet %s: %w", direction, sheetID, err)
	}
	return func() { sem.Release(1) }, nil
}
