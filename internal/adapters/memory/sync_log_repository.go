package memory_adapter

import (
	"context"
	"sort"
	"sync"

	"interior-sync-service/internal/core/domain"

	"github.com/google/uuid"
)

// SyncLogRepository - журнал прогонов в памяти
type SyncLogRepository struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*domain.SyncLogEntry
}

func NewSyncLogRepository() *SyncLogRepository {
	return &SyncLogRepository{entries: make(map[uuid.UUID]*domain.SyncLogEntry)}
}

func cloneEntry(e *domain.SyncLogEntry) domain.SyncLogEntry {
	out := *e
	out.Errors = append([]domain.SyncError{}, e.Errors...)
	if e.CompletedAt != nil {
		t := *e.CompletedAt
		out.CompletedAt = &t
	}
	return out
}

func (r *SyncLogRepository) Append(_ context.Context, entry *domain.SyncLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[entry.ID]; exists {
		return &duplicateKeyError{what: "sync log entry", key: entry.ID.String()}
	}
	stored := cloneEntry(entry)
	r.entries[entry.ID] = &stored
	return nil
}

func (r *SyncLogRepository) Update(_ context.Context, id uuid.UUID, patch domain.SyncLogPatch) (*domain.SyncLogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.entries[id]
	if !ok {
		return nil, domain.ErrSyncLogNotFound
	}
	next := cloneEntry(stored)
	if err := next.Apply(patch); err != nil {
		return nil, err
	}
	r.entries[id] = &next

	out := cloneEntry(&next)
	return &out, nil
}

func (r *SyncLogRepository) FindByID(_ context.Context, id uuid.UUID) (*domain.SyncLogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.entries[id]
	if !ok {
		return nil, domain.ErrSyncLogNotFound
	}
	out := cloneEntry(stored)
	return &out, nil
}

func (r *SyncLogRepository) List(_ context.Context, filter domain.SyncLogFilter) (*domain.SyncLogPage, error) {
	filter = filter.Normalize()

	r.mu.Lock()
	matched := make([]domain.SyncLogEntry, 0, len(r.entries))
	for _, e := range r.entries {
		if filter.SheetID != "" && e.SheetID != filter.SheetID {
			continue
		}
		if filter.Direction != nil && e.Direction != *filter.Direction {
			continue
		}
		if filter.Status != nil && e.Status != *filter.Status {
			continue
		}
		matched = append(matched, cloneEntry(e))
	}
	r.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].StartedAt.Equal(matched[j].StartedAt) {
			return matched[i].StartedAt.After(matched[j].StartedAt)
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})

	page := &domain.SyncLogPage{Items: []domain.SyncLogEntry{}, Total: int64(len(matched)), Limit: filter.Limit, Offset: filter.Offset}
	if filter.Offset < len(matched) {
		end := filter.Offset + filter.Limit
		if end > len(matched) {
			end = len(matched)
		}
		page.Items = append(page.Items, matched[filter.Offset:end]...)
	}
	return page, nil
}
