package memory_adapter

import (
	"context"
	"sort"
	"sync"
	"time"

	"interior-sync-service/internal/core/domain"

	"github.com/google/uuid"
)

// InteriorRepository - хранилище проектов и планировок в памяти (STORAGE_DRIVER=memory и тесты)
type InteriorRepository struct {
	mu       sync.RWMutex
	projects map[uuid.UUID]domain.Project
	layouts  map[uuid.UUID]domain.Layout
	byName   map[string]uuid.UUID
	bySlug   map[string]uuid.UUID
	byKey    map[string]uuid.UUID
}

func NewInteriorRepository() *InteriorRepository {
	return &InteriorRepository{
		projects: make(map[uuid.UUID]domain.Project),
		layouts:  make(map[uuid.UUID]domain.Layout),
		byName:   make(map[string]uuid.UUID),
		bySlug:   make(map[string]uuid.UUID),
		byKey:    make(map[string]uuid.UUID),
	}
}

func cloneProject(p domain.Project) domain.Project {
	if p.Extra != nil {
		extra := make(map[string]string, len(p.Extra))
		for k, v := range p.Extra {
			extra[k] = v
		}
		p.Extra = extra
	}
	return p
}

func cloneLayout(l domain.Layout) domain.Layout {
	if l.ImageIDs != nil {
		l.ImageIDs = append([]string(nil), l.ImageIDs...)
	}
	if l.Price != nil {
		price := *l.Price
		l.Price = &price
	}
	return l
}

func (r *InteriorRepository) FindProjectByName(_ context.Context, name string) (*domain.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byName[domain.ProjectNameKey(name)]
	if !ok {
		return nil, domain.ErrProjectNotFound
	}
	p := cloneProject(r.projects[id])
	return &p, nil
}

func (r *InteriorRepository) FindProjectBySlug(_ context.Context, slug string) (*domain.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.bySlug[slug]
	if !ok {
		return nil, domain.ErrProjectNotFound
	}
	p := cloneProject(r.projects[id])
	return &p, nil
}

func (r *InteriorRepository) UpsertProject(_ context.Context, project *domain.Project) (*domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	saved := cloneProject(*project)
	saved.UpdatedAt = time.Now().UTC()

	nameKey := domain.ProjectNameKey(project.Name)
	if id, ok := r.byName[nameKey]; ok {
		existing := r.projects[id]
		saved.ID, saved.Slug = existing.ID, existing.Slug
	} else {
		if saved.ID == uuid.Nil {
			saved.ID = uuid.New()
		}
		if _, taken := r.bySlug[saved.Slug]; taken {
			return nil, &duplicateKeyError{what: "project slug", key: saved.Slug}
		}
		r.byName[nameKey] = saved.ID
		r.bySlug[saved.Slug] = saved.ID
	}
	r.projects[saved.ID] = saved

	// у планировок имя проекта денормализовано
	for id, l := range r.layouts {
		if l.ProjectID == saved.ID {
			l.ProjectName = saved.Name
			r.layouts[id] = l
		}
	}

	out := cloneProject(saved)
	return &out, nil
}

func (r *InteriorRepository) ListProjects(_ context.Context) ([]domain.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	projects := make([]domain.Project, 0, len(r.projects))
	for _, p := range r.projects {
		projects = append(projects, cloneProject(p))
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].Name < projects[j].Name })
	return projects, nil
}

func (r *InteriorRepository) MarkProjectSynced(_ context.Context, projectID uuid.UUID, syncHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.projects[projectID]
	if !ok {
		return domain.ErrProjectNotFound
	}
	p.SyncHash = syncHash
	r.projects[projectID] = p
	return nil
}

func (r *InteriorRepository) FindLayoutByKey(_ context.Context, key string) (*domain.Layout, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byKey[key]
	if !ok {
		return nil, domain.ErrLayoutNotFound
	}
	l := cloneLayout(r.layouts[id])
	return &l, nil
}

func (r *InteriorRepository) UpsertLayout(_ context.Context, layout *domain.Layout) (*domain.Layout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	project, ok := r.projects[layout.ProjectID]
	if !ok {
		return nil, domain.ErrProjectNotFound
	}

	saved := cloneLayout(*layout)
	saved.ProjectSlug, saved.ProjectName = project.Slug, project.Name
	saved.UpdatedAt = time.Now().UTC()

	key := saved.Key()
	if id, ok := r.byKey[key]; ok {
		saved.ID = id
	} else if saved.ID == uuid.Nil {
		saved.ID = uuid.New()
	}
	r.layouts[saved.ID] = saved
	r.byKey[key] = saved.ID

	out := cloneLayout(saved)
	return &out, nil
}

func (r *InteriorRepository) ListLayouts(_ context.Context) ([]domain.Layout, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	layouts := make([]domain.Layout, 0, len(r.layouts))
	for _, l := range r.layouts {
		layouts = append(layouts, cloneLayout(l))
	}
	sort.Slice(layouts, func(i, j int) bool { return layouts[i].Key() < layouts[j].Key() })
	return layouts, nil
}

func (r *InteriorRepository) MarkLayoutSynced(_ context.Context, layoutID uuid.UUID, syncHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.layouts[layoutID]
	if !ok {
		return domain.ErrLayoutNotFound
	}
	l.SyncHash = syncHash
	r.layouts[layoutID] = l
	return nil
}

type duplicateKeyError struct {
	what string
	key  string
}

func (e *duplicateKeyError) Error() string {
	return "duplicate " + e.what + ": " + e.key
}
