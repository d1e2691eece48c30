package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"interior-sync-service/internal/core/domain"
	"interior-sync-service/internal/core/port"
)

const maxSlugAttempts = 1000

// projectWriter - запись проектов по естественному ключу (имени).
// Создание новых проектов идет под мьютексом, иначе две строки могут получить один слаг.
type projectWriter struct {
	repo port.InteriorRepositoryPort
	mu   sync.Mutex
}

func newProjectWriter(repo port.InteriorRepositoryPort) *projectWriter {
	return &projectWriter{repo: repo}
}

func (w *projectWriter) findByName(ctx context.Context, name string) (*domain.Project, error) {
	project, err := w.repo.FindProjectByName(ctx, name)
	if err != nil {
		if errors.Is(err, domain.ErrProjectNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return project, nil
}

// reserveSlugs раздает слаги новым проектам в порядке строк листа:
// первая строка получает base, следующие с тем же base - base-2, base-3.
// Вызывается до пула, поэтому результат не зависит от порядка воркеров.
func (w *projectWriter) reserveSlugs(ctx context.Context, rows []domain.ParsedDuAnData) (map[string]string, error) {
	ordered := append([]domain.ParsedDuAnData(nil), rows...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].RowIndex < ordered[j].RowIndex })

	reserved := make(map[string]string)
	taken := make(map[string]bool)
	for _, parsed := range ordered {
		key := domain.ProjectNameKey(parsed.Name)
		if _, ok := reserved[key]; ok {
			continue
		}
		existing, err := w.findByName(ctx, parsed.Name)
		if err != nil {
			return nil, fmt.Errorf("looking up project %q: %w", parsed.Name, err)
		}
		if existing != nil {
			reserved[key] = existing.Slug
			continue
		}
		slug, err := w.freeSlug(ctx, parsed.Slug, taken)
		if err != nil {
			return nil, err
		}
		reserved[key] = slug
		taken[slug] = true
	}
	return reserved, nil
}

// upsert сохраняет проект из строки DuAn. У существующего проекта слаг не меняется.
// reservedSlug - слаг из reserveSlugs; если его успели занять, берется следующий свободный.
func (w *projectWriter) upsert(ctx context.Context, parsed domain.ParsedDuAnData, reservedSlug string) (*domain.Project, error) {
	project := &domain.Project{
		Name:      parsed.Name,
		Developer: parsed.Developer,
		Address:   parsed.Address,
		Status:    parsed.Status,
		Extra:     parsed.Extra,
		SyncHash:  parsed.Fingerprint(),
	}

	existing, err := w.findByName(ctx, parsed.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		project.ID, project.Slug = existing.ID, existing.Slug
		return w.repo.UpsertProject(ctx, project)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	// пока ждали мьютекс, проект мог создать соседний воркер
	if existing, err = w.findByName(ctx, parsed.Name); err != nil {
		return nil, err
	}
	if existing != nil {
		project.ID, project.Slug = existing.ID, existing.Slug
		return w.repo.UpsertProject(ctx, project)
	}

	if reservedSlug != "" {
		free, err := w.slugFree(ctx, reservedSlug)
		if err != nil {
			return nil, err
		}
		if free {
			project.Slug = reservedSlug
			return w.repo.UpsertProject(ctx, project)
		}
	}
	if project.Slug, err = w.freeSlug(ctx, parsed.Slug, nil); err != nil {
		return nil, err
	}
	return w.repo.UpsertProject(ctx, project)
}

// ensure возвращает проект по имени, создавая его, если в БД его еще нет.
// Существующий проект не трогает.
func (w *projectWriter) ensure(ctx context.Context, name string) (*domain.Project, error) {
	existing, err := w.findByName(ctx, name)
	if err != nil || existing != nil {
		return existing, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if existing, err = w.findByName(ctx, name); err != nil || existing != nil {
		return existing, err
	}

	base := domain.GenerateSlug(name)
	if base == "" {
		return nil, fmt.Errorf("cannot derive slug for project %q", name)
	}
	slug, err := w.freeSlug(ctx, base, nil)
	if err != nil {
		return nil, err
	}

	project := &domain.Project{
		Name:   name,
		Slug:   slug,
		Status: domain.ProjectStatusActive,
	}
	// SyncHash пустой: строки DuAn для проекта еще не было
	return w.repo.UpsertProject(ctx, project)
}

// freeSlug: base, base-2, base-3 ... первый незанятый ни в БД, ни в taken
func (w *projectWriter) freeSlug(ctx context.Context, base string, taken map[string]bool) (string, error) {
	for n := 1; n <= maxSlugAttempts; n++ {
		candidate := domain.SlugWithSuffix(base, n)
		if taken[candidate] {
			continue
		}
		free, err := w.slugFree(ctx, candidate)
		if err != nil {
			return "", err
		}
		if free {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no free slug for %q after %d attempts", base, maxSlugAttempts)
}

func (w *projectWriter) slugFree(ctx context.Context, slug string) (bool, error) {
	_, err := w.repo.FindProjectBySlug(ctx, slug)
	switch {
	case errors.Is(err, domain.ErrProjectNotFound):
		return true, nil
	case err != nil:
		return false, fmt.Errorf("checking slug %q: %w", slug, err)
	}
	return false, nil
}
