package memory_adapter

import (
	"context"
	"testing"

	"interior-sync-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInteriorRepository_ProjectUpsertByName(t *testing.T) {
	repo := NewInteriorRepository()
	ctx := context.Background()

	created, err := repo.UpsertProject(ctx, &domain.Project{Name: "Vinhomes Grand Park", Slug: "vinhomes-grand-park", Status: domain.ProjectStatusActive})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, created.ID)

	// тот же естественный ключ: обновление, слаг сохраняется
	updated, err := repo.UpsertProject(ctx, &domain.Project{Name: "  vinhomes GRAND park ", Slug: "other", Developer: "Vinhomes", Status: domain.ProjectStatusInactive})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "vinhomes-grand-park", updated.Slug)

	bySlug, err := repo.FindProjectBySlug(ctx, "vinhomes-grand-park")
	require.NoError(t, err)
	assert.Equal(t, "Vinhomes", bySlug.Developer)

	_, err = repo.FindProjectBySlug(ctx, "other")
	assert.ErrorIs(t, err, domain.ErrProjectNotFound)

	projects, err := repo.ListProjects(ctx)
	require.NoError(t, err)
	assert.Len(t, projects, 1)
}

func TestInteriorRepository_SlugCollision(t *testing.T) {
	repo := NewInteriorRepository()
	ctx := context.Background()

	_, err := repo.UpsertProject(ctx, &domain.Project{Name: "A", Slug: "same"})
	require.NoError(t, err)
	_, err = repo.UpsertProject(ctx, &domain.Project{Name: "B", Slug: "same"})
	assert.Error(t, err)
}

func TestInteriorRepository_ReturnsCopies(t *testing.T) {
	repo := NewInteriorRepository()
	ctx := context.Background()

	p, err := repo.UpsertProject(ctx, &domain.Project{Name: "A", Slug: "a", Extra: map[string]string{"k": "v"}})
	require.NoError(t, err)
	p.Extra["k"] = "changed"

	found, err := repo.FindProjectByName(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, "v", found.Extra["k"])
}

func TestInteriorRepository_Layouts(t *testing.T) {
	repo := NewInteriorRepository()
	ctx := context.Background()

	_, err := repo.UpsertLayout(ctx, &domain.Layout{UnitType: domain.UnitType1PN, Area: decimal.NewFromInt(55)})
	assert.ErrorIs(t, err, domain.ErrProjectNotFound)

	project, err := repo.UpsertProject(ctx, &domain.Project{Name: "Vinhomes Grand Park", Slug: "vgp"})
	require.NoError(t, err)

	price := decimal.NewFromInt(2500000000)
	saved, err := repo.UpsertLayout(ctx, &domain.Layout{ProjectID: project.ID, UnitType: domain.UnitType1PN, Area: decimal.NewFromInt(55), Price: &price})
	require.NoError(t, err)
	assert.Equal(t, "vgp", saved.ProjectSlug)
	assert.Equal(t, "Vinhomes Grand Park", saved.ProjectName)
	assert.Equal(t, "vgp/1pn/55", saved.Key())

	again, err := repo.UpsertLayout(ctx, &domain.Layout{ProjectID: project.ID, UnitType: domain.UnitType1PN, Area: decimal.NewFromInt(55)})
	require.NoError(t, err)
	assert.Equal(t, saved.ID, again.ID)
	assert.Nil(t, again.Price)

	found, err := repo.FindLayoutByKey(ctx, "vgp/1pn/55")
	require.NoError(t, err)
	assert.Equal(t, saved.ID, found.ID)

	require.NoError(t, repo.MarkLayoutSynced(ctx, saved.ID, "hash"))
	found, err = repo.FindLayoutByKey(ctx, "vgp/1pn/55")
	require.NoError(t, err)
	assert.Equal(t, "hash", found.SyncHash)

	// переименование проекта доходит до планировок
	_, err = repo.UpsertProject(ctx, &domain.Project{Name: "vinhomes grand park", Slug: "vgp"})
	require.NoError(t, err)
	layouts, err := repo.ListLayouts(ctx)
	require.NoError(t, err)
	require.Len(t, layouts, 1)
	assert.Equal(t, "vinhomes grand park", layouts[0].ProjectName)

	_, err = repo.FindLayoutByKey(ctx, "vgp/2pn/55")
	assert.ErrorIs(t, err, domain.ErrLayoutNotFound)
}

func TestInteriorRepository_MarkSyncedUnknownIDs(t *testing.T) {
	repo := NewInteriorRepository()
	ctx := context.Background()

	p, err := repo.UpsertProject(ctx, &domain.Project{Name: "A", Slug: "a"})
	require.NoError(t, err)
	require.NoError(t, repo.MarkProjectSynced(ctx, p.ID, "h"))

	assert.ErrorIs(t, repo.MarkProjectSynced(ctx, uuid.New(), "h"), domain.ErrProjectNotFound)
	assert.ErrorIs(t, repo.MarkLayoutSynced(ctx, p.ID, "h"), domain.ErrLayoutNotFound)
}
