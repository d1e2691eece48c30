package usecase

import (
	"context"
	"errors"
	"testing"

	"interior-sync-service/internal/core/domain"
	"interior-sync-service/internal/core/sheetparser"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushToSheet_IdenticalContentWritesNothing(t *testing.T) {
	env := newTestEnv(RunnerConfig{Workers: 4})
	seedSheet(env)
	ctx := context.Background()

	_, err := env.pull.Execute(ctx, testSheetID)
	require.NoError(t, err)

	result, err := env.push.Execute(ctx, testSheetID)
	require.NoError(t, err)

	assert.Zero(t, result.Written)
	assert.Equal(t, 3, result.Unchanged)
	assert.Equal(t, domain.SyncStatusSuccess, result.Log.Status)
	assert.Empty(t, env.sheet.writtenRanges())
}

func TestPushToSheet_EmptySheetGetsHeaderAndRows(t *testing.T) {
	env := newTestEnv(RunnerConfig{Workers: 2})
	ctx := context.Background()

	project, err := env.repo.UpsertProject(ctx, &domain.Project{
		Name: "Vinhomes Grand Park", Slug: "vinhomes-grand-park", Developer: "Vinhomes", Status: domain.ProjectStatusActive,
	})
	require.NoError(t, err)
	price := decimal.NewFromInt(3100000000)
	_, err = env.repo.UpsertLayout(ctx, &domain.Layout{
		ProjectID: project.ID, UnitType: domain.UnitType2PN, Area: decimal.NewFromInt(70), Price: &price,
	})
	require.NoError(t, err)

	result, err := env.push.Execute(ctx, testSheetID)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Written)
	assert.Equal(t, domain.SyncStatusSuccess, result.Log.Status)

	duAn := env.sheet.rows(domain.TabDuAn)
	require.Len(t, duAn, 2)
	assert.Equal(t, sheetparser.DuAnHeader(), duAn[0])
	assert.Equal(t, "Vinhomes Grand Park", duAn[1][0])

	layouts := env.sheet.rows(domain.TabLayoutIDs)
	require.Len(t, layouts, 2)
	assert.Equal(t, sheetparser.LayoutIDsHeader(), layouts[0])
	assert.Equal(t, []string{"Vinhomes Grand Park", "2PN", "70", "3100000000", "", ""}, layouts[1])

	// записи помечены синхронизированными
	stored, err := env.repo.FindProjectByName(ctx, "Vinhomes Grand Park")
	require.NoError(t, err)
	assert.Equal(t, stored.Fingerprint(), stored.SyncHash)

	second, err := env.push.Execute(ctx, testSheetID)
	require.NoError(t, err)
	assert.Zero(t, second.Written)
	assert.Equal(t, 2, second.Unchanged)
}

func TestPushToSheet_AppendsAfterLastRow(t *testing.T) {
	env := newTestEnv(RunnerConfig{Workers: 2})
	ctx := context.Background()
	env.sheet.set(domain.TabDuAn,
		[]string{"Tên dự án", "Chủ đầu tư", "Địa chỉ", "Trạng thái"},
		[]string{"Vinhomes Grand Park", "Vinhomes", "Quận 9", "active"},
		[]string{"", "", "", ""},
	)
	_, err := env.pull.Execute(ctx, testSheetID)
	require.NoError(t, err)

	_, err = env.repo.UpsertProject(ctx, &domain.Project{Name: "Sunshine City", Slug: "sunshine-city", Status: domain.ProjectStatusActive})
	require.NoError(t, err)

	result, err := env.push.Execute(ctx, testSheetID)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Written)
	assert.Equal(t, 1, result.Unchanged)
	// пустая вкладка LayoutIDs без новых записей остается нетронутой
	assert.Equal(t, []string{"DuAn!A3"}, env.sheet.writtenRanges())
	assert.Equal(t, "Sunshine City", env.sheet.rows(domain.TabDuAn)[2][0])
}

func TestPushToSheet_UpdateKeepsForeignColumns(t *testing.T) {
	env := newTestEnv(RunnerConfig{})
	ctx := context.Background()
	env.sheet.set(domain.TabDuAn,
		[]string{"Tên dự án", "Ghi chú", "Chủ đầu tư"},
		[]string{"Vinhomes Grand Park", "call sales", "Vinhomes"},
	)
	_, err := env.pull.Execute(ctx, testSheetID)
	require.NoError(t, err)

	project, err := env.repo.FindProjectByName(ctx, "Vinhomes Grand Park")
	require.NoError(t, err)
	project.Developer = "Vingroup"
	_, err = env.repo.UpsertProject(ctx, project)
	require.NoError(t, err)

	result, err := env.push.Execute(ctx, testSheetID)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Written)
	assert.Equal(t, []string{"DuAn!A2"}, env.sheet.writtenRanges())
	assert.Equal(t, []string{"Vinhomes Grand Park", "call sales", "Vingroup"}, env.sheet.rows(domain.TabDuAn)[1])
}

func TestPushToSheet_ConflictIsSkipped(t *testing.T) {
	env := newTestEnv(RunnerConfig{Workers: 2})
	seedSheet(env)
	ctx := context.Background()

	_, err := env.pull.Execute(ctx, testSheetID)
	require.NoError(t, err)

	project, err := env.repo.FindProjectByName(ctx, "Vinhomes Grand Park")
	require.NoError(t, err)
	project.Address = "Thủ Đức"
	_, err = env.repo.UpsertProject(ctx, project)
	require.NoError(t, err)
	env.sheet.set(domain.TabDuAn,
		[]string{"Tên dự án", "Chủ đầu tư", "Địa chỉ", "Trạng thái"},
		[]string{"Vinhomes Grand Park", "Vinhomes", "TP Thủ Đức", "active"},
	)

	result, err := env.push.Execute(ctx, testSheetID)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Conflicts)
	assert.Zero(t, result.Written)
	assert.Equal(t, domain.SyncStatusPartial, result.Log.Status)
	assert.Equal(t, 1, result.Log.RowsSkipped)
	assert.Equal(t, []domain.SyncErrorKind{domain.SyncErrorConflict}, errorKinds(result.Errors))
	assert.Equal(t, "TP Thủ Đức", env.sheet.rows(domain.TabDuAn)[1][2])
}

func TestPushToSheet_WriteFailureAbortsRemainingRows(t *testing.T) {
	env := newTestEnv(RunnerConfig{Workers: 1})
	ctx := context.Background()
	env.sheet.set(domain.TabDuAn, sheetparser.DuAnHeader())
	for _, name := range []string{"Alpha", "Beta", "Gamma"} {
		_, err := env.repo.UpsertProject(ctx, &domain.Project{Name: name, Slug: domain.GenerateSlug(name), Status: domain.ProjectStatusActive})
		require.NoError(t, err)
	}
	env.sheet.writeErr = errors.New("503 backend error")

	result, err := env.push.Execute(ctx, testSheetID)
	require.Error(t, err)
	assert.True(t, domain.IsTransportError(err))

	require.NotNil(t, result)
	assert.Equal(t, domain.SyncStatusFailed, result.Log.Status)
	assert.Equal(t, 3, result.Log.RowsTotal)
	assert.Equal(t, 3, result.Log.RowsFailed)
	assert.ElementsMatch(t,
		[]domain.SyncErrorKind{domain.SyncErrorTransport, domain.SyncErrorAborted, domain.SyncErrorAborted},
		errorKinds(result.Errors))
}

func TestPushToSheet_HeaderWriteFailure(t *testing.T) {
	env := newTestEnv(RunnerConfig{})
	ctx := context.Background()
	_, err := env.repo.UpsertProject(ctx, &domain.Project{Name: "Alpha", Slug: "alpha", Status: domain.ProjectStatusActive})
	require.NoError(t, err)
	env.sheet.writeErr = errors.New("permission denied")

	result, err := env.push.Execute(ctx, testSheetID)
	require.Error(t, err)

	assert.Equal(t, domain.SyncStatusFailed, result.Log.Status)
	assert.Equal(t, 1, result.Log.RowsFailed)
	assert.ElementsMatch(t,
		[]domain.SyncErrorKind{domain.SyncErrorAborted, domain.SyncErrorTransport},
		errorKinds(result.Errors))
}

func TestPushToSheet_UnparseableProjectRowIsNotDuplicated(t *testing.T) {
	env := newTestEnv(RunnerConfig{Workers: 2})
	ctx := context.Background()
	env.sheet.set(domain.TabDuAn,
		[]string{"Tên dự án", "Chủ đầu tư", "Địa chỉ", "Trạng thái"},
		[]string{"Vinhomes Grand Park", "Vinhomes", "Quận 9", "active"},
		[]string{"Sunshine City", "Sunshine", "Quận 7", "active"},
	)
	_, err := env.pull.Execute(ctx, testSheetID)
	require.NoError(t, err)

	// ключ цел, но статус больше не разбирается
	env.sheet.set(domain.TabDuAn,
		[]string{"Tên dự án", "Chủ đầu tư", "Địa chỉ", "Trạng thái"},
		[]string{"Vinhomes Grand Park", "Vinhomes", "Quận 9", "sắp mở bán"},
		[]string{"Sunshine City", "Sunshine", "Quận 7", "active"},
	)

	result, err := env.push.Execute(ctx, testSheetID)
	require.NoError(t, err)

	assert.Zero(t, result.Written)
	assert.Equal(t, 1, result.Conflicts)
	assert.Equal(t, 1, result.Unchanged)
	assert.Empty(t, env.sheet.writtenRanges())
	assert.Len(t, env.sheet.rows(domain.TabDuAn), 3)

	assert.Equal(t, domain.SyncStatusPartial, result.Log.Status)
	assert.Equal(t, 1, result.Log.RowsSkipped)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, domain.SyncErrorConflict, result.Errors[0].Kind)
	assert.Equal(t, 2, result.Errors[0].RowIndex)
	assert.Contains(t, result.Errors[0].Message, "Trạng thái")
}

func TestPushToSheet_UnparseableLayoutRowIsNotDuplicated(t *testing.T) {
	env := newTestEnv(RunnerConfig{Workers: 2})
	seedSheet(env)
	ctx := context.Background()

	_, err := env.pull.Execute(ctx, testSheetID)
	require.NoError(t, err)

	env.sheet.set(domain.TabLayoutIDs,
		[]string{"Vinhomes Grand Park", "1pn", "55", "Liên hệ"},
		[]string{"Vinhomes Grand Park", " STUDIO ", "28", "1800000000"},
	)

	result, err := env.push.Execute(ctx, testSheetID)
	require.NoError(t, err)

	assert.Zero(t, result.Written)
	assert.Equal(t, 1, result.Conflicts)
	assert.Equal(t, 2, result.Unchanged)
	assert.Empty(t, env.sheet.writtenRanges())
	assert.Len(t, env.sheet.rows(domain.TabLayoutIDs), 2)
	assert.Equal(t, []domain.SyncErrorKind{domain.SyncErrorConflict}, errorKinds(result.Errors))
	assert.Equal(t, 1, result.Errors[0].RowIndex)

	preview, err := env.preview.Execute(ctx, testSheetID, domain.DirectionPush)
	require.NoError(t, err)
	assert.Equal(t, 1, preview.Summary[domain.DiffConflict])
	assert.Zero(t, preview.Summary[domain.DiffAdd])
}
