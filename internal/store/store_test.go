package store

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"personakit/internal/config"
	"personakit/internal/errors"
	"personakit/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testLogger = errors.NewLogger(slog.LevelError)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := Open(config.DatabaseConfig{
		Driver:       "sqlite",
		DSN:          fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
		MaxOpenConns: 1,
		AutoMigrate:  true,
	}, testLogger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })
	return db
}

func sampleTree() types.PersonaTree {
	return types.PersonaTree{
		Name:             "Backend Engineer",
		Notes:            "Ships reliable services",
		RoleID:           "role-1",
		RoleName:         "Backend Engineer",
		JobDescriptionID: "jd-1",
		Categories: []types.Category{
			{Position: 1, Name: "Technical", WeightPercentage: 60, RangeMin: -5, RangeMax: 10,
				Notes: types.CategoryNotes{CustomNotes: "core"},
				Subcategories: []types.Subcategory{
					{Position: 1, Name: "Go", WeightPercentage: 70, LevelID: "4",
						Skillset: types.Skillset{Technologies: []string{"Go", "gRPC"}}},
					{Position: 2, Name: "SQL", WeightPercentage: 30, LevelID: "3",
						Skillset: types.Skillset{Technologies: []string{}}},
				}},
			{Position: 2, Name: "Communication", WeightPercentage: 40, RangeMin: -10, RangeMax: 5,
				Subcategories: []types.Subcategory{
					{Position: 1, Name: "Writing", WeightPercentage: 100, LevelID: "2",
						Skillset: types.Skillset{Technologies: []string{}}},
				}},
		},
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Driver: "mysql"}, testLogger)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidConfig))
}

func TestPersonaRepoRoundTrip(t *testing.T) {
	db := openTestDB(t)
	repo := NewPersonaRepo(db, testLogger)
	ctx := context.Background()
	baseline := types.Baseline{1: 60, 2: 40}

	created, err := repo.Create(ctx, sampleTree(), baseline)
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "Backend Engineer", created.Name)

	got, gotBaseline, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, sampleTree().Categories, got.Categories)
	assert.Equal(t, baseline, gotBaseline)
	require.NoError(t, Ping(db))
}

func TestPersonaRepoUpdate(t *testing.T) {
	repo := NewPersonaRepo(openTestDB(t), testLogger)
	ctx := context.Background()

	created, err := repo.Create(ctx, sampleTree(), types.Baseline{1: 60, 2: 40})
	require.NoError(t, err)

	edited := sampleTree()
	edited.Name = "Senior Backend Engineer"
	edited.Categories[0].WeightPercentage = 65
	edited.Categories[1].WeightPercentage = 35

	updated, err := repo.Update(ctx, created.ID, edited, nil)
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Senior Backend Engineer", updated.Name)
	assert.InDelta(t, 65, updated.Categories[0].WeightPercentage, 1e-9)

	_, baseline, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, types.Baseline{1: 60, 2: 40}, baseline, "update without baseline keeps the stored one")

	_, err = repo.Update(ctx, created.ID, edited, types.Baseline{1: 65, 2: 35})
	require.NoError(t, err)
	_, baseline, err = repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, types.Baseline{1: 60, 2: 40}, baseline, "a submitted baseline never replaces the stored one")

	_, err = repo.Update(ctx, "3f1b2c4d-0000-4000-8000-000000000000", edited, nil)
	assert.True(t, errors.HasCode(err, errors.ErrCodePersonaNotFound))
	assert.True(t, stderrors.Is(err, ErrNotFound))
}

func TestPersonaRepoUpdateAdoptsBaselineWhenNoneStored(t *testing.T) {
	repo := NewPersonaRepo(openTestDB(t), testLogger)
	ctx := context.Background()

	created, err := repo.Create(ctx, sampleTree(), nil)
	require.NoError(t, err)

	_, err = repo.Update(ctx, created.ID, sampleTree(), types.Baseline{1: 60, 2: 40})
	require.NoError(t, err)

	_, baseline, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, types.Baseline{1: 60, 2: 40}, baseline)
}

func TestPersonaRepoListAndDelete(t *testing.T) {
	repo := NewPersonaRepo(openTestDB(t), testLogger)
	ctx := context.Background()

	first, err := repo.Create(ctx, sampleTree(), nil)
	require.NoError(t, err)

	other := sampleTree()
	other.Name = "Data Engineer"
	other.RoleID = "role-2"
	_, err = repo.Create(ctx, other, nil)
	require.NoError(t, err)

	all, err := repo.List(ctx, PersonaFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byRole, err := repo.List(ctx, PersonaFilter{RoleID: "role-2"})
	require.NoError(t, err)
	require.Len(t, byRole, 1)
	assert.Equal(t, "Data Engineer", byRole[0].Name)
	assert.Equal(t, 2, byRole[0].CategoryCount)

	require.NoError(t, repo.Delete(ctx, first.ID))
	_, _, err = repo.Get(ctx, first.ID)
	assert.True(t, stderrors.Is(err, ErrNotFound))
	assert.True(t, stderrors.Is(repo.Delete(ctx, first.ID), ErrNotFound))

	remaining, err := repo.List(ctx, PersonaFilter{})
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func TestPersonaRepoMalformedID(t *testing.T) {
	repo := NewPersonaRepo(openTestDB(t), testLogger)
	_, _, err := repo.Get(context.Background(), "not-a-uuid")
	assert.True(t, errors.HasCode(err, errors.ErrCodePersonaNotFound))
}

func TestJobDescriptionRepo(t *testing.T) {
	repo := NewJobDescriptionRepo(openTestDB(t), testLogger)
	ctx := context.Background()

	_, err := repo.Create(ctx, types.JobDescription{RoleID: "role-1"})
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidRequest))

	jd, err := repo.Create(ctx, types.JobDescription{
		RoleID:   "role-1",
		RoleName: "Backend Engineer",
		Title:    "Backend Engineer (Go)",
		Content:  "Design and run Go services",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, jd.ID)
	assert.False(t, jd.CreatedAt.IsZero())

	got, err := repo.Get(ctx, jd.ID)
	require.NoError(t, err)
	assert.Equal(t, "Design and run Go services", got.Content)

	_, err = repo.Create(ctx, types.JobDescription{RoleID: "role-2", Content: "Build pipelines"})
	require.NoError(t, err)

	list, err := repo.List(ctx, "role-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, jd.ID, list[0].ID)

	_, err = repo.Get(ctx, "9a9a9a9a-0000-4000-8000-000000000000")
	assert.True(t, errors.HasCode(err, errors.ErrCodeJobDescriptionNotFound))
}
