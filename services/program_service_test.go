package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tvcms/models"
	"tvcms/utils"
)

func TestProgramCreateDerivesSlugAndDefaults(t *testing.T) {
	env := newTestEnv(t)

	program := env.createProgram(t, "Educación Hoy")
	assert.Equal(t, "educacion-hoy", program.Slug)
	assert.Equal(t, models.DefaultProgramColor, program.Color)
	assert.Equal(t, models.DefaultProgramIcon, program.Icon)
	assert.True(t, program.IsActive)

	_, err := env.svc.Programs.Create(context.Background(), Actor{}, &models.CreateProgramRequest{Name: "Educación Hoy"})
	assert.True(t, errors.Is(err, utils.ErrConflict))
}

func TestProgramUpdateRegeneratesSlug(t *testing.T) {
	env := newTestEnv(t)
	program := env.createProgram(t, "Deportes")

	updated, err := env.svc.Programs.Update(context.Background(), Actor{}, program.ID, &models.UpdateProgramRequest{
		Name:     models.Some("Deportes UPEA"),
		IsActive: models.Some(false),
		Order:    models.Some(3),
	})
	require.NoError(t, err)
	assert.Equal(t, "deportes-upea", updated.Slug)
	assert.False(t, updated.IsActive)
	assert.Equal(t, 3, updated.Order)
}

func TestProgramListOrdersAndCounts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.createUser(t, "owner@tv.test", models.RoleEditor)

	second, err := env.svc.Programs.Create(ctx, Actor{}, &models.CreateProgramRequest{Name: "Beta", Order: 2})
	require.NoError(t, err)
	first, err := env.svc.Programs.Create(ctx, Actor{}, &models.CreateProgramRequest{Name: "Alfa", Order: 1})
	require.NoError(t, err)
	hidden, err := env.svc.Programs.Create(ctx, Actor{}, &models.CreateProgramRequest{Name: "Oculto"})
	require.NoError(t, err)
	_, err = env.svc.Programs.Update(ctx, Actor{}, hidden.ID, &models.UpdateProgramRequest{IsActive: models.Some(false)})
	require.NoError(t, err)

	env.upload(t, owner, UploadInput{ProgramID: &second.ID})
	env.upload(t, owner, UploadInput{ProgramID: &second.ID})
	_, err = env.svc.Folders.Create(ctx, actorFor(owner), &models.CreateFolderRequest{Name: "Clips", ProgramID: &first.ID})
	require.NoError(t, err)

	programs, err := env.svc.Programs.List(ctx)
	require.NoError(t, err)
	require.Len(t, programs, 2)
	assert.Equal(t, first.ID, programs[0].ID)
	assert.Equal(t, second.ID, programs[1].ID)
	assert.Equal(t, int64(0), *programs[0].FilesCount)
	assert.Equal(t, int64(1), *programs[0].FoldersCount)
	assert.Equal(t, int64(2), *programs[1].FilesCount)
}

func TestProgramDeleteRequiresNoFiles(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.createUser(t, "owner@tv.test", models.RoleProducer)
	admin := env.createUser(t, "admin@tv.test", models.RoleAdmin)

	program := env.createProgram(t, "Cultura y Sociedad")
	file := env.upload(t, owner, UploadInput{ProgramID: &program.ID})

	err := env.svc.Programs.Delete(ctx, actorFor(admin), program.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, utils.ErrConflict))
	assert.Equal(t, "cannot delete program: it has 1 associated files", err.Error())

	require.NoError(t, env.svc.Files.Delete(ctx, actorFor(owner), file.ID))
	require.NoError(t, env.svc.Programs.Delete(ctx, actorFor(admin), program.ID))

	_, err = env.svc.Programs.GetByID(ctx, program.ID)
	assert.True(t, errors.Is(err, utils.ErrNotFound))
}
