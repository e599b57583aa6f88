package services

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tvcms/models"
	"tvcms/storage"
	"tvcms/utils"
)

func TestUploadCreatesReadyRecord(t *testing.T) {
	env := newTestEnv(t)
	env.media.writeThumb = true
	owner := env.createUser(t, "owner@tv.test", models.RoleProducer)
	folder := env.createFolder(t, owner, "Clips", nil)
	program := env.createProgram(t, "Noticiero Central")

	file := env.upload(t, owner, UploadInput{
		Reader:       strings.NewReader("not really a video"),
		OriginalName: "../Entrevista Rector.MP4",
		DeclaredMIME: "video/mp4",
		FolderID:     &folder.ID,
		ProgramID:    &program.ID,
		Tags:         []string{"Noticias", "Rector"},
	})

	assert.Equal(t, models.FileStatusReady, file.Status)
	assert.Equal(t, "Entrevista Rector.MP4", file.OriginalName)
	assert.Equal(t, ".mp4", file.Extension)
	assert.Equal(t, "video/mp4", file.MimeType)
	assert.Equal(t, int64(len("not really a video")), file.Size)
	assert.Equal(t, owner.ID, file.UploadedBy)
	assert.Equal(t, "local", file.StorageProvider)
	assert.Equal(t, "/uploads/uploads/"+file.FileName, file.URL)
	require.NotNil(t, file.ThumbnailURL)
	assert.Contains(t, *file.ThumbnailURL, "/thumbnails/thumb_")
	require.NotNil(t, file.Duration)
	assert.Equal(t, 42, *file.Duration)
	assert.JSONEq(t, `{"codec":"h264"}`, string(file.Metadata))
	assert.Len(t, file.Tags, 2)
	assert.Equal(t, []string{utils.CategoryVideo}, env.media.categories)

	assert.FileExists(t, filepath.Join(env.uploadDir, "uploads", file.FileName))
	assert.FileExists(t, filepath.Join(env.uploadDir, "thumbnails", utils.ThumbnailName(file.FileName)))
	assert.Empty(t, env.tempEntries(t), "staging directory must be empty after upload")

	var activities int64
	require.NoError(t, env.db.Model(&models.Activity{}).Where("action = ?", models.ActionFileUpload).Count(&activities).Error)
	assert.Equal(t, int64(1), activities)
}

func TestUploadEnrichmentFailureLeavesNothingBehind(t *testing.T) {
	env := newTestEnv(t)
	env.media.err = errors.New("moov atom not found")
	env.media.writeThumb = true
	owner := env.createUser(t, "owner@tv.test", models.RoleProducer)

	_, err := env.svc.Files.Upload(context.Background(), actorFor(owner), UploadInput{
		Reader:       strings.NewReader("corrupt"),
		OriginalName: "broken.mp4",
		DeclaredMIME: "video/mp4",
		Tags:         []string{"Noticias"},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, utils.ErrUpstream))

	var files, tags int64
	require.NoError(t, env.db.Unscoped().Model(&models.File{}).Count(&files).Error)
	require.NoError(t, env.db.Model(&models.Tag{}).Count(&tags).Error)
	assert.Zero(t, files)
	assert.Zero(t, tags)
	assert.Empty(t, env.tempEntries(t), "staged upload and partial thumbnail must be removed")
	assert.NoDirExists(t, filepath.Join(env.uploadDir, "thumbnails"))
}

func TestUploadUnknownFolderCleansStagedFile(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "owner@tv.test", models.RoleProducer)
	missing := "6f1c1f4e-2b7a-4c39-9d55-1a2b3c4d5e6f"

	_, err := env.svc.Files.Upload(context.Background(), actorFor(owner), UploadInput{
		Reader:       strings.NewReader("payload"),
		OriginalName: "clip.txt",
		FolderID:     &missing,
	})
	assert.True(t, errors.Is(err, utils.ErrNotFound))
	assert.Zero(t, env.media.calls)
	assert.Empty(t, env.tempEntries(t))
}

func TestUploadRejectsDisallowedDetectedType(t *testing.T) {
	env := newTestEnv(t)
	env.svc.Files.cfg.AllowType = func(mimeType string) bool {
		return strings.HasPrefix(mimeType, "video/")
	}
	owner := env.createUser(t, "owner@tv.test", models.RoleProducer)

	_, err := env.svc.Files.Upload(context.Background(), actorFor(owner), UploadInput{
		Reader:       strings.NewReader("%PDF-1.4\n%fake"),
		OriginalName: "clip.mp4",
		DeclaredMIME: "video/mp4",
	})
	assert.True(t, errors.Is(err, utils.ErrValidation))
	assert.Empty(t, env.tempEntries(t))
}

func TestTagsAreSharedAndReplaced(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.createUser(t, "owner@tv.test", models.RoleProducer)

	first := env.upload(t, owner, UploadInput{Tags: []string{"News"}})
	second := env.upload(t, owner, UploadInput{Tags: []string{"news", "NEWS "}})

	var tags []models.Tag
	require.NoError(t, env.db.Find(&tags).Error)
	require.Len(t, tags, 1)
	assert.Equal(t, "News", tags[0].Name)
	assert.Equal(t, "news", tags[0].Slug)
	assert.Equal(t, int64(2), tags[0].UsageCount)
	assert.Equal(t, models.DefaultTagColor, tags[0].Color)

	updated, err := env.svc.Files.Update(ctx, actorFor(owner), first.ID, &models.UpdateFileRequest{
		Tags: models.Some([]string{"Deportes"}),
	})
	require.NoError(t, err)
	require.Len(t, updated.Tags, 1)
	assert.Equal(t, "deportes", updated.Tags[0].Slug)

	var news models.Tag
	require.NoError(t, env.db.First(&news, "slug = ?", "news").Error)
	assert.Equal(t, int64(1), news.UsageCount)

	cleared, err := env.svc.Files.Update(ctx, actorFor(owner), second.ID, &models.UpdateFileRequest{
		Tags: models.Null[[]string](),
	})
	require.NoError(t, err)
	assert.Empty(t, cleared.Tags)

	require.NoError(t, env.db.First(&news, "slug = ?", "news").Error)
	assert.Zero(t, news.UsageCount)
}

func TestFileCountersIncrementOncePerRead(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.createUser(t, "owner@tv.test", models.RoleViewer)
	file := env.upload(t, owner, UploadInput{Reader: strings.NewReader("hello"), OriginalName: "hello.txt"})

	got, err := env.svc.Files.Get(ctx, actorFor(owner), file.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Views)

	got, err = env.svc.Files.Get(ctx, actorFor(owner), file.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Views)

	downloaded, reader, err := env.svc.Files.Download(ctx, actorFor(owner), file.ID)
	require.NoError(t, err)
	body, err := io.ReadAll(reader)
	require.NoError(t, reader.Close())
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))
	assert.Equal(t, int64(1), downloaded.Downloads)

	const readers = 10
	var wg sync.WaitGroup
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.Files.Get(ctx, actorFor(owner), file.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var reloaded models.File
	require.NoError(t, env.db.First(&reloaded, "id = ?", file.ID).Error)
	assert.Equal(t, int64(2+readers), reloaded.Views)
	assert.Equal(t, int64(1), reloaded.Downloads)
}

func TestFileOwnershipAndSoftDelete(t *testing.T) {
	env := newTestEnv(t)
	env.media.writeThumb = true
	ctx := context.Background()
	owner := env.createUser(t, "owner@tv.test", models.RoleEditor)
	other := env.createUser(t, "other@tv.test", models.RoleEditor)
	admin := env.createUser(t, "admin@tv.test", models.RoleAdmin)

	file := env.upload(t, owner, UploadInput{OriginalName: "clip.mp4", DeclaredMIME: "video/mp4", Tags: []string{"Clip"}})

	_, err := env.svc.Files.Update(ctx, actorFor(other), file.ID, &models.UpdateFileRequest{OriginalName: models.Some("mine.mp4")})
	assert.True(t, errors.Is(err, utils.ErrForbidden))
	assert.True(t, errors.Is(env.svc.Files.Delete(ctx, actorFor(other), file.ID), utils.ErrForbidden))

	renamed, err := env.svc.Files.Update(ctx, actorFor(admin), file.ID, &models.UpdateFileRequest{OriginalName: models.Some("final.mp4")})
	require.NoError(t, err)
	assert.Equal(t, "final.mp4", renamed.OriginalName)

	require.NoError(t, env.svc.Files.Delete(ctx, actorFor(admin), file.ID))

	_, err = env.svc.Files.Get(ctx, actorFor(owner), file.ID)
	assert.True(t, errors.Is(err, utils.ErrNotFound))

	var row models.File
	require.NoError(t, env.db.Unscoped().First(&row, "id = ?", file.ID).Error)
	assert.True(t, row.DeletedAt.Valid)

	exists, err := env.storage.Exists(ctx, storage.ObjectKey(file.FileName))
	require.NoError(t, err)
	assert.False(t, exists)
	exists, err = env.storage.Exists(ctx, storage.ThumbnailKey(utils.ThumbnailName(file.FileName)))
	require.NoError(t, err)
	assert.False(t, exists)

	var tag models.Tag
	require.NoError(t, env.db.First(&tag, "slug = ?", "clip").Error)
	assert.Zero(t, tag.UsageCount)
}

func TestFileListFilters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.createUser(t, "owner@tv.test", models.RoleEditor)
	folder := env.createFolder(t, owner, "Clips", nil)

	env.upload(t, owner, UploadInput{OriginalName: "Resumen Deportes.mp4", DeclaredMIME: "video/mp4", FolderID: &folder.ID})
	env.upload(t, owner, UploadInput{OriginalName: "guion.txt"})
	env.upload(t, owner, UploadInput{OriginalName: "promo deportes.txt"})

	files, total, err := env.svc.Files.List(ctx, models.FileListQuery{Search: "deportes"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, files, 2)

	files, total, err = env.svc.Files.List(ctx, models.FileListQuery{Type: "video"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, files, 1)
	require.NotNil(t, files[0].Uploader)
	require.NotNil(t, files[0].Folder)
	assert.Equal(t, folder.ID, files[0].Folder.ID)

	_, total, err = env.svc.Files.List(ctx, models.FileListQuery{FolderID: folder.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	files, total, err = env.svc.Files.List(ctx, models.FileListQuery{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, files, 1)
}

func TestResolveMIME(t *testing.T) {
	assert.Equal(t, "video/mp4", resolveMIME("application/octet-stream", "video/mp4"))
	assert.Equal(t, "video/mp4", resolveMIME("text/plain; charset=utf-8", "video/mp4"))
	assert.Equal(t, "image/png", resolveMIME("image/png", "image/jpeg"))
	assert.Equal(t, "text/plain", resolveMIME("text/plain; charset=utf-8", ""))
	assert.Equal(t, "application/octet-stream", resolveMIME("", ""))
}
