package utils

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"tvcms/models"
)

func TestGenerateSlug(t *testing.T) {
	cases := map[string]string{
		"Noticiero Central":     "noticiero-central",
		"  Deportes   UPEA ":    "deportes-upea",
		"Educación Hoy":         "educacion-hoy",
		"News":                  "news",
		"news":                  "news",
		"Salud & Bienestar!":    "salud-bienestar",
		"snake_case stays":      "snake_case-stays",
		"tabs\tand\nnewlines":   "tabs-and-newlines",
		"¿Qué pasó, año 2024?":  "que-paso-ano-2024",
		"---":                   "",
	}
	for input, want := range cases {
		assert.Equal(t, want, GenerateSlug(input), "input %q", input)
	}
}

func TestNormalizeTagNamesDeduplicatesBySlug(t *testing.T) {
	got := NormalizeTagNames([]string{"News", " news ", "", "Deportes", "NEWS", "  "})
	assert.Equal(t, []string{"News", "Deportes"}, got)
}

func TestValidateTagNames(t *testing.T) {
	assert.NoError(t, ValidateTagNames([]string{"News", strings.Repeat("ñ", MaxTagNameLength)}))

	err := ValidateTagNames([]string{"News", strings.Repeat("x", MaxTagNameLength+1)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestNormalizePagination(t *testing.T) {
	page, limit := NormalizePagination(0, 0)
	assert.Equal(t, 1, page)
	assert.Equal(t, 20, limit)

	page, limit = NormalizePagination(3, 500)
	assert.Equal(t, 3, page)
	assert.Equal(t, MaxLimit, limit)
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(2, 20, 41)
	assert.Equal(t, int64(41), p.Total)
	assert.Equal(t, 2, p.Page)
	assert.Equal(t, 3, p.Pages)

	empty := NewPagination(1, 20, 0)
	assert.Equal(t, 1, empty.Pages)
}

func TestGenerateStorageNameIsUniqueAndKeepsExtension(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 500; i++ {
		name := GenerateStorageName("Mi Video Final.MP4")
		require.True(t, strings.HasSuffix(name, ".mp4"))
		require.NotContains(t, name, "Video")
		_, dup := seen[name]
		require.False(t, dup, "duplicate storage name %s", name)
		seen[name] = struct{}{}
	}

	assert.Equal(t, "", FileExtension("README"))
	assert.Equal(t, "thumb_01hv.jpg", ThumbnailName("01hv.mov"))
}

func TestGetFileCategory(t *testing.T) {
	assert.Equal(t, CategoryVideo, GetFileCategory("video/mp4"))
	assert.Equal(t, CategoryImage, GetFileCategory("IMAGE/PNG"))
	assert.Equal(t, CategoryAudio, GetFileCategory("audio/mpeg"))
	assert.Equal(t, CategoryDocument, GetFileCategory("application/pdf"))
	assert.Equal(t, CategoryArchive, GetFileCategory("application/zip"))
	assert.Equal(t, CategoryOther, GetFileCategory("application/octet-stream"))
}

func TestCleanFileName(t *testing.T) {
	assert.Equal(t, "clip.mp4", CleanFileName("../../etc/clip.mp4"))
	assert.Equal(t, "clip.mp4", CleanFileName(`C:\Users\tv\clip.mp4`))
	assert.Equal(t, "file", CleanFileName(""))
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", hash)
	assert.True(t, CheckPasswordHash("secret1", hash))
	assert.False(t, CheckPasswordHash("secret2", hash))
}

func TestJWTManagerRoundTrip(t *testing.T) {
	manager := NewJWTManager("access-secret", "refresh-secret", time.Hour, 24*time.Hour)
	user := &models.User{ID: "5b0c3a9e-8f0e-4a57-9d6c-1f1b2f3e4d5c", Email: "a@x.com", Role: models.RoleEditor}

	pair, err := manager.GenerateTokenPair(user)
	require.NoError(t, err)
	assert.Equal(t, int64(3600), pair.ExpiresIn)

	claims, err := manager.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, models.RoleEditor, claims.Role)

	refresh, err := manager.ValidateRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, refresh.UserID)

	_, err = manager.ValidateAccessToken(pair.RefreshToken)
	assert.Error(t, err, "refresh token must not be accepted as an access token")
	_, err = manager.ValidateRefreshToken(pair.AccessToken)
	assert.Error(t, err, "access token must not be accepted as a refresh token")
}

func TestJWTManagerRejectsExpiredTokens(t *testing.T) {
	manager := NewJWTManager("access-secret", "refresh-secret", time.Minute, time.Minute)
	manager.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, err := manager.GenerateAccessToken(&models.User{ID: "u1", Role: models.RoleViewer})
	require.NoError(t, err)

	_, err = manager.ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestValidateStructReportsFields(t *testing.T) {
	err := ValidateStruct(&models.RegisterRequest{Email: "nope", Password: "123", Name: "A"})
	require.Error(t, err)

	appErr, ok := AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, KindValidation, appErr.Kind)

	fields := map[string]string{}
	for _, f := range appErr.Fields {
		fields[f.Field] = f.Message
	}
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "password")
	assert.Contains(t, fields, "name")

	parent := "not-a-uuid"
	err = ValidateStruct(&models.CreateFolderRequest{Name: "Ok name", ParentID: &parent})
	require.Error(t, err)
	appErr, _ = AsAppError(err)
	require.Len(t, appErr.Fields, 1)
	assert.Equal(t, "parentId", appErr.Fields[0].Field)

	assert.NoError(t, ValidateStruct(&models.CreateUserRequest{Name: "Editor", Email: "e@x.com", Password: "secret1", Role: models.RoleEditor}))
	assert.Error(t, ValidateStruct(&models.CreateUserRequest{Name: "Editor", Email: "e@x.com", Password: "secret1", Role: "root"}))
}

func TestAppErrorMatching(t *testing.T) {
	err := fmt.Errorf("loading folder: %w", NewNotFoundError("Folder not found"))
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrForbidden))

	assert.Equal(t, http.StatusBadRequest, NewConflictError("x").StatusCode())
	assert.Equal(t, http.StatusForbidden, NewForbiddenError("x").StatusCode())
	assert.Equal(t, http.StatusUnauthorized, NewUnauthenticatedError("x").StatusCode())
	assert.Equal(t, http.StatusInternalServerError, NewUpstreamError("x", errors.New("ffprobe")).StatusCode())
}

func TestHandleErrorStatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		err    error
		status int
	}{
		{NewValidationError("bad"), http.StatusBadRequest},
		{NewNotFoundError("missing"), http.StatusNotFound},
		{NewForbiddenError("no"), http.StatusForbidden},
		{NewUnauthenticatedError("who"), http.StatusUnauthorized},
		{NewConflictError("busy"), http.StatusBadRequest},
		{NewUpstreamError("ffmpeg", errors.New("exit 1")), http.StatusInternalServerError},
		{gorm.ErrRecordNotFound, http.StatusNotFound},
		{fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		HandleError(c, tc.err)
		assert.Equal(t, tc.status, w.Code, "error %v", tc.err)
		assert.Contains(t, w.Body.String(), `"success":false`)
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	HandleError(c, errors.New("secret database detail"))
	assert.NotContains(t, w.Body.String(), "secret database detail")
}
