package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"tvcms/config"
	"tvcms/database"
	"tvcms/middleware"
	"tvcms/models"
	"tvcms/services"
	"tvcms/storage"
	"tvcms/utils"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	utils.PasswordCost = bcrypt.MinCost
	os.Exit(m.Run())
}

type noMedia struct{}

func (noMedia) Process(context.Context, string, string, string) (*models.MediaInfo, error) {
	return nil, nil
}

type staticChecker map[string]error

func (s staticChecker) HealthCheck(context.Context) map[string]error {
	out := make(map[string]error, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

type apiEnvelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Data    json.RawMessage     `json:"data"`
	Errors  []models.FieldError `json:"errors"`
}

type testServer struct {
	router    *gin.Engine
	svc       *services.Services
	uploadDir string
}

func newTestServer(t *testing.T, limits middleware.RateLimits, databases staticChecker) *testServer {
	t.Helper()
	log, _ := logtest.NewNullLogger()

	db, err := database.OpenSQL(database.SQLOptions{
		Driver: config.DriverSQLite,
		DSN:    database.MemoryDSN(t.Name()),
	}, log)
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(context.Background(), db, log))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	root := t.TempDir()
	cfg := &config.Config{
		Environment:     "test",
		AppName:         "tvcms-test",
		AppVersion:      "0.0.1",
		MaxFileSize:     1 << 20,
		StorageProvider: config.StorageLocal,
		UploadPath:      filepath.Join(root, "public"),
		PublicBaseURL:   "/uploads",
		TempPath:        filepath.Join(root, "tmp"),
	}

	store, err := storage.NewLocalClient(cfg.UploadPath, cfg.PublicBaseURL)
	require.NoError(t, err)

	svc := services.New(services.Dependencies{
		DB:      db,
		Storage: store,
		Media:   noMedia{},
		JWT:     utils.NewJWTManager("access-secret", "refresh-secret", time.Hour, 24*time.Hour),
		Files:   services.FileServiceConfig{TempPath: cfg.TempPath},
		Log:     log,
	})

	if databases == nil {
		databases = staticChecker{"database": nil}
	}

	return &testServer{
		router: NewRouter(Dependencies{
			Config:     cfg,
			Services:   svc,
			Databases:  databases,
			Storage:    store,
			RateLimits: limits,
			Log:        log,
		}),
		svc:       svc,
		uploadDir: cfg.UploadPath,
	}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, apiEnvelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return s.send(t, req, token)
}

func (s *testServer) send(t *testing.T, req *http.Request, token string) (*httptest.ResponseRecorder, apiEnvelope) {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env apiEnvelope
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w, env
}

// register signs up a viewer and returns it with its access token
func (s *testServer) register(t *testing.T, email string) (models.AuthResponse, string) {
	t.Helper()
	w, env := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    email,
		"password": "secret1",
		"name":     "Test " + email,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var auth models.AuthResponse
	require.NoError(t, json.Unmarshal(env.Data, &auth))
	return auth, auth.Token
}

func (s *testServer) promote(t *testing.T, userID string, role models.Role) {
	t.Helper()
	admin := &models.User{ID: userID, Role: models.RoleAdmin, IsActive: true}
	_, err := s.svc.Users.Update(context.Background(), services.Actor{User: admin}, userID, &models.UpdateUserRequest{
		Role: models.Some(role),
	})
	require.NoError(t, err)
}

func TestRegisterLoginMe(t *testing.T) {
	srv := newTestServer(t, middleware.RateLimits{}, nil)

	registered, _ := srv.register(t, "a@x.com")
	assert.Equal(t, models.RoleViewer, registered.User.Role)
	assert.NotEmpty(t, registered.RefreshToken)

	w, env := srv.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "a@x.com",
		"password": "secret1",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var login models.AuthResponse
	require.NoError(t, json.Unmarshal(env.Data, &login))
	require.NotEmpty(t, login.Token)

	w, env = srv.do(t, http.MethodGet, "/api/auth/me", login.Token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var me models.User
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, registered.User.ID, me.ID)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestLoginWrongPassword(t *testing.T) {
	srv := newTestServer(t, middleware.RateLimits{}, nil)
	srv.register(t, "a@x.com")

	w, env := srv.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "a@x.com",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, env.Success)
}

func TestRegisterValidation(t *testing.T) {
	srv := newTestServer(t, middleware.RateLimits{}, nil)

	w, env := srv.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    "not-an-email",
		"password": "123",
		"name":     "A",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, env.Success)
	assert.NotEmpty(t, env.Errors)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	srv := newTestServer(t, middleware.RateLimits{}, nil)

	for _, path := range []string{"/api/files", "/api/folders", "/api/programs", "/api/auth/me"} {
		w, _ := srv.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}

	w, _ := srv.do(t, http.MethodGet, "/api/files", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRoleChecks(t *testing.T) {
	srv := newTestServer(t, middleware.RateLimits{}, nil)
	_, viewerToken := srv.register(t, "viewer@x.com")
	admin, adminToken := srv.register(t, "admin@x.com")
	srv.promote(t, admin.User.ID, models.RoleAdmin)

	w, _ := srv.do(t, http.MethodPost, "/api/programs", viewerToken, map[string]string{"name": "Noticias"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = srv.do(t, http.MethodGet, "/api/users", viewerToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = srv.do(t, http.MethodPost, "/api/tags", viewerToken, map[string]string{"name": "news"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env := srv.do(t, http.MethodPost, "/api/programs", adminToken, map[string]string{"name": "Noticias"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var program models.Program
	require.NoError(t, json.Unmarshal(env.Data, &program))
	assert.Equal(t, "noticias", program.Slug)

	// Viewers may still read programs
	w, _ = srv.do(t, http.MethodGet, "/api/programs", viewerToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestInvalidUUIDParam(t *testing.T) {
	srv := newTestServer(t, middleware.RateLimits{}, nil)
	_, token := srv.register(t, "a@x.com")

	w, env := srv.do(t, http.MethodGet, "/api/files/not-a-uuid", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid file ID", env.Message)

	w, _ = srv.do(t, http.MethodGet, "/api/files/6f1c8a2e-3b4d-4e5f-8a9b-0c1d2e3f4a5b", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func newUploadRequest(t *testing.T, name, contentType string, payload []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+name+`"`)
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)

	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/files/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadAndDownload(t *testing.T) {
	srv := newTestServer(t, middleware.RateLimits{}, nil)
	_, token := srv.register(t, "uploader@x.com")

	payload := []byte("rundown for the evening news")
	req := newUploadRequest(t, "rundown.txt", "text/plain", payload, map[string]string{
		"tags":     "news, Evening",
		"isPublic": "true",
	})
	w, env := srv.send(t, req, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var file models.File
	require.NoError(t, json.Unmarshal(env.Data, &file))
	assert.Equal(t, "rundown.txt", file.OriginalName)
	assert.Equal(t, int64(len(payload)), file.Size)
	assert.Equal(t, models.FileStatusReady, file.Status)
	assert.True(t, file.IsPublic)
	assert.Len(t, file.Tags, 2)

	w, _ = srv.do(t, http.MethodGet, "/api/files/"+file.ID+"/download", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, payload, w.Body.Bytes())
	assert.Contains(t, w.Header().Get("Content-Disposition"), `filename="rundown.txt"`)

	w, env = srv.do(t, http.MethodGet, "/api/files/"+file.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var fetched models.File
	require.NoError(t, json.Unmarshal(env.Data, &fetched))
	assert.Equal(t, int64(1), fetched.Downloads)
}

func TestUploadRejectsExtraFileParts(t *testing.T) {
	srv := newTestServer(t, middleware.RateLimits{}, nil)
	_, token := srv.register(t, "uploader@x.com")

	cases := map[string][]string{
		"two file parts":          {"file", "file"},
		"file under another name": {"file", "attachment"},
	}
	for name, fields := range cases {
		t.Run(name, func(t *testing.T) {
			var body bytes.Buffer
			mw := multipart.NewWriter(&body)
			for i, field := range fields {
				part, err := mw.CreateFormFile(field, fmt.Sprintf("part-%d.txt", i))
				require.NoError(t, err)
				_, err = part.Write([]byte("rundown"))
				require.NoError(t, err)
			}
			require.NoError(t, mw.Close())

			req := httptest.NewRequest(http.MethodPost, "/api/files/upload", &body)
			req.Header.Set("Content-Type", mw.FormDataContentType())
			w, env := srv.send(t, req, token)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.NotEmpty(t, env.Errors)
		})
	}

	entries, err := os.ReadDir(filepath.Join(srv.uploadDir, "uploads"))
	if !os.IsNotExist(err) {
		require.NoError(t, err)
	}
	assert.Empty(t, entries)
}

func TestUploadRequiresFile(t *testing.T) {
	srv := newTestServer(t, middleware.RateLimits{}, nil)
	_, token := srv.register(t, "uploader@x.com")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("tags", "news"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/files/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w, _ := srv.send(t, req, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadTooLarge(t *testing.T) {
	srv := newTestServer(t, middleware.RateLimits{}, nil)
	_, token := srv.register(t, "uploader@x.com")

	req := newUploadRequest(t, "big.bin", "application/octet-stream", bytes.Repeat([]byte{1}, 3<<20), nil)
	w, _ := srv.send(t, req, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthRateLimit(t *testing.T) {
	srv := newTestServer(t, middleware.RateLimits{Auth: middleware.NewRateLimiter(time.Minute, 2)}, nil)

	credentials := map[string]string{"email": "nobody@x.com", "password": "secret1"}
	for i := 0; i < 2; i++ {
		w, _ := srv.do(t, http.MethodPost, "/api/auth/login", "", credentials)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}

	w, _ := srv.do(t, http.MethodPost, "/api/auth/login", "", credentials)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
}

func TestHealthAndVersion(t *testing.T) {
	srv := newTestServer(t, middleware.RateLimits{}, nil)

	w, _ := srv.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var status models.HealthStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, "healthy", status.Checks["database"])
	assert.Equal(t, "healthy", status.Checks["storage"])

	w, _ = srv.do(t, http.MethodGet, "/version", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"version":"0.0.1"`)
}

func TestHealthDegraded(t *testing.T) {
	srv := newTestServer(t, middleware.RateLimits{}, staticChecker{
		"database":       nil,
		"activity_store": errors.New("connection refused"),
	})

	w, _ := srv.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var status models.HealthStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "degraded", status.Status)
	assert.Equal(t, "unhealthy", status.Checks["activity_store"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, middleware.RateLimits{}, nil)
	srv.do(t, http.MethodGet, "/version", "", nil)

	w, _ := srv.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "tvcms_http_requests_total")
}
