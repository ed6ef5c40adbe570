package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/safestep-care/safestep-service/internal/config"
	"github.com/safestep-care/safestep-service/internal/events"
	"github.com/safestep-care/safestep-service/internal/repositories/postgres"
	"github.com/safestep-care/safestep-service/internal/services"
	"github.com/safestep-care/safestep-service/internal/utils"
	"github.com/safestep-care/safestep-service/internal/validator"
	"github.com/safestep-care/safestep-service/pkg"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, pkg.Migrate(db))

	repo := postgres.NewPostgreSQLRepository(postgres.RepositoryConfig{DB: db})
	slogger := slog.New(slog.NewTextHandler(io.Discard, nil))
	v := validator.New()

	serviceManager := services.NewServiceManager(db, repo, slogger, v, events.NoopEventPublisher{}, services.ServiceManagerConfig{
		LogLevel:       slog.LevelError,
		DefaultTimeout: 5 * time.Second,
	})
	require.NoError(t, serviceManager.Initialize(context.Background()))

	handlerManager := NewHandlerManager(serviceManager, v, utils.NewSlogLogger(slogger), config.SessionConfig{
		Secret:   "test-session-secret-32-bytes-min",
		Name:     "safestep_session",
		MaxAge:   time.Hour,
		HTTPOnly: true,
	}, repo.User())

	router := gin.New()
	handlerManager.SetupRoutes(router)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func signup(t *testing.T, router *gin.Engine, username string) []*http.Cookie {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/api/v1/auth/signup", map[string]string{
		"username":   username,
		"email":      username + "@example.com",
		"password":   "correct-horse-42",
		"first_name": "Alex",
		"last_name":  "Doe",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return w.Result().Cookies()
}

func TestSessionFlow_SignupLoginLogout(t *testing.T) {
	router := newTestRouter(t)

	cookies := signup(t, router, "firstuser")
	require.NotEmpty(t, cookies)

	// The session cookie authenticates subsequent requests
	w := doJSON(t, router, http.MethodGet, "/api/v1/auth/me", nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)

	var me struct {
		Username string `json:"username"`
		Role     string `json:"role"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	assert.Equal(t, "firstuser", me.Username)
	// The first account is promoted to admin
	assert.Equal(t, "admin", me.Role)

	// Without a cookie the same route is rejected
	w = doJSON(t, router, http.MethodGet, "/api/v1/auth/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Logout clears the session, the replacement cookie no longer works
	w = doJSON(t, router, http.MethodPost, "/api/v1/auth/logout", nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)
	cleared := w.Result().Cookies()

	w = doJSON(t, router, http.MethodGet, "/api/v1/auth/me", nil, cleared)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Login restores access
	w = doJSON(t, router, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": "firstuser",
		"password": "correct-horse-42",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/auth/me", nil, w.Result().Cookies())
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSessionFlow_LoginWrongPassword(t *testing.T) {
	router := newTestRouter(t)
	signup(t, router, "firstuser")

	w := doJSON(t, router, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": "firstuser",
		"password": "wrong-password-1",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSessionFlow_ChangePassword(t *testing.T) {
	router := newTestRouter(t)
	cookies := signup(t, router, "firstuser")

	// The current password must match
	w := doJSON(t, router, http.MethodPost, "/api/v1/auth/change-password", map[string]string{
		"current_password": "wrong-password-1",
		"new_password":     "brand-new-pass-9",
	}, cookies)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/auth/change-password", map[string]string{
		"current_password": "correct-horse-42",
		"new_password":     "brand-new-pass-9",
	}, cookies)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// The old password no longer authenticates
	w = doJSON(t, router, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": "firstuser",
		"password": "correct-horse-42",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": "firstuser",
		"password": "brand-new-pass-9",
	}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSessionFlow_AdminManagesAccounts(t *testing.T) {
	router := newTestRouter(t)
	adminCookies := signup(t, router, "firstuser")

	w := doJSON(t, router, http.MethodPost, "/api/v1/admin/users", map[string]string{
		"username":   "nightshift",
		"email":      "nightshift@example.com",
		"password":   "correct-horse-42",
		"first_name": "Sam",
		"last_name":  "Lee",
		"role":       "caregiver",
	}, adminCookies)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		ID   uint   `json:"id"`
		Role string `json:"role"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "caregiver", created.Role)

	// The provisioned account can log in right away
	w = doJSON(t, router, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": "nightshift",
		"password": "correct-horse-42",
	}, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/api/v1/admin/users/%d", created.ID), nil, adminCookies)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": "nightshift",
		"password": "correct-horse-42",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Sole admin cannot remove their own account
	w = doJSON(t, router, http.MethodGet, "/api/v1/auth/me", nil, adminCookies)
	require.Equal(t, http.StatusOK, w.Code)
	var me struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))

	w = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/api/v1/admin/users/%d", me.ID), nil, adminCookies)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestSessionFlow_AdminGate(t *testing.T) {
	router := newTestRouter(t)

	adminCookies := signup(t, router, "firstuser")
	caregiverCookies := signup(t, router, "seconduser")

	w := doJSON(t, router, http.MethodGet, "/api/v1/admin/users", nil, adminCookies)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/admin/users", nil, caregiverCookies)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSessionFlow_PatientLifecycleOverHTTP(t *testing.T) {
	router := newTestRouter(t)
	cookies := signup(t, router, "firstuser")

	w := doJSON(t, router, http.MethodPost, "/api/v1/patients", map[string]interface{}{
		"name":              "Alex Doe",
		"epilepsy_type":     "focal",
		"seizure_frequency": "monthly",
	}, cookies)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		ID        uint   `json:"id"`
		PatientID string `json:"patient_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "sub-01", created.PatientID)

	w = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/v1/patients/%d", created.ID), nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/patients", nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var health struct {
		Status  string `json:"status"`
		Service string `json:"service"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "safestep-service", health.Service)
}
