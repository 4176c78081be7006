package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/identity-service/internal/api/http/handlers"
	"github.com/spec-kit/identity-service/internal/auth"
	"github.com/spec-kit/identity-service/internal/config"
	"github.com/spec-kit/identity-service/internal/observability"
	"github.com/spec-kit/identity-service/internal/persistence"
	"github.com/spec-kit/identity-service/internal/repository"
	"github.com/spec-kit/identity-service/internal/service"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type testServer struct {
	app     *fiber.App
	repo    *repository.MemoryAccountRepository
	metrics *observability.Metrics
}

func newTestServer(t *testing.T, deps map[string]handlers.Pinger) *testServer {
	t.Helper()
	repo := repository.NewMemoryAccountRepository()
	metrics := observability.NewMetrics()
	logger := zap.NewNop()

	authService, err := service.NewAuthService(config.AuthConfig{
		JWTSecret:        "access-secret",
		JWTRefreshSecret: "refresh-secret",
		BcryptCost:       bcrypt.MinCost,
	}, service.AuthDependencies{Accounts: repo, Metrics: metrics, Logger: logger})
	require.NoError(t, err)

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, MiddlewareConfig{AllowedOrigins: []string{"http://localhost:5173"}})
	RegisterRoutes(app, RouteConfig{
		APIPrefix:      "/api",
		Health:         handlers.NewHealthHandler("identity-service", "test", deps),
		Auth:           handlers.NewAuthHandler(authService),
		AuthMiddleware: auth.NewAuthMiddleware(authService),
	})
	return &testServer{app: app, repo: repo, metrics: metrics}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

type authData struct {
	User struct {
		ID         string `json:"id"`
		Email      string `json:"email"`
		Username   string `json:"username"`
		Membership string `json:"membership"`
		APIKey     string `json:"apiKey"`
	} `json:"user"`
	Tokens *struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	} `json:"tokens"`
}

func (s *testServer) do(t *testing.T, method, path string, body any, token string) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

func (s *testServer) register(t *testing.T, body map[string]string) authData {
	t.Helper()
	status, env := s.do(t, http.MethodPost, "/api/auth/register", body, "")
	require.Equal(t, http.StatusCreated, status)
	require.True(t, env.Success)
	var data authData
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t, nil)

	registered := s.register(t, map[string]string{"email": "a@x.com", "password": "secret1"})
	assert.NotEmpty(t, registered.User.ID)
	assert.Equal(t, "a", registered.User.Username)
	assert.Equal(t, "FREE", registered.User.Membership)
	assert.NotEmpty(t, registered.User.APIKey)
	require.NotNil(t, registered.Tokens)
	assert.NotEmpty(t, registered.Tokens.RefreshToken)

	status, env := s.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "a@x.com", "password": "secret1"}, "")
	require.Equal(t, http.StatusOK, status)
	var loggedIn authData
	require.NoError(t, json.Unmarshal(env.Data, &loggedIn))
	assert.Equal(t, registered.User, loggedIn.User)

	status, env = s.do(t, http.MethodGet, "/api/auth/profile", nil, loggedIn.Tokens.AccessToken)
	require.Equal(t, http.StatusOK, status)
	var profile map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &profile))
	assert.Equal(t, registered.User.ID, profile["id"])
	assert.Equal(t, "a@x.com", profile["email"])
	assert.Equal(t, registered.User.APIKey, profile["apiKey"])
	assert.Equal(t, float64(0), profile["balance"])
	assert.NotEmpty(t, profile["createdAt"])
	assert.NotContains(t, profile, "passwordHash")
}

func TestRegister_Errors(t *testing.T) {
	s := newTestServer(t, nil)
	s.register(t, map[string]string{"email": "dup@x.com", "password": "secret1"})

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantCode   string
	}{
		{"duplicate", map[string]string{"email": "dup@x.com", "password": "secret1"}, http.StatusConflict, "ACCOUNT_EXISTS"},
		{"missing email", map[string]string{"password": "secret1"}, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"malformed email", map[string]string{"email": "nope", "password": "secret1"}, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"short password", map[string]string{"email": "b@x.com", "password": "123"}, http.StatusBadRequest, "VALIDATION_FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := s.do(t, http.MethodPost, "/api/auth/register", tt.body, "")
			assert.Equal(t, tt.wantStatus, status)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.wantCode, env.Error.Code)
			assert.False(t, env.Success)
		})
	}
	assert.Equal(t, 1, s.repo.Len())
}

func TestLogin_Errors(t *testing.T) {
	s := newTestServer(t, nil)
	s.register(t, map[string]string{"email": "a@x.com", "password": "secret1"})

	statusWrong, wrong := s.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "a@x.com", "password": "bad-pw"}, "")
	statusUnknown, unknown := s.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "ghost@x.com", "password": "bad-pw"}, "")

	assert.Equal(t, http.StatusUnauthorized, statusWrong)
	assert.Equal(t, statusWrong, statusUnknown)
	require.NotNil(t, wrong.Error)
	require.NotNil(t, unknown.Error)
	assert.Equal(t, "INVALID_CREDENTIALS", wrong.Error.Code)
	assert.Equal(t, *wrong.Error, *unknown.Error)

	status, env := s.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "a@x.com"}, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)
}

func TestProfile_Rejections(t *testing.T) {
	s := newTestServer(t, nil)
	registered := s.register(t, map[string]string{"email": "a@x.com", "password": "secret1"})

	tests := []struct {
		name     string
		token    string
		wantCode string
	}{
		{"no token", "", "UNAUTHORIZED"},
		{"garbage token", "abc.def.ghi", "INVALID_OR_EXPIRED_TOKEN"},
		{"refresh token", registered.Tokens.RefreshToken, "INVALID_OR_EXPIRED_TOKEN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := s.do(t, http.MethodGet, "/api/auth/profile", nil, tt.token)
			assert.Equal(t, http.StatusUnauthorized, status)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.wantCode, env.Error.Code)
		})
	}

	s.repo.Delete(registered.User.ID)
	status, env := s.do(t, http.MethodGet, "/api/auth/profile", nil, registered.Tokens.AccessToken)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "INVALID_SESSION", env.Error.Code)
}

func TestUnknownRouteRendersJSON(t *testing.T) {
	s := newTestServer(t, nil)

	status, env := s.do(t, http.MethodGet, "/api/auth/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
}

func TestHealthChecks(t *testing.T) {
	t.Run("ready with disabled cache", func(t *testing.T) {
		s := newTestServer(t, map[string]handlers.Pinger{
			"postgres": stubPinger{},
			"redis":    stubPinger{err: persistence.ErrNotConfigured},
		})

		status, _ := s.do(t, http.MethodGet, "/health/live", nil, "")
		assert.Equal(t, http.StatusOK, status)

		req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
		resp, err := s.app.Test(req, -1)
		require.NoError(t, err)
		defer resp.Body.Close()
		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "ready", body["status"])
		assert.Equal(t, map[string]any{"postgres": "ok", "redis": "disabled"}, body["dependencies"])
	})

	t.Run("not ready when a dependency fails", func(t *testing.T) {
		s := newTestServer(t, map[string]handlers.Pinger{
			"postgres": stubPinger{err: errors.New("connection refused")},
		})

		status, env := s.do(t, http.MethodGet, "/health/ready", nil, "")
		assert.Equal(t, http.StatusServiceUnavailable, status)
		require.NotNil(t, env.Error)
		assert.Equal(t, "DEPENDENCY_UNAVAILABLE", env.Error.Code)
	})
}
