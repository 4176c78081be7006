package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/identity-service/internal/domain"
	"github.com/spec-kit/identity-service/internal/service"
	apperrors "github.com/spec-kit/identity-service/pkg/util/errorutil"
)

type fakeAuthService struct {
	registerResult *service.AuthResult
	registerErr    error
	lastRegister   service.RegisterInput
}

func (f *fakeAuthService) Register(_ context.Context, in service.RegisterInput) (*service.AuthResult, error) {
	f.lastRegister = in
	return f.registerResult, f.registerErr
}

func (f *fakeAuthService) Login(context.Context, string, string) (*service.AuthResult, error) {
	return nil, apperrors.NewInvalidCredentials()
}

func (f *fakeAuthService) GetProfile(context.Context, string) (*domain.Profile, error) {
	return nil, apperrors.NewInvalidSession()
}

func newHandlerApp(svc AuthService) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			domainErr := apperrors.ToDomainError(err)
			return c.Status(domainErr.HTTPStatus).SendString(domainErr.Code)
		},
	})
	h := NewAuthHandler(svc)
	app.Post("/register", h.Register)
	app.Post("/login", h.Login)
	app.Get("/profile", h.Profile)
	return app
}

func post(t *testing.T, app *fiber.App, path, body string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(raw)
}

func TestAuthHandler_RegisterPassesInput(t *testing.T) {
	svc := &fakeAuthService{registerResult: &service.AuthResult{
		Account: domain.AccountSummary{ID: "id-1", Email: "a@x.com", Username: "al", Membership: domain.MembershipFree, APIKey: "ainb_k"},
		Tokens:  domain.TokenPair{AccessToken: "at", RefreshToken: "rt"},
	}}
	app := newHandlerApp(svc)

	status, body := post(t, app, "/register", `{"email":"a@x.com","password":"secret1","username":"al"}`)
	assert.Equal(t, http.StatusCreated, status)
	assert.JSONEq(t, `{"success":true,"data":{"user":{"id":"id-1","email":"a@x.com","username":"al","membership":"FREE","apiKey":"ainb_k"},"tokens":{"accessToken":"at","refreshToken":"rt"}}}`, body)
	assert.Equal(t, service.RegisterInput{Email: "a@x.com", Password: "secret1", Username: "al"}, svc.lastRegister)
}

func TestAuthHandler_RegisterTokenIssuanceFailure(t *testing.T) {
	svc := &fakeAuthService{
		registerResult: &service.AuthResult{Account: domain.AccountSummary{ID: "id-1", Email: "a@x.com", Username: "a", Membership: domain.MembershipFree, APIKey: "ainb_k"}},
		registerErr:    apperrors.NewTokenIssuanceFailed(errors.New("signer down")),
	}
	app := newHandlerApp(svc)

	status, body := post(t, app, "/register", `{"email":"a@x.com","password":"secret1"}`)
	assert.Equal(t, http.StatusCreated, status)
	assert.JSONEq(t, `{
		"success": true,
		"data": {"user":{"id":"id-1","email":"a@x.com","username":"a","membership":"FREE","apiKey":"ainb_k"},"tokens":null},
		"error": {"code":"TOKEN_ISSUANCE_FAILED","message":"account created but session tokens could not be issued"}
	}`, body)
}

func TestAuthHandler_RegisterRejectsBadPayload(t *testing.T) {
	svc := &fakeAuthService{}
	app := newHandlerApp(svc)

	status, body := post(t, app, "/register", `{"email":`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, apperrors.CodeValidationFailed, body)
	assert.Empty(t, svc.lastRegister.Email)
}

func TestAuthHandler_LoginPropagatesServiceError(t *testing.T) {
	app := newHandlerApp(&fakeAuthService{})

	status, body := post(t, app, "/login", `{"email":"a@x.com","password":"whatever"}`)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, apperrors.CodeInvalidCredentials, body)
}

func TestAuthHandler_ProfileRequiresPrincipal(t *testing.T) {
	app := newHandlerApp(&fakeAuthService{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/profile", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
