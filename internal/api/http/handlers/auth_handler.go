package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/identity-service/internal/api/dto"
	"github.com/spec-kit/identity-service/internal/auth"
	"github.com/spec-kit/identity-service/internal/domain"
	"github.com/spec-kit/identity-service/internal/service"
	apperrors "github.com/spec-kit/identity-service/pkg/util/errorutil"
)

// AuthService is the subset of service.AuthService the handler uses.
type AuthService interface {
	Register(ctx context.Context, in service.RegisterInput) (*service.AuthResult, error)
	Login(ctx context.Context, email, password string) (*service.AuthResult, error)
	GetProfile(ctx context.Context, accountID string) (*domain.Profile, error)
}

// AuthHandler exposes register, login and profile endpoints.
type AuthHandler struct {
	auth AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := req.Validate(); err != nil {
		return err
	}

	result, err := h.auth.Register(c.UserContext(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Username: req.Username,
	})
	if err != nil {
		if result != nil && errors.Is(err, apperrors.ErrTokenIssuanceFailed) {
			domainErr := apperrors.ToDomainError(err)
			return c.Status(http.StatusCreated).JSON(fiber.Map{
				"success": true,
				"data":    dto.NewAuthResponse(result.Account, result.Tokens),
				"error": fiber.Map{
					"code":    domainErr.Code,
					"message": domainErr.Message,
				},
			})
		}
		return err
	}

	return c.Status(http.StatusCreated).JSON(dto.Envelope{
		Success: true,
		Data:    dto.NewAuthResponse(result.Account, result.Tokens),
	})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := req.Validate(); err != nil {
		return err
	}

	result, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(dto.Envelope{
		Success: true,
		Data:    dto.NewAuthResponse(result.Account, result.Tokens),
	})
}

// Profile handles GET /auth/profile.
func (h *AuthHandler) Profile(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	profile, err := h.auth.GetProfile(c.UserContext(), principal.ID)
	if err != nil {
		return err
	}

	return c.JSON(dto.Envelope{Success: true, Data: dto.NewProfileResponse(*profile)})
}
