package dto

import (
	"time"

	"github.com/spec-kit/identity-service/internal/domain"
)

// RegisterRequest payload for new accounts.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username,omitempty"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Envelope wraps successful responses.
type Envelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// AccountSummary is the public account shape for register and login.
type AccountSummary struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Username   string `json:"username"`
	Membership string `json:"membership"`
	APIKey     string `json:"apiKey"`
}

// TokenPair carries issued session tokens.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// AuthResponse standard response for register and login.
type AuthResponse struct {
	User   AccountSummary `json:"user"`
	Tokens *TokenPair     `json:"tokens"`
}

// ProfileResponse is returned from the profile endpoint.
type ProfileResponse struct {
	AccountSummary
	Balance   float64   `json:"balance"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewAccountSummary maps the domain summary.
func NewAccountSummary(s domain.AccountSummary) AccountSummary {
	return AccountSummary{
		ID:         s.ID,
		Email:      s.Email,
		Username:   s.Username,
		Membership: string(s.Membership),
		APIKey:     s.APIKey,
	}
}

// NewAuthResponse maps a summary and token pair. A zero pair renders as null tokens.
func NewAuthResponse(summary domain.AccountSummary, tokens domain.TokenPair) AuthResponse {
	resp := AuthResponse{User: NewAccountSummary(summary)}
	if tokens.AccessToken != "" {
		resp.Tokens = &TokenPair{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}
	}
	return resp
}

// NewProfileResponse maps the domain profile.
func NewProfileResponse(p domain.Profile) ProfileResponse {
	return ProfileResponse{
		AccountSummary: NewAccountSummary(p.AccountSummary),
		Balance:        p.Balance,
		CreatedAt:      p.CreatedAt,
	}
}
