package dto

import (
	"strings"

	apperrors "github.com/spec-kit/identity-service/pkg/util/errorutil"
)

const (
	minPasswordLength = 6
	// bcrypt ignores input beyond 72 bytes.
	maxPasswordBytes  = 72
	maxUsernameLength = 64
)

// Validate checks the register payload shape.
func (r RegisterRequest) Validate() error {
	details := map[string]any{}
	validateEmail(r.Email, details)
	validatePassword(r.Password, details)
	if len([]rune(strings.TrimSpace(r.Username))) > maxUsernameLength {
		details["username"] = "must be at most 64 characters"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid registration payload", details)
	}
	return nil
}

// Validate checks the login payload shape.
func (r LoginRequest) Validate() error {
	details := map[string]any{}
	if r.Email == "" {
		details["email"] = "is required"
	}
	if r.Password == "" {
		details["password"] = "is required"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("email and password required", details)
	}
	return nil
}

func validateEmail(email string, details map[string]any) {
	if email == "" {
		details["email"] = "is required"
		return
	}
	local, domainPart, ok := strings.Cut(email, "@")
	if !ok || local == "" || domainPart == "" || strings.Contains(domainPart, "@") || strings.ContainsAny(email, " \t\r\n") {
		details["email"] = "must be a valid email address"
	}
}

func validatePassword(password string, details map[string]any) {
	switch {
	case password == "":
		details["password"] = "is required"
	case len([]rune(password)) < minPasswordLength:
		details["password"] = "must be at least 6 characters"
	case len(password) > maxPasswordBytes:
		details["password"] = "must be at most 72 bytes"
	}
}
