package domain

import (
	"strings"
	"time"
)

// MembershipTier classifies an account for entitlements elsewhere in the product.
type MembershipTier string

const (
	MembershipFree       MembershipTier = "FREE"
	MembershipPro        MembershipTier = "PRO"
	MembershipEnterprise MembershipTier = "ENTERPRISE"
)

// Account is the durable identity record keyed by email.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	Username     string
	APIKey       string
	Membership   MembershipTier
	Balance      float64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AccountSummary is the public view returned from register and login.
type AccountSummary struct {
	ID         string
	Email      string
	Username   string
	Membership MembershipTier
	APIKey     string
}

// Profile is the public view returned from profile retrieval.
type Profile struct {
	AccountSummary
	Balance   float64
	CreatedAt time.Time
}

// Summary strips the account down to its public fields.
func (a *Account) Summary() AccountSummary {
	return AccountSummary{
		ID:         a.ID,
		Email:      a.Email,
		Username:   a.Username,
		Membership: a.Membership,
		APIKey:     a.APIKey,
	}
}

// Profile returns the account's profile view.
func (a *Account) Profile() Profile {
	return Profile{
		AccountSummary: a.Summary(),
		Balance:        a.Balance,
		CreatedAt:      a.CreatedAt,
	}
}

// DefaultUsername returns the local part of email, or the whole string when it has no '@'.
func DefaultUsername(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}
