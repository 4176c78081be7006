package events

import (
	"time"

	"github.com/spec-kit/identity-service/internal/domain"
)

// EventType names a domain event.
type EventType string

// EventAccountRegistered fires once per successfully created account.
const EventAccountRegistered EventType = "account_registered"

// Event is a domain event emitted by services. Payloads never carry
// password digests, tokens or api keys.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	AccountID string    `json:"account_id"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// AccountRegisteredPayload describes the new account.
type AccountRegisteredPayload struct {
	Email      string                `json:"email"`
	Username   string                `json:"username"`
	Membership domain.MembershipTier `json:"membership"`
}
