package models

import (
	"time"

	"github.com/google/uuid"
)

// AuthEventType names an auth-state change
type AuthEventType string

const (
	AuthEventSignedIn       AuthEventType = "signed_in"
	AuthEventSignedOut      AuthEventType = "signed_out"
	AuthEventTokenRefreshed AuthEventType = "token_refreshed"
	AuthEventUserUpdated    AuthEventType = "user_updated"
	AuthEventUserDeleted    AuthEventType = "user_deleted"
)

// AuthEvent is published on the auth.events topic whenever a session or the
// role data behind it changes
type AuthEvent struct {
	Type       AuthEventType `json:"type"`
	IdentityID uuid.UUID     `json:"identityId"`
	SessionID  *uuid.UUID    `json:"sessionId,omitempty"`
	At         time.Time     `json:"at"`
}
