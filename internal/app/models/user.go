package models

import (
	"time"

	"github.com/google/uuid"
)

// Identity is an authenticated principal. Metadata may carry a claimed role under "role".
type Identity struct {
	ID           uuid.UUID              `json:"id" db:"id"`
	Email        string                 `json:"email" db:"email" example:"student@example.com"`
	PasswordHash string                 `json:"-" db:"password_hash"`
	FirstName    string                 `json:"firstName" db:"first_name" example:"Ayşe"`
	LastName     string                 `json:"lastName" db:"last_name" example:"Yılmaz"`
	Metadata     map[string]interface{} `json:"metadata,omitempty" db:"metadata"`
	ExternalID   *string                `json:"-" db:"external_id"` // subject at the OAuth provider
	CreatedAt    time.Time              `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time              `json:"updatedAt" db:"updated_at"`
}

// MetadataRole returns the role string claimed in metadata, if any
func (i *Identity) MetadataRole() string {
	if i == nil || i.Metadata == nil {
		return ""
	}
	if s, ok := i.Metadata["role"].(string); ok {
		return s
	}
	return ""
}

// Session is a refresh-token backed sign-in
type Session struct {
	ID           uuid.UUID  `db:"id"`
	IdentityID   uuid.UUID  `db:"identity_id"`
	RefreshToken string     `db:"refresh_token"`
	ExpiresAt    time.Time  `db:"expires_at"`
	RevokedAt    *time.Time `db:"revoked_at"`
	CreatedAt    time.Time  `db:"created_at"`
}

// Active reports whether the session can still mint tokens at t
func (s *Session) Active(t time.Time) bool {
	return s != nil && s.RevokedAt == nil && t.Before(s.ExpiresAt)
}
