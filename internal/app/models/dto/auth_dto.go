package dto

import (
	"github.com/google/uuid"
	"github.com/univgates1-stack/univgates-sub001/internal/app/models"
)

// SignUpRequest is a password registration
type SignUpRequest struct {
	Email     string      `json:"email" binding:"required,email"`
	Password  string      `json:"password" binding:"required,min=8"`
	FirstName string      `json:"firstName" binding:"required"`
	LastName  string      `json:"lastName" binding:"required"`
	Role      models.Role `json:"role" binding:"required,oneof=student agent university_official" example:"student"`
}

// SignInRequest represents login credentials
type SignInRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RefreshTokenRequest represents refresh token request
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// CallbackRequest carries the full URL the browser landed on after the provider
// redirect, including query and fragment
type CallbackRequest struct {
	URL string `json:"url" binding:"required" example:"https://app.example.com/auth?code=abc123"`
}

// TokenResponse represents JWT token information
type TokenResponse struct {
	AccessToken           string `json:"accessToken"`
	TokenType             string `json:"tokenType" example:"Bearer"`
	ExpiresIn             int64  `json:"expiresIn"`
	RefreshToken          string `json:"refreshToken,omitempty"`
	RefreshTokenExpiresIn int64  `json:"refreshTokenExpiresIn,omitempty"`
}

// AuthResponse represents successful authentication response
type AuthResponse struct {
	Token     TokenResponse    `json:"token"`
	SessionID uuid.UUID        `json:"sessionId"`
	User      IdentityResponse `json:"user"`
}

// OAuthURLResponse is where the browser goes to start OAuth sign-in
type OAuthURLResponse struct {
	URL string `json:"url"`
}

// CallbackResponse is the outcome of processing an auth callback URL
type CallbackResponse struct {
	SanitizedURL  string        `json:"sanitizedUrl"`
	State         string        `json:"state" example:"idle"`
	Session       *AuthResponse `json:"session,omitempty"`
	Role          models.Role   `json:"role,omitempty"`
	Destination   string        `json:"destination,omitempty" example:"/dashboard"`
	Redirect      bool          `json:"redirect"`
	ProviderError string        `json:"providerError,omitempty"`
}

// SessionResponse is the signed-in identity and its session
type SessionResponse struct {
	SessionID uuid.UUID             `json:"sessionId"`
	ExpiresAt string                `json:"expiresAt"`
	User      IdentityResponse      `json:"user"`
	Role      models.RoleResolution `json:"role"`
}

// RedirectResponse tells the client where the current identity belongs
type RedirectResponse struct {
	Role        models.Role `json:"role"`
	Destination string      `json:"destination" example:"/onboarding"`
	Redirect    bool        `json:"redirect"`
	Skipped     bool        `json:"skipped,omitempty"`
}
