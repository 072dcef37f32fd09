package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/univgates1-stack/univgates-sub001/internal/app/models"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/apperrors"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/auth"
)

// Context keys set by JWTAuth and RoleRequired
const (
	ContextIdentityID = "identityID"
	ContextSessionID  = "sessionID"
	ContextEmail      = "email"
	ContextRole       = "roleResolution"
)

// Authenticator validates an access token against its live session
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*auth.Claims, error)
}

// RoleSource yields the cached role resolution of an identity
type RoleSource interface {
	Get(ctx context.Context, identityID uuid.UUID) models.RoleResolution
}

// AuthMiddleware for authentication and authorization
type AuthMiddleware struct {
	authenticator Authenticator
	roles         RoleSource
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(authenticator Authenticator, roles RoleSource) *AuthMiddleware {
	return &AuthMiddleware{
		authenticator: authenticator,
		roles:         roles,
	}
}

// tokenFromRequest reads the bearer token. Browsers cannot set headers on
// websocket upgrades, so access_token in the query is accepted as well.
func tokenFromRequest(c *gin.Context) (string, error) {
	if header := c.GetHeader("Authorization"); header != "" {
		token, err := auth.ExtractBearerToken(strings.Trim(header, "\"'"))
		if err != nil {
			return "", apperrors.NewCustomError(apperrors.ErrTokenInvalid, "Invalid token format")
		}
		return token, nil
	}
	if token := c.Query("access_token"); token != "" {
		return token, nil
	}
	return "", apperrors.NewCustomError(apperrors.ErrNoSession, "Authentication required").
		WithDetails(map[string]interface{}{"reason": "Authorization header missing"})
}

func (m *AuthMiddleware) authenticate(c *gin.Context) error {
	token, err := tokenFromRequest(c)
	if err != nil {
		return err
	}

	claims, err := m.authenticator.Authenticate(c.Request.Context(), token)
	if err != nil {
		return err
	}

	identityID, err := uuid.Parse(claims.IdentityID)
	if err != nil {
		return apperrors.ErrTokenInvalid
	}
	sessionID, err := uuid.Parse(claims.SessionID)
	if err != nil {
		return apperrors.ErrTokenInvalid
	}

	c.Set(ContextIdentityID, identityID)
	c.Set(ContextSessionID, sessionID)
	c.Set(ContextEmail, claims.Email)
	return nil
}

// JWTAuth middleware for JWT token validation
func (m *AuthMiddleware) JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := m.authenticate(c); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

// OptionalJWTAuth sets the identity when a valid token is present and
// otherwise continues anonymously
func (m *AuthMiddleware) OptionalJWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		_ = m.authenticate(c)
		c.Next()
	}
}

// RoleRequired lets the request through only when the identity resolves to one
// of roles. The resolution is left in the context for handlers.
func (m *AuthMiddleware) RoleRequired(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		identityID, ok := IdentityID(c)
		if !ok {
			AbortWithError(c, apperrors.ErrNoSession)
			return
		}

		res := m.roles.Get(c.Request.Context(), identityID)
		c.Set(ContextRole, res)
		for _, r := range roles {
			if res.Role == r {
				c.Next()
				return
			}
		}
		AbortWithError(c, apperrors.NewForbiddenError("You don't have sufficient permissions for this operation"))
	}
}

// IdentityID returns the authenticated identity
func IdentityID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ContextIdentityID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// SessionID returns the session behind the access token
func SessionID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ContextSessionID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// Resolution returns the role resolution stored by RoleRequired
func Resolution(c *gin.Context) (models.RoleResolution, bool) {
	v, ok := c.Get(ContextRole)
	if !ok {
		return models.RoleResolution{}, false
	}
	res, ok := v.(models.RoleResolution)
	return res, ok
}
