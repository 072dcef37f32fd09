package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/univgates1-stack/univgates-sub001/internal/app/models"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/apperrors"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/auth"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/oauth"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/realtime"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/validation"
)

// OAuthProvider is the external identity provider
type OAuthProvider interface {
	AuthorizeURL() string
	Exchange(ctx context.Context, code string) (*oauth.Profile, error)
}

// SignUpInput is a password registration
type SignUpInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      models.Role
}

// AuthService handles sign-up, sign-in and session lifecycle
type AuthService struct {
	identities IdentityStore
	jwtService *auth.JWTService
	provider   OAuthProvider
	events     EventPublisher
	logger     zerolog.Logger
	now        func() time.Time
}

// NewAuthService creates a new AuthService. provider may be nil when OAuth
// sign-in is not configured.
func NewAuthService(
	identities IdentityStore,
	jwtService *auth.JWTService,
	provider OAuthProvider,
	events EventPublisher,
	logger zerolog.Logger,
) *AuthService {
	return &AuthService{
		identities: identities,
		jwtService: jwtService,
		provider:   provider,
		events:     events,
		logger:     logger.With().Str("component", "auth").Logger(),
		now:        time.Now,
	}
}

// validatePassword checks length and that letters and digits are mixed
func validatePassword(password string) error {
	if len(password) < validation.PasswordMinLength {
		return apperrors.NewBadRequestError("Password must be at least 8 characters long")
	}
	if !validation.IsStrongPassword(password) {
		return apperrors.NewBadRequestError("Password must contain at least one letter and one digit")
	}
	return nil
}

// SignUp registers a password identity. Students get an incomplete profile row
// and officials a pending official row in the same transaction, so that the
// first redirect sends them into onboarding.
func (s *AuthService) SignUp(ctx context.Context, in SignUpInput) (*SessionResult, error) {
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	switch in.Role {
	case models.RoleStudent, models.RoleAgent, models.RoleUniversityOfficial:
	default:
		return nil, apperrors.NewBadRequestError("Role must be student, agent or university_official")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	identity := &models.Identity{
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Metadata:     map[string]interface{}{"role": string(in.Role)},
	}
	if err := s.identities.Register(ctx, identity, in.Role); err != nil {
		return nil, err
	}

	s.logger.Info().Str("identity_id", identity.ID.String()).Str("role", string(in.Role)).Msg("Identity registered")
	return s.startSession(ctx, identity)
}

// SignIn authenticates with email and password
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*SessionResult, error) {
	identity, err := s.identities.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}
	if !auth.CheckPassword(identity.PasswordHash, password) {
		return nil, apperrors.ErrInvalidCredentials
	}
	return s.startSession(ctx, identity)
}

// AuthorizeURL is where the client sends the browser for OAuth sign-in
func (s *AuthService) AuthorizeURL() (string, error) {
	if s.provider == nil {
		return "", apperrors.NewCustomError(apperrors.ErrOAuthExchange, "OAuth sign-in is not configured")
	}
	return s.provider.AuthorizeURL(), nil
}

// ExchangeCode redeems an OAuth authorization code and opens a session for the
// identity it belongs to, creating the identity on first sign-in
func (s *AuthService) ExchangeCode(ctx context.Context, code string) (*SessionResult, error) {
	if s.provider == nil {
		return nil, apperrors.NewCustomError(apperrors.ErrOAuthExchange, "OAuth sign-in is not configured")
	}
	profile, err := s.provider.Exchange(ctx, code)
	if err != nil {
		return nil, apperrors.NewCustomError(fmt.Errorf("%w: %v", apperrors.ErrOAuthExchange, err), "Could not complete sign-in")
	}

	metadata := map[string]interface{}{}
	if role := models.ParseRole(profile.Role); role != models.RoleNone {
		metadata["role"] = string(role)
	}
	externalID := profile.ExternalID
	identity, err := s.identities.UpsertExternal(ctx, &models.Identity{
		Email:      profile.Email,
		FirstName:  profile.FirstName,
		LastName:   profile.LastName,
		Metadata:   metadata,
		ExternalID: &externalID,
	})
	if err != nil {
		return nil, err
	}
	return s.startSession(ctx, identity)
}

// AdoptTokens accepts an access/refresh pair handed back in a redirect URL, after
// checking that both belong to the same live session
func (s *AuthService) AdoptTokens(ctx context.Context, accessToken, refreshToken string) (*SessionResult, error) {
	claims, err := s.jwtService.ValidateToken(accessToken)
	if err != nil {
		return nil, mapTokenError(err)
	}
	session, err := s.activeSession(ctx, claims)
	if err != nil {
		return nil, err
	}
	if refreshToken != "" && refreshToken != session.RefreshToken {
		return nil, apperrors.ErrTokenInvalid
	}
	identity, err := s.identities.GetByID(ctx, session.IdentityID)
	if err != nil {
		return nil, err
	}
	return &SessionResult{
		Identity:  identity,
		SessionID: session.ID,
		Tokens: &auth.TokenPair{
			AccessToken:      accessToken,
			RefreshToken:     refreshToken,
			ExpiresIn:        int(claims.ExpiresAt.Time.Sub(s.now()).Seconds()),
			RefreshExpiresIn: int(session.ExpiresAt.Sub(s.now()).Seconds()),
		},
	}, nil
}

// Refresh rotates the refresh token and mints a new access token
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*SessionResult, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, apperrors.ErrTokenInvalid
	}
	session, err := s.identities.GetSessionByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, apperrors.ErrNoSession) {
			return nil, apperrors.ErrTokenInvalid
		}
		return nil, err
	}
	if session.RevokedAt != nil {
		return nil, apperrors.ErrTokenRevoked
	}
	if !session.Active(s.now()) {
		return nil, apperrors.ErrTokenExpired
	}

	identity, err := s.identities.GetByID(ctx, session.IdentityID)
	if err != nil {
		return nil, err
	}
	pair, err := s.jwtService.GenerateTokenPair(identity.ID, identity.Email, session.ID)
	if err != nil {
		return nil, err
	}
	if err := s.identities.RotateRefreshToken(ctx, session.ID, pair.RefreshToken, s.jwtService.RefreshTokenExpiry()); err != nil {
		return nil, err
	}

	s.publish(models.AuthEventTokenRefreshed, identity.ID, &session.ID)
	return &SessionResult{Identity: identity, SessionID: session.ID, Tokens: pair}, nil
}

// SignOut revokes the session
func (s *AuthService) SignOut(ctx context.Context, identityID, sessionID uuid.UUID) error {
	if err := s.identities.RevokeSession(ctx, sessionID); err != nil {
		return err
	}
	s.publish(models.AuthEventSignedOut, identityID, &sessionID)
	return nil
}

// Authenticate validates an access token and checks its session is still live
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*auth.Claims, error) {
	claims, err := s.jwtService.ValidateToken(accessToken)
	if err != nil {
		return nil, mapTokenError(err)
	}
	if _, err := s.activeSession(ctx, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// Session returns the identity and session behind an authenticated request
func (s *AuthService) Session(ctx context.Context, identityID, sessionID uuid.UUID) (*models.Identity, *models.Session, error) {
	session, err := s.identities.GetSession(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if session.IdentityID != identityID || !session.Active(s.now()) {
		return nil, nil, apperrors.ErrNoSession
	}
	identity, err := s.identities.GetByID(ctx, identityID)
	if err != nil {
		return nil, nil, err
	}
	return identity, session, nil
}

func (s *AuthService) activeSession(ctx context.Context, claims *auth.Claims) (*models.Session, error) {
	sessionID, err := uuid.Parse(claims.SessionID)
	if err != nil {
		return nil, apperrors.ErrTokenInvalid
	}
	session, err := s.identities.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.IdentityID.String() != claims.IdentityID {
		return nil, apperrors.ErrTokenInvalid
	}
	if session.RevokedAt != nil {
		return nil, apperrors.ErrTokenRevoked
	}
	if !session.Active(s.now()) {
		return nil, apperrors.ErrTokenExpired
	}
	return session, nil
}

func (s *AuthService) startSession(ctx context.Context, identity *models.Identity) (*SessionResult, error) {
	sessionID := uuid.New()
	pair, err := s.jwtService.GenerateTokenPair(identity.ID, identity.Email, sessionID)
	if err != nil {
		return nil, err
	}
	session := &models.Session{
		ID:           sessionID,
		IdentityID:   identity.ID,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    s.jwtService.RefreshTokenExpiry(),
	}
	if err := s.identities.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	s.publish(models.AuthEventSignedIn, identity.ID, &session.ID)
	return &SessionResult{Identity: identity, SessionID: session.ID, Tokens: pair}, nil
}

// publish announces an auth-state change. Failures are logged: role caches
// expire on their own.
func (s *AuthService) publish(typ models.AuthEventType, identityID uuid.UUID, sessionID *uuid.UUID) {
	publishAuthEvent(s.events, s.logger, typ, identityID, sessionID, s.now())
}

func publishAuthEvent(events EventPublisher, logger zerolog.Logger, typ models.AuthEventType, identityID uuid.UUID, sessionID *uuid.UUID, at time.Time) {
	if events == nil {
		return
	}
	ev := models.AuthEvent{Type: typ, IdentityID: identityID, SessionID: sessionID, At: at}
	if err := events.Publish(realtime.TopicAuthEvents, identityID.String(), "", ev); err != nil {
		logger.Warn().Err(err).Str("identity_id", identityID.String()).Str("event", string(typ)).Msg("Failed to publish auth event")
	}
}

func mapTokenError(err error) error {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return apperrors.ErrTokenExpired
	default:
		return apperrors.ErrTokenInvalid
	}
}
