package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/univgates1-stack/univgates-sub001/internal/app/models"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/apperrors"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/auth"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/oauth"
)

type stubProvider struct {
	profile *oauth.Profile
	err     error
}

func (p *stubProvider) AuthorizeURL() string { return "https://sso.example.com/login/oauth/authorize" }

func (p *stubProvider) Exchange(_ context.Context, _ string) (*oauth.Profile, error) {
	return p.profile, p.err
}

type authFixture struct {
	svc        *AuthService
	identities *memIdentities
	profiles   *memProfiles
	events     *recordingPublisher
	provider   *stubProvider
}

func newAuthFixture() *authFixture {
	identities := newMemIdentities()
	profiles := newMemProfiles()
	identities.rows = profiles
	events := &recordingPublisher{}
	provider := &stubProvider{profile: &oauth.Profile{
		ExternalID: "casdoor-42", Email: "sso@example.com", FirstName: "Sso", LastName: "User", Role: "official",
	}}
	jwt := auth.NewJWTService(auth.JWTConfig{
		SecretKey: "test-secret", AccessTokenExp: time.Hour, RefreshTokenExp: 24 * time.Hour, TokenIssuer: "test",
	})
	svc := NewAuthService(identities, jwt, provider, events, zerolog.Nop())
	return &authFixture{svc: svc, identities: identities, profiles: profiles, events: events, provider: provider}
}

func TestSignUp_Student(t *testing.T) {
	f := newAuthFixture()

	res, err := f.svc.SignUp(context.Background(), SignUpInput{
		Email: " Ada@Example.com ", Password: "secret123", FirstName: "Ada", LastName: "Lovelace", Role: models.RoleStudent,
	})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", res.Identity.Email)
	assert.Equal(t, "student", res.Identity.MetadataRole())
	assert.NotEmpty(t, res.Tokens.AccessToken)

	student, err := f.profiles.FindStudent(context.Background(), res.Identity.ID)
	require.NoError(t, err)
	require.NotNil(t, student)
	assert.Equal(t, models.StagePersonal, student.Stage())
	assert.Equal(t, 1, f.events.authEvents(models.AuthEventSignedIn))
}

func TestSignUp_Validation(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	_, err := f.svc.SignUp(ctx, SignUpInput{Email: "a@example.com", Password: "short1", Role: models.RoleStudent})
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)
	_, err = f.svc.SignUp(ctx, SignUpInput{Email: "a@example.com", Password: "lettersonly", Role: models.RoleStudent})
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)
	_, err = f.svc.SignUp(ctx, SignUpInput{Email: "a@example.com", Password: "secret123", Role: models.RoleAdministrator})
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)
}

func TestSignUp_OfficialGetsPendingRow(t *testing.T) {
	f := newAuthFixture()

	res, err := f.svc.SignUp(context.Background(), SignUpInput{
		Email: "staff@uni.edu", Password: "secret123", Role: models.RoleUniversityOfficial,
	})
	require.NoError(t, err)
	official, err := f.profiles.FindOfficial(context.Background(), res.Identity.ID)
	require.NoError(t, err)
	require.NotNil(t, official)
	assert.Equal(t, models.OfficialStatusPending, official.Status)
}

func TestSignUp_FailedRegistrationStartsNoSession(t *testing.T) {
	f := newAuthFixture()
	f.identities.regErr = errors.New("insert into students: connection reset")

	_, err := f.svc.SignUp(context.Background(), SignUpInput{
		Email: "ada@example.com", Password: "secret123", Role: models.RoleStudent,
	})
	require.Error(t, err)

	_, err = f.identities.GetByEmail(context.Background(), "ada@example.com")
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)
	assert.Empty(t, f.profiles.students)
	assert.Empty(t, f.identities.sessions)
	assert.Zero(t, f.events.authEvents(models.AuthEventSignedIn))
}

func TestSignIn(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	_, err := f.svc.SignUp(ctx, SignUpInput{Email: "ada@example.com", Password: "secret123", Role: models.RoleAgent})
	require.NoError(t, err)

	_, err = f.svc.SignIn(ctx, "ada@example.com", "wrong-pass1")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	_, err = f.svc.SignIn(ctx, "nobody@example.com", "secret123")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	res, err := f.svc.SignIn(ctx, "ada@example.com", "secret123")
	require.NoError(t, err)
	claims, err := f.svc.Authenticate(ctx, res.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, res.SessionID.String(), claims.SessionID)
}

func TestRefreshRotatesAndSignOutRevokes(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	res, err := f.svc.SignUp(ctx, SignUpInput{Email: "ada@example.com", Password: "secret123", Role: models.RoleStudent})
	require.NoError(t, err)

	refreshed, err := f.svc.Refresh(ctx, res.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, res.Tokens.RefreshToken, refreshed.Tokens.RefreshToken)
	assert.Equal(t, res.SessionID, refreshed.SessionID)

	_, err = f.svc.Refresh(ctx, res.Tokens.RefreshToken)
	assert.ErrorIs(t, err, apperrors.ErrTokenInvalid)

	require.NoError(t, f.svc.SignOut(ctx, refreshed.Identity.ID, refreshed.SessionID))
	_, err = f.svc.Authenticate(ctx, refreshed.Tokens.AccessToken)
	assert.ErrorIs(t, err, apperrors.ErrTokenRevoked)
	_, err = f.svc.Refresh(ctx, refreshed.Tokens.RefreshToken)
	assert.ErrorIs(t, err, apperrors.ErrTokenRevoked)

	assert.Equal(t, 1, f.events.authEvents(models.AuthEventTokenRefreshed))
	assert.Equal(t, 1, f.events.authEvents(models.AuthEventSignedOut))
}

func TestExchangeCode(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	first, err := f.svc.ExchangeCode(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "sso@example.com", first.Identity.Email)
	assert.Equal(t, "university_official", first.Identity.MetadataRole())

	second, err := f.svc.ExchangeCode(ctx, "def456")
	require.NoError(t, err)
	assert.Equal(t, first.Identity.ID, second.Identity.ID)
	assert.NotEqual(t, first.SessionID, second.SessionID)

	f.provider.err = errors.New("invalid_grant")
	_, err = f.svc.ExchangeCode(ctx, "stale")
	assert.ErrorIs(t, err, apperrors.ErrOAuthExchange)
}

func TestAdoptTokens(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	res, err := f.svc.SignUp(ctx, SignUpInput{Email: "ada@example.com", Password: "secret123", Role: models.RoleStudent})
	require.NoError(t, err)

	adopted, err := f.svc.AdoptTokens(ctx, res.Tokens.AccessToken, res.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, res.SessionID, adopted.SessionID)
	assert.Greater(t, adopted.Tokens.ExpiresIn, 0)

	_, err = f.svc.AdoptTokens(ctx, res.Tokens.AccessToken, "forged")
	assert.ErrorIs(t, err, apperrors.ErrTokenInvalid)
	_, err = f.svc.AdoptTokens(ctx, "not-a-jwt", "")
	assert.ErrorIs(t, err, apperrors.ErrTokenInvalid)
}
