package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWT(now time.Time) *JWTService {
	return NewJWTService(JWTConfig{
		SecretKey:       "test-secret",
		AccessTokenExp:  time.Hour,
		RefreshTokenExp: 24 * time.Hour,
		TokenIssuer:     "univgates.test",
	}).WithClock(func() time.Time { return now })
}

func TestGenerateAndValidateAccessToken(t *testing.T) {
	svc := newTestJWT(time.Now())
	identityID, sessionID := uuid.New(), uuid.New()

	pair, err := svc.GenerateTokenPair(identityID, "student@example.com", sessionID)
	require.NoError(t, err)
	assert.Equal(t, 3600, pair.ExpiresIn)
	assert.NotEmpty(t, pair.RefreshToken)

	claims, err := svc.ValidateToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, identityID.String(), claims.IdentityID)
	assert.Equal(t, sessionID.String(), claims.SessionID)
	assert.Equal(t, "student@example.com", claims.Email)
}

func TestValidateToken_Expired(t *testing.T) {
	issued := time.Now().Add(-2 * time.Hour)
	pair, err := newTestJWT(issued).GenerateTokenPair(uuid.New(), "a", uuid.New())
	require.NoError(t, err)

	_, err = newTestJWT(time.Now()).ValidateToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestObjectTokenCannotAuthenticate(t *testing.T) {
	svc := newTestJWT(time.Now())
	token, _, err := svc.SignObjectPath("conversations/x/file.pdf", time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyObjectPath(t *testing.T) {
	now := time.Now()
	svc := newTestJWT(now)
	token, expires, err := svc.SignObjectPath("conversations/c1/a.png", 15*time.Minute)
	require.NoError(t, err)
	assert.WithinDuration(t, now.Add(15*time.Minute), expires, time.Second)

	assert.NoError(t, svc.VerifyObjectPath(token, "conversations/c1/a.png"))
	assert.ErrorIs(t, svc.VerifyObjectPath(token, "conversations/c2/a.png"), ErrInvalidToken)
	assert.ErrorIs(t, svc.VerifyObjectPath(token+"x", "conversations/c1/a.png"), ErrInvalidToken)

	later := newTestJWT(now.Add(time.Hour))
	assert.ErrorIs(t, later.VerifyObjectPath(token, "conversations/c1/a.png"), ErrExpiredToken)
}

func TestExtractBearerToken(t *testing.T) {
	tok, err := ExtractBearerToken("Bearer a.b.c")
	require.NoError(t, err)
	assert.Equal(t, "a.b.c", tok)

	_, err = ExtractBearerToken("Bearer nodots")
	assert.ErrorIs(t, err, ErrInvalidFormat)

	_, err = ExtractBearerToken("")
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "wrong"))
	assert.False(t, CheckPassword("", "anything"))
}
