package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/univgates1-stack/univgates-sub001/internal/app/models"
	"github.com/univgates1-stack/univgates-sub001/internal/app/models/dto"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/apperrors"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   dto.ErrorCode
	}{
		{"duplicate application", apperrors.NewDuplicateApplicationError("a1", "/dashboard/applications"), http.StatusConflict, dto.ErrorCodeDuplicateApplication},
		{"save in progress", apperrors.ErrSaveInProgress, http.StatusConflict, dto.ErrorCodeSaveInProgress},
		{"wrapped not found", fmt.Errorf("loading: %w", apperrors.NewResourceNotFoundError("Program not found")), http.StatusNotFound, dto.ErrorCodeResourceNotFound},
		{"policy email", apperrors.NewPolicyViolationError("MESSAGE_CONTAINS_EMAIL"), http.StatusUnprocessableEntity, "MESSAGE_CONTAINS_EMAIL"},
		{"not a participant", apperrors.ErrNotAParticipant, http.StatusForbidden, dto.ErrorCodeNotParticipant},
		{"official deletion", apperrors.NewCustomError(apperrors.ErrOfficialDeletionForbidden, "nope").WithCode("OFFICIAL_DELETION_FORBIDDEN"), http.StatusForbidden, dto.ErrorCodeOfficialDeletion},
		{"expired link", apperrors.ErrSignedURLExpired, http.StatusGone, dto.ErrorCodeLinkExpired},
		{"revoked token", apperrors.ErrTokenRevoked, http.StatusUnauthorized, dto.ErrorCodeTokenRevoked},
		{"bad request", apperrors.NewBadRequestError("Invalid id"), http.StatusBadRequest, dto.ErrorCodeInvalidRequest},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, dto.ErrorCodeInternalServer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, detail := ErrorStatus(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, detail.Code)
		})
	}
}

func TestErrorStatus_DuplicateCarriesRedirect(t *testing.T) {
	_, detail := ErrorStatus(apperrors.NewDuplicateApplicationError("a1", "/dashboard/applications"))
	details, ok := detail.Details.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "/dashboard/applications", details["redirectTo"])
	assert.Equal(t, "a1", details["applicationId"])
	assert.Equal(t, "You have already applied to this program", detail.Message)
}

type stubAuthenticator struct {
	claims *auth.Claims
	err    error
}

func (s stubAuthenticator) Authenticate(_ context.Context, token string) (*auth.Claims, error) {
	if token != "good" {
		return nil, apperrors.ErrTokenInvalid
	}
	return s.claims, s.err
}

type stubRoles map[uuid.UUID]models.Role

func (s stubRoles) Get(_ context.Context, id uuid.UUID) models.RoleResolution {
	role := s[id]
	return models.RoleResolution{IdentityID: id, Role: role, Source: models.RoleSourceTable}
}

func newAuthRouter(a Authenticator, roles RoleSource) *gin.Engine {
	m := NewAuthMiddleware(a, roles)
	r := gin.New()
	r.Use(RequestLogger(zerolog.Nop()))
	r.GET("/me", m.JWTAuth(), func(c *gin.Context) {
		id, _ := IdentityID(c)
		sid, _ := SessionID(c)
		c.JSON(http.StatusOK, gin.H{"identity": id, "session": sid})
	})
	r.GET("/admin", m.JWTAuth(), m.RoleRequired(models.RoleAdministrator), func(c *gin.Context) {
		res, _ := Resolution(c)
		c.JSON(http.StatusOK, gin.H{"role": res.Role})
	})
	r.GET("/maybe", m.OptionalJWTAuth(), func(c *gin.Context) {
		_, ok := IdentityID(c)
		c.JSON(http.StatusOK, gin.H{"authenticated": ok})
	})
	return r
}

func TestJWTAuth(t *testing.T) {
	identity, session := uuid.New(), uuid.New()
	a := stubAuthenticator{claims: &auth.Claims{IdentityID: identity.String(), SessionID: session.String()}}
	r := newAuthRouter(a, stubRoles{})

	tests := []struct {
		name   string
		setup  func(*http.Request)
		status int
	}{
		{"header", func(req *http.Request) { req.Header.Set("Authorization", "Bearer good") }, http.StatusOK},
		{"query token", func(req *http.Request) { req.URL.RawQuery = "access_token=good" }, http.StatusOK},
		{"missing", func(*http.Request) {}, http.StatusUnauthorized},
		{"no bearer prefix", func(req *http.Request) { req.Header.Set("Authorization", "good") }, http.StatusUnauthorized},
		{"rejected token", func(req *http.Request) { req.Header.Set("Authorization", "Bearer bad") }, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			tt.setup(req)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
			assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
			if tt.status == http.StatusOK {
				var body map[string]string
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.Equal(t, identity.String(), body["identity"])
				assert.Equal(t, session.String(), body["session"])
			}
		})
	}
}

func TestJWTAuth_RevokedSession(t *testing.T) {
	r := newAuthRouter(stubAuthenticator{err: apperrors.ErrTokenRevoked}, stubRoles{})
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer good")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	var body dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, dto.ErrorCodeTokenRevoked, body.Error.Code)
}

func TestOptionalJWTAuth(t *testing.T) {
	a := stubAuthenticator{claims: &auth.Claims{IdentityID: uuid.NewString(), SessionID: uuid.NewString()}}
	r := newAuthRouter(a, stubRoles{})

	for header, want := range map[string]bool{"Bearer good": true, "Bearer bad": false, "": false} {
		req := httptest.NewRequest(http.MethodGet, "/maybe", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var body map[string]bool
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, want, body["authenticated"], header)
	}
}

func TestRoleRequired(t *testing.T) {
	admin, student := uuid.New(), uuid.New()
	roles := stubRoles{admin: models.RoleAdministrator, student: models.RoleStudent}

	for id, want := range map[uuid.UUID]int{admin: http.StatusOK, student: http.StatusForbidden} {
		a := stubAuthenticator{claims: &auth.Claims{IdentityID: id.String(), SessionID: uuid.NewString()}}
		r := newAuthRouter(a, roles)
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer good")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code)
	}
}

func TestBindJSON_ReportsFields(t *testing.T) {
	r := gin.New()
	r.POST("/signin", func(c *gin.Context) {
		var req dto.SignInRequest
		if !BindJSON(c, &req) {
			return
		}
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodPost, "/signin", stringsReader(`{"email":"not-an-email"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, dto.ErrorCodeValidationFailed, body.Error.Code)
	assert.Len(t, body.Error.Details, 2)
}

func stringsReader(s string) *strings.Reader { return strings.NewReader(s) }
