// Package controllers handles HTTP request handling
package controllers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/univgates1-stack/univgates-sub001/internal/app/models"
	"github.com/univgates1-stack/univgates-sub001/internal/app/models/dto"
	"github.com/univgates1-stack/univgates-sub001/internal/app/repositories"
	"github.com/univgates1-stack/univgates-sub001/internal/app/services"
	"github.com/univgates1-stack/univgates-sub001/internal/middleware"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/apperrors"
)

// AuthService is the password, OAuth and session surface
type AuthService interface {
	SignUp(ctx context.Context, in services.SignUpInput) (*services.SessionResult, error)
	SignIn(ctx context.Context, email, password string) (*services.SessionResult, error)
	AuthorizeURL() (string, error)
	Refresh(ctx context.Context, refreshToken string) (*services.SessionResult, error)
	SignOut(ctx context.Context, identityID, sessionID uuid.UUID) error
	Session(ctx context.Context, identityID, sessionID uuid.UUID) (*models.Identity, *models.Session, error)
}

// RedirectService runs the callback state machine and role redirects
type RedirectService interface {
	HandleCallback(ctx context.Context, rawURL string) (*services.CallbackResult, error)
	EvaluateRedirect(ctx context.Context, identityID uuid.UUID, currentPath string) services.RedirectDecision
}

// RoleService yields cached role resolutions
type RoleService interface {
	Get(ctx context.Context, identityID uuid.UUID) models.RoleResolution
	Refresh(ctx context.Context, identityID uuid.UUID) models.RoleResolution
}

// ProfileService covers student onboarding and completeness
type ProfileService interface {
	GetStudent(ctx context.Context, studentID uuid.UUID) (*models.Student, error)
	ComputeCompleteness(ctx context.Context, studentID uuid.UUID) (*services.Completeness, error)
	Nudge(ctx context.Context, studentID, sessionID uuid.UUID) (*services.Nudge, error)
	DismissNudge(ctx context.Context, sessionID uuid.UUID) error
	SavePersonalInfo(ctx context.Context, studentID uuid.UUID, in services.PersonalInfoInput) (*models.Student, error)
	AddPassport(ctx context.Context, studentID uuid.UUID, p *models.Passport) error
	AddDegree(ctx context.Context, studentID uuid.UUID, d *models.Degree) error
	ListDegrees(ctx context.Context, studentID uuid.UUID) ([]*models.Degree, error)
	CompleteAcademic(ctx context.Context, studentID uuid.UUID) (*models.Student, error)
}

// ApplicationService is the application workflow
type ApplicationService interface {
	Programs(ctx context.Context, universityID *uuid.UUID) ([]*models.Program, error)
	Apply(ctx context.Context, studentID, programID uuid.UUID) (*models.Application, error)
	List(ctx context.Context, studentID uuid.UUID) ([]*models.Application, error)
	Get(ctx context.Context, studentID, appID uuid.UUID) (*models.Application, error)
	Confirm(ctx context.Context, studentID, appID uuid.UUID, informationAccurate bool) (*models.Application, error)
	SaveDocuments(ctx context.Context, studentID, appID uuid.UUID, docIDs []uuid.UUID) error
	Submit(ctx context.Context, studentID, appID uuid.UUID, docIDs []uuid.UUID) (*models.Application, error)
	Saving(appID uuid.UUID) bool
	ListAll(ctx context.Context, filter repositories.ApplicationFilter) ([]*models.Application, int64, error)
}

// DocumentService stores student documents
type DocumentService interface {
	List(ctx context.Context, studentID uuid.UUID) ([]*models.Document, error)
	Upload(ctx context.Context, studentID uuid.UUID, up services.Upload) (*models.Document, error)
}

// MessagingService is conversations, messages and attachments
type MessagingService interface {
	ListConversations(ctx context.Context, identityID uuid.UUID) ([]*models.Conversation, error)
	GetOrCreateConversation(ctx context.Context, a, b uuid.UUID, applicationID *uuid.UUID) (*models.Conversation, error)
	ListMessages(ctx context.Context, identityID, conversationID uuid.UUID, before *time.Time, limit int) ([]*models.Message, error)
	SendMessage(ctx context.Context, senderID, conversationID uuid.UUID, text string, file *services.Upload) (*models.Message, error)
	SignedURL(ctx context.Context, identityID, messageID uuid.UUID) (*services.SignedURL, error)
	Download(ctx context.Context, objectPath, token string) (io.ReadCloser, error)
}

// AccountService deletes accounts and provisions officials
type AccountService interface {
	DeleteUserData(ctx context.Context, identityID uuid.UUID) error
	AdminDeleteUser(ctx context.Context, adminID, targetID uuid.UUID) error
	EnsureUniversityOfficialProfile(ctx context.Context, identityID uuid.UUID, universityID *uuid.UUID) (*models.UniversityOfficial, error)
}

// ExportService renders spreadsheets
type ExportService interface {
	ApplicationsXLSX(ctx context.Context, status *models.ApplicationStatus) (*bytes.Buffer, error)
}

// currentIdentity returns the authenticated identity or writes a 401
func currentIdentity(ctx *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.IdentityID(ctx)
	if !ok {
		middleware.HandleAPIError(ctx, apperrors.ErrNoSession)
	}
	return id, ok
}

// uuidParam parses a path parameter or writes a 400
func uuidParam(ctx *gin.Context, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(ctx.Param(name))
	if err != nil {
		middleware.HandleAPIError(ctx, apperrors.NewBadRequestError("Invalid "+label+" ID"))
		return uuid.Nil, false
	}
	return id, true
}

// optionalUUIDQuery parses an optional query parameter or writes a 400
func optionalUUIDQuery(ctx *gin.Context, name string) (*uuid.UUID, bool) {
	raw := ctx.Query(name)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		middleware.HandleAPIError(ctx, apperrors.NewBadRequestError("Invalid "+name))
		return nil, false
	}
	return &id, true
}

// formUpload opens a multipart file field as an Upload. The caller closes the
// returned closer once the upload has been consumed.
func formUpload(ctx *gin.Context, field string) (*services.Upload, io.Closer, error) {
	fh, err := ctx.FormFile(field)
	if err != nil {
		return nil, nil, apperrors.NewBadRequestError("No file provided")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("error opening upload: %w", err)
	}
	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &services.Upload{
		Name:        fh.Filename,
		ContentType: contentType,
		Size:        fh.Size,
		Body:        f,
	}, f, nil
}

func newAuthResponse(res *services.SessionResult, role models.Role) *dto.AuthResponse {
	if res == nil {
		return nil
	}
	r := &dto.AuthResponse{
		SessionID: res.SessionID,
		User:      dto.NewIdentityResponse(res.Identity, role),
	}
	if res.Tokens != nil {
		r.Token = dto.TokenResponse{
			AccessToken:           res.Tokens.AccessToken,
			TokenType:             "Bearer",
			ExpiresIn:             int64(res.Tokens.ExpiresIn),
			RefreshToken:          res.Tokens.RefreshToken,
			RefreshTokenExpiresIn: int64(res.Tokens.RefreshExpiresIn),
		}
	}
	return r
}
