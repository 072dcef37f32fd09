package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/univgates1-stack/univgates-sub001/internal/app/models"
	"github.com/univgates1-stack/univgates-sub001/internal/app/repositories"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/realtime"
)

// The interfaces below are the slices of the repositories each service needs.
// The repositories package satisfies them; tests use in-memory stubs.

// IdentityStore reads and writes identities and sessions
type IdentityStore interface {
	Register(ctx context.Context, identity *models.Identity, role models.Role) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Identity, error)
	GetByEmail(ctx context.Context, email string) (*models.Identity, error)
	UpsertExternal(ctx context.Context, identity *models.Identity) (*models.Identity, error)
	CreateSession(ctx context.Context, s *models.Session) error
	GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error)
	GetSessionByRefreshToken(ctx context.Context, token string) (*models.Session, error)
	RotateRefreshToken(ctx context.Context, id uuid.UUID, newToken string, expiresAt time.Time) error
	RevokeSession(ctx context.Context, id uuid.UUID) error
}

// RoleLookup probes the four role tables. Each Find returns (nil, nil) when the
// identity has no row in that table.
type RoleLookup interface {
	FindStudent(ctx context.Context, identityID uuid.UUID) (*models.Student, error)
	FindAgent(ctx context.Context, identityID uuid.UUID) (*models.Agent, error)
	FindOfficial(ctx context.Context, identityID uuid.UUID) (*models.UniversityOfficial, error)
	FindAdministrator(ctx context.Context, identityID uuid.UUID) (*models.Administrator, error)
}

// RoleWriter creates role rows
type RoleWriter interface {
	RoleLookup
	EnsureOfficial(ctx context.Context, identityID uuid.UUID, universityID *uuid.UUID) (*models.UniversityOfficial, bool, error)
	EnsureAdministrator(ctx context.Context, identityID uuid.UUID) error
}

// StudentStore holds student profile rows and their passports and degrees
type StudentStore interface {
	UpsertPersonalInfo(ctx context.Context, s *models.Student) error
	UpdateCompletionStatus(ctx context.Context, studentID uuid.UUID, status string) error
	LatestPassport(ctx context.Context, studentID uuid.UUID) (*models.Passport, error)
	CreatePassport(ctx context.Context, p *models.Passport) error
	HasDegree(ctx context.Context, studentID uuid.UUID) (bool, error)
	ListDegrees(ctx context.Context, studentID uuid.UUID) ([]*models.Degree, error)
	CreateDegree(ctx context.Context, d *models.Degree) error
}

// ProgramStore reads the program catalogue
type ProgramStore interface {
	List(ctx context.Context, universityID *uuid.UUID) ([]*models.Program, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Program, error)
}

// DocumentStore holds student documents
type DocumentStore interface {
	Create(ctx context.Context, d *models.Document) error
	ListByStudent(ctx context.Context, studentID uuid.UUID) ([]*models.Document, error)
	CountOwned(ctx context.Context, studentID uuid.UUID, ids []uuid.UUID) (int, error)
}

// ApplicationStore holds applications and their document selections
type ApplicationStore interface {
	FindByStudentProgram(ctx context.Context, studentID, programID uuid.UUID) (*models.Application, error)
	Create(ctx context.Context, app *models.Application) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Application, error)
	ListByStudent(ctx context.Context, studentID uuid.UUID) ([]*models.Application, error)
	ListAll(ctx context.Context, filter repositories.ApplicationFilter) ([]*models.Application, int64, error)
	Confirm(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	ReplaceDocuments(ctx context.Context, appID uuid.UUID, docIDs []uuid.UUID) error
	Submit(ctx context.Context, appID uuid.UUID, docIDs []uuid.UUID, at time.Time) error
}

// ChatStore holds conversations and messages
type ChatStore interface {
	GetOrCreateConversation(ctx context.Context, a, b uuid.UUID, applicationID *uuid.UUID) (*models.Conversation, error)
	GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
	ListConversations(ctx context.Context, identityID uuid.UUID) ([]*models.Conversation, error)
	UpdatePreview(ctx context.Context, conversationID uuid.UUID, preview string, at time.Time) error
	CreateMessage(ctx context.Context, m *models.Message) error
	GetMessage(ctx context.Context, id uuid.UUID) (*models.Message, error)
	ListMessages(ctx context.Context, conversationID uuid.UUID, before *time.Time, limit int) ([]*models.Message, error)
}

// AccountStore deletes an identity with its data
type AccountStore interface {
	DeleteIdentityData(ctx context.Context, identityID uuid.UUID) ([]string, error)
}

// EventPublisher publishes JSON payloads on the realtime bus
type EventPublisher interface {
	Publish(topic, key, id string, payload interface{}) error
}

// EventSubscriber subscribes to the realtime bus
type EventSubscriber interface {
	Subscribe(ctx context.Context, topic, key string) (<-chan realtime.Delivery, error)
}
