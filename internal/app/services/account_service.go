package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/univgates1-stack/univgates-sub001/internal/app/models"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/apperrors"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/filestorage"
)

// AccountService hosts the two server-side account functions
type AccountService struct {
	accounts   AccountStore
	identities IdentityReader
	roles      RoleWriter
	storage    filestorage.FileStorage
	events     EventPublisher
	logger     zerolog.Logger
}

// NewAccountService creates a new AccountService
func NewAccountService(accounts AccountStore, identities IdentityReader, roles RoleWriter, storage filestorage.FileStorage, events EventPublisher, logger zerolog.Logger) *AccountService {
	return &AccountService{
		accounts:   accounts,
		identities: identities,
		roles:      roles,
		storage:    storage,
		events:     events,
		logger:     logger.With().Str("component", "accounts").Logger(),
	}
}

func officialDeletionError() error {
	return apperrors.NewCustomError(apperrors.ErrOfficialDeletionForbidden,
		"University official accounts require administrator handling").
		WithCode("OFFICIAL_DELETION_FORBIDDEN")
}

// DeleteUserData deletes the caller's own account and data. University officials
// are refused and must go through an administrator.
func (s *AccountService) DeleteUserData(ctx context.Context, identityID uuid.UUID) error {
	official, err := s.roles.FindOfficial(ctx, identityID)
	if err != nil {
		return err
	}
	if official != nil {
		s.logger.Warn().Str("identity_id", identityID.String()).Msg("Refused self-deletion of university official")
		return officialDeletionError()
	}
	return s.delete(ctx, identityID)
}

// AdminDeleteUser deletes any account, officials included
func (s *AccountService) AdminDeleteUser(ctx context.Context, adminID, targetID uuid.UUID) error {
	admin, err := s.roles.FindAdministrator(ctx, adminID)
	if err != nil {
		return err
	}
	if admin == nil {
		return apperrors.NewForbiddenError("Administrator role required")
	}
	if adminID == targetID {
		return apperrors.NewBadRequestError("Administrators cannot delete their own account here")
	}
	s.logger.Info().Str("admin_id", adminID.String()).Str("identity_id", targetID.String()).Msg("Administrator deleting account")
	return s.delete(ctx, targetID)
}

func (s *AccountService) delete(ctx context.Context, identityID uuid.UUID) error {
	paths, err := s.accounts.DeleteIdentityData(ctx, identityID)
	if err != nil {
		return err
	}

	// rows are gone; leftover objects are only logged
	for _, p := range paths {
		if err := s.storage.Delete(ctx, p); err != nil {
			s.logger.Warn().Err(err).Str("path", p).Msg("Failed to delete stored document")
		}
	}

	publishAuthEvent(s.events, s.logger, models.AuthEventUserDeleted, identityID, nil, time.Now())
	s.logger.Info().Str("identity_id", identityID.String()).Int("documents", len(paths)).Msg("Account deleted")
	return nil
}

// EnsureUniversityOfficialProfile makes sure the identity has a university
// official row, creating a pending one on first call. Repeated calls return the
// existing row unchanged.
func (s *AccountService) EnsureUniversityOfficialProfile(ctx context.Context, identityID uuid.UUID, universityID *uuid.UUID) (*models.UniversityOfficial, error) {
	if _, err := s.identities.GetByID(ctx, identityID); err != nil {
		return nil, err
	}
	official, created, err := s.roles.EnsureOfficial(ctx, identityID, universityID)
	if err != nil {
		return nil, err
	}
	if created {
		s.logger.Info().Str("identity_id", identityID.String()).Msg("University official profile created")
		publishAuthEvent(s.events, s.logger, models.AuthEventUserUpdated, identityID, nil, time.Now())
	}
	return official, nil
}
