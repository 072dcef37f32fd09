package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/univgates1-stack/univgates-sub001/internal/app/models"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/apperrors"
	"golang.org/x/sync/errgroup"
)

// IdentityReader loads identities for the metadata fallback
type IdentityReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Identity, error)
}

// RoleResolver determines the single role an identity acts under
type RoleResolver struct {
	roles      RoleLookup
	identities IdentityReader
	logger     zerolog.Logger
}

// NewRoleResolver creates a new RoleResolver
func NewRoleResolver(roles RoleLookup, identities IdentityReader, logger zerolog.Logger) *RoleResolver {
	return &RoleResolver{
		roles:      roles,
		identities: identities,
		logger:     logger.With().Str("component", "role_resolver").Logger(),
	}
}

// Resolve probes the role tables concurrently and picks the first match in
// models.RolePriority, falling back to the role claimed in identity metadata.
// It never fails: a missing session or identity yields models.NoIdentity, and
// any other lookup error yields an unresolved role.
func (r *RoleResolver) Resolve(ctx context.Context, identityID uuid.UUID) models.RoleResolution {
	if identityID == uuid.Nil {
		return models.NoIdentity()
	}

	var (
		identity      *models.Identity
		student       *models.Student
		agent         *models.Agent
		official      *models.UniversityOfficial
		administrator *models.Administrator
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		identity, err = r.identities.GetByID(gctx, identityID)
		return err
	})
	g.Go(func() (err error) {
		official, err = r.roles.FindOfficial(gctx, identityID)
		return err
	})
	g.Go(func() (err error) {
		administrator, err = r.roles.FindAdministrator(gctx, identityID)
		return err
	})
	g.Go(func() (err error) {
		agent, err = r.roles.FindAgent(gctx, identityID)
		return err
	})
	g.Go(func() (err error) {
		student, err = r.roles.FindStudent(gctx, identityID)
		return err
	})

	if err := g.Wait(); err != nil {
		if errors.Is(err, apperrors.ErrNoSession) || errors.Is(err, apperrors.ErrResourceNotFound) {
			return models.NoIdentity()
		}
		r.logger.Error().Err(err).Str("identity_id", identityID.String()).Msg("Role lookup failed, treating role as unresolved")
		return models.RoleResolution{IdentityID: identityID, Role: models.RoleNone, Source: models.RoleSourceError}
	}

	found := map[models.Role]models.RolePayload{}
	if official != nil {
		found[models.RoleUniversityOfficial] = official
	}
	if administrator != nil {
		found[models.RoleAdministrator] = administrator
	}
	if agent != nil {
		found[models.RoleAgent] = agent
	}
	if student != nil {
		found[models.RoleStudent] = student
	}
	for _, role := range models.RolePriority {
		if payload, ok := found[role]; ok {
			if len(found) > 1 {
				r.logger.Warn().Str("identity_id", identityID.String()).Int("role_rows", len(found)).
					Str("role", string(role)).Msg("Identity has several role rows, using priority order")
			}
			return models.RoleResolution{IdentityID: identityID, Role: role, Source: models.RoleSourceTable, Payload: payload}
		}
	}

	role := models.ParseRole(identity.MetadataRole())
	if role == models.RoleNone {
		return models.RoleResolution{IdentityID: identityID, Role: models.RoleNone, Source: models.RoleSourceNone}
	}
	return models.RoleResolution{
		IdentityID: identityID,
		Role:       role,
		Source:     models.RoleSourceMetadata,
		Payload:    emptyPayload(role, identityID),
	}
}

// emptyPayload is the variant for a role claimed in metadata that has no row yet
func emptyPayload(role models.Role, identityID uuid.UUID) models.RolePayload {
	switch role {
	case models.RoleStudent:
		return &models.Student{IdentityID: identityID}
	case models.RoleAgent:
		return &models.Agent{IdentityID: identityID}
	case models.RoleUniversityOfficial:
		return &models.UniversityOfficial{IdentityID: identityID}
	case models.RoleAdministrator:
		return &models.Administrator{IdentityID: identityID}
	}
	return nil
}
