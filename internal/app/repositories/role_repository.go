package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/univgates1-stack/univgates-sub001/internal/app/models"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/dberrors"
)

// RoleRepository reads and writes the four role tables. Find* methods return
// (nil, nil) when the identity has no row in that table.
type RoleRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewRoleRepository creates a new RoleRepository
func NewRoleRepository(db *pgxpool.Pool) *RoleRepository {
	return &RoleRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// FindStudent looks up the student row of an identity
func (r *RoleRepository) FindStudent(ctx context.Context, identityID uuid.UUID) (*models.Student, error) {
	query, args, err := r.sb.Select(
		"identity_id", "first_name", "last_name", "profile_completion_status", "date_of_birth",
		"country_of_origin", "current_study_level", "passport_number", "created_at", "updated_at",
	).From("students").Where(squirrel.Eq{"identity_id": identityID}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building student query: %w", err)
	}

	s := &models.Student{}
	err = r.db.QueryRow(ctx, query, args...).Scan(
		&s.IdentityID, &s.FirstName, &s.LastName, &s.ProfileCompletionStatus, &s.DateOfBirth,
		&s.CountryOfOrigin, &s.CurrentStudyLevel, &s.PassportNumber, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if dberrors.IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("error retrieving student: %w", err)
	}
	return s, nil
}

// FindAgent looks up the agent row of an identity
func (r *RoleRepository) FindAgent(ctx context.Context, identityID uuid.UUID) (*models.Agent, error) {
	a := &models.Agent{}
	err := r.db.QueryRow(ctx, `
		SELECT identity_id, agency_name, country, created_at
		FROM agents WHERE identity_id = $1`, identityID).
		Scan(&a.IdentityID, &a.AgencyName, &a.Country, &a.CreatedAt)
	if err != nil {
		if dberrors.IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("error retrieving agent: %w", err)
	}
	return a, nil
}

// FindOfficial looks up the university official row of an identity
func (r *RoleRepository) FindOfficial(ctx context.Context, identityID uuid.UUID) (*models.UniversityOfficial, error) {
	o := &models.UniversityOfficial{}
	err := r.db.QueryRow(ctx, `
		SELECT identity_id, university_id, department, status, created_at
		FROM university_officials WHERE identity_id = $1`, identityID).
		Scan(&o.IdentityID, &o.UniversityID, &o.Department, &o.Status, &o.CreatedAt)
	if err != nil {
		if dberrors.IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("error retrieving university official: %w", err)
	}
	return o, nil
}

// FindAdministrator looks up the administrator row of an identity
func (r *RoleRepository) FindAdministrator(ctx context.Context, identityID uuid.UUID) (*models.Administrator, error) {
	a := &models.Administrator{}
	err := r.db.QueryRow(ctx, `SELECT identity_id, created_at FROM administrators WHERE identity_id = $1`, identityID).
		Scan(&a.IdentityID, &a.CreatedAt)
	if err != nil {
		if dberrors.IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("error retrieving administrator: %w", err)
	}
	return a, nil
}

// EnsureOfficial inserts a pending official row unless one exists, and returns the
// stored row either way. created reports whether this call inserted it.
func (r *RoleRepository) EnsureOfficial(ctx context.Context, identityID uuid.UUID, universityID *uuid.UUID) (*models.UniversityOfficial, bool, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO university_officials (identity_id, university_id, status)
		VALUES ($1, $2, $3)
		ON CONFLICT (identity_id) DO NOTHING`,
		identityID, universityID, models.OfficialStatusPending)
	if err != nil {
		return nil, false, fmt.Errorf("error ensuring university official: %w", err)
	}

	official, err := r.FindOfficial(ctx, identityID)
	if err != nil {
		return nil, false, err
	}
	if official == nil {
		return nil, false, fmt.Errorf("university official %s vanished after insert", identityID)
	}
	return official, tag.RowsAffected() == 1, nil
}

// EnsureAdministrator grants the administrator role idempotently
func (r *RoleRepository) EnsureAdministrator(ctx context.Context, identityID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO administrators (identity_id) VALUES ($1)
		ON CONFLICT (identity_id) DO NOTHING`, identityID)
	if err != nil {
		return fmt.Errorf("error ensuring administrator: %w", err)
	}
	return nil
}
