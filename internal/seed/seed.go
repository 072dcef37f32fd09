package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	appModels "github.com/univgates1-stack/univgates-sub001/internal/app/models"
	appRepos "github.com/univgates1-stack/univgates-sub001/internal/app/repositories"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/apperrors"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/auth"
)

// AdminAccount is the administrator created on first start
type AdminAccount struct {
	Email    string
	Password string
}

type defaultUniversity struct {
	name     string
	country  string
	programs []defaultProgram
}

type defaultProgram struct {
	name              string
	degreeLevel       string
	requiresDocuments bool
}

var defaultUniversities = []defaultUniversity{
	{"Istanbul Technical University", "TR", []defaultProgram{
		{"Computer Engineering", "bachelor", true},
		{"Electrical Engineering", "bachelor", true},
		{"Data Science", "master", true},
	}},
	{"Middle East Technical University", "TR", []defaultProgram{
		{"Mathematics", "bachelor", false},
		{"Physics", "bachelor", true},
	}},
}

// CreateDefaultData creates sample universities with programs and the configured
// administrator if they don't exist. Errors are collected, not fatal.
func CreateDefaultData(ctx context.Context, dbPool *pgxpool.Pool, admin AdminAccount, lgr zerolog.Logger) error {
	lgr.Info().Msg("Checking/Creating default data (Universities/Programs)...")
	var finalErr error

	for _, u := range defaultUniversities {
		if err := ensureUniversity(ctx, dbPool, u); err != nil {
			lgr.Error().Err(err).Str("university", u.name).Msg("Error creating university")
			finalErr = errors.Join(finalErr, err)
		}
	}

	if admin.Email == "" || admin.Password == "" {
		lgr.Info().Msg("No administrator configured, skipping creation")
	} else if err := ensureAdmin(ctx, dbPool, admin, lgr); err != nil {
		lgr.Error().Err(err).Msg("Error creating administrator")
		finalErr = errors.Join(finalErr, err)
	}

	lgr.Info().Msg("Default data check/creation finished.")
	return finalErr
}

func ensureUniversity(ctx context.Context, dbPool *pgxpool.Pool, u defaultUniversity) error {
	var id string
	err := dbPool.QueryRow(ctx, `
		INSERT INTO universities (name, country) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET country = EXCLUDED.country
		RETURNING id`, u.name, u.country).Scan(&id)
	if err != nil {
		return fmt.Errorf("error upserting university: %w", err)
	}

	for _, p := range u.programs {
		_, err := dbPool.Exec(ctx, `
			INSERT INTO programs (university_id, name, degree_level, requires_documents)
			SELECT $1, $2, $3, $4
			WHERE NOT EXISTS (SELECT 1 FROM programs WHERE university_id = $1 AND name = $2)`,
			id, p.name, p.degreeLevel, p.requiresDocuments)
		if err != nil {
			return fmt.Errorf("error creating program %q: %w", p.name, err)
		}
	}
	return nil
}

func ensureAdmin(ctx context.Context, dbPool *pgxpool.Pool, admin AdminAccount, lgr zerolog.Logger) error {
	identities := appRepos.NewIdentityRepository(dbPool)
	roles := appRepos.NewRoleRepository(dbPool)

	identity, err := identities.GetByEmail(ctx, admin.Email)
	if err != nil && !errors.Is(err, apperrors.ErrResourceNotFound) {
		return err
	}
	if identity == nil {
		lgr.Info().Str("email", admin.Email).Msg("Creating default administrator...")
		hash, err := auth.HashPassword(admin.Password)
		if err != nil {
			return fmt.Errorf("error hashing admin password: %w", err)
		}
		identity = &appModels.Identity{
			Email:        admin.Email,
			PasswordHash: hash,
			FirstName:    "System",
			LastName:     "Administrator",
			Metadata:     map[string]interface{}{"role": string(appModels.RoleAdministrator)},
		}
		return identities.Register(ctx, identity, appModels.RoleAdministrator)
	}
	return roles.EnsureAdministrator(ctx, identity.ID)
}
