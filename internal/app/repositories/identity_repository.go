package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/univgates1-stack/univgates-sub001/internal/app/models"
	"github.com/univgates1-stack/univgates-sub001/internal/db"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/apperrors"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/dberrors"
)

var identityColumns = []string{
	"id", "email", "password_hash", "first_name", "last_name", "metadata", "external_id", "created_at", "updated_at",
}

// IdentityRepository handles identities and their refresh-token sessions
type IdentityRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewIdentityRepository creates a new IdentityRepository
func NewIdentityRepository(db *pgxpool.Pool) *IdentityRepository {
	return &IdentityRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func scanIdentity(row pgx.Row) (*models.Identity, error) {
	i := &models.Identity{}
	err := row.Scan(&i.ID, &i.Email, &i.PasswordHash, &i.FirstName, &i.LastName,
		&i.Metadata, &i.ExternalID, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return i, nil
}

// Register inserts the identity together with the initial row of its role in one
// transaction: an incomplete students row, a pending university_officials row or
// an administrators row. Agents have no row until their profile is filled in.
func (r *IdentityRepository) Register(ctx context.Context, identity *models.Identity, role models.Role) error {
	return db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		if err := r.insert(ctx, tx, identity); err != nil {
			return err
		}
		var err error
		switch role {
		case models.RoleStudent:
			_, err = tx.Exec(ctx, `
				INSERT INTO students (identity_id, first_name, last_name, profile_completion_status)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (identity_id) DO NOTHING`,
				identity.ID, identity.FirstName, identity.LastName, models.ProfileStatusIncomplete)
		case models.RoleUniversityOfficial:
			_, err = tx.Exec(ctx, `
				INSERT INTO university_officials (identity_id, status)
				VALUES ($1, $2)
				ON CONFLICT (identity_id) DO NOTHING`,
				identity.ID, models.OfficialStatusPending)
		case models.RoleAdministrator:
			_, err = tx.Exec(ctx, `
				INSERT INTO administrators (identity_id) VALUES ($1)
				ON CONFLICT (identity_id) DO NOTHING`, identity.ID)
		}
		if err != nil {
			return fmt.Errorf("error creating %s row: %w", role, err)
		}
		return nil
	})
}

// insert adds the identity row and fills its generated fields
func (r *IdentityRepository) insert(ctx context.Context, q db.Querier, identity *models.Identity) error {
	if identity.Metadata == nil {
		identity.Metadata = map[string]interface{}{}
	}
	query, args, err := r.sb.Insert("identities").
		Columns("email", "password_hash", "first_name", "last_name", "metadata", "external_id").
		Values(strings.ToLower(identity.Email), identity.PasswordHash, identity.FirstName, identity.LastName,
			identity.Metadata, identity.ExternalID).
		Suffix("RETURNING id, email, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("error building identity insert: %w", err)
	}

	err = q.QueryRow(ctx, query, args...).Scan(&identity.ID, &identity.Email, &identity.CreatedAt, &identity.UpdatedAt)
	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, "identities_email_key") {
			return apperrors.ErrEmailAlreadyExists
		}
		return fmt.Errorf("error creating identity: %w", err)
	}
	return nil
}

func (r *IdentityRepository) getOne(ctx context.Context, where squirrel.Sqlizer) (*models.Identity, error) {
	query, args, err := r.sb.Select(identityColumns...).From("identities").Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building identity select: %w", err)
	}
	identity, err := scanIdentity(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if dberrors.IsNoRows(err) {
			return nil, apperrors.NewResourceNotFoundError("Identity not found")
		}
		return nil, fmt.Errorf("error retrieving identity: %w", err)
	}
	return identity, nil
}

// GetByID retrieves an identity by id
func (r *IdentityRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Identity, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetByEmail retrieves an identity by its (case-insensitive) email
func (r *IdentityRepository) GetByEmail(ctx context.Context, email string) (*models.Identity, error) {
	return r.getOne(ctx, squirrel.Eq{"email": strings.ToLower(email)})
}

// UpsertExternal links an OAuth subject to an identity, creating the identity on first
// sign-in. Existing metadata keys win over the provider's.
func (r *IdentityRepository) UpsertExternal(ctx context.Context, identity *models.Identity) (*models.Identity, error) {
	if identity.Metadata == nil {
		identity.Metadata = map[string]interface{}{}
	}
	query := `
		INSERT INTO identities (email, first_name, last_name, metadata, external_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email) DO UPDATE SET
			external_id = EXCLUDED.external_id,
			metadata    = EXCLUDED.metadata || identities.metadata,
			updated_at  = NOW()
		RETURNING ` + strings.Join(identityColumns, ", ")

	out, err := scanIdentity(r.db.QueryRow(ctx, query,
		strings.ToLower(identity.Email), identity.FirstName, identity.LastName, identity.Metadata, identity.ExternalID))
	if err != nil {
		return nil, fmt.Errorf("error upserting external identity: %w", err)
	}
	return out, nil
}

// CreateSession stores a refresh-token session. The id is generated here when
// unset, since access tokens carry it before the row exists.
func (r *IdentityRepository) CreateSession(ctx context.Context, s *models.Session) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	query, args, err := r.sb.Insert("sessions").
		Columns("id", "identity_id", "refresh_token", "expires_at").
		Values(s.ID, s.IdentityID, s.RefreshToken, s.ExpiresAt).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("error building session insert: %w", err)
	}
	if err := r.db.QueryRow(ctx, query, args...).Scan(&s.ID, &s.CreatedAt); err != nil {
		return fmt.Errorf("error creating session: %w", err)
	}
	return nil
}

func (r *IdentityRepository) getSession(ctx context.Context, where squirrel.Sqlizer) (*models.Session, error) {
	query, args, err := r.sb.Select("id", "identity_id", "refresh_token", "expires_at", "revoked_at", "created_at").
		From("sessions").Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building session select: %w", err)
	}
	s := &models.Session{}
	err = r.db.QueryRow(ctx, query, args...).Scan(&s.ID, &s.IdentityID, &s.RefreshToken, &s.ExpiresAt, &s.RevokedAt, &s.CreatedAt)
	if err != nil {
		if dberrors.IsNoRows(err) {
			return nil, apperrors.ErrNoSession
		}
		return nil, fmt.Errorf("error retrieving session: %w", err)
	}
	return s, nil
}

// GetSession retrieves a session by id. Missing sessions report apperrors.ErrNoSession.
func (r *IdentityRepository) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	return r.getSession(ctx, squirrel.Eq{"id": id})
}

// GetSessionByRefreshToken retrieves a session by its refresh token
func (r *IdentityRepository) GetSessionByRefreshToken(ctx context.Context, token string) (*models.Session, error) {
	return r.getSession(ctx, squirrel.Eq{"refresh_token": token})
}

// RotateRefreshToken replaces the refresh token of an active session
func (r *IdentityRepository) RotateRefreshToken(ctx context.Context, id uuid.UUID, newToken string, expiresAt time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE sessions SET refresh_token = $2, expires_at = $3
		WHERE id = $1 AND revoked_at IS NULL`, id, newToken, expiresAt)
	if err != nil {
		return fmt.Errorf("error rotating refresh token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrTokenRevoked
	}
	return nil
}

// RevokeSession marks a session revoked; revoking twice is a no-op
func (r *IdentityRepository) RevokeSession(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `UPDATE sessions SET revoked_at = NOW() WHERE id = $1 AND revoked_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("error revoking session: %w", err)
	}
	return nil
}
