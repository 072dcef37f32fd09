package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/univgates1-stack/univgates-sub001/internal/db"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/apperrors"
)

// AccountRepository removes an identity and everything hanging off it
type AccountRepository struct {
	db *pgxpool.Pool
}

// NewAccountRepository creates a new AccountRepository
func NewAccountRepository(db *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{db: db}
}

// dependent tables in delete order
var accountTables = []struct {
	table string
	where string
}{
	{"application_documents", "application_id IN (SELECT id FROM applications WHERE student_id = $1)"},
	{"applications", "student_id = $1"},
	{"documents", "student_id = $1"},
	{"passports", "student_id = $1"},
	{"degrees", "student_id = $1"},
	{"students", "identity_id = $1"},
	{"agents", "identity_id = $1"},
	{"university_officials", "identity_id = $1"},
	{"administrators", "identity_id = $1"},
	{"sessions", "identity_id = $1"},
}

// DeleteIdentityData deletes role rows, profile rows, documents and the identity in
// one transaction. It returns the storage paths of the deleted documents so the
// caller can remove the objects once the rows are gone.
func (r *AccountRepository) DeleteIdentityData(ctx context.Context, identityID uuid.UUID) ([]string, error) {
	var paths []string
	err := db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT storage_path FROM documents WHERE student_id = $1`, identityID)
		if err != nil {
			return fmt.Errorf("error listing documents: %w", err)
		}
		paths, err = pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return fmt.Errorf("error scanning documents: %w", err)
		}

		for _, t := range accountTables {
			if _, err := tx.Exec(ctx, "DELETE FROM "+t.table+" WHERE "+t.where, identityID); err != nil {
				return fmt.Errorf("error deleting %s: %w", t.table, err)
			}
		}

		tag, err := tx.Exec(ctx, `DELETE FROM identities WHERE id = $1`, identityID)
		if err != nil {
			return fmt.Errorf("error deleting identity: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.NewResourceNotFoundError("User not found")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}
