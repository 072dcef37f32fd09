package repositories

import (
	"context"
	"fmt"
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

const applicationUniqueConstraint = "applications_student_program_key"

var applicationColumns = []string{
	"a.id", "a.student_id", "a.program_id", "a.status", "a.requires_documents", "a.missing_fields",
	"a.confirmed_at", "a.submitted_at", "a.created_at", "a.updated_at",
	"p.name", "p.degree_level", "p.university_id", "u.name",
}

// ApplicationFilter narrows admin listings
type ApplicationFilter struct {
	Status *models.ApplicationStatus
	Offset uint64
	Limit  int
}

// ApplicationRepository handles applications and their selected documents
type ApplicationRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewApplicationRepository creates a new ApplicationRepository
func NewApplicationRepository(db *pgxpool.Pool) *ApplicationRepository {
	return &ApplicationRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *ApplicationRepository) baseSelect() squirrel.SelectBuilder {
	return r.sb.Select(applicationColumns...).
		From("applications a").
		Join("programs p ON p.id = a.program_id").
		Join("universities u ON u.id = p.university_id")
}

func scanApplication(row pgx.Row) (*models.Application, error) {
	a := &models.Application{Program: &models.Program{}}
	err := row.Scan(&a.ID, &a.StudentID, &a.ProgramID, &a.Status, &a.RequiresDocuments, &a.MissingFields,
		&a.ConfirmedAt, &a.SubmittedAt, &a.CreatedAt, &a.UpdatedAt,
		&a.Program.Name, &a.Program.DegreeLevel, &a.Program.UniversityID, &a.Program.UniversityName)
	if err != nil {
		return nil, err
	}
	a.Program.ID = a.ProgramID
	if a.MissingFields == nil {
		a.MissingFields = []string{}
	}
	return a, nil
}

// FindByStudentProgram returns the application for the pair, or nil when there is none
func (r *ApplicationRepository) FindByStudentProgram(ctx context.Context, studentID, programID uuid.UUID) (*models.Application, error) {
	query, args, err := r.baseSelect().
		Where(squirrel.Eq{"a.student_id": studentID, "a.program_id": programID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building application query: %w", err)
	}
	app, err := scanApplication(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if dberrors.IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("error retrieving application: %w", err)
	}
	return app, nil
}

// Create inserts a draft application. A concurrent insert for the same
// (student, program) pair fails with apperrors.ErrDuplicateApplication.
func (r *ApplicationRepository) Create(ctx context.Context, app *models.Application) error {
	if app.MissingFields == nil {
		app.MissingFields = []string{}
	}
	query, args, err := r.sb.Insert("applications").
		Columns("student_id", "program_id", "status", "requires_documents", "missing_fields").
		Values(app.StudentID, app.ProgramID, app.Status, app.RequiresDocuments, app.MissingFields).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("error building application insert: %w", err)
	}

	err = r.db.QueryRow(ctx, query, args...).Scan(&app.ID, &app.CreatedAt, &app.UpdatedAt)
	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, applicationUniqueConstraint) {
			return apperrors.ErrDuplicateApplication
		}
		return fmt.Errorf("error creating application: %w", err)
	}
	return nil
}

// GetByID retrieves an application with its selected document ids
func (r *ApplicationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	query, args, err := r.baseSelect().Where(squirrel.Eq{"a.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building application query: %w", err)
	}
	app, err := scanApplication(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if dberrors.IsNoRows(err) {
			return nil, apperrors.NewResourceNotFoundError("Application not found")
		}
		return nil, fmt.Errorf("error retrieving application: %w", err)
	}

	app.DocumentIDs, err = r.documentIDs(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	return app, nil
}

func (r *ApplicationRepository) documentIDs(ctx context.Context, q db.Querier, appID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := q.Query(ctx, `SELECT document_id FROM application_documents WHERE application_id = $1 ORDER BY document_id`, appID)
	if err != nil {
		return nil, fmt.Errorf("error listing application documents: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("error scanning application documents: %w", err)
	}
	if ids == nil {
		ids = []uuid.UUID{}
	}
	return ids, nil
}

func (r *ApplicationRepository) list(ctx context.Context, qb squirrel.SelectBuilder) ([]*models.Application, error) {
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building application list: %w", err)
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing applications: %w", err)
	}
	defer rows.Close()

	var apps []*models.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning application: %w", err)
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

// ListByStudent returns a student's applications, newest first
func (r *ApplicationRepository) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]*models.Application, error) {
	return r.list(ctx, r.baseSelect().
		Where(squirrel.Eq{"a.student_id": studentID}).
		OrderBy("a.created_at DESC"))
}

// ListAll returns a page of applications across all students and the total count
func (r *ApplicationRepository) ListAll(ctx context.Context, filter ApplicationFilter) ([]*models.Application, int64, error) {
	qb := r.baseSelect().OrderBy("a.created_at DESC")
	countQb := r.sb.Select("COUNT(*)").From("applications a")
	if filter.Status != nil {
		qb = qb.Where(squirrel.Eq{"a.status": *filter.Status})
		countQb = countQb.Where(squirrel.Eq{"a.status": *filter.Status})
	}
	if filter.Limit > 0 {
		qb = qb.Limit(uint64(filter.Limit)).Offset(filter.Offset)
	}

	countQuery, countArgs, err := countQb.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("error building application count: %w", err)
	}
	var total int64
	if err := r.db.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting applications: %w", err)
	}

	apps, err := r.list(ctx, qb)
	if err != nil {
		return nil, 0, err
	}
	return apps, total, nil
}

// Confirm moves a draft into document selection. It reports false when the
// application was not an unconfirmed draft.
func (r *ApplicationRepository) Confirm(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE applications SET confirmed_at = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'draft' AND confirmed_at IS NULL`, id, at)
	if err != nil {
		return false, fmt.Errorf("error confirming application: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func replaceDocuments(ctx context.Context, tx pgx.Tx, appID uuid.UUID, docIDs []uuid.UUID) error {
	if _, err := tx.Exec(ctx, `DELETE FROM application_documents WHERE application_id = $1`, appID); err != nil {
		return fmt.Errorf("error clearing application documents: %w", err)
	}
	if len(docIDs) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(docIDs))
	for _, id := range docIDs {
		rows = append(rows, []any{appID, id})
	}
	_, err := tx.CopyFrom(ctx, pgx.Identifier{"application_documents"}, []string{"application_id", "document_id"}, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("error storing application documents: %w", err)
	}
	return nil
}

// ReplaceDocuments saves the current document selection of a draft application
func (r *ApplicationRepository) ReplaceDocuments(ctx context.Context, appID uuid.UUID, docIDs []uuid.UUID) error {
	return db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		var status string
		err := tx.QueryRow(ctx, `SELECT status FROM applications WHERE id = $1 FOR UPDATE`, appID).Scan(&status)
		if err != nil {
			if dberrors.IsNoRows(err) {
				return apperrors.NewResourceNotFoundError("Application not found")
			}
			return fmt.Errorf("error locking application: %w", err)
		}
		if status == string(models.ApplicationStatusSubmitted) {
			return apperrors.ErrAlreadySubmitted
		}
		if err := replaceDocuments(ctx, tx, appID, docIDs); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `UPDATE applications SET updated_at = NOW() WHERE id = $1`, appID)
		return err
	})
}

// Submit stores the final selection and marks the application submitted in one
// transaction. Only confirmed drafts can be submitted.
func (r *ApplicationRepository) Submit(ctx context.Context, appID uuid.UUID, docIDs []uuid.UUID, at time.Time) error {
	return db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		var status string
		var confirmedAt *time.Time
		err := tx.QueryRow(ctx, `SELECT status, confirmed_at FROM applications WHERE id = $1 FOR UPDATE`, appID).
			Scan(&status, &confirmedAt)
		if err != nil {
			if dberrors.IsNoRows(err) {
				return apperrors.NewResourceNotFoundError("Application not found")
			}
			return fmt.Errorf("error locking application: %w", err)
		}
		if status == string(models.ApplicationStatusSubmitted) {
			return apperrors.ErrAlreadySubmitted
		}
		if confirmedAt == nil {
			return apperrors.ErrConfirmationRequired
		}

		if err := replaceDocuments(ctx, tx, appID, docIDs); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			UPDATE applications SET status = 'submitted', submitted_at = $2, updated_at = NOW()
			WHERE id = $1`, appID, at)
		if err != nil {
			return fmt.Errorf("error submitting application: %w", err)
		}
		return nil
	})
}
