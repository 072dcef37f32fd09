package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/univgates1-stack/univgates-sub001/internal/app/models"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/apperrors"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/dberrors"
)

// StudentRepository handles student profile rows and their passports and degrees
type StudentRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewStudentRepository creates a new StudentRepository
func NewStudentRepository(db *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// UpsertPersonalInfo creates the student row or updates its personal fields
func (r *StudentRepository) UpsertPersonalInfo(ctx context.Context, s *models.Student) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO students (identity_id, first_name, last_name, profile_completion_status,
			date_of_birth, country_of_origin, current_study_level)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (identity_id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			profile_completion_status = EXCLUDED.profile_completion_status,
			date_of_birth = EXCLUDED.date_of_birth,
			country_of_origin = EXCLUDED.country_of_origin,
			current_study_level = EXCLUDED.current_study_level,
			updated_at = NOW()
		RETURNING created_at, updated_at`,
		s.IdentityID, s.FirstName, s.LastName, s.ProfileCompletionStatus,
		s.DateOfBirth, s.CountryOfOrigin, s.CurrentStudyLevel,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error saving student personal info: %w", err)
	}
	return nil
}

// UpdateCompletionStatus sets profile_completion_status
func (r *StudentRepository) UpdateCompletionStatus(ctx context.Context, studentID uuid.UUID, status string) error {
	query, args, err := r.sb.Update("students").
		Set("profile_completion_status", status).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"identity_id": studentID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building status update: %w", err)
	}
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("error updating completion status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewResourceNotFoundError("Student profile not found")
	}
	return nil
}

// LatestPassport returns the most recently created passport, or nil when there is none
func (r *StudentRepository) LatestPassport(ctx context.Context, studentID uuid.UUID) (*models.Passport, error) {
	p := &models.Passport{}
	err := r.db.QueryRow(ctx, `
		SELECT id, student_id, passport_number, issuing_country, expiry_date, created_at
		FROM passports WHERE student_id = $1
		ORDER BY created_at DESC LIMIT 1`, studentID).
		Scan(&p.ID, &p.StudentID, &p.PassportNumber, &p.IssuingCountry, &p.ExpiryDate, &p.CreatedAt)
	if err != nil {
		if dberrors.IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("error retrieving passport: %w", err)
	}
	return p, nil
}

// CreatePassport stores a passport and mirrors its number on the student row
func (r *StudentRepository) CreatePassport(ctx context.Context, p *models.Passport) error {
	err := r.db.QueryRow(ctx, `
		WITH inserted AS (
			INSERT INTO passports (student_id, passport_number, issuing_country, expiry_date)
			VALUES ($1, $2, $3, $4)
			RETURNING id, created_at
		), mirrored AS (
			UPDATE students SET passport_number = $2, updated_at = NOW() WHERE identity_id = $1
		)
		SELECT id, created_at FROM inserted`,
		p.StudentID, p.PassportNumber, p.IssuingCountry, p.ExpiryDate,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("error creating passport: %w", err)
	}
	return nil
}

// HasDegree reports whether the student has at least one degree row
func (r *StudentRepository) HasDegree(ctx context.Context, studentID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM degrees WHERE student_id = $1)`, studentID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error checking degrees: %w", err)
	}
	return exists, nil
}

// ListDegrees returns a student's academic history, newest first
func (r *StudentRepository) ListDegrees(ctx context.Context, studentID uuid.UUID) ([]*models.Degree, error) {
	query, args, err := r.sb.Select("id", "student_id", "institution", "degree_level", "field_of_study", "graduation_year", "created_at").
		From("degrees").
		Where(squirrel.Eq{"student_id": studentID}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building degree query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing degrees: %w", err)
	}
	defer rows.Close()

	var degrees []*models.Degree
	for rows.Next() {
		d := &models.Degree{}
		if err := rows.Scan(&d.ID, &d.StudentID, &d.Institution, &d.DegreeLevel, &d.FieldOfStudy, &d.GraduationYear, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning degree: %w", err)
		}
		degrees = append(degrees, d)
	}
	return degrees, rows.Err()
}

// CreateDegree stores one academic history entry
func (r *StudentRepository) CreateDegree(ctx context.Context, d *models.Degree) error {
	query, args, err := r.sb.Insert("degrees").
		Columns("student_id", "institution", "degree_level", "field_of_study", "graduation_year").
		Values(d.StudentID, d.Institution, d.DegreeLevel, d.FieldOfStudy, d.GraduationYear).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("error building degree insert: %w", err)
	}
	if err := r.db.QueryRow(ctx, query, args...).Scan(&d.ID, &d.CreatedAt); err != nil {
		return fmt.Errorf("error creating degree: %w", err)
	}
	return nil
}
