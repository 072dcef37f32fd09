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

// ProgramRepository reads the program catalogue
type ProgramRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewProgramRepository creates a new ProgramRepository
func NewProgramRepository(db *pgxpool.Pool) *ProgramRepository {
	return &ProgramRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *ProgramRepository) baseSelect() squirrel.SelectBuilder {
	return r.sb.Select("p.id", "p.university_id", "u.name", "p.name", "p.degree_level", "p.requires_documents", "p.created_at").
		From("programs p").
		Join("universities u ON u.id = p.university_id")
}

// List returns programs, optionally filtered by university
func (r *ProgramRepository) List(ctx context.Context, universityID *uuid.UUID) ([]*models.Program, error) {
	qb := r.baseSelect().OrderBy("u.name", "p.name")
	if universityID != nil {
		qb = qb.Where(squirrel.Eq{"p.university_id": *universityID})
	}
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building program query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing programs: %w", err)
	}
	defer rows.Close()

	var programs []*models.Program
	for rows.Next() {
		p := &models.Program{}
		if err := rows.Scan(&p.ID, &p.UniversityID, &p.UniversityName, &p.Name, &p.DegreeLevel, &p.RequiresDocuments, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning program: %w", err)
		}
		programs = append(programs, p)
	}
	return programs, rows.Err()
}

// GetByID retrieves one program
func (r *ProgramRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Program, error) {
	query, args, err := r.baseSelect().Where(squirrel.Eq{"p.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building program query: %w", err)
	}
	p := &models.Program{}
	err = r.db.QueryRow(ctx, query, args...).
		Scan(&p.ID, &p.UniversityID, &p.UniversityName, &p.Name, &p.DegreeLevel, &p.RequiresDocuments, &p.CreatedAt)
	if err != nil {
		if dberrors.IsNoRows(err) {
			return nil, apperrors.NewResourceNotFoundError("Program not found")
		}
		return nil, fmt.Errorf("error retrieving program: %w", err)
	}
	return p, nil
}
