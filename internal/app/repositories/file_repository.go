package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/univgates1-stack/univgates-sub001/internal/app/models"
)

// DocumentRepository handles student-owned documents
type DocumentRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewDocumentRepository creates a new DocumentRepository
func NewDocumentRepository(db *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a document record
func (r *DocumentRepository) Create(ctx context.Context, d *models.Document) error {
	query, args, err := r.sb.Insert("documents").
		Columns("student_id", "name", "storage_path", "file_url", "content_type", "size").
		Values(d.StudentID, d.Name, d.StoragePath, d.FileURL, d.ContentType, d.Size).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("error building document insert: %w", err)
	}
	if err := r.db.QueryRow(ctx, query, args...).Scan(&d.ID, &d.CreatedAt); err != nil {
		return fmt.Errorf("error creating document: %w", err)
	}
	return nil
}

// ListByStudent returns a student's documents, newest first
func (r *DocumentRepository) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]*models.Document, error) {
	query, args, err := r.sb.Select("id", "student_id", "name", "storage_path", "file_url", "content_type", "size", "created_at").
		From("documents").
		Where(squirrel.Eq{"student_id": studentID}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building document query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing documents: %w", err)
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		d := &models.Document{}
		if err := rows.Scan(&d.ID, &d.StudentID, &d.Name, &d.StoragePath, &d.FileURL, &d.ContentType, &d.Size, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// CountOwned counts how many of ids belong to studentID
func (r *DocumentRepository) CountOwned(ctx context.Context, studentID uuid.UUID, ids []uuid.UUID) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query, args, err := r.sb.Select("COUNT(*)").
		From("documents").
		Where(squirrel.Eq{"student_id": studentID, "id": ids}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("error building ownership query: %w", err)
	}
	var n int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("error counting owned documents: %w", err)
	}
	return n, nil
}
