package services

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/univgates1-stack/univgates-sub001/internal/app/models"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/apperrors"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/filestorage"
)

// Upload is a file coming in from a multipart form
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// DocumentService stores student documents for use in applications
type DocumentService struct {
	documents DocumentStore
	storage   filestorage.FileStorage
	maxSize   int64
	logger    zerolog.Logger
}

// NewDocumentService creates a new DocumentService. A maxSize of zero means no limit.
func NewDocumentService(documents DocumentStore, storage filestorage.FileStorage, maxSize int64, logger zerolog.Logger) *DocumentService {
	return &DocumentService{
		documents: documents,
		storage:   storage,
		maxSize:   maxSize,
		logger:    logger.With().Str("component", "documents").Logger(),
	}
}

// List returns the student's documents
func (s *DocumentService) List(ctx context.Context, studentID uuid.UUID) ([]*models.Document, error) {
	docs, err := s.documents.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []*models.Document{}
	}
	return docs, nil
}

// Upload stores a file under documents/<student>/ and records it
func (s *DocumentService) Upload(ctx context.Context, studentID uuid.UUID, up Upload) (*models.Document, error) {
	if up.Body == nil || up.Name == "" {
		return nil, apperrors.NewBadRequestError("A file is required")
	}
	if s.maxSize > 0 && up.Size > s.maxSize {
		return nil, apperrors.NewBadRequestError(fmt.Sprintf("File exceeds the %d byte limit", s.maxSize))
	}

	objectPath := filestorage.ObjectName(path.Join("documents", studentID.String()), up.Name)
	info, err := s.storage.Put(ctx, objectPath, up.Body, up.ContentType)
	if err != nil {
		return nil, fmt.Errorf("error storing document: %w", err)
	}

	doc := &models.Document{
		StudentID:   studentID,
		Name:        path.Base(up.Name),
		StoragePath: info.Path,
		FileURL:     info.URL,
		ContentType: info.ContentType,
		Size:        info.Size,
	}
	if err := s.documents.Create(ctx, doc); err != nil {
		if derr := s.storage.Delete(ctx, info.Path); derr != nil {
			s.logger.Warn().Err(derr).Str("path", info.Path).Msg("Failed to remove orphaned upload")
		}
		return nil, err
	}
	return doc, nil
}
