package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/univgates1-stack/univgates-sub001/internal/app/models"
)

// DocumentResponse represents an uploaded student document
type DocumentResponse struct {
	ID        uuid.UUID `json:"id"`
	FileName  string    `json:"fileName" example:"transcript.pdf"`
	FileURL   string    `json:"fileUrl" example:"http://localhost:8080/uploads/documents/4f1c.../transcript.pdf"`
	FileSize  int64     `json:"fileSize" example:"1048576"`
	FileType  string    `json:"fileType" example:"application/pdf"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewDocumentResponse maps a document
func NewDocumentResponse(d *models.Document) DocumentResponse {
	return DocumentResponse{
		ID:        d.ID,
		FileName:  d.Name,
		FileURL:   d.FileURL,
		FileSize:  d.Size,
		FileType:  d.ContentType,
		CreatedAt: d.CreatedAt,
	}
}

// SignedURLResponse is a time-limited download link
type SignedURLResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}
