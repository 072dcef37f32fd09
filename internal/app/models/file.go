package models

import (
	"time"

	"github.com/google/uuid"
)

// Document is a file a student has uploaded for use in applications
type Document struct {
	ID          uuid.UUID `json:"id" db:"id"`
	StudentID   uuid.UUID `json:"studentId" db:"student_id"`
	Name        string    `json:"name" db:"name" example:"transcript.pdf"`
	StoragePath string    `json:"storagePath" db:"storage_path"`
	FileURL     string    `json:"fileUrl" db:"file_url"`
	ContentType string    `json:"contentType" db:"content_type" example:"application/pdf"`
	Size        int64     `json:"size" db:"size"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}
