package models

import (
	"time"

	"github.com/google/uuid"
)

// ApplicationStatus is the persisted status column of an application
type ApplicationStatus string

const (
	ApplicationStatusDraft     ApplicationStatus = "draft"
	ApplicationStatusSubmitted ApplicationStatus = "submitted"
)

// ApplicationStage is the workflow position derived from status and confirmation
type ApplicationStage string

const (
	StageNoApplication     ApplicationStage = "no_application"
	StageDraft             ApplicationStage = "draft"
	StageDocumentSelection ApplicationStage = "document_selection"
	StageSubmitted         ApplicationStage = "submitted"
)

// University is a partner institution
type University struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Country   string    `json:"country" db:"country"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Program is a degree program students apply to
type Program struct {
	ID                uuid.UUID `json:"id" db:"id"`
	UniversityID      uuid.UUID `json:"universityId" db:"university_id"`
	UniversityName    string    `json:"universityName" db:"university_name"`
	Name              string    `json:"name" db:"name"`
	DegreeLevel       string    `json:"degreeLevel" db:"degree_level"`
	RequiresDocuments bool      `json:"requiresDocuments" db:"requires_documents"`
	CreatedAt         time.Time `json:"createdAt" db:"created_at"`
}

// Application belongs to one student and one program
type Application struct {
	ID                uuid.UUID         `json:"id" db:"id"`
	StudentID         uuid.UUID         `json:"studentId" db:"student_id"`
	ProgramID         uuid.UUID         `json:"programId" db:"program_id"`
	Status            ApplicationStatus `json:"status" db:"status"`
	RequiresDocuments bool              `json:"requiresDocuments" db:"requires_documents"`
	MissingFields     []string          `json:"missingFields" db:"missing_fields"`
	ConfirmedAt       *time.Time        `json:"confirmedAt,omitempty" db:"confirmed_at"`
	SubmittedAt       *time.Time        `json:"submittedAt,omitempty" db:"submitted_at"`
	CreatedAt         time.Time         `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time         `json:"updatedAt" db:"updated_at"`

	DocumentIDs []uuid.UUID `json:"documentIds"`
	Program     *Program    `json:"program,omitempty"`
}

// Stage derives the workflow stage
func (a *Application) Stage() ApplicationStage {
	switch {
	case a == nil:
		return StageNoApplication
	case a.Status == ApplicationStatusSubmitted:
		return StageSubmitted
	case a.ConfirmedAt != nil:
		return StageDocumentSelection
	default:
		return StageDraft
	}
}
