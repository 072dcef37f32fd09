package dto

import (
	"github.com/google/uuid"
	"github.com/univgates1-stack/univgates-sub001/internal/app/models"
)

// ApplyRequest starts an application
type ApplyRequest struct {
	ProgramID uuid.UUID `json:"programId" binding:"required"`
}

// ConfirmApplicationRequest is the accuracy confirmation step
type ConfirmApplicationRequest struct {
	InformationAccurate bool `json:"informationAccurate"`
}

// DocumentSelectionRequest is the current document selection
type DocumentSelectionRequest struct {
	DocumentIDs []uuid.UUID `json:"documentIds" binding:"required"`
}

// ApplicationResponse adds the derived workflow stage
type ApplicationResponse struct {
	*models.Application
	Stage  models.ApplicationStage `json:"stage" example:"draft"`
	Saving bool                    `json:"saving"`
}

// NewApplicationResponse maps an application
func NewApplicationResponse(a *models.Application, saving bool) ApplicationResponse {
	return ApplicationResponse{Application: a, Stage: a.Stage(), Saving: saving}
}
