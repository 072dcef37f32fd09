package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/univgates1-stack/univgates-sub001/internal/app/models"
	"github.com/univgates1-stack/univgates-sub001/internal/app/repositories"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/apperrors"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/flight"
)

// CompletenessChecker scores a student profile
type CompletenessChecker interface {
	ComputeCompleteness(ctx context.Context, studentID uuid.UUID) (*Completeness, error)
}

// ApplicationService drives an application from draft to submission
type ApplicationService struct {
	apps      ApplicationStore
	programs  ProgramStore
	documents DocumentStore
	roles     RoleLookup
	profile   CompletenessChecker
	saving    *flight.Guard
	now       func() time.Time
	logger    zerolog.Logger
}

// NewApplicationService creates a new ApplicationService
func NewApplicationService(apps ApplicationStore, programs ProgramStore, documents DocumentStore, roles RoleLookup, profile CompletenessChecker, logger zerolog.Logger) *ApplicationService {
	return &ApplicationService{
		apps:      apps,
		programs:  programs,
		documents: documents,
		roles:     roles,
		profile:   profile,
		saving:    flight.NewGuard(),
		now:       time.Now,
		logger:    logger.With().Str("component", "applications").Logger(),
	}
}

func savingKey(appID uuid.UUID) string { return "saving:" + appID.String() }

// Programs lists the catalogue, optionally for one university
func (s *ApplicationService) Programs(ctx context.Context, universityID *uuid.UUID) ([]*models.Program, error) {
	return s.programs.List(ctx, universityID)
}

// Apply opens a draft application for the program. A second application for the
// same program is refused with a duplicate error pointing at the applications list.
func (s *ApplicationService) Apply(ctx context.Context, studentID, programID uuid.UUID) (*models.Application, error) {
	student, err := s.roles.FindStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if student == nil {
		return nil, apperrors.NewForbiddenError("Only students can apply to programs")
	}

	program, err := s.programs.GetByID(ctx, programID)
	if err != nil {
		return nil, err
	}

	existing, err := s.apps.FindByStudentProgram(ctx, studentID, programID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.NewDuplicateApplicationError(existing.ID.String(), PathApplications)
	}

	completeness, err := s.profile.ComputeCompleteness(ctx, studentID)
	if err != nil {
		return nil, err
	}

	app := &models.Application{
		StudentID:         studentID,
		ProgramID:         programID,
		Status:            models.ApplicationStatusDraft,
		RequiresDocuments: program.RequiresDocuments,
		MissingFields:     completeness.MissingFields,
		Program:           program,
	}
	if err := s.apps.Create(ctx, app); err != nil {
		if errors.Is(err, apperrors.ErrDuplicateApplication) {
			// lost the race against a concurrent apply
			if winner, ferr := s.apps.FindByStudentProgram(ctx, studentID, programID); ferr == nil && winner != nil {
				return nil, apperrors.NewDuplicateApplicationError(winner.ID.String(), PathApplications)
			}
			return nil, apperrors.NewDuplicateApplicationError("", PathApplications)
		}
		return nil, err
	}

	s.logger.Info().
		Str("student_id", studentID.String()).
		Str("application_id", app.ID.String()).
		Int("missing_fields", len(app.MissingFields)).
		Msg("Application draft created")
	return app, nil
}

// List returns the student's applications
func (s *ApplicationService) List(ctx context.Context, studentID uuid.UUID) ([]*models.Application, error) {
	apps, err := s.apps.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if apps == nil {
		apps = []*models.Application{}
	}
	return apps, nil
}

// Get returns one of the student's applications
func (s *ApplicationService) Get(ctx context.Context, studentID, appID uuid.UUID) (*models.Application, error) {
	app, err := s.apps.GetByID(ctx, appID)
	if err != nil {
		return nil, err
	}
	if app.StudentID != studentID {
		// do not leak other students' application ids
		return nil, apperrors.NewResourceNotFoundError("Application not found")
	}
	return app, nil
}

// Confirm records that the student vouched for their information and moves the
// draft on to document selection
func (s *ApplicationService) Confirm(ctx context.Context, studentID, appID uuid.UUID, informationAccurate bool) (*models.Application, error) {
	if !informationAccurate {
		return nil, apperrors.ErrConfirmationRequired
	}
	app, err := s.Get(ctx, studentID, appID)
	if err != nil {
		return nil, err
	}
	switch app.Stage() {
	case models.StageSubmitted:
		return nil, apperrors.ErrAlreadySubmitted
	case models.StageDocumentSelection:
		return app, nil
	}

	at := s.now()
	ok, err := s.apps.Confirm(ctx, appID, at)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.ErrInvalidTransition
	}
	app.ConfirmedAt = &at
	return app, nil
}

func (s *ApplicationService) checkOwnedDocuments(ctx context.Context, studentID uuid.UUID, docIDs []uuid.UUID) ([]uuid.UUID, error) {
	ids := dedupeIDs(docIDs)
	if len(ids) == 0 {
		return ids, nil
	}
	n, err := s.documents.CountOwned(ctx, studentID, ids)
	if err != nil {
		return nil, err
	}
	if n != len(ids) {
		return nil, apperrors.NewForbiddenError("One or more documents do not belong to you")
	}
	return ids, nil
}

func dedupeIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == uuid.Nil {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// SaveDocuments auto-saves the document selection. While it runs, submit and
// other saves for the same application are turned away with ErrSaveInProgress.
func (s *ApplicationService) SaveDocuments(ctx context.Context, studentID, appID uuid.UUID, docIDs []uuid.UUID) error {
	app, err := s.Get(ctx, studentID, appID)
	if err != nil {
		return err
	}
	if app.Stage() != models.StageDocumentSelection {
		if app.Stage() == models.StageSubmitted {
			return apperrors.ErrAlreadySubmitted
		}
		return apperrors.ErrConfirmationRequired
	}

	var saveErr error
	ran := s.saving.TryRun(savingKey(appID), func() {
		ids, err := s.checkOwnedDocuments(ctx, studentID, docIDs)
		if err != nil {
			saveErr = err
			return
		}
		saveErr = s.apps.ReplaceDocuments(ctx, appID, ids)
	})
	if !ran {
		return apperrors.ErrSaveInProgress
	}
	return saveErr
}

// Saving reports whether a document selection save is in flight
func (s *ApplicationService) Saving(appID uuid.UUID) bool {
	return s.saving.Busy(savingKey(appID))
}

// Submit stores the final selection and submits the application. It happens
// at most once per application.
func (s *ApplicationService) Submit(ctx context.Context, studentID, appID uuid.UUID, docIDs []uuid.UUID) (*models.Application, error) {
	app, err := s.Get(ctx, studentID, appID)
	if err != nil {
		return nil, err
	}
	switch app.Stage() {
	case models.StageSubmitted:
		return nil, apperrors.ErrAlreadySubmitted
	case models.StageDraft:
		return nil, apperrors.ErrConfirmationRequired
	}
	if len(dedupeIDs(docIDs)) == 0 {
		return nil, apperrors.ErrNoDocumentsSelected
	}

	var submitErr error
	at := s.now()
	ran := s.saving.TryRun(savingKey(appID), func() {
		ids, err := s.checkOwnedDocuments(ctx, studentID, docIDs)
		if err != nil {
			submitErr = err
			return
		}
		if submitErr = s.apps.Submit(ctx, appID, ids, at); submitErr == nil {
			app.DocumentIDs = ids
		}
	})
	if !ran {
		return nil, apperrors.ErrSaveInProgress
	}
	if submitErr != nil {
		return nil, submitErr
	}

	app.Status = models.ApplicationStatusSubmitted
	app.SubmittedAt = &at
	s.logger.Info().
		Str("student_id", studentID.String()).
		Str("application_id", appID.String()).
		Int("documents", len(app.DocumentIDs)).
		Msg("Application submitted")
	return app, nil
}

// ListAll returns a page of all applications for administrators
func (s *ApplicationService) ListAll(ctx context.Context, filter repositories.ApplicationFilter) ([]*models.Application, int64, error) {
	apps, total, err := s.apps.ListAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	if apps == nil {
		apps = []*models.Application{}
	}
	return apps, total, nil
}
