package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/univgates1-stack/univgates-sub001/internal/app/models"
	"github.com/univgates1-stack/univgates-sub001/internal/app/repositories"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/apperrors"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/cache"
)

type applicationFixture struct {
	svc       *ApplicationService
	apps      *memApplications
	documents *memDocuments
	profiles  *memProfiles
	program   *models.Program
	studentID uuid.UUID
}

func newApplicationFixture(t *testing.T) *applicationFixture {
	t.Helper()
	profiles := newMemProfiles()
	program := &models.Program{
		ID:                uuid.New(),
		UniversityID:      uuid.New(),
		UniversityName:    "Boğaziçi University",
		Name:              "Computer Engineering",
		DegreeLevel:       "bachelor",
		RequiresDocuments: true,
	}
	studentID := uuid.New()
	profiles.addStudent(&models.Student{IdentityID: studentID, FirstName: "Ada", LastName: "Lovelace"})

	profile := NewProfileService(profiles, profiles, cache.NewHelper(nil, ""), time.Minute, nil, zerolog.Nop())
	apps := newMemApplications()
	documents := newMemDocuments()
	svc := NewApplicationService(apps, newMemPrograms(program), documents, profiles, profile, zerolog.Nop())
	return &applicationFixture{svc: svc, apps: apps, documents: documents, profiles: profiles, program: program, studentID: studentID}
}

func (f *applicationFixture) confirmedApp(t *testing.T) *models.Application {
	t.Helper()
	app, err := f.svc.Apply(context.Background(), f.studentID, f.program.ID)
	require.NoError(t, err)
	app, err = f.svc.Confirm(context.Background(), f.studentID, app.ID, true)
	require.NoError(t, err)
	return app
}

func TestApply_CreatesDraftWithMissingFields(t *testing.T) {
	f := newApplicationFixture(t)

	app, err := f.svc.Apply(context.Background(), f.studentID, f.program.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusDraft, app.Status)
	assert.Equal(t, models.StageDraft, app.Stage())
	assert.True(t, app.RequiresDocuments)
	assert.Contains(t, app.MissingFields, FieldPassport)
	assert.NotContains(t, app.MissingFields, FieldFullName)
}

func TestApply_DuplicateRedirectsToApplications(t *testing.T) {
	f := newApplicationFixture(t)
	first, err := f.svc.Apply(context.Background(), f.studentID, f.program.ID)
	require.NoError(t, err)

	_, err = f.svc.Apply(context.Background(), f.studentID, f.program.ID)
	require.ErrorIs(t, err, apperrors.ErrDuplicateApplication)
	ce, ok := apperrors.AsCustom(err)
	require.True(t, ok)
	assert.Equal(t, PathApplications, ce.Details["redirectTo"])
	assert.Equal(t, first.ID.String(), ce.Details["applicationId"])
	assert.Equal(t, 1, f.apps.count())
}

func TestApply_InsertConflictMapsToDuplicate(t *testing.T) {
	f := newApplicationFixture(t)
	f.apps.createErr = apperrors.ErrDuplicateApplication

	_, err := f.svc.Apply(context.Background(), f.studentID, f.program.ID)
	require.ErrorIs(t, err, apperrors.ErrDuplicateApplication)
	ce, ok := apperrors.AsCustom(err)
	require.True(t, ok)
	assert.Equal(t, PathApplications, ce.Details["redirectTo"])
}

func TestApply_RequiresStudent(t *testing.T) {
	f := newApplicationFixture(t)

	_, err := f.svc.Apply(context.Background(), uuid.New(), f.program.ID)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	_, err = f.svc.Apply(context.Background(), f.studentID, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)
	assert.Zero(t, f.apps.count())
}

func TestConfirm_RequiresAccuracyFlag(t *testing.T) {
	f := newApplicationFixture(t)
	app, err := f.svc.Apply(context.Background(), f.studentID, f.program.ID)
	require.NoError(t, err)

	_, err = f.svc.Confirm(context.Background(), f.studentID, app.ID, false)
	assert.ErrorIs(t, err, apperrors.ErrConfirmationRequired)
	stored, err := f.svc.Get(context.Background(), f.studentID, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StageDraft, stored.Stage())

	confirmed, err := f.svc.Confirm(context.Background(), f.studentID, app.ID, true)
	require.NoError(t, err)
	assert.Equal(t, models.StageDocumentSelection, confirmed.Stage())

	// confirming twice is harmless
	again, err := f.svc.Confirm(context.Background(), f.studentID, app.ID, true)
	require.NoError(t, err)
	assert.Equal(t, models.StageDocumentSelection, again.Stage())
}

func TestGet_OtherStudentsApplicationIsHidden(t *testing.T) {
	f := newApplicationFixture(t)
	app, err := f.svc.Apply(context.Background(), f.studentID, f.program.ID)
	require.NoError(t, err)

	_, err = f.svc.Get(context.Background(), uuid.New(), app.ID)
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)
}

func TestSubmit_Workflow(t *testing.T) {
	f := newApplicationFixture(t)
	ctx := context.Background()
	app, err := f.svc.Apply(ctx, f.studentID, f.program.ID)
	require.NoError(t, err)
	doc := f.documents.add(f.studentID, "transcript.pdf")

	_, err = f.svc.Submit(ctx, f.studentID, app.ID, []uuid.UUID{doc})
	assert.ErrorIs(t, err, apperrors.ErrConfirmationRequired)

	_, err = f.svc.Confirm(ctx, f.studentID, app.ID, true)
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, f.studentID, app.ID, nil)
	assert.ErrorIs(t, err, apperrors.ErrNoDocumentsSelected)

	submitted, err := f.svc.Submit(ctx, f.studentID, app.ID, []uuid.UUID{doc, doc})
	require.NoError(t, err)
	assert.Equal(t, models.StageSubmitted, submitted.Stage())
	require.NotNil(t, submitted.SubmittedAt)
	assert.Equal(t, []uuid.UUID{doc}, submitted.DocumentIDs)

	_, err = f.svc.Submit(ctx, f.studentID, app.ID, []uuid.UUID{doc})
	assert.ErrorIs(t, err, apperrors.ErrAlreadySubmitted)
	err = f.svc.SaveDocuments(ctx, f.studentID, app.ID, []uuid.UUID{doc})
	assert.ErrorIs(t, err, apperrors.ErrAlreadySubmitted)
}

func TestSubmit_RejectsForeignDocuments(t *testing.T) {
	f := newApplicationFixture(t)
	app := f.confirmedApp(t)
	foreign := f.documents.add(uuid.New(), "someone-else.pdf")

	_, err := f.svc.Submit(context.Background(), f.studentID, app.ID, []uuid.UUID{foreign})
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	stored, err := f.svc.Get(context.Background(), f.studentID, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StageDocumentSelection, stored.Stage())
}

func TestSubmit_BlockedWhileSaving(t *testing.T) {
	f := newApplicationFixture(t)
	app := f.confirmedApp(t)
	doc := f.documents.add(f.studentID, "passport.pdf")
	f.apps.saveGate = make(chan struct{})

	saved := make(chan error, 1)
	go func() { saved <- f.svc.SaveDocuments(context.Background(), f.studentID, app.ID, []uuid.UUID{doc}) }()
	require.Eventually(t, func() bool { return f.svc.Saving(app.ID) }, time.Second, 5*time.Millisecond)

	_, err := f.svc.Submit(context.Background(), f.studentID, app.ID, []uuid.UUID{doc})
	assert.ErrorIs(t, err, apperrors.ErrSaveInProgress)

	close(f.apps.saveGate)
	require.NoError(t, <-saved)
	assert.False(t, f.svc.Saving(app.ID))

	submitted, err := f.svc.Submit(context.Background(), f.studentID, app.ID, []uuid.UUID{doc})
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusSubmitted, submitted.Status)
}

func TestSaveDocuments_RequiresConfirmation(t *testing.T) {
	f := newApplicationFixture(t)
	app, err := f.svc.Apply(context.Background(), f.studentID, f.program.ID)
	require.NoError(t, err)

	err = f.svc.SaveDocuments(context.Background(), f.studentID, app.ID, nil)
	assert.ErrorIs(t, err, apperrors.ErrConfirmationRequired)
}

func TestListAll_Pages(t *testing.T) {
	f := newApplicationFixture(t)
	for i := 0; i < 3; i++ {
		studentID := uuid.New()
		f.profiles.addStudent(&models.Student{IdentityID: studentID})
		_, err := f.svc.Apply(context.Background(), studentID, f.program.ID)
		require.NoError(t, err)
	}

	apps, total, err := f.svc.ListAll(context.Background(), repositories.ApplicationFilter{Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, apps, 2)

	submitted := models.ApplicationStatusSubmitted
	apps, total, err = f.svc.ListAll(context.Background(), repositories.ApplicationFilter{Status: &submitted})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.NotNil(t, apps)
}
