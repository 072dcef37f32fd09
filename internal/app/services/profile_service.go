package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/univgates1-stack/univgates-sub001/internal/app/models"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/apperrors"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/cache"
	"golang.org/x/sync/errgroup"
)

// Completeness checklist labels, in display order
const (
	FieldFullName          = "Full Name"
	FieldDateOfBirth       = "Date of Birth"
	FieldCountryOfOrigin   = "Country of Origin"
	FieldCurrentStudyLevel = "Current Study Level"
	FieldPassport          = "Passport Information"
	FieldAcademicHistory   = "Academic History"
)

const completenessChecks = 6

// Completeness is a derived snapshot of how much of a student profile is filled in
type Completeness struct {
	IsComplete           bool     `json:"isComplete"`
	CompletionPercentage int      `json:"completionPercentage"`
	MissingFields        []string `json:"missingFields"`
}

// Nudge tells the dashboard whether to show the complete-your-profile reminder
type Nudge struct {
	Show         bool         `json:"show"`
	Completeness Completeness `json:"completeness"`
}

// PersonalInfoInput is the personal onboarding step
type PersonalInfoInput struct {
	FirstName         string
	LastName          string
	DateOfBirth       *time.Time
	CountryOfOrigin   *string
	CurrentStudyLevel *string
}

// ProfileService scores and updates student profiles
type ProfileService struct {
	roles    RoleLookup
	students StudentStore
	nudges   *cache.Helper
	nudgeTTL time.Duration
	events   EventPublisher
	logger   zerolog.Logger
}

// NewProfileService creates a new ProfileService. Nudge dismissals live in
// nudges for nudgeTTL, which should match the refresh-token lifetime so a
// dismissal lasts as long as the session.
func NewProfileService(roles RoleLookup, students StudentStore, nudges *cache.Helper, nudgeTTL time.Duration, events EventPublisher, logger zerolog.Logger) *ProfileService {
	return &ProfileService{
		roles:    roles,
		students: students,
		nudges:   nudges,
		nudgeTTL: nudgeTTL,
		events:   events,
		logger:   logger.With().Str("component", "profile").Logger(),
	}
}

// ComputeCompleteness checks the six profile items. The same result gates
// applications and drives the dashboard nudge.
func (s *ProfileService) ComputeCompleteness(ctx context.Context, studentID uuid.UUID) (*Completeness, error) {
	var (
		student   *models.Student
		passport  *models.Passport
		hasDegree bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		student, err = s.roles.FindStudent(gctx, studentID)
		return err
	})
	g.Go(func() (err error) {
		passport, err = s.students.LatestPassport(gctx, studentID)
		return err
	})
	g.Go(func() (err error) {
		hasDegree, err = s.students.HasDegree(gctx, studentID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scoreCompleteness(student, passport, hasDegree), nil
}

func scoreCompleteness(student *models.Student, passport *models.Passport, hasDegree bool) *Completeness {
	missing := []string{}
	if student == nil || blank(student.FirstName) || blank(student.LastName) {
		missing = append(missing, FieldFullName)
	}
	if student == nil || student.DateOfBirth == nil {
		missing = append(missing, FieldDateOfBirth)
	}
	if student == nil || blankPtr(student.CountryOfOrigin) {
		missing = append(missing, FieldCountryOfOrigin)
	}
	if student == nil || blankPtr(student.CurrentStudyLevel) {
		missing = append(missing, FieldCurrentStudyLevel)
	}
	if passport == nil || blank(passport.PassportNumber) {
		missing = append(missing, FieldPassport)
	}
	if !hasDegree {
		missing = append(missing, FieldAcademicHistory)
	}

	done := completenessChecks - len(missing)
	return &Completeness{
		IsComplete:           len(missing) == 0,
		CompletionPercentage: int(math.Round(float64(done) / completenessChecks * 100)),
		MissingFields:        missing,
	}
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

func blankPtr(s *string) bool { return s == nil || blank(*s) }

func nudgeKey(sessionID uuid.UUID) string { return "dismissed:" + sessionID.String() }

// Nudge reports whether to remind the student to finish their profile. A
// dismissal lasts for the rest of the session.
func (s *ProfileService) Nudge(ctx context.Context, studentID, sessionID uuid.UUID) (*Nudge, error) {
	c, err := s.ComputeCompleteness(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if c.IsComplete {
		return &Nudge{Show: false, Completeness: *c}, nil
	}

	dismissed, err := s.nudges.Exists(ctx, nudgeKey(sessionID))
	if err != nil && !errors.Is(err, cache.ErrCacheNotAvailable) {
		s.logger.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Nudge dismissal lookup failed")
	}
	return &Nudge{Show: !dismissed, Completeness: *c}, nil
}

// DismissNudge hides the reminder for the rest of the session
func (s *ProfileService) DismissNudge(ctx context.Context, sessionID uuid.UUID) error {
	return s.nudges.SetString(ctx, nudgeKey(sessionID), "1", s.nudgeTTL)
}

// GetStudent returns the student row
func (s *ProfileService) GetStudent(ctx context.Context, studentID uuid.UUID) (*models.Student, error) {
	student, err := s.roles.FindStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if student == nil {
		return nil, apperrors.NewResourceNotFoundError("Student profile not found")
	}
	return student, nil
}

// SavePersonalInfo stores the personal onboarding step and moves the student on
// to academic onboarding. A finished profile stays complete.
func (s *ProfileService) SavePersonalInfo(ctx context.Context, studentID uuid.UUID, in PersonalInfoInput) (*models.Student, error) {
	if blank(in.FirstName) || blank(in.LastName) {
		return nil, apperrors.NewBadRequestError("First and last name are required")
	}
	existing, err := s.roles.FindStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	status := models.ProfileStatusPersonalCompleted
	if existing != nil && existing.Stage() == models.StageDone {
		status = existing.ProfileCompletionStatus
	}
	student := &models.Student{
		IdentityID:              studentID,
		FirstName:               strings.TrimSpace(in.FirstName),
		LastName:                strings.TrimSpace(in.LastName),
		ProfileCompletionStatus: status,
		DateOfBirth:             in.DateOfBirth,
		CountryOfOrigin:         in.CountryOfOrigin,
		CurrentStudyLevel:       in.CurrentStudyLevel,
	}
	if err := s.students.UpsertPersonalInfo(ctx, student); err != nil {
		return nil, err
	}
	s.changed(studentID)
	return student, nil
}

// AddPassport records a passport; the newest one counts towards completeness
func (s *ProfileService) AddPassport(ctx context.Context, studentID uuid.UUID, p *models.Passport) error {
	if blank(p.PassportNumber) || blank(p.IssuingCountry) {
		return apperrors.NewBadRequestError("Passport number and issuing country are required")
	}
	p.StudentID = studentID
	return s.students.CreatePassport(ctx, p)
}

// AddDegree appends to the student's academic history
func (s *ProfileService) AddDegree(ctx context.Context, studentID uuid.UUID, d *models.Degree) error {
	if blank(d.Institution) || blank(d.DegreeLevel) {
		return apperrors.NewBadRequestError("Institution and degree level are required")
	}
	d.StudentID = studentID
	return s.students.CreateDegree(ctx, d)
}

// ListDegrees returns the academic history
func (s *ProfileService) ListDegrees(ctx context.Context, studentID uuid.UUID) ([]*models.Degree, error) {
	return s.students.ListDegrees(ctx, studentID)
}

// CompleteAcademic finishes onboarding. It needs the personal step done and at
// least one degree on record.
func (s *ProfileService) CompleteAcademic(ctx context.Context, studentID uuid.UUID) (*models.Student, error) {
	student, err := s.GetStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if student.Stage() == models.StagePersonal {
		return nil, apperrors.NewConflictError("Personal information must be completed first")
	}
	hasDegree, err := s.students.HasDegree(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if !hasDegree {
		return nil, apperrors.NewBadRequestError("Add at least one degree before finishing academic onboarding")
	}
	if err := s.students.UpdateCompletionStatus(ctx, studentID, models.ProfileStatusComplete); err != nil {
		return nil, err
	}
	student.ProfileCompletionStatus = models.ProfileStatusComplete
	s.changed(studentID)
	return student, nil
}

// changed tells role caches that the student payload moved on
func (s *ProfileService) changed(studentID uuid.UUID) {
	publishAuthEvent(s.events, s.logger, models.AuthEventUserUpdated, studentID, nil, time.Now())
}
