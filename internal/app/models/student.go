package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Profile completion statuses stored on students.profile_completion_status
const (
	ProfileStatusIncomplete        = "incomplete"
	ProfileStatusPersonalCompleted = "personal_completed"
	ProfileStatusComplete          = "complete"
)

// personalDoneStatuses are the values meaning personal info is saved but academic info is not.
var personalDoneStatuses = map[string]struct{}{
	ProfileStatusPersonalCompleted: {},
	"personal_info_completed":      {},
	"personal_complete":            {},
	"academic_pending":             {},
}

// OnboardingStage is the student onboarding step implied by profile_completion_status
type OnboardingStage int

const (
	StagePersonal OnboardingStage = iota
	StageAcademic
	StageDone
)

var stageNames = [...]string{"personal", "academic", "done"}

func (s OnboardingStage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}

// MarshalText renders the stage by name in JSON
func (s OnboardingStage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Student defines the student model based on the 'students' table
type Student struct {
	IdentityID              uuid.UUID  `json:"identityId" db:"identity_id"`
	FirstName               string     `json:"firstName" db:"first_name"`
	LastName                string     `json:"lastName" db:"last_name"`
	ProfileCompletionStatus string     `json:"profileCompletionStatus" db:"profile_completion_status" example:"incomplete"`
	DateOfBirth             *time.Time `json:"dateOfBirth,omitempty" db:"date_of_birth"`
	CountryOfOrigin         *string    `json:"countryOfOrigin,omitempty" db:"country_of_origin" example:"TR"`
	CurrentStudyLevel       *string    `json:"currentStudyLevel,omitempty" db:"current_study_level" example:"bachelor"`
	PassportNumber          *string    `json:"passportNumber,omitempty" db:"passport_number"`
	CreatedAt               time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt               time.Time  `json:"updatedAt" db:"updated_at"`
}

// Stage derives the onboarding stage from ProfileCompletionStatus
func (s *Student) Stage() OnboardingStage {
	status := strings.ToLower(strings.TrimSpace(s.ProfileCompletionStatus))
	if status == "" || status == ProfileStatusIncomplete {
		return StagePersonal
	}
	if _, ok := personalDoneStatuses[status]; ok {
		return StageAcademic
	}
	return StageDone
}

// Passport is a student's passport record; the most recent row wins
type Passport struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	StudentID      uuid.UUID  `json:"studentId" db:"student_id"`
	PassportNumber string     `json:"passportNumber" db:"passport_number"`
	IssuingCountry string     `json:"issuingCountry" db:"issuing_country"`
	ExpiryDate     *time.Time `json:"expiryDate,omitempty" db:"expiry_date"`
	CreatedAt      time.Time  `json:"createdAt" db:"created_at"`
}

// Degree is one row of a student's academic history
type Degree struct {
	ID             uuid.UUID `json:"id" db:"id"`
	StudentID      uuid.UUID `json:"studentId" db:"student_id"`
	Institution    string    `json:"institution" db:"institution"`
	DegreeLevel    string    `json:"degreeLevel" db:"degree_level"`
	FieldOfStudy   string    `json:"fieldOfStudy" db:"field_of_study"`
	GraduationYear *int      `json:"graduationYear,omitempty" db:"graduation_year"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
}
