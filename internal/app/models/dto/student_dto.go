package dto

import (
	"time"

	"github.com/univgates1-stack/univgates-sub001/internal/app/models"
)

// PersonalInfoRequest is the personal onboarding step
type PersonalInfoRequest struct {
	FirstName         string     `json:"firstName" binding:"required"`
	LastName          string     `json:"lastName" binding:"required"`
	DateOfBirth       *time.Time `json:"dateOfBirth,omitempty" example:"2004-05-17T00:00:00Z"`
	CountryOfOrigin   *string    `json:"countryOfOrigin,omitempty" binding:"omitempty,country_code" example:"TR"`
	CurrentStudyLevel *string    `json:"currentStudyLevel,omitempty" example:"high_school"`
}

// PassportRequest records a passport
type PassportRequest struct {
	PassportNumber string     `json:"passportNumber" binding:"required"`
	IssuingCountry string     `json:"issuingCountry" binding:"required,country_code" example:"TR"`
	ExpiryDate     *time.Time `json:"expiryDate,omitempty"`
}

// ToModel converts the request
func (r PassportRequest) ToModel() *models.Passport {
	return &models.Passport{
		PassportNumber: r.PassportNumber,
		IssuingCountry: r.IssuingCountry,
		ExpiryDate:     r.ExpiryDate,
	}
}

// DegreeRequest appends to the academic history
type DegreeRequest struct {
	Institution    string `json:"institution" binding:"required"`
	DegreeLevel    string `json:"degreeLevel" binding:"required,degree_level" example:"high_school"`
	FieldOfStudy   string `json:"fieldOfStudy"`
	GraduationYear *int   `json:"graduationYear,omitempty" binding:"omitempty,min=1950,max=2100"`
}

// ToModel converts the request
func (r DegreeRequest) ToModel() *models.Degree {
	return &models.Degree{
		Institution:    r.Institution,
		DegreeLevel:    r.DegreeLevel,
		FieldOfStudy:   r.FieldOfStudy,
		GraduationYear: r.GraduationYear,
	}
}

// ProfileResponse is a student profile with its derived onboarding stage
type ProfileResponse struct {
	*models.Student
	Stage models.OnboardingStage `json:"stage" example:"personal"`
}
