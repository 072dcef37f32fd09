package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// OfficialStatus is the verification state of a university official
type OfficialStatus string

const (
	OfficialStatusPending  OfficialStatus = "pending"
	OfficialStatusApproved OfficialStatus = "approved"
	OfficialStatusRejected OfficialStatus = "rejected"
)

// Agent is an education agent acting on behalf of students
type Agent struct {
	IdentityID uuid.UUID `json:"identityId" db:"identity_id"`
	AgencyName string    `json:"agencyName" db:"agency_name"`
	Country    *string   `json:"country,omitempty" db:"country"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}

// UniversityOfficial is staff of a partner university
type UniversityOfficial struct {
	IdentityID   uuid.UUID      `json:"identityId" db:"identity_id"`
	UniversityID *uuid.UUID     `json:"universityId,omitempty" db:"university_id"`
	Department   *string        `json:"department,omitempty" db:"department"`
	Status       OfficialStatus `json:"status" db:"status" example:"pending"`
	CreatedAt    time.Time      `json:"createdAt" db:"created_at"`
}

// HasDepartment reports whether onboarding captured a department
func (o *UniversityOfficial) HasDepartment() bool {
	return o.Department != nil && strings.TrimSpace(*o.Department) != ""
}

// Administrator is platform staff
type Administrator struct {
	IdentityID uuid.UUID `json:"identityId" db:"identity_id"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}
