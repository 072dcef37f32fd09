package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/univgates1-stack/univgates-sub001/internal/app/models"
)

// IdentityResponse is the public view of an identity
type IdentityResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Role      string    `json:"role,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewIdentityResponse maps an identity; role is the resolved role when known
func NewIdentityResponse(i *models.Identity, role models.Role) IdentityResponse {
	if i == nil {
		return IdentityResponse{}
	}
	r := string(role)
	if r == "" {
		r = i.MetadataRole()
	}
	return IdentityResponse{
		ID:        i.ID,
		Email:     i.Email,
		FirstName: i.FirstName,
		LastName:  i.LastName,
		Role:      r,
		CreatedAt: i.CreatedAt,
	}
}

// EnsureOfficialRequest optionally ties the official to a university
type EnsureOfficialRequest struct {
	UniversityID *uuid.UUID `json:"universityId,omitempty"`
}
