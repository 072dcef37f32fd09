package models

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Role is the single role an identity acts under
type Role string

const (
	RoleNone               Role = ""
	RoleStudent            Role = "student"
	RoleAgent              Role = "agent"
	RoleUniversityOfficial Role = "university_official"
	RoleAdministrator      Role = "administrator"
)

// RolePriority is the tie-break order applied when an identity has rows in more
// than one role table. The metadata fallback uses the same order.
var RolePriority = []Role{
	RoleUniversityOfficial,
	RoleAdministrator,
	RoleAgent,
	RoleStudent,
}

// ParseRole normalises a free-form role claim, e.g. from identity metadata.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "student":
		return RoleStudent
	case "agent":
		return RoleAgent
	case "university_official", "university-official", "official":
		return RoleUniversityOfficial
	case "admin", "administrator":
		return RoleAdministrator
	default:
		return RoleNone
	}
}

// RoleSource records where a resolution came from
type RoleSource string

const (
	RoleSourceTable    RoleSource = "table"
	RoleSourceMetadata RoleSource = "metadata"
	RoleSourceNone     RoleSource = "none"
	RoleSourceError    RoleSource = "error"
)

// RolePayload is implemented by exactly the four role records. Consumers switch on
// the concrete type.
type RolePayload interface {
	PayloadRole() Role
}

func (*Student) PayloadRole() Role            { return RoleStudent }
func (*Agent) PayloadRole() Role              { return RoleAgent }
func (*UniversityOfficial) PayloadRole() Role { return RoleUniversityOfficial }
func (*Administrator) PayloadRole() Role      { return RoleAdministrator }

// RoleResolution is the outcome of resolving an identity's role.
// IdentityID is uuid.Nil when there is no authenticated identity.
// When Role is not RoleNone, Payload is non-nil and Payload.PayloadRole() == Role.
type RoleResolution struct {
	IdentityID uuid.UUID
	Role       Role
	Source     RoleSource
	Payload    RolePayload
}

// NoIdentity is the resolution for a request without a session
func NoIdentity() RoleResolution {
	return RoleResolution{Role: RoleNone, Source: RoleSourceNone}
}

// Authenticated reports whether the resolution belongs to a signed-in identity
func (r RoleResolution) Authenticated() bool {
	return r.IdentityID != uuid.Nil
}

// Student returns the student payload, if that is the resolved role
func (r RoleResolution) Student() (*Student, bool) {
	s, ok := r.Payload.(*Student)
	return s, ok && s != nil
}

// Official returns the university-official payload, if that is the resolved role
func (r RoleResolution) Official() (*UniversityOfficial, bool) {
	o, ok := r.Payload.(*UniversityOfficial)
	return o, ok && o != nil
}

// Agent returns the agent payload, if that is the resolved role
func (r RoleResolution) Agent() (*Agent, bool) {
	a, ok := r.Payload.(*Agent)
	return a, ok && a != nil
}

// Administrator returns the administrator payload, if that is the resolved role
func (r RoleResolution) Administrator() (*Administrator, bool) {
	a, ok := r.Payload.(*Administrator)
	return a, ok && a != nil
}

// resolutionWire is the cache/JSON representation of RoleResolution.
type resolutionWire struct {
	IdentityID    uuid.UUID           `json:"identityId"`
	Role          Role                `json:"role"`
	Source        RoleSource          `json:"source"`
	Student       *Student            `json:"student,omitempty"`
	Agent         *Agent              `json:"agent,omitempty"`
	Official      *UniversityOfficial `json:"universityOfficial,omitempty"`
	Administrator *Administrator      `json:"administrator,omitempty"`
}

// MarshalJSON flattens the payload into a role-keyed field
func (r RoleResolution) MarshalJSON() ([]byte, error) {
	w := resolutionWire{IdentityID: r.IdentityID, Role: r.Role, Source: r.Source}
	switch p := r.Payload.(type) {
	case *Student:
		w.Student = p
	case *Agent:
		w.Agent = p
	case *UniversityOfficial:
		w.Official = p
	case *Administrator:
		w.Administrator = p
	case nil:
	default:
		return nil, fmt.Errorf("unknown role payload %T", p)
	}
	return json.Marshal(w)
}

// UnmarshalJSON restores the payload matching Role
func (r *RoleResolution) UnmarshalJSON(data []byte) error {
	var w resolutionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*r = RoleResolution{IdentityID: w.IdentityID, Role: w.Role, Source: w.Source}
	switch w.Role {
	case RoleStudent:
		if w.Student != nil {
			r.Payload = w.Student
		}
	case RoleAgent:
		if w.Agent != nil {
			r.Payload = w.Agent
		}
	case RoleUniversityOfficial:
		if w.Official != nil {
			r.Payload = w.Official
		}
	case RoleAdministrator:
		if w.Administrator != nil {
			r.Payload = w.Administrator
		}
	}
	if r.Role != RoleNone && r.Payload == nil {
		return fmt.Errorf("role %q has no payload", r.Role)
	}
	return nil
}
