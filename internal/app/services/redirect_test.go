package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/univgates1-stack/univgates-sub001/internal/app/models"
)

func studentRes(status string) models.RoleResolution {
	id := uuid.New()
	return models.RoleResolution{
		IdentityID: id,
		Role:       models.RoleStudent,
		Source:     models.RoleSourceTable,
		Payload:    &models.Student{IdentityID: id, ProfileCompletionStatus: status},
	}
}

func officialRes(status models.OfficialStatus, university *uuid.UUID, department *string) models.RoleResolution {
	id := uuid.New()
	return models.RoleResolution{
		IdentityID: id,
		Role:       models.RoleUniversityOfficial,
		Source:     models.RoleSourceTable,
		Payload:    &models.UniversityOfficial{IdentityID: id, Status: status, UniversityID: university, Department: department},
	}
}

func TestRedirectPolicy_Destination(t *testing.T) {
	policy := NewRedirectPolicy(nil)
	university := uuid.New()
	agentID, adminID, unresolvedID := uuid.New(), uuid.New(), uuid.New()

	tests := []struct {
		name         string
		res          models.RoleResolution
		path         string
		wantDest     string
		wantRedirect bool
	}{
		{"anonymous on landing page", models.NoIdentity(), "/", "/", false},
		{"anonymous on auth callback", models.NoIdentity(), "/auth/callback", "/auth/callback", false},
		{"anonymous on privacy", models.NoIdentity(), "/privacy?lang=tr", "/privacy", false},
		{"anonymous on dashboard", models.NoIdentity(), "/dashboard", PathAuth, true},
		{"student with no status", studentRes(""), "/dashboard", PathOnboarding, true},
		{"student incomplete", studentRes("incomplete"), "/auth", PathOnboarding, true},
		{"student already onboarding", studentRes("incomplete"), "/onboarding/step-2", PathOnboarding, false},
		{"student personal done", studentRes("personal_completed"), "/dashboard", PathAcademicOnboarding, true},
		{"student legacy personal status", studentRes("academic_pending"), "/onboarding", PathAcademicOnboarding, true},
		{"student complete", studentRes("complete"), "/onboarding", PathDashboard, true},
		{"student complete in sub page", studentRes("complete"), "/dashboard/applications/", PathDashboard, false},
		{"official pending", officialRes(models.OfficialStatusPending, &university, ptr("Admissions")), "/dashboard", PathRegistrationPending, true},
		{"official pending stays", officialRes(models.OfficialStatusPending, nil, nil), "/registration-pending", PathRegistrationPending, false},
		{"official rejected", officialRes(models.OfficialStatusRejected, &university, ptr("Admissions")), "/dashboard", PathPendingReview, true},
		{"official approved without department", officialRes(models.OfficialStatusApproved, &university, ptr("  ")), "/dashboard", PathUniversityOnboarding, true},
		{"official approved without university", officialRes(models.OfficialStatusApproved, nil, ptr("Admissions")), "/dashboard", PathUniversityOnboarding, true},
		{"official approved", officialRes(models.OfficialStatusApproved, &university, ptr("Admissions")), "/dashboard", PathDashboard, false},
		{"agent", models.RoleResolution{IdentityID: agentID, Role: models.RoleAgent, Payload: &models.Agent{IdentityID: agentID}}, "/auth", PathDashboard, true},
		{"administrator", models.RoleResolution{IdentityID: adminID, Role: models.RoleAdministrator, Payload: &models.Administrator{IdentityID: adminID}}, "/dashboard/admin", PathDashboard, false},
		{"unresolved role", models.RoleResolution{IdentityID: unresolvedID, Role: models.RoleNone, Source: models.RoleSourceError}, "/dashboard", PathOnboarding, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dest, redirect := policy.Destination(tt.res, tt.path)
			assert.Equal(t, tt.wantDest, dest)
			assert.Equal(t, tt.wantRedirect, redirect)
		})
	}
}

func TestRedirectPolicy_IsPublic(t *testing.T) {
	policy := NewRedirectPolicy([]string{"/", "/auth/*", "/coming-soon"})

	assert.True(t, policy.IsPublic("/"))
	assert.True(t, policy.IsPublic("/auth/callback"))
	assert.False(t, policy.IsPublic("/auth"))
	assert.True(t, policy.IsPublic("/coming-soon/"))
	assert.False(t, policy.IsPublic("/dashboard"))
	assert.False(t, policy.IsPublic("/authx"))
}

func TestPathMatches(t *testing.T) {
	assert.True(t, PathMatches("/dashboard/messages", PathDashboard))
	assert.False(t, PathMatches("/dashboards", PathDashboard))
	assert.True(t, PathMatches("/registration-pending", PathRegistrationPending))
	assert.False(t, PathMatches("/registration-pending/extra", PathRegistrationPending))
	assert.False(t, PathMatches("/pending-review/x", PathPendingReview))
}
