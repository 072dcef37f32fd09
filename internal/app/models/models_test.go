package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	cases := map[string]Role{
		"Admin":               RoleAdministrator,
		" ADMINISTRATOR ":     RoleAdministrator,
		"student":             RoleStudent,
		"Agent":               RoleAgent,
		"university_official": RoleUniversityOfficial,
		"":                    RoleNone,
		"superuser":           RoleNone,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseRole(in), in)
	}
}

func TestStudentStage(t *testing.T) {
	cases := map[string]OnboardingStage{
		"":                   StagePersonal,
		"incomplete":         StagePersonal,
		"personal_completed": StageAcademic,
		"academic_pending":   StageAcademic,
		"complete":           StageDone,
		"COMPLETE":           StageDone,
	}
	for status, want := range cases {
		s := &Student{ProfileCompletionStatus: status}
		assert.Equal(t, want, s.Stage(), status)
	}

	out, err := json.Marshal(map[string]OnboardingStage{"stage": StageAcademic})
	require.NoError(t, err)
	assert.JSONEq(t, `{"stage":"academic"}`, string(out))
}

func TestApplicationStage(t *testing.T) {
	var none *Application
	assert.Equal(t, StageNoApplication, none.Stage())

	app := &Application{Status: ApplicationStatusDraft}
	assert.Equal(t, StageDraft, app.Stage())

	now := time.Now()
	app.ConfirmedAt = &now
	assert.Equal(t, StageDocumentSelection, app.Stage())

	app.Status = ApplicationStatusSubmitted
	assert.Equal(t, StageSubmitted, app.Stage())
}

func TestRoleResolutionJSON(t *testing.T) {
	dept := "Admissions"
	in := RoleResolution{
		IdentityID: uuid.New(),
		Role:       RoleUniversityOfficial,
		Source:     RoleSourceTable,
		Payload:    &UniversityOfficial{Status: OfficialStatusApproved, Department: &dept},
	}

	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out RoleResolution
	require.NoError(t, json.Unmarshal(data, &out))
	official, ok := out.Official()
	require.True(t, ok)
	assert.Equal(t, OfficialStatusApproved, official.Status)
	assert.True(t, official.HasDepartment())
	_, isStudent := out.Student()
	assert.False(t, isStudent)
}

func TestRoleResolutionJSON_RejectsMissingPayload(t *testing.T) {
	var out RoleResolution
	err := json.Unmarshal([]byte(`{"role":"student","source":"table"}`), &out)
	assert.Error(t, err)
}

func TestMessageAttachmentAndPreview(t *testing.T) {
	content, err := AttachmentEnvelope{
		FileName: "passport.png",
		FilePath: "conversations/c/p.png",
		FileType: "image/png",
		FileSize: 42,
		Bucket:   "chat-attachments",
	}.Encode()
	require.NoError(t, err)

	msg := &Message{Content: content}
	env, ok := msg.Attachment()
	require.True(t, ok)
	assert.Equal(t, AttachmentType, env.Type)
	assert.Equal(t, "📎 passport.png", msg.Preview())

	env.Text = "here you go"
	content, err = env.Encode()
	require.NoError(t, err)
	msg.Content = content
	assert.Equal(t, "here you go", msg.Preview())

	plain := &Message{Content: `{"not":"an envelope"}`}
	_, ok = plain.Attachment()
	assert.False(t, ok)
	assert.Equal(t, `{"not":"an envelope"}`, plain.Preview())
}

func TestOrderedPair(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	l1, h1 := OrderedPair(a, b)
	l2, h2 := OrderedPair(b, a)
	assert.Equal(t, l1, l2)
	assert.Equal(t, h1, h2)

	c := &Conversation{ParticipantLow: l1, ParticipantHigh: h1}
	assert.True(t, c.Includes(a))
	assert.Equal(t, b, c.Other(a))
}
