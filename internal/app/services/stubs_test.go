package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/univgates1-stack/univgates-sub001/internal/app/models"
	"github.com/univgates1-stack/univgates-sub001/internal/app/repositories"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/apperrors"
)

// memIdentities is an in-memory IdentityStore
type memIdentities struct {
	mu       sync.Mutex
	byID     map[uuid.UUID]*models.Identity
	sessions map[uuid.UUID]*models.Session
	err      error
	// rows receives the role row written by Register; regErr aborts Register
	// before anything is stored.
	rows   *memProfiles
	regErr error
}

func newMemIdentities() *memIdentities {
	return &memIdentities{
		byID:     make(map[uuid.UUID]*models.Identity),
		sessions: make(map[uuid.UUID]*models.Session),
	}
}

func (m *memIdentities) add(email string, metadata map[string]interface{}) *models.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := &models.Identity{ID: uuid.New(), Email: email, Metadata: metadata, CreatedAt: time.Now()}
	m.byID[i.ID] = i
	return i
}

func (m *memIdentities) Register(ctx context.Context, identity *models.Identity, role models.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.regErr != nil {
		return m.regErr
	}
	for _, i := range m.byID {
		if i.Email == identity.Email {
			return apperrors.ErrEmailAlreadyExists
		}
	}
	identity.ID = uuid.New()
	identity.CreatedAt = time.Now()
	cp := *identity
	m.byID[identity.ID] = &cp
	if m.rows == nil {
		return nil
	}
	switch role {
	case models.RoleStudent:
		return m.rows.UpsertPersonalInfo(ctx, &models.Student{
			IdentityID:              identity.ID,
			FirstName:               identity.FirstName,
			LastName:                identity.LastName,
			ProfileCompletionStatus: models.ProfileStatusIncomplete,
		})
	case models.RoleUniversityOfficial:
		_, _, err := m.rows.EnsureOfficial(ctx, identity.ID, nil)
		return err
	case models.RoleAdministrator:
		return m.rows.EnsureAdministrator(ctx, identity.ID)
	}
	return nil
}

func (m *memIdentities) GetByID(_ context.Context, id uuid.UUID) (*models.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	i, ok := m.byID[id]
	if !ok {
		return nil, apperrors.NewResourceNotFoundError("User not found")
	}
	cp := *i
	return &cp, nil
}

func (m *memIdentities) GetByEmail(_ context.Context, email string) (*models.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, i := range m.byID {
		if i.Email == email {
			cp := *i
			return &cp, nil
		}
	}
	return nil, apperrors.NewResourceNotFoundError("User not found")
}

func (m *memIdentities) UpsertExternal(_ context.Context, identity *models.Identity) (*models.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, i := range m.byID {
		if i.ExternalID != nil && identity.ExternalID != nil && *i.ExternalID == *identity.ExternalID {
			cp := *i
			return &cp, nil
		}
	}
	cp := *identity
	cp.ID = uuid.New()
	m.byID[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memIdentities) CreateSession(_ context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *memIdentities) GetSession(_ context.Context, id uuid.UUID) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, apperrors.ErrNoSession
	}
	cp := *s
	return &cp, nil
}

func (m *memIdentities) GetSessionByRefreshToken(_ context.Context, token string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.RefreshToken == token {
			cp := *s
			return &cp, nil
		}
	}
	return nil, apperrors.ErrNoSession
}

func (m *memIdentities) RotateRefreshToken(_ context.Context, id uuid.UUID, newToken string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return apperrors.ErrNoSession
	}
	s.RefreshToken = newToken
	s.ExpiresAt = expiresAt
	return nil
}

func (m *memIdentities) RevokeSession(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return apperrors.ErrNoSession
	}
	now := time.Now()
	s.RevokedAt = &now
	return nil
}

// memProfiles implements RoleWriter and StudentStore over shared maps
type memProfiles struct {
	mu        sync.Mutex
	students  map[uuid.UUID]*models.Student
	agents    map[uuid.UUID]*models.Agent
	officials map[uuid.UUID]*models.UniversityOfficial
	admins    map[uuid.UUID]*models.Administrator
	passports map[uuid.UUID][]*models.Passport
	degrees   map[uuid.UUID][]*models.Degree
	err       error
}

func newMemProfiles() *memProfiles {
	return &memProfiles{
		students:  make(map[uuid.UUID]*models.Student),
		agents:    make(map[uuid.UUID]*models.Agent),
		officials: make(map[uuid.UUID]*models.UniversityOfficial),
		admins:    make(map[uuid.UUID]*models.Administrator),
		passports: make(map[uuid.UUID][]*models.Passport),
		degrees:   make(map[uuid.UUID][]*models.Degree),
	}
}

func (m *memProfiles) FindStudent(_ context.Context, id uuid.UUID) (*models.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if s, ok := m.students[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

func (m *memProfiles) FindAgent(_ context.Context, id uuid.UUID) (*models.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if a, ok := m.agents[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (m *memProfiles) FindOfficial(_ context.Context, id uuid.UUID) (*models.UniversityOfficial, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if o, ok := m.officials[id]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, nil
}

func (m *memProfiles) FindAdministrator(_ context.Context, id uuid.UUID) (*models.Administrator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if a, ok := m.admins[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (m *memProfiles) EnsureOfficial(_ context.Context, id uuid.UUID, universityID *uuid.UUID) (*models.UniversityOfficial, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	created := false
	if _, ok := m.officials[id]; !ok {
		m.officials[id] = &models.UniversityOfficial{
			IdentityID:   id,
			UniversityID: universityID,
			Status:       models.OfficialStatusPending,
			CreatedAt:    time.Now(),
		}
		created = true
	}
	cp := *m.officials[id]
	return &cp, created, nil
}

func (m *memProfiles) EnsureAdministrator(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.admins[id]; !ok {
		m.admins[id] = &models.Administrator{IdentityID: id}
	}
	return nil
}

func (m *memProfiles) UpsertPersonalInfo(_ context.Context, s *models.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.students[s.IdentityID] = &cp
	return nil
}

func (m *memProfiles) UpdateCompletionStatus(_ context.Context, id uuid.UUID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.students[id]
	if !ok {
		return apperrors.NewResourceNotFoundError("Student profile not found")
	}
	s.ProfileCompletionStatus = status
	return nil
}

func (m *memProfiles) LatestPassport(_ context.Context, id uuid.UUID) (*models.Passport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ps := m.passports[id]
	if len(ps) == 0 {
		return nil, nil
	}
	cp := *ps[len(ps)-1]
	return &cp, nil
}

func (m *memProfiles) CreatePassport(_ context.Context, p *models.Passport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = uuid.New()
	cp := *p
	m.passports[p.StudentID] = append(m.passports[p.StudentID], &cp)
	return nil
}

func (m *memProfiles) HasDegree(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.degrees[id]) > 0, nil
}

func (m *memProfiles) ListDegrees(_ context.Context, id uuid.UUID) ([]*models.Degree, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.Degree(nil), m.degrees[id]...), nil
}

func (m *memProfiles) CreateDegree(_ context.Context, d *models.Degree) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d.ID = uuid.New()
	cp := *d
	m.degrees[d.StudentID] = append(m.degrees[d.StudentID], &cp)
	return nil
}

func (m *memProfiles) addStudent(s *models.Student) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.students[s.IdentityID] = s
}

// memPrograms is a fixed catalogue
type memPrograms struct {
	programs map[uuid.UUID]*models.Program
}

func newMemPrograms(ps ...*models.Program) *memPrograms {
	m := &memPrograms{programs: make(map[uuid.UUID]*models.Program)}
	for _, p := range ps {
		m.programs[p.ID] = p
	}
	return m
}

func (m *memPrograms) List(_ context.Context, universityID *uuid.UUID) ([]*models.Program, error) {
	var out []*models.Program
	for _, p := range m.programs {
		if universityID == nil || p.UniversityID == *universityID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memPrograms) GetByID(_ context.Context, id uuid.UUID) (*models.Program, error) {
	p, ok := m.programs[id]
	if !ok {
		return nil, apperrors.NewResourceNotFoundError("Program not found")
	}
	return p, nil
}

// memDocuments is an in-memory DocumentStore
type memDocuments struct {
	mu   sync.Mutex
	docs map[uuid.UUID]*models.Document
}

func newMemDocuments() *memDocuments {
	return &memDocuments{docs: make(map[uuid.UUID]*models.Document)}
}

func (m *memDocuments) add(studentID uuid.UUID, name string) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := &models.Document{ID: uuid.New(), StudentID: studentID, Name: name, StoragePath: "documents/" + studentID.String() + "/" + name}
	m.docs[d.ID] = d
	return d.ID
}

func (m *memDocuments) Create(_ context.Context, d *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d.ID = uuid.New()
	d.CreatedAt = time.Now()
	cp := *d
	m.docs[d.ID] = &cp
	return nil
}

func (m *memDocuments) ListByStudent(_ context.Context, studentID uuid.UUID) ([]*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Document
	for _, d := range m.docs {
		if d.StudentID == studentID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memDocuments) CountOwned(_ context.Context, studentID uuid.UUID, ids []uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, id := range ids {
		if d, ok := m.docs[id]; ok && d.StudentID == studentID {
			n++
		}
	}
	return n, nil
}

// memApplications is an in-memory ApplicationStore
type memApplications struct {
	mu   sync.Mutex
	apps map[uuid.UUID]*models.Application

	createErr error
	// saveGate, when set, blocks ReplaceDocuments until it is closed
	saveGate chan struct{}
}

func newMemApplications() *memApplications {
	return &memApplications{apps: make(map[uuid.UUID]*models.Application)}
}

func (m *memApplications) FindByStudentProgram(_ context.Context, studentID, programID uuid.UUID) (*models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.apps {
		if a.StudentID == studentID && a.ProgramID == programID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memApplications) Create(_ context.Context, app *models.Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	for _, a := range m.apps {
		if a.StudentID == app.StudentID && a.ProgramID == app.ProgramID {
			return apperrors.ErrDuplicateApplication
		}
	}
	app.ID = uuid.New()
	app.CreatedAt = time.Now()
	app.UpdatedAt = app.CreatedAt
	cp := *app
	m.apps[app.ID] = &cp
	return nil
}

func (m *memApplications) GetByID(_ context.Context, id uuid.UUID) (*models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.apps[id]
	if !ok {
		return nil, apperrors.NewResourceNotFoundError("Application not found")
	}
	cp := *a
	cp.DocumentIDs = append([]uuid.UUID{}, a.DocumentIDs...)
	return &cp, nil
}

func (m *memApplications) ListByStudent(_ context.Context, studentID uuid.UUID) ([]*models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Application
	for _, a := range m.apps {
		if a.StudentID == studentID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memApplications) ListAll(_ context.Context, filter repositories.ApplicationFilter) ([]*models.Application, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []*models.Application
	for _, a := range m.apps {
		if filter.Status == nil || a.Status == *filter.Status {
			cp := *a
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := int64(len(all))
	start := int(filter.Offset)
	if start > len(all) {
		start = len(all)
	}
	end := len(all)
	if filter.Limit > 0 && start+filter.Limit < end {
		end = start + filter.Limit
	}
	return all[start:end], total, nil
}

func (m *memApplications) Confirm(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.apps[id]
	if !ok || a.Status != models.ApplicationStatusDraft || a.ConfirmedAt != nil {
		return false, nil
	}
	a.ConfirmedAt = &at
	return true, nil
}

func (m *memApplications) ReplaceDocuments(_ context.Context, appID uuid.UUID, docIDs []uuid.UUID) error {
	if m.saveGate != nil {
		<-m.saveGate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.apps[appID]
	if !ok {
		return apperrors.NewResourceNotFoundError("Application not found")
	}
	if a.Status == models.ApplicationStatusSubmitted {
		return apperrors.ErrAlreadySubmitted
	}
	a.DocumentIDs = append([]uuid.UUID{}, docIDs...)
	return nil
}

func (m *memApplications) Submit(_ context.Context, appID uuid.UUID, docIDs []uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.apps[appID]
	if !ok {
		return apperrors.NewResourceNotFoundError("Application not found")
	}
	if a.Status == models.ApplicationStatusSubmitted {
		return apperrors.ErrAlreadySubmitted
	}
	if a.ConfirmedAt == nil {
		return apperrors.ErrConfirmationRequired
	}
	a.DocumentIDs = append([]uuid.UUID{}, docIDs...)
	a.Status = models.ApplicationStatusSubmitted
	a.SubmittedAt = &at
	return nil
}

func (m *memApplications) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.apps)
}

// memChats is an in-memory ChatStore
type memChats struct {
	mu            sync.Mutex
	conversations map[uuid.UUID]*models.Conversation
	messages      map[uuid.UUID]*models.Message
	createErr     error
}

func newMemChats() *memChats {
	return &memChats{
		conversations: make(map[uuid.UUID]*models.Conversation),
		messages:      make(map[uuid.UUID]*models.Message),
	}
}

func (m *memChats) GetOrCreateConversation(_ context.Context, a, b uuid.UUID, applicationID *uuid.UUID) (*models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	low, high := models.OrderedPair(a, b)
	for _, c := range m.conversations {
		if c.ParticipantLow == low && c.ParticipantHigh == high {
			cp := *c
			return &cp, nil
		}
	}
	c := &models.Conversation{ID: uuid.New(), ParticipantLow: low, ParticipantHigh: high, ApplicationID: applicationID, CreatedAt: time.Now()}
	m.conversations[c.ID] = c
	cp := *c
	return &cp, nil
}

func (m *memChats) GetConversation(_ context.Context, id uuid.UUID) (*models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conversations[id]
	if !ok {
		return nil, apperrors.NewResourceNotFoundError("Conversation not found")
	}
	cp := *c
	return &cp, nil
}

func (m *memChats) ListConversations(_ context.Context, identityID uuid.UUID) ([]*models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Conversation
	for _, c := range m.conversations {
		if c.Includes(identityID) {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memChats) UpdatePreview(_ context.Context, id uuid.UUID, preview string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conversations[id]
	if !ok {
		return apperrors.NewResourceNotFoundError("Conversation not found")
	}
	c.LastMessage = &preview
	c.LastMessageTime = &at
	return nil
}

func (m *memChats) CreateMessage(_ context.Context, msg *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	msg.ID = uuid.New()
	msg.SentAt = time.Now()
	cp := *msg
	m.messages[msg.ID] = &cp
	return nil
}

func (m *memChats) GetMessage(_ context.Context, id uuid.UUID) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[id]
	if !ok {
		return nil, apperrors.NewResourceNotFoundError("Message not found")
	}
	cp := *msg
	return &cp, nil
}

func (m *memChats) ListMessages(_ context.Context, conversationID uuid.UUID, before *time.Time, limit int) ([]*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Message
	for _, msg := range m.messages {
		if msg.ConversationID == conversationID && (before == nil || msg.SentAt.Before(*before)) {
			cp := *msg
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SentAt.Before(out[j].SentAt) })
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (m *memChats) messageCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}

// memAccounts records deletions and reports the stored paths it was seeded with
type memAccounts struct {
	mu      sync.Mutex
	paths   map[uuid.UUID][]string
	deleted []uuid.UUID
}

func (m *memAccounts) DeleteIdentityData(_ context.Context, id uuid.UUID) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, id)
	return m.paths[id], nil
}

// recordingPublisher captures published events
type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

type published struct {
	Topic   string
	Key     string
	ID      string
	Payload interface{}
}

func (p *recordingPublisher) Publish(topic, key, id string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{Topic: topic, Key: key, ID: id, Payload: payload})
	return nil
}

func (p *recordingPublisher) authEvents(typ models.AuthEventType) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if ev, ok := e.Payload.(models.AuthEvent); ok && ev.Type == typ {
			n++
		}
	}
	return n
}

func (p *recordingPublisher) topic(topic string) []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []published
	for _, e := range p.events {
		if e.Topic == topic {
			out = append(out, e)
		}
	}
	return out
}

// staticRoles is a RoleSource answering from a fixed map
type staticRoles struct {
	mu       sync.Mutex
	byID     map[uuid.UUID]models.RoleResolution
	gate     chan struct{}
	entered  chan struct{}
	getCalls int
}

func newStaticRoles() *staticRoles {
	return &staticRoles{byID: make(map[uuid.UUID]models.RoleResolution)}
}

func (s *staticRoles) set(res models.RoleResolution) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[res.IdentityID] = res
}

func (s *staticRoles) Get(_ context.Context, id uuid.UUID) models.RoleResolution {
	s.mu.Lock()
	s.getCalls++
	gate, entered := s.gate, s.entered
	res, ok := s.byID[id]
	s.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	if !ok {
		return models.RoleResolution{IdentityID: id, Role: models.RoleNone, Source: models.RoleSourceNone}
	}
	return res
}

func (s *staticRoles) Refresh(ctx context.Context, id uuid.UUID) models.RoleResolution {
	return s.Get(ctx, id)
}

func ptr[T any](v T) *T { return &v }
