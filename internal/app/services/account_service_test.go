package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/univgates1-stack/univgates-sub001/internal/app/models"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/apperrors"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/filestorage"
)

type accountFixture struct {
	svc        *AccountService
	accounts   *memAccounts
	identities *memIdentities
	profiles   *memProfiles
	events     *recordingPublisher
	root       string
	storage    *filestorage.LocalStorage
}

func newAccountFixture(t *testing.T) *accountFixture {
	t.Helper()
	root := t.TempDir()
	storage, err := filestorage.NewLocalStorage(root, "http://files.test", "docs", zerolog.Nop())
	require.NoError(t, err)
	accounts := &memAccounts{paths: make(map[uuid.UUID][]string)}
	identities := newMemIdentities()
	profiles := newMemProfiles()
	events := &recordingPublisher{}
	svc := NewAccountService(accounts, identities, profiles, storage, events, zerolog.Nop())
	return &accountFixture{svc: svc, accounts: accounts, identities: identities, profiles: profiles, events: events, root: root, storage: storage}
}

func TestDeleteUserData_RefusesOfficials(t *testing.T) {
	f := newAccountFixture(t)
	id := f.identities.add("official@example.com", nil).ID
	_, _, err := f.profiles.EnsureOfficial(context.Background(), id, nil)
	require.NoError(t, err)

	err = f.svc.DeleteUserData(context.Background(), id)
	require.ErrorIs(t, err, apperrors.ErrOfficialDeletionForbidden)
	ce, ok := apperrors.AsCustom(err)
	require.True(t, ok)
	assert.Contains(t, ce.Message, "administrator")
	assert.Empty(t, f.accounts.deleted)
	assert.Zero(t, f.events.authEvents(models.AuthEventUserDeleted))
}

func TestDeleteUserData_RemovesDocuments(t *testing.T) {
	f := newAccountFixture(t)
	id := f.identities.add("student@example.com", nil).ID
	info, err := f.storage.Put(context.Background(), "documents/"+id.String()+"/cv.pdf", strings.NewReader("cv"), "application/pdf")
	require.NoError(t, err)
	f.accounts.paths[id] = []string{info.Path, "documents/missing.pdf"}

	require.NoError(t, f.svc.DeleteUserData(context.Background(), id))

	assert.Equal(t, []uuid.UUID{id}, f.accounts.deleted)
	_, err = os.Stat(filepath.Join(f.root, "docs", "documents", id.String(), "cv.pdf"))
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, 1, f.events.authEvents(models.AuthEventUserDeleted))
}

func TestAdminDeleteUser(t *testing.T) {
	f := newAccountFixture(t)
	admin := f.identities.add("admin@example.com", nil).ID
	official := f.identities.add("official@example.com", nil).ID
	require.NoError(t, f.profiles.EnsureAdministrator(context.Background(), admin))
	_, _, err := f.profiles.EnsureOfficial(context.Background(), official, nil)
	require.NoError(t, err)

	err = f.svc.AdminDeleteUser(context.Background(), official, admin)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	err = f.svc.AdminDeleteUser(context.Background(), admin, admin)
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)

	require.NoError(t, f.svc.AdminDeleteUser(context.Background(), admin, official))
	assert.Equal(t, []uuid.UUID{official}, f.accounts.deleted)
}

func TestEnsureUniversityOfficialProfile_Idempotent(t *testing.T) {
	f := newAccountFixture(t)
	id := f.identities.add("official@example.com", map[string]interface{}{"role": "university_official"}).ID
	university := uuid.New()

	first, err := f.svc.EnsureUniversityOfficialProfile(context.Background(), id, &university)
	require.NoError(t, err)
	second, err := f.svc.EnsureUniversityOfficialProfile(context.Background(), id, nil)
	require.NoError(t, err)

	assert.Equal(t, models.OfficialStatusPending, first.Status)
	assert.Equal(t, first, second)
	assert.Len(t, f.profiles.officials, 1)
	assert.Equal(t, 1, f.events.authEvents(models.AuthEventUserUpdated))

	_, err = f.svc.EnsureUniversityOfficialProfile(context.Background(), uuid.New(), nil)
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)
}
