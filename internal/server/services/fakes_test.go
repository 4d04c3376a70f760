package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/janndizz/test-plogg/internal/common"
	"github.com/janndizz/test-plogg/internal/dbx"
	"github.com/janndizz/test-plogg/internal/logging"
	"github.com/janndizz/test-plogg/internal/server/auth"
	"github.com/janndizz/test-plogg/internal/server/identity"
	"github.com/janndizz/test-plogg/internal/server/models"
	"github.com/janndizz/test-plogg/internal/server/notify"
	"github.com/janndizz/test-plogg/internal/server/repositories/repomanager"
	"github.com/janndizz/test-plogg/internal/server/repositories/users"
)

// --- in-memory store ---

type memStore struct {
	mu    sync.Mutex
	byID  map[string]models.User
	order []string

	// hooks for injecting failures
	findErr    error
	beforeSave func(u *models.User)
}

func newMemStore() *memStore {
	return &memStore{byID: map[string]models.User{}}
}

func copyUser(u models.User, withPassword bool) *models.User {
	out := u
	if !withPassword {
		out.PasswordHash = nil
	}
	return &out
}

func (m *memStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	return m.findBy(func(u models.User) bool { return u.Email == email }, false)
}

func (m *memStore) FindByEmailWithPassword(_ context.Context, email string) (*models.User, error) {
	return m.findBy(func(u models.User) bool { return u.Email == email }, true)
}

func (m *memStore) FindByID(_ context.Context, id string) (*models.User, error) {
	return m.findBy(func(u models.User) bool { return u.ID == id }, false)
}

func (m *memStore) FindByEmailOrGoogleID(_ context.Context, email, googleID string) (*models.User, error) {
	if googleID != "" {
		u, err := m.findBy(func(u models.User) bool {
			return u.GoogleSubjectID != nil && *u.GoogleSubjectID == googleID
		}, false)
		if !errors.Is(err, common.ErrorNotFound) {
			return u, err
		}
	}
	return m.findBy(func(u models.User) bool { return u.Email == email }, false)
}

func (m *memStore) findBy(match func(models.User) bool, withPassword bool) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, id := range m.order {
		if u := m.byID[id]; match(u) {
			return copyUser(u, withPassword), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (m *memStore) conflicts(u *models.User) bool {
	for id, other := range m.byID {
		if id == u.ID {
			continue
		}
		if other.Email == u.Email {
			return true
		}
		if u.GoogleSubjectID != nil && other.GoogleSubjectID != nil && *u.GoogleSubjectID == *other.GoogleSubjectID {
			return true
		}
	}
	return false
}

func (m *memStore) Create(_ context.Context, u *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if m.conflicts(u) {
		return nil, common.ErrorAlreadyExists
	}
	u.Version = 1
	m.byID[u.ID] = *u
	m.order = append(m.order, u.ID)
	return u, nil
}

func (m *memStore) Save(_ context.Context, u *models.User) (*models.User, error) {
	if m.beforeSave != nil {
		m.beforeSave(u)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.byID[u.ID]
	if !ok || stored.Version != u.Version {
		return nil, common.ErrVersionConflict
	}
	if m.conflicts(u) {
		return nil, common.ErrorAlreadyExists
	}
	next := *u
	if next.PasswordHash == nil {
		next.PasswordHash = stored.PasswordHash
	}
	next.Version = stored.Version + 1
	m.byID[u.ID] = next
	u.Version = next.Version
	return u, nil
}

func (m *memStore) ConsumeVerification(_ context.Context, tokenHash string, now time.Time) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.order {
		u := m.byID[id]
		if u.VerificationTokenHash == nil || *u.VerificationTokenHash != tokenHash {
			continue
		}
		if !u.VerificationExpiry.After(now) {
			return nil, common.ErrorNotFound
		}
		u.EmailVerified = true
		u.ClearVerification()
		u.Version++
		m.byID[id] = u
		return copyUser(u, false), nil
	}
	return nil, common.ErrorNotFound
}

// bump simulates a concurrent writer.
func (m *memStore) bump(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.byID[id]
	u.Version++
	m.byID[id] = u
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

var _ users.Repository = (*memStore)(nil)

type fakeRepoManager struct {
	repo users.Repository
}

func (f *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (f *fakeRepoManager) Users(dbx.DBTX) users.Repository              { return f.repo }
func (f *fakeRepoManager) DriverName() string                           { return "memory" }

var _ repomanager.RepositoryManager = (*fakeRepoManager)(nil)

// --- other collaborators ---

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingDispatcher struct {
	mu   sync.Mutex
	sent []notify.Message
}

func (d *recordingDispatcher) Dispatch(_ context.Context, msg notify.Message) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, msg)
}

func (d *recordingDispatcher) messages() []notify.Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]notify.Message(nil), d.sent...)
}

// lastToken returns the raw token from the most recent verification link.
func (d *recordingDispatcher) lastToken(t *testing.T) string {
	t.Helper()
	msgs := d.messages()
	require.NotEmpty(t, msgs, "no verification email dispatched")
	link := msgs[len(msgs)-1].Link
	i := strings.LastIndex(link, "/")
	require.GreaterOrEqual(t, i, 0)
	return link[i+1:]
}

type fakeVerifier struct {
	tokens map[string]identity.Claims
}

func (v *fakeVerifier) Verify(_ context.Context, token string) (*identity.Claims, error) {
	c, ok := v.tokens[token]
	if !ok {
		return nil, errors.New("bad signature")
	}
	return &c, nil
}

// --- env ---

const testBaseURL = "http://auth.test"

var testStart = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	svc      *AuthService
	repo     users.Repository
	clock    *fakeClock
	mail     *recordingDispatcher
	verifier *fakeVerifier
	codec    *auth.Codec
}

func newEnv(t *testing.T, repos repomanager.RepositoryManager, db *sql.DB) *testEnv {
	t.Helper()
	clock := &fakeClock{now: testStart}
	codec := auth.NewCodec([]byte("test-secret"), 24*time.Hour, 5*time.Minute,
		auth.WithClock(clock.Now), auth.WithPasswordCost(bcrypt.MinCost))
	mail := &recordingDispatcher{}
	verifier := &fakeVerifier{tokens: map[string]identity.Claims{}}

	svc := NewAuthService(Dependencies{
		DB:            db,
		Repos:         repos,
		Codec:         codec,
		Verifier:      verifier,
		Notifications: mail,
		Logger:        logging.Nop(),
		PublicBaseURL: testBaseURL,
	})
	return &testEnv{
		svc:      svc,
		repo:     repos.Users(db),
		clock:    clock,
		mail:     mail,
		verifier: verifier,
		codec:    codec,
	}
}

func newMemEnv(t *testing.T) (*testEnv, *memStore) {
	t.Helper()
	store := newMemStore()
	return newEnv(t, &fakeRepoManager{repo: store}, nil), store
}

func newSQLiteEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	m := repomanager.NewSQLiteRepositoryManager()
	db, err := repomanager.Open(ctx, m, repomanager.SQLiteDSN(t.TempDir()+"/auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, m.RunMigrations(ctx, db))
	return newEnv(t, m, db)
}

// storeCases runs fn against the in-memory store and a real SQLite database.
func storeCases(t *testing.T, fn func(t *testing.T, env *testEnv)) {
	t.Run("memory", func(t *testing.T) {
		env, _ := newMemEnv(t)
		fn(t, env)
	})
	t.Run("sqlite", func(t *testing.T) {
		fn(t, newSQLiteEnv(t))
	})
}
