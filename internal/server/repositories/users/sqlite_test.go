package users

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/janndizz/test-plogg/internal/common"
	"github.com/janndizz/test-plogg/internal/server/migrations"
	"github.com/janndizz/test-plogg/internal/server/models"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openSQLite(t *testing.T) (*SQLiteRepository, *sql.DB) {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "users.db") +
		"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	goose.SetBaseFS(migrations.SQLite)
	require.NoError(t, goose.SetDialect("sqlite3"))
	require.NoError(t, goose.UpContext(context.Background(), db, "sqlite"))

	return NewSQLiteRepository(db), db
}

func newLocalUser(email string) *models.User {
	u := &models.User{
		FirstName:    "Ada",
		LastName:     "Lovelace",
		Email:        email,
		PasswordHash: strPtr("$2a$10$hash"),
		CreatedAt:    created,
	}
	u.SetVerification("hash-"+email, expires)
	return u
}

func TestSQLite_CreateAndFind(t *testing.T) {
	repo, _ := openSQLite(t)
	ctx := context.Background()

	u, err := repo.Create(ctx, newLocalUser("ada@example.com"))
	require.NoError(t, err)
	require.NotEmpty(t, u.ID)
	assert.Equal(t, int64(1), u.Version)

	byEmail, err := repo.FindByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)
	assert.Nil(t, byEmail.PasswordHash)
	assert.False(t, byEmail.EmailVerified)
	assert.Equal(t, created, byEmail.CreatedAt)
	require.NotNil(t, byEmail.VerificationExpiry)
	assert.Equal(t, expires, *byEmail.VerificationExpiry)

	withPw, err := repo.FindByEmailWithPassword(ctx, "ada@example.com")
	require.NoError(t, err)
	require.NotNil(t, withPw.PasswordHash)
	assert.Equal(t, "$2a$10$hash", *withPw.PasswordHash)

	byID, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", byID.Email)

	_, err = repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSQLite_CreateDuplicate(t *testing.T) {
	repo, _ := openSQLite(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, newLocalUser("ada@example.com"))
	require.NoError(t, err)

	_, err = repo.Create(ctx, newLocalUser("ada@example.com"))
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)

	g1 := &models.User{FirstName: "A", LastName: "B", Email: "a@example.com", GoogleSubjectID: strPtr("sub-1"), EmailVerified: true}
	g2 := &models.User{FirstName: "A", LastName: "B", Email: "b@example.com", GoogleSubjectID: strPtr("sub-1"), EmailVerified: true}
	_, err = repo.Create(ctx, g1)
	require.NoError(t, err)
	_, err = repo.Create(ctx, g2)
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)
}

func TestSQLite_SaveOptimistic(t *testing.T) {
	repo, _ := openSQLite(t)
	ctx := context.Background()

	u, err := repo.Create(ctx, newLocalUser("ada@example.com"))
	require.NoError(t, err)

	first, err := repo.FindByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	second, err := repo.FindByEmail(ctx, "ada@example.com")
	require.NoError(t, err)

	first.GoogleSubjectID = strPtr("sub-1")
	first.EmailVerified = true
	first.ClearVerification()
	first.UpdatedAt = created.Add(time.Minute)
	saved, err := repo.Save(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, int64(2), saved.Version)

	second.EmailVerified = true
	_, err = repo.Save(ctx, second)
	assert.ErrorIs(t, err, common.ErrVersionConflict)

	got, err := repo.FindByEmailWithPassword(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	require.NotNil(t, got.PasswordHash, "saving a record read without its hash keeps the hash")
	require.NotNil(t, got.GoogleSubjectID)
	assert.Equal(t, "sub-1", *got.GoogleSubjectID)
	assert.Nil(t, got.VerificationTokenHash)
	assert.Equal(t, created.Add(time.Minute), got.UpdatedAt)
}

func TestSQLite_FindByEmailOrGoogleID_PrefersSubject(t *testing.T) {
	repo, _ := openSQLite(t)
	ctx := context.Background()

	byEmail, err := repo.Create(ctx, newLocalUser("ada@example.com"))
	require.NoError(t, err)
	bySubject, err := repo.Create(ctx, &models.User{
		FirstName: "G", LastName: "User", Email: "other@example.com",
		GoogleSubjectID: strPtr("sub-7"), EmailVerified: true,
	})
	require.NoError(t, err)

	got, err := repo.FindByEmailOrGoogleID(ctx, "ada@example.com", "sub-7")
	require.NoError(t, err)
	assert.Equal(t, bySubject.ID, got.ID)

	got, err = repo.FindByEmailOrGoogleID(ctx, "ada@example.com", "sub-unknown")
	require.NoError(t, err)
	assert.Equal(t, byEmail.ID, got.ID)

	got, err = repo.FindByEmailOrGoogleID(ctx, "nobody@example.com", "sub-7")
	require.NoError(t, err)
	assert.Equal(t, bySubject.ID, got.ID)

	_, err = repo.FindByEmailOrGoogleID(ctx, "nobody@example.com", "")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSQLite_ConsumeVerification(t *testing.T) {
	repo, _ := openSQLite(t)
	ctx := context.Background()

	u, err := repo.Create(ctx, newLocalUser("ada@example.com"))
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		_, err := repo.ConsumeVerification(ctx, "hash-ada@example.com", expires)
		assert.ErrorIs(t, err, common.ErrorNotFound, "expiry is exclusive")
	})

	t.Run("wrong hash", func(t *testing.T) {
		_, err := repo.ConsumeVerification(ctx, "nope", created)
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("consumes once", func(t *testing.T) {
		got, err := repo.ConsumeVerification(ctx, "hash-ada@example.com", created.Add(time.Minute))
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)
		assert.True(t, got.EmailVerified)
		assert.Nil(t, got.VerificationTokenHash)
		assert.Nil(t, got.VerificationExpiry)
		assert.Equal(t, int64(2), got.Version)

		_, err = repo.ConsumeVerification(ctx, "hash-ada@example.com", created.Add(time.Minute))
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})
}

func TestSQLite_ConsumeVerification_Concurrent(t *testing.T) {
	repo, _ := openSQLite(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, newLocalUser("ada@example.com"))
	require.NoError(t, err)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		failures  []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.ConsumeVerification(ctx, "hash-ada@example.com", created.Add(time.Minute))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			failures = append(failures, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	for _, err := range failures {
		assert.True(t, errors.Is(err, common.ErrorNotFound), "unexpected error: %v", err)
	}
}
