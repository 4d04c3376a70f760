package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/janndizz/test-plogg/internal/common"
	"github.com/janndizz/test-plogg/internal/dbx"
	"github.com/janndizz/test-plogg/internal/server/models"
)

// SQLite keeps timestamps as INTEGER unix milliseconds (UTC) so range
// comparisons in SQL are numeric.
const sqliteColumns = `id, first_name, last_name, email, google_subject_id, email_verified,
		        verification_token_hash, verification_expires_at, created_at, updated_at, version`

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

func nullMillis(t *time.Time) any {
	if t == nil {
		return nil
	}
	return toMillis(*t)
}

func (r *SQLiteRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query :=
		`SELECT ` + sqliteColumns + `
		 FROM users
		 WHERE email = ?1
		 `

	return r.queryOne(ctx, false, query, email)
}

func (r *SQLiteRepository) FindByEmailWithPassword(ctx context.Context, email string) (*models.User, error) {
	query :=
		`SELECT ` + sqliteColumns + `, password_hash
		 FROM users
		 WHERE email = ?1
		 `

	return r.queryOne(ctx, true, query, email)
}

func (r *SQLiteRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query :=
		`SELECT ` + sqliteColumns + `
		 FROM users
		 WHERE id = ?1
		 `

	return r.queryOne(ctx, false, query, id)
}

func (r *SQLiteRepository) FindByEmailOrGoogleID(ctx context.Context, email, googleID string) (*models.User, error) {
	query :=
		`SELECT ` + sqliteColumns + `
		 FROM users
		 WHERE email = ?1 OR (?2 <> '' AND google_subject_id = ?2)
		 ORDER BY CASE WHEN google_subject_id = ?2 THEN 0 ELSE 1 END
		 LIMIT 1
		 `

	return r.queryOne(ctx, false, query, email, googleID)
}

func (r *SQLiteRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	stampCreate(user)

	query :=
		`INSERT INTO users (id, first_name, last_name, email, password_hash, google_subject_id, email_verified,
		                    verification_token_hash, verification_expires_at, created_at, updated_at, version)
		 VALUES (?1, ?2, ?3, ?4, ?5, ?6, ?7, ?8, ?9, ?10, ?11, 1)
		 RETURNING version
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.FirstName, user.LastName, user.Email,
		nullString(user.PasswordHash), nullString(user.GoogleSubjectID), user.EmailVerified,
		nullString(user.VerificationTokenHash), nullMillis(user.VerificationExpiry),
		toMillis(user.CreatedAt), toMillis(user.UpdatedAt),
	).Scan(&user.Version)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	user.CreatedAt = fromMillis(toMillis(user.CreatedAt))
	user.UpdatedAt = fromMillis(toMillis(user.UpdatedAt))
	return user, nil
}

func (r *SQLiteRepository) Save(ctx context.Context, user *models.User) (*models.User, error) {
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = time.Now().UTC()
	}

	query :=
		`UPDATE users
		 SET first_name = ?2, last_name = ?3, email = ?4, password_hash = COALESCE(?5, password_hash),
		     google_subject_id = ?6, email_verified = ?7, verification_token_hash = ?8,
		     verification_expires_at = ?9, updated_at = ?10, version = version + 1
		 WHERE id = ?1 AND version = ?11
		 RETURNING version
		 `

	var version int64
	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.FirstName, user.LastName, user.Email,
		nullString(user.PasswordHash), nullString(user.GoogleSubjectID), user.EmailVerified,
		nullString(user.VerificationTokenHash), nullMillis(user.VerificationExpiry),
		toMillis(user.UpdatedAt), user.Version,
	).Scan(&version)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrVersionConflict
		}
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	user.Version = version
	return user, nil
}

func (r *SQLiteRepository) ConsumeVerification(ctx context.Context, tokenHash string, now time.Time) (*models.User, error) {
	query :=
		`UPDATE users
		 SET email_verified = 1, verification_token_hash = NULL, verification_expires_at = NULL,
		     updated_at = ?2, version = version + 1
		 WHERE verification_token_hash = ?1 AND verification_expires_at > ?2
		 RETURNING ` + sqliteColumns + `
		 `

	return r.queryOne(ctx, false, query, tokenHash, toMillis(now))
}

func (r *SQLiteRepository) queryOne(ctx context.Context, withPassword bool, query string, args ...any) (*models.User, error) {
	user := &models.User{}

	var (
		googleID     sql.NullString
		tokenHash    sql.NullString
		expiry       sql.NullInt64
		createdAt    int64
		updatedAt    int64
		passwordHash sql.NullString
	)
	dest := []any{
		&user.ID, &user.FirstName, &user.LastName, &user.Email, &googleID, &user.EmailVerified,
		&tokenHash, &expiry, &createdAt, &updatedAt, &user.Version,
	}
	if withPassword {
		dest = append(dest, &passwordHash)
	}

	err := r.db.QueryRowContext(ctx, query, args...).Scan(dest...)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	user.GoogleSubjectID = stringPtr(googleID)
	user.VerificationTokenHash = stringPtr(tokenHash)
	if expiry.Valid {
		t := fromMillis(expiry.Int64)
		user.VerificationExpiry = &t
	}
	user.CreatedAt = fromMillis(createdAt)
	user.UpdatedAt = fromMillis(updatedAt)
	user.PasswordHash = stringPtr(passwordHash)

	return user, nil
}

var _ Repository = (*SQLiteRepository)(nil)
