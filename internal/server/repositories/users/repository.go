// Package users is the credential store: persistence of accounts with
// single-statement, per-record atomic operations.
package users

import (
	"context"
	"time"

	"github.com/janndizz/test-plogg/internal/server/models"
)

// Repository persists accounts.
//
// Lookups return common.ErrorNotFound when nothing matches. Writes that
// collide with the email or Google subject uniqueness return
// common.ErrorAlreadyExists.
type Repository interface {
	// FindByEmail returns the account without its password hash.
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	// FindByEmailWithPassword is the only lookup that selects the password hash.
	FindByEmailWithPassword(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	// FindByEmailOrGoogleID returns the account matching either key. When two
	// accounts match, the one carrying googleID wins.
	FindByEmailOrGoogleID(ctx context.Context, email, googleID string) (*models.User, error)

	// Create inserts user, assigning ID (when empty) and Version.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	// Save overwrites the mutable fields of user if the stored version still
	// equals user.Version, and bumps the version. Otherwise it returns
	// common.ErrVersionConflict.
	Save(ctx context.Context, user *models.User) (*models.User, error)
	// ConsumeVerification atomically marks the account holding tokenHash as
	// verified and clears the token, provided it expires after now. At most
	// one caller can consume a given token.
	ConsumeVerification(ctx context.Context, tokenHash string, now time.Time) (*models.User, error)
}
