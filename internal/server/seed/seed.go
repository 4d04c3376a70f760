// Package seed fills an empty database with sample accounts for local
// development. All sample accounts share one password and start verified.
package seed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/janndizz/test-plogg/internal/common"
	"github.com/janndizz/test-plogg/internal/dbx"
	"github.com/janndizz/test-plogg/internal/logging"
	"github.com/janndizz/test-plogg/internal/server/auth"
	"github.com/janndizz/test-plogg/internal/server/models"
	"github.com/janndizz/test-plogg/internal/server/repositories/repomanager"
)

// DefaultPassword is used when no password is supplied.
const DefaultPassword = "password123"

type SampleUser struct {
	FirstName string
	LastName  string
	Email     string
}

var SampleUsers = []SampleUser{
	{FirstName: "Nguyễn", LastName: "Văn A", Email: "nguyenvana@example.com"},
	{FirstName: "Trần", LastName: "Thị B", Email: "tranthib@example.com"},
	{FirstName: "Lê", LastName: "Văn C", Email: "levanc@example.com"},
	{FirstName: "Phạm", LastName: "Thị D", Email: "phamthid@example.com"},
	{FirstName: "Hoàng", LastName: "Văn E", Email: "hoangvane@example.com"},
}

// Report lists what a run did.
type Report struct {
	Created []string
	Skipped []string
}

type Seeder struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	codec  *auth.Codec
	logger logging.Logger
}

func NewSeeder(db *sql.DB, repos repomanager.RepositoryManager, codec *auth.Codec, logger logging.Logger) *Seeder {
	return &Seeder{db: db, repos: repos, codec: codec, logger: logger}
}

// Run creates the missing sample users in one transaction. Accounts whose
// email already exists are left untouched, so running it twice is harmless.
func (s *Seeder) Run(ctx context.Context, users []SampleUser, password string) (*Report, error) {
	if password == "" {
		password = DefaultPassword
	}
	if len(password) > auth.MaxPasswordBytes {
		return nil, fmt.Errorf("password longer than %d bytes", auth.MaxPasswordBytes)
	}

	hash, err := s.codec.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	report := &Report{}
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repos.Users(tx)
		now := s.codec.Now().UTC()

		for _, u := range users {
			_, err := repo.FindByEmail(ctx, u.Email)
			if err == nil {
				report.Skipped = append(report.Skipped, u.Email)
				continue
			}
			if !errors.Is(err, common.ErrorNotFound) {
				return fmt.Errorf("lookup %s: %w", u.Email, err)
			}

			h := hash
			if _, err := repo.Create(ctx, &models.User{
				FirstName:     u.FirstName,
				LastName:      u.LastName,
				Email:         u.Email,
				PasswordHash:  &h,
				EmailVerified: true,
				CreatedAt:     now,
				UpdatedAt:     now,
			}); err != nil {
				return fmt.Errorf("create %s: %w", u.Email, err)
			}
			report.Created = append(report.Created, u.Email)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "seeding finished", "created", len(report.Created), "skipped", len(report.Skipped))
	return report, nil
}

// Print writes a human readable summary, including the shared password.
func (r *Report) Print(w io.Writer, users []SampleUser, password string) {
	byEmail := make(map[string]SampleUser, len(users))
	for _, u := range users {
		byEmail[u.Email] = u
	}

	fmt.Fprintln(w, "=== Created users ===")
	for _, email := range r.Created {
		u := byEmail[email]
		fmt.Fprintf(w, "- %s %s (%s)\n", u.FirstName, u.LastName, email)
	}
	if len(r.Skipped) > 0 {
		fmt.Fprintln(w, "=== Already present ===")
		for _, email := range r.Skipped {
			fmt.Fprintf(w, "- %s\n", email)
		}
	}
	if len(r.Created) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Sign in with any of the emails above and password %q\n", password)
	}
}
