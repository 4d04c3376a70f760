// Package repomanager binds the credential store to a database driver and
// applies the embedded goose migrations for it.
package repomanager

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/janndizz/test-plogg/internal/dbx"
	"github.com/janndizz/test-plogg/internal/server/migrations"
	"github.com/janndizz/test-plogg/internal/server/repositories/users"
)

// PostgresRepositoryManager opens pools through the pgx stdlib driver.
type PostgresRepositoryManager struct{}

// Users returns the PostgreSQL user store bound to db.
func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) DriverName() string {
	return "pgx"
}

// RunMigrations brings the users table up to the latest embedded version.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations.Postgres)
	if err := goose.SetDialect(string(goose.DialectPostgres)); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, "postgres")
}

func NewPostgresRepositoryManager() RepositoryManager {
	return &PostgresRepositoryManager{}
}
