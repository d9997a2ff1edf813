package cli

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/showmeapp/showme/internal/client/migrations"
	"github.com/showmeapp/showme/internal/client/repositories/maps"
	"github.com/showmeapp/showme/internal/client/repositories/pins"

	_ "modernc.org/sqlite"
)

// Repositories bundles the local-store repositories built on one database.
type Repositories struct {
	Maps maps.Repository
	Pins pins.Repository
}

// RunMigrations applies the embedded SQL migrations to the local database.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// InitDatabase opens (or creates) the local SQLite database at dsn, migrates
// it and returns the repositories built on it.
func InitDatabase(ctx context.Context, dsn string) (*sql.DB, *Repositories, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, nil, err
	}

	if err := RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, nil, err
	}

	repos := &Repositories{
		Maps: maps.NewSQLiteRepository(db),
		Pins: pins.NewSQLiteRepository(db),
	}
	return db, repos, nil
}
