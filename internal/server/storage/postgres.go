// Package storage provides the PostgreSQL persistence layer of the shared
// endpoint, plus the goose migration hook.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/showmeapp/showme/internal/common"
	"github.com/showmeapp/showme/internal/server/migrations"
)

// DB is the subset of *pgxpool.Pool the store needs; narrowed for tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Ping(ctx context.Context) error
}

// PostgresStore implements Store over a pgx connection pool.
type PostgresStore struct {
	db DB
}

func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Open connects a pool and verifies it.
func Open(ctx context.Context, dsn string) (*PostgresStore, *pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return NewPostgresStore(pool), pool, nil
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the given DSN over the pgx stdlib driver.
func RunMigrations(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return gooseUpContext(ctx, db, ".")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *PostgresStore) InsertMap(ctx context.Context, row MapRow) error {
	query := `INSERT INTO maps (id, name, is_private, access_token, fuzzing_enabled, fuzzing_radius, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := s.db.Exec(ctx, query,
		row.ID, row.Name, row.IsPrivate, row.AccessToken,
		row.FuzzingEnabled, row.FuzzingRadius, row.CreatedAt)
	if err != nil {
		return mapPgError(err)
	}
	return nil
}

func (s *PostgresStore) InsertPin(ctx context.Context, row PinRow) error {
	query := `INSERT INTO pins (id, map_id, lat, lng, type, tags, description, photo_urls, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := s.db.Exec(ctx, query,
		row.ID, row.MapID, row.Lat, row.Lng, row.Type, row.Tags,
		row.Description, row.PhotoURLs, row.ExpiresAt, row.CreatedAt, row.UpdatedAt)
	if err != nil {
		return mapPgError(err)
	}
	return nil
}

func (s *PostgresStore) Maps(ctx context.Context, filterID string) ([]MapRow, error) {
	query := `SELECT id, name, is_private, access_token, fuzzing_enabled, fuzzing_radius, created_at
		FROM maps`
	args := []any{}
	if filterID != "" {
		query += ` WHERE id = $1`
		args = append(args, filterID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select maps: %w", err)
	}
	defer rows.Close()

	var result []MapRow
	for rows.Next() {
		var row MapRow
		if err := rows.Scan(&row.ID, &row.Name, &row.IsPrivate, &row.AccessToken,
			&row.FuzzingEnabled, &row.FuzzingRadius, &row.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func (s *PostgresStore) Pins(ctx context.Context) ([]PinRow, error) {
	query := `SELECT id, map_id, lat, lng, type, tags, description, photo_urls, expires_at, created_at, updated_at
		FROM pins ORDER BY created_at DESC`
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select pins: %w", err)
	}
	defer rows.Close()

	var result []PinRow
	for rows.Next() {
		var row PinRow
		if err := rows.Scan(&row.ID, &row.MapID, &row.Lat, &row.Lng, &row.Type, &row.Tags,
			&row.Description, &row.PhotoURLs, &row.ExpiresAt, &row.CreatedAt, &row.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func (s *PostgresStore) DeleteMaps(ctx context.Context, ids []string) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM maps WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to delete maps: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) DeletePins(ctx context.Context, ids []string) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM pins WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to delete pins: %w", err)
	}
	return tag.RowsAffected(), nil
}

// mapPgError folds PostgreSQL constraint violations onto the shared
// sentinels, keeping the database message for the response body.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", common.ErrDuplicateKey, pgErr.Message)
		case "23503":
			return fmt.Errorf("%w: %s", common.ErrForeignKey, pgErr.Message)
		}
	}
	return err
}
