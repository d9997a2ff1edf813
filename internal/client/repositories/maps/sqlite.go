// Package maps provides the local SQLite repository for maps.
package maps

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/showmeapp/showme/internal/client/models"
	"github.com/showmeapp/showme/internal/common"
	"github.com/showmeapp/showme/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Insert(ctx context.Context, m *models.Map) error {
	query := `INSERT INTO maps (id, name, is_private, access_token, fuzzing_enabled, fuzzing_radius, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		m.ID, m.Name, m.IsPrivate, m.AccessToken, m.FuzzingEnabled, m.FuzzingRadius,
		m.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert map: %w", err)
	}
	return nil
}

// Upsert inserts a map or overwrites an existing row, used when applying
// upstream rows pulled from the shared endpoint.
func (r *SQLiteRepository) Upsert(ctx context.Context, m *models.Map) error {
	query := `INSERT INTO maps (id, name, is_private, access_token, fuzzing_enabled, fuzzing_radius, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name,
			is_private = excluded.is_private,
			access_token = excluded.access_token,
			fuzzing_enabled = excluded.fuzzing_enabled,
			fuzzing_radius = excluded.fuzzing_radius`
	_, err := r.db.ExecContext(ctx, query,
		m.ID, m.Name, m.IsPrivate, m.AccessToken, m.FuzzingEnabled, m.FuzzingRadius,
		m.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to upsert map: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Map, error) {
	query := `SELECT id, name, is_private, access_token, fuzzing_enabled, fuzzing_radius, created_at
		FROM maps WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)

	m, err := scanMap(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select map: %w", err)
	}
	return m, nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]models.Map, error) {
	query := `SELECT id, name, is_private, access_token, fuzzing_enabled, fuzzing_radius, created_at
		FROM maps ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select maps: %w", err)
	}
	defer rows.Close()

	var result []models.Map
	for rows.Next() {
		m, err := scanMap(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM maps`); err != nil {
		return fmt.Errorf("failed to delete maps: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Fingerprint(ctx context.Context) (string, error) {
	query := `SELECT count(*), coalesce(max(created_at), '') FROM maps`
	var count int
	var latest string
	if err := r.db.QueryRowContext(ctx, query).Scan(&count, &latest); err != nil {
		return "", fmt.Errorf("failed to fingerprint maps: %w", err)
	}
	return fmt.Sprintf("%d|%s", count, latest), nil
}

func scanMap(scan func(dest ...any) error) (*models.Map, error) {
	m := &models.Map{}
	var createdAt string
	if err := scan(&m.ID, &m.Name, &m.IsPrivate, &m.AccessToken,
		&m.FuzzingEnabled, &m.FuzzingRadius, &createdAt); err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse map created_at: %w", err)
	}
	m.CreatedAt = t
	return m, nil
}
