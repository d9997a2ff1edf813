// Package pins provides the local SQLite repository for pins.
package pins

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
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

func (r *SQLiteRepository) Insert(ctx context.Context, p *models.Pin) error {
	query := `INSERT INTO pins (id, map_id, lat, lng, type, tags, description, photo_urls, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	var expires any
	if p.ExpiresAt != nil {
		expires = p.ExpiresAt.UTC().Format(time.RFC3339)
	}
	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.MapID, p.Lat, p.Lng, string(p.Type), p.Tags, p.Description, p.PhotoURLs,
		expires,
		p.CreatedAt.UTC().Format(time.RFC3339),
		p.UpdatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert pin: %w", err)
	}
	return nil
}

// Upsert inserts a pin or overwrites an existing row, used when applying
// upstream rows pulled from the shared endpoint.
func (r *SQLiteRepository) Upsert(ctx context.Context, p *models.Pin) error {
	query := `INSERT INTO pins (id, map_id, lat, lng, type, tags, description, photo_urls, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET map_id = excluded.map_id,
			lat = excluded.lat,
			lng = excluded.lng,
			type = excluded.type,
			tags = excluded.tags,
			description = excluded.description,
			photo_urls = excluded.photo_urls,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at`
	var expires any
	if p.ExpiresAt != nil {
		expires = p.ExpiresAt.UTC().Format(time.RFC3339)
	}
	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.MapID, p.Lat, p.Lng, string(p.Type), p.Tags, p.Description, p.PhotoURLs,
		expires,
		p.CreatedAt.UTC().Format(time.RFC3339),
		p.UpdatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to upsert pin: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Update(ctx context.Context, id string, upd ColumnUpdate, updatedAt time.Time) error {
	sets := []string{"updated_at = ?"}
	args := []any{updatedAt.UTC().Format(time.RFC3339)}

	if upd.Type != nil {
		sets = append(sets, "type = ?")
		args = append(args, *upd.Type)
	}
	if upd.Tags != nil {
		sets = append(sets, "tags = ?")
		args = append(args, *upd.Tags)
	}
	if upd.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *upd.Description)
	}
	if upd.PhotoURLs != nil {
		sets = append(sets, "photo_urls = ?")
		args = append(args, *upd.PhotoURLs)
	}
	args = append(args, id)

	query := `UPDATE pins SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update pin: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Pin, error) {
	query := `SELECT id, map_id, lat, lng, type, tags, description, photo_urls, expires_at, created_at, updated_at
		FROM pins WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)

	var p models.Pin
	var typ string
	var expires, createdAt, updatedAt *string
	err := row.Scan(&p.ID, &p.MapID, &p.Lat, &p.Lng, &typ, &p.Tags,
		&p.Description, &p.PhotoURLs, &expires, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select pin: %w", err)
	}
	p.Type = models.PinType(typ)
	if err := parseTimes(&p, expires, createdAt, updatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *SQLiteRepository) GetByMap(ctx context.Context, mapID string, includeExpired bool, now time.Time) ([]models.Pin, error) {
	query := `SELECT id, map_id, lat, lng, type, tags, description, photo_urls, expires_at, created_at, updated_at
		FROM pins WHERE map_id = ?`
	args := []any{mapID}
	if !includeExpired {
		query += ` AND (expires_at IS NULL OR expires_at > ?)`
		args = append(args, now.UTC().Format(time.RFC3339))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		if isMissingColumn(err) {
			return r.getByMapLegacy(ctx, mapID)
		}
		return nil, fmt.Errorf("failed to select pins: %w", err)
	}
	defer rows.Close()

	var result []models.Pin
	for rows.Next() {
		var p models.Pin
		var typ string
		var expires, createdAt, updatedAt *string
		if err := rows.Scan(&p.ID, &p.MapID, &p.Lat, &p.Lng, &typ, &p.Tags,
			&p.Description, &p.PhotoURLs, &expires, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		p.Type = models.PinType(typ)
		if err := parseTimes(&p, expires, createdAt, updatedAt); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// getByMapLegacy reads pins from a database that predates the type/expires_at
// columns; such pins never expire.
func (r *SQLiteRepository) getByMapLegacy(ctx context.Context, mapID string) ([]models.Pin, error) {
	query := `SELECT id, map_id, lat, lng, tags, description, photo_urls, created_at, updated_at
		FROM pins WHERE map_id = ? ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, mapID)
	if err != nil {
		return nil, fmt.Errorf("failed to select pins: %w", err)
	}
	defer rows.Close()

	var result []models.Pin
	for rows.Next() {
		var p models.Pin
		var createdAt, updatedAt *string
		if err := rows.Scan(&p.ID, &p.MapID, &p.Lat, &p.Lng, &p.Tags,
			&p.Description, &p.PhotoURLs, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		if err := parseTimes(&p, nil, createdAt, updatedAt); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM pins WHERE expires_at IS NOT NULL AND expires_at <= ?`
	res, err := r.db.ExecContext(ctx, query, now.UTC().Format(time.RFC3339))
	if err != nil {
		if isMissingColumn(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to delete expired pins: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return ra, nil
}

func (r *SQLiteRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM pins`); err != nil {
		return fmt.Errorf("failed to delete pins: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Fingerprint(ctx context.Context) (string, error) {
	query := `SELECT count(*), coalesce(max(updated_at), '') FROM pins`
	var count int
	var latest string
	if err := r.db.QueryRowContext(ctx, query).Scan(&count, &latest); err != nil {
		return "", fmt.Errorf("failed to fingerprint pins: %w", err)
	}
	return fmt.Sprintf("%d|%s", count, latest), nil
}

func isMissingColumn(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such column")
}

func parseTimes(p *models.Pin, expires, createdAt, updatedAt *string) error {
	if expires != nil && *expires != "" {
		t, err := time.Parse(time.RFC3339, *expires)
		if err != nil {
			return fmt.Errorf("failed to parse pin expires_at: %w", err)
		}
		p.ExpiresAt = &t
	}
	if createdAt != nil {
		t, err := time.Parse(time.RFC3339, *createdAt)
		if err != nil {
			return fmt.Errorf("failed to parse pin created_at: %w", err)
		}
		p.CreatedAt = t
	}
	if updatedAt != nil {
		t, err := time.Parse(time.RFC3339, *updatedAt)
		if err != nil {
			return fmt.Errorf("failed to parse pin updated_at: %w", err)
		}
		p.UpdatedAt = t
	}
	return nil
}
