package manifest

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"imagehub/pkg/models"
)

// Repo persists the current manifest so the previous session's list can
// be served before a fresh load succeeds.
type Repo struct {
	DB *sql.DB
}

type ListQuery struct {
	ImagesOnly bool
	Limit      int // 0 means no limit
	Offset     int
}

// LoadRecord is one row of the load history.
type LoadRecord struct {
	ID        int64     `json:"id"`
	SourceURL string    `json:"source_url"`
	Entries   int       `json:"entries"`
	Error     string    `json:"error,omitempty"`
	LoadedAt  time.Time `json:"loaded_at"`
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// Replace swaps the stored manifest for entries in one transaction.
func (r *Repo) Replace(ctx context.Context, entries []models.ManifestEntry) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM manifest_entries`); err != nil {
		return fmt.Errorf("delete entries: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO manifest_entries (position, url, cache_key, is_image, fetched_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare stmt: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.Position, e.URL.Raw, e.Key, e.IsImage, e.FetchedAt.UTC()); err != nil {
			return fmt.Errorf("insert entry %d: %w", e.Position, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *Repo) Clear(ctx context.Context) error {
	if _, err := r.DB.ExecContext(ctx, `DELETE FROM manifest_entries`); err != nil {
		return fmt.Errorf("clear entries: %w", err)
	}
	return nil
}

func (r *Repo) Count(ctx context.Context, q ListQuery) (int, error) {
	sqlStr := `SELECT COUNT(*) FROM manifest_entries`
	if q.ImagesOnly {
		sqlStr += ` WHERE is_image = 1`
	}
	var total int
	if err := r.DB.QueryRowContext(ctx, sqlStr).Scan(&total); err != nil {
		return 0, fmt.Errorf("count scan: %w", err)
	}
	return total, nil
}

// List returns entries in manifest order.
func (r *Repo) List(ctx context.Context, q ListQuery) ([]models.ManifestEntry, error) {
	sqlStr := `SELECT position, url, cache_key, is_image, fetched_at FROM manifest_entries`
	if q.ImagesOnly {
		sqlStr += ` WHERE is_image = 1`
	}
	sqlStr += ` ORDER BY position`

	var args []any
	if q.Limit > 0 {
		sqlStr += ` LIMIT ? OFFSET ?`
		args = append(args, q.Limit, max(q.Offset, 0))
	}

	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list query: %w", err)
	}
	defer rows.Close()

	out := make([]models.ManifestEntry, 0, q.Limit)
	for rows.Next() {
		var (
			e   models.ManifestEntry
			raw string
		)
		if err := rows.Scan(&e.Position, &raw, &e.Key, &e.IsImage, &e.FetchedAt); err != nil {
			return nil, fmt.Errorf("list scan: %w", err)
		}
		e.URL = models.NewImageURL(raw)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// All returns every stored entry.
func (r *Repo) All(ctx context.Context) ([]models.ManifestEntry, error) {
	return r.List(ctx, ListQuery{})
}

func (r *Repo) RecordLoad(ctx context.Context, sourceURL string, entries int, loadErr error) error {
	var msg sql.NullString
	if loadErr != nil {
		msg = sql.NullString{String: loadErr.Error(), Valid: true}
	}
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO manifest_loads (source_url, entries, error, loaded_at)
		VALUES (?, ?, ?, ?)
	`, sourceURL, entries, msg, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert load record: %w", err)
	}
	return nil
}

// RecentLoads returns up to limit load records, newest first.
func (r *Repo) RecentLoads(ctx context.Context, limit int) ([]LoadRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, source_url, entries, error, loaded_at
		FROM manifest_loads
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("loads query: %w", err)
	}
	defer rows.Close()

	out := make([]LoadRecord, 0, limit)
	for rows.Next() {
		var (
			rec LoadRecord
			msg sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.SourceURL, &rec.Entries, &msg, &rec.LoadedAt); err != nil {
			return nil, fmt.Errorf("loads scan: %w", err)
		}
		rec.Error = msg.String
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}
