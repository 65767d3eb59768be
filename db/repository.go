package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// sqliteTimeLayout is the format SQLite's CURRENT_TIMESTAMP produces.
const sqliteTimeLayout = "2006-01-02 15:04:05"

// Content kinds stored in chapter metadata. A document chapter holds a single
// original file; an image sequence chapter holds ordered page images.
const (
	ContentKindDocument      = "document"
	ContentKindImageSequence = "image_sequence"
)

// Known item type namespaces for the summary cache. The column is free-form,
// so callers may introduce new namespaces without a schema change.
const (
	ItemTypeBook    = "book"
	ItemTypeChapter = "chapter"
)

// CachedSummary represents a row in the summary_cache table.
type CachedSummary struct {
	ID        int64     // Auto-incremented primary key
	ItemType  string    // Namespace of the summarized item (e.g. "book", "chapter")
	ItemID    int64     // Identifier within the namespace
	Summary   string    // Generated summary text
	Model     string    // Provenance: model identifier or "simple" for the extractive fallback
	CreatedAt time.Time // Timestamp when the summary was generated
}

// Chapter represents a row in the chapters table.
type Chapter struct {
	ID            int64     // Auto-incremented primary key
	MangaID       int64     // Owning manga identifier
	ChapterNumber int       // Position within the manga, unique per manga
	Title         string    // Display title, may be empty
	ContentRef    string    // Single filename (document) or comma-joined ordered page list
	ContentKind   string    // ContentKindDocument or ContentKindImageSequence
	PageCount     int       // Number of readable pages (1 for document chapters)
	CreatedAt     time.Time // Timestamp when the chapter was ingested
}

// Repository provides typed access to the summary cache and chapter
// metadata tables.
type Repository struct {
	db *Database
}

// NewRepository creates a new Repository backed by the given Database.
func NewRepository(database *Database) *Repository {
	return &Repository{db: database}
}

// conn returns the live database handle. After Database.Close the handle is
// gone, so calls racing shutdown get an error instead of a nil dereference.
func (r *Repository) conn() (*sql.DB, error) {
	if r.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	conn := r.db.DB()
	if conn == nil {
		return nil, fmt.Errorf("database connection is closed")
	}
	return conn, nil
}

// GetSummary retrieves a cached summary for (itemType, itemID).
//
// When ttlDays > 0 and the row is older than the TTL, the stale row is
// deleted and a cache miss is reported. A cache miss returns (nil, nil).
// Rows whose timestamp cannot be parsed are treated as fresh; the eager
// sweep skips them too.
func (r *Repository) GetSummary(ctx context.Context, itemType string, itemID int64, ttlDays int) (*CachedSummary, error) {
	conn, err := r.conn()
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, item_type, item_id, summary, COALESCE(model, ''), created_at
		FROM summary_cache
		WHERE item_type = ? AND item_id = ?`

	var rec CachedSummary
	var createdAt string
	err = conn.QueryRowContext(ctx, query, itemType, itemID).Scan(
		&rec.ID,
		&rec.ItemType,
		&rec.ItemID,
		&rec.Summary,
		&rec.Model,
		&createdAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query summary cache: %w", err)
	}

	parsed, parseErr := time.Parse(sqliteTimeLayout, createdAt)
	if parseErr == nil {
		rec.CreatedAt = parsed

		if ttlDays > 0 && time.Now().UTC().Sub(parsed) > time.Duration(ttlDays)*24*time.Hour {
			if _, err := conn.ExecContext(ctx, "DELETE FROM summary_cache WHERE id = ?", rec.ID); err != nil {
				return nil, fmt.Errorf("failed to delete expired summary: %w", err)
			}
			return nil, nil
		}
	}

	return &rec, nil
}

// UpsertSummary stores a summary for (itemType, itemID), replacing any
// existing row. The timestamp is reset so the TTL clock restarts on every
// regeneration. Concurrent upserts resolve last-writer-wins.
func (r *Repository) UpsertSummary(ctx context.Context, itemType string, itemID int64, summary, model string) error {
	conn, err := r.conn()
	if err != nil {
		return err
	}

	query := `
		INSERT INTO summary_cache (item_type, item_id, summary, model, created_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(item_type, item_id) DO UPDATE SET
			summary = excluded.summary,
			model = excluded.model,
			created_at = CURRENT_TIMESTAMP`

	if _, err := conn.ExecContext(ctx, query, itemType, itemID, summary, model); err != nil {
		return fmt.Errorf("failed to upsert summary: %w", err)
	}

	return nil
}

// DeleteSummaries removes cache rows by id. Missing ids are ignored.
// Returns the number of rows deleted.
func (r *Repository) DeleteSummaries(ctx context.Context, ids []int64) (int64, error) {
	conn, err := r.conn()
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	res, err := conn.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM summary_cache WHERE id IN (%s)", placeholders), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete summaries: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}

// DeleteExpiredSummaries removes all cache rows older than ttlDays.
// Timestamps are parsed in Go so rows with unparseable created_at values are
// skipped rather than deleted. ttlDays <= 0 disables expiry and deletes
// nothing. Returns the number of rows deleted.
func (r *Repository) DeleteExpiredSummaries(ctx context.Context, ttlDays int) (int64, error) {
	conn, err := r.conn()
	if err != nil {
		return 0, err
	}
	if ttlDays <= 0 {
		return 0, nil
	}

	rows, err := conn.QueryContext(ctx, "SELECT id, created_at FROM summary_cache")
	if err != nil {
		return 0, fmt.Errorf("failed to query summary cache: %w", err)
	}
	defer rows.Close()

	cutoff := time.Now().UTC().Add(-time.Duration(ttlDays) * 24 * time.Hour)

	var expired []int64
	for rows.Next() {
		var id int64
		var createdAt string
		if err := rows.Scan(&id, &createdAt); err != nil {
			return 0, fmt.Errorf("failed to scan summary cache row: %w", err)
		}

		parsed, parseErr := time.Parse(sqliteTimeLayout, createdAt)
		if parseErr != nil {
			// Unparseable timestamp: leave the row alone
			continue
		}
		if parsed.Before(cutoff) {
			expired = append(expired, id)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("error iterating summary cache rows: %w", err)
	}

	return r.DeleteSummaries(ctx, expired)
}

// GetChapter retrieves chapter metadata by (mangaID, chapterNumber).
// Returns (nil, nil) when the chapter does not exist.
func (r *Repository) GetChapter(ctx context.Context, mangaID int64, chapterNumber int) (*Chapter, error) {
	conn, err := r.conn()
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, manga_id, chapter_number, COALESCE(title, ''),
		       content_ref, content_kind, page_count, created_at
		FROM chapters
		WHERE manga_id = ? AND chapter_number = ?`

	var ch Chapter
	var createdAt string
	err = conn.QueryRowContext(ctx, query, mangaID, chapterNumber).Scan(
		&ch.ID,
		&ch.MangaID,
		&ch.ChapterNumber,
		&ch.Title,
		&ch.ContentRef,
		&ch.ContentKind,
		&ch.PageCount,
		&createdAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query chapter: %w", err)
	}

	ch.CreatedAt, _ = time.Parse(sqliteTimeLayout, createdAt)
	return &ch, nil
}

// UpsertChapter stores chapter metadata, replacing any existing row for the
// same (manga_id, chapter_number). Returns the row id.
func (r *Repository) UpsertChapter(ctx context.Context, ch Chapter) (int64, error) {
	conn, err := r.conn()
	if err != nil {
		return 0, err
	}

	query := `
		INSERT INTO chapters (manga_id, chapter_number, title, content_ref, content_kind, page_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(manga_id, chapter_number) DO UPDATE SET
			title = excluded.title,
			content_ref = excluded.content_ref,
			content_kind = excluded.content_kind,
			page_count = excluded.page_count,
			created_at = CURRENT_TIMESTAMP`

	if _, err := conn.ExecContext(ctx, query,
		ch.MangaID, ch.ChapterNumber, ch.Title, ch.ContentRef, ch.ContentKind, ch.PageCount); err != nil {
		return 0, fmt.Errorf("failed to upsert chapter: %w", err)
	}

	var id int64
	err = conn.QueryRowContext(ctx,
		"SELECT id FROM chapters WHERE manga_id = ? AND chapter_number = ?",
		ch.MangaID, ch.ChapterNumber).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to read back chapter id: %w", err)
	}

	return id, nil
}

// DeleteChapter removes chapter metadata. Returns true if a row was deleted.
func (r *Repository) DeleteChapter(ctx context.Context, mangaID int64, chapterNumber int) (bool, error) {
	conn, err := r.conn()
	if err != nil {
		return false, err
	}

	res, err := conn.ExecContext(ctx,
		"DELETE FROM chapters WHERE manga_id = ? AND chapter_number = ?",
		mangaID, chapterNumber)
	if err != nil {
		return false, fmt.Errorf("failed to delete chapter: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted > 0, nil
}

// ListChapters returns all chapters of a manga ordered by chapter number.
func (r *Repository) ListChapters(ctx context.Context, mangaID int64) ([]Chapter, error) {
	conn, err := r.conn()
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, manga_id, chapter_number, COALESCE(title, ''),
		       content_ref, content_kind, page_count, created_at
		FROM chapters
		WHERE manga_id = ?
		ORDER BY chapter_number ASC`

	rows, err := conn.QueryContext(ctx, query, mangaID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chapters: %w", err)
	}
	defer rows.Close()

	var chapters []Chapter
	for rows.Next() {
		var ch Chapter
		var createdAt string

		err := rows.Scan(
			&ch.ID,
			&ch.MangaID,
			&ch.ChapterNumber,
			&ch.Title,
			&ch.ContentRef,
			&ch.ContentKind,
			&ch.PageCount,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chapter row: %w", err)
		}

		ch.CreatedAt, _ = time.Parse(sqliteTimeLayout, createdAt)
		chapters = append(chapters, ch)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chapter rows: %w", err)
	}

	return chapters, nil
}

// isNoRows reports whether err is sql.ErrNoRows.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
