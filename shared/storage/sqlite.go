package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // pure Go driver, no CGO

	"tutorial-scraper/internal/models"
)

// SQLiteStore persists the tutorial library in a SQLite database
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database at dbPath, creating it and its schema if needed
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	// busy_timeout avoids "database locked" errors while a run and a user edit overlap
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return store, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tutorials (
		video_id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		channel_title TEXT NOT NULL DEFAULT '',
		channel_id TEXT NOT NULL DEFAULT '',
		duration_seconds INTEGER NOT NULL DEFAULT 0,
		view_count INTEGER NOT NULL DEFAULT 0,
		like_count INTEGER NOT NULL DEFAULT 0,
		published_at TEXT,
		thumbnail_url TEXT NOT NULL DEFAULT '',
		programming_language TEXT,
		subject TEXT,
		is_watched INTEGER NOT NULL DEFAULT 0,
		is_favorite INTEGER NOT NULL DEFAULT 0,
		first_seen TEXT NOT NULL,
		last_updated TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tutorials_language ON tutorials(programming_language);
	CREATE INDEX IF NOT EXISTS idx_tutorials_subject ON tutorials(subject);
	CREATE INDEX IF NOT EXISTS idx_tutorials_views ON tutorials(view_count);
	`

	_, err := s.db.Exec(schema)
	return err
}

const selectColumns = `
	SELECT video_id, title, description, channel_title, channel_id, duration_seconds,
	       view_count, like_count, published_at, thumbnail_url, programming_language, subject,
	       is_watched, is_favorite, first_seen, last_updated
	FROM tutorials`

// Get returns the stored record for videoID
func (s *SQLiteStore) Get(ctx context.Context, videoID string) (models.TutorialRecord, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE video_id = ?`, videoID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.TutorialRecord{}, models.ErrNotFound
	}
	return rec, err
}

// Insert adds a new record; an existing id violates the primary key
func (s *SQLiteStore) Insert(ctx context.Context, rec models.TutorialRecord) error {
	query := `
	INSERT INTO tutorials (video_id, title, description, channel_title, channel_id, duration_seconds,
		view_count, like_count, published_at, thumbnail_url, programming_language, subject,
		is_watched, is_favorite, first_seen, last_updated)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.VideoID,
		rec.Title,
		rec.Description,
		rec.ChannelTitle,
		rec.ChannelID,
		rec.DurationSeconds,
		rec.ViewCount,
		rec.LikeCount,
		formatTime(rec.PublishedAt),
		rec.ThumbnailURL,
		nullable(rec.Language),
		nullable(rec.Subject),
		rec.Watched,
		rec.Favorite,
		formatTime(rec.FirstSeen),
		formatTime(rec.LastUpdated),
	)
	return err
}

// Update refreshes the ingestion-owned columns. is_watched, is_favorite and first_seen
// are not part of the statement.
func (s *SQLiteStore) Update(ctx context.Context, rec models.TutorialRecord) error {
	query := `
	UPDATE tutorials
	SET title = ?,
	    description = ?,
	    channel_title = ?,
	    channel_id = ?,
	    duration_seconds = ?,
	    view_count = ?,
	    like_count = ?,
	    published_at = ?,
	    thumbnail_url = ?,
	    programming_language = ?,
	    subject = ?,
	    last_updated = ?
	WHERE video_id = ?
	`
	res, err := s.db.ExecContext(ctx, query,
		rec.Title,
		rec.Description,
		rec.ChannelTitle,
		rec.ChannelID,
		rec.DurationSeconds,
		rec.ViewCount,
		rec.LikeCount,
		formatTime(rec.PublishedAt),
		rec.ThumbnailURL,
		nullable(rec.Language),
		nullable(rec.Subject),
		formatTime(rec.LastUpdated),
		rec.VideoID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// MarkWatched sets the watched flag
func (s *SQLiteStore) MarkWatched(ctx context.Context, videoID string, watched bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE tutorials SET is_watched = ? WHERE video_id = ?`, watched, videoID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SetFavorite sets the favorite flag
func (s *SQLiteStore) SetFavorite(ctx context.Context, videoID string, favorite bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE tutorials SET is_favorite = ? WHERE video_id = ?`, favorite, videoID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Delete removes a record
func (s *SQLiteStore) Delete(ctx context.Context, videoID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tutorials WHERE video_id = ?`, videoID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// List returns records matching f
func (s *SQLiteStore) List(ctx context.Context, f Filter) ([]models.TutorialRecord, error) {
	var (
		where []string
		args  []any
	)
	if f.Language != "" {
		where = append(where, "programming_language = ?")
		args = append(args, f.Language)
	}
	if f.Subject != "" {
		where = append(where, "subject = ?")
		args = append(args, f.Subject)
	}
	if f.FavoritesOnly {
		where = append(where, "is_favorite = 1")
	}
	if f.UnwatchedOnly {
		where = append(where, "is_watched = 0")
	}
	if f.Text != "" {
		where = append(where, "(instr(lower(title), lower(?)) > 0 OR instr(lower(description), lower(?)) > 0)")
		args = append(args, f.Text, f.Text)
	}

	query := selectColumns
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	if f.Order == OrderRecent {
		query += " ORDER BY first_seen DESC, video_id"
	} else {
		query += " ORDER BY view_count DESC, video_id"
	}
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.TutorialRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Summary counts records per category
func (s *SQLiteStore) Summary(ctx context.Context) (Summary, error) {
	sum := newSummary()

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(is_watched), 0), COALESCE(SUM(is_favorite), 0) FROM tutorials
	`).Scan(&sum.Total, &sum.Watched, &sum.Favorites)
	if err != nil {
		return sum, err
	}

	if err := s.countBy(ctx, "programming_language", sum.ByLanguage); err != nil {
		return sum, err
	}
	if err := s.countBy(ctx, "subject", sum.BySubject); err != nil {
		return sum, err
	}
	return sum, nil
}

// countBy fills into with per-value counts of column; column is a fixed identifier, never user input
func (s *SQLiteStore) countBy(ctx context.Context, column string, into map[string]int) error {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT %[1]s, COUNT(*) FROM tutorials WHERE %[1]s IS NOT NULL GROUP BY %[1]s`, column))
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			name  string
			count int
		)
		if err := rows.Scan(&name, &count); err != nil {
			return err
		}
		into[name] = count
	}
	return rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (models.TutorialRecord, error) {
	var (
		rec                            models.TutorialRecord
		publishedAt, language, subject sql.NullString
		firstSeen, lastUpdated         string
	)
	err := row.Scan(
		&rec.VideoID,
		&rec.Title,
		&rec.Description,
		&rec.ChannelTitle,
		&rec.ChannelID,
		&rec.DurationSeconds,
		&rec.ViewCount,
		&rec.LikeCount,
		&publishedAt,
		&rec.ThumbnailURL,
		&language,
		&subject,
		&rec.Watched,
		&rec.Favorite,
		&firstSeen,
		&lastUpdated,
	)
	if err != nil {
		return rec, err
	}

	if publishedAt.Valid {
		rec.PublishedAt = parseTime(publishedAt.String)
	}
	if language.Valid {
		rec.Language = &language.String
	}
	if subject.Valid {
		rec.Subject = &subject.String
	}
	rec.FirstSeen = parseTime(firstSeen)
	rec.LastUpdated = parseTime(lastUpdated)
	return rec, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}

func nullable(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// timeLayout is fixed-width so stored timestamps sort chronologically as text
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
