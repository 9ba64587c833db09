// Package history keeps finished dictations in a local SQLite database.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("history entry not found")

// Entry is one completed dictation.
type Entry struct {
	ID             string
	CreatedAt      time.Time
	Text           string
	Transcript     string
	Language       string
	Mode           string
	PostProcessed  bool
	UsedFallback   bool
	AudioSeconds   float64
	Transcription  time.Duration
	PostProcessing time.Duration
}

// Store wraps the history database.
type Store struct {
	db *sql.DB
}

const schema = `
	CREATE TABLE IF NOT EXISTS dictations (
		id TEXT PRIMARY KEY,
		createdAt REAL NOT NULL,
		text TEXT NOT NULL,
		transcript TEXT NOT NULL,
		language TEXT NOT NULL DEFAULT '',
		mode TEXT NOT NULL DEFAULT 'plain',
		postProcessed INTEGER NOT NULL DEFAULT 0,
		usedFallback INTEGER NOT NULL DEFAULT 0,
		audioSeconds REAL NOT NULL DEFAULT 0,
		transcriptionMs INTEGER NOT NULL DEFAULT 0,
		postProcessingMs INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_dictations_createdAt ON dictations(createdAt);
`

// Open opens (creating if needed) the database at path with WAL.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// a single connection keeps :memory: databases shared and serialises writers
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append stores e, filling in ID and CreatedAt when they are zero, and
// returns the stored entry.
func (s *Store) Append(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO dictations (id, createdAt, text, transcript, language, mode,
			postProcessed, usedFallback, audioSeconds, transcriptionMs, postProcessingMs)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, unixFromTime(e.CreatedAt), e.Text, e.Transcript, e.Language, e.Mode,
		e.PostProcessed, e.UsedFallback, e.AudioSeconds,
		e.Transcription.Milliseconds(), e.PostProcessing.Milliseconds())
	if err != nil {
		return Entry{}, fmt.Errorf("insert dictation: %w", err)
	}
	return e, nil
}

// Recent returns up to n entries, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, createdAt, text, transcript, language, mode,
			postProcessed, usedFallback, audioSeconds, transcriptionMs, postProcessingMs
		FROM dictations
		ORDER BY createdAt DESC
		LIMIT ?
	`, n)
	if err != nil {
		return nil, fmt.Errorf("query dictations: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Get returns the entry with the given id or a unique id prefix.
func (s *Store) Get(ctx context.Context, id string) (Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, createdAt, text, transcript, language, mode,
			postProcessed, usedFallback, audioSeconds, transcriptionMs, postProcessingMs
		FROM dictations
		WHERE id = ? OR id LIKE ? || '%'
		LIMIT 2
	`, id, id)
	if err != nil {
		return Entry{}, fmt.Errorf("query dictation: %w", err)
	}
	defer rows.Close()

	var found []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return Entry{}, err
		}
		if e.ID == id {
			return e, nil
		}
		found = append(found, e)
	}
	if err := rows.Err(); err != nil {
		return Entry{}, err
	}
	switch len(found) {
	case 0:
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	case 1:
		return found[0], nil
	default:
		return Entry{}, fmt.Errorf("ambiguous history id prefix %q", id)
	}
}

// Prune deletes everything but the newest keep entries and reports how many
// rows were removed.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM dictations
		WHERE id NOT IN (SELECT id FROM dictations ORDER BY createdAt DESC LIMIT ?)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune dictations: %w", err)
	}
	return res.RowsAffected()
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var e Entry
	var createdAt float64
	var transcriptionMs, postProcessingMs int64
	if err := rows.Scan(&e.ID, &createdAt, &e.Text, &e.Transcript, &e.Language, &e.Mode,
		&e.PostProcessed, &e.UsedFallback, &e.AudioSeconds, &transcriptionMs, &postProcessingMs); err != nil {
		return Entry{}, fmt.Errorf("scan dictation: %w", err)
	}
	e.CreatedAt = timeFromUnix(createdAt)
	e.Transcription = time.Duration(transcriptionMs) * time.Millisecond
	e.PostProcessing = time.Duration(postProcessingMs) * time.Millisecond
	return e, nil
}

func unixFromTime(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func timeFromUnix(ts float64) time.Time {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}
