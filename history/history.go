// Package history keeps a ledger of conversions in SQLite so that a run
// can be looked up by its correlation id after the response was sent.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tsawler/nashville/pipeline"
)

// ErrNotFound is returned by Get for unknown correlation ids.
var ErrNotFound = errors.New("conversion not found")

// Entry is one recorded conversion.
type Entry struct {
	CorrelationID         string    `json:"correlation_id"`
	Filename              string    `json:"filename"`
	Success               bool      `json:"success"`
	Key                   string    `json:"key"`
	Mode                  string    `json:"mode"`
	TokensExtracted       int       `json:"total_tokens_extracted"`
	ChordsIdentified      int       `json:"total_chords_identified"`
	ChordsConverted       int       `json:"total_chords_converted"`
	ProcessingTimeSeconds float64   `json:"processing_time_seconds"`
	Fingerprint           string    `json:"fingerprint,omitempty"`
	ErrorStage            string    `json:"error_stage,omitempty"`
	ErrorKind             string    `json:"error_type,omitempty"`
	ErrorMessage          string    `json:"error_message,omitempty"`
	Warnings              []string  `json:"warnings"`
	CreatedAt             time.Time `json:"created_at"`
}

// Store records conversions in a SQLite database.
type Store struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, now: time.Now}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS conversions (
		correlation_id TEXT PRIMARY KEY,
		filename TEXT NOT NULL DEFAULT '',
		success INTEGER NOT NULL,
		key TEXT NOT NULL,
		mode TEXT NOT NULL,
		tokens_extracted INTEGER NOT NULL DEFAULT 0,
		chords_identified INTEGER NOT NULL DEFAULT 0,
		chords_converted INTEGER NOT NULL DEFAULT 0,
		processing_seconds REAL NOT NULL DEFAULT 0,
		fingerprint TEXT NOT NULL DEFAULT '',
		error_stage TEXT NOT NULL DEFAULT '',
		error_kind TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL DEFAULT '',
		warnings TEXT NOT NULL DEFAULT '[]',
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_conversions_created ON conversions(created_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores the outcome of a run, replacing any earlier entry with
// the same correlation id.
func (s *Store) Record(ctx context.Context, filename string, res *pipeline.ConversionResult) error {
	if res == nil || res.CorrelationID == "" {
		return errors.New("result has no correlation id")
	}

	warnings := res.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	warningsJSON, err := json.Marshal(warnings)
	if err != nil {
		return fmt.Errorf("failed to encode warnings: %w", err)
	}

	var stage, kind, message string
	if res.Error != nil {
		stage, kind, message = string(res.Error.Stage), string(res.Error.Kind), res.Error.Message
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO conversions (
			correlation_id, filename, success, key, mode,
			tokens_extracted, chords_identified, chords_converted, processing_seconds,
			fingerprint, error_stage, error_kind, error_message, warnings, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.CorrelationID, filename, res.Success, res.Key, string(res.Mode),
		res.TokensExtracted, res.ChordsIdentified, res.ChordsConverted, res.ProcessingTimeSeconds,
		res.Fingerprint, stage, kind, message, string(warningsJSON), s.now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to record conversion: %w", err)
	}
	return nil
}

const selectColumns = `
	SELECT correlation_id, filename, success, key, mode,
		tokens_extracted, chords_identified, chords_converted, processing_seconds,
		fingerprint, error_stage, error_kind, error_message, warnings, created_at
	FROM conversions`

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		e        Entry
		warnings string
		created  int64
	)
	err := row.Scan(&e.CorrelationID, &e.Filename, &e.Success, &e.Key, &e.Mode,
		&e.TokensExtracted, &e.ChordsIdentified, &e.ChordsConverted, &e.ProcessingTimeSeconds,
		&e.Fingerprint, &e.ErrorStage, &e.ErrorKind, &e.ErrorMessage, &warnings, &created)
	if err != nil {
		return Entry{}, err
	}
	if err := json.Unmarshal([]byte(warnings), &e.Warnings); err != nil {
		return Entry{}, fmt.Errorf("failed to decode warnings: %w", err)
	}
	e.CreatedAt = time.UnixMilli(created).UTC()
	return e, nil
}

// Get returns the entry for a correlation id.
func (s *Store) Get(ctx context.Context, correlationID string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE correlation_id = ?`, correlationID)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, correlationID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read conversion: %w", err)
	}
	return &e, nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversions: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to read conversion: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Prune deletes entries older than maxAge and returns how many were removed.
func (s *Store) Prune(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := s.now().Add(-maxAge).UnixMilli()

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM conversions WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune conversions: %w", err)
	}
	return res.RowsAffected()
}
