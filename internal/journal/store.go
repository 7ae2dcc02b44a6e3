package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"cbir/internal/logging"
)

const defaultRecentLimit = 20

// Recorder accepts journal entries.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// Store manages journal persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the journal database at path and applies
// migrations.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("journal path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts entry. A zero CreatedAt is stamped with the current time.
func (s *Store) Record(ctx context.Context, entry Entry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO journal_entries (
            kind, subject, detail, outcome, error_kind, message, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(entry.Kind),
		entry.Subject,
		entry.Detail,
		string(entry.Outcome),
		entry.ErrorKind,
		entry.Message,
		entry.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert journal entry: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, kind, subject, detail, outcome, error_kind, message, created_at
        FROM journal_entries ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query journal entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry     Entry
			kind      string
			outcome   string
			createdAt string
		)
		if err := rows.Scan(&entry.ID, &kind, &entry.Subject, &entry.Detail, &outcome, &entry.ErrorKind, &entry.Message, &createdAt); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		entry.Kind = Kind(kind)
		entry.Outcome = Outcome(outcome)
		if ts, parseErr := time.Parse(time.RFC3339Nano, createdAt); parseErr == nil {
			entry.CreatedAt = ts
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal entries: %w", err)
	}
	return entries, nil
}

// Logged wraps recorder so failures are logged and swallowed. A nil recorder
// yields one that drops every entry.
func Logged(recorder Recorder, logger *slog.Logger) Recorder {
	return &loggedRecorder{
		next:   recorder,
		logger: logging.NewComponentLogger(logger, "journal"),
	}
}

type loggedRecorder struct {
	next   Recorder
	logger *slog.Logger
}

func (r *loggedRecorder) Record(ctx context.Context, entry Entry) error {
	if r.next == nil {
		return nil
	}
	if err := r.next.Record(ctx, entry); err != nil {
		r.logger.Warn("journal write failed",
			"kind", string(entry.Kind),
			"subject", entry.Subject,
			logging.Error(err),
		)
	}
	return nil
}
