package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/pubky-agent/internal/model"
)

// SQLiteStore implements the Journal interface using a local SQLite
// database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, enables
// WAL mode, and runs any pending schema migrations. Parent directories are
// created as needed.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating journal directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// RecordEvent inserts a journal row for one observed notification.
// A missing ID is filled with a fresh UUID.
func (s *SQLiteStore) RecordEvent(ctx context.Context, event model.Event) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (id, tick_id, kind, actor, subject, action, timestamp, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.TickID, string(event.Kind), event.Actor,
		event.Subject, string(event.Action), event.Timestamp,
		event.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("recording event: %w", err)
	}

	return nil
}

// RecordReply inserts or replaces the audit row for a published reply.
// Reply ids are deterministic, so a reprocessed mention lands on the same
// row instead of accumulating duplicates.
func (s *SQLiteStore) RecordReply(ctx context.Context, reply model.ReplyRecord) error {
	if reply.CreatedAt.IsZero() {
		reply.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO replies (id, uri, parent_uri, actor, content, tick_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		reply.ID, reply.URI, reply.ParentURI, reply.Actor,
		reply.Content, reply.TickID, reply.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("recording reply %s: %w", reply.ID, err)
	}

	return nil
}

// RecentEvents returns up to limit events, newest first.
func (s *SQLiteStore) RecentEvents(ctx context.Context, limit int) ([]model.Event, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryxContext(ctx,
		"SELECT * FROM events ORDER BY created_at DESC, id LIMIT ?", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	return events, rows.Err()
}

// RecentReplies returns up to limit replies, newest first.
func (s *SQLiteStore) RecentReplies(ctx context.Context, limit int) ([]model.ReplyRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryxContext(ctx,
		"SELECT * FROM replies ORDER BY created_at DESC, id LIMIT ?", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying replies: %w", err)
	}
	defer rows.Close()

	var replies []model.ReplyRecord
	for rows.Next() {
		reply, err := scanReply(rows)
		if err != nil {
			return nil, err
		}
		replies = append(replies, reply)
	}

	return replies, rows.Err()
}

// scanEvent scans an event row from a sqlx.Rows result set.
func scanEvent(rows *sqlx.Rows) (model.Event, error) {
	var (
		event     model.Event
		kind      string
		action    string
		createdAt time.Time
	)

	err := rows.Scan(
		&event.ID, &event.TickID, &kind, &event.Actor,
		&event.Subject, &action, &event.Timestamp, &createdAt,
	)
	if err != nil {
		return model.Event{}, fmt.Errorf("scanning event row: %w", err)
	}

	event.Kind = model.Kind(kind)
	event.Action = model.EventAction(action)
	event.CreatedAt = createdAt

	return event, nil
}

// scanReply scans a reply row from a sqlx.Rows result set.
func scanReply(rows *sqlx.Rows) (model.ReplyRecord, error) {
	var (
		reply     model.ReplyRecord
		createdAt time.Time
	)

	err := rows.Scan(
		&reply.ID, &reply.URI, &reply.ParentURI, &reply.Actor,
		&reply.Content, &reply.TickID, &createdAt,
	)
	if err != nil {
		return model.ReplyRecord{}, fmt.Errorf("scanning reply row: %w", err)
	}

	reply.CreatedAt = createdAt

	return reply, nil
}
