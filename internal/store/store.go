// Package store provides the optional SQLite archive for ended sessions and
// rotated log batches. The framework works without it; when enabled it
// receives records the in-memory layers are about to discard.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"aegis/internal/types"
)

// ArchiveStore persists safety records to SQLite.
type ArchiveStore struct {
	mu sync.Mutex
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS archived_sessions (
	session_id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	status TEXT NOT NULL,
	started_at TIMESTAMP NOT NULL,
	ended_at TIMESTAMP,
	violations INTEGER NOT NULL DEFAULT 0,
	emergency_actions INTEGER NOT NULL DEFAULT 0,
	detail_json TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS archived_log_entries (
	id TEXT PRIMARY KEY,
	timestamp TIMESTAMP NOT NULL,
	level TEXT NOT NULL,
	category TEXT NOT NULL,
	message TEXT NOT NULL,
	user_id TEXT,
	session_id TEXT
);

CREATE INDEX IF NOT EXISTS idx_archived_sessions_user ON archived_sessions(user_id);
CREATE INDEX IF NOT EXISTS idx_archived_log_session ON archived_log_entries(session_id);
`

// Open opens (creating if needed) the archive database at path.
func Open(path string) (*ArchiveStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply archive schema: %w", err)
	}
	return &ArchiveStore{db: db}, nil
}

// Close closes the underlying database.
func (s *ArchiveStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// ArchiveSession stores an ended or terminated session.
func (s *ArchiveStore) ArchiveSession(session *types.SafetySession) error {
	if session == nil {
		return fmt.Errorf("store: nil session")
	}

	detail, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("store: failed to encode session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO archived_sessions
		 (session_id, user_id, status, started_at, ended_at, violations, emergency_actions, detail_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID, session.UserID, string(session.Status),
		session.StartedAt, session.EndedAt,
		len(session.Violations), len(session.EmergencyActions), string(detail),
	)
	if err != nil {
		return fmt.Errorf("store: failed to archive session: %w", err)
	}
	return nil
}

// ArchiveLogEntries stores a batch of rotated log entries. Duplicate ids are
// silently skipped so re-archiving a batch is idempotent.
func (s *ArchiveStore) ArchiveLogEntries(entries []types.SafetyLogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: failed to begin transaction: %w", err)
	}
	for _, entry := range entries {
		_, err := tx.Exec(
			`INSERT OR IGNORE INTO archived_log_entries
			 (id, timestamp, level, category, message, user_id, session_id)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			entry.ID, entry.Timestamp, string(entry.Level), entry.Category,
			entry.Message, entry.UserID, entry.SessionID,
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("store: failed to archive log entry: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: failed to commit archive batch: %w", err)
	}
	return nil
}

// SessionSummary is the archived view of one session.
type SessionSummary struct {
	SessionID        string
	UserID           string
	Status           types.SessionStatus
	StartedAt        time.Time
	EndedAt          time.Time
	Violations       int
	EmergencyActions int
}

// SessionsForUser lists archived sessions for a user, newest first.
func (s *ArchiveStore) SessionsForUser(userID string, limit int) ([]SessionSummary, error) {
	if limit <= 0 {
		limit = 50
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT session_id, user_id, status, started_at, ended_at, violations, emergency_actions
		 FROM archived_sessions
		 WHERE user_id = ?
		 ORDER BY started_at DESC
		 LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("store: failed to query sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		var summary SessionSummary
		var status string
		var ended sql.NullTime
		if err := rows.Scan(&summary.SessionID, &summary.UserID, &status,
			&summary.StartedAt, &ended, &summary.Violations, &summary.EmergencyActions); err != nil {
			return nil, fmt.Errorf("store: failed to scan session row: %w", err)
		}
		summary.Status = types.SessionStatus(status)
		if ended.Valid {
			summary.EndedAt = ended.Time
		}
		out = append(out, summary)
	}
	return out, rows.Err()
}

// LogEntriesForSession lists archived log entries for one session.
func (s *ArchiveStore) LogEntriesForSession(sessionID string) ([]types.SafetyLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT id, timestamp, level, category, message, user_id, session_id
		 FROM archived_log_entries
		 WHERE session_id = ?
		 ORDER BY timestamp`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: failed to query log entries: %w", err)
	}
	defer rows.Close()

	var out []types.SafetyLogEntry
	for rows.Next() {
		var entry types.SafetyLogEntry
		var level string
		if err := rows.Scan(&entry.ID, &entry.Timestamp, &level, &entry.Category,
			&entry.Message, &entry.UserID, &entry.SessionID); err != nil {
			return nil, fmt.Errorf("store: failed to scan log row: %w", err)
		}
		entry.Level = types.LogLevel(level)
		out = append(out, entry)
	}
	return out, rows.Err()
}
