// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/history/journal.go
// Summary: SQLite journal of played sessions and target events.
//
// The journal backs two player features:
//   - resuming the last experience on startup
//   - the recent-sessions panel of the player and the history control

package history

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/framegrace/texelar/internal/session"
	"github.com/framegrace/texelar/internal/tracking"
)

// Session statuses stored in the journal.
const (
	StatusActive = "active"
	StatusEnded  = "ended"
	StatusFailed = "failed"
)

const journalSchemaVersion = 1

const journalSchema = `
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    folder TEXT NOT NULL,
    name TEXT NOT NULL,
    started_at INTEGER NOT NULL,      -- UnixNano
    ended_at INTEGER,
    status TEXT NOT NULL,
    error TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at);

CREATE TABLE IF NOT EXISTS target_events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL,
    target_index INTEGER NOT NULL,
    kind TEXT NOT NULL,
    at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_target_events_session ON target_events(session_id);
`

// Entry is one journaled session.
type Entry struct {
	ID        string
	Folder    string
	Name      string
	StartedAt time.Time
	EndedAt   time.Time
	Status    string
	Error     string
	Found     int
}

// Journal records sessions. It implements session.Observer.
type Journal struct {
	db  *sql.DB
	now func() time.Time

	mu     sync.Mutex
	closed bool
}

// Open creates or opens the journal database at path.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	dsn := path +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_pragma=busy_timeout(2000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.Exec(journalSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	if err := checkSchemaVersion(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Journal{db: db, now: time.Now}, nil
}

func checkSchemaVersion(db *sql.DB) error {
	var current int
	err := db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&current)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if current == journalSchemaVersion {
		return nil
	}
	if current > journalSchemaVersion {
		return fmt.Errorf("journal schema version %d is newer than supported %d", current, journalSchemaVersion)
	}
	_, err = db.Exec("INSERT OR REPLACE INTO schema_version (version) VALUES (?)", journalSchemaVersion)
	return err
}

func (j *Journal) exec(query string, args ...interface{}) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return
	}
	if _, err := j.db.Exec(query, args...); err != nil {
		log.Printf("History: write failed: %v", err)
	}
}

func (j *Journal) SessionStarted(info session.Info) {
	j.exec(`INSERT OR REPLACE INTO sessions (id, folder, name, started_at, status) VALUES (?, ?, ?, ?, ?)`,
		info.ID, info.Folder, info.Name, info.StartedAt.UnixNano(), StatusActive)
}

func (j *Journal) SessionEnded(info session.Info, err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	j.exec(`UPDATE sessions SET ended_at = ?, status = ?, error = ? WHERE id = ?`,
		j.now().UnixNano(), StatusEnded, msg, info.ID)
}

func (j *Journal) SessionFailed(info session.Info, err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	now := j.now().UnixNano()
	j.exec(`INSERT OR REPLACE INTO sessions (id, folder, name, started_at, ended_at, status, error) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		info.ID, info.Folder, info.Name, info.StartedAt.UnixNano(), now, StatusFailed, msg)
}

func (j *Journal) TargetEvent(info session.Info, kind tracking.EventKind, targetIndex int) {
	j.exec(`INSERT INTO target_events (session_id, target_index, kind, at) VALUES (?, ?, ?, ?)`,
		info.ID, targetIndex, kind.String(), j.now().UnixNano())
}

// LastExperience returns the folder of the most recent session that started successfully.
func (j *Journal) LastExperience() (string, bool, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return "", false, sql.ErrConnDone
	}
	var folder string
	err := j.db.QueryRow(`SELECT folder FROM sessions WHERE status != ? ORDER BY started_at DESC LIMIT 1`,
		StatusFailed).Scan(&folder)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return folder, true, nil
}

// Recent returns up to limit sessions, newest first, with their found-event counts.
func (j *Journal) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 10
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil, sql.ErrConnDone
	}
	rows, err := j.db.Query(`
		SELECT s.id, s.folder, s.name, s.started_at, COALESCE(s.ended_at, 0), s.status, s.error,
		       (SELECT COUNT(*) FROM target_events e WHERE e.session_id = s.id AND e.kind = 'found')
		FROM sessions s
		ORDER BY s.started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var started, ended int64
		if err := rows.Scan(&e.ID, &e.Folder, &e.Name, &started, &ended, &e.Status, &e.Error, &e.Found); err != nil {
			return nil, err
		}
		e.StartedAt = time.Unix(0, started)
		if ended != 0 {
			e.EndedAt = time.Unix(0, ended)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close marks sessions left active as ended and closes the database.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true
	if _, err := j.db.Exec(`UPDATE sessions SET status = ?, ended_at = ? WHERE status = ?`,
		StatusEnded, j.now().UnixNano(), StatusActive); err != nil {
		log.Printf("History: close active sessions: %v", err)
	}
	return j.db.Close()
}

var _ session.Observer = (*Journal)(nil)
