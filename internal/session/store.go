package session

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id     TEXT PRIMARY KEY,
	start_time     TEXT NOT NULL,
	end_time       TEXT NOT NULL,
	duration_ms    INTEGER NOT NULL,
	wake_phrase    TEXT NOT NULL,
	did_inference  INTEGER NOT NULL DEFAULT 0,
	transcript     TEXT NOT NULL,
	record_json    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS session_commands (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id  TEXT NOT NULL,
	command     TEXT NOT NULL,
	output      TEXT,
	error       TEXT,
	success     INTEGER NOT NULL,
	created_at  TEXT NOT NULL,
	FOREIGN KEY (session_id) REFERENCES sessions(session_id)
);

CREATE TABLE IF NOT EXISTS engine_events (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id  TEXT,
	event_type  TEXT NOT NULL,
	detail      TEXT,
	created_at  TEXT NOT NULL
);
`
// #endregion schema

// #region store-struct
// Store persists finalized sessions and engine events in SQLite.
type Store struct {
	db *sql.DB
}
// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}
// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for use by other packages.
func (s *Store) DB() *sql.DB {
	return s.db
}
// #endregion db-accessor

// #region save-session
// SaveSession persists a finalized session and its per-command rows
// atomically. The full record is kept as JSON for the reporter and the
// fixture exporter; hot columns are lifted out for querying.
func (s *Store) SaveSession(sess *Session) error {
	recordJSON, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	didInference := 0
	if sess.DidInference {
		didInference = 1
	}

	_, err = tx.Exec(
		`INSERT INTO sessions (session_id, start_time, end_time, duration_ms, wake_phrase, did_inference, transcript, record_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID,
		sess.StartTime.UTC().Format(time.RFC3339Nano),
		sess.EndTime.UTC().Format(time.RFC3339Nano),
		sess.Duration.Milliseconds(),
		sess.WakePhrase,
		didInference,
		sess.CompleteTranscription,
		string(recordJSON),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	for _, cmd := range sess.CommandsExecuted {
		success := 0
		if cmd.Success {
			success = 1
		}
		_, err = tx.Exec(
			`INSERT INTO session_commands (session_id, command, output, error, success, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			sess.ID, cmd.Command, cmd.Output, cmd.Error, success,
			cmd.At.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("insert command row: %w", err)
		}
	}

	return tx.Commit()
}
// #endregion save-session

// #region get-session
// GetSession retrieves one finalized session by ID.
func (s *Store) GetSession(id string) (*Session, error) {
	var recordJSON string
	err := s.db.QueryRow(
		`SELECT record_json FROM sessions WHERE session_id = ?`, id,
	).Scan(&recordJSON)
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	var sess Session
	if err := json.Unmarshal([]byte(recordJSON), &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session %s: %w", id, err)
	}
	return &sess, nil
}
// #endregion get-session

// #region list-sessions
// ListSessions returns the most recent finalized sessions.
func (s *Store) ListSessions(limit int) ([]*Session, error) {
	rows, err := s.db.Query(
		`SELECT record_json FROM sessions ORDER BY start_time DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		var recordJSON string
		if err := rows.Scan(&recordJSON); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		var sess Session
		if err := json.Unmarshal([]byte(recordJSON), &sess); err != nil {
			return nil, fmt.Errorf("unmarshal session: %w", err)
		}
		sessions = append(sessions, &sess)
	}
	return sessions, rows.Err()
}
// #endregion list-sessions

// #region event-log

// Event is one row of the engine provenance log: wake and sleep
// transitions, gate refusals, reporter failures.
type Event struct {
	SessionID string
	Type      string // "wake" | "sleep" | "gate_refusal" | "inject" | "report_error"
	Detail    string
	CreatedAt time.Time
}

// LogEvent appends an engine event. sessionID may be empty for events
// outside any session.
func (s *Store) LogEvent(ev Event) error {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO engine_events (session_id, event_type, detail, created_at)
		 VALUES (?, ?, ?, ?)`,
		nullIfEmpty(ev.SessionID), ev.Type, nullIfEmpty(ev.Detail),
		ev.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log event: %w", err)
	}
	return nil
}

// ListEvents returns the most recent engine events.
func (s *Store) ListEvents(limit int) ([]Event, error) {
	rows, err := s.db.Query(
		`SELECT session_id, event_type, detail, created_at
		 FROM engine_events ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		var sessionID, detail sql.NullString
		var createdStr string
		if err := rows.Scan(&sessionID, &ev.Type, &detail, &createdStr); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.SessionID = sessionID.String
		ev.Detail = detail.String
		ev.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// #endregion event-log

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
// #endregion helpers
