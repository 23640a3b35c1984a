package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/banshee-data/assembly.report/internal/events"
	"github.com/banshee-data/assembly.report/internal/monitoring"
	"github.com/banshee-data/assembly.report/internal/timeutil"
)

// ErrSessionNotFound is returned for unknown session ids.
var ErrSessionNotFound = errors.New("session not found")

// Session is one detection run over a frame source.
type Session struct {
	ID           string         `json:"session_id"`
	Source       string         `json:"source"`
	FPS          float64        `json:"fps"`
	CreatedUnix  float64        `json:"created_unix"`
	FinishedUnix *float64       `json:"finished_unix,omitempty"`
	Frames       int64          `json:"frames"`
	ConfigJSON   string         `json:"-"`
	EventCounts  map[string]int `json:"event_counts"`
}

// Finished reports whether FinishSession has been called.
func (s Session) Finished() bool { return s.FinishedUnix != nil }

// CreateSession registers a new session and returns it with a fresh id.
// configJSON is the detector configuration the run uses; empty means "{}".
func (db *DB) CreateSession(source string, fps float64, configJSON string) (*Session, error) {
	if fps <= 0 {
		return nil, fmt.Errorf("session fps must be positive, got %v", fps)
	}
	if configJSON == "" {
		configJSON = "{}"
	}
	s := &Session{
		ID:          uuid.NewString(),
		Source:      source,
		FPS:         fps,
		CreatedUnix: timeutil.UnixSeconds(db.clock.Now()),
		ConfigJSON:  configJSON,
		EventCounts: emptyCounts(),
	}
	_, err := db.Exec(
		`INSERT INTO sessions (session_id, source, fps, created_unix, config_json) VALUES (?, ?, ?, ?, ?)`,
		s.ID, s.Source, s.FPS, s.CreatedUnix, s.ConfigJSON,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return s, nil
}

// RecordEvents appends committed events to a session in the given order.
func (db *DB) RecordEvents(sessionID string, records []events.Record) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := sessionExists(tx, sessionID); err != nil {
		return err
	}

	var next int64
	if err := tx.QueryRow(
		`SELECT COALESCE(MAX(seq) + 1, 0) FROM session_events WHERE session_id = ?`, sessionID,
	).Scan(&next); err != nil {
		return fmt.Errorf("failed to read event sequence: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO session_events (session_id, seq, kind, timestamp_s) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare event insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range records {
		if !r.Kind.Valid() {
			return fmt.Errorf("record %d: invalid event kind %d", i, r.Kind)
		}
		if _, err := stmt.Exec(sessionID, next+int64(i), r.Kind.String(), r.Timestamp); err != nil {
			return fmt.Errorf("failed to insert event %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit events: %w", err)
	}
	return nil
}

// FinishSession stamps the session as complete after frames frames.
func (db *DB) FinishSession(sessionID string, frames int64) error {
	res, err := db.Exec(
		`UPDATE sessions SET finished_unix = ?, frames = ? WHERE session_id = ?`,
		timeutil.UnixSeconds(db.clock.Now()), frames, sessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish session: %w", err)
	}
	return requireOneRow(res, sessionID)
}

// GetSession returns one session with its event counts.
func (db *DB) GetSession(sessionID string) (*Session, error) {
	var s Session
	var finished sql.NullFloat64
	err := db.QueryRow(
		`SELECT session_id, source, fps, created_unix, finished_unix, frames, config_json
		 FROM sessions WHERE session_id = ?`, sessionID,
	).Scan(&s.ID, &s.Source, &s.FPS, &s.CreatedUnix, &finished, &s.Frames, &s.ConfigJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if finished.Valid {
		s.FinishedUnix = &finished.Float64
	}

	counts, err := db.eventCounts(sessionID)
	if err != nil {
		return nil, err
	}
	s.EventCounts = counts[sessionID]
	if s.EventCounts == nil {
		s.EventCounts = emptyCounts()
	}
	return &s, nil
}

// ListSessions returns every session, newest first.
func (db *DB) ListSessions() ([]Session, error) {
	rows, err := db.Query(
		`SELECT session_id, source, fps, created_unix, finished_unix, frames, config_json
		 FROM sessions ORDER BY created_unix DESC, session_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var s Session
		var finished sql.NullFloat64
		if err := rows.Scan(&s.ID, &s.Source, &s.FPS, &s.CreatedUnix, &finished, &s.Frames, &s.ConfigJSON); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		if finished.Valid {
			v := finished.Float64
			s.FinishedUnix = &v
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	counts, err := db.eventCounts("")
	if err != nil {
		return nil, err
	}
	for i := range sessions {
		sessions[i].EventCounts = counts[sessions[i].ID]
		if sessions[i].EventCounts == nil {
			sessions[i].EventCounts = emptyCounts()
		}
	}
	return sessions, nil
}

// eventCounts groups event counts per session; an empty id selects all.
func (db *DB) eventCounts(sessionID string) (map[string]map[string]int, error) {
	rows, err := db.Query(
		`SELECT session_id, kind, COUNT(*) FROM session_events
		 WHERE ? = '' OR session_id = ?
		 GROUP BY session_id, kind`, sessionID, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count events: %w", err)
	}
	defer rows.Close()

	out := make(map[string]map[string]int)
	for rows.Next() {
		var id, kind string
		var n int
		if err := rows.Scan(&id, &kind, &n); err != nil {
			return nil, fmt.Errorf("failed to scan event count: %w", err)
		}
		if out[id] == nil {
			out[id] = emptyCounts()
		}
		out[id][kind] = n
	}
	return out, rows.Err()
}

// SessionLog rebuilds the event log of a session. Stored events that break
// per-kind ordering are reported as events.ErrMalformedLog.
func (db *DB) SessionLog(sessionID string) (*events.Log, error) {
	if err := sessionExists(db, sessionID); err != nil {
		return nil, err
	}

	rows, err := db.Query(
		`SELECT kind, timestamp_s FROM session_events WHERE session_id = ? ORDER BY seq`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}
	defer rows.Close()

	var records []events.Record
	for rows.Next() {
		var kindName string
		var r events.Record
		if err := rows.Scan(&kindName, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if r.Kind, err = events.ParseKind(kindName); err != nil {
			return nil, fmt.Errorf("%w: %v", events.ErrMalformedLog, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}

	l, err := events.FromRecords(records)
	if err != nil {
		return nil, fmt.Errorf("%w: session %s: %v", events.ErrMalformedLog, sessionID, err)
	}
	return l, nil
}

// DeleteSession removes a session and its events.
func (db *DB) DeleteSession(sessionID string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM session_events WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to delete events: %w", err)
	}
	res, err := tx.Exec(`DELETE FROM sessions WHERE session_id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if err := requireOneRow(res, sessionID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	monitoring.Logf("deleted session %s", sessionID)
	return nil
}

type queryRower interface {
	QueryRow(query string, args ...any) *sql.Row
}

func sessionExists(q queryRower, sessionID string) error {
	var one int
	err := q.QueryRow(`SELECT 1 FROM sessions WHERE session_id = ?`, sessionID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return fmt.Errorf("failed to look up session: %w", err)
	}
	return nil
}

func requireOneRow(res sql.Result, sessionID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return nil
}

func emptyCounts() map[string]int {
	out := make(map[string]int, events.NumKinds)
	for _, k := range events.AllKinds() {
		out[k.String()] = 0
	}
	return out
}
