// Package ledger keeps an append-only history of what each strip manager
// was asked to show and whether the push reached the device.
package ledger

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// EventType is the kind of ledger entry.
type EventType string

const (
	EventScheduleResolved EventType = "schedule_resolved"
	EventProfileApplied   EventType = "profile_applied"
	EventPushFailed       EventType = "push_failed"
)

// Entry is a single ledger row.
type Entry struct {
	ID        int64
	EventType EventType
	Timestamp time.Time
	Manager   string
	Schedule  string
	Routine   string
	Profile   string
	Payload   map[string]any
}

// Ledger appends and queries activation history.
type Ledger struct {
	db  *sql.DB
	now func() time.Time
}

// New creates a Ledger using the provided database connection.
func New(db *sql.DB) *Ledger {
	return &Ledger{db: db, now: time.Now}
}

// Append records e. A zero Timestamp is replaced with the current time.
func (l *Ledger) Append(e Entry) error {
	var payloadJSON []byte
	if e.Payload != nil {
		var err error
		payloadJSON, err = json.Marshal(e.Payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
	}

	ts := e.Timestamp
	if ts.IsZero() {
		ts = l.now()
	}

	_, err := l.db.Exec(`
		INSERT INTO activation_ledger (event_type, timestamp, manager, schedule, routine, profile, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, string(e.EventType), ts.UTC().UnixMilli(), e.Manager, e.Schedule, e.Routine, e.Profile, string(payloadJSON))
	return err
}

// Last returns the newest entry of eventType for manager. ok is false
// when there is none.
func (l *Ledger) Last(manager string, eventType EventType) (*Entry, bool, error) {
	rows, err := l.db.Query(`
		SELECT id, event_type, timestamp, manager, schedule, routine, profile, payload
		FROM activation_ledger
		WHERE manager = ? AND event_type = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT 1
	`, manager, string(eventType))
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil || len(entries) == 0 {
		return nil, false, err
	}
	return entries[0], true, nil
}

// GetByManager returns the newest entries for manager, newest first.
func (l *Ledger) GetByManager(manager string, limit int) ([]*Entry, error) {
	rows, err := l.db.Query(`
		SELECT id, event_type, timestamp, manager, schedule, routine, profile, payload
		FROM activation_ledger
		WHERE manager = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, manager, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

// GetByTimeRange returns entries within [start, end], newest first.
func (l *Ledger) GetByTimeRange(start, end time.Time, limit int) ([]*Entry, error) {
	rows, err := l.db.Query(`
		SELECT id, event_type, timestamp, manager, schedule, routine, profile, payload
		FROM activation_ledger
		WHERE timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, start.UTC().UnixMilli(), end.UTC().UnixMilli(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

// DeleteOlderThan removes entries older than the cutoff and returns how
// many were removed.
func (l *Ledger) DeleteOlderThan(cutoff time.Time) (int64, error) {
	res, err := l.db.Exec(`DELETE FROM activation_ledger WHERE timestamp < ?`, cutoff.UTC().UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanEntries(rows *sql.Rows) ([]*Entry, error) {
	var entries []*Entry
	for rows.Next() {
		var e Entry
		var eventType string
		var ts int64
		var schedule, routine, profile, payload sql.NullString

		if err := rows.Scan(&e.ID, &eventType, &ts, &e.Manager, &schedule, &routine, &profile, &payload); err != nil {
			return nil, err
		}

		e.EventType = EventType(eventType)
		e.Timestamp = time.UnixMilli(ts).UTC()
		e.Schedule = schedule.String
		e.Routine = routine.String
		e.Profile = profile.String

		if payload.Valid && payload.String != "" {
			if err := json.Unmarshal([]byte(payload.String), &e.Payload); err != nil {
				return nil, errors.Join(fmt.Errorf("entry %d: bad payload", e.ID), err)
			}
		}

		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
