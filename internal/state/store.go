// Package state persists versioned JSON documents in SQLite. The catalog
// keeps profiles and schedules here and managers record what they last
// applied.
package state

import (
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Store holds JSON payloads keyed by (kind, id). Every write bumps the
// row's version.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewStore wraps an open database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Get returns the payload and version for (kind, id), or nil and 0 when
// absent.
func (s *Store) Get(kind, id string) ([]byte, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var payload string
	var version int64
	err := s.db.QueryRow(`
		SELECT payload, version FROM resource_state
		WHERE kind = ? AND id = ?
	`, kind, id).Scan(&payload, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}
	return []byte(payload), version, nil
}

// Put inserts or replaces the payload and returns the new version.
func (s *Store) Put(kind, id string, payload []byte) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var version int64
	err := s.db.QueryRow(`
		INSERT INTO resource_state (kind, id, payload, version, updated_at)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT(kind, id) DO UPDATE SET
			payload = excluded.payload,
			version = version + 1,
			updated_at = excluded.updated_at
		RETURNING version
	`, kind, id, string(payload), time.Now().UTC().Unix()).Scan(&version)
	if err != nil {
		return 0, err
	}

	log.Debug().Str("kind", kind).Str("id", id).Int64("version", version).Msg("State stored")
	return version, nil
}

// Delete removes (kind, id) and reports whether it existed.
func (s *Store) Delete(kind, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM resource_state WHERE kind = ? AND id = ?`, kind, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// List returns every payload of kind ordered by id.
func (s *Store) List(kind string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, payload, version, updated_at FROM resource_state
		WHERE kind = ? ORDER BY id
	`, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var payload string
		var updated int64
		if err := rows.Scan(&r.ID, &payload, &r.Version, &updated); err != nil {
			return nil, err
		}
		r.Payload = []byte(payload)
		r.UpdatedAt = time.Unix(updated, 0).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// Record is one stored row.
type Record struct {
	ID        string
	Payload   []byte
	Version   int64
	UpdatedAt time.Time
}
