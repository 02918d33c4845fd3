package state

import (
	"encoding/json"
	"fmt"
)

// Typed stores values of T as JSON under one kind.
type Typed[T any] struct {
	store *Store
	kind  string
}

// NewTyped binds T to kind.
func NewTyped[T any](store *Store, kind string) *Typed[T] {
	return &Typed[T]{store: store, kind: kind}
}

// Kind returns the kind this store writes.
func (t *Typed[T]) Kind() string { return t.kind }

// Get decodes the value for id. ok is false when absent.
func (t *Typed[T]) Get(id string) (value T, ok bool, err error) {
	payload, _, err := t.store.Get(t.kind, id)
	if err != nil || payload == nil {
		return value, false, err
	}
	if err := json.Unmarshal(payload, &value); err != nil {
		return value, false, fmt.Errorf("failed to unmarshal %s %s: %w", t.kind, id, err)
	}
	return value, true, nil
}

// Put encodes and stores value.
func (t *Typed[T]) Put(id string, value T) (int64, error) {
	payload, err := json.Marshal(value)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal %s %s: %w", t.kind, id, err)
	}
	return t.store.Put(t.kind, id, payload)
}

// Delete removes id and reports whether it existed.
func (t *Typed[T]) Delete(id string) (bool, error) {
	return t.store.Delete(t.kind, id)
}

// All decodes every value of the kind, ordered by id.
func (t *Typed[T]) All() ([]T, error) {
	records, err := t.store.List(t.kind)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(records))
	for _, r := range records {
		var v T
		if err := json.Unmarshal(r.Payload, &v); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s %s: %w", t.kind, r.ID, err)
		}
		out = append(out, v)
	}
	return out, nil
}
