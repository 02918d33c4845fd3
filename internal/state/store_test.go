package state

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huereka/huereka/internal/db"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	conn, err := db.Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewStore(conn.DB)
}

func TestStorePutBumpsVersion(t *testing.T) {
	s := openStore(t)

	payload, version, err := s.Get("profile", "warm")
	require.NoError(t, err)
	assert.Nil(t, payload)
	assert.Zero(t, version)

	v, err := s.Put("profile", "warm", []byte(`{"a":1}`))
	require.NoError(t, err)
	assert.EqualValues(t, 1, v)

	v, err = s.Put("profile", "warm", []byte(`{"a":2}`))
	require.NoError(t, err)
	assert.EqualValues(t, 2, v)

	payload, version, err = s.Get("profile", "warm")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":2}`, string(payload))
	assert.EqualValues(t, 2, version)
}

func TestStoreKindsAreSeparate(t *testing.T) {
	s := openStore(t)
	_, err := s.Put("profile", "x", []byte(`1`))
	require.NoError(t, err)
	_, err = s.Put("schedule", "x", []byte(`2`))
	require.NoError(t, err)

	records, err := s.List("profile")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "1", string(records[0].Payload))

	existed, err := s.Delete("profile", "x")
	require.NoError(t, err)
	assert.True(t, existed)
	existed, err = s.Delete("profile", "x")
	require.NoError(t, err)
	assert.False(t, existed)

	payload, _, err := s.Get("schedule", "x")
	require.NoError(t, err)
	assert.Equal(t, "2", string(payload))
}

type doc struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestTypedRoundTrip(t *testing.T) {
	typed := NewTyped[doc](openStore(t), "doc")
	assert.Equal(t, "doc", typed.Kind())

	_, ok, err := typed.Get("one")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = typed.Put("one", doc{Name: "one", Count: 1})
	require.NoError(t, err)
	version, err := typed.Put("one", doc{Name: "one", Count: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 2, version)
	_, err = typed.Put("two", doc{Name: "two"})
	require.NoError(t, err)

	got, ok, err := typed.Get("one")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, doc{Name: "one", Count: 2}, got)

	all, err := typed.All()
	require.NoError(t, err)
	assert.Equal(t, []doc{{Name: "one", Count: 2}, {Name: "two"}}, all)

	existed, err := typed.Delete("two")
	require.NoError(t, err)
	assert.True(t, existed)
}
