package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStoreCommitIsDurable(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "state.db")

	st, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)

	require.NoError(t, st.Put("app_usage", "com.example_usage_2026-08-27", []byte("42")))
	require.True(t, st.Commit("app_usage"))
	require.NoError(t, st.Close())

	// A committed write must survive reopening the database.
	st2, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer st2.Close()

	value, ok, err := st2.Get("app_usage", "com.example_usage_2026-08-27")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("42"), value)
}

func TestSQLiteStoreUncommittedWritesNotDurable(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "state.db")

	st, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)

	require.NoError(t, st.Put("app_usage", "pending", []byte("1")))
	// Staged writes are visible to the writer before commit.
	_, ok, err := st.Get("app_usage", "pending")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, st.Close())

	st2, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer st2.Close()

	_, ok, err = st2.Get("app_usage", "pending")
	require.NoError(t, err)
	assert.False(t, ok, "uncommitted write must not survive restart")
}

func TestSQLiteStoreRemoveAndCommit(t *testing.T) {
	st, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer st.Close()

	require.NoError(t, st.Put("ns", "a", []byte("1")))
	require.True(t, st.Commit("ns"))

	require.NoError(t, st.Remove("ns", "a"))
	// Staged deletion hides the key from the writer immediately.
	_, ok, err := st.Get("ns", "a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.True(t, st.Commit("ns"))
	_, ok, err = st.Get("ns", "a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteStoreClearNamespaceIsolation(t *testing.T) {
	st, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer st.Close()

	require.NoError(t, st.Put("usage", "k", []byte("1")))
	require.NoError(t, st.Put("device", "device_id", []byte(`"abc"`)))
	require.True(t, st.Commit("usage"))
	require.True(t, st.Commit("device"))

	require.NoError(t, st.Clear("usage"))

	_, ok, err := st.Get("usage", "k")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = st.Get("device", "device_id")
	require.NoError(t, err)
	assert.True(t, ok, "clearing one namespace must not touch another")
}

func TestSQLiteStoreKeysIncludeStaged(t *testing.T) {
	st, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer st.Close()

	require.NoError(t, st.Put("ns", "committed", []byte("1")))
	require.True(t, st.Commit("ns"))
	require.NoError(t, st.Put("ns", "staged", []byte("2")))
	require.NoError(t, st.Remove("ns", "committed"))

	keys, err := st.Keys("ns")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"staged"}, keys)
}

func TestTypedAccessorsRoundTrip(t *testing.T) {
	st, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer st.Close()

	require.NoError(t, PutInt(st, "ns", "int", 42))
	require.NoError(t, PutBool(st, "ns", "bool", true))
	require.NoError(t, PutString(st, "ns", "str", "hello"))
	require.NoError(t, PutInt64s(st, "ns", "seq", []int64{1, 2, 3}))
	require.NoError(t, PutStrings(st, "ns", "set", []string{"a", "b"}))
	require.True(t, st.Commit("ns"))

	assert.Equal(t, 42, GetInt(st, "ns", "int", 0))
	assert.Equal(t, true, GetBool(st, "ns", "bool", false))
	assert.Equal(t, "hello", GetString(st, "ns", "str", ""))
	assert.Equal(t, []int64{1, 2, 3}, GetInt64s(st, "ns", "seq"))
	assert.Equal(t, []string{"a", "b"}, GetStrings(st, "ns", "set"))

	// Missing keys answer the default.
	assert.Equal(t, 7, GetInt(st, "ns", "absent", 7))
	assert.Equal(t, "d", GetString(st, "other", "absent", "d"))
}
