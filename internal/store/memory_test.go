package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreCommitSplit(t *testing.T) {
	st := NewMemoryStore()

	require.NoError(t, st.Put("ns", "k", []byte("v")))
	_, ok, err := st.Get("ns", "k")
	require.NoError(t, err)
	assert.True(t, ok, "staged write visible to writer")

	require.True(t, st.Commit("ns"))
	assert.Equal(t, 1, st.CommitCount)

	require.NoError(t, st.Remove("ns", "k"))
	_, ok, _ = st.Get("ns", "k")
	assert.False(t, ok)
	require.True(t, st.Commit("ns"))
}

func TestMemoryStoreFailureInjection(t *testing.T) {
	st := NewMemoryStore()
	require.NoError(t, st.Put("ns", "k", []byte("v")))
	require.True(t, st.Commit("ns"))

	st.FailReads = true
	_, _, err := st.Get("ns", "k")
	assert.Error(t, err)
	st.FailReads = false

	st.FailWrites = true
	assert.Error(t, st.Put("ns", "k2", []byte("v")))
	assert.Error(t, st.Remove("ns", "k"))
	st.FailWrites = false

	st.FailCommit = true
	require.NoError(t, st.Put("ns", "k3", []byte("v")))
	assert.False(t, st.Commit("ns"))
	st.FailCommit = false
	// Staged change is kept for a later retry.
	assert.True(t, st.Commit("ns"))
	_, ok, err := st.Get("ns", "k3")
	require.NoError(t, err)
	assert.True(t, ok)

	st.FailClear["ns"] = true
	assert.Error(t, st.Clear("ns"))
	delete(st.FailClear, "ns")
	assert.NoError(t, st.Clear("ns"))
}

func TestMemoryStoreKeys(t *testing.T) {
	st := NewMemoryStore()
	require.NoError(t, st.Put("ns", "b", []byte("1")))
	require.NoError(t, st.Put("ns", "a", []byte("2")))
	require.True(t, st.Commit("ns"))
	require.NoError(t, st.Put("ns", "c", []byte("3")))
	require.NoError(t, st.Remove("ns", "b"))

	keys, err := st.Keys("ns")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, keys)
}
