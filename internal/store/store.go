package store

import (
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/yamakit/timekeeper/internal/util"
)

// Store is the durable key-value contract every component persists through.
// Values are opaque bytes grouped into namespaces; Put and Remove stage
// changes, Commit makes everything staged for a namespace durable in one
// step. A successful Commit must survive process restart.
type Store interface {
	// Get returns the value for (namespace, key). Staged but uncommitted
	// writes are visible to the writer.
	Get(namespace, key string) ([]byte, bool, error)
	// Put stages a value for (namespace, key).
	Put(namespace, key string, value []byte) error
	// Remove stages a deletion of (namespace, key).
	Remove(namespace, key string) error
	// Commit durably applies all staged changes for the namespace.
	Commit(namespace string) bool
	// Clear removes every key in the namespace, staged and committed.
	Clear(namespace string) error
	// Keys lists all keys present in the namespace.
	Keys(namespace string) ([]string, error)
	Close() error
}

// Typed accessors. Reads are fail-open: any storage or decode error is
// logged and answered with the caller's default, so enforcement decisions
// degrade to "no restriction" rather than locking the user out.

func GetInt(s Store, namespace, key string, def int) int {
	var v int
	if !getValue(s, namespace, key, &v) {
		return def
	}
	return v
}

func PutInt(s Store, namespace, key string, v int) error {
	return putValue(s, namespace, key, v)
}

func GetInt64(s Store, namespace, key string, def int64) int64 {
	var v int64
	if !getValue(s, namespace, key, &v) {
		return def
	}
	return v
}

func PutInt64(s Store, namespace, key string, v int64) error {
	return putValue(s, namespace, key, v)
}

func GetBool(s Store, namespace, key string, def bool) bool {
	var v bool
	if !getValue(s, namespace, key, &v) {
		return def
	}
	return v
}

func PutBool(s Store, namespace, key string, v bool) error {
	return putValue(s, namespace, key, v)
}

func GetString(s Store, namespace, key string, def string) string {
	var v string
	if !getValue(s, namespace, key, &v) {
		return def
	}
	return v
}

func PutString(s Store, namespace, key string, v string) error {
	return putValue(s, namespace, key, v)
}

// GetInt64s reads an ordered int64 sequence (heartbeat history).
func GetInt64s(s Store, namespace, key string) []int64 {
	var v []int64
	if !getValue(s, namespace, key, &v) {
		return nil
	}
	return v
}

// LoadInt64s is GetInt64s with the failure surfaced instead of folded into
// an empty result. Read-modify-write callers use this so a transient read
// failure cannot turn into a destructive overwrite.
func LoadInt64s(s Store, namespace, key string) ([]int64, error) {
	raw, ok, err := s.Get(namespace, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	var v []int64
	if err := sonic.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", namespace, key, err)
	}
	return v, nil
}

func PutInt64s(s Store, namespace, key string, v []int64) error {
	return putValue(s, namespace, key, v)
}

// GetStrings reads a string set (monitored package list).
func GetStrings(s Store, namespace, key string) []string {
	var v []string
	if !getValue(s, namespace, key, &v) {
		return nil
	}
	return v
}

func PutStrings(s Store, namespace, key string, v []string) error {
	return putValue(s, namespace, key, v)
}

func getValue(s Store, namespace, key string, out interface{}) bool {
	raw, ok, err := s.Get(namespace, key)
	if err != nil {
		util.LogWarnf("store: read %s/%s failed, using default: %v", namespace, key, err)
		return false
	}
	if !ok {
		return false
	}
	if err := sonic.Unmarshal(raw, out); err != nil {
		util.LogWarnf("store: decode %s/%s failed, using default: %v", namespace, key, err)
		return false
	}
	return true
}

func putValue(s Store, namespace, key string, v interface{}) error {
	raw, err := sonic.Marshal(v)
	if err != nil {
		return err
	}
	return s.Put(namespace, key, raw)
}
