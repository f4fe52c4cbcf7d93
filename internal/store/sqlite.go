package store

import (
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/yamakit/timekeeper/internal/util"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv (
    namespace TEXT NOT NULL,
    key       TEXT NOT NULL,
    value     BLOB NOT NULL,
    PRIMARY KEY (namespace, key)
);
`

// SQLiteStore implements Store on a single kv table. Writes are staged in
// memory per namespace and flushed in one transaction on Commit, which is
// the durability point the rest of the system relies on.
type SQLiteStore struct {
	db *sql.DB

	mu sync.Mutex
	// pending staged writes per namespace; a nil value marks a deletion.
	pending map[string]map[string][]byte
	deleted map[string]map[string]bool
}

// NewSQLiteStore opens (or creates) the database at dbPath.
// Use ":memory:" for throwaway databases in tests.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only allows one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:      db,
		pending: make(map[string]map[string][]byte),
		deleted: make(map[string]map[string]bool),
	}, nil
}

func (s *SQLiteStore) Get(namespace, key string) ([]byte, bool, error) {
	s.mu.Lock()
	if s.deleted[namespace][key] {
		s.mu.Unlock()
		return nil, false, nil
	}
	if v, ok := s.pending[namespace][key]; ok {
		s.mu.Unlock()
		return v, true, nil
	}
	s.mu.Unlock()

	var value []byte
	err := s.db.QueryRow(
		"SELECT value FROM kv WHERE namespace = ? AND key = ?",
		namespace, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s/%s: %w", namespace, key, err)
	}
	return value, true, nil
}

func (s *SQLiteStore) Put(namespace, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending[namespace] == nil {
		s.pending[namespace] = make(map[string][]byte)
	}
	s.pending[namespace][key] = value
	delete(s.deleted[namespace], key)
	return nil
}

func (s *SQLiteStore) Remove(namespace, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.pending[namespace], key)
	if s.deleted[namespace] == nil {
		s.deleted[namespace] = make(map[string]bool)
	}
	s.deleted[namespace][key] = true
	return nil
}

// Commit flushes all staged writes and deletions for the namespace in one
// transaction. Returns false on failure; staged changes are kept so a later
// Commit can retry.
func (s *SQLiteStore) Commit(namespace string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	puts := s.pending[namespace]
	dels := s.deleted[namespace]
	if len(puts) == 0 && len(dels) == 0 {
		return true
	}

	tx, err := s.db.Begin()
	if err != nil {
		util.LogErrorf("store: begin commit for %s failed: %v", namespace, err)
		return false
	}

	for key, value := range puts {
		if _, err := tx.Exec(
			"INSERT OR REPLACE INTO kv (namespace, key, value) VALUES (?, ?, ?)",
			namespace, key, value,
		); err != nil {
			tx.Rollback()
			util.LogErrorf("store: commit write %s/%s failed: %v", namespace, key, err)
			return false
		}
	}
	for key := range dels {
		if _, err := tx.Exec(
			"DELETE FROM kv WHERE namespace = ? AND key = ?",
			namespace, key,
		); err != nil {
			tx.Rollback()
			util.LogErrorf("store: commit delete %s/%s failed: %v", namespace, key, err)
			return false
		}
	}

	if err := tx.Commit(); err != nil {
		util.LogErrorf("store: commit %s failed: %v", namespace, err)
		return false
	}

	delete(s.pending, namespace)
	delete(s.deleted, namespace)
	return true
}

func (s *SQLiteStore) Clear(namespace string) error {
	s.mu.Lock()
	delete(s.pending, namespace)
	delete(s.deleted, namespace)
	s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM kv WHERE namespace = ?", namespace); err != nil {
		return fmt.Errorf("failed to clear namespace %s: %w", namespace, err)
	}
	return nil
}

func (s *SQLiteStore) Keys(namespace string) ([]string, error) {
	rows, err := s.db.Query(
		"SELECT key FROM kv WHERE namespace = ? ORDER BY key",
		namespace,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys in %s: %w", namespace, err)
	}
	defer rows.Close()

	seen := make(map[string]bool)
	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		seen[key] = true
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Staged writes are part of the writer's view.
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.pending[namespace] {
		if !seen[key] {
			keys = append(keys, key)
		}
	}
	if dels := s.deleted[namespace]; len(dels) > 0 {
		filtered := keys[:0]
		for _, key := range keys {
			if !dels[key] {
				filtered = append(filtered, key)
			}
		}
		keys = filtered
	}
	return keys, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
