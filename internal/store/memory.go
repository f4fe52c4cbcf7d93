package store

import (
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store used by tests and by the dry-run mode of
// the CLI. It keeps the same staged-write/commit split as SQLiteStore and
// adds failure injection so fail-open paths can be exercised.
type MemoryStore struct {
	mu        sync.Mutex
	committed map[string]map[string][]byte
	pending   map[string]map[string][]byte
	deleted   map[string]map[string]bool

	// Failure injection for tests.
	FailReads   bool
	FailWrites  bool
	FailCommit  bool
	FailClear   map[string]bool // per-namespace
	CommitCount int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		committed: make(map[string]map[string][]byte),
		pending:   make(map[string]map[string][]byte),
		deleted:   make(map[string]map[string]bool),
		FailClear: make(map[string]bool),
	}
}

func (s *MemoryStore) Get(namespace, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailReads {
		return nil, false, fmt.Errorf("injected read failure for %s/%s", namespace, key)
	}
	if s.deleted[namespace][key] {
		return nil, false, nil
	}
	if v, ok := s.pending[namespace][key]; ok {
		return v, true, nil
	}
	v, ok := s.committed[namespace][key]
	return v, ok, nil
}

func (s *MemoryStore) Put(namespace, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailWrites {
		return fmt.Errorf("injected write failure for %s/%s", namespace, key)
	}
	if s.pending[namespace] == nil {
		s.pending[namespace] = make(map[string][]byte)
	}
	s.pending[namespace][key] = value
	delete(s.deleted[namespace], key)
	return nil
}

func (s *MemoryStore) Remove(namespace, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailWrites {
		return fmt.Errorf("injected write failure for %s/%s", namespace, key)
	}
	delete(s.pending[namespace], key)
	if s.deleted[namespace] == nil {
		s.deleted[namespace] = make(map[string]bool)
	}
	s.deleted[namespace][key] = true
	return nil
}

func (s *MemoryStore) Commit(namespace string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailCommit {
		return false
	}
	if s.committed[namespace] == nil {
		s.committed[namespace] = make(map[string][]byte)
	}
	for key, value := range s.pending[namespace] {
		s.committed[namespace][key] = value
	}
	for key := range s.deleted[namespace] {
		delete(s.committed[namespace], key)
	}
	delete(s.pending, namespace)
	delete(s.deleted, namespace)
	s.CommitCount++
	return true
}

func (s *MemoryStore) Clear(namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailClear[namespace] {
		return fmt.Errorf("injected clear failure for %s", namespace)
	}
	delete(s.committed, namespace)
	delete(s.pending, namespace)
	delete(s.deleted, namespace)
	return nil
}

func (s *MemoryStore) Keys(namespace string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailReads {
		return nil, fmt.Errorf("injected read failure for namespace %s", namespace)
	}
	seen := make(map[string]bool)
	for key := range s.committed[namespace] {
		seen[key] = true
	}
	for key := range s.pending[namespace] {
		seen[key] = true
	}
	for key := range s.deleted[namespace] {
		delete(seen, key)
	}
	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
