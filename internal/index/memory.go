package index

import (
	"bytes"
	"sync"
)

// MemoryStore keeps an encoded snapshot in memory. Loads return an
// independent copy, so callers never share state with the store.
type MemoryStore struct {
	mu       sync.RWMutex
	snapshot []byte
	saves    int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load() (*Index, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.snapshot == nil {
		return New(), nil
	}
	return Decode(bytes.NewReader(s.snapshot), nil)
}

func (s *MemoryStore) Save(idx *Index) error {
	var buf bytes.Buffer
	if err := Encode(&buf, idx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = buf.Bytes()
	s.saves++
	return nil
}

// Saves returns how many times Save succeeded.
func (s *MemoryStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}
