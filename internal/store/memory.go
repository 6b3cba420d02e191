package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"weathercache/internal/models"
)

var errClosed = errors.New("store is closed")

// MemoryStore is a concurrency-safe in-process store. Records are kept
// encoded so callers never share memory with the map.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Get(ctx context.Context, key string) (*models.DailyRecord, bool, error) {
	start := time.Now()

	s.mu.RLock()
	data, ok := s.data[key]
	closed := s.closed
	s.mu.RUnlock()

	if closed {
		return nil, false, observe("get", "memory", key, start, errClosed)
	}
	if !ok {
		observe("get", "memory", key, start, nil)
		return nil, false, nil
	}

	record, err := decodeRecord(key, data)
	if err != nil {
		return nil, false, observe("get", "memory", key, start, err)
	}
	observe("get", "memory", key, start, nil)
	return record, true, nil
}

func (s *MemoryStore) Put(ctx context.Context, key string, record *models.DailyRecord) error {
	start := time.Now()

	data, err := encodeRecord(key, record)
	if err != nil {
		return observe("put", "memory", key, start, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return observe("put", "memory", key, start, errClosed)
	}
	s.data[key] = data
	return observe("put", "memory", key, start, nil)
}

func (s *MemoryStore) Delete(ctx context.Context, key string) (bool, error) {
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, observe("delete", "memory", key, start, errClosed)
	}
	_, ok := s.data[key]
	delete(s.data, key)
	observe("delete", "memory", key, start, nil)
	return ok, nil
}

// Len reports how many records are held
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.data = nil
	return nil
}
