// Package inmem provides the default in-memory conversation store.
// History is lost on process restart; this is by contract, not an oversight.
package inmem

import (
	"context"
	"sync"
	"time"

	"github.com/blueberrycongee/memgate/internal/memory"
	"github.com/blueberrycongee/memgate/pkg/types"
)

// Store is a thread-safe in-memory implementation of memory.Store.
type Store struct {
	mu      sync.RWMutex
	records map[string]*memory.Record
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		records: make(map[string]*memory.Record),
	}
}

func (s *Store) GetOrCreate(ctx context.Context, key string) ([]types.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.records[key]
	if !exists {
		return []types.Message{}, nil
	}
	return copyMessages(rec.Messages), nil
}

func (s *Store) Touch(ctx context.Context, key string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.records[key]
	if !exists {
		rec = &memory.Record{}
		s.records[key] = rec
	}
	rec.LastTouched = now
	return nil
}

func (s *Store) Commit(ctx context.Context, key string, history []types.Message, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[key] = &memory.Record{
		Messages:    copyMessages(history),
		LastTouched: now,
	}
	return nil
}

func (s *Store) ExpireStale(ctx context.Context, now time.Time, ttl time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expired := 0
	for key, rec := range s.records {
		if now.Sub(rec.LastTouched) > ttl {
			delete(s.records, key)
			expired++
		}
	}
	return expired, nil
}

func (s *Store) Clear(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

func (s *Store) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]*memory.Record)
	return nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

func (s *Store) Close() error {
	return s.ClearAll(context.Background())
}

// copyMessages isolates callers from internal state, the same way a real
// database round-trip would.
func copyMessages(src []types.Message) []types.Message {
	dst := make([]types.Message, len(src))
	copy(dst, src)
	return dst
}
