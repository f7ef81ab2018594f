// Package storage provides in-memory usage storage.
//
// Information Hiding:
// - Slice storage structure hidden from users
// - Thread-safe access via RWMutex hidden behind interface
// - Suitable for testing and ephemeral runs

package storage

import (
	"context"
	"sync"
	"time"
)

// InMemoryStorage implements UsageSink using an in-memory slice.
// Data is lost when process terminates.
type InMemoryStorage struct {
	mu      sync.RWMutex
	records []UsageRecord
	now     Clock
}

// NewInMemoryStorage creates a new in-memory storage. A nil clock means
// time.Now.
func NewInMemoryStorage(now Clock) *InMemoryStorage {
	if now == nil {
		now = time.Now
	}
	return &InMemoryStorage{now: now}
}

// Record appends one usage record.
func (s *InMemoryStorage) Record(_ context.Context, rec UsageRecord) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = s.now()
	}
	// Same precision as the SQLite sink.
	rec.Timestamp = rec.Timestamp.UTC().Truncate(time.Millisecond)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

// Count returns the number of records within the trailing window.
func (s *InMemoryStorage) Count(_ context.Context, window time.Duration) (int64, error) {
	var n int64
	s.each(window, func(UsageRecord) { n++ })
	return n, nil
}

// TokenSum returns the total tokens within the trailing window.
func (s *InMemoryStorage) TokenSum(_ context.Context, window time.Duration) (int64, error) {
	var sum int64
	s.each(window, func(r UsageRecord) { sum += r.TotalTokens })
	return sum, nil
}

// Records returns a copy of all records.
func (s *InMemoryStorage) Records() []UsageRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	copied := make([]UsageRecord, len(s.records))
	copy(copied, s.records)
	return copied
}

func (s *InMemoryStorage) each(window time.Duration, fn func(UsageRecord)) {
	cutoff := s.now().UTC().Add(-window).Truncate(time.Millisecond)

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records {
		if !r.Timestamp.Before(cutoff) {
			fn(r)
		}
	}
}

// Verify InMemoryStorage implements UsageSink
var _ UsageSink = (*InMemoryStorage)(nil)
