// Package history keeps a bounded log of catalog entry changes and fans
// them out to listeners.
package history

import (
	"sync"
	"time"

	"github.com/GriffinCanCode/platescan/internal/catalog"
)

// Record is one confirmed entry change.
type Record struct {
	Timestamp time.Time     `json:"timestamp"`
	Entry     catalog.Entry `json:"entry"`
	Raw       string        `json:"raw"`
}

// Store interface for history operations.
type Store interface {
	Add(entry catalog.Entry, raw string) Record
	Recent(n int) []Record
	Events() <-chan Record
	Emit(r Record)
}

// MemoryStore is an in-memory ring of the most recent records.
type MemoryStore struct {
	mu       sync.RWMutex
	records  []Record
	maxSize  int
	eventsCh chan Record
	now      func() time.Time
}

// NewStore creates a store holding at most maxRecords.
func NewStore(maxRecords, eventBuffer int) *MemoryStore {
	if maxRecords <= 0 {
		maxRecords = 1
	}
	return &MemoryStore{
		records:  make([]Record, 0, maxRecords),
		maxSize:  maxRecords,
		eventsCh: make(chan Record, eventBuffer),
		now:      time.Now,
	}
}

// Add appends a record and returns it.
func (s *MemoryStore) Add(entry catalog.Entry, raw string) Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := Record{Timestamp: s.now(), Entry: entry, Raw: raw}
	s.records = append(s.records, r)
	if len(s.records) > s.maxSize {
		s.records = s.records[len(s.records)-s.maxSize:]
	}
	return r
}

// Recent returns up to n records, newest first. n <= 0 returns all.
func (s *MemoryStore) Recent(n int) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 || n > len(s.records) {
		n = len(s.records)
	}
	out := make([]Record, 0, n)
	for i := len(s.records) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.records[i])
	}
	return out
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Events returns the channel for change events.
func (s *MemoryStore) Events() <-chan Record {
	return s.eventsCh
}

// Emit sends a change event (non-blocking).
func (s *MemoryStore) Emit(r Record) {
	select {
	case s.eventsCh <- r:
	default:
	}
}
