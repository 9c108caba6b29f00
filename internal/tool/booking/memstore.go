package booking

import (
	"context"
	"sync"
)

// MemStore keeps bookings in memory. Suitable for tests and for running the
// concierge without a database.
type MemStore struct {
	mu       sync.Mutex
	bookings []Booking
}

var _ Store = (*MemStore)(nil)

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{}
}

// Append implements Store.
func (s *MemStore) Append(_ context.Context, b Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookings = append(s.bookings, b)
	return nil
}

// List implements Store.
func (s *MemStore) List(context.Context) ([]Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Booking, len(s.bookings))
	copy(out, s.bookings)
	return out, nil
}
