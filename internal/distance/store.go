// v0
// internal/distance/store.go
package distance

import (
	"sync"
	"time"
)

// Store keeps the most recent reading. It plays the role of the two sensor
// globals on the board: writers overwrite, readers always get the latest
// complete pair.
type Store struct {
	mu        sync.RWMutex
	latest    Reading
	updatedAt time.Time
	now       func() time.Time
}

// NewStore returns an empty store; Latest is Zero until the first Set.
func NewStore() *Store {
	return &Store{now: time.Now}
}

// Set validates and stores r. The previous value is kept on error.
func (s *Store) Set(r Reading) error {
	if err := r.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = r
	s.updatedAt = s.now()
	return nil
}

// Latest returns the most recent valid reading.
func (s *Store) Latest() Reading {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// UpdatedAt is zero until the first successful Set.
func (s *Store) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}
