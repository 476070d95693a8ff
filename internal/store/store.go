// Package store accumulates timestamped motion samples for one capture
// session.
package store

import (
	"sync"
	"time"

	"github.com/phinze/rawdelta/internal/rawinput"
)

// DefaultCapacity is the number of samples pre-allocated per session.
const DefaultCapacity = 10000

// Sample is one motion event stamped with the time it was received.
type Sample struct {
	// T is microseconds since the session started.
	T  int64 `json:"t"`
	DX int32 `json:"dx"`
	DY int32 `json:"dy"`
}

// Store is a mutex guarded sequence of samples. The lock is held only for
// the duration of a single push, drain or restart.
type Store struct {
	mu       sync.Mutex
	samples  []Sample
	start    time.Time
	now      func() time.Time
	capacity int
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now. The clock should carry a monotonic reading.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithCapacity sets the pre-allocated sample capacity.
func WithCapacity(n int) Option {
	return func(s *Store) {
		if n >= 0 {
			s.capacity = n
		}
	}
}

// New creates a store whose session starts now.
func New(opts ...Option) *Store {
	s := &Store{
		now:      time.Now,
		capacity: DefaultCapacity,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.samples = make([]Sample, 0, s.capacity)
	s.start = s.now()
	return s
}

// Push stamps ev with the elapsed session time and appends it.
func (s *Store) Push(ev rawinput.Event) Sample {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.now().Sub(s.start).Microseconds()
	if t < 0 {
		t = 0
	}
	sample := Sample{T: t, DX: ev.DX, DY: ev.DY}
	s.samples = append(s.samples, sample)
	return sample
}

// Drain returns every sample accumulated since the last drain or restart
// and clears the store. The returned slice belongs to the caller.
func (s *Store) Drain() []Sample {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.samples
	s.samples = make([]Sample, 0, s.capacity)
	return out
}

// Restart clears all samples and starts a new session.
func (s *Store) Restart() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.samples = make([]Sample, 0, s.capacity)
	s.start = s.now()
}

// StartTime returns the time the current session started.
func (s *Store) StartTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.start
}

// Len returns the number of samples waiting to be drained.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.samples)
}
