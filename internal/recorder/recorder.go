// Package recorder owns the capture manager and the consumer goroutine that
// moves captured events into the sample store.
package recorder

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/phinze/rawdelta/internal/rawinput"
	"github.com/phinze/rawdelta/internal/store"
)

// Recorder starts capture on demand and keeps one consumer goroutine
// feeding the store.
type Recorder struct {
	store   *store.Store
	backend rawinput.Backend
	logger  *log.Logger
	buffer  int

	// mu guards the lifecycle fields below. It is never held while waiting
	// for an event.
	mu       sync.Mutex
	manager  *rawinput.Manager
	consumer chan struct{}
	lastErr  error
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithLogger sets the logger used by the recorder and its manager.
func WithLogger(l *log.Logger) Option {
	return func(r *Recorder) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithBuffer sets the capture manager's event buffer.
func WithBuffer(n int) Option {
	return func(r *Recorder) { r.buffer = n }
}

// New creates a recorder that pushes into st and captures from backend.
func New(st *store.Store, backend rawinput.Backend, opts ...Option) *Recorder {
	r := &Recorder{
		store:   st,
		backend: backend,
		logger:  log.Default(),
		buffer:  rawinput.DefaultBuffer,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Status describes the recorder at one point in time.
type Status struct {
	Running      bool      `json:"running"`
	State        string    `json:"state"`
	SessionStart time.Time `json:"session_start"`
	Pending      int       `json:"pending"`
	LastError    string    `json:"last_error,omitempty"`
}

// StartCapture starts the capture manager and the consumer goroutine if
// they are not already running. Calling it again while running is a no-op.
// If capture ended on its own it returns the terminal error until Stop is
// called.
func (r *Recorder) StartCapture() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.consumer != nil {
		select {
		case <-r.consumer:
			// Capture ended without Stop. It stays down until Stop is called
			// so a failure is reported rather than papered over.
			if r.lastErr != nil {
				return r.lastErr
			}
			return rawinput.ErrStopped
		default:
			return nil
		}
	}

	m, err := rawinput.Start(r.backend, rawinput.WithBuffer(r.buffer), rawinput.WithLogger(r.logger))
	if err != nil {
		r.lastErr = err
		return err
	}
	r.manager = m
	r.lastErr = nil
	r.consumer = make(chan struct{})
	go r.consume(m, r.consumer)

	r.logger.Println("recorder: capture started")
	return nil
}

func (r *Recorder) consume(m *rawinput.Manager, done chan struct{}) {
	ctx := context.Background()
	var err error
	for {
		var ev rawinput.Event
		ev, err = m.Next(ctx)
		if err != nil {
			break
		}
		r.store.Push(ev)
	}

	failed := !errors.Is(err, rawinput.ErrStopped)
	if failed {
		r.logger.Printf("recorder: capture ended: %v", err)
	}
	// lastErr must be visible before done closes.
	r.mu.Lock()
	if failed {
		r.lastErr = err
	}
	close(done)
	r.mu.Unlock()
}

// RestartSession clears the store and resets the session clock. Capture is
// not interrupted.
func (r *Recorder) RestartSession() {
	r.store.Restart()
}

// DrainSamples returns and removes every pending sample.
func (r *Recorder) DrainSamples() []store.Sample {
	return r.store.Drain()
}

// SessionStart returns the start time of the current session.
func (r *Recorder) SessionStart() time.Time {
	return r.store.StartTime()
}

// Stop shuts down capture and waits for the consumer goroutine to exit.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	m, done := r.manager, r.consumer
	r.manager, r.consumer = nil, nil
	r.mu.Unlock()

	if m == nil {
		return nil
	}
	err := m.Stop()
	<-done
	r.logger.Println("recorder: capture stopped")
	return err
}

// Status reports whether capture is running and how much is pending.
func (r *Recorder) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Status{
		State:        "idle",
		SessionStart: r.store.StartTime(),
		Pending:      r.store.Len(),
	}
	if r.manager != nil {
		s.State = r.manager.State().String()
		s.Running = r.manager.State() == rawinput.StateRunning
	}
	if r.lastErr != nil {
		s.LastError = r.lastErr.Error()
	}
	return s
}
