package rawinput

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime"
	"sync"
	"sync/atomic"
)

// DefaultBuffer is the default capacity of the event channel.
const DefaultBuffer = 1024

// State is the lifecycle state of a Manager. Transitions only move forward.
type State int32

const (
	StateCreated State = iota
	StateRunning
	StateStopRequested
	StateStopped
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateStopRequested:
		return "stop-requested"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Option configures a Manager.
type Option func(*Manager)

// WithBuffer sets the event channel capacity.
func WithBuffer(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.buffer = n
		}
	}
}

// WithLogger sets the logger used for capture diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// Manager owns the capture goroutine and the channels connecting it to the
// consumer.
type Manager struct {
	backend Backend
	buffer  int
	logger  *log.Logger

	events chan Event
	stop   chan struct{}
	done   chan struct{}

	state    atomic.Int32
	stopOnce sync.Once

	// Written by the capture goroutine before done is closed.
	waker Waker
	err   error
}

// Start spawns the capture goroutine and waits until its window is open and
// subscribed to mouse input. If that fails the goroutine has already exited
// and the error is returned.
func Start(backend Backend, opts ...Option) (*Manager, error) {
	m := &Manager{
		backend: backend,
		buffer:  DefaultBuffer,
		logger:  log.Default(),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.events = make(chan Event, m.buffer)

	ready := make(chan error, 1)
	go m.run(ready)

	if err := <-ready; err != nil {
		<-m.done
		return nil, err
	}
	return m, nil
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	return State(m.state.Load())
}

// Next blocks until an event is available. Events already queued when the
// capture goroutine exits on its own are still delivered; after that, or once
// Stop has been called, Next returns ErrStopped or the error that terminated
// capture.
func (m *Manager) Next(ctx context.Context) (Event, error) {
	select {
	case <-m.stop:
		return Event{}, ErrStopped
	default:
	}
	select {
	case ev, ok := <-m.events:
		if !ok {
			return Event{}, m.terminalErr()
		}
		return ev, nil
	case <-m.stop:
		return Event{}, ErrStopped
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}

// Done is closed once the capture goroutine has exited.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// Stop signals the capture goroutine and waits for it to exit. After Stop
// returns the window has been destroyed and no capture code is running. It
// is safe to call more than once.
func (m *Manager) Stop() error {
	m.stopOnce.Do(func() {
		m.state.CompareAndSwap(int32(StateRunning), int32(StateStopRequested))
		close(m.stop)
		if m.waker != nil {
			m.waker.Wake()
		}
	})
	<-m.done
	if m.State() == StateFailed {
		return m.err
	}
	return nil
}

// terminalErr is only called after events has been closed, which orders it
// after the write to err.
func (m *Manager) terminalErr() error {
	if m.err != nil {
		return m.err
	}
	return ErrStopped
}

func (m *Manager) run(ready chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	win, err := m.backend.Open(m.emit)
	if err != nil {
		m.err = fmt.Errorf("%w: %w", ErrCaptureFailed, err)
		m.state.Store(int32(StateFailed))
		m.logger.Printf("rawinput: open capture window: %v", err)
		close(m.events)
		close(m.done)
		ready <- m.err
		return
	}
	m.waker = win.Waker()
	m.state.Store(int32(StateRunning))
	ready <- nil

	loopErr := m.loop(win)
	if cerr := win.Close(); cerr != nil {
		loopErr = errors.Join(loopErr, fmt.Errorf("destroy window: %w", cerr))
	}

	if loopErr != nil {
		m.err = fmt.Errorf("%w: %w", ErrCaptureFailed, loopErr)
		m.state.Store(int32(StateFailed))
		m.logger.Printf("rawinput: capture terminated: %v", loopErr)
	} else {
		m.state.Store(int32(StateStopped))
	}
	close(m.events)
	close(m.done)
}

func (m *Manager) loop(win Window) error {
	for {
		select {
		case <-m.stop:
			return nil
		default:
		}

		more, err := win.Pump()
		if err != nil {
			return err
		}
		if !more {
			m.logger.Println("rawinput: quit received")
			return nil
		}
	}
}

// emit runs on the capture goroutine only.
func (m *Manager) emit(ev Event) {
	select {
	case m.events <- ev:
	case <-m.stop:
	}
}
