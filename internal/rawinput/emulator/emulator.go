// Package emulator provides a synthetic raw input backend. It feeds encoded
// OS records through the same decode path as the native capture window, so
// the capture manager can be exercised without a Windows host.
package emulator

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/phinze/rawdelta/internal/rawinput"
)

// Emulator implements rawinput.Backend.
type Emulator struct {
	layout  rawinput.Layout
	records chan []byte
	wake    chan struct{}
	quit    chan struct{}
	device  uint64

	quitOnce sync.Once
	opened   atomic.Int32
	closed   atomic.Int32
	openErr  error
}

// Option configures an Emulator.
type Option func(*Emulator)

// WithLayout selects the record layout the emulator encodes with.
func WithLayout(l rawinput.Layout) Option {
	return func(e *Emulator) { e.layout = l }
}

// WithQueue sets how many undelivered records Feed may queue before blocking.
func WithQueue(n int) Option {
	return func(e *Emulator) {
		if n > 0 {
			e.records = make(chan []byte, n)
		}
	}
}

// WithOpenError makes every Open fail with err.
func WithOpenError(err error) Option {
	return func(e *Emulator) { e.openErr = err }
}

// New creates an emulator.
func New(opts ...Option) *Emulator {
	e := &Emulator{
		layout:  rawinput.NativeLayout,
		records: make(chan []byte, 256),
		wake:    make(chan struct{}, 1),
		quit:    make(chan struct{}),
		device:  0xE1,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Feed queues one relative motion as a mouse record.
func (e *Emulator) Feed(dx, dy int32) {
	e.FeedRecord(rawinput.AppendMouse(nil, e.layout, e.device, rawinput.MouseInput{LastX: dx, LastY: dy}))
}

// FeedRecord queues an already encoded record.
func (e *Emulator) FeedRecord(raw []byte) {
	e.records <- raw
}

// Layout returns the layout records are decoded with.
func (e *Emulator) Layout() rawinput.Layout {
	return e.layout
}

// Quit makes the next Pump report a platform quit, like WM_QUIT.
func (e *Emulator) Quit() {
	e.quitOnce.Do(func() { close(e.quit) })
}

// Opened reports how many windows have been opened.
func (e *Emulator) Opened() int {
	return int(e.opened.Load())
}

// Closed reports how many windows have been closed.
func (e *Emulator) Closed() int {
	return int(e.closed.Load())
}

// Open creates an emulated capture window.
func (e *Emulator) Open(emit func(rawinput.Event)) (rawinput.Window, error) {
	if e.openErr != nil {
		return nil, e.openErr
	}
	e.opened.Add(1)
	return &window{emu: e, emit: emit}, nil
}

type window struct {
	emu    *Emulator
	emit   func(rawinput.Event)
	closed bool
}

// Pump blocks until a record, a wake-up or a quit arrives.
func (w *window) Pump() (bool, error) {
	select {
	case <-w.emu.quit:
		return false, nil
	default:
	}
	select {
	case raw := <-w.emu.records:
		ev, ok, err := rawinput.DecodeRecord(raw, w.emu.layout)
		if err != nil {
			return false, fmt.Errorf("emulator: %w", err)
		}
		if ok {
			w.emit(ev)
		}
		return true, nil
	case <-w.emu.wake:
		return true, nil
	case <-w.emu.quit:
		return false, nil
	}
}

func (w *window) Waker() rawinput.Waker {
	wake := w.emu.wake
	return rawinput.WakerFunc(func() {
		select {
		case wake <- struct{}{}:
		default:
		}
	})
}

func (w *window) Close() error {
	if w.closed {
		return fmt.Errorf("emulator: window already closed")
	}
	w.closed = true
	w.emu.closed.Add(1)
	return nil
}

// Generate feeds a circular motion pattern every interval until ctx is
// cancelled. Each step moves by roughly radius device units.
func (e *Emulator) Generate(ctx context.Context, interval time.Duration, radius float64) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var step int
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			angle := float64(step) * math.Pi / 36
			dx := int32(math.Round(radius * math.Cos(angle)))
			dy := int32(math.Round(radius * math.Sin(angle)))
			select {
			case e.records <- rawinput.AppendMouse(nil, e.layout, e.device, rawinput.MouseInput{LastX: dx, LastY: dy}):
			case <-ctx.Done():
				return
			}
			step++
		}
	}
}
