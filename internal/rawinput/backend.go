package rawinput

// Backend opens capture windows. Open is always called on the capture
// goroutine, which is locked to its OS thread for the window's lifetime.
//
// emit forwards one decoded event to the manager. It may block while the
// consumer is behind and returns once the event is queued or shutdown has
// been requested.
type Backend interface {
	Open(emit func(Event)) (Window, error)
}

// Window is a message-receiving endpoint subscribed to raw mouse input. All
// methods except those of the returned Waker must be called on the goroutine
// that opened it.
type Window interface {
	// Pump blocks until one platform message has been retrieved and handled.
	// It returns false when the platform asked the loop to quit.
	Pump() (bool, error)

	// Waker returns a handle that unblocks a pending Pump from any
	// goroutine without touching the window itself.
	Waker() Waker

	// Close destroys the window. It is called exactly once.
	Close() error
}

// Waker interrupts a blocked Pump.
type Waker interface {
	Wake()
}

// WakerFunc adapts a function to the Waker interface.
type WakerFunc func()

// Wake calls f.
func (f WakerFunc) Wake() { f() }
