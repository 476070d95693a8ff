package rawinput

import "errors"

var (
	// ErrUnsupported is returned by the native backend on hosts without a
	// raw input subsystem.
	ErrUnsupported = errors.New("rawinput: raw mouse capture is only supported on windows")

	// ErrStopped is returned by Next once the manager has been stopped.
	ErrStopped = errors.New("rawinput: manager stopped")

	// ErrCaptureFailed wraps the platform error that terminated the capture
	// goroutine.
	ErrCaptureFailed = errors.New("rawinput: capture failed")

	// ErrRecordSize indicates a record whose declared size is inconsistent
	// with the buffer holding it.
	ErrRecordSize = errors.New("rawinput: bad record size")

	// ErrTruncated indicates a buffer too short for the structure it should
	// contain.
	ErrTruncated = errors.New("rawinput: truncated record")
)
