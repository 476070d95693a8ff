// Package rawinput captures relative mouse motion from the operating system's
// raw input subsystem on a dedicated, OS-locked goroutine and hands the
// decoded events to a consumer across a channel.
package rawinput

import "fmt"

// Event is one relative motion sample as reported by the device. The deltas
// are device units, not pixels, and are passed through untouched.
type Event struct {
	DX int32
	DY int32
}

func (e Event) String() string {
	return fmt.Sprintf("(%+d,%+d)", e.DX, e.DY)
}
