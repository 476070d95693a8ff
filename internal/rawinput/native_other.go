//go:build !windows

package rawinput

type unsupportedBackend struct{}

// Native returns the raw input backend of the running platform. Outside
// Windows it fails to open with ErrUnsupported.
func Native() Backend {
	return unsupportedBackend{}
}

func (unsupportedBackend) Open(func(Event)) (Window, error) {
	return nil, ErrUnsupported
}
