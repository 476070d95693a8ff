//go:build windows

package rawinput

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
	"golang.org/x/sys/windows"
)

const className = "rawdelta capture window"

// nativeBackend creates message-only windows through user32.
type nativeBackend struct {
	logger *log.Logger
}

// Native returns the raw input backend of the running platform.
func Native() Backend {
	return &nativeBackend{logger: log.Default()}
}

// captureWindow is the per-window state reachable from the window
// procedure. It is only touched on the capture thread.
type captureWindow struct {
	hwnd     hwnd
	threadID uint32
	emit     func(Event)
	buf      [MaxRecordSize]byte
	err      error
	closed   bool
}

// windowRegistry maps window handles to their state so the single
// package-level window procedure can reach the right emit function.
var windowRegistry sync.Map // hwnd -> *captureWindow

var windowProcPtr = purego.NewCallback(windowProc)

func windowProc(window hwnd, message uint32, wParam wparam, lParam lparam) lresult {
	if message == wmInput {
		if v, ok := windowRegistry.Load(window); ok {
			v.(*captureWindow).handleInput(lParam)
		}
	}
	// WM_INPUT must reach DefWindowProc so the system can release the input.
	return defWindowProc(window, message, wParam, lParam)
}

var registerClassOnce = sync.OnceValues(func() (*uint16, error) {
	name, err := windows.UTF16PtrFromString(className)
	if err != nil {
		return nil, err
	}
	instance, err := moduleHandle()
	if err != nil {
		return nil, err
	}
	class := wndClassEx{
		lpfnWndProc:   windowProcPtr,
		hInstance:     instance,
		lpszClassName: name,
	}
	class.cbSize = uint32(unsafe.Sizeof(class))
	if atom := registerClassEx(&class); atom == 0 {
		if err := lastError(); !errors.Is(err, errorClassAlreadyExists) {
			return nil, fmt.Errorf("register window class: %w", err)
		}
	}
	return name, nil
})

func moduleHandle() (hinstance, error) {
	var h windows.Handle
	if err := windows.GetModuleHandleEx(0, nil, &h); err != nil {
		return 0, fmt.Errorf("get module handle: %w", err)
	}
	return hinstance(h), nil
}

// Open creates the message-only window and subscribes it to raw mouse input
// delivered regardless of focus.
func (b *nativeBackend) Open(emit func(Event)) (Window, error) {
	name, err := registerClassOnce()
	if err != nil {
		return nil, err
	}
	instance, err := moduleHandle()
	if err != nil {
		return nil, err
	}

	h := createWindowEx(0, name, name, 0, 0, 0, 0, 0, hwndMessage, 0, instance, nil)
	if h == 0 {
		return nil, fmt.Errorf("create window: %w", lastError())
	}

	w := &captureWindow{
		hwnd:     h,
		threadID: windows.GetCurrentThreadId(),
		emit:     emit,
	}
	windowRegistry.Store(h, w)

	if err := registerMouse(h); err != nil {
		w.Close()
		return nil, err
	}
	b.logger.Printf("rawinput: capture window 0x%x ready on thread %d", h, w.threadID)
	return w, nil
}

func registerMouse(target hwnd) error {
	dev := rawInputDevice{
		usagePage:  hidUsagePageGeneric,
		usage:      hidUsageGenericMouse,
		flags:      ridevInputSink | ridevDevNotify,
		hwndTarget: target,
	}
	if registerRawInputDevices(&dev, 1, uint32(unsafe.Sizeof(dev))) == 0 {
		return fmt.Errorf("register raw mouse input: %w", lastError())
	}
	return nil
}

func (w *captureWindow) handleInput(handle lparam) {
	if w.err != nil {
		return
	}
	size := uint32(len(w.buf))
	n := getRawInputData(hrawinput(handle), ridInput, unsafe.Pointer(&w.buf[0]), &size,
		uint32(unsafe.Sizeof(rawInputHeader{})))
	if n == ^uint32(0) {
		w.err = fmt.Errorf("get raw input data: %w", lastError())
		return
	}
	ev, ok, err := DecodeRecord(w.buf[:n], NativeLayout)
	if err != nil {
		w.err = err
		return
	}
	if ok {
		w.emit(ev)
	}
}

// Pump retrieves and dispatches one message.
func (w *captureWindow) Pump() (bool, error) {
	var m msg
	switch getMessage(&m, 0, 0, 0) {
	case -1:
		return false, fmt.Errorf("get message: %w", lastError())
	case 0:
		return false, nil
	}
	if m.hwnd == 0 {
		// Thread messages, including wmWake, have no window to go to.
		return true, nil
	}
	translateMessage(&m)
	dispatchMessage(&m)
	if w.err != nil {
		return false, w.err
	}
	return true, nil
}

// Waker posts wmWake to the capture thread's queue. Only the thread id
// crosses goroutines.
func (w *captureWindow) Waker() Waker {
	threadID := w.threadID
	return WakerFunc(func() {
		postThreadMessage(threadID, wmWake, 0, 0)
	})
}

// Close destroys the window.
func (w *captureWindow) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	windowRegistry.Delete(w.hwnd)
	if destroyWindow(w.hwnd) == 0 {
		return fmt.Errorf("destroy window 0x%x: %w", w.hwnd, lastError())
	}
	return nil
}
