//go:build windows

package rawinput

import (
	"unsafe"

	"github.com/ebitengine/purego"
	"golang.org/x/sys/windows"
)

// Win32 type aliases.
type (
	hwnd      = uintptr
	hinstance = uintptr
	wparam    = uintptr
	lparam    = uintptr
	lresult   = uintptr
	hrawinput = uintptr
)

const (
	wmInput = 0x00FF
	wmApp   = 0x8000

	// Posted to the capture thread to interrupt GetMessageW.
	wmWake = wmApp + 1

	ridInput = 0x10000003

	ridevInputSink = 0x00000100
	ridevDevNotify = 0x00002000

	hidUsagePageGeneric  = 0x01
	hidUsageGenericMouse = 0x02

	errorClassAlreadyExists = windows.Errno(1410)
)

// hwndMessage is HWND_MESSAGE, the parent of message-only windows.
var hwndMessage = ^uintptr(2)

// wndClassEx mirrors WNDCLASSEXW.
type wndClassEx struct {
	cbSize        uint32
	style         uint32
	lpfnWndProc   uintptr
	cbClsExtra    int32
	cbWndExtra    int32
	hInstance     hinstance
	hIcon         uintptr
	hCursor       uintptr
	hbrBackground uintptr
	lpszMenuName  *uint16
	lpszClassName *uint16
	hIconSm       uintptr
}

// msg mirrors MSG.
type msg struct {
	hwnd    hwnd
	message uint32
	wParam  wparam
	lParam  lparam
	time    uint32
	ptX     int32
	ptY     int32
	private uint32
}

// rawInputDevice mirrors RAWINPUTDEVICE.
type rawInputDevice struct {
	usagePage  uint16
	usage      uint16
	flags      uint32
	hwndTarget hwnd
}

// rawInputHeader mirrors RAWINPUTHEADER; only its size is used.
type rawInputHeader struct {
	dwType  uint32
	dwSize  uint32
	hDevice uintptr
	wParam  wparam
}

// purego function bindings
var (
	registerClassEx         func(class *wndClassEx) uint16
	createWindowEx          func(exStyle uint32, className, windowName *uint16, style uint32, x, y, width, height int32, parent hwnd, menu uintptr, instance hinstance, param unsafe.Pointer) hwnd
	destroyWindow           func(window hwnd) int32
	defWindowProc           func(window hwnd, message uint32, wParam wparam, lParam lparam) lresult
	getMessage              func(m *msg, window hwnd, filterMin, filterMax uint32) int32
	translateMessage        func(m *msg) int32
	dispatchMessage         func(m *msg) lresult
	postThreadMessage       func(threadID uint32, message uint32, wParam wparam, lParam lparam) int32
	registerRawInputDevices func(devices *rawInputDevice, count uint32, size uint32) int32
	getRawInputData         func(input hrawinput, command uint32, data unsafe.Pointer, size *uint32, headerSize uint32) uint32
)

var user32 = windows.NewLazySystemDLL("user32.dll")

func init() {
	bind(&registerClassEx, "RegisterClassExW")
	bind(&createWindowEx, "CreateWindowExW")
	bind(&destroyWindow, "DestroyWindow")
	bind(&defWindowProc, "DefWindowProcW")
	bind(&getMessage, "GetMessageW")
	bind(&translateMessage, "TranslateMessage")
	bind(&dispatchMessage, "DispatchMessageW")
	bind(&postThreadMessage, "PostThreadMessageW")
	bind(&registerRawInputDevices, "RegisterRawInputDevices")
	bind(&getRawInputData, "GetRawInputData")
}

func bind(fptr any, name string) {
	proc := user32.NewProc(name)
	if err := proc.Find(); err != nil {
		panic(err)
	}
	purego.RegisterFunc(fptr, proc.Addr())
}

// lastError reads the calling thread's Win32 error code. It must be called on
// the thread that made the failing call, which the capture goroutine
// guarantees by locking its OS thread.
func lastError() error {
	if err := windows.GetLastError(); err != nil {
		return err
	}
	return windows.ERROR_GEN_FAILURE
}
