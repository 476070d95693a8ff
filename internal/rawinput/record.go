package rawinput

import (
	"encoding/binary"
	"fmt"
	"iter"
	"unsafe"
)

// Device types announced in a record header (RIM_TYPE*).
const (
	TypeMouse    uint32 = 0
	TypeKeyboard uint32 = 1
	TypeHID      uint32 = 2
)

// MaxRecordSize bounds a single record fetched from the OS. Anything larger
// is treated as a decode failure.
const MaxRecordSize = 1024

// MOUSE_MOVE_ABSOLUTE in RAWMOUSE.usFlags.
const mouseMoveAbsolute = 0x01

// RAWMOUSE offsets relative to the start of the payload.
const (
	mouseFlagsOffset       = 0
	mouseButtonFlagsOffset = 4
	mouseButtonDataOffset  = 6
	mouseLastXOffset       = 12
	mouseLastYOffset       = 16
	mousePayloadSize       = 24
)

// Layout describes how the OS lays out raw input records for a given pointer
// width. The header is dwType, dwSize, hDevice and wParam; the last two are
// pointer sized.
type Layout struct {
	// HeaderSize is the byte length of RAWINPUTHEADER.
	HeaderSize int
	// Align is the boundary each record in a batch starts on.
	Align int
}

// Known layouts.
var (
	Layout64 = Layout{HeaderSize: 24, Align: 8}
	Layout32 = Layout{HeaderSize: 16, Align: 4}
)

// NativeLayout is the layout used by the running process.
var NativeLayout = layoutFor(int(unsafe.Sizeof(uintptr(0))))

func layoutFor(ptrSize int) Layout {
	if ptrSize == 4 {
		return Layout32
	}
	return Layout64
}

// MouseRecordSize returns the declared size of a mouse record in this layout.
func (l Layout) MouseRecordSize() int {
	return l.HeaderSize + mousePayloadSize
}

func (l Layout) next(off int) int {
	if l.Align <= 1 {
		return off
	}
	return (off + l.Align - 1) &^ (l.Align - 1)
}

// Record is one raw input record as laid out by the OS.
type Record struct {
	Type uint32
	Size uint32
	// Device is the hDevice handle of the source device.
	Device uint64
	// Payload is the device specific part following the header. It aliases
	// the decoded buffer.
	Payload []byte
}

// MouseInput is the subset of RAWMOUSE the capture path reads.
type MouseInput struct {
	Flags       uint16
	ButtonFlags uint16
	ButtonData  uint16
	LastX       int32
	LastY       int32
}

// Absolute reports whether the device reported absolute coordinates.
func (m MouseInput) Absolute() bool {
	return m.Flags&mouseMoveAbsolute != 0
}

// Event returns the relative motion carried by the input.
func (m MouseInput) Event() Event {
	return Event{DX: m.LastX, DY: m.LastY}
}

// Mouse decodes the RAWMOUSE payload of a mouse record.
func (r Record) Mouse() (MouseInput, error) {
	if r.Type != TypeMouse {
		return MouseInput{}, fmt.Errorf("record type %d is not a mouse", r.Type)
	}
	if len(r.Payload) < mouseLastYOffset+4 {
		return MouseInput{}, fmt.Errorf("%w: mouse payload is %d bytes", ErrTruncated, len(r.Payload))
	}
	p := r.Payload
	return MouseInput{
		Flags:       binary.LittleEndian.Uint16(p[mouseFlagsOffset:]),
		ButtonFlags: binary.LittleEndian.Uint16(p[mouseButtonFlagsOffset:]),
		ButtonData:  binary.LittleEndian.Uint16(p[mouseButtonDataOffset:]),
		LastX:       int32(binary.LittleEndian.Uint32(p[mouseLastXOffset:])),
		LastY:       int32(binary.LittleEndian.Uint32(p[mouseLastYOffset:])),
	}, nil
}

// Records walks the records packed in buf. Each record announces its own
// size and the cursor moves by that size, rounded up to the layout
// alignment. Iteration stops after the first error.
func Records(buf []byte, layout Layout) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		off := 0
		for off < len(buf) {
			rec, err := readRecord(buf, off, layout)
			if err != nil {
				yield(Record{}, err)
				return
			}
			if !yield(rec, nil) {
				return
			}
			off = min(layout.next(off+int(rec.Size)), len(buf))
		}
	}
}

func readRecord(buf []byte, off int, layout Layout) (Record, error) {
	rest := buf[off:]
	if len(rest) < layout.HeaderSize {
		return Record{}, fmt.Errorf("%w: %d bytes left at offset %d, header needs %d",
			ErrTruncated, len(rest), off, layout.HeaderSize)
	}
	typ := binary.LittleEndian.Uint32(rest[0:])
	size := binary.LittleEndian.Uint32(rest[4:])
	if int(size) < layout.HeaderSize || int(size) > len(rest) {
		return Record{}, fmt.Errorf("%w: record at offset %d declares %d bytes, %d available",
			ErrRecordSize, off, size, len(rest))
	}
	var device uint64
	if layout.HeaderSize == Layout32.HeaderSize {
		device = uint64(binary.LittleEndian.Uint32(rest[8:]))
	} else {
		device = binary.LittleEndian.Uint64(rest[8:])
	}
	return Record{
		Type:    typ,
		Size:    size,
		Device:  device,
		Payload: rest[layout.HeaderSize:size],
	}, nil
}

// Events decodes every mouse record in buf, preserving order. Records from
// other device types are skipped.
func Events(buf []byte, layout Layout) ([]Event, error) {
	var events []Event
	for rec, err := range Records(buf, layout) {
		if err != nil {
			return events, err
		}
		if rec.Type != TypeMouse {
			continue
		}
		m, err := rec.Mouse()
		if err != nil {
			return events, err
		}
		events = append(events, m.Event())
	}
	return events, nil
}

// DecodeRecord decodes the single record returned for one WM_INPUT
// notification. ok is false for records that are not from a mouse.
func DecodeRecord(buf []byte, layout Layout) (ev Event, ok bool, err error) {
	if len(buf) > MaxRecordSize {
		return Event{}, false, fmt.Errorf("%w: %d bytes exceeds %d", ErrRecordSize, len(buf), MaxRecordSize)
	}
	rec, err := readRecord(buf, 0, layout)
	if err != nil {
		return Event{}, false, err
	}
	if rec.Type != TypeMouse {
		return Event{}, false, nil
	}
	m, err := rec.Mouse()
	if err != nil {
		return Event{}, false, err
	}
	return m.Event(), true, nil
}

// AppendRecord appends a record with the given type and payload, padded to
// the layout alignment. The declared size excludes the padding.
func AppendRecord(dst []byte, layout Layout, typ uint32, device uint64, payload []byte) []byte {
	size := layout.HeaderSize + len(payload)

	hdr := make([]byte, layout.HeaderSize)
	binary.LittleEndian.PutUint32(hdr[0:], typ)
	binary.LittleEndian.PutUint32(hdr[4:], uint32(size))
	if layout.HeaderSize == Layout32.HeaderSize {
		binary.LittleEndian.PutUint32(hdr[8:], uint32(device))
	} else {
		binary.LittleEndian.PutUint64(hdr[8:], device)
	}
	dst = append(dst, hdr...)
	dst = append(dst, payload...)

	if pad := layout.next(size) - size; pad > 0 {
		dst = append(dst, make([]byte, pad)...)
	}
	return dst
}

// AppendMouse appends a mouse record carrying in.
func AppendMouse(dst []byte, layout Layout, device uint64, in MouseInput) []byte {
	p := make([]byte, mousePayloadSize)
	binary.LittleEndian.PutUint16(p[mouseFlagsOffset:], in.Flags)
	binary.LittleEndian.PutUint16(p[mouseButtonFlagsOffset:], in.ButtonFlags)
	binary.LittleEndian.PutUint16(p[mouseButtonDataOffset:], in.ButtonData)
	binary.LittleEndian.PutUint32(p[mouseLastXOffset:], uint32(in.LastX))
	binary.LittleEndian.PutUint32(p[mouseLastYOffset:], uint32(in.LastY))
	return AppendRecord(dst, layout, TypeMouse, device, p)
}
