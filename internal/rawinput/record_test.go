package rawinput

import (
	"encoding/binary"
	"errors"
	"testing"
)

func TestRecordsAdvanceByDeclaredSize(t *testing.T) {
	// 40 (mouse), 48 (HID), 40 (mouse) in the 32-bit layout.
	var buf []byte
	buf = AppendMouse(buf, Layout32, 1, MouseInput{LastX: 5, LastY: -2})
	buf = AppendRecord(buf, Layout32, TypeHID, 2, make([]byte, 32))
	buf = AppendMouse(buf, Layout32, 1, MouseInput{LastX: -3, LastY: 7})

	var sizes []uint32
	var types []uint32
	for rec, err := range Records(buf, Layout32) {
		if err != nil {
			t.Fatalf("records: %v", err)
		}
		sizes = append(sizes, rec.Size)
		types = append(types, rec.Type)
	}

	wantSizes := []uint32{40, 48, 40}
	if len(sizes) != len(wantSizes) {
		t.Fatalf("expected %d records, got %d", len(wantSizes), len(sizes))
	}
	for i := range wantSizes {
		if sizes[i] != wantSizes[i] {
			t.Errorf("record %d: size = %d, want %d", i, sizes[i], wantSizes[i])
		}
	}
	if types[1] != TypeHID {
		t.Errorf("expected middle record to be HID, got type %d", types[1])
	}

	events, err := Events(buf, Layout32)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	want := []Event{{DX: 5, DY: -2}, {DX: -3, DY: 7}}
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %d: %v", len(want), len(events), events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("event %d = %v, want %v", i, events[i], want[i])
		}
	}
}

func TestRecordsMixedSizes64(t *testing.T) {
	// 48 (mouse), 40 (keyboard), 48 (mouse) in the 64-bit layout.
	var buf []byte
	buf = AppendMouse(buf, Layout64, 1, MouseInput{LastX: 1, LastY: 1})
	buf = AppendRecord(buf, Layout64, TypeKeyboard, 3, make([]byte, 16))
	buf = AppendMouse(buf, Layout64, 1, MouseInput{LastX: 2, LastY: 2})

	if len(buf) != 136 {
		t.Fatalf("expected 136 byte buffer, got %d", len(buf))
	}

	events, err := Events(buf, Layout64)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(events) != 2 || events[0] != (Event{1, 1}) || events[1] != (Event{2, 2}) {
		t.Fatalf("unexpected events: %v", events)
	}
}

func TestRecordsUnalignedSizeIsPadded(t *testing.T) {
	// A 44 byte HID record is followed by 4 bytes of padding in the 64-bit
	// layout; the next record must still be found.
	var buf []byte
	buf = AppendRecord(buf, Layout64, TypeHID, 9, make([]byte, 20))
	buf = AppendMouse(buf, Layout64, 1, MouseInput{LastX: 11, LastY: -11})

	events, err := Events(buf, Layout64)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(events) != 1 || events[0] != (Event{11, -11}) {
		t.Fatalf("unexpected events: %v", events)
	}
}

func TestEventsPreserveOrder(t *testing.T) {
	const n = 200
	var buf []byte
	for i := 0; i < n; i++ {
		buf = AppendMouse(buf, NativeLayout, 1, MouseInput{LastX: int32(i), LastY: int32(-i)})
	}

	events, err := Events(buf, NativeLayout)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(events) != n {
		t.Fatalf("expected %d events, got %d", n, len(events))
	}
	for i, ev := range events {
		if ev.DX != int32(i) || ev.DY != int32(-i) {
			t.Fatalf("event %d out of order: %v", i, ev)
		}
	}
}

func TestRecordsRejectBadSizes(t *testing.T) {
	good := AppendMouse(nil, Layout64, 1, MouseInput{LastX: 1})

	tests := []struct {
		name string
		buf  func() []byte
		want error
	}{
		{
			name: "short header",
			buf:  func() []byte { return good[:10] },
			want: ErrTruncated,
		},
		{
			name: "size below header",
			buf: func() []byte {
				b := append([]byte(nil), good...)
				binary.LittleEndian.PutUint32(b[4:], 8)
				return b
			},
			want: ErrRecordSize,
		},
		{
			name: "size overruns buffer",
			buf: func() []byte {
				b := append([]byte(nil), good...)
				binary.LittleEndian.PutUint32(b[4:], 4096)
				return b
			},
			want: ErrRecordSize,
		},
		{
			name: "mouse payload too short",
			buf: func() []byte {
				return AppendRecord(nil, Layout64, TypeMouse, 1, make([]byte, 8))
			},
			want: ErrTruncated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Events(tt.buf(), Layout64)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestDecodeRecord(t *testing.T) {
	raw := AppendMouse(nil, Layout64, 7, MouseInput{Flags: 0, ButtonFlags: 0x0001, LastX: -40, LastY: 12})
	ev, ok, err := DecodeRecord(raw, Layout64)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !ok {
		t.Fatalf("expected mouse record")
	}
	if ev != (Event{DX: -40, DY: 12}) {
		t.Fatalf("unexpected event %v", ev)
	}

	kb := AppendRecord(nil, Layout64, TypeKeyboard, 7, make([]byte, 16))
	if _, ok, err := DecodeRecord(kb, Layout64); err != nil || ok {
		t.Fatalf("expected keyboard record to be skipped, ok=%v err=%v", ok, err)
	}

	if _, _, err := DecodeRecord(make([]byte, MaxRecordSize+1), Layout64); !errors.Is(err, ErrRecordSize) {
		t.Fatalf("expected oversized record to fail, got %v", err)
	}
}

func TestMouseInputFields(t *testing.T) {
	raw := AppendMouse(nil, Layout32, 0x1234, MouseInput{Flags: 0x01, ButtonFlags: 0x0400, ButtonData: 120, LastX: 640, LastY: 480})
	var rec Record
	for r, err := range Records(raw, Layout32) {
		if err != nil {
			t.Fatalf("records: %v", err)
		}
		rec = r
	}
	if rec.Device != 0x1234 {
		t.Errorf("device = %#x, want 0x1234", rec.Device)
	}
	m, err := rec.Mouse()
	if err != nil {
		t.Fatalf("mouse: %v", err)
	}
	if !m.Absolute() {
		t.Errorf("expected absolute flag")
	}
	if m.ButtonFlags != 0x0400 || m.ButtonData != 120 {
		t.Errorf("unexpected button fields %+v", m)
	}
	if m.Event() != (Event{DX: 640, DY: 480}) {
		t.Errorf("unexpected event %v", m.Event())
	}
}
