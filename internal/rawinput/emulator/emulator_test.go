package emulator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/phinze/rawdelta/internal/rawinput"
)

func TestWindowDecodesFedRecords(t *testing.T) {
	emu := New(WithLayout(rawinput.Layout32))

	var got []rawinput.Event
	win, err := emu.Open(func(ev rawinput.Event) { got = append(got, ev) })
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	emu.Feed(5, -2)
	emu.FeedRecord(rawinput.AppendRecord(nil, rawinput.Layout32, rawinput.TypeHID, 3, make([]byte, 32)))
	emu.Feed(-3, 7)
	for i := 0; i < 3; i++ {
		if more, err := win.Pump(); err != nil || !more {
			t.Fatalf("pump %d: more=%v err=%v", i, more, err)
		}
	}
	if len(got) != 2 || got[0] != (rawinput.Event{DX: 5, DY: -2}) || got[1] != (rawinput.Event{DX: -3, DY: 7}) {
		t.Fatalf("unexpected events %v", got)
	}

	win.Waker().Wake()
	if more, err := win.Pump(); err != nil || !more {
		t.Fatalf("wake: more=%v err=%v", more, err)
	}

	emu.Quit()
	if more, _ := win.Pump(); more {
		t.Fatalf("expected quit to end pumping")
	}

	if err := win.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := win.Close(); err == nil {
		t.Fatalf("expected second close to fail")
	}
	if emu.Opened() != 1 || emu.Closed() != 1 {
		t.Fatalf("counters = %d/%d", emu.Opened(), emu.Closed())
	}
}

func TestOpenError(t *testing.T) {
	boom := errors.New("boom")
	if _, err := New(WithOpenError(boom)).Open(func(rawinput.Event) {}); !errors.Is(err, boom) {
		t.Fatalf("expected open error, got %v", err)
	}
}

func TestGenerate(t *testing.T) {
	emu := New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		emu.Generate(ctx, time.Millisecond, 10)
		close(done)
	}()

	var got []rawinput.Event
	win, err := emu.Open(func(ev rawinput.Event) { got = append(got, ev) })
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for len(got) < 3 {
		if _, err := win.Pump(); err != nil {
			t.Fatalf("pump: %v", err)
		}
	}
	cancel()
	<-done

	if got[0] != (rawinput.Event{DX: 10, DY: 0}) {
		t.Fatalf("first step should point along +x, got %v", got[0])
	}
	if got[1].DY <= 0 {
		t.Fatalf("pattern should turn towards +y, got %v", got[1])
	}
}
