package motion

import (
	"math"
	"testing"

	"github.com/phinze/rawdelta/internal/store"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestPushIntegratesDeltas(t *testing.T) {
	tr := NewTrack()
	tr.Push(
		store.Sample{T: 0, DX: 1, DY: -1},
		store.Sample{T: 1000, DX: 2, DY: 0},
		store.Sample{T: 1000, DX: 3, DY: 5},
	)

	pts := tr.Points()
	if len(pts) != 3 {
		t.Fatalf("expected 3 points, got %d", len(pts))
	}

	if pts[0].X != 1 || pts[0].Y != -1 || pts[0].DT != 0 || !math.IsNaN(pts[0].VX) {
		t.Errorf("unexpected first point %+v", pts[0])
	}
	if pts[1].T != 1 || pts[1].X != 3 || pts[1].DT != 1 || pts[1].VX != 2 || pts[1].VY != 0 {
		t.Errorf("unexpected second point %+v", pts[1])
	}
	if pts[2].X != 6 || pts[2].Y != 4 || !math.IsNaN(pts[2].VX) || !math.IsNaN(pts[2].VY) {
		t.Errorf("expected NaN velocity for zero dt, got %+v", pts[2])
	}
}

func TestSmoothingSumsFrames(t *testing.T) {
	tr := NewTrack()
	tr.Push(
		store.Sample{T: 0, DX: 1},
		store.Sample{T: 1000, DX: 2},
		store.Sample{T: 1000, DX: 3},
	)
	if n := len(tr.Smoothed()); n != 0 {
		t.Fatalf("frame still open, expected no smoothed points, got %d", n)
	}

	tr.Push(store.Sample{T: 10000, DX: 4})
	tr.Push(store.Sample{T: 30000, DX: 5})

	sm := tr.Smoothed()
	if len(sm) != 2 {
		t.Fatalf("expected 2 smoothed points, got %d: %+v", len(sm), sm)
	}
	if sm[0].T != 1 || sm[0].DX != 6 || sm[0].X != 6 || sm[0].DT != 0 || !math.IsNaN(sm[0].VX) {
		t.Errorf("unexpected first frame %+v", sm[0])
	}
	if sm[1].T != 10 || sm[1].DX != 4 || sm[1].X != 10 || sm[1].DT != 9 || !approx(sm[1].VX, 4.0/9) {
		t.Errorf("unexpected second frame %+v", sm[1])
	}
}

func TestSetSmoothTimeRecomputes(t *testing.T) {
	tr := NewTrack()
	tr.Push(
		store.Sample{T: 0, DX: 1},
		store.Sample{T: 10000, DX: 4},
		store.Sample{T: 30000, DX: 5},
	)
	if len(tr.Smoothed()) == 0 {
		t.Fatalf("expected smoothed points at the default frame length")
	}

	tr.SetSmoothTime(100)
	if tr.SmoothTime() != 100 {
		t.Fatalf("smooth time not updated")
	}
	if n := len(tr.Smoothed()); n != 0 {
		t.Fatalf("all points fit one 100ms frame, expected none closed, got %d", n)
	}

	tr.SetSmoothTime(DefaultSmoothTime)
	if n := len(tr.Smoothed()); n != 2 {
		t.Fatalf("expected recompute back to 2 frames, got %d", n)
	}
}

func TestRetentionDropsOldPoints(t *testing.T) {
	tr := NewTrack()
	tr.Push(
		store.Sample{T: 0, DX: 1},
		store.Sample{T: 1000, DX: 2},
		store.Sample{T: 10000, DX: 4},
		store.Sample{T: 30000, DX: 5},
	)
	tr.SetRetention(15)

	pts := tr.Points()
	if len(pts) != 1 || pts[0].T != 30 {
		t.Fatalf("expected only the newest point to remain, got %+v", pts)
	}
	// Integration continues from the dropped history.
	if pts[0].X != 12 {
		t.Fatalf("expected x to keep the integrated position, got %v", pts[0].X)
	}
}

func TestClear(t *testing.T) {
	tr := NewTrack()
	tr.Push(store.Sample{T: 0, DX: 1}, store.Sample{T: 50000, DX: 1})
	tr.Clear()
	if len(tr.Points()) != 0 || len(tr.Smoothed()) != 0 {
		t.Fatalf("expected empty track after clear")
	}

	tr.Push(store.Sample{T: 2000, DX: 3})
	if p := tr.Points()[0]; p.X != 3 || p.DT != 2 {
		t.Fatalf("expected integration to restart, got %+v", p)
	}
}

func TestStats(t *testing.T) {
	tr := NewTrack()
	if s := tr.Stats(); s.Samples != 0 {
		t.Fatalf("expected empty stats, got %+v", s)
	}

	tr.Push(
		store.Sample{T: 0, DX: 3, DY: 4},
		store.Sample{T: 10000, DX: 3, DY: 4},
		store.Sample{T: 20000, DX: 0, DY: 0},
	)
	s := tr.Stats()
	if s.Samples != 3 || s.Duration != 20 || s.X != 6 || s.Y != 8 {
		t.Fatalf("unexpected stats %+v", s)
	}
	if !approx(s.Distance, 10) {
		t.Fatalf("expected path length 10, got %v", s.Distance)
	}
}
