// Package motion turns drained samples into an integrated path with per
// point velocity, plus a frame-smoothed copy of the same path.
package motion

import (
	"math"

	"github.com/phinze/rawdelta/internal/store"
)

const (
	// DefaultSmoothTime is one 144 Hz frame, in milliseconds.
	DefaultSmoothTime = 1000.0 / 144
	// DefaultRetention is how much history a Track keeps, in milliseconds.
	DefaultRetention = 100000.0
)

// Point is one integrated sample. Times are milliseconds since session
// start; velocities are device units per millisecond and NaN when DT is 0.
type Point struct {
	T  float64 `json:"t"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	DT float64 `json:"dt"`
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
	VX float64 `json:"vx"`
	VY float64 `json:"vy"`
}

type raw struct {
	t, dx, dy float64
}

// Track accumulates samples. It is not safe for concurrent use.
type Track struct {
	points   []Point
	smoothed []Point

	frame      []raw
	frameEnd   float64
	smoothTime float64
	retention  float64
}

// NewTrack creates an empty track with the default smoothing and retention.
func NewTrack() *Track {
	return &Track{
		smoothTime: DefaultSmoothTime,
		retention:  DefaultRetention,
	}
}

// Push appends samples in order.
func (tr *Track) Push(samples ...store.Sample) {
	for _, s := range samples {
		tr.push(raw{t: float64(s.T) / 1000, dx: float64(s.DX), dy: float64(s.DY)})
	}
	tr.drop()
}

func (tr *Track) push(d raw) {
	p := Point{T: d.t, DX: d.dx, DY: d.dy}
	if n := len(tr.points); n == 0 {
		p.X, p.Y, p.DT = d.dx, d.dy, d.t
	} else {
		last := tr.points[n-1]
		p.X, p.Y, p.DT = last.X+d.dx, last.Y+d.dy, d.t-last.T
	}
	p.VX, p.VY = velocity(p.DX, p.DY, p.DT)
	tr.points = append(tr.points, p)
	tr.smoothPush(d)
}

// smoothPush closes the pending frame once d falls past its end, then adds
// d to the next frame.
func (tr *Track) smoothPush(d raw) {
	if len(tr.frame) > 0 && d.t-tr.frameEnd > tr.smoothTime {
		var dx, dy float64
		for _, r := range tr.frame {
			dx += r.dx
			dy += r.dy
		}
		p := Point{T: tr.frame[len(tr.frame)-1].t, X: dx, Y: dy, DX: dx, DY: dy}
		if n := len(tr.smoothed); n > 0 {
			last := tr.smoothed[n-1]
			p.DT = p.T - last.T
			p.X, p.Y = last.X+dx, last.Y+dy
		}
		p.VX, p.VY = velocity(dx, dy, p.DT)
		tr.smoothed = append(tr.smoothed, p)
		tr.frame = tr.frame[:0]
		tr.frameEnd = math.Ceil(d.t/tr.smoothTime) * tr.smoothTime
	}
	tr.frame = append(tr.frame, d)
}

func velocity(dx, dy, dt float64) (float64, float64) {
	if dt == 0 {
		return math.NaN(), math.NaN()
	}
	return dx / dt, dy / dt
}

// drop discards points older than the newest point minus the retention.
func (tr *Track) drop() {
	tr.points = trim(tr.points, tr.retention)
	tr.smoothed = trim(tr.smoothed, tr.retention)
}

func trim(points []Point, retention float64) []Point {
	if len(points) == 0 {
		return points
	}
	newest := points[len(points)-1].T
	i := 0
	for i < len(points) && newest-points[i].T > retention {
		i++
	}
	if i == 0 {
		return points
	}
	return append(points[:0:0], points[i:]...)
}

// Points returns the integrated path.
func (tr *Track) Points() []Point {
	return tr.points
}

// Smoothed returns the frame-smoothed path. The frame still being filled is
// not included.
func (tr *Track) Smoothed() []Point {
	return tr.smoothed
}

// SmoothTime returns the frame length in milliseconds.
func (tr *Track) SmoothTime() float64 {
	return tr.smoothTime
}

// SetSmoothTime changes the frame length and recomputes the smoothed path
// from the retained points.
func (tr *Track) SetSmoothTime(ms float64) {
	if ms <= 0 {
		return
	}
	tr.smoothTime = ms
	tr.smoothed = nil
	tr.frame = tr.frame[:0]
	tr.frameEnd = 0
	for _, p := range tr.points {
		tr.smoothPush(raw{t: p.T, dx: p.DX, dy: p.DY})
	}
}

// SetRetention changes how many milliseconds of history are kept.
func (tr *Track) SetRetention(ms float64) {
	tr.retention = ms
	tr.drop()
}

// Clear removes all points and resets smoothing.
func (tr *Track) Clear() {
	tr.points = nil
	tr.smoothed = nil
	tr.frame = tr.frame[:0]
	tr.frameEnd = 0
}

// Stats summarizes a track.
type Stats struct {
	Samples  int
	Duration float64 // ms between first and last point
	X, Y     float64 // net displacement
	Distance float64 // path length
	PeakV    float64 // highest smoothed speed, units per ms
}

// Stats computes a summary of the retained points.
func (tr *Track) Stats() Stats {
	s := Stats{Samples: len(tr.points)}
	if len(tr.points) == 0 {
		return s
	}
	first, last := tr.points[0], tr.points[len(tr.points)-1]
	s.Duration = last.T - first.T
	s.X, s.Y = last.X, last.Y
	for _, p := range tr.points {
		s.Distance += math.Hypot(p.DX, p.DY)
	}
	for _, p := range tr.smoothed {
		if v := math.Hypot(p.VX, p.VY); !math.IsNaN(v) && v > s.PeakV {
			s.PeakV = v
		}
	}
	return s
}
