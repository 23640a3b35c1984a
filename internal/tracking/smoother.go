package tracking

import (
	"fmt"
	"math"
)

// DefaultWindowSize is the number of raw observations averaged per slot.
const DefaultWindowSize = 5

// Point is a 2D image-space coordinate in pixels. Y grows downwards, so a
// negative vertical velocity means the hand is moving up the frame.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Dist returns the euclidean distance between p and q.
func (p Point) Dist(q Point) float64 { return math.Hypot(p.X-q.X, p.Y-q.Y) }

// SmoothedState is the per-slot output of the smoother for one frame.
type SmoothedState struct {
	Slot     string `json:"slot"`
	Center   Point  `json:"center"`
	Velocity Point  `json:"velocity"`
}

// slotHistory is a fixed-capacity FIFO of raw centers plus the previous
// smoothed center used for velocity.
type slotHistory struct {
	buf   []Point
	head  int // index of the oldest sample once the ring is full
	prev  Point
	ready bool // prev holds a smoothed center
}

func (h *slotHistory) push(p Point, k int) {
	if len(h.buf) < k {
		h.buf = append(h.buf, p)
		return
	}
	h.buf[h.head] = p
	h.head = (h.head + 1) % k
}

func (h *slotHistory) mean() Point {
	var sx, sy float64
	for _, p := range h.buf {
		sx += p.X
		sy += p.Y
	}
	n := float64(len(h.buf))
	return Point{X: sx / n, Y: sy / n}
}

// PositionSmoother keeps a moving-average window per slot and derives a
// frame-to-frame velocity from consecutive smoothed centers.
//
// Not safe for concurrent use; a detector owns exactly one.
type PositionSmoother struct {
	k     int
	slots map[string]*slotHistory
}

// NewPositionSmoother returns a smoother averaging the last k observations.
func NewPositionSmoother(k int) (*PositionSmoother, error) {
	if k <= 0 {
		return nil, fmt.Errorf("smoothing window must be positive, got %d", k)
	}
	return &PositionSmoother{k: k, slots: make(map[string]*slotHistory)}, nil
}

// WindowSize returns K.
func (s *PositionSmoother) WindowSize() int { return s.k }

// Observe appends raw to the slot's window and returns the smoothed center
// and the velocity against the previous smoothed center. The first call for a
// slot yields zero velocity.
func (s *PositionSmoother) Observe(slot string, raw Point) SmoothedState {
	h, ok := s.slots[slot]
	if !ok {
		h = &slotHistory{buf: make([]Point, 0, s.k)}
		s.slots[slot] = h
	}
	h.push(raw, s.k)

	center := h.mean()
	if !h.ready {
		h.prev = center
		h.ready = true
	}
	vel := center.Sub(h.prev)
	h.prev = center

	return SmoothedState{Slot: slot, Center: center, Velocity: vel}
}

// Len reports how many raw samples the slot currently holds.
func (s *PositionSmoother) Len(slot string) int {
	if h, ok := s.slots[slot]; ok {
		return len(h.buf)
	}
	return 0
}

// Reset forgets every slot.
func (s *PositionSmoother) Reset() {
	s.slots = make(map[string]*slotHistory)
}
