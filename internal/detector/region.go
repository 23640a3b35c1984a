package detector

import (
	"fmt"
	"math"

	"github.com/banshee-data/assembly.report/internal/tracking"
)

// Region is an axis-aligned rectangle in image pixels, (X1,Y1) top-left and
// (X2,Y2) bottom-right. Membership is inclusive on every edge.
type Region struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Rect builds a Region from (left, top, right, bottom).
func Rect(x1, y1, x2, y2 float64) Region {
	return Region{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

// Contains reports whether p lies inside r, edges included.
func (r Region) Contains(p tracking.Point) bool {
	return r.X1 <= p.X && p.X <= r.X2 && r.Y1 <= p.Y && p.Y <= r.Y2
}

// Validate rejects inverted, zero-area and non-finite rectangles.
func (r Region) Validate() error {
	for _, v := range []float64{r.X1, r.Y1, r.X2, r.Y2} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("region %v has a non-finite corner", r)
		}
	}
	if r.X2 <= r.X1 || r.Y2 <= r.Y1 {
		return fmt.Errorf("region (%g,%g,%g,%g) is inverted or has zero area", r.X1, r.Y1, r.X2, r.Y2)
	}
	return nil
}

// Regions holds the four static zones of a workstation.
type Regions struct {
	Piece Region `json:"piece"` // where parts are picked up
	Probe Region `json:"probe"` // where the part passes the probe
	Box   Region `json:"box"`   // output box; its bottom edge marks the exit
	Mark  Region `json:"mark"`  // where the secondary hand marks the part
}

// DefaultRegions returns the zones of the reference top-down camera
// installation.
func DefaultRegions() Regions {
	return Regions{
		Piece: Rect(700, 0, 1600, 900),
		Probe: Rect(800, 600, 1600, 900),
		Box:   Rect(0, 500, 1200, 900),
		Mark:  Rect(1100, 600, 2000, 1300),
	}
}

// Validate checks every region.
func (r Regions) Validate() error {
	for _, named := range []struct {
		name   string
		region Region
	}{{"piece", r.Piece}, {"probe", r.Probe}, {"box", r.Box}, {"mark", r.Mark}} {
		if err := named.region.Validate(); err != nil {
			return fmt.Errorf("%s: %w", named.name, err)
		}
	}
	return nil
}
