package detector

import (
	"math"

	"github.com/banshee-data/assembly.report/internal/events"
	"github.com/banshee-data/assembly.report/internal/tracking"
)

// Inputs is what a predicate sees for one frame: the smoothed primary and
// secondary hands and the effective frame height.
type Inputs struct {
	Primary     tracking.SmoothedState
	Secondary   tracking.SmoothedState
	FrameHeight float64
}

// HandDistance is the euclidean distance between the two smoothed centers.
func (in Inputs) HandDistance() float64 {
	return in.Primary.Center.Dist(in.Secondary.Center)
}

// Predicate decides whether the motion in a frame matches an event kind.
type Predicate func(in Inputs) bool

// Coupling requires another kind to have been quiet for MinInterval seconds.
type Coupling struct {
	After       events.Kind
	MinInterval float64
}

// Rule binds a kind to its predicate and cooldowns. The rule table is
// evaluated in order, one rule per kind.
type Rule struct {
	Kind      events.Kind
	Cooldown  float64
	Couplings []Coupling
	Predicate Predicate
}

// Rules builds the rule table for cfg in evaluation order.
func Rules(cfg Config) []Rule {
	r, th, cd := cfg.Regions, cfg.Thresholds, cfg.Cooldowns
	return []Rule{
		{
			Kind:      events.PickUp,
			Cooldown:  cd.PickUp,
			Predicate: PickUpPredicate(r, th),
		},
		{
			Kind:      events.ProbePass,
			Cooldown:  cd.ProbePass,
			Couplings: []Coupling{{After: events.PickUp, MinInterval: cd.ProbeAfterPickUp}},
			Predicate: ProbePassPredicate(r, th),
		},
		{
			Kind:      events.Marking,
			Cooldown:  cd.Marking,
			Couplings: []Coupling{{After: events.ProbePass, MinInterval: cd.MarkingAfterProbe}},
			Predicate: MarkingPredicate(r, th),
		},
		{
			Kind:      events.PlaceInBox,
			Cooldown:  cd.PlaceInBox,
			Predicate: PlaceInBoxPredicate(r, th),
		},
	}
}

// PickUpPredicate: primary hand inside the piece zone moving sharply up, or
// up while sweeping right.
func PickUpPredicate(r Regions, th Thresholds) Predicate {
	return func(in Inputs) bool {
		p := in.Primary
		if !r.Piece.Contains(p.Center) {
			return false
		}
		vx, vy := p.Velocity.X, p.Velocity.Y
		return vy < th.PickUpFastRiseVY || (vy < th.PickUpRiseVY && vx > th.PickUpSweepVX)
	}
}

// ProbePassPredicate: primary hand inside the probe zone moving down (or down
// and right), with the hands close together.
func ProbePassPredicate(r Regions, th Thresholds) Predicate {
	return func(in Inputs) bool {
		p := in.Primary
		if !r.Probe.Contains(p.Center) {
			return false
		}
		vx, vy := p.Velocity.X, p.Velocity.Y
		moving := vy > th.ProbeDescentVY || (vy > th.ProbeSlowDescentVY && vx > th.ProbeSweepVX)
		return moving && in.HandDistance() < th.ProbeMaxHandDist
	}
}

// MarkingPredicate: secondary hand inside the marking zone moving vertically,
// with the hands apart but within reach.
func MarkingPredicate(r Regions, th Thresholds) Predicate {
	return func(in Inputs) bool {
		s := in.Secondary
		if !r.Mark.Contains(s.Center) {
			return false
		}
		d := in.HandDistance()
		return d > th.MarkMinHandDist && d < th.MarkMaxHandDist && math.Abs(s.Velocity.Y) > th.MarkMinAbsVY
	}
}

// PlaceInBoxPredicate: primary hand moving down past the box bottom edge or
// near the bottom of the frame. No region membership is required; the exit
// itself is the signal.
func PlaceInBoxPredicate(r Regions, th Thresholds) Predicate {
	return func(in Inputs) bool {
		p := in.Primary
		frameHeight := in.FrameHeight
		if frameHeight <= 0 {
			frameHeight = r.Box.Y2
		}
		nearBottom := p.Center.Y > r.Box.Y2-th.PlaceBoxMargin || p.Center.Y > frameHeight-th.PlaceFrameMargin
		return p.Velocity.Y > th.PlaceDescentVY && nearBottom
	}
}
