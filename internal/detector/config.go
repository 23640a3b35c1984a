package detector

import (
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/assembly.report/internal/events"
	"github.com/banshee-data/assembly.report/internal/tracking"
)

// ErrInvalidConfig wraps every construction-time configuration failure.
var ErrInvalidConfig = errors.New("invalid detector configuration")

// Thresholds are the motion and distance limits used by the predicates.
// Velocities are in pixels per frame of the smoothed center; distances in
// pixels. Y grows downwards.
type Thresholds struct {
	PickUpFastRiseVY float64 `json:"pick_up_fast_rise_vy"` // vy below this alone fires
	PickUpRiseVY     float64 `json:"pick_up_rise_vy"`      // vy below this with a sideways sweep
	PickUpSweepVX    float64 `json:"pick_up_sweep_vx"`

	ProbeDescentVY     float64 `json:"probe_descent_vy"`
	ProbeSlowDescentVY float64 `json:"probe_slow_descent_vy"`
	ProbeSweepVX       float64 `json:"probe_sweep_vx"`
	ProbeMaxHandDist   float64 `json:"probe_max_hand_dist"`

	MarkMinHandDist float64 `json:"mark_min_hand_dist"`
	MarkMaxHandDist float64 `json:"mark_max_hand_dist"`
	MarkMinAbsVY    float64 `json:"mark_min_abs_vy"`

	PlaceDescentVY   float64 `json:"place_descent_vy"`
	PlaceBoxMargin   float64 `json:"place_box_margin"`   // above the box bottom edge
	PlaceFrameMargin float64 `json:"place_frame_margin"` // above the frame bottom
}

// DefaultThresholds returns the production thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		PickUpFastRiseVY: -30,
		PickUpRiseVY:     -10,
		PickUpSweepVX:    30,

		ProbeDescentVY:     15,
		ProbeSlowDescentVY: 10,
		ProbeSweepVX:       10,
		ProbeMaxHandDist:   400,

		MarkMinHandDist: 200,
		MarkMaxHandDist: 600,
		MarkMinAbsVY:    10,

		PlaceDescentVY:   15,
		PlaceBoxMargin:   10,
		PlaceFrameMargin: 20,
	}
}

func (t Thresholds) validate() error {
	values := map[string]float64{
		"pick_up_fast_rise_vy": t.PickUpFastRiseVY, "pick_up_rise_vy": t.PickUpRiseVY,
		"pick_up_sweep_vx": t.PickUpSweepVX, "probe_descent_vy": t.ProbeDescentVY,
		"probe_slow_descent_vy": t.ProbeSlowDescentVY, "probe_sweep_vx": t.ProbeSweepVX,
		"probe_max_hand_dist": t.ProbeMaxHandDist, "mark_min_hand_dist": t.MarkMinHandDist,
		"mark_max_hand_dist": t.MarkMaxHandDist, "mark_min_abs_vy": t.MarkMinAbsVY,
		"place_descent_vy": t.PlaceDescentVY, "place_box_margin": t.PlaceBoxMargin,
		"place_frame_margin": t.PlaceFrameMargin,
	}
	for name, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("threshold %s must be finite", name)
		}
	}
	if t.ProbeMaxHandDist <= 0 {
		return fmt.Errorf("probe_max_hand_dist must be positive, got %g", t.ProbeMaxHandDist)
	}
	if t.MarkMinHandDist < 0 || t.MarkMaxHandDist <= t.MarkMinHandDist {
		return fmt.Errorf("mark hand distance band (%g, %g) is empty", t.MarkMinHandDist, t.MarkMaxHandDist)
	}
	if t.MarkMinAbsVY < 0 {
		return fmt.Errorf("mark_min_abs_vy must be non-negative, got %g", t.MarkMinAbsVY)
	}
	return nil
}

// Cooldowns are minimum intervals in seconds. The per-kind values separate
// two commits of the same kind; the coupled values gate a kind on the time
// since a different kind last fired.
type Cooldowns struct {
	PickUp     float64 `json:"pick_up"`
	ProbePass  float64 `json:"probe_pass"`
	Marking    float64 `json:"marking"`
	PlaceInBox float64 `json:"place_in_box"`

	ProbeAfterPickUp  float64 `json:"probe_after_pick_up"`
	MarkingAfterProbe float64 `json:"marking_after_probe"`
}

// DefaultCooldowns returns 2s per kind, 0.5s between a pick-up and a probe
// pass and 1s between a probe pass and a marking.
func DefaultCooldowns() Cooldowns {
	return Cooldowns{
		PickUp:            2.0,
		ProbePass:         2.0,
		Marking:           2.0,
		PlaceInBox:        2.0,
		ProbeAfterPickUp:  0.5,
		MarkingAfterProbe: 1.0,
	}
}

// For returns the own-kind minimum interval.
func (c Cooldowns) For(kind events.Kind) float64 {
	switch kind {
	case events.PickUp:
		return c.PickUp
	case events.ProbePass:
		return c.ProbePass
	case events.Marking:
		return c.Marking
	case events.PlaceInBox:
		return c.PlaceInBox
	}
	return 0
}

func (c Cooldowns) validate() error {
	values := map[string]float64{
		"pick_up": c.PickUp, "probe_pass": c.ProbePass, "marking": c.Marking,
		"place_in_box": c.PlaceInBox, "probe_after_pick_up": c.ProbeAfterPickUp,
		"marking_after_probe": c.MarkingAfterProbe,
	}
	for name, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("cooldown %s must be a non-negative number of seconds, got %v", name, v)
		}
	}
	return nil
}

// Config is fixed at construction for the lifetime of a Detector.
type Config struct {
	FPS        float64              `json:"fps"`
	WindowSize int                  `json:"window_size"`
	Binding    tracking.BindingMode `json:"binding"`
	Regions    Regions              `json:"regions"`
	Thresholds Thresholds           `json:"thresholds"`
	Cooldowns  Cooldowns            `json:"cooldowns"`
}

// DefaultConfig returns the production configuration at 30 fps.
func DefaultConfig() Config {
	return Config{
		FPS:        30,
		WindowSize: tracking.DefaultWindowSize,
		Binding:    tracking.BindPositional,
		Regions:    DefaultRegions(),
		Thresholds: DefaultThresholds(),
		Cooldowns:  DefaultCooldowns(),
	}
}

// Validate reports the first configuration problem, wrapped in
// ErrInvalidConfig.
func (c Config) Validate() error {
	if math.IsNaN(c.FPS) || math.IsInf(c.FPS, 0) || c.FPS <= 0 {
		return fmt.Errorf("%w: fps must be positive, got %v", ErrInvalidConfig, c.FPS)
	}
	if c.WindowSize <= 0 {
		return fmt.Errorf("%w: window_size must be positive, got %d", ErrInvalidConfig, c.WindowSize)
	}
	if _, err := tracking.ParseBindingMode(string(c.Binding)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := c.Regions.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := c.Thresholds.validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := c.Cooldowns.validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}
