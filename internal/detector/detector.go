package detector

import (
	"errors"
	"fmt"

	"github.com/banshee-data/assembly.report/internal/events"
	"github.com/banshee-data/assembly.report/internal/monitoring"
	"github.com/banshee-data/assembly.report/internal/tracking"
)

// ErrNotAllowed is returned by Commit when the cycle state or the kind's own
// cooldown forbids the commit.
var ErrNotAllowed = errors.New("commit not allowed")

// Frame is one frame of upstream detections.
type Frame struct {
	Index  int64
	Height float64 // frame height in pixels; 0 when not supplied
	Hands  []tracking.Detection
}

// Detector is the online event-detection state machine for one session.
//
// Update must be called once per frame in increasing frame order. A Detector
// is not safe for concurrent use.
type Detector struct {
	cfg      Config
	rules    []Rule
	binder   *tracking.Binder
	smoother *tracking.PositionSmoother

	log       *events.Log
	cooldowns CooldownTracker

	started   bool
	lastIndex int64
	smoothed  []tracking.SmoothedState
}

// New validates cfg and returns a detector with an empty log.
func New(cfg Config) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	smoother, err := tracking.NewPositionSmoother(cfg.WindowSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return &Detector{
		cfg:      cfg,
		rules:    Rules(cfg),
		binder:   tracking.NewBinder(cfg.Binding),
		smoother: smoother,
		log:      events.NewLog(),
	}, nil
}

// Config returns the construction-time configuration.
func (d *Detector) Config() Config { return d.cfg }

// Timestamp converts a frame index to seconds.
func (d *Detector) Timestamp(index int64) float64 {
	return float64(index) / d.cfg.FPS
}

// Update smooths the frame's detections and commits every kind whose gate,
// cooldowns and predicate all pass, in evaluation order. It returns the
// records committed for this frame, usually none.
//
// Frames that do not advance past the last processed index are dropped
// without touching any state.
func (d *Detector) Update(f Frame) []events.Record {
	if d.started && f.Index <= d.lastIndex {
		monitoring.Logf("detector: dropping frame %d (last processed %d)", f.Index, d.lastIndex)
		return nil
	}
	d.started = true
	d.lastIndex = f.Index

	obs := d.binder.Bind(f.Hands)
	d.smoothed = d.smoothed[:0]
	for _, o := range obs {
		d.smoothed = append(d.smoothed, d.smoother.Observe(o.Slot, o.Center))
	}
	if len(d.smoothed) < 2 {
		return nil
	}

	t := d.Timestamp(f.Index)
	in := Inputs{Primary: d.smoothed[0], Secondary: d.smoothed[1], FrameHeight: f.Height}

	var fired []events.Record
	for _, kind := range d.evaluate(d.log, &d.cooldowns, in, t) {
		fired = append(fired, events.Record{Kind: kind, Timestamp: t})
		monitoring.Debugf("detector: frame %d committed %s at %.3fs", f.Index, kind, t)
	}
	return fired
}

// Evaluate is a dry run of Update's decision step for already smoothed
// states: it reports which kinds would be committed at t, including the
// effect of earlier commits in the same frame, without changing the log or
// the cooldowns.
func (d *Detector) Evaluate(states []tracking.SmoothedState, t, frameHeight float64) []events.Kind {
	if len(states) < 2 {
		return nil
	}
	log := d.log.Clone()
	cooldowns := d.cooldowns
	in := Inputs{Primary: states[0], Secondary: states[1], FrameHeight: frameHeight}
	return d.evaluate(log, &cooldowns, in, t)
}

// evaluate walks the rule table against the given state, committing into it.
func (d *Detector) evaluate(log *events.Log, cooldowns *CooldownTracker, in Inputs, t float64) []events.Kind {
	var fired []events.Kind
	for _, rule := range d.rules {
		if !d.candidate(log, cooldowns, rule, t) {
			continue
		}
		if !rule.Predicate(in) {
			continue
		}
		if err := commit(log, cooldowns, rule, t); err != nil {
			monitoring.Logf("detector: %s at %.3fs not committed: %v", rule.Kind, t, err)
			continue
		}
		fired = append(fired, rule.Kind)
	}
	return fired
}

// candidate applies the gate, the kind's own cooldown and its couplings.
func (d *Detector) candidate(log *events.Log, cooldowns *CooldownTracker, rule Rule, t float64) bool {
	if !NewCycleGate(log).Allowed(rule.Kind) {
		return false
	}
	if !cooldowns.Ready(rule.Kind, t, rule.Cooldown) {
		return false
	}
	for _, c := range rule.Couplings {
		if !cooldowns.Ready(c.After, t, c.MinInterval) {
			monitoring.Debugf("detector: %s at %.3fs held by %s cooldown", rule.Kind, t, c.After)
			return false
		}
	}
	return true
}

// commit is the only path that mutates the log and cooldowns.
func commit(log *events.Log, cooldowns *CooldownTracker, rule Rule, t float64) error {
	if !NewCycleGate(log).Allowed(rule.Kind) {
		return fmt.Errorf("%w: %s while %s", ErrNotAllowed, rule.Kind, NewCycleGate(log).State())
	}
	if !cooldowns.Ready(rule.Kind, t, rule.Cooldown) {
		return fmt.Errorf("%w: %s still cooling down", ErrNotAllowed, rule.Kind)
	}
	if err := log.Append(rule.Kind, t); err != nil {
		return err
	}
	cooldowns.mark(rule.Kind, t)
	return nil
}

// Commit records kind at t outside of Update, for replaying externally
// decided events. The cycle gate and the kind's own cooldown still apply;
// couplings and predicates do not.
func (d *Detector) Commit(kind events.Kind, t float64) error {
	for _, rule := range d.rules {
		if rule.Kind == kind {
			return commit(d.log, &d.cooldowns, rule, t)
		}
	}
	return fmt.Errorf("%w: unknown kind %s", ErrNotAllowed, kind)
}

// Log returns a snapshot of the event log.
func (d *Detector) Log() *events.Log { return d.log.Clone() }

// State returns the current cycle state.
func (d *Detector) State() CycleState { return NewCycleGate(d.log).State() }

// LastCommit returns when kind was last committed.
func (d *Detector) LastCommit(kind events.Kind) (float64, bool) { return d.cooldowns.Last(kind) }

// Smoothed returns the smoothed, role-ordered hands of the last processed
// frame.
func (d *Detector) Smoothed() []tracking.SmoothedState {
	out := make([]tracking.SmoothedState, len(d.smoothed))
	copy(out, d.smoothed)
	return out
}
