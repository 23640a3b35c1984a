package detector

import "github.com/banshee-data/assembly.report/internal/events"

// CycleState is derived from the log: a cycle is open while the latest
// pick-up is newer than the latest place-in-box.
type CycleState int

const (
	Idle CycleState = iota
	InCycle
)

func (s CycleState) String() string {
	if s == InCycle {
		return "in_cycle"
	}
	return "idle"
}

// CycleGate answers which kinds may be committed next. It holds no state of
// its own and reads only the cached last timestamps of the log.
type CycleGate struct {
	log *events.Log
}

// NewCycleGate returns a gate over log.
func NewCycleGate(log *events.Log) CycleGate {
	return CycleGate{log: log}
}

// State derives the current cycle state.
func (g CycleGate) State() CycleState {
	lastPick, picked := g.log.Last(events.PickUp)
	if !picked {
		return Idle
	}
	lastPlace, placed := g.log.Last(events.PlaceInBox)
	if !placed || lastPlace < lastPick {
		return InCycle
	}
	return Idle
}

// Allowed reports whether kind is legal in the current state: pick-up only
// while idle, everything else only inside a cycle.
func (g CycleGate) Allowed(kind events.Kind) bool {
	switch kind {
	case events.PickUp:
		return g.State() == Idle
	case events.ProbePass, events.Marking, events.PlaceInBox:
		return g.State() == InCycle
	}
	return false
}
