package detector

import "github.com/banshee-data/assembly.report/internal/events"

// CooldownTracker remembers the last commit time per kind.
type CooldownTracker struct {
	last [events.NumKinds]float64
	set  [events.NumKinds]bool
}

// Ready reports whether kind has never been committed or at least
// minInterval seconds have passed since its last commit.
func (c *CooldownTracker) Ready(kind events.Kind, now, minInterval float64) bool {
	if !kind.Valid() {
		return false
	}
	if !c.set[kind] {
		return true
	}
	return now-c.last[kind] >= minInterval
}

// Last returns the last commit time of kind.
func (c *CooldownTracker) Last(kind events.Kind) (float64, bool) {
	if !kind.Valid() {
		return 0, false
	}
	return c.last[kind], c.set[kind]
}

// mark is called only from the commit path.
func (c *CooldownTracker) mark(kind events.Kind, t float64) {
	c.last[kind] = t
	c.set[kind] = true
}
