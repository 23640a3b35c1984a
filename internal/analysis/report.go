// Package analysis computes per-operation statistics from a saved event log.
package analysis

import (
	"fmt"
	"io"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/assembly.report/internal/events"
)

// Operation is one pick_up paired with the place_in_box of the same index.
type Operation struct {
	Index      int     `json:"index"`
	PickUp     float64 `json:"pick_up_s"`
	PlaceInBox float64 `json:"place_in_box_s"`
	Duration   float64 `json:"duration_s"`
	Probed     bool    `json:"probed"`
	Marked     bool    `json:"marked"`
}

// Report summarises the operations in a log.
type Report struct {
	Operations      []Operation    `json:"operations"`
	AverageDuration float64        `json:"average_duration_s"`
	WithProbe       int            `json:"with_probe"`
	WithMarking     int            `json:"with_marking"`
	ProbePercent    float64        `json:"probe_percent"`
	MarkingPercent  float64        `json:"marking_percent"`
	EventCounts     map[string]int `json:"event_counts"`
}

// Total is the number of paired operations.
func (r Report) Total() int { return len(r.Operations) }

// Durations returns the operation durations in pairing order.
func (r Report) Durations() []float64 {
	out := make([]float64, len(r.Operations))
	for i, op := range r.Operations {
		out[i] = op.Duration
	}
	return out
}

// Analyze pairs the i-th pick_up with the i-th place_in_box, truncating to
// the shorter list. An operation counts as probed or marked when at least one
// such event lies strictly between its pick_up and place_in_box.
func Analyze(l *events.Log) Report {
	picks := l.Times(events.PickUp)
	places := l.Times(events.PlaceInBox)
	probes := l.Times(events.ProbePass)
	marks := l.Times(events.Marking)

	n := min(len(picks), len(places))
	r := Report{
		Operations:  make([]Operation, 0, n),
		EventCounts: l.Counts(),
	}
	for i := 0; i < n; i++ {
		op := Operation{
			Index:      i,
			PickUp:     picks[i],
			PlaceInBox: places[i],
			Duration:   places[i] - picks[i],
			Probed:     anyBetween(probes, picks[i], places[i]),
			Marked:     anyBetween(marks, picks[i], places[i]),
		}
		if op.Probed {
			r.WithProbe++
		}
		if op.Marked {
			r.WithMarking++
		}
		r.Operations = append(r.Operations, op)
	}
	if n > 0 {
		r.AverageDuration = stat.Mean(r.Durations(), nil)
		r.ProbePercent = 100 * float64(r.WithProbe) / float64(n)
		r.MarkingPercent = 100 * float64(r.WithMarking) / float64(n)
	}
	return r
}

func anyBetween(ts []float64, lo, hi float64) bool {
	for _, t := range ts {
		if lo < t && t < hi {
			return true
		}
	}
	return false
}

// WriteText prints the operator-facing summary.
func WriteText(w io.Writer, r Report) error {
	n := r.Total()
	_, err := fmt.Fprintf(w,
		"--- Operation Analysis ---\n"+
			"Total operations: %d\n"+
			"Average operation duration: %.2f s\n"+
			"Operations with probe pass: %d/%d (%.1f%%)\n"+
			"Operations with marking: %d/%d (%.1f%%)\n",
		n, r.AverageDuration,
		r.WithProbe, n, r.ProbePercent,
		r.WithMarking, n, r.MarkingPercent,
	)
	return err
}
