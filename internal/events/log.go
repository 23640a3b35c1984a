package events

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrNonMonotonic is returned by Append when a timestamp does not advance
// past the previous one of the same kind.
var ErrNonMonotonic = errors.New("event timestamps must be strictly increasing per kind")

// Log is the append-only event timeline: per kind, the commit timestamps in
// seconds, oldest first. The zero value is an empty, usable log.
type Log struct {
	times [numKinds][]float64
}

// NewLog returns an empty log.
func NewLog() *Log { return &Log{} }

// Append records kind at t. It refuses timestamps that are not strictly
// greater than the last one of the same kind, and non-finite or negative
// values.
func (l *Log) Append(kind Kind, t float64) error {
	if !kind.Valid() {
		return fmt.Errorf("append: invalid event kind %d", uint8(kind))
	}
	if math.IsNaN(t) || math.IsInf(t, 0) || t < 0 {
		return fmt.Errorf("append %s: invalid timestamp %v", kind, t)
	}
	if last, ok := l.Last(kind); ok && t <= last {
		return fmt.Errorf("append %s at %.3f after %.3f: %w", kind, t, last, ErrNonMonotonic)
	}
	l.times[kind] = append(l.times[kind], t)
	return nil
}

// Last returns the most recent timestamp of kind.
func (l *Log) Last(kind Kind) (float64, bool) {
	if !kind.Valid() {
		return 0, false
	}
	ts := l.times[kind]
	if len(ts) == 0 {
		return 0, false
	}
	return ts[len(ts)-1], true
}

// Len returns how many events of kind were committed.
func (l *Log) Len(kind Kind) int {
	if !kind.Valid() {
		return 0
	}
	return len(l.times[kind])
}

// Times returns a copy of the timestamps of kind.
func (l *Log) Times(kind Kind) []float64 {
	if !kind.Valid() {
		return nil
	}
	out := make([]float64, len(l.times[kind]))
	copy(out, l.times[kind])
	return out
}

// Total returns the number of events across all kinds.
func (l *Log) Total() int {
	n := 0
	for _, ts := range l.times {
		n += len(ts)
	}
	return n
}

// Counts returns the number of events per kind name.
func (l *Log) Counts() map[string]int {
	out := make(map[string]int, numKinds)
	for _, k := range AllKinds() {
		out[k.String()] = len(l.times[k])
	}
	return out
}

// Records flattens the log into a single timeline ordered by timestamp, ties
// broken by evaluation order.
func (l *Log) Records() []Record {
	out := make([]Record, 0, l.Total())
	for _, k := range AllKinds() {
		for _, t := range l.times[k] {
			out = append(out, Record{Kind: k, Timestamp: t})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp < out[j].Timestamp
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}

// Clone returns a deep copy.
func (l *Log) Clone() *Log {
	c := &Log{}
	for k := range l.times {
		c.times[k] = append([]float64(nil), l.times[k]...)
	}
	return c
}

// FromRecords rebuilds a log from records in commit order.
func FromRecords(records []Record) (*Log, error) {
	l := NewLog()
	for i, r := range records {
		if err := l.Append(r.Kind, r.Timestamp); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
	}
	return l, nil
}
