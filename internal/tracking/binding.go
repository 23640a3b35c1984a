package tracking

import (
	"fmt"
	"sort"
	"strconv"
)

// BindingMode selects how per-frame detections are mapped to smoother slots
// and to the primary/secondary roles.
type BindingMode string

const (
	// BindPositional orders detections left to right every frame; slot i is
	// the i-th detection from the left. Roles follow horizontal order, so a
	// hand crossing over the other swaps roles.
	BindPositional BindingMode = "positional"

	// BindTrackID keys slots by the upstream track id and latches roles the
	// first time two tracks are seen together.
	BindTrackID BindingMode = "track_id"
)

// ParseBindingMode validates a binding mode name. Empty means positional.
func ParseBindingMode(s string) (BindingMode, error) {
	switch BindingMode(s) {
	case "", BindPositional:
		return BindPositional, nil
	case BindTrackID:
		return BindTrackID, nil
	}
	return "", fmt.Errorf("unknown binding mode %q (want %q or %q)", s, BindPositional, BindTrackID)
}

// Detection is one hand reported by the upstream detector for a frame.
type Detection struct {
	Center  Point
	TrackID string // optional, set by trackers that keep identities
}

// Observation is a detection bound to a smoother slot.
type Observation struct {
	Slot   string
	Center Point
}

// Binder turns an unordered set of detections into role-ordered observations:
// element 0 is the primary hand, element 1 the secondary, the rest follow left
// to right.
type Binder struct {
	mode      BindingMode
	primary   string
	secondary string
}

// NewBinder returns a binder for mode.
func NewBinder(mode BindingMode) *Binder {
	if mode == "" {
		mode = BindPositional
	}
	return &Binder{mode: mode}
}

// Mode returns the binder's mode.
func (b *Binder) Mode() BindingMode { return b.mode }

// Bind orders dets and assigns slot ids. dets is not modified.
func (b *Binder) Bind(dets []Detection) []Observation {
	sorted := make([]Detection, len(dets))
	copy(sorted, dets)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Center.X < sorted[j].Center.X })

	if b.mode != BindTrackID || !uniquelyTracked(sorted) {
		obs := make([]Observation, len(sorted))
		for i, d := range sorted {
			obs[i] = Observation{Slot: strconv.Itoa(i), Center: d.Center}
		}
		return obs
	}

	if len(sorted) >= 2 && !(contains(sorted, b.primary) && contains(sorted, b.secondary)) {
		b.primary, b.secondary = sorted[0].TrackID, sorted[1].TrackID
	}

	obs := make([]Observation, 0, len(sorted))
	for _, id := range []string{b.primary, b.secondary} {
		for _, d := range sorted {
			if d.TrackID == id {
				obs = append(obs, Observation{Slot: "track:" + id, Center: d.Center})
				break
			}
		}
	}
	for _, d := range sorted {
		if d.TrackID != b.primary && d.TrackID != b.secondary {
			obs = append(obs, Observation{Slot: "track:" + d.TrackID, Center: d.Center})
		}
	}
	return obs
}

// uniquelyTracked reports whether every detection carries a distinct track id.
func uniquelyTracked(dets []Detection) bool {
	seen := make(map[string]bool, len(dets))
	for _, d := range dets {
		if d.TrackID == "" || seen[d.TrackID] {
			return false
		}
		seen[d.TrackID] = true
	}
	return true
}

func contains(dets []Detection, id string) bool {
	if id == "" {
		return false
	}
	for _, d := range dets {
		if d.TrackID == id {
			return true
		}
	}
	return false
}
