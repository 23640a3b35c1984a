package events

import "fmt"

// Kind identifies one step of the assembly cycle.
type Kind uint8

// Kinds in evaluation order. The order is part of the detector's contract:
// within a frame, later kinds see commits made by earlier ones.
const (
	PickUp Kind = iota
	ProbePass
	Marking
	PlaceInBox

	numKinds
)

// NumKinds is the number of event kinds.
const NumKinds = int(numKinds)

var kindNames = [numKinds]string{
	PickUp:     "pick_up",
	ProbePass:  "probe_pass",
	Marking:    "marking",
	PlaceInBox: "place_in_box",
}

// AllKinds returns every kind in evaluation order.
func AllKinds() []Kind {
	return []Kind{PickUp, ProbePass, Marking, PlaceInBox}
}

// String returns the wire name of the kind, e.g. "pick_up".
func (k Kind) String() string {
	if k < numKinds {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Valid reports whether k is one of the four known kinds.
func (k Kind) Valid() bool { return k < numKinds }

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid event kind %d", uint8(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseKind maps a wire name back to its Kind.
func ParseKind(s string) (Kind, error) {
	for i, name := range kindNames {
		if name == s {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown event kind %q", s)
}

// Record is one committed event.
type Record struct {
	Kind      Kind    `json:"kind"`
	Timestamp float64 `json:"timestamp_s"`
}
