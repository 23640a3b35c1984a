package events

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/banshee-data/assembly.report/internal/fsutil"
)

// ErrMalformedLog marks an event timeline artifact that cannot be trusted.
// Statistics computed from a partially read file would be silently wrong, so
// callers must treat it as fatal.
var ErrMalformedLog = errors.New("malformed event log")

// maxLogFileSize caps artifacts read from disk (10MB is hours of events).
const maxLogFileSize = 10 * 1024 * 1024

// wireLog fixes the key order of the artifact to the evaluation order.
type wireLog struct {
	PickUp     []float64 `json:"pick_up"`
	ProbePass  []float64 `json:"probe_pass"`
	Marking    []float64 `json:"marking"`
	PlaceInBox []float64 `json:"place_in_box"`
}

func nonNil(ts []float64) []float64 {
	if ts == nil {
		return []float64{}
	}
	return ts
}

// MarshalJSON encodes the log as {"pick_up": [...], "probe_pass": [...], ...}.
func (l *Log) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireLog{
		PickUp:     nonNil(l.times[PickUp]),
		ProbePass:  nonNil(l.times[ProbePass]),
		Marking:    nonNil(l.times[Marking]),
		PlaceInBox: nonNil(l.times[PlaceInBox]),
	})
}

// UnmarshalJSON decodes and validates an artifact. Missing kinds are empty;
// unknown keys, null values, non-numeric entries, negative timestamps and
// timestamps that do not strictly increase within a kind are rejected with
// ErrMalformedLog.
func (l *Log) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedLog, err)
	}
	if raw == nil {
		return fmt.Errorf("%w: expected an object, got null", ErrMalformedLog)
	}

	parsed := &Log{}
	for key, value := range raw {
		kind, err := ParseKind(key)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedLog, err)
		}
		if bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
			return fmt.Errorf("%w: %s is null", ErrMalformedLog, key)
		}
		var ts []float64
		if err := json.Unmarshal(value, &ts); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrMalformedLog, key, err)
		}
		for i, t := range ts {
			if err := parsed.Append(kind, t); err != nil {
				return fmt.Errorf("%w: %s[%d]: %v", ErrMalformedLog, key, i, err)
			}
		}
	}
	*l = *parsed
	return nil
}

// Encode writes the log as indented JSON.
func Encode(w io.Writer, l *Log) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	return enc.Encode(l)
}

// Decode reads exactly one log object from r.
func Decode(r io.Reader) (*Log, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxLogFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read event log: %w", err)
	}
	if len(data) > maxLogFileSize {
		return nil, fmt.Errorf("%w: larger than %d bytes", ErrMalformedLog, maxLogFileSize)
	}
	l := NewLog()
	if err := json.Unmarshal(data, l); err != nil {
		if errors.Is(err, ErrMalformedLog) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedLog, err)
	}
	return l, nil
}

// Save writes the log to path as a whole-file replacement.
func Save(fsys fsutil.FileSystem, path string, l *Log) error {
	if ext := filepath.Ext(path); ext != ".json" {
		return fmt.Errorf("event log must have .json extension, got %q", ext)
	}
	var buf bytes.Buffer
	if err := Encode(&buf, l); err != nil {
		return fmt.Errorf("failed to encode event log: %w", err)
	}
	if err := fsutil.WriteFileAtomic(fsys, path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to save event log: %w", err)
	}
	return nil
}

// Load reads and validates the artifact at path.
func Load(fsys fsutil.FileSystem, path string) (*Log, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open event log: %w", err)
	}
	defer f.Close()

	l, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return l, nil
}
