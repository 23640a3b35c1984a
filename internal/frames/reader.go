// Package frames reads the upstream hand detector's per-frame output.
//
// The input is JSON lines, one frame per line:
//
//	{"frame": 12, "height": 1080, "hands": [{"cx": 812, "cy": 640, "track_id": "a"}]}
//
// height and track_id are optional. Blank lines are skipped.
package frames

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/banshee-data/assembly.report/internal/detector"
	"github.com/banshee-data/assembly.report/internal/tracking"
)

// ErrMalformedFrame is wrapped by every per-line decoding error.
var ErrMalformedFrame = errors.New("malformed frame")

// maxLineSize bounds one encoded frame.
const maxLineSize = 1 << 20

type wireHand struct {
	CX      *float64 `json:"cx"`
	CY      *float64 `json:"cy"`
	TrackID string   `json:"track_id,omitempty"`
}

type wireFrame struct {
	Frame  *int64     `json:"frame"`
	Height float64    `json:"height,omitempty"`
	Hands  []wireHand `json:"hands"`
}

// Reader decodes frames from a JSON-lines stream.
type Reader struct {
	scanner *bufio.Scanner
	line    int
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader) *Reader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Reader{scanner: s}
}

// Line returns the 1-based line number of the last frame returned.
func (r *Reader) Line() int { return r.line }

// Next returns the next frame, or io.EOF once the stream is exhausted.
func (r *Reader) Next() (detector.Frame, error) {
	for r.scanner.Scan() {
		r.line++
		raw := bytes.TrimSpace(r.scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		f, err := decodeFrame(raw)
		if err != nil {
			return detector.Frame{}, fmt.Errorf("%w: line %d: %v", ErrMalformedFrame, r.line, err)
		}
		return f, nil
	}
	if err := r.scanner.Err(); err != nil {
		return detector.Frame{}, fmt.Errorf("read frames: %w", err)
	}
	return detector.Frame{}, io.EOF
}

func decodeFrame(raw []byte) (detector.Frame, error) {
	var w wireFrame
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&w); err != nil {
		return detector.Frame{}, err
	}
	if w.Frame == nil {
		return detector.Frame{}, errors.New(`missing "frame"`)
	}
	if *w.Frame < 0 {
		return detector.Frame{}, fmt.Errorf("negative frame index %d", *w.Frame)
	}
	if w.Height < 0 || math.IsInf(w.Height, 0) {
		return detector.Frame{}, fmt.Errorf("invalid height %v", w.Height)
	}

	f := detector.Frame{Index: *w.Frame, Height: w.Height}
	for i, h := range w.Hands {
		if h.CX == nil || h.CY == nil {
			return detector.Frame{}, fmt.Errorf("hand %d: missing cx/cy", i)
		}
		f.Hands = append(f.Hands, tracking.Detection{
			Center:  tracking.Point{X: *h.CX, Y: *h.CY},
			TrackID: h.TrackID,
		})
	}
	return f, nil
}

// ReadAll drains r, calling fn for every frame in order.
func ReadAll(r io.Reader, fn func(detector.Frame) error) error {
	fr := NewReader(r)
	for {
		f, err := fr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(f); err != nil {
			return err
		}
	}
}
