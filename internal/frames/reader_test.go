package frames

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/banshee-data/assembly.report/internal/detector"
	"github.com/banshee-data/assembly.report/internal/tracking"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReader_Next(t *testing.T) {
	t.Parallel()

	input := `{"frame": 1, "hands": []}

{"frame": 2, "height": 1080, "hands": [{"cx": 812, "cy": 640, "track_id": "a"}, {"cx": 1300.5, "cy": 700}]}
   {"frame": 3}
`
	r := NewReader(strings.NewReader(input))

	var got []detector.Frame
	for {
		f, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		got = append(got, f)
	}

	want := []detector.Frame{
		{Index: 1},
		{Index: 2, Height: 1080, Hands: []tracking.Detection{
			{Center: tracking.Point{X: 812, Y: 640}, TrackID: "a"},
			{Center: tracking.Point{X: 1300.5, Y: 700}},
		}},
		{Index: 3},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("frames mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 4, r.Line())

	_, err := r.Next()
	assert.ErrorIs(t, err, io.EOF, "EOF is sticky")
}

func TestReader_Malformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		line  string
	}{
		{"not json", "{\"frame\": 1}\nnope\n", "line 2"},
		{"missing frame", `{"hands": []}`, "line 1"},
		{"negative frame", `{"frame": -4}`, "line 1"},
		{"missing cy", `{"frame": 1, "hands": [{"cx": 3}]}`, "line 1"},
		{"string coordinate", `{"frame": 1, "hands": [{"cx": "3", "cy": 4}]}`, "line 1"},
		{"unknown field", `{"frame": 1, "hand": []}`, "line 1"},
		{"negative height", "\n\n{\"frame\": 1, \"height\": -1}", "line 3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader(strings.NewReader(tt.input))
			var err error
			for err == nil {
				_, err = r.Next()
			}
			require.ErrorIs(t, err, ErrMalformedFrame)
			assert.Contains(t, err.Error(), tt.line)
		})
	}
}

func TestReadAll(t *testing.T) {
	t.Parallel()

	var indices []int64
	err := ReadAll(strings.NewReader("{\"frame\": 5}\n{\"frame\": 6}\n"), func(f detector.Frame) error {
		indices = append(indices, f.Index)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 6}, indices)

	stop := errors.New("stop")
	err = ReadAll(strings.NewReader("{\"frame\": 5}\n{\"frame\": 6}\n"), func(detector.Frame) error { return stop })
	assert.ErrorIs(t, err, stop)
}
