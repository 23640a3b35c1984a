package analysis

import (
	"bytes"
	"image/png"
	"strings"
	"testing"

	"github.com/banshee-data/assembly.report/internal/events"
	"github.com/banshee-data/assembly.report/internal/fsutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildLog(t *testing.T, times map[events.Kind][]float64) *events.Log {
	t.Helper()
	l := events.NewLog()
	for kind, ts := range times {
		for _, at := range ts {
			require.NoError(t, l.Append(kind, at))
		}
	}
	return l
}

func TestAnalyze_TwoOperations(t *testing.T) {
	t.Parallel()

	l := buildLog(t, map[events.Kind][]float64{
		events.PickUp:     {5.63, 9.90},
		events.PlaceInBox: {8.97, 12.8},
		events.ProbePass:  {6.53},
	})
	r := Analyze(l)

	require.Equal(t, 2, r.Total())
	assert.InDeltaSlice(t, []float64{3.34, 2.9}, r.Durations(), 1e-9)
	assert.InDelta(t, 3.12, r.AverageDuration, 1e-9)
	assert.Equal(t, 1, r.WithProbe)
	assert.InDelta(t, 50.0, r.ProbePercent, 1e-9)
	assert.Equal(t, 0, r.WithMarking)
	assert.InDelta(t, 0.0, r.MarkingPercent, 1e-9)
	assert.True(t, r.Operations[0].Probed)
	assert.False(t, r.Operations[1].Probed)

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, r))
	assert.Equal(t, `--- Operation Analysis ---
Total operations: 2
Average operation duration: 3.12 s
Operations with probe pass: 1/2 (50.0%)
Operations with marking: 0/2 (0.0%)
`, buf.String())
}

func TestAnalyze_EmptyLog(t *testing.T) {
	t.Parallel()

	r := Analyze(events.NewLog())
	assert.Equal(t, 0, r.Total())
	assert.Zero(t, r.AverageDuration)
	assert.Zero(t, r.ProbePercent)
	assert.Empty(t, r.Durations())

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, r))
	assert.Contains(t, buf.String(), "Total operations: 0\n")
	assert.Contains(t, buf.String(), "Operations with marking: 0/0 (0.0%)")
}

func TestAnalyze_TruncatesToShorterList(t *testing.T) {
	t.Parallel()

	// An open cycle at the end has no place_in_box yet.
	l := buildLog(t, map[events.Kind][]float64{
		events.PickUp:     {1, 10, 20},
		events.PlaceInBox: {5, 14},
		events.Marking:    {21},
	})
	r := Analyze(l)
	assert.Equal(t, 2, r.Total())
	assert.Equal(t, 0, r.WithMarking, "marking after the last paired place does not count")
	assert.Equal(t, map[string]int{"pick_up": 3, "probe_pass": 0, "marking": 1, "place_in_box": 2}, r.EventCounts)
}

func TestAnalyze_BoundaryEventsAreExcluded(t *testing.T) {
	t.Parallel()

	l := buildLog(t, map[events.Kind][]float64{
		events.PickUp:     {2},
		events.PlaceInBox: {6},
		events.ProbePass:  {2, 6},
	})
	r := Analyze(l)
	assert.Equal(t, 0, r.WithProbe)
}

func TestAnalyze_StationTimeline(t *testing.T) {
	t.Parallel()

	l, err := events.Load(fsutil.OSFileSystem{}, "testdata/station_events.json")
	require.NoError(t, err)

	r := Analyze(l)
	assert.Equal(t, 11, r.Total())
	assert.InDelta(t, 3.4045, r.AverageDuration, 1e-3)
	assert.Equal(t, 9, r.WithProbe)
	assert.Equal(t, 10, r.WithMarking)

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, r))
	assert.Contains(t, buf.String(), "Average operation duration: 3.40 s")
	assert.Contains(t, buf.String(), "Operations with probe pass: 9/11 (81.8%)")
	assert.Contains(t, buf.String(), "Operations with marking: 10/11 (90.9%)")
}

func TestWriteDurationPNG(t *testing.T) {
	t.Parallel()

	l, err := events.Load(fsutil.OSFileSystem{}, "testdata/station_events.json")
	require.NoError(t, err)

	for name, r := range map[string]Report{"station": Analyze(l), "empty": Analyze(events.NewLog())} {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WriteDurationPNG(&buf, r, "Operation durations"))
			img, err := png.Decode(&buf)
			require.NoError(t, err)
			assert.Positive(t, img.Bounds().Dx())
		})
	}
}

func TestWriteTimelineHTML(t *testing.T) {
	t.Parallel()

	l := buildLog(t, map[events.Kind][]float64{
		events.PickUp:     {1.5},
		events.PlaceInBox: {4.25},
	})

	var buf bytes.Buffer
	require.NoError(t, WriteTimelineHTML(&buf, l, "Session timeline"))
	html := buf.String()
	assert.True(t, strings.Contains(html, "<html"), "expected an HTML document")
	assert.Contains(t, html, "Session timeline")
	for _, k := range events.AllKinds() {
		assert.Contains(t, html, k.String())
	}
	assert.Contains(t, html, "4.25")
}
