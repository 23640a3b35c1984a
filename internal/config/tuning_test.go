package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/banshee-data/assembly.report/internal/detector"
	"github.com/banshee-data/assembly.report/internal/fsutil"
	"github.com/banshee-data/assembly.report/internal/tracking"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptyTuningConfigResolvesToDefaults(t *testing.T) {
	t.Parallel()

	got, err := DetectorConfigFromTuning(EmptyTuningConfig())
	require.NoError(t, err)
	if diff := cmp.Diff(detector.DefaultConfig(), got); diff != "" {
		t.Errorf("DetectorConfigFromTuning(empty) mismatch (-want +got):\n%s", diff)
	}

	fromNil, err := DetectorConfigFromTuning(nil)
	require.NoError(t, err)
	assert.Equal(t, got, fromNil)
}

func TestDefaultTuningConfigRoundTrip(t *testing.T) {
	t.Parallel()

	cfg := DefaultTuningConfig()
	require.NoError(t, cfg.Validate())
	got, err := DetectorConfigFromTuning(cfg)
	require.NoError(t, err)
	if diff := cmp.Diff(detector.DefaultConfig(), got); diff != "" {
		t.Errorf("DetectorConfigFromTuning(defaults) mismatch (-want +got):\n%s", diff)
	}
}

func TestTuningConfigFromDetectorRoundTrip(t *testing.T) {
	t.Parallel()

	want := detector.DefaultConfig()
	want.FPS = 25
	want.WindowSize = 3
	want.Binding = tracking.BindTrackID
	want.Cooldowns.Marking = 3.5
	want.Thresholds.PlaceBoxMargin = 40

	tuning := TuningConfigFromDetector(want)
	assert.Nil(t, tuning.MinInterval)
	require.NoError(t, tuning.Validate())

	got, err := DetectorConfigFromTuning(tuning)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestCheckedInDefaultsMatchCode(t *testing.T) {
	t.Parallel()

	cfg, err := LoadTuningConfig(filepath.Join("..", "..", DefaultConfigPath))
	require.NoError(t, err)
	if diff := cmp.Diff(DefaultTuningConfig(), cfg); diff != "" {
		t.Errorf("%s drifted from DefaultTuningConfig (-want +got):\n%s", DefaultConfigPath, diff)
	}
}

func TestLoadTuningConfig(t *testing.T) {
	t.Parallel()

	configPath := filepath.Join(t.TempDir(), "station.json")
	testJSON := `{
  "fps": 25,
  "binding": "track_id",
  "box_region": [0, 400, 1000, 800],
  "min_interval": 3,
  "marking_cooldown": 1.5,
  "mark_min_hand_dist": 150
}`
	require.NoError(t, os.WriteFile(configPath, []byte(testJSON), 0644))

	cfg, err := LoadTuningConfig(configPath)
	require.NoError(t, err)

	got, err := DetectorConfigFromTuning(cfg)
	require.NoError(t, err)

	want := detector.DefaultConfig()
	want.FPS = 25
	want.Binding = tracking.BindTrackID
	want.Regions.Box = detector.Rect(0, 400, 1000, 800)
	want.Cooldowns.PickUp = 3
	want.Cooldowns.ProbePass = 3
	want.Cooldowns.Marking = 1.5
	want.Cooldowns.PlaceInBox = 3
	want.Thresholds.MarkMinHandDist = 150
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("loaded config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadTuningConfigFS_Errors(t *testing.T) {
	t.Parallel()

	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, fsys.WriteFile("/cfg/bad.json", []byte(`{"fps": "fast"`), 0644))
	require.NoError(t, fsys.WriteFile("/cfg/zero_fps.json", []byte(`{"fps": 0}`), 0644))
	require.NoError(t, fsys.WriteFile("/cfg/inverted.json", []byte(`{"piece_region": [1600, 0, 700, 900]}`), 0644))
	require.NoError(t, fsys.WriteFile("/cfg/huge.json", []byte(`{"fps": 30`+strings.Repeat(" ", maxConfigFileSize)+`}`), 0644))
	require.NoError(t, fsys.WriteFile("/cfg/station.yaml", []byte(`fps: 30`), 0644))

	tests := []struct {
		path    string
		wantErr string
	}{
		{"/cfg/missing.json", "failed to stat"},
		{"/cfg/bad.json", "failed to parse"},
		{"/cfg/zero_fps.json", "fps must be a positive number"},
		{"/cfg/inverted.json", "piece_region"},
		{"/cfg/huge.json", "too large"},
		{"/cfg/station.yaml", ".json extension"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			_, err := LoadTuningConfigFS(fsys, tt.path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     *TuningConfig
		wantErr bool
	}{
		{"empty", EmptyTuningConfig(), false},
		{"defaults", DefaultTuningConfig(), false},
		{"negative fps", &TuningConfig{FPS: ptrFloat64(-1)}, true},
		{"zero window", &TuningConfig{WindowSize: ptrInt(0)}, true},
		{"unknown binding", &TuningConfig{Binding: ptrString("nearest")}, true},
		{"negative cooldown", &TuningConfig{MarkingCooldown: ptrFloat64(-0.1)}, true},
		{"negative coupling", &TuningConfig{ProbeAfterPickUp: ptrFloat64(-1)}, true},
		{"zero-area mark", &TuningConfig{MarkRegion: &RegionBox{10, 10, 10, 20}}, true},
		{"zero cooldown", &TuningConfig{MinInterval: ptrFloat64(0)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDetectorConfigFromTuning_CrossFieldErrors(t *testing.T) {
	t.Parallel()

	// Each value passes field validation but the combination does not.
	cfg := &TuningConfig{MarkMinHandDist: ptrFloat64(700)}
	require.NoError(t, cfg.Validate())
	_, err := DetectorConfigFromTuning(cfg)
	assert.ErrorIs(t, err, detector.ErrInvalidConfig)
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("ASSEMBLY_DB_PATH", "/var/lib/assembly/sessions.db")
	t.Setenv("ASSEMBLY_LOG_LEVEL", "debug")

	e, err := LoadEnv()
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/assembly/sessions.db", e.DBPath)
	assert.Equal(t, ":8080", e.Listen)
	assert.Empty(t, e.ConfigPath)
	assert.Equal(t, "UTC", e.Timezone)
	assert.True(t, e.Debug())

	t.Setenv("ASSEMBLY_LOG_LEVEL", "verbose")
	_, err = LoadEnv()
	assert.Error(t, err)

	t.Setenv("ASSEMBLY_LOG_LEVEL", "info")
	t.Setenv("ASSEMBLY_TIMEZONE", "Nowhere/Special")
	_, err = LoadEnv()
	assert.ErrorContains(t, err, "ASSEMBLY_TIMEZONE")
}
