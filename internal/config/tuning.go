package config

import (
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"

	"github.com/banshee-data/assembly.report/internal/detector"
	"github.com/banshee-data/assembly.report/internal/fsutil"
	"github.com/banshee-data/assembly.report/internal/tracking"
)

// DefaultConfigPath is the path to the checked-in tuning defaults file.
const DefaultConfigPath = "config/tuning.defaults.json"

// maxConfigFileSize bounds tuning files read from disk.
const maxConfigFileSize = 1 * 1024 * 1024 // 1MB

// RegionBox is a region as [x1, y1, x2, y2] in image pixels.
type RegionBox [4]float64

func (b RegionBox) region() detector.Region {
	return detector.Rect(b[0], b[1], b[2], b[3])
}

func boxOf(r detector.Region) RegionBox {
	return RegionBox{r.X1, r.Y1, r.X2, r.Y2}
}

// TuningConfig is the on-disk detector tuning. Every field is optional;
// omitted fields fall back to the production defaults through the Get*
// methods, so partial files are safe.
type TuningConfig struct {
	// Stream
	FPS        *float64 `json:"fps,omitempty"`
	WindowSize *int     `json:"window_size,omitempty"`
	Binding    *string  `json:"binding,omitempty"` // "positional" or "track_id"

	// Regions
	PieceRegion *RegionBox `json:"piece_region,omitempty"`
	ProbeRegion *RegionBox `json:"probe_region,omitempty"`
	BoxRegion   *RegionBox `json:"box_region,omitempty"`
	MarkRegion  *RegionBox `json:"mark_region,omitempty"`

	// Cooldowns in seconds. MinInterval applies to every kind unless the
	// per-kind value is set.
	MinInterval           *float64 `json:"min_interval,omitempty"`
	PickUpCooldown        *float64 `json:"pick_up_cooldown,omitempty"`
	ProbePassCooldown     *float64 `json:"probe_pass_cooldown,omitempty"`
	MarkingCooldown       *float64 `json:"marking_cooldown,omitempty"`
	PlaceInBoxCooldown    *float64 `json:"place_in_box_cooldown,omitempty"`
	ProbeAfterPickUp      *float64 `json:"probe_after_pick_up,omitempty"`
	MarkingAfterProbePass *float64 `json:"marking_after_probe_pass,omitempty"`

	// Predicate thresholds; velocities in pixels per frame.
	PickUpFastRiseVY   *float64 `json:"pick_up_fast_rise_vy,omitempty"`
	PickUpRiseVY       *float64 `json:"pick_up_rise_vy,omitempty"`
	PickUpSweepVX      *float64 `json:"pick_up_sweep_vx,omitempty"`
	ProbeDescentVY     *float64 `json:"probe_descent_vy,omitempty"`
	ProbeSlowDescentVY *float64 `json:"probe_slow_descent_vy,omitempty"`
	ProbeSweepVX       *float64 `json:"probe_sweep_vx,omitempty"`
	ProbeMaxHandDist   *float64 `json:"probe_max_hand_dist,omitempty"`
	MarkMinHandDist    *float64 `json:"mark_min_hand_dist,omitempty"`
	MarkMaxHandDist    *float64 `json:"mark_max_hand_dist,omitempty"`
	MarkMinAbsVY       *float64 `json:"mark_min_abs_vy,omitempty"`
	PlaceDescentVY     *float64 `json:"place_descent_vy,omitempty"`
	PlaceBoxMargin     *float64 `json:"place_box_margin,omitempty"`
	PlaceFrameMargin   *float64 `json:"place_frame_margin,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }
func ptrString(v string) *string    { return &v }

func float64Or(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

// EmptyTuningConfig returns a TuningConfig with all fields unset.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field set to the
// production default.
func DefaultTuningConfig() *TuningConfig {
	d := detector.DefaultConfig()
	c := TuningConfigFromDetector(d)
	c.MinInterval = ptrFloat64(d.Cooldowns.PickUp)
	c.PickUpCooldown = nil
	c.ProbePassCooldown = nil
	c.MarkingCooldown = nil
	c.PlaceInBoxCooldown = nil
	return c
}

// TuningConfigFromDetector spells out d as a fully populated TuningConfig,
// with one cooldown per kind. Sessions store it so a run can be replayed.
func TuningConfigFromDetector(d detector.Config) *TuningConfig {
	return &TuningConfig{
		FPS:        ptrFloat64(d.FPS),
		WindowSize: ptrInt(d.WindowSize),
		Binding:    ptrString(string(d.Binding)),

		PieceRegion: regionPtr(d.Regions.Piece),
		ProbeRegion: regionPtr(d.Regions.Probe),
		BoxRegion:   regionPtr(d.Regions.Box),
		MarkRegion:  regionPtr(d.Regions.Mark),

		PickUpCooldown:        ptrFloat64(d.Cooldowns.PickUp),
		ProbePassCooldown:     ptrFloat64(d.Cooldowns.ProbePass),
		MarkingCooldown:       ptrFloat64(d.Cooldowns.Marking),
		PlaceInBoxCooldown:    ptrFloat64(d.Cooldowns.PlaceInBox),
		ProbeAfterPickUp:      ptrFloat64(d.Cooldowns.ProbeAfterPickUp),
		MarkingAfterProbePass: ptrFloat64(d.Cooldowns.MarkingAfterProbe),

		PickUpFastRiseVY:   ptrFloat64(d.Thresholds.PickUpFastRiseVY),
		PickUpRiseVY:       ptrFloat64(d.Thresholds.PickUpRiseVY),
		PickUpSweepVX:      ptrFloat64(d.Thresholds.PickUpSweepVX),
		ProbeDescentVY:     ptrFloat64(d.Thresholds.ProbeDescentVY),
		ProbeSlowDescentVY: ptrFloat64(d.Thresholds.ProbeSlowDescentVY),
		ProbeSweepVX:       ptrFloat64(d.Thresholds.ProbeSweepVX),
		ProbeMaxHandDist:   ptrFloat64(d.Thresholds.ProbeMaxHandDist),
		MarkMinHandDist:    ptrFloat64(d.Thresholds.MarkMinHandDist),
		MarkMaxHandDist:    ptrFloat64(d.Thresholds.MarkMaxHandDist),
		MarkMinAbsVY:       ptrFloat64(d.Thresholds.MarkMinAbsVY),
		PlaceDescentVY:     ptrFloat64(d.Thresholds.PlaceDescentVY),
		PlaceBoxMargin:     ptrFloat64(d.Thresholds.PlaceBoxMargin),
		PlaceFrameMargin:   ptrFloat64(d.Thresholds.PlaceFrameMargin),
	}
}

func regionPtr(r detector.Region) *RegionBox {
	b := boxOf(r)
	return &b
}

// LoadTuningConfig loads a TuningConfig from a JSON file on disk.
// The file must have a .json extension and be under 1MB.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	return LoadTuningConfigFS(fsutil.OSFileSystem{}, path)
}

// LoadTuningConfigFS is LoadTuningConfig over an arbitrary filesystem.
func LoadTuningConfigFS(fsys fsutil.FileSystem, path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := fsys.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxConfigFileSize)
	}

	data, err := fsys.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the values that are set. Cross-field checks (region
// geometry, distance bands) run again when the detector is built.
func (c *TuningConfig) Validate() error {
	if c.FPS != nil && (math.IsNaN(*c.FPS) || math.IsInf(*c.FPS, 0) || *c.FPS <= 0) {
		return fmt.Errorf("fps must be a positive number, got %v", *c.FPS)
	}
	if c.WindowSize != nil && *c.WindowSize <= 0 {
		return fmt.Errorf("window_size must be positive, got %d", *c.WindowSize)
	}
	if c.Binding != nil {
		if _, err := tracking.ParseBindingMode(*c.Binding); err != nil {
			return err
		}
	}

	for name, b := range map[string]*RegionBox{
		"piece_region": c.PieceRegion, "probe_region": c.ProbeRegion,
		"box_region": c.BoxRegion, "mark_region": c.MarkRegion,
	} {
		if b == nil {
			continue
		}
		if err := b.region().Validate(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	for name, v := range map[string]*float64{
		"min_interval": c.MinInterval, "pick_up_cooldown": c.PickUpCooldown,
		"probe_pass_cooldown": c.ProbePassCooldown, "marking_cooldown": c.MarkingCooldown,
		"place_in_box_cooldown": c.PlaceInBoxCooldown, "probe_after_pick_up": c.ProbeAfterPickUp,
		"marking_after_probe_pass": c.MarkingAfterProbePass,
	} {
		if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0) {
			return fmt.Errorf("%s must be a non-negative number of seconds, got %v", name, *v)
		}
	}

	return nil
}

// GetFPS returns the frame rate or the default of 30.
func (c *TuningConfig) GetFPS() float64 {
	return float64Or(c.FPS, detector.DefaultConfig().FPS)
}

// GetWindowSize returns the smoothing window or the default of 5.
func (c *TuningConfig) GetWindowSize() int {
	if c.WindowSize == nil {
		return tracking.DefaultWindowSize
	}
	return *c.WindowSize
}

// GetBinding returns the slot binding mode or positional.
func (c *TuningConfig) GetBinding() tracking.BindingMode {
	if c.Binding == nil {
		return tracking.BindPositional
	}
	if mode, err := tracking.ParseBindingMode(*c.Binding); err == nil {
		return mode
	}
	return tracking.BindingMode(*c.Binding)
}

// GetRegions returns the configured regions, defaulting each unset one.
func (c *TuningConfig) GetRegions() detector.Regions {
	r := detector.DefaultRegions()
	if c.PieceRegion != nil {
		r.Piece = c.PieceRegion.region()
	}
	if c.ProbeRegion != nil {
		r.Probe = c.ProbeRegion.region()
	}
	if c.BoxRegion != nil {
		r.Box = c.BoxRegion.region()
	}
	if c.MarkRegion != nil {
		r.Mark = c.MarkRegion.region()
	}
	return r
}

// GetMinInterval returns the shared per-kind cooldown or the default of 2s.
func (c *TuningConfig) GetMinInterval() float64 {
	return float64Or(c.MinInterval, detector.DefaultCooldowns().PickUp)
}

// GetCooldowns resolves per-kind overrides over min_interval.
func (c *TuningConfig) GetCooldowns() detector.Cooldowns {
	shared := c.GetMinInterval()
	d := detector.DefaultCooldowns()
	return detector.Cooldowns{
		PickUp:            float64Or(c.PickUpCooldown, shared),
		ProbePass:         float64Or(c.ProbePassCooldown, shared),
		Marking:           float64Or(c.MarkingCooldown, shared),
		PlaceInBox:        float64Or(c.PlaceInBoxCooldown, shared),
		ProbeAfterPickUp:  float64Or(c.ProbeAfterPickUp, d.ProbeAfterPickUp),
		MarkingAfterProbe: float64Or(c.MarkingAfterProbePass, d.MarkingAfterProbe),
	}
}

// GetThresholds returns the predicate thresholds with defaults filled in.
func (c *TuningConfig) GetThresholds() detector.Thresholds {
	d := detector.DefaultThresholds()
	return detector.Thresholds{
		PickUpFastRiseVY:   float64Or(c.PickUpFastRiseVY, d.PickUpFastRiseVY),
		PickUpRiseVY:       float64Or(c.PickUpRiseVY, d.PickUpRiseVY),
		PickUpSweepVX:      float64Or(c.PickUpSweepVX, d.PickUpSweepVX),
		ProbeDescentVY:     float64Or(c.ProbeDescentVY, d.ProbeDescentVY),
		ProbeSlowDescentVY: float64Or(c.ProbeSlowDescentVY, d.ProbeSlowDescentVY),
		ProbeSweepVX:       float64Or(c.ProbeSweepVX, d.ProbeSweepVX),
		ProbeMaxHandDist:   float64Or(c.ProbeMaxHandDist, d.ProbeMaxHandDist),
		MarkMinHandDist:    float64Or(c.MarkMinHandDist, d.MarkMinHandDist),
		MarkMaxHandDist:    float64Or(c.MarkMaxHandDist, d.MarkMaxHandDist),
		MarkMinAbsVY:       float64Or(c.MarkMinAbsVY, d.MarkMinAbsVY),
		PlaceDescentVY:     float64Or(c.PlaceDescentVY, d.PlaceDescentVY),
		PlaceBoxMargin:     float64Or(c.PlaceBoxMargin, d.PlaceBoxMargin),
		PlaceFrameMargin:   float64Or(c.PlaceFrameMargin, d.PlaceFrameMargin),
	}
}

// DetectorConfigFromTuning resolves c into a validated detector.Config.
// A nil c yields the defaults.
func DetectorConfigFromTuning(c *TuningConfig) (detector.Config, error) {
	if c == nil {
		c = EmptyTuningConfig()
	}
	cfg := detector.Config{
		FPS:        c.GetFPS(),
		WindowSize: c.GetWindowSize(),
		Binding:    c.GetBinding(),
		Regions:    c.GetRegions(),
		Thresholds: c.GetThresholds(),
		Cooldowns:  c.GetCooldowns(),
	}
	if err := cfg.Validate(); err != nil {
		return detector.Config{}, err
	}
	return cfg, nil
}
