package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/banshee-data/assembly.report/internal/config"
	"github.com/banshee-data/assembly.report/internal/db"
	"github.com/banshee-data/assembly.report/internal/detector"
	"github.com/banshee-data/assembly.report/internal/events"
	"github.com/banshee-data/assembly.report/internal/frames"
	"github.com/banshee-data/assembly.report/internal/fsutil"
	"github.com/banshee-data/assembly.report/internal/monitoring"
	"github.com/banshee-data/assembly.report/internal/security"
)

func runDetect(args []string, env config.Env, stdout io.Writer) error {
	fs := newFlagSet("detect", stdout)
	framesPath := fs.String("frames", "", "JSON-lines frames file, '-' for stdin (required)")
	configPath := fs.String("config", env.ConfigPath, "Tuning file (.json); defaults apply when empty")
	outPath := fs.String("out", "", "Event timeline output (default <source>_events.json)")
	dbPath := fs.String("db", env.DBPath, "Also record a session in this database")
	source := fs.String("source", "", "Session source label (default: frames file name)")
	fps := fs.Float64("fps", 0, "Frame rate; overrides the tuning file when > 0")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *framesPath == "" {
		fs.Usage()
		return errors.New("detect: -frames is required")
	}

	tuning := config.EmptyTuningConfig()
	if *configPath != "" {
		var err error
		if tuning, err = config.LoadTuningConfig(*configPath); err != nil {
			return err
		}
	}
	if *fps < 0 {
		return fmt.Errorf("detect: -fps must be positive, got %v", *fps)
	}
	if *fps > 0 {
		tuning.FPS = fps
	}
	cfg, err := config.DetectorConfigFromTuning(tuning)
	if err != nil {
		return err
	}
	det, err := detector.New(cfg)
	if err != nil {
		return err
	}

	if *source == "" {
		*source = sourceName(*framesPath)
	}
	if *outPath == "" {
		*outPath = security.SanitizeFilename(*source) + "_events.json"
	}
	if err := security.ValidateOutputPath(*outPath); err != nil {
		return err
	}

	in := io.Reader(os.Stdin)
	if *framesPath != "-" {
		f, err := os.Open(*framesPath)
		if err != nil {
			return fmt.Errorf("failed to open frames: %w", err)
		}
		defer f.Close()
		in = f
	}

	rec, err := newRecorder(*dbPath, *source, cfg)
	if err != nil {
		return err
	}
	defer rec.close()

	var frameCount int64
	err = frames.ReadAll(in, func(f detector.Frame) error {
		frameCount++
		return rec.record(det.Update(f))
	})
	if err != nil {
		return err
	}

	l := det.Log()
	if err := events.Save(fsutil.OSFileSystem{}, *outPath, l); err != nil {
		return err
	}
	if err := rec.finish(frameCount); err != nil {
		return err
	}
	monitoring.Logf("processed %d frames from %s", frameCount, *source)

	fmt.Fprintf(stdout, "Events saved to %s\n", *outPath)
	if rec.session != nil {
		fmt.Fprintf(stdout, "Session %s\n", rec.session.ID)
	}
	printCounts(stdout, l)
	return nil
}

func sourceName(framesPath string) string {
	if framesPath == "-" {
		return "stdin"
	}
	base := filepath.Base(framesPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func printCounts(w io.Writer, l *events.Log) {
	fmt.Fprintln(w, "--- Event Summary ---")
	counts := l.Counts()
	for _, k := range events.AllKinds() {
		fmt.Fprintf(w, "%-14s %d\n", k.String()+":", counts[k.String()])
	}
}

// sessionRecorder streams committed events into the session store. With no
// database configured every method is a no-op.
type sessionRecorder struct {
	store   *db.DB
	session *db.Session
}

func newRecorder(dbPath, source string, cfg detector.Config) (*sessionRecorder, error) {
	if dbPath == "" {
		return &sessionRecorder{}, nil
	}
	store, err := db.NewDB(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	configJSON, err := json.Marshal(config.TuningConfigFromDetector(cfg))
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to encode session config: %w", err)
	}
	session, err := store.CreateSession(source, cfg.FPS, string(configJSON))
	if err != nil {
		store.Close()
		return nil, err
	}
	return &sessionRecorder{store: store, session: session}, nil
}

func (r *sessionRecorder) record(records []events.Record) error {
	if r.session == nil || len(records) == 0 {
		return nil
	}
	return r.store.RecordEvents(r.session.ID, records)
}

func (r *sessionRecorder) finish(frameCount int64) error {
	if r.session == nil {
		return nil
	}
	return r.store.FinishSession(r.session.ID, frameCount)
}

func (r *sessionRecorder) close() {
	if r.store != nil {
		r.store.Close()
	}
}
