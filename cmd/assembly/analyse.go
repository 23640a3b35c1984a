package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/banshee-data/assembly.report/internal/analysis"
	"github.com/banshee-data/assembly.report/internal/config"
	"github.com/banshee-data/assembly.report/internal/db"
	"github.com/banshee-data/assembly.report/internal/events"
	"github.com/banshee-data/assembly.report/internal/fsutil"
	"github.com/banshee-data/assembly.report/internal/security"
)

func runAnalyse(args []string, env config.Env, stdout io.Writer) error {
	fs := newFlagSet("analyse", stdout)
	eventsPath := fs.String("events", "", "Event timeline file written by detect")
	dbPath := fs.String("db", env.DBPath, "Session database (with -session)")
	sessionID := fs.String("session", "", "Stored session id to analyse instead of -events")
	pngPath := fs.String("png", "", "Write a duration bar chart (.png)")
	htmlPath := fs.String("html", "", "Write an interactive event timeline (.html)")
	title := fs.String("title", "Operation durations", "Chart title")
	if err := fs.Parse(args); err != nil {
		return err
	}

	l, err := loadLog(*eventsPath, *dbPath, *sessionID)
	if err != nil {
		return err
	}

	report := analysis.Analyze(l)
	if err := analysis.WriteText(stdout, report); err != nil {
		return err
	}

	if *pngPath != "" {
		var buf bytes.Buffer
		if err := analysis.WriteDurationPNG(&buf, report, *title); err != nil {
			return err
		}
		if err := writeArtifact(*pngPath, buf.Bytes()); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Duration chart saved to %s\n", *pngPath)
	}
	if *htmlPath != "" {
		var buf bytes.Buffer
		if err := analysis.WriteTimelineHTML(&buf, l, *title); err != nil {
			return err
		}
		if err := writeArtifact(*htmlPath, buf.Bytes()); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Timeline saved to %s\n", *htmlPath)
	}
	return nil
}

func loadLog(eventsPath, dbPath, sessionID string) (*events.Log, error) {
	switch {
	case eventsPath != "" && sessionID != "":
		return nil, errors.New("analyse: use either -events or -session, not both")
	case eventsPath != "":
		return events.Load(fsutil.OSFileSystem{}, eventsPath)
	case sessionID != "":
		if dbPath == "" {
			return nil, errors.New("analyse: -session needs -db or ASSEMBLY_DB_PATH")
		}
		store, err := db.NewDB(dbPath)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		defer store.Close()
		return store.SessionLog(sessionID)
	default:
		return nil, errors.New("analyse: one of -events or -session is required")
	}
}

func writeArtifact(path string, data []byte) error {
	if err := security.ValidateOutputPath(path); err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(fsutil.OSFileSystem{}, path, data, 0o644)
}
