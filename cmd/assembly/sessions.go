package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/banshee-data/assembly.report/internal/config"
	"github.com/banshee-data/assembly.report/internal/db"
	"github.com/banshee-data/assembly.report/internal/events"
	"github.com/banshee-data/assembly.report/internal/timeutil"
)

func runSessions(args []string, env config.Env, stdout io.Writer) error {
	fs := newFlagSet("sessions", stdout)
	dbPath := fs.String("db", env.DBPath, "Session database")
	deleteID := fs.String("delete", "", "Delete the session with this id")
	tz := fs.String("tz", env.Timezone, "Timezone for the CREATED column")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dbPath == "" {
		return errors.New("sessions: -db or ASSEMBLY_DB_PATH is required")
	}

	loc, err := timeutil.LoadTimezone(*tz)
	if err != nil {
		return err
	}

	store, err := db.NewDB(*dbPath)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer store.Close()

	if *deleteID != "" {
		if err := store.DeleteSession(*deleteID); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Deleted session %s\n", *deleteID)
		return nil
	}

	sessions, err := store.ListSessions()
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintln(stdout, "No sessions recorded")
		return nil
	}

	tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprint(tw, "SESSION\tSOURCE\tCREATED\tFPS\tFRAMES")
	for _, k := range events.AllKinds() {
		fmt.Fprintf(tw, "\t%s", k)
	}
	fmt.Fprintln(tw)
	for _, s := range sessions {
		frames := "running"
		if s.Finished() {
			frames = fmt.Sprint(s.Frames)
		}
		created := timeutil.FormatUnix(s.CreatedUnix, loc)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%g\t%s", s.ID, s.Source, created, s.FPS, frames)
		for _, k := range events.AllKinds() {
			fmt.Fprintf(tw, "\t%d", s.EventCounts[k.String()])
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}
