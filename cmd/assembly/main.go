// Command assembly detects assembly-line events in hand-tracking output and
// reports on them.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/assembly.report/internal/config"
	"github.com/banshee-data/assembly.report/internal/monitoring"
	"github.com/banshee-data/assembly.report/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("assembly: %v", err)
	}
}

// run dispatches one subcommand. Environment settings are read first so the
// subcommand flags can default to them.
func run(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) < 1 {
		printUsage(stdout)
		return errors.New("missing command")
	}

	env, err := config.LoadEnv()
	if err != nil {
		return err
	}
	configureLogging(env.LogLevel)

	command, rest := args[0], args[1:]
	switch command {
	case "detect":
		return runDetect(rest, env, stdout)
	case "analyse", "analyze":
		return runAnalyse(rest, env, stdout)
	case "sessions":
		return runSessions(rest, env, stdout)
	case "serve":
		return runServe(ctx, rest, env)
	case "migrate":
		return runMigrate(rest, env, stdout)
	case "version":
		fmt.Fprintln(stdout, version.String())
		return nil
	case "help", "-h", "--help":
		printUsage(stdout)
		return nil
	default:
		printUsage(stdout)
		return fmt.Errorf("unknown command: %s", command)
	}
}

func configureLogging(level string) {
	switch level {
	case "quiet":
		monitoring.SetLogger(nil)
		monitoring.SetDebug(false)
	case "debug":
		monitoring.SetLogger(log.Printf)
		monitoring.SetDebug(true)
	default:
		monitoring.SetLogger(log.Printf)
		monitoring.SetDebug(false)
	}
}

// newFlagSet returns a flag set that reports errors instead of exiting.
func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `assembly - assembly-line event detection and reporting

Usage: assembly <command> [options]

Commands:
  detect     Run the event detector over a frames file and save the event timeline
  analyse    Summarise operations from an event timeline or a stored session
  sessions   List (or delete) stored detection sessions
  serve      Serve stored sessions, reports and charts over HTTP
  migrate    Manage the session database schema
  version    Show the assembly version
  help       Show this help message

Environment:
  ASSEMBLY_DB_PATH     Session database path (default for -db)
  ASSEMBLY_LISTEN      Listen address for serve (default :8080)
  ASSEMBLY_CONFIG      Tuning file (default for detect -config)
  ASSEMBLY_LOG_LEVEL   debug, info or quiet (default info)
  ASSEMBLY_TIMEZONE    Display timezone for session times (default UTC)

Flags given on the command line override the environment.
Run 'assembly <command> -h' for the options of a command.
`)
}
