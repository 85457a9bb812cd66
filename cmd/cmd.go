// Package cmd contains the command-line entry points. main.go stays minimal;
// all routing and initialization lives here, following the layout of
// standard Go CLI tools.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/cartsmith/cartsmith/internal/log"
)

// Version information (injected at build time via ldflags).
var (
	AppVersion = "development"
	GitCommit  = "unknown"
)

// Execute is the entry point called from main. It routes to a subcommand;
// serve is the default.
func Execute() error {
	args := os.Args[1:]

	command := "serve"
	if len(args) > 0 {
		command = args[0]
		args = args[1:]
	}

	switch command {
	case "serve":
		return runServe()
	case "seed":
		return runSeed(args)
	case "version", "--version", "-v":
		printVersion()
		return nil
	case "help", "--help", "-h":
		printHelp()
		return nil
	default:
		printHelp()
		return fmt.Errorf("unknown command %q", command)
	}
}

// initLogger builds the process logger. DEBUG (any value) enables debug
// level. Logs go to stderr.
func initLogger() log.Logger {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	return log.New(log.Config{Level: level})
}

func printVersion() {
	fmt.Printf("cartsmith %s (%s)\n", AppVersion, GitCommit)
}

func printHelp() {
	fmt.Print(`cartsmith - conversational grocery shopping assistant

Usage:
  cartsmith [command]

Commands:
  serve       Start the HTTP API server (default)
  seed        Load catalog products and blocked queries into the database
  version     Show version information
  help        Show this help

Environment:
  GEMINI_API_KEY     Gemini API key (required for serve and seed)
  DATABASE_URL       PostgreSQL URL, overrides postgres_* config values
  YOUTUBE_API_KEY    Optional; enables recipe video lookups
  CARTSMITH_ADDR     HTTP listen address (default 127.0.0.1:3500)
  DEBUG              Set to enable debug logging
`)
}
