package main

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/hpungsan/taskflow/internal/config"
	"github.com/hpungsan/taskflow/internal/db"
	"github.com/hpungsan/taskflow/internal/logging"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion(args []string) bool {
	if len(args) < 2 {
		return true
	}
	arg := args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// baseDir returns TASKFLOW_HOME, or ~/.taskflow when unset.
func baseDir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv("TASKFLOW_HOME")); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".taskflow"), nil
}

// loadDotEnv reads .env from the working directory if present.
// Variables already set in the process environment win.
func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func main() {
	// Handle --help/--version before DB init (no DB needed)
	if isHelpOrVersion(os.Args) {
		app := newCLIApp(nil, nil, logging.New(os.Stderr, "info"))
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := loadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	dir, err := baseDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(os.Stderr, cfg.LogLevel)

	database, err := db.Init(dir)
	if err != nil {
		log.Error().Err(err).Str("dir", dir).Msg("failed to initialize database")
		os.Exit(1)
	}
	defer database.Close()
	db.ConfigurePool(database, cfg)

	app := newCLIApp(database, cfg, log)
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		database.Close()
		os.Exit(1)
	}
}
