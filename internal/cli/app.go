// Package cli implements the envx command tree.
package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/urfave/cli/v3"

	"github.com/mikeleppane/envx-sub000/internal/apperr"
	"github.com/mikeleppane/envx-sub000/internal/envstore"
	"github.com/mikeleppane/envx-sub000/internal/platform"
	"github.com/mikeleppane/envx-sub000/internal/profile"
	"github.com/mikeleppane/envx-sub000/internal/snapshot"
	"github.com/mikeleppane/envx-sub000/internal/storage"
)

// Exit codes.
const (
	exitError      = 1
	exitValidation = 2
)

type app struct {
	ready     bool
	dataDir   string
	store     *envstore.Store
	dir       *storage.Dir
	profiles  *profile.Manager
	snapshots *snapshot.Manager
	windows   bool
}

// New builds the root envx command.
func New() *cli.Command {
	a := &app{}
	return &cli.Command{
		Name:  "envx",
		Usage: "Inspect, organize, and synchronize environment variables",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				Sources: cli.EnvVars("ENVX_LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "data-dir",
				Usage:   "Directory for profiles, snapshots, and the change journal",
				Sources: cli.EnvVars("ENVX_DATA_DIR"),
			},
		},
		Commands: []*cli.Command{
			a.listCommand(),
			a.getCommand(),
			a.setCommand(),
			a.deleteCommand(),
			a.renameCommand(),
			a.replaceCommand(),
			a.findReplaceCommand(),
			a.undoCommand(),
			a.searchCommand(),
			a.historyCommand(),
			a.analyzeCommand(),
			a.cleanupCommand(),
			a.pathCommand(),
			a.profileCommand(),
			a.snapshotCommand(),
			a.importCommand(),
			a.exportCommand(),
			a.projectCommand(),
			a.watchCommand(),
			a.monitorCommand(),
			a.depsCommand(),
			a.journalCommand(),
		},
	}
}

// setup initializes the logger, store, and managers. Commands call it
// at the top of their actions; repeated calls are no-ops.
func (a *app) setup(cmd *cli.Command) error {
	if a.ready {
		return nil
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cmd.String("log-level"))); err != nil {
		return fmt.Errorf("invalid log level %q", cmd.String("log-level"))
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	dataDir := cmd.String("data-dir")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".envx")
	}
	dir, err := storage.New(dataDir)
	if err != nil {
		return err
	}

	store := envstore.New(platform.New())
	if err := store.LoadAll(); err != nil {
		return fmt.Errorf("load environment: %w", err)
	}

	profiles, err := profile.NewManager(dir)
	if err != nil {
		return err
	}

	a.dataDir = dataDir
	a.dir = dir
	a.store = store
	a.profiles = profiles
	a.snapshots = snapshot.NewManager(dir)
	a.windows = runtime.GOOS == "windows"
	a.ready = true
	return nil
}

// fail wraps an error with the right exit code for the shell.
func fail(err error) error {
	if err == nil {
		return nil
	}
	code := exitError
	if errors.Is(err, apperr.ErrValidation) {
		code = exitValidation
	}
	return cli.Exit(err.Error(), code)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
