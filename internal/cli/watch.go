package cli

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/mikeleppane/envx-sub000/internal/events"
	"github.com/mikeleppane/envx-sub000/internal/projectcfg"
	"github.com/mikeleppane/envx-sub000/internal/watcher"
	pkgconfig "github.com/mikeleppane/envx-sub000/pkg/config"
)

func (a *app) watchConfig(cmd *cli.Command) (watcher.Config, error) {
	cfg := watcher.DefaultConfig()
	if file := cmd.String("config"); file != "" {
		if err := pkgconfig.Load(file, &cfg); err != nil {
			return cfg, err
		}
	} else if err := pkgconfig.LoadIfExists(filepath.Join(projectcfg.ConfigDir, "watch.yaml"), &cfg); err != nil {
		return cfg, err
	}
	if paths := cmd.Args().Slice(); len(paths) > 0 {
		cfg.Paths = paths
	}
	if mode := cmd.String("mode"); mode != "" {
		cfg.Mode = watcher.SyncMode(mode)
	}
	if ms := int(cmd.Int("debounce-ms")); ms > 0 {
		cfg.DebounceMS = ms
	}
	if patterns := cmd.StringSlice("pattern"); len(patterns) > 0 {
		cfg.Patterns = patterns
	}
	if out := cmd.String("output"); out != "" {
		cfg.Output = out
	}
	if filter := cmd.StringSlice("filter"); len(filter) > 0 {
		cfg.Filter = filter
	}
	cfg.LogChanges = !cmd.Bool("quiet")
	return cfg, cfg.Validate()
}

func (a *app) watchCommand() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Watch files and sync environment changes until interrupted",
		ArgsUsage: "[PATHS...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "Watch config YAML file"},
			&cli.StringFlag{Name: "mode", Usage: "Sync mode (watch, file-to-system, system-to-file, bidirectional)"},
			&cli.IntFlag{Name: "debounce-ms", Usage: "Debounce interval in milliseconds"},
			&cli.StringSliceFlag{Name: "pattern", Usage: "Filename patterns to react to"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output file for system-to-file sync"},
			&cli.StringSliceFlag{Name: "filter", Usage: "Only sync variables whose name contains these substrings"},
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "Do not log individual changes"},
			&cli.BoolFlag{Name: "journal", Usage: "Record changes in the SQLite change journal"},
			&cli.StringFlag{Name: "export-log", Usage: "Write the change log to this JSON file on exit"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := a.setup(cmd); err != nil {
				return fail(err)
			}
			cfg, err := a.watchConfig(cmd)
			if err != nil {
				return fail(err)
			}

			w := watcher.New(cfg, a.store)
			if cmd.Bool("journal") {
				db, err := a.openJournal()
				if err != nil {
					return fail(err)
				}
				defer db.Close()
				w.SetJournal(db)
			}

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := w.Start(ctx); err != nil {
				return fail(err)
			}
			<-ctx.Done()
			if err := w.Stop(); err != nil {
				return fail(err)
			}
			if logFile := cmd.String("export-log"); logFile != "" {
				if err := w.ExportChangeLog(logFile); err != nil {
					return fail(err)
				}
				fmt.Printf("Change log written to %s\n", logFile)
			}
			return nil
		},
	}
}

func (a *app) monitorCommand() *cli.Command {
	return &cli.Command{
		Name:  "monitor",
		Usage: "Print live environment changes until interrupted",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "filter", Usage: "Only report variables whose name contains these substrings"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := a.setup(cmd); err != nil {
				return fail(err)
			}
			cfg := watcher.DefaultConfig()
			cfg.Mode = watcher.SystemToFile
			cfg.Paths = []string{"."}
			cfg.Filter = cmd.StringSlice("filter")
			cfg.LogChanges = false

			broker := events.NewBroker()
			defer broker.Close()
			sub := broker.Subscribe()

			w := watcher.New(cfg, a.store)
			w.SetBroker(broker)

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := w.Start(ctx); err != nil {
				return fail(err)
			}
			defer w.Stop()

			fmt.Println("Monitoring environment changes (Ctrl+C to stop)")
			for {
				select {
				case <-ctx.Done():
					return nil
				case c, ok := <-sub:
					if !ok {
						return nil
					}
					switch c.Kind {
					case events.VarAdded:
						fmt.Printf("%s + %s=%s\n", c.Timestamp.Format("15:04:05"), c.Name, c.NewValue)
					case events.VarModified:
						fmt.Printf("%s ~ %s: %q -> %q\n", c.Timestamp.Format("15:04:05"), c.Name, c.OldValue, c.NewValue)
					case events.VarDeleted:
						fmt.Printf("%s - %s\n", c.Timestamp.Format("15:04:05"), c.Name)
					}
				}
			}
		},
	}
}
