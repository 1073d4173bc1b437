package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/urfave/cli/v3"

	"github.com/mikeleppane/envx-sub000/internal/scanner"
)

func (a *app) newTracker(paths, ignore []string) *scanner.Tracker {
	tracker := scanner.NewTracker()
	if len(paths) > 0 {
		tracker.SetScanPaths(paths)
	}
	for _, pattern := range ignore {
		tracker.AddIgnorePattern(pattern)
	}
	return tracker
}

// findUnused scans the given paths and returns the store's variables
// that no scanned file references.
func (a *app) findUnused(ctx context.Context, paths, ignore []string) ([]string, error) {
	tracker := a.newTracker(paths, ignore)
	if err := tracker.Scan(ctx); err != nil {
		return nil, err
	}
	names := make([]string, 0, a.store.Len())
	for _, v := range a.store.List() {
		names = append(names, v.Name)
	}
	return tracker.FindUnused(names), nil
}

func (a *app) depsCommand() *cli.Command {
	scanFlags := []cli.Flag{
		&cli.StringSliceFlag{Name: "paths", Aliases: []string{"p"}, Usage: "Paths to scan (defaults to current directory)"},
		&cli.StringSliceFlag{Name: "ignore", Aliases: []string{"i"}, Usage: "Extra ignore patterns"},
	}
	return &cli.Command{
		Name:  "deps",
		Usage: "Track where environment variables are used in code",
		Commands: []*cli.Command{
			{
				Name:      "show",
				Usage:     "Show usages of a variable, or unused variables with --unused",
				ArgsUsage: "[VAR]",
				Flags: append([]cli.Flag{
					formatFlag(),
					&cli.BoolFlag{Name: "unused", Usage: "Show variables never referenced in scanned code"},
				}, scanFlags...),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := a.setup(cmd); err != nil {
						return fail(err)
					}
					if cmd.Bool("unused") {
						unused, err := a.findUnused(ctx, cmd.StringSlice("paths"), cmd.StringSlice("ignore"))
						if err != nil {
							return fail(err)
						}
						sort.Strings(unused)
						if cmd.String("format") == "json" {
							data, _ := json.MarshalIndent(map[string]any{
								"unused_variables": unused,
								"count":            len(unused),
							}, "", "  ")
							fmt.Println(string(data))
							return nil
						}
						if len(unused) == 0 {
							fmt.Println("No unused environment variables found")
							return nil
						}
						fmt.Printf("Found %d unused variable(s):\n", len(unused))
						for _, name := range unused {
							if v, ok := a.store.Get(name); ok {
								fmt.Printf("  %s=%s [%s]\n", name, truncate(v.Value, 50), v.Source.String())
							}
						}
						return nil
					}

					name := cmd.Args().First()
					if name == "" {
						return fail(fmt.Errorf("usage: envx deps show VAR (or --unused)"))
					}
					tracker := a.newTracker(cmd.StringSlice("paths"), cmd.StringSlice("ignore"))
					if err := tracker.Scan(ctx); err != nil {
						return fail(err)
					}
					usages := tracker.Usages(name)
					if cmd.String("format") == "json" {
						data, _ := json.MarshalIndent(map[string]any{
							"variable": name,
							"usages":   usages,
						}, "", "  ")
						fmt.Println(string(data))
						return nil
					}
					if len(usages) == 0 {
						fmt.Printf("No usages of %s found\n", name)
						return nil
					}
					fmt.Printf("Found %d usage(s) of %s:\n", len(usages), name)
					for _, u := range usages {
						fmt.Printf("  %s:%d  %s\n", u.File, u.Line, truncate(u.Context, 80))
					}
					return nil
				},
			},
			{
				Name:      "scan",
				Usage:     "Scan paths and summarize which variables are referenced",
				ArgsUsage: "[PATHS...]",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "ignore", Aliases: []string{"i"}, Usage: "Extra ignore patterns"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := a.setup(cmd); err != nil {
						return fail(err)
					}
					tracker := a.newTracker(cmd.Args().Slice(), cmd.StringSlice("ignore"))
					if err := tracker.Scan(ctx); err != nil {
						return fail(err)
					}
					counts := tracker.UsageCounts()
					names := make([]string, 0, len(counts))
					for name := range counts {
						names = append(names, name)
					}
					sort.Strings(names)
					fmt.Printf("Found %d referenced variable(s)\n", len(names))
					for _, name := range names {
						fmt.Printf("  %-40s %d\n", name, counts[name])
					}
					return nil
				},
			},
			{
				Name:  "stats",
				Usage: "Usage statistics for referenced variables",
				Flags: append([]cli.Flag{
					&cli.BoolFlag{Name: "by-usage", Usage: "Sort by usage count instead of name"},
				}, scanFlags...),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := a.setup(cmd); err != nil {
						return fail(err)
					}
					tracker := a.newTracker(cmd.StringSlice("paths"), cmd.StringSlice("ignore"))
					if err := tracker.Scan(ctx); err != nil {
						return fail(err)
					}
					counts := tracker.UsageCounts()
					names := make([]string, 0, len(counts))
					total := 0
					for name, n := range counts {
						names = append(names, name)
						total += n
					}
					if cmd.Bool("by-usage") {
						sort.Slice(names, func(i, j int) bool {
							if counts[names[i]] != counts[names[j]] {
								return counts[names[i]] > counts[names[j]]
							}
							return names[i] < names[j]
						})
					} else {
						sort.Strings(names)
					}
					set := 0
					for _, name := range names {
						if _, ok := a.store.Get(name); ok {
							set++
						}
					}
					fmt.Printf("%d variable(s) referenced, %d usage(s), %d currently set\n", len(names), total, set)
					for _, name := range names {
						marker := " "
						if _, ok := a.store.Get(name); !ok {
							marker = "!"
						}
						fmt.Printf("%s %-40s %d\n", marker, name, counts[name])
					}
					return nil
				},
			},
		},
	}
}
