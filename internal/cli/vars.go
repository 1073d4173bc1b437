package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/mikeleppane/envx-sub000/internal/envstore"
)

func printVars(vars []*envstore.Variable, format string, verbose bool) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(vars, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	default:
		for _, v := range vars {
			if verbose {
				fmt.Printf("%s=%s\t[%s]\n", v.Name, v.Value, v.Source.String())
			} else {
				fmt.Printf("%s=%s\n", v.Name, v.Value)
			}
		}
	}
	return nil
}

func formatFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format (text, json)",
		Value:   "text",
	}
}

func (a *app) listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List environment variables",
		Flags: []cli.Flag{
			formatFlag(),
			&cli.StringFlag{Name: "source", Usage: "Filter by source (system, user, process, shell, application)"},
			&cli.BoolFlag{Name: "sort", Usage: "Sort by name instead of insertion order"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "Show variable sources"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := a.setup(cmd); err != nil {
				return fail(err)
			}
			vars := a.store.List()
			if src := cmd.String("source"); src != "" {
				vars = a.store.FilterBySource(envstore.SourceKind(src))
			}
			if cmd.Bool("sort") {
				sort.Slice(vars, func(i, j int) bool { return vars[i].Name < vars[j].Name })
			}
			return fail(printVars(vars, cmd.String("format"), cmd.Bool("verbose")))
		},
	}
}

func (a *app) getCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Get variables by name, glob pattern, or /regex/",
		ArgsUsage: "PATTERN",
		Flags: []cli.Flag{
			formatFlag(),
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "Show source and modification state"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := a.setup(cmd); err != nil {
				return fail(err)
			}
			pattern := cmd.Args().First()
			if pattern == "" {
				return fail(fmt.Errorf("usage: envx get PATTERN"))
			}
			vars, err := a.store.GetPattern(pattern)
			if err != nil {
				return fail(err)
			}
			if len(vars) == 0 {
				return fail(fmt.Errorf("no variables match %q", pattern))
			}
			return fail(printVars(vars, cmd.String("format"), cmd.Bool("verbose")))
		},
	}
}

func (a *app) setCommand() *cli.Command {
	return &cli.Command{
		Name:      "set",
		Usage:     "Set a variable",
		ArgsUsage: "NAME VALUE",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "persistent", Aliases: []string{"p"}, Usage: "Persist beyond the current process"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := a.setup(cmd); err != nil {
				return fail(err)
			}
			name, value := cmd.Args().Get(0), cmd.Args().Get(1)
			if name == "" || cmd.Args().Len() < 2 {
				return fail(fmt.Errorf("usage: envx set NAME VALUE"))
			}
			if err := a.store.Set(name, value, cmd.Bool("persistent")); err != nil {
				return fail(err)
			}
			fmt.Printf("Set %s\n", name)
			return nil
		},
	}
}

func (a *app) deleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete variables by name, glob pattern, or /regex/",
		ArgsUsage: "PATTERN",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := a.setup(cmd); err != nil {
				return fail(err)
			}
			pattern := cmd.Args().First()
			if pattern == "" {
				return fail(fmt.Errorf("usage: envx delete PATTERN"))
			}
			matches, err := a.store.GetPattern(pattern)
			if err != nil {
				return fail(err)
			}
			if len(matches) == 0 {
				return fail(fmt.Errorf("no variables match %q", pattern))
			}
			for _, v := range matches {
				if err := a.store.Delete(v.Name); err != nil {
					return fail(err)
				}
			}
			fmt.Printf("Deleted %d variable(s)\n", len(matches))
			return nil
		},
	}
}

func (a *app) renameCommand() *cli.Command {
	return &cli.Command{
		Name:      "rename",
		Usage:     "Rename variables, with one * wildcard on both sides",
		ArgsUsage: "PATTERN REPLACEMENT",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := a.setup(cmd); err != nil {
				return fail(err)
			}
			if cmd.Args().Len() < 2 {
				return fail(fmt.Errorf("usage: envx rename PATTERN REPLACEMENT"))
			}
			n, err := a.store.Rename(cmd.Args().Get(0), cmd.Args().Get(1))
			if err != nil {
				return fail(err)
			}
			fmt.Printf("Renamed %d variable(s)\n", n)
			return nil
		},
	}
}

func (a *app) replaceCommand() *cli.Command {
	return &cli.Command{
		Name:      "replace",
		Usage:     "Replace the value of every variable matching a pattern",
		ArgsUsage: "PATTERN VALUE",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := a.setup(cmd); err != nil {
				return fail(err)
			}
			if cmd.Args().Len() < 2 {
				return fail(fmt.Errorf("usage: envx replace PATTERN VALUE"))
			}
			n, err := a.store.Replace(cmd.Args().Get(0), cmd.Args().Get(1))
			if err != nil {
				return fail(err)
			}
			fmt.Printf("Replaced %d value(s)\n", n)
			return nil
		},
	}
}

func (a *app) findReplaceCommand() *cli.Command {
	return &cli.Command{
		Name:      "find-replace",
		Usage:     "Substitute a substring inside matching variable values",
		ArgsUsage: "SEARCH REPLACEMENT [PATTERN]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := a.setup(cmd); err != nil {
				return fail(err)
			}
			if cmd.Args().Len() < 2 {
				return fail(fmt.Errorf("usage: envx find-replace SEARCH REPLACEMENT [PATTERN]"))
			}
			pattern := cmd.Args().Get(2)
			if pattern == "" {
				pattern = "*"
			}
			n, err := a.store.FindReplace(cmd.Args().Get(0), cmd.Args().Get(1), pattern)
			if err != nil {
				return fail(err)
			}
			fmt.Printf("Updated %d value(s)\n", n)
			return nil
		},
	}
}

func (a *app) undoCommand() *cli.Command {
	return &cli.Command{
		Name:  "undo",
		Usage: "Undo the most recent set or delete",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := a.setup(cmd); err != nil {
				return fail(err)
			}
			if err := a.store.Undo(); err != nil {
				return fail(err)
			}
			fmt.Println("Undone")
			return nil
		},
	}
}

func (a *app) searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search variable names",
		ArgsUsage: "QUERY",
		Flags: []cli.Flag{
			formatFlag(),
			&cli.BoolFlag{Name: "prefix", Usage: "Match names starting with QUERY"},
			&cli.BoolFlag{Name: "suffix", Usage: "Match names ending with QUERY"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := a.setup(cmd); err != nil {
				return fail(err)
			}
			query := cmd.Args().First()
			if query == "" {
				return fail(fmt.Errorf("usage: envx search QUERY"))
			}
			var vars []*envstore.Variable
			switch {
			case cmd.Bool("prefix"):
				vars = a.store.GetPrefix(query)
			case cmd.Bool("suffix"):
				vars = a.store.GetSuffix(query)
			default:
				vars = a.store.Search(query)
			}
			if len(vars) == 0 {
				fmt.Println("No matches")
				return nil
			}
			return fail(printVars(vars, cmd.String("format"), false))
		},
	}
}

func (a *app) historyCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show recent in-session changes, newest first",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Maximum entries to show", Value: 20},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := a.setup(cmd); err != nil {
				return fail(err)
			}
			entries := a.store.RecentHistory(int(cmd.Int("limit")))
			if len(entries) == 0 {
				fmt.Println("No history")
				return nil
			}
			for _, e := range entries {
				old := ""
				if e.Action.OldValue != nil {
					old = *e.Action.OldValue
				}
				fmt.Printf("%s  %-6s %s  %q -> %q\n",
					e.Timestamp.Format("2006-01-02 15:04:05"),
					string(e.Action.Kind), e.Action.Name,
					truncate(old, 40), truncate(e.Action.NewValue, 40))
			}
			return nil
		},
	}
}

func (a *app) cleanupCommand() *cli.Command {
	return &cli.Command{
		Name:  "cleanup",
		Usage: "Find and remove variables not referenced by any scanned code",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "paths", Aliases: []string{"p"}, Usage: "Paths to scan (defaults to current directory)"},
			&cli.StringSliceFlag{Name: "ignore", Aliases: []string{"i"}, Usage: "Extra ignore patterns"},
			&cli.StringSliceFlag{Name: "keep", Aliases: []string{"k"}, Usage: "Keep variables matching these patterns"},
			&cli.BoolFlag{Name: "dry-run", Usage: "Only list what would be removed"},
			&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Remove without confirmation"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := a.setup(cmd); err != nil {
				return fail(err)
			}
			allUnused, err := a.findUnused(ctx, cmd.StringSlice("paths"), cmd.StringSlice("ignore"))
			if err != nil {
				return fail(err)
			}
			keep := cmd.StringSlice("keep")
			var unused []string
			for _, name := range allUnused {
				if keepVariable(name, keep) {
					continue
				}
				if v, ok := a.store.Get(name); ok && cleanupCandidate(v) {
					unused = append(unused, name)
				}
			}
			if len(unused) == 0 {
				fmt.Println("No unused variables found")
				return nil
			}
			sort.Strings(unused)
			fmt.Printf("Found %d unused variable(s):\n", len(unused))
			for _, name := range unused {
				fmt.Printf("  %s\n", name)
			}
			if cmd.Bool("dry-run") {
				return nil
			}
			if !cmd.Bool("yes") {
				fmt.Println("Re-run with --yes to remove them")
				return nil
			}
			removed := 0
			for _, name := range unused {
				if err := a.store.Delete(name); err != nil {
					fmt.Printf("  failed to delete %s: %v\n", name, err)
					continue
				}
				removed++
			}
			fmt.Printf("Removed %d variable(s)\n", removed)
			return nil
		},
	}
}

// keepVariable reports whether a name matches any keep pattern, either
// as a substring or as a glob.
func keepVariable(name string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(name, p) {
			return true
		}
		if ok, err := envstore.MatchPattern(p, name); err == nil && ok {
			return true
		}
	}
	return false
}

// sourceFilterForCleanup keeps cleanup away from variables the user did
// not create: only user and application variables are candidates.
func cleanupCandidate(v *envstore.Variable) bool {
	switch v.Source.Kind {
	case envstore.SourceUser, envstore.SourceApplication:
		return true
	default:
		return strings.HasPrefix(v.Name, "OLD_") || strings.HasPrefix(v.Name, "BACKUP_")
	}
}
