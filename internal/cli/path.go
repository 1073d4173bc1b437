package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/mikeleppane/envx-sub000/internal/analyzer"
	"github.com/mikeleppane/envx-sub000/internal/pathlist"
)

func (a *app) pathVar(cmd *cli.Command) string {
	name := cmd.String("var")
	if name == "" {
		return "PATH"
	}
	return name
}

func (a *app) loadPathList(cmd *cli.Command) (*pathlist.List, string, error) {
	name := a.pathVar(cmd)
	value := ""
	if v, ok := a.store.Get(name); ok {
		value = v.Value
	}
	return pathlist.New(value), name, nil
}

func (a *app) savePathList(name string, list *pathlist.List) error {
	return a.store.Set(name, list.String(), true)
}

func pathVarFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "var",
		Usage: "PATH-like variable to operate on",
		Value: "PATH",
	}
}

func (a *app) pathCommand() *cli.Command {
	return &cli.Command{
		Name:  "path",
		Usage: "Manage PATH-like variables",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "Print entries in order",
				Flags: []cli.Flag{pathVarFlag()},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := a.setup(cmd); err != nil {
						return fail(err)
					}
					list, _, err := a.loadPathList(cmd)
					if err != nil {
						return fail(err)
					}
					for i, entry := range list.Entries() {
						fmt.Printf("%3d  %s\n", i, entry)
					}
					return nil
				},
			},
			{
				Name:      "add",
				Usage:     "Append an entry (or prepend with --first)",
				ArgsUsage: "DIR",
				Flags: []cli.Flag{
					pathVarFlag(),
					&cli.BoolFlag{Name: "first", Usage: "Prepend instead of append"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := a.setup(cmd); err != nil {
						return fail(err)
					}
					entry := cmd.Args().First()
					if entry == "" {
						return fail(fmt.Errorf("usage: envx path add DIR"))
					}
					list, name, err := a.loadPathList(cmd)
					if err != nil {
						return fail(err)
					}
					if cmd.Bool("first") {
						list.AddFirst(entry)
					} else {
						list.AddLast(entry)
					}
					if err := a.savePathList(name, list); err != nil {
						return fail(err)
					}
					fmt.Printf("%s now has %d entries\n", name, list.Len())
					return nil
				},
			},
			{
				Name:      "remove",
				Usage:     "Remove the first matching entry (or every one with --all)",
				ArgsUsage: "DIR",
				Flags: []cli.Flag{
					pathVarFlag(),
					&cli.BoolFlag{Name: "all", Usage: "Remove every occurrence"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := a.setup(cmd); err != nil {
						return fail(err)
					}
					entry := cmd.Args().First()
					if entry == "" {
						return fail(fmt.Errorf("usage: envx path remove DIR"))
					}
					list, name, err := a.loadPathList(cmd)
					if err != nil {
						return fail(err)
					}
					removed := 0
					if cmd.Bool("all") {
						removed = list.RemoveAll(entry)
					} else if list.RemoveFirst(entry) {
						removed = 1
					}
					if removed == 0 {
						return fail(fmt.Errorf("%q not found in %s", entry, name))
					}
					if err := a.savePathList(name, list); err != nil {
						return fail(err)
					}
					fmt.Printf("Removed %d entr%s\n", removed, plural(removed, "y", "ies"))
					return nil
				},
			},
			{
				Name:      "move",
				Usage:     "Move an entry to a new position",
				ArgsUsage: "FROM TO",
				Flags:     []cli.Flag{pathVarFlag()},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := a.setup(cmd); err != nil {
						return fail(err)
					}
					if cmd.Args().Len() < 2 {
						return fail(fmt.Errorf("usage: envx path move FROM TO"))
					}
					from, err1 := strconv.Atoi(cmd.Args().Get(0))
					to, err2 := strconv.Atoi(cmd.Args().Get(1))
					if err1 != nil || err2 != nil {
						return fail(fmt.Errorf("FROM and TO must be indexes"))
					}
					list, name, err := a.loadPathList(cmd)
					if err != nil {
						return fail(err)
					}
					if err := list.Move(from, to); err != nil {
						return fail(err)
					}
					return fail(a.savePathList(name, list))
				},
			},
			{
				Name:  "dedupe",
				Usage: "Remove duplicate entries",
				Flags: []cli.Flag{
					pathVarFlag(),
					&cli.BoolFlag{Name: "keep-last", Usage: "Keep the last occurrence instead of the first"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := a.setup(cmd); err != nil {
						return fail(err)
					}
					list, name, err := a.loadPathList(cmd)
					if err != nil {
						return fail(err)
					}
					removed := list.Dedupe(!cmd.Bool("keep-last"))
					if removed > 0 {
						if err := a.savePathList(name, list); err != nil {
							return fail(err)
						}
					}
					fmt.Printf("Removed %d duplicate(s)\n", removed)
					return nil
				},
			},
			{
				Name:  "clean",
				Usage: "Remove entries that do not exist on disk",
				Flags: []cli.Flag{pathVarFlag()},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := a.setup(cmd); err != nil {
						return fail(err)
					}
					list, name, err := a.loadPathList(cmd)
					if err != nil {
						return fail(err)
					}
					removed := list.RemoveInvalid()
					if removed > 0 {
						if err := a.savePathList(name, list); err != nil {
							return fail(err)
						}
					}
					fmt.Printf("Removed %d invalid entr%s\n", removed, plural(removed, "y", "ies"))
					return nil
				},
			},
			{
				Name:  "check",
				Usage: "Report duplicates, invalid entries, and other problems",
				Flags: []cli.Flag{pathVarFlag()},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := a.setup(cmd); err != nil {
						return fail(err)
					}
					name := a.pathVar(cmd)
					value := ""
					if v, ok := a.store.Get(name); ok {
						value = v.Value
					}
					issues := analyzer.PathDiagnostics(name, value, a.windows)
					if len(issues) == 0 {
						fmt.Printf("%s looks healthy\n", name)
						return nil
					}
					for _, issue := range issues {
						fmt.Printf("[%s] %s\n", issue.Level, issue.Message)
					}
					return nil
				},
			},
		},
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
