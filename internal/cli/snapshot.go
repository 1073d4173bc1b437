package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/urfave/cli/v3"

	"github.com/mikeleppane/envx-sub000/internal/snapshot"
)

func (a *app) snapshotCommand() *cli.Command {
	return &cli.Command{
		Name:  "snapshot",
		Usage: "Save and restore full environment states",
		Commands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "Snapshot the current environment",
				ArgsUsage: "NAME",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "description", Aliases: []string{"d"}},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := a.setup(cmd); err != nil {
						return fail(err)
					}
					name := cmd.Args().First()
					if name == "" {
						return fail(fmt.Errorf("usage: envx snapshot create NAME"))
					}
					s := snapshot.New(name, cmd.String("description"), a.store.List())
					if err := a.snapshots.Create(s); err != nil {
						return fail(err)
					}
					fmt.Printf("Created snapshot %s (%s)\n", name, s.ID)
					return nil
				},
			},
			{
				Name:  "list",
				Usage: "List snapshots, newest first",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := a.setup(cmd); err != nil {
						return fail(err)
					}
					snaps, err := a.snapshots.List()
					if err != nil {
						return fail(err)
					}
					for _, s := range snaps {
						fmt.Printf("%s  %s  %-20s %d variables\n",
							s.ID, s.CreatedAt.Format("2006-01-02 15:04:05"), s.Name, len(s.Variables))
					}
					return nil
				},
			},
			{
				Name:      "show",
				Usage:     "Show a snapshot's variables",
				ArgsUsage: "ID|NAME",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := a.setup(cmd); err != nil {
						return fail(err)
					}
					s, err := a.snapshots.Get(cmd.Args().First())
					if err != nil {
						return fail(err)
					}
					if s.Description != "" {
						fmt.Println(s.Description)
					}
					names := make([]string, 0, len(s.Variables))
					for n := range s.Variables {
						names = append(names, n)
					}
					sort.Strings(names)
					for _, n := range names {
						fmt.Printf("%s=%s\n", n, s.Variables[n].Value)
					}
					return nil
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete a snapshot",
				ArgsUsage: "ID|NAME",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := a.setup(cmd); err != nil {
						return fail(err)
					}
					if err := a.snapshots.Delete(cmd.Args().First()); err != nil {
						return fail(err)
					}
					fmt.Println("Deleted")
					return nil
				},
			},
			{
				Name:      "restore",
				Usage:     "Replace the environment with a snapshot's state",
				ArgsUsage: "ID|NAME",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := a.setup(cmd); err != nil {
						return fail(err)
					}
					ref := cmd.Args().First()
					if err := a.snapshots.Restore(ref, a.store); err != nil {
						return fail(err)
					}
					fmt.Printf("Restored %s\n", ref)
					return nil
				},
			},
			{
				Name:      "diff",
				Usage:     "Compare two snapshots",
				ArgsUsage: "A B",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := a.setup(cmd); err != nil {
						return fail(err)
					}
					if cmd.Args().Len() < 2 {
						return fail(fmt.Errorf("usage: envx snapshot diff A B"))
					}
					diff, err := a.snapshots.Compare(cmd.Args().Get(0), cmd.Args().Get(1))
					if err != nil {
						return fail(err)
					}
					printDiff(diff)
					return nil
				},
			},
		},
	}
}

func printDiff(d *snapshot.Diff) {
	printSorted := func(prefix string, m map[string]string) {
		names := make([]string, 0, len(m))
		for n := range m {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			fmt.Printf("%s %s=%s\n", prefix, n, m[n])
		}
	}
	printSorted("+", d.Added)
	printSorted("-", d.Removed)

	names := make([]string, 0, len(d.Modified))
	for n := range d.Modified {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		pair := d.Modified[n]
		fmt.Printf("~ %s: %q -> %q\n", n, pair[0], pair[1])
	}
	if len(d.Added)+len(d.Removed)+len(d.Modified) == 0 {
		fmt.Println("No differences")
	}
}
