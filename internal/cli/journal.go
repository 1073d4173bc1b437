package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/mikeleppane/envx-sub000/internal/events"
	"github.com/mikeleppane/envx-sub000/internal/journal"
)

func (a *app) openJournal() (*journal.DB, error) {
	return journal.Open(filepath.Join(a.dataDir, "journal.db"))
}

func (a *app) journalCommand() *cli.Command {
	return &cli.Command{
		Name:  "journal",
		Usage: "Inspect the persistent change journal",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "Show recent journaled changes, newest first",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "var", Usage: "Only show changes to this variable"},
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 50},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := a.setup(cmd); err != nil {
						return fail(err)
					}
					db, err := a.openJournal()
					if err != nil {
						return fail(err)
					}
					defer db.Close()

					var changes []events.Change
					if name := cmd.String("var"); name != "" {
						changes, err = db.ByVariable(name, int(cmd.Int("limit")))
					} else {
						changes, err = db.Recent(int(cmd.Int("limit")))
					}
					if err != nil {
						return fail(err)
					}
					if len(changes) == 0 {
						fmt.Println("Journal is empty")
						return nil
					}
					for _, c := range changes {
						fmt.Printf("%s  %-9s %s", c.Timestamp.Format("2006-01-02 15:04:05"), string(c.Kind), c.Name)
						if c.Kind == events.VarModified {
							fmt.Printf("  %q -> %q", truncate(c.OldValue, 30), truncate(c.NewValue, 30))
						}
						if c.Path != "" {
							fmt.Printf("  (%s)", c.Path)
						}
						fmt.Println()
					}
					return nil
				},
			},
			{
				Name:  "prune",
				Usage: "Delete journal entries older than a number of days",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "older-than", Usage: "Age threshold in days", Value: 30},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := a.setup(cmd); err != nil {
						return fail(err)
					}
					db, err := a.openJournal()
					if err != nil {
						return fail(err)
					}
					defer db.Close()

					days := int(cmd.Int("older-than"))
					cutoff := time.Now().UTC().AddDate(0, 0, -days)
					n, err := db.Prune(cutoff)
					if err != nil {
						return fail(err)
					}
					fmt.Printf("Pruned %d entr%s\n", int(n), plural(int(n), "y", "ies"))
					return nil
				},
			},
		},
	}
}
