package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/mikeleppane/envx-sub000/internal/apperr"
	"github.com/mikeleppane/envx-sub000/internal/projectcfg"
)

func (a *app) projectCommand() *cli.Command {
	return &cli.Command{
		Name:  "project",
		Usage: "Work with per-project .envx configuration",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Scaffold .envx/config.yaml in the current directory",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "Project name (defaults to the directory name)"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := a.setup(cmd); err != nil {
						return fail(err)
					}
					cwd, err := os.Getwd()
					if err != nil {
						return fail(err)
					}
					path, err := projectcfg.Init(cwd, cmd.String("name"))
					if err != nil {
						return fail(err)
					}
					fmt.Printf("Created %s\n", path)
					return nil
				},
			},
			{
				Name:  "validate",
				Usage: "Check the environment against the project's requirements",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := a.setup(cmd); err != nil {
						return fail(err)
					}
					_, cfg, err := a.discoverProject()
					if err != nil {
						return fail(err)
					}
					report := cfg.CheckEnvironment(a.store)
					for _, m := range report.Missing {
						fmt.Printf("missing: %s", m.Name)
						if m.Description != "" {
							fmt.Printf(" (%s)", m.Description)
						}
						if m.Example != "" {
							fmt.Printf(", e.g. %s", m.Example)
						}
						fmt.Println()
					}
					for _, e := range report.Errors {
						fmt.Printf("error: %s: %s\n", e.Name, e.Message)
					}
					for _, w := range report.Warnings {
						fmt.Printf("warning: %s\n", w)
					}
					if !report.Success() {
						return fail(fmt.Errorf("%w: %d missing, %d invalid",
							apperr.ErrValidation, len(report.Missing), len(report.Errors)))
					}
					fmt.Printf("OK: %d required variable(s) present\n", report.Found)
					return nil
				},
			},
			{
				Name:  "apply",
				Usage: "Activate the project environment (profile, auto_load files, defaults)",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := a.setup(cmd); err != nil {
						return fail(err)
					}
					dir, cfg, err := a.discoverProject()
					if err != nil {
						return fail(err)
					}
					if err := cfg.Apply(dir, a.store, a.profiles); err != nil {
						return fail(err)
					}
					fmt.Printf("Applied project configuration from %s\n", dir)
					return nil
				},
			},
			{
				Name:      "run",
				Usage:     "Run a script defined by the project",
				ArgsUsage: "SCRIPT",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := a.setup(cmd); err != nil {
						return fail(err)
					}
					script := cmd.Args().First()
					if script == "" {
						return fail(fmt.Errorf("usage: envx project run SCRIPT"))
					}
					dir, cfg, err := a.discoverProject()
					if err != nil {
						return fail(err)
					}
					return fail(cfg.RunScript(ctx, dir, script, os.Stdout, os.Stderr))
				},
			},
		},
	}
}

func (a *app) discoverProject() (string, *projectcfg.Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", nil, err
	}
	return projectcfg.Discover(cwd)
}
