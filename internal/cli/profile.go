package cli

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/urfave/cli/v3"
)

func (a *app) profileCommand() *cli.Command {
	return &cli.Command{
		Name:  "profile",
		Usage: "Manage named sets of environment variables",
		Commands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "Create an empty profile",
				ArgsUsage: "NAME",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "description", Aliases: []string{"d"}},
					&cli.StringFlag{Name: "parent", Usage: "Profile to inherit variables from"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := a.setup(cmd); err != nil {
						return fail(err)
					}
					name := cmd.Args().First()
					if name == "" {
						return fail(fmt.Errorf("usage: envx profile create NAME"))
					}
					p, err := a.profiles.Create(name, cmd.String("description"))
					if err != nil {
						return fail(err)
					}
					if parent := cmd.String("parent"); parent != "" {
						if _, ok := a.profiles.Get(parent); !ok {
							return fail(fmt.Errorf("parent profile %q does not exist", parent))
						}
						p.Parent = parent
						if err := a.profiles.Save(); err != nil {
							return fail(err)
						}
					}
					fmt.Printf("Created profile %s\n", name)
					return nil
				},
			},
			{
				Name:  "list",
				Usage: "List profiles",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := a.setup(cmd); err != nil {
						return fail(err)
					}
					active := a.profiles.Active()
					for _, p := range a.profiles.List() {
						marker := " "
						if p.Name == active {
							marker = "*"
						}
						fmt.Printf("%s %s (%d variables)", marker, p.Name, len(p.Variables))
						if p.Parent != "" {
							fmt.Printf(" <- %s", p.Parent)
						}
						fmt.Println()
					}
					return nil
				},
			},
			{
				Name:      "show",
				Usage:     "Show a profile's variables",
				ArgsUsage: "NAME",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := a.setup(cmd); err != nil {
						return fail(err)
					}
					name := cmd.Args().First()
					p, ok := a.profiles.Get(name)
					if !ok {
						return fail(fmt.Errorf("profile %q not found", name))
					}
					if p.Description != "" {
						fmt.Println(p.Description)
					}
					names := make([]string, 0, len(p.Variables))
					for n := range p.Variables {
						names = append(names, n)
					}
					sort.Strings(names)
					for _, n := range names {
						v := p.Variables[n]
						state := ""
						if !v.Enabled {
							state = "  (disabled)"
						}
						fmt.Printf("%s=%s%s\n", n, v.Value, state)
					}
					return nil
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete a profile",
				ArgsUsage: "NAME",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := a.setup(cmd); err != nil {
						return fail(err)
					}
					if err := a.profiles.Delete(cmd.Args().First()); err != nil {
						return fail(err)
					}
					fmt.Println("Deleted")
					return nil
				},
			},
			{
				Name:      "switch",
				Usage:     "Mark a profile as active",
				ArgsUsage: "NAME",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := a.setup(cmd); err != nil {
						return fail(err)
					}
					name := cmd.Args().First()
					if err := a.profiles.Switch(name); err != nil {
						return fail(err)
					}
					fmt.Printf("Switched to %s\n", name)
					return nil
				},
			},
			{
				Name:      "apply",
				Usage:     "Apply a profile's variables to the environment",
				ArgsUsage: "NAME",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := a.setup(cmd); err != nil {
						return fail(err)
					}
					name := cmd.Args().First()
					if name == "" {
						name = a.profiles.Active()
					}
					if name == "" {
						return fail(fmt.Errorf("no profile named and none active"))
					}
					if err := a.profiles.Apply(name, a.store); err != nil {
						return fail(err)
					}
					fmt.Printf("Applied %s\n", name)
					return nil
				},
			},
			{
				Name:      "set",
				Usage:     "Set a variable inside a profile",
				ArgsUsage: "PROFILE NAME VALUE",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := a.setup(cmd); err != nil {
						return fail(err)
					}
					if cmd.Args().Len() < 3 {
						return fail(fmt.Errorf("usage: envx profile set PROFILE NAME VALUE"))
					}
					p, ok := a.profiles.Get(cmd.Args().Get(0))
					if !ok {
						return fail(fmt.Errorf("profile %q not found", cmd.Args().Get(0)))
					}
					p.AddVar(cmd.Args().Get(1), cmd.Args().Get(2))
					return fail(a.profiles.Save())
				},
			},
			{
				Name:      "unset",
				Usage:     "Remove a variable from a profile",
				ArgsUsage: "PROFILE NAME",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := a.setup(cmd); err != nil {
						return fail(err)
					}
					if cmd.Args().Len() < 2 {
						return fail(fmt.Errorf("usage: envx profile unset PROFILE NAME"))
					}
					p, ok := a.profiles.Get(cmd.Args().Get(0))
					if !ok {
						return fail(fmt.Errorf("profile %q not found", cmd.Args().Get(0)))
					}
					p.RemoveVar(cmd.Args().Get(1))
					return fail(a.profiles.Save())
				},
			},
			{
				Name:      "export",
				Usage:     "Write a profile as JSON",
				ArgsUsage: "NAME",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Write to a file instead of stdout"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := a.setup(cmd); err != nil {
						return fail(err)
					}
					data, err := a.profiles.Export(cmd.Args().First())
					if err != nil {
						return fail(err)
					}
					if out := cmd.String("output"); out != "" {
						return fail(os.WriteFile(out, data, 0o644))
					}
					fmt.Println(string(data))
					return nil
				},
			},
			{
				Name:      "import",
				Usage:     "Import a profile from a JSON file",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "Import under a different name"},
					&cli.BoolFlag{Name: "overwrite", Usage: "Replace an existing profile"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := a.setup(cmd); err != nil {
						return fail(err)
					}
					file := cmd.Args().First()
					if file == "" {
						return fail(fmt.Errorf("usage: envx profile import FILE"))
					}
					data, err := os.ReadFile(file)
					if err != nil {
						return fail(err)
					}
					if err := a.profiles.Import(cmd.String("name"), data, cmd.Bool("overwrite")); err != nil {
						return fail(err)
					}
					fmt.Println("Imported")
					return nil
				},
			},
		},
	}
}
