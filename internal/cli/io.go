package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/mikeleppane/envx-sub000/internal/envfile"
	"github.com/mikeleppane/envx-sub000/internal/envstore"
)

func (a *app) importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Read variables from a file into the environment",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "File format (dotenv, json, yaml, text); detected from the extension when omitted"},
			&cli.StringSliceFlag{Name: "pattern", Usage: "Only import names matching these patterns"},
			&cli.StringFlag{Name: "prefix", Usage: "Prefix every imported name"},
			&cli.BoolFlag{Name: "persistent", Aliases: []string{"p"}, Usage: "Persist imported variables"},
			&cli.BoolFlag{Name: "dry-run", Usage: "Show what would be imported"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := a.setup(cmd); err != nil {
				return fail(err)
			}
			file := cmd.Args().First()
			if file == "" {
				return fail(fmt.Errorf("usage: envx import FILE"))
			}

			format := envfile.DetectFormat(file)
			if f := cmd.String("format"); f != "" {
				parsed, ok := envfile.ParseFormat(f)
				if !ok {
					return fail(fmt.Errorf("unknown format %q", f))
				}
				format = parsed
			}

			im := envfile.NewImporter(format)
			if err := im.Load(file); err != nil {
				return fail(err)
			}
			if patterns := cmd.StringSlice("pattern"); len(patterns) > 0 {
				if err := im.FilterByPatterns(patterns); err != nil {
					return fail(err)
				}
			}
			if prefix := cmd.String("prefix"); prefix != "" {
				im.AddPrefix(prefix)
			}

			if cmd.Bool("dry-run") {
				for _, e := range im.Entries() {
					fmt.Printf("%s=%s\n", e.Name, e.Value)
				}
				fmt.Printf("Would import %d variable(s)\n", im.Count())
				return nil
			}
			if err := im.Apply(a.store, cmd.Bool("persistent")); err != nil {
				return fail(err)
			}
			fmt.Printf("Imported %d variable(s)\n", im.Count())
			return nil
		},
	}
}

func (a *app) exportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Write the environment to a file (or stdout with -)",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "Output format (dotenv, json, yaml, text, shell, powershell)"},
			&cli.StringSliceFlag{Name: "pattern", Usage: "Only export names matching these patterns"},
			&cli.BoolFlag{Name: "metadata", Usage: "Include an export header and per-variable provenance"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := a.setup(cmd); err != nil {
				return fail(err)
			}
			file := cmd.Args().First()
			if file == "" {
				return fail(fmt.Errorf("usage: envx export FILE"))
			}

			format := envfile.FormatDotenv
			if file != "-" {
				format = envfile.DetectFormat(file)
			}
			if f := cmd.String("format"); f != "" {
				parsed, ok := envfile.ParseFormat(f)
				if !ok {
					return fail(fmt.Errorf("unknown format %q", f))
				}
				format = parsed
			}

			vars := a.store.List()
			if patterns := cmd.StringSlice("pattern"); len(patterns) > 0 {
				filtered := make([]*envstore.Variable, 0, len(vars))
				for _, v := range vars {
					for _, p := range patterns {
						ok, err := envstore.MatchPattern(p, v.Name)
						if err != nil {
							return fail(err)
						}
						if ok {
							filtered = append(filtered, v)
							break
						}
					}
				}
				vars = filtered
			}

			ex := envfile.NewExporter(vars)
			ex.IncludeMetadata(cmd.Bool("metadata"))
			data, err := ex.Export(format)
			if err != nil {
				return fail(err)
			}
			if file == "-" {
				fmt.Print(string(data))
				return nil
			}
			if err := os.WriteFile(file, data, 0o644); err != nil {
				return fail(err)
			}
			fmt.Printf("Exported %d variable(s) to %s\n", ex.Count(), file)
			return nil
		},
	}
}
