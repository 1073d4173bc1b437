package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/urfave/cli/v3"

	"github.com/mikeleppane/envx-sub000/internal/analyzer"
)

func (a *app) analyzeCommand() *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "Report duplicate names, invalid names, broken PATH entries, and stale-looking variables",
		Flags: []cli.Flag{
			formatFlag(),
			&cli.BoolFlag{Name: "deps", Usage: "Also show which variables reference which"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := a.setup(cmd); err != nil {
				return fail(err)
			}
			vars := a.store.List()
			issues := analyzer.ValidateAll(vars, a.windows)
			duplicates := analyzer.FindDuplicates(vars)
			stale := analyzer.FindUnusedCandidates(vars)

			if cmd.String("format") == "json" {
				report := map[string]any{
					"issues":           issues,
					"duplicates":       duplicates,
					"stale_candidates": stale,
				}
				if cmd.Bool("deps") {
					report["dependencies"] = analyzer.Dependencies(vars)
				}
				data, err := json.MarshalIndent(report, "", "  ")
				if err != nil {
					return fail(err)
				}
				fmt.Println(string(data))
				return nil
			}

			if len(issues) == 0 && len(duplicates) == 0 && len(stale) == 0 {
				fmt.Println("No issues found")
				return nil
			}
			for _, issue := range issues {
				fmt.Printf("[%s] %s: %s\n", issue.Level, issue.Name, issue.Message)
			}
			for name, vs := range duplicates {
				fmt.Printf("[warning] %s: %d variables differ only by case\n", name, len(vs))
			}
			if len(stale) > 0 {
				sort.Strings(stale)
				fmt.Println("Possibly stale (OLD_/BACKUP_ naming):")
				for _, name := range stale {
					fmt.Printf("  %s\n", name)
				}
			}
			if cmd.Bool("deps") {
				deps := analyzer.Dependencies(vars)
				names := make([]string, 0, len(deps))
				for name := range deps {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					fmt.Printf("%s references %v\n", name, deps[name])
				}
			}
			return nil
		},
	}
}
