package main

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded build and export runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		limit, _ := cmd.Flags().GetInt("limit")

		s, err := openStore(ctx)
		if err != nil {
			return eris.Wrap(err, "runs: open run log")
		}
		defer s.Close() //nolint:errcheck

		runs, err := s.ListRuns(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "runs: list")
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded")
			return nil
		}

		fmt.Printf("%-36s  %-7s  %-9s  %8s  %s\n", "ID", "KIND", "YEARS", "ROWS", "CREATED")
		for _, r := range runs {
			years := fmt.Sprintf("%d-%d", r.StartYear, r.EndYear)
			fmt.Printf("%-36s  %-7s  %-9s  %8d  %s\n",
				r.ID, r.Kind, years, r.Rows, r.CreatedAt.Format("2006-01-02 15:04"))
			if r.Audit != nil {
				fmt.Printf("%38saudit: in=%d dropped=%d out=%d\n",
					"", r.Audit.InputRows, r.Audit.Dropped, r.Audit.OutputRows)
			}
			if len(r.Artifacts) > 0 {
				fmt.Printf("%38s%s\n", "", strings.Join(r.Artifacts, ", "))
			}
		}
		return nil
	},
}

func init() {
	runsCmd.Flags().Int("limit", 20, "max runs to list")
	rootCmd.AddCommand(runsCmd)
}
