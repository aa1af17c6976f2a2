package main

import (
	"fmt"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"kabuten/internal/usage"
)

// usageCmd reports accumulated token usage
var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show reasoning token usage by sector and operation",
	RunE: func(cmd *cobra.Command, args []string) error {
		tracker, err := usage.NewTracker(usagePath())
		if err != nil {
			return err
		}
		stats := tracker.Stats()
		out := cmd.OutOrStdout()

		for _, dim := range []struct {
			title  string
			counts map[string]usage.TokenCounts
		}{
			{"Sector", stats.BySector},
			{"Operation", stats.ByOperation},
			{"Model", stats.ByModel},
		} {
			t := newTable(dim.title, "Calls", "Input", "Output", "Total")
			t.SetColumnConfigs(alignRight(2, 3, 4, 5))
			keys := make([]string, 0, len(dim.counts))
			for k := range dim.counts {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				c := dim.counts[k]
				t.AppendRow(table.Row{k, c.Calls, c.Input, c.Output, c.Total})
			}
			t.AppendFooter(table.Row{"all", stats.Total.Calls, stats.Total.Input, stats.Total.Output, stats.Total.Total})
			fmt.Fprintln(out, t.Render())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(usageCmd)
}
