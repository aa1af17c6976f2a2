package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"kabuten/internal/config"
)

// sectorsCmd lists the roster
var sectorsCmd = &cobra.Command{
	Use:   "sectors",
	Short: "List covered sectors and their companies",
	RunE: func(cmd *cobra.Command, args []string) error {
		sectors, err := config.LoadSectors(cfg.SectorsFile)
		if err != nil {
			return err
		}

		t := newTable("Key", "Lead", "Sector", "Companies", "Tickers")
		t.SetColumnConfigs([]table.ColumnConfig{
			{Number: 4, Align: text.AlignRight},
			{Number: 5, WidthMax: 50},
		})
		total := 0
		for _, s := range sectors {
			tickers := make([]string, len(s.Companies))
			for i, c := range s.Companies {
				tickers[i] = c.Ticker
			}
			total += len(s.Companies)
			t.AppendRow(table.Row{s.Key, designation(s), s.Name, len(s.Companies), strings.Join(tickers, " ")})
		}
		t.AppendFooter(table.Row{"", "", fmt.Sprintf("%d sectors", len(sectors)), total, ""})
		fmt.Fprintln(cmd.OutOrStdout(), t.Render())
		return nil
	},
}

// statusCmd shows per-sector thread and sweep state
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show each sector's thread length, last sweep and latest view",
	RunE: func(cmd *cobra.Command, args []string) error {
		sectors, st, err := openStoreAndRoster()
		if err != nil {
			return err
		}
		defer st.Close()

		threads, err := st.ThreadStatus()
		if err != nil {
			return err
		}

		t := newTable("Key", "Lead", "Companies", "Thread", "Last sweep", "Posture", "Conviction")
		t.SetColumnConfigs(alignRight(3, 4, 7))
		for _, s := range sectors {
			info := threads[s.Key]
			lastSweep := "never"
			if !info.LastSweepAt.IsZero() {
				lastSweep = info.LastSweepAt.UTC().Format(time.RFC3339)
			}
			row := table.Row{s.Key, designation(s), len(s.Companies), info.Entries, lastSweep, "", ""}

			rec, ok, err := st.LatestSynthesis(s.Key)
			if err != nil {
				return err
			}
			if ok {
				row[5] = posture(rec.Synthesis.Posture)
				row[6] = conviction(rec.Synthesis.Conviction)
			}
			t.AppendRow(row)
		}
		fmt.Fprintln(cmd.OutOrStdout(), t.Render())
		return nil
	},
}
