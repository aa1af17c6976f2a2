package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"kabuten/internal/types"
)

var sweepSector string

// sweepCmd runs the daily sweep
var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run the daily sweep for every sector, or one with --sector",
	Long: `Runs the daily sweep. Every company is swept at low effort; companies that
flag a material development are re-swept at high effort; each sector lead
then reduces its findings to one view. Sectors run concurrently and a failing
sector never affects the others.

Threads and sector views are saved to the database once every sector has
finished.`,
	RunE: runSweep,
}

func init() {
	sweepCmd.Flags().StringVarP(&sweepSector, "sector", "s", "", "Sweep only this sector key")
}

func runSweep(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, timeout)
	defer cancelTimeout()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx = a.context(ctx)

	out := cmd.OutOrStdout()

	if sweepSector != "" {
		syn, err := a.orch.RunSectorSweep(ctx, sweepSector)
		if err != nil {
			return err
		}
		if err := a.save(syn); err != nil {
			return err
		}
		def, _ := findSector(a.sectors, sweepSector)
		renderSynthesis(out, def, syn)
		return nil
	}

	results := a.orch.RunAllSweeps(ctx)

	t := newTable("Sector", "Lead", "Posture", "Conviction", "Material", "Status")
	t.SetColumnConfigs(alignRight(4, 5))
	for _, def := range a.sectors {
		syn, ok := results.Syntheses[def.Key]
		if !ok {
			t.AppendRow(table.Row{def.Name, designation(def), "", "", "", failStyle.Render("failed")})
			continue
		}
		status := "ok"
		if err := a.save(syn); err != nil {
			logger.Error("Failed to persist sweep", zap.String("sector", def.Key), zap.Error(err))
			status = failStyle.Render("not saved")
		}
		t.AppendRow(table.Row{
			def.Name, designation(def), posture(syn.Posture), conviction(syn.Conviction),
			fmt.Sprintf("%d/%d", len(syn.MaterialFindings), len(syn.CompanySignals)), status,
		})
	}
	fmt.Fprintln(out, t.Render())

	if err := results.Err(); err != nil {
		return fmt.Errorf("%d of %d sectors failed:\n%w", len(results.Failures), len(a.sectors), err)
	}
	return nil
}

// save persists the sector's thread and records the synthesis.
func (a *app) save(syn types.Synthesis) error {
	if err := a.persist(syn.SectorKey); err != nil {
		return err
	}
	_, err := a.store.RecordSynthesis(syn)
	return err
}
