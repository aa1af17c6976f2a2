// Package orchestrator is the top-level coordinator. It owns one sector lead
// per configured sector, sweeps them all concurrently with per-sector failure
// isolation, and routes chat and thread persistence calls by sector key.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"kabuten/internal/config"
	"kabuten/internal/logging"
	"kabuten/internal/perception"
	"kabuten/internal/sector"
	"kabuten/internal/thread"
	"kabuten/internal/types"
)

// ErrUnknownSector is returned when a sector key is not registered.
var ErrUnknownSector = errors.New("unknown sector")

// Orchestrator routes work to sector leads. The set of leads is fixed at
// construction, so lookups need no locking.
type Orchestrator struct {
	keys  []string
	leads map[string]*sector.Lead
}

// New creates one lead per sector definition, in order.
func New(sectors []config.SectorDef, reasoner perception.Reasoner, opts sector.Options) (*Orchestrator, error) {
	if err := config.ValidateSectors(sectors); err != nil {
		return nil, fmt.Errorf("invalid sector roster: %w", err)
	}
	o := &Orchestrator{
		keys:  make([]string, 0, len(sectors)),
		leads: make(map[string]*sector.Lead, len(sectors)),
	}
	for _, def := range sectors {
		o.keys = append(o.keys, def.Key)
		o.leads[def.Key] = sector.NewLead(def, reasoner, opts)
	}
	logging.Orchestrator("Orchestrator: %d sector leads ready", len(o.keys))
	return o, nil
}

// Keys returns the sector keys in roster order.
func (o *Orchestrator) Keys() []string {
	return append([]string(nil), o.keys...)
}

// Lead returns the lead for key.
func (o *Orchestrator) Lead(key string) (*sector.Lead, bool) {
	l, ok := o.leads[key]
	return l, ok
}

// Leads returns every lead in roster order.
func (o *Orchestrator) Leads() []*sector.Lead {
	out := make([]*sector.Lead, 0, len(o.keys))
	for _, k := range o.keys {
		out = append(out, o.leads[k])
	}
	return out
}

func (o *Orchestrator) lookup(key string) (*sector.Lead, error) {
	l, ok := o.leads[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSector, key)
	}
	return l, nil
}

// SweepResults is the outcome of RunAllSweeps: a synthesis for every sector
// that completed and an error for every sector that did not.
type SweepResults struct {
	Syntheses map[string]types.Synthesis
	Failures  map[string]error
}

// Err joins the per-sector failures in key order, or returns nil.
func (r SweepResults) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	keys := make([]string, 0, len(r.Failures))
	for k := range r.Failures {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	errs := make([]error, 0, len(keys))
	for _, k := range keys {
		errs = append(errs, fmt.Errorf("%s: %w", k, r.Failures[k]))
	}
	return errors.Join(errs...)
}

type sweepOutcome struct {
	synthesis types.Synthesis
	err       error
}

// RunAllSweeps sweeps every sector concurrently and waits for all of them.
// A failing sector is recorded in Failures and omitted from Syntheses; it
// never cancels or degrades the others.
func (o *Orchestrator) RunAllSweeps(ctx context.Context) SweepResults {
	timer := logging.StartTimer(logging.CategoryOrchestrator, "run all sweeps")
	defer timer.Stop()

	outcomes := make([]sweepOutcome, len(o.keys))

	var g errgroup.Group
	for i, key := range o.keys {
		lead := o.leads[key]
		g.Go(func() error {
			outcomes[i] = runIsolated(ctx, lead)
			return nil
		})
	}
	_ = g.Wait()

	results := SweepResults{
		Syntheses: make(map[string]types.Synthesis, len(o.keys)),
		Failures:  make(map[string]error),
	}
	for i, key := range o.keys {
		if err := outcomes[i].err; err != nil {
			logging.OrchestratorError("Error sweeping %s: %v", key, err)
			results.Failures[key] = err
			continue
		}
		results.Syntheses[key] = outcomes[i].synthesis
	}

	logging.Orchestrator("Orchestrator: sweeps complete ok=%d failed=%d", len(results.Syntheses), len(results.Failures))
	return results
}

// runIsolated runs one sector sweep, turning a panic into an error.
func runIsolated(ctx context.Context, lead *sector.Lead) (out sweepOutcome) {
	defer func() {
		if r := recover(); r != nil {
			out = sweepOutcome{err: fmt.Errorf("sweep panicked: %v", r)}
		}
	}()
	s, err := lead.RunDailySweep(ctx)
	return sweepOutcome{synthesis: s, err: err}
}

// RunSectorSweep sweeps one sector. Unknown keys yield ErrUnknownSector.
func (o *Orchestrator) RunSectorSweep(ctx context.Context, key string) (types.Synthesis, error) {
	lead, err := o.lookup(key)
	if err != nil {
		return types.Synthesis{}, err
	}
	return lead.RunDailySweep(ctx)
}

// Chat routes message to one sector lead. Unknown keys yield ErrUnknownSector.
func (o *Orchestrator) Chat(ctx context.Context, key, message string) (string, error) {
	lead, err := o.lookup(key)
	if err != nil {
		return "", err
	}
	return lead.Chat(ctx, message)
}

// LoadAllThreads hands persisted threads to their leads. Keys that match no
// sector are skipped and returned.
func (o *Orchestrator) LoadAllThreads(threads map[string][]thread.Entry) (skipped []string) {
	for key, entries := range threads {
		lead, ok := o.leads[key]
		if !ok {
			skipped = append(skipped, key)
			continue
		}
		lead.LoadThread(entries)
	}
	sort.Strings(skipped)
	if len(skipped) > 0 {
		logging.Orchestrator("Orchestrator: ignored threads for unknown sectors %v", skipped)
	}
	return skipped
}

// ExportThread returns a copy of one sector's thread, or nil for an unknown
// key.
func (o *Orchestrator) ExportThread(key string) []thread.Entry {
	lead, ok := o.leads[key]
	if !ok {
		return nil
	}
	return lead.ExportThread()
}
