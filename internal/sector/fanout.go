package sector

import (
	"context"

	"golang.org/x/sync/errgroup"

	"kabuten/internal/coverage"
	"kabuten/internal/types"
)

// sweepAll runs every analyst at effort concurrently and waits for all of
// them. findings[i] belongs to analysts[i]. Analysts never fail, so no task
// returns an error and no sibling is ever cancelled.
func sweepAll(ctx context.Context, analysts []*coverage.Analyst, effort types.Effort) []types.Finding {
	findings := make([]types.Finding, len(analysts))

	var g errgroup.Group
	for i, a := range analysts {
		g.Go(func() error {
			findings[i] = a.Sweep(ctx, effort)
			return nil
		})
	}
	_ = g.Wait()

	return findings
}

// mergeByTicker returns findings with every entry whose ticker appears in
// replacements swapped for the replacement. Order and length are unchanged.
func mergeByTicker(findings, replacements []types.Finding) []types.Finding {
	byTicker := make(map[string]types.Finding, len(replacements))
	for _, r := range replacements {
		byTicker[r.Ticker] = r
	}
	out := make([]types.Finding, len(findings))
	for i, f := range findings {
		if r, ok := byTicker[f.Ticker]; ok {
			out[i] = r
			continue
		}
		out[i] = f
	}
	return out
}
