// Package usage accounts reasoning-provider tokens by provider, model, sector
// and operation. A Tracker travels in the context; providers record into
// whatever tracker the context carries.
package usage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

type contextKey int

const (
	trackerKey contextKey = iota
	sectorKey
	operationKey
)

const unknown = "unknown"

// Tracker manages token usage recording and persistence.
type Tracker struct {
	mu       sync.Mutex
	data     UsageData
	filePath string
}

// NewTracker creates a tracker persisted at filePath, loading any existing
// data. An empty filePath keeps usage in memory only.
func NewTracker(filePath string) (*Tracker, error) {
	t := &Tracker{
		filePath: filePath,
		data:     UsageData{Version: "1.0"},
	}
	t.data.Aggregate.ensureMaps()
	if err := t.Load(); err != nil {
		return nil, err
	}
	return t, nil
}

// Load reads the usage data from disk. A missing file is not an error.
func (t *Tracker) Load() error {
	if t.filePath == "" {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	data, err := os.ReadFile(t.filePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read usage file: %w", err)
	}

	var loaded UsageData
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("failed to parse usage file %s: %w", t.filePath, err)
	}
	loaded.Aggregate.ensureMaps()
	t.data = loaded
	return nil
}

// Save writes the usage data to disk.
func (t *Tracker) Save() error {
	if t.filePath == "" {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	data, err := json.MarshalIndent(t.data, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(t.filePath), 0755); err != nil {
		return fmt.Errorf("failed to create usage dir: %w", err)
	}
	return os.WriteFile(t.filePath, data, 0644)
}

// Track records one completed call. Sector and operation come from ctx.
func (t *Tracker) Track(ctx context.Context, model, provider string, input, output int) {
	sector := stringValue(ctx, sectorKey)
	operation := stringValue(ctx, operationKey)

	t.mu.Lock()
	defer t.mu.Unlock()

	agg := &t.data.Aggregate
	agg.Total.Add(input, output)
	addToMap(agg.ByProvider, provider, input, output)
	addToMap(agg.ByModel, model, input, output)
	addToMap(agg.BySector, sector, input, output)
	addToMap(agg.ByOperation, operation, input, output)
}

// Stats returns a copy of the aggregated stats.
func (t *Tracker) Stats() AggregatedStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	stats := t.data.Aggregate
	stats.ByProvider = copyTokenCountsMap(stats.ByProvider)
	stats.ByModel = copyTokenCountsMap(stats.ByModel)
	stats.BySector = copyTokenCountsMap(stats.BySector)
	stats.ByOperation = copyTokenCountsMap(stats.ByOperation)
	return stats
}

func copyTokenCountsMap(src map[string]TokenCounts) map[string]TokenCounts {
	dst := make(map[string]TokenCounts, len(src))
	for key, counts := range src {
		dst[key] = counts
	}
	return dst
}

func addToMap(m map[string]TokenCounts, key string, input, output int) {
	entry := m[key]
	entry.Add(input, output)
	m[key] = entry
}

func stringValue(ctx context.Context, key contextKey) string {
	if v, ok := ctx.Value(key).(string); ok && v != "" {
		return v
	}
	return unknown
}

// Context Helpers

// NewContext returns a new context carrying the tracker.
func NewContext(ctx context.Context, t *Tracker) context.Context {
	return context.WithValue(ctx, trackerKey, t)
}

// FromContext retrieves the tracker from the context.
func FromContext(ctx context.Context) *Tracker {
	t, _ := ctx.Value(trackerKey).(*Tracker)
	return t
}

// WithSector tags calls made under ctx with a sector key.
func WithSector(ctx context.Context, sector string) context.Context {
	return context.WithValue(ctx, sectorKey, sector)
}

// WithOperation tags calls made under ctx with an operation name.
func WithOperation(ctx context.Context, operation string) context.Context {
	return context.WithValue(ctx, operationKey, operation)
}

// Record tracks one call on the tracker carried by ctx, if any.
func Record(ctx context.Context, model, provider string, input, output int) {
	if tracker := FromContext(ctx); tracker != nil {
		tracker.Track(ctx, model, provider, input, output)
	}
}
