package usage

// UsageData is the persisted form of a Tracker.
type UsageData struct {
	Version   string          `json:"version"`
	Aggregate AggregatedStats `json:"aggregate"`
}

// AggregatedStats holds token counters broken down by dimension.
type AggregatedStats struct {
	Total       TokenCounts            `json:"total"`
	ByProvider  map[string]TokenCounts `json:"by_provider"`
	ByModel     map[string]TokenCounts `json:"by_model"`
	BySector    map[string]TokenCounts `json:"by_sector"`
	ByOperation map[string]TokenCounts `json:"by_operation"` // sweep_low, sweep_high, synthesis, chat
}

// TokenCounts holds input/output sums.
type TokenCounts struct {
	Calls  int64 `json:"calls"`
	Input  int64 `json:"input"`
	Output int64 `json:"output"`
	Total  int64 `json:"total"`
}

func (tc *TokenCounts) Add(input, output int) {
	tc.Calls++
	tc.Input += int64(input)
	tc.Output += int64(output)
	tc.Total += int64(input + output)
}

func (s *AggregatedStats) ensureMaps() {
	if s.ByProvider == nil {
		s.ByProvider = make(map[string]TokenCounts)
	}
	if s.ByModel == nil {
		s.ByModel = make(map[string]TokenCounts)
	}
	if s.BySector == nil {
		s.BySector = make(map[string]TokenCounts)
	}
	if s.ByOperation == nil {
		s.ByOperation = make(map[string]TokenCounts)
	}
}
