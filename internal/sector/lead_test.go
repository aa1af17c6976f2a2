package sector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kabuten/internal/coverage"
	"kabuten/internal/perception"
	"kabuten/internal/thread"
	"kabuten/internal/types"
	"kabuten/internal/usage"
)

func TestRunDailySweep_OneFindingPerCompany(t *testing.T) {
	tickers := []string{"A", "B", "C", "D", "E"}
	fake := newFake()
	fake.setLeaf("A", types.EffortLow, finding(types.FindingIncremental, false, "a"))
	fake.setLeaf("B", types.EffortLow, "no json at all")
	fake.leafErr["C"] = errors.New("connection reset")
	fake.setLeaf("D", types.EffortLow, finding(types.FindingMaterial, true, "d low"))
	fake.setLeaf("D", types.EffortHigh, finding(types.FindingMaterial, false, "d high"))
	// E has no scripted response and answers with empty text.

	lead := NewLead(testSector(tickers...), fake, testOptions())
	syn, err := lead.RunDailySweep(context.Background())
	require.NoError(t, err)

	require.Len(t, syn.CompanySignals, len(tickers))
	for i, s := range syn.CompanySignals {
		assert.Equal(t, tickers[i], s.Ticker, "roster order preserved")
	}
	assert.Equal(t, "d high", syn.CompanySignals[3].Headline)
	assert.Equal(t, types.DefaultHeadline, syn.CompanySignals[1].Headline)
	assert.Equal(t, types.FindingNone, syn.CompanySignals[2].FindingType)

	entries := lead.ExportThread()
	require.Len(t, entries, 1)
	assert.Equal(t, thread.TypeSweep, entries[0].Type)
	assert.Len(t, entries[0].Findings, len(tickers))
}

func TestRunDailySweep_EscalatesOnlyFlagged(t *testing.T) {
	fake := newFake()
	fake.setLeaf("A", types.EffortLow, finding(types.FindingMaterial, true, "a low"))
	fake.setLeaf("A", types.EffortHigh, finding(types.FindingMaterial, false, "a high"))
	fake.setLeaf("B", types.EffortLow, finding(types.FindingIncremental, false, "b low"))
	fake.setLeaf("C", types.EffortLow, finding(types.FindingMaterial, false, "c low"))

	lead := NewLead(testSector("A", "B", "C"), fake, testOptions())
	syn, err := lead.RunDailySweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"A": 1, "B": 1, "C": 1}, fake.leafCalls(types.EffortLow))
	assert.Equal(t, map[string]int{"A": 1}, fake.leafCalls(types.EffortHigh))

	// Non-escalated findings are the low-effort ones, unchanged.
	b, _ := coverage.ParseFinding("B", "B Corp", fake.leaf["B"][types.EffortLow])
	if diff := cmp.Diff(b.Summary(), syn.CompanySignals[1]); diff != "" {
		t.Errorf("B changed (-low +final):\n%s", diff)
	}
	assert.Equal(t, "c low", syn.CompanySignals[2].Headline)
	assert.Equal(t, "a high", syn.CompanySignals[0].Headline)

	for _, c := range fake.callsOf(kindLeaf) {
		if c.req.Effort == types.EffortHigh {
			assert.Contains(t, c.req.System, "A Corp (A). ", "escalated analyst has no venue")
			assert.NotContains(t, c.req.System, " on NYSE")
			assert.Equal(t, testOptions().Analyst.HighTimeout, c.req.Timeout)
		}
	}
}

func TestRunDailySweep_NoEscalationNoHighEffortCalls(t *testing.T) {
	fake := newFake()
	for _, tk := range []string{"A", "B"} {
		fake.setLeaf(tk, types.EffortLow, finding(types.FindingMaterial, false, tk))
	}

	lead := NewLead(testSector("A", "B"), fake, testOptions())
	_, err := lead.RunDailySweep(context.Background())
	require.NoError(t, err)

	assert.Empty(t, fake.leafCalls(types.EffortHigh))
	assert.Len(t, fake.callsOf(kindSynthesis), 1)
}

func TestRunDailySweep_XYExample(t *testing.T) {
	fake := newFake()
	fake.setLeaf("X", types.EffortLow, finding(types.FindingMaterial, true, "x first pass"))
	fake.setLeaf("X", types.EffortHigh, finding(types.FindingMaterial, false, "x deep dive"))
	fake.setLeaf("Y", types.EffortLow, finding(types.FindingNone, false, "y quiet"))
	fake.synthesis = `Here you go: {"posture":"bullish","conviction":"7.5","thesis_summary":"X leads","key_drivers":["HBM"],"key_risks":["capex"]}`

	lead := NewLead(testSector("X", "Y"), fake, testOptions())
	syn, err := lead.RunDailySweep(context.Background())
	require.NoError(t, err)

	require.Len(t, syn.CompanySignals, 2)
	assert.Equal(t, "X", syn.CompanySignals[0].Ticker)
	assert.Equal(t, types.FindingMaterial, syn.CompanySignals[0].FindingType)
	assert.Equal(t, "x deep dive", syn.CompanySignals[0].Headline)
	assert.Equal(t, "Y", syn.CompanySignals[1].Ticker)
	assert.Equal(t, types.FindingNone, syn.CompanySignals[1].FindingType)

	require.Len(t, syn.MaterialFindings, 1)
	assert.Equal(t, "X", syn.MaterialFindings[0].Ticker)

	assert.Equal(t, types.PostureBullish, syn.Posture)
	assert.Equal(t, 7.5, syn.Conviction)
	assert.Equal(t, []string{"HBM"}, syn.KeyDrivers)
	assert.Equal(t, "memory_semis", syn.SectorKey)
	assert.Equal(t, "HELIX", syn.Designation)

	// The reduction saw exactly these two findings.
	synCalls := fake.callsOf(kindSynthesis)
	require.Len(t, synCalls, 1)
	prompt := synCalls[0].req.Prompt
	assert.Contains(t, prompt, "- X Corp (X): [material] x deep dive")
	assert.Contains(t, prompt, "- Y Corp (Y): [none] y quiet")
	assert.NotContains(t, prompt, "x first pass")
	assert.True(t, strings.HasPrefix(prompt, "Today is Monday, 23 February 2026 (UTC)."))

	entry := lead.ExportThread()[0]
	assert.Equal(t, thread.FormatTimestamp(testNow), entry.Timestamp)
	assert.Equal(t, types.SynthesisSummary{Posture: types.PostureBullish, Conviction: 7.5, ThesisSummary: "X leads"}, *entry.Synthesis)
}

func TestRunDailySweep_ReductionTransportFailureLogsNothing(t *testing.T) {
	fake := newFake()
	fake.synthesisErr = errors.New("API request failed with status 401")

	lead := NewLead(testSector("A"), fake, testOptions())
	lead.LoadThread([]thread.Entry{thread.NewInboundEntry(testNow, "earlier")})

	_, err := lead.RunDailySweep(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "memory_semis")
	assert.Equal(t, 1, lead.ThreadLen(), "no partial sweep entry")
}

func TestRunDailySweep_ReductionSoftFailuresDegrade(t *testing.T) {
	tests := []struct {
		name string
		text string
		err  error
	}{
		{"unparsable", "I am unable to produce JSON today.", nil},
		{"own timeout", "", fmt.Errorf("reasoning call timed out: %w", context.DeadlineExceeded)},
		{"empty response", "", perception.ErrEmptyResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFake()
			fake.setLeaf("A", types.EffortLow, finding(types.FindingMaterial, false, "a"))
			fake.synthesis, fake.synthesisErr = tt.text, tt.err

			lead := NewLead(testSector("A", "B"), fake, testOptions())
			syn, err := lead.RunDailySweep(context.Background())
			require.NoError(t, err)

			assert.Equal(t, types.PostureNeutral, syn.Posture)
			assert.Equal(t, types.DefaultConviction, syn.Conviction)
			assert.Empty(t, syn.ThesisSummary)
			assert.Empty(t, syn.KeyDrivers)
			assert.Len(t, syn.CompanySignals, 2)
			assert.Len(t, syn.MaterialFindings, 1)
			assert.Equal(t, 1, lead.ThreadLen())
		})
	}
}

func TestRunDailySweep_CancelledContext(t *testing.T) {
	fake := newFake()
	lead := NewLead(testSector("A"), fake, testOptions())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := lead.RunDailySweep(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, lead.ThreadLen())
}

func TestRunDailySweep_PanicInReductionIsError(t *testing.T) {
	fake := newFake()
	fake.synthesisFn = func(ctx context.Context) (string, error) { panic("bad provider") }

	lead := NewLead(testSector("A"), fake, testOptions())
	_, err := lead.RunDailySweep(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
	assert.Equal(t, 0, lead.ThreadLen())

	// The lead is still usable afterwards.
	fake.synthesisFn = nil
	_, err = lead.RunDailySweep(context.Background())
	assert.NoError(t, err)
}

func TestRunDailySweep_LeafTimeoutDoesNotStallSector(t *testing.T) {
	fake := newFake()
	fake.gate = make(chan struct{}) // never closed: every leaf hangs until its deadline
	sched := perception.NewScheduler(fake, perception.SchedulerConfig{MaxConcurrentAPICalls: 4})

	opts := testOptions()
	opts.Analyst.LowTimeout = 30 * time.Millisecond

	lead := NewLead(testSector("A", "B", "C"), sched, opts)

	start := time.Now()
	syn, err := lead.RunDailySweep(context.Background())
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)

	for _, s := range syn.CompanySignals {
		assert.Equal(t, types.FindingNone, s.FindingType)
	}
	assert.Equal(t, 1, lead.ThreadLen())
}

func TestLastSweepAt(t *testing.T) {
	lead := NewLead(testSector("A"), newFake(), testOptions())
	_, ok := lead.LastSweepAt()
	assert.False(t, ok)

	_, err := lead.RunDailySweep(context.Background())
	require.NoError(t, err)

	at, ok := lead.LastSweepAt()
	require.True(t, ok)
	assert.True(t, at.Equal(testNow))
}

func TestNewLead_CopiesDefinition(t *testing.T) {
	def := testSector("A")
	lead := NewLead(def, newFake(), testOptions())
	def.Companies[0].Ticker = "CHANGED"
	assert.Equal(t, "A", lead.Def().Companies[0].Ticker)
}

func TestSweepAndChat_TagUsage(t *testing.T) {
	fake := newFake()
	fake.setLeaf("A", types.EffortLow, finding(types.FindingMaterial, true, "a low"))
	fake.setLeaf("A", types.EffortHigh, finding(types.FindingMaterial, false, "a high"))
	counting := perception.ReasonerFunc(func(ctx context.Context, req perception.Request) (string, error) {
		usage.Record(ctx, "m", "p", 1, 0)
		return fake.Invoke(ctx, req)
	})

	tracker, err := usage.NewTracker("")
	require.NoError(t, err)
	ctx := usage.NewContext(context.Background(), tracker)

	lead := NewLead(testSector("A", "B"), counting, testOptions())
	_, err = lead.RunDailySweep(ctx)
	require.NoError(t, err)
	_, err = lead.Chat(ctx, "thoughts?")
	require.NoError(t, err)

	stats := tracker.Stats()
	assert.Equal(t, int64(5), stats.BySector["memory_semis"].Calls)
	assert.Equal(t, int64(2), stats.ByOperation["sweep_low"].Calls)
	assert.Equal(t, int64(1), stats.ByOperation["sweep_high"].Calls)
	assert.Equal(t, int64(1), stats.ByOperation["synthesis"].Calls)
	assert.Equal(t, int64(1), stats.ByOperation["chat"].Calls)
}
