package thread

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kabuten/internal/perception"
	"kabuten/internal/types"
)

var t0 = time.Date(2026, time.March, 2, 8, 0, 0, 0, time.UTC)

func sampleEntries() []Entry {
	findings := []types.Finding{
		{Ticker: "X", CompanyName: "X Corp", FindingType: types.FindingMaterial, Headline: "h", Signal: types.SignalBullish,
			Category: types.CategoryEarnings, RequiresEscalation: true, Sources: []string{"s"}},
		types.DegradedFinding("Y", "Y Corp"),
	}
	return []Entry{
		NewSweepEntry(t0, findings, types.SynthesisSummary{Posture: types.PostureBullish, Conviction: 7, ThesisSummary: "up"}),
		NewInboundEntry(t0.Add(time.Minute), "OC here, thoughts?"),
		NewReplyEntry(t0.Add(2*time.Minute), "OC, the sweep suggests..."),
	}
}

func TestEntryConstructors(t *testing.T) {
	entries := sampleEntries()

	sweep := entries[0]
	assert.Equal(t, RoleSystem, sweep.Role)
	assert.Equal(t, TypeSweep, sweep.Type)
	assert.Equal(t, "2026-03-02T08:00:00Z", sweep.Timestamp)
	require.Len(t, sweep.Findings, 2)
	assert.Equal(t, types.PostureBullish, sweep.Synthesis.Posture)

	assert.Equal(t, RoleUser, entries[1].Role)
	assert.True(t, entries[1].IsInbound())
	assert.Equal(t, RoleAssistant, entries[2].Role)
	assert.True(t, entries[2].IsReply())
}

func TestSweepEntryJSONShape(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteEntries(&buf, sampleEntries()[:1]))

	line := buf.String()
	assert.Contains(t, line, `"role":"system"`)
	assert.Contains(t, line, `"type":"sweep"`)
	assert.Contains(t, line, `"synthesis":{"posture":"bullish","conviction":7,"thesis_summary":"up"}`)
	assert.NotContains(t, line, "requires_escalation")
	assert.NotContains(t, line, "sources")
	assert.NotContains(t, line, `"content"`)
}

func TestThread_AppendOnlyAndExportCopies(t *testing.T) {
	th := New()
	for _, e := range sampleEntries() {
		th.Append(e)
	}
	require.Equal(t, 3, th.Len())

	exported := th.Export()
	exported[0].Findings[0].Headline = "mutated"
	exported[0].Synthesis.Conviction = 0

	again := th.Export()
	assert.Len(t, again, 3)
	assert.Equal(t, "h", again[0].Findings[0].Headline)
	assert.Equal(t, 7.0, again[0].Synthesis.Conviction)
}

func TestThread_ExportEmptyIsNonNil(t *testing.T) {
	assert.NotNil(t, New().Export())
}

func TestThread_RoundTripIdempotent(t *testing.T) {
	src := New()
	for _, e := range sampleEntries() {
		src.Append(e)
	}
	src.Append(Entry{Role: RoleUser, Type: TypeLegacyInbound, Timestamp: "2025-01-01T00:00:00+00:00", Content: "legacy"})

	first := src.Export()

	dst := New()
	dst.Load(first)
	second := dst.Export()
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("in-memory round trip mismatch (-first +second):\n%s", diff)
	}

	var buf bytes.Buffer
	require.NoError(t, WriteEntries(&buf, second))
	decoded, err := ReadEntries(&buf)
	require.NoError(t, err)

	viaFile := New()
	viaFile.Load(decoded)
	if diff := cmp.Diff(first, viaFile.Export()); diff != "" {
		t.Fatalf("NDJSON round trip mismatch (-first +decoded):\n%s", diff)
	}
}

func TestThread_LoadReplaces(t *testing.T) {
	th := New()
	th.Append(NewInboundEntry(t0, "old"))
	th.Load(sampleEntries()[1:])
	assert.Equal(t, 2, th.Len())
	assert.Equal(t, "OC here, thoughts?", th.Export()[0].Content)
}

func TestThread_LastSweep(t *testing.T) {
	th := New()
	_, ok := th.LastSweep()
	assert.False(t, ok)

	th.Load(sampleEntries())
	e, ok := th.LastSweep()
	require.True(t, ok)
	assert.Equal(t, TypeSweep, e.Type)
}

func TestThread_ChatTurnsProjection(t *testing.T) {
	th := New()
	th.Load(sampleEntries())
	th.Append(Entry{Role: RoleUser, Type: TypeLegacyInbound, Content: "legacy ask"})
	th.Append(Entry{Role: RoleSystem, Type: "note", Content: "ignored"})

	turns := th.ChatTurns(20)
	want := []perception.Turn{
		{Role: perception.RoleUser, Content: "OC here, thoughts?"},
		{Role: perception.RoleAssistant, Content: "OC, the sweep suggests..."},
		{Role: perception.RoleUser, Content: "legacy ask"},
	}
	if diff := cmp.Diff(want, turns); diff != "" {
		t.Errorf("ChatTurns mismatch (-want +got):\n%s", diff)
	}
}

func TestThread_ChatTurnsWindow(t *testing.T) {
	th := New()
	for i := 0; i < 30; i++ {
		th.Append(NewInboundEntry(t0, fmt.Sprintf("m%d", i)))
		th.Append(NewSweepEntry(t0, nil, types.SynthesisSummary{}))
	}

	turns := th.ChatTurns(20)
	// Last 20 entries alternate inbound/sweep, so 10 inbound survive.
	require.Len(t, turns, 10)
	assert.Equal(t, "m20", turns[0].Content)
	assert.Equal(t, "m29", turns[9].Content)
}

func TestThread_ConcurrentAppend(t *testing.T) {
	th := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			th.Append(NewInboundEntry(t0, fmt.Sprint(i)))
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 50, th.Len())
}

func TestReadEntries_Errors(t *testing.T) {
	_, err := ReadEntries(strings.NewReader("{\"type\":\"sweep\"}\nnot json\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")

	entries, err := ReadEntries(strings.NewReader("\n\n"))
	require.NoError(t, err)
	assert.Empty(t, entries)

	huge := `{"content":"` + strings.Repeat("a", MaxEntrySize) + `"}`
	_, err = ReadEntries(strings.NewReader(huge))
	assert.Error(t, err)
}
