package sector

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"kabuten/internal/config"
	"kabuten/internal/perception"
	"kabuten/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// genai pulls in opencensus, whose init starts a view worker.
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
	)
}

var sweepTicker = regexp.MustCompile(`\(([^()]+)\)\. Search`)

// callKind classifies a request by its prompt shape.
type callKind int

const (
	kindLeaf callKind = iota
	kindSynthesis
	kindChat
)

type recordedCall struct {
	kind   callKind
	ticker string
	req    perception.Request
}

// fakeReasoner scripts responses per ticker and effort and records calls.
type fakeReasoner struct {
	mu    sync.Mutex
	calls []recordedCall

	leaf    map[string]map[types.Effort]string
	leafErr map[string]error

	// gate, when set, blocks leaf calls until closed; entered is signalled
	// once per blocked call.
	gate    chan struct{}
	entered chan string

	synthesis    string
	synthesisErr error
	synthesisFn  func(ctx context.Context) (string, error)

	chatReply string
	chatErr   error
}

func newFake() *fakeReasoner {
	return &fakeReasoner{
		leaf:      map[string]map[types.Effort]string{},
		leafErr:   map[string]error{},
		synthesis: `{"posture":"neutral","conviction":5,"thesis_summary":"steady","key_drivers":[],"key_risks":[]}`,
		chatReply: "OC, noted.",
	}
}

func (f *fakeReasoner) setLeaf(ticker string, effort types.Effort, response string) {
	if f.leaf[ticker] == nil {
		f.leaf[ticker] = map[types.Effort]string{}
	}
	f.leaf[ticker][effort] = response
}

func classify(req perception.Request) (callKind, string) {
	if m := sweepTicker.FindStringSubmatch(req.Prompt); m != nil {
		return kindLeaf, m[1]
	}
	if strings.Contains(req.Prompt, "Synthesise these") {
		return kindSynthesis, ""
	}
	return kindChat, ""
}

func (f *fakeReasoner) Invoke(ctx context.Context, req perception.Request) (string, error) {
	kind, ticker := classify(req)

	f.mu.Lock()
	f.calls = append(f.calls, recordedCall{kind: kind, ticker: ticker, req: req})
	gate, entered := f.gate, f.entered
	f.mu.Unlock()

	switch kind {
	case kindLeaf:
		if gate != nil {
			if entered != nil {
				entered <- ticker
			}
			select {
			case <-gate:
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		if err := f.leafErr[ticker]; err != nil {
			return "", err
		}
		return f.leaf[ticker][req.Effort], nil
	case kindSynthesis:
		if f.synthesisFn != nil {
			return f.synthesisFn(ctx)
		}
		return f.synthesis, f.synthesisErr
	default:
		return f.chatReply, f.chatErr
	}
}

func (f *fakeReasoner) callsOf(kind callKind) []recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recordedCall
	for _, c := range f.calls {
		if c.kind == kind {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeReasoner) leafCalls(effort types.Effort) map[string]int {
	counts := map[string]int{}
	for _, c := range f.callsOf(kindLeaf) {
		if c.req.Effort == effort {
			counts[c.ticker]++
		}
	}
	return counts
}

var testNow = time.Date(2026, time.February, 23, 7, 0, 0, 0, time.UTC)

func testOptions() Options {
	opts := DefaultOptions()
	opts.Now = func() time.Time { return testNow }
	opts.Analyst.Now = opts.Now
	return opts
}

func testSector(tickers ...string) config.SectorDef {
	def := config.SectorDef{
		Key:           "memory_semis",
		Designation:   "HELIX",
		Name:          "Memory Semiconductors",
		SystemContext: "DRAM and NAND cycle.",
	}
	for _, t := range tickers {
		def.Companies = append(def.Companies, config.CompanyDef{Ticker: t, Exchange: "NYSE", Name: t + " Corp"})
	}
	return def
}

func finding(findingType types.FindingType, escalate bool, headline string) string {
	esc := "false"
	if escalate {
		esc = "true"
	}
	return `{"finding_type":"` + string(findingType) + `","headline":"` + headline +
		`","signal":"bullish","category":"product","requires_escalation":` + esc + `}`
}
