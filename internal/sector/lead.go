// Package sector implements the sector lead: it owns one sector's analysts
// and thread, runs the daily sweep (scatter, escalate, reduce, log) and
// answers OC's messages against the same thread.
//
// Sweeps and chats on one Lead are serialized; different Leads share nothing.
package sector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"kabuten/internal/config"
	"kabuten/internal/coverage"
	"kabuten/internal/logging"
	"kabuten/internal/perception"
	"kabuten/internal/thread"
	"kabuten/internal/types"
	"kabuten/internal/usage"
)

// ErrEmptyMessage is returned by Chat for a blank message.
var ErrEmptyMessage = errors.New("chat message is empty")

// Token limits for the lead's own calls.
const (
	synthesisThinkingBudget = 2048
	synthesisMaxTokens      = 2048
	chatThinkingBudget      = 4096
	chatMaxTokens           = 4096
)

// Options tunes a Lead.
type Options struct {
	// Analyst configures every company analyst the lead creates.
	Analyst coverage.Options

	SynthesisTimeout time.Duration
	ChatTimeout      time.Duration

	// ChatHistoryWindow is how many trailing thread entries feed a chat.
	ChatHistoryWindow int

	// Now supplies timestamps and date headers. Defaults to time.Now.
	Now func() time.Time
}

// DefaultOptions returns the standard lead limits.
func DefaultOptions() Options {
	return Options{
		Analyst:           coverage.DefaultOptions(),
		SynthesisTimeout:  config.DefaultSynthesisCallTimeout,
		ChatTimeout:       config.DefaultChatCallTimeout,
		ChatHistoryWindow: config.DefaultChatHistoryWindow,
		Now:               time.Now,
	}
}

// OptionsFromConfig derives lead options from cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := DefaultOptions()
	opts.Analyst = coverage.OptionsFromConfig(cfg)
	opts.SynthesisTimeout = cfg.GetSynthesisCallTimeout()
	opts.ChatTimeout = cfg.GetChatCallTimeout()
	opts.ChatHistoryWindow = cfg.GetChatHistoryWindow()
	return opts
}

// Lead is one sector's coordinator.
type Lead struct {
	def      config.SectorDef
	reasoner perception.Reasoner
	opts     Options
	thread   *thread.Thread

	// turn serializes sweeps, chats and loads on this sector.
	turn *semaphore.Weighted
}

// NewLead creates the lead for def. The definition is copied.
func NewLead(def config.SectorDef, reasoner perception.Reasoner, opts Options) *Lead {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Analyst.Now == nil {
		opts.Analyst.Now = opts.Now
	}
	if opts.ChatHistoryWindow <= 0 {
		opts.ChatHistoryWindow = config.DefaultChatHistoryWindow
	}
	return &Lead{
		def:      def.Clone(),
		reasoner: reasoner,
		opts:     opts,
		thread:   thread.New(),
		turn:     semaphore.NewWeighted(1),
	}
}

// Key returns the sector key.
func (l *Lead) Key() string { return l.def.Key }

// Designation returns the lead's call sign.
func (l *Lead) Designation() string { return l.def.Designation }

// Def returns a copy of the sector definition.
func (l *Lead) Def() config.SectorDef { return l.def.Clone() }

// RunDailySweep scatters a low-effort sweep over every company, re-sweeps the
// escalated ones at high effort, reduces the findings to one Synthesis and
// appends a sweep entry to the thread.
//
// Leaf failures and unusable reductions degrade instead of failing. An error
// is returned only when the reduction call itself fails (other than by its
// own timeout), ctx ends, or the pipeline panics; the thread is then left
// untouched.
func (l *Lead) RunDailySweep(ctx context.Context) (synthesis types.Synthesis, err error) {
	if err := l.turn.Acquire(ctx, 1); err != nil {
		return types.Synthesis{}, fmt.Errorf("sector %s: waiting for thread: %w", l.def.Key, err)
	}
	defer l.turn.Release(1)

	defer func() {
		if r := recover(); r != nil {
			logging.SectorError("%s: sweep panicked: %v", l.def.Key, r)
			synthesis, err = types.Synthesis{}, fmt.Errorf("sector %s: sweep panicked: %v", l.def.Key, r)
		}
	}()

	timer := logging.StartTimer(logging.CategorySector, "sweep "+l.def.Key)
	defer timer.Stop()

	ctx = usage.WithSector(ctx, l.def.Key)

	findings := l.scatter(ctx)
	findings = l.escalate(ctx, findings)

	if err := ctx.Err(); err != nil {
		return types.Synthesis{}, fmt.Errorf("sector %s: sweep aborted: %w", l.def.Key, err)
	}

	synthesis, err = l.synthesise(ctx, findings)
	if err != nil {
		return types.Synthesis{}, err
	}

	l.thread.Append(thread.NewSweepEntry(l.opts.Now(), findings, synthesis.Summary()))
	logging.Sector("%s (%s): sweep complete posture=%s conviction=%.1f material=%d/%d",
		l.def.Key, l.def.Designation, synthesis.Posture, synthesis.Conviction, len(synthesis.MaterialFindings), len(findings))
	return synthesis, nil
}

// scatter runs the low-effort pass over the full roster.
func (l *Lead) scatter(ctx context.Context) []types.Finding {
	analysts := make([]*coverage.Analyst, len(l.def.Companies))
	for i, c := range l.def.Companies {
		analysts[i] = coverage.NewAnalyst(c, l.def.SystemContext, l.reasoner, l.opts.Analyst)
	}
	logging.SectorDebug("%s: scattering %d analysts", l.def.Key, len(analysts))
	return sweepAll(ctx, analysts, types.EffortLow)
}

// escalate re-sweeps, at high effort, only the findings that asked for it
// and swaps the results in by ticker. Fresh analysts are built from the
// finding alone, without the venue.
func (l *Lead) escalate(ctx context.Context, findings []types.Finding) []types.Finding {
	var analysts []*coverage.Analyst
	for _, f := range findings {
		if !f.RequiresEscalation {
			continue
		}
		company := config.CompanyDef{Ticker: f.Ticker, Name: f.CompanyName}
		analysts = append(analysts, coverage.NewAnalyst(company, l.def.SystemContext, l.reasoner, l.opts.Analyst))
	}
	if len(analysts) == 0 {
		return findings
	}

	logging.Sector("%s: escalating %d of %d companies", l.def.Key, len(analysts), len(findings))
	return mergeByTicker(findings, sweepAll(ctx, analysts, types.EffortHigh))
}

// synthesise reduces findings to a Synthesis. A reduction that times out on
// its own deadline, comes back empty, or holds no JSON degrades to the
// neutral synthesis; any other call failure is returned.
func (l *Lead) synthesise(ctx context.Context, findings []types.Finding) (types.Synthesis, error) {
	req := perception.Request{
		Prompt:         synthesisPrompt(l.def, findings, l.opts.Now()),
		Effort:         types.EffortMedium,
		ThinkingBudget: synthesisThinkingBudget,
		MaxTokens:      synthesisMaxTokens,
		Timeout:        l.opts.SynthesisTimeout,
	}

	text, err := l.reasoner.Invoke(usage.WithOperation(ctx, "synthesis"), req)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			return types.Synthesis{}, fmt.Errorf("sector %s: synthesis aborted: %w", l.def.Key, ctx.Err())
		case errors.Is(err, context.DeadlineExceeded), errors.Is(err, perception.ErrEmptyResponse):
			logging.SectorWarn("%s: synthesis degraded: %v", l.def.Key, err)
			return types.DegradedSynthesis(l.def.Key, l.def.Designation, findings), nil
		default:
			logging.SectorError("%s: synthesis call failed: %v", l.def.Key, err)
			return types.Synthesis{}, fmt.Errorf("sector %s: synthesis call failed: %w", l.def.Key, err)
		}
	}

	synthesis, ok := ParseSynthesis(l.def.Key, l.def.Designation, findings, text)
	if !ok {
		logging.SectorWarn("%s: synthesis response held no JSON object (len=%d)", l.def.Key, len(text))
	}
	return synthesis, nil
}

// Chat records message from OC, asks the reasoning provider for a reply with
// the recent conversation as context, records the reply and returns it.
//
// Context turns come from the last ChatHistoryWindow entries counting the
// new inbound one; message itself is the final user turn. If the call fails the inbound entry
// stays in the thread and the error is returned.
func (l *Lead) Chat(ctx context.Context, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", ErrEmptyMessage
	}
	if err := l.turn.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("sector %s: waiting for thread: %w", l.def.Key, err)
	}
	defer l.turn.Release(1)

	history := l.thread.ChatTurns(l.opts.ChatHistoryWindow - 1)
	l.thread.Append(thread.NewInboundEntry(l.opts.Now(), message))

	callCtx := usage.WithOperation(usage.WithSector(ctx, l.def.Key), "chat")
	reply, err := l.reasoner.Invoke(callCtx, perception.Request{
		System:         personaPrompt(l.def, l.opts.Now()),
		History:        history,
		Prompt:         message,
		Effort:         types.EffortHigh,
		ThinkingBudget: chatThinkingBudget,
		MaxTokens:      chatMaxTokens,
		Timeout:        l.opts.ChatTimeout,
	})
	if err != nil {
		logging.SectorWarn("%s: chat call failed: %v", l.def.Key, err)
		return "", fmt.Errorf("sector %s: chat failed: %w", l.def.Key, err)
	}

	l.thread.Append(thread.NewReplyEntry(l.opts.Now(), reply))
	logging.SectorDebug("%s: chat reply len=%d history_turns=%d", l.def.Key, len(reply), len(history))
	return reply, nil
}

// LoadThread replaces the thread with entries. It waits for any running
// sweep or chat on this sector.
func (l *Lead) LoadThread(entries []thread.Entry) {
	// Acquire only fails when its context is done.
	_ = l.turn.Acquire(context.Background(), 1)
	defer l.turn.Release(1)
	l.thread.Load(entries)
	logging.Thread("%s: loaded %d entries", l.def.Key, len(entries))
}

// ExportThread returns a copy of the thread.
func (l *Lead) ExportThread() []thread.Entry {
	return l.thread.Export()
}

// ThreadLen returns the number of thread entries.
func (l *Lead) ThreadLen() int {
	return l.thread.Len()
}

// LastSweepAt returns the timestamp of the latest sweep entry, if any.
func (l *Lead) LastSweepAt() (time.Time, bool) {
	e, ok := l.thread.LastSweep()
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, e.Timestamp)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
