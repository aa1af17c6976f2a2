// Package coverage implements the company analyst: the leaf of a sector sweep.
// An Analyst turns one reasoning call into exactly one Finding and never
// returns an error; every failure degrades to the default Finding.
package coverage

import (
	"context"
	"fmt"
	"time"

	"kabuten/internal/config"
	"kabuten/internal/logging"
	"kabuten/internal/perception"
	"kabuten/internal/types"
	"kabuten/internal/usage"
)

// Options tunes an Analyst's reasoning calls.
type Options struct {
	// LowTimeout bounds low and medium effort calls.
	LowTimeout time.Duration

	// HighTimeout bounds high effort (escalated) calls.
	HighTimeout time.Duration

	// MaxSearches is the web lookup allowance per call.
	MaxSearches int

	// MaxTokens caps visible output per call.
	MaxTokens int

	// Now supplies the date header clock. Defaults to time.Now.
	Now func() time.Time
}

// DefaultOptions returns the standard analyst limits.
func DefaultOptions() Options {
	return Options{
		LowTimeout:  config.DefaultLeafCallTimeout,
		HighTimeout: config.DefaultEscalatedCallTimeout,
		MaxSearches: config.DefaultMaxWebSearches,
		MaxTokens:   2048,
		Now:         time.Now,
	}
}

// OptionsFromConfig derives analyst options from cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := DefaultOptions()
	opts.LowTimeout = cfg.GetLeafCallTimeout()
	opts.HighTimeout = cfg.GetEscalatedCallTimeout()
	opts.MaxSearches = cfg.GetMaxWebSearches()
	return opts
}

// Analyst covers one company. It holds no state across sweeps.
type Analyst struct {
	company       config.CompanyDef
	sectorContext string
	reasoner      perception.Reasoner
	opts          Options
}

// NewAnalyst creates an analyst for company within a sector's context.
func NewAnalyst(company config.CompanyDef, sectorContext string, reasoner perception.Reasoner, opts Options) *Analyst {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Analyst{
		company:       company,
		sectorContext: sectorContext,
		reasoner:      reasoner,
		opts:          opts,
	}
}

// Ticker returns the covered ticker.
func (a *Analyst) Ticker() string {
	return a.company.Ticker
}

// Request builds the reasoning request for one sweep at effort.
func (a *Analyst) Request(effort types.Effort) perception.Request {
	timeout := a.opts.LowTimeout
	if effort == types.EffortHigh {
		timeout = a.opts.HighTimeout
	}
	return perception.Request{
		System:      systemPrompt(a.company, a.sectorContext, a.opts.Now()),
		Prompt:      sweepPrompt(a.company),
		Effort:      effort,
		MaxTokens:   a.opts.MaxTokens,
		MaxSearches: a.opts.MaxSearches,
		Timeout:     timeout,
	}
}

// Sweep runs one sweep at effort and always returns a Finding for this
// company. Errors, timeouts, panics and unparsable output all yield
// types.DegradedFinding.
func (a *Analyst) Sweep(ctx context.Context, effort types.Effort) (finding types.Finding) {
	timer := logging.StartTimer(logging.CategoryCoverage, fmt.Sprintf("sweep %s (%s)", a.company.Ticker, effort))
	defer timer.Stop()

	defer func() {
		if r := recover(); r != nil {
			logging.CoverageWarn("Analyst %s: recovered from panic during sweep: %v", a.company.Ticker, r)
			finding = types.DegradedFinding(a.company.Ticker, a.company.Name)
		}
	}()

	ctx = usage.WithOperation(ctx, "sweep_"+string(effort))
	text, err := a.reasoner.Invoke(ctx, a.Request(effort))
	if err != nil {
		logging.CoverageWarn("Analyst %s: reasoning call failed (effort=%s): %v", a.company.Ticker, effort, err)
		return types.DegradedFinding(a.company.Ticker, a.company.Name)
	}

	finding, ok := ParseFinding(a.company.Ticker, a.company.Name, text)
	if !ok {
		logging.CoverageWarn("Analyst %s: no JSON finding in response (len=%d)", a.company.Ticker, len(text))
	}
	logging.CoverageDebug("Analyst %s: finding_type=%s signal=%s escalate=%v",
		a.company.Ticker, finding.FindingType, finding.Signal, finding.RequiresEscalation)
	return finding
}

// ParseFinding decodes model text into a Finding for ticker. Every field
// falls back to its default independently; ok is false when text held no
// JSON object at all, in which case the fully degraded Finding is returned.
func ParseFinding(ticker, companyName, text string) (types.Finding, bool) {
	f := types.DegradedFinding(ticker, companyName)

	obj, err := perception.DecodeObject(text)
	if err != nil {
		return f, false
	}

	if ft, ok := types.ParseFindingType(types.FieldString(obj, "finding_type", "")); ok {
		f.FindingType = ft
	}
	if h := types.FieldString(obj, "headline", ""); h != "" {
		f.Headline = h
	}
	f.Detail = types.TruncateWords(types.FieldString(obj, "detail", ""), types.MaxDetailWords)
	if sig, ok := types.ParseSignal(types.FieldString(obj, "signal", "")); ok {
		f.Signal = sig
	}
	if cat, ok := types.ParseCategory(types.FieldString(obj, "category", "")); ok {
		f.Category = cat
	}
	f.RequiresEscalation = types.FieldBool(obj, "requires_escalation", false)
	f.Assessment = types.TruncateWords(types.FieldString(obj, "assessment", ""), types.MaxAssessmentWords)
	f.Sources = types.FieldStringList(obj, "sources")

	return f, true
}
