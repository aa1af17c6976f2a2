// Package perception is kabuten's reasoning capability: a vendor-neutral
// Reasoner interface, the Anthropic and Gemini providers behind it, the API
// slot scheduler that caps outbound calls, and the tolerant JSON scanner used
// on everything a model sends back.
package perception

import (
	"context"
	"errors"
	"time"

	"kabuten/internal/types"
)

// Sentinel errors.
var (
	// ErrEmptyResponse is returned when a provider answers with no text.
	ErrEmptyResponse = errors.New("empty response from reasoning provider")

	// ErrNoJSONObject is returned when text contains no balanced JSON object.
	ErrNoJSONObject = errors.New("no JSON object found in response")

	// ErrAPIKeyMissing is returned when a provider is built without a key.
	ErrAPIKeyMissing = errors.New("API key not configured")

	// ErrSchedulerClosed is returned for calls made after Scheduler.Close.
	ErrSchedulerClosed = errors.New("reasoning scheduler closed")
)

// Role tags a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one prior message in a multi-turn request.
type Turn struct {
	Role    Role
	Content string
}

// Request describes one reasoning call.
type Request struct {
	// System is the persona/context block. Optional.
	System string

	// History holds prior turns, oldest first. Prompt is sent after them.
	History []Turn

	// Prompt is the final user instruction.
	Prompt string

	// Effort selects the thinking budget.
	Effort types.Effort

	// ThinkingBudget overrides the effort-derived budget when > 0.
	ThinkingBudget int

	// MaxTokens caps visible output. Zero means the provider default.
	MaxTokens int

	// MaxSearches allows that many web lookups. Zero disables search.
	MaxSearches int

	// Timeout bounds the call once a slot is held. Zero means none beyond ctx.
	Timeout time.Duration
}

// Reasoner is the opaque reasoning capability: request in, free text out.
// Implementations must be safe for concurrent use.
type Reasoner interface {
	Invoke(ctx context.Context, req Request) (string, error)
}

// ReasonerFunc adapts a function to Reasoner.
type ReasonerFunc func(ctx context.Context, req Request) (string, error)

// Invoke calls f.
func (f ReasonerFunc) Invoke(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Thinking budgets per effort level, in tokens.
const (
	ThinkingBudgetLow    = 1024
	ThinkingBudgetMedium = 2048
	ThinkingBudgetHigh   = 4096

	// DefaultMaxTokens is the visible-output cap when a request sets none.
	DefaultMaxTokens = 4096
)

// ThinkingBudget returns the token budget for an effort level.
func ThinkingBudget(e types.Effort) int {
	switch e {
	case types.EffortHigh:
		return ThinkingBudgetHigh
	case types.EffortMedium:
		return ThinkingBudgetMedium
	default:
		return ThinkingBudgetLow
	}
}

// budgetFor resolves the thinking budget of a request.
func budgetFor(req Request) int {
	if req.ThinkingBudget > 0 {
		return req.ThinkingBudget
	}
	return ThinkingBudget(req.Effort)
}

// maxTokensFor resolves the visible output cap of a request.
func maxTokensFor(req Request) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	return DefaultMaxTokens
}
