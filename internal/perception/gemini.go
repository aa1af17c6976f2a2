package perception

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"kabuten/internal/logging"
	"kabuten/internal/usage"
)

// =============================================================================
// GOOGLE GENAI REASONING PROVIDER
// =============================================================================

// DefaultGeminiModel is used when no Gemini model is configured.
const DefaultGeminiModel = "gemini-2.5-pro"

// GeminiClient implements Reasoner using Google's Gemini API with thinking
// and Google Search grounding.
type GeminiClient struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGeminiClient creates a new Gemini client.
func NewGeminiClient(ctx context.Context, apiKey, model string, timeout time.Duration) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyMissing
	}

	model = strings.TrimSpace(model)
	if model == "" || !strings.HasPrefix(model, "gemini") {
		model = DefaultGeminiModel
	}
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiClient{client: client, model: model, timeout: timeout}, nil
}

// buildContents maps history and prompt to genai contents.
func buildContents(req Request) []*genai.Content {
	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, t := range req.History {
		role := genai.Role(genai.RoleUser)
		if t.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(t.Content, role))
	}
	return append(contents, genai.NewContentFromText(req.Prompt, genai.RoleUser))
}

// buildGenerateConfig maps a Request to the generation config. Gemini has no
// per-call search cap, so any allowance enables grounding.
func buildGenerateConfig(req Request) *genai.GenerateContentConfig {
	budget := int32(budgetFor(req))
	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(budgetFor(req) + maxTokensFor(req)),
		ThinkingConfig: &genai.ThinkingConfig{
			ThinkingBudget: &budget,
		},
	}
	if strings.TrimSpace(req.System) != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.MaxSearches > 0 {
		cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}
	return cfg
}

// Invoke generates content and returns the response text.
func (c *GeminiClient) Invoke(ctx context.Context, req Request) (string, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	startTime := time.Now()
	logging.PerceptionDebug("[Gemini] Invoke: model=%s effort=%s history=%d prompt_len=%d",
		c.model, req.Effort, len(req.History), len(req.Prompt))

	result, err := c.client.Models.GenerateContent(ctx, c.model, buildContents(req), buildGenerateConfig(req))
	if err != nil {
		logging.PerceptionWarn("[Gemini] Invoke: failed after %v: %v", time.Since(startTime), err)
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}

	if md := result.UsageMetadata; md != nil {
		usage.Record(ctx, c.model, "gemini", int(md.PromptTokenCount), int(md.CandidatesTokenCount+md.ThoughtsTokenCount))
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}

	logging.Perception("[Gemini] Invoke: completed in %v response_len=%d", time.Since(startTime), len(text))
	return text, nil
}
