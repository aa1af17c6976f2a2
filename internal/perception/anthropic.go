package perception

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"kabuten/internal/logging"
	"kabuten/internal/usage"
)

// AnthropicConfig configures AnthropicClient.
type AnthropicConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration

	// MaxRetries bounds retries on 429, 5xx and transport errors.
	MaxRetries int

	// RetryBackoff is the base of the exponential retry delay.
	RetryBackoff time.Duration
}

// DefaultAnthropicConfig returns sensible defaults.
func DefaultAnthropicConfig(apiKey string) AnthropicConfig {
	return AnthropicConfig{
		APIKey:       apiKey,
		BaseURL:      "https://api.anthropic.com/v1",
		Model:        "claude-sonnet-4-5-20250929",
		Timeout:      10 * time.Minute,
		MaxRetries:   3,
		RetryBackoff: time.Second,
	}
}

// AnthropicClient implements Reasoner over the Anthropic Messages API with
// extended thinking and the server-side web search tool.
type AnthropicClient struct {
	apiKey       string
	baseURL      string
	model        string
	maxRetries   int
	retryBackoff time.Duration
	httpClient   *http.Client
}

// NewAnthropicClient creates a new Anthropic client.
func NewAnthropicClient(config AnthropicConfig) (*AnthropicClient, error) {
	if config.APIKey == "" {
		return nil, ErrAPIKeyMissing
	}
	def := DefaultAnthropicConfig(config.APIKey)
	if config.BaseURL == "" {
		config.BaseURL = def.BaseURL
	}
	if config.Model == "" {
		config.Model = def.Model
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = def.RetryBackoff
	}
	return &AnthropicClient{
		apiKey:       config.APIKey,
		baseURL:      strings.TrimRight(config.BaseURL, "/"),
		model:        config.Model,
		maxRetries:   config.MaxRetries,
		retryBackoff: config.RetryBackoff,
		httpClient:   &http.Client{Timeout: config.Timeout},
	}, nil
}

// AnthropicRequest is the Messages API request body.
type AnthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []AnthropicMessage `json:"messages"`
	Thinking  *AnthropicThinking `json:"thinking,omitempty"`
	Tools     []AnthropicTool    `json:"tools,omitempty"`
}

// AnthropicMessage is one conversation message.
type AnthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AnthropicThinking enables extended thinking.
type AnthropicThinking struct {
	Type         string `json:"type"`
	BudgetTokens int    `json:"budget_tokens"`
}

// AnthropicTool declares a server-side tool.
type AnthropicTool struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	MaxUses int    `json:"max_uses,omitempty"`
}

// AnthropicResponse is the subset of the Messages API response we read.
type AnthropicResponse struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	StopReason string `json:"stop_reason"`
	Content    []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

const webSearchToolType = "web_search_20250305"

// buildRequest maps a Request to the Messages API body. max_tokens covers
// thinking plus visible output.
func (c *AnthropicClient) buildRequest(req Request) AnthropicRequest {
	budget := budgetFor(req)

	messages := make([]AnthropicMessage, 0, len(req.History)+1)
	for _, t := range req.History {
		messages = append(messages, AnthropicMessage{Role: string(t.Role), Content: t.Content})
	}
	messages = append(messages, AnthropicMessage{Role: string(RoleUser), Content: req.Prompt})

	body := AnthropicRequest{
		Model:     c.model,
		MaxTokens: budget + maxTokensFor(req),
		System:    req.System,
		Messages:  messages,
		Thinking:  &AnthropicThinking{Type: "enabled", BudgetTokens: budget},
	}
	if req.MaxSearches > 0 {
		body.Tools = []AnthropicTool{{Type: webSearchToolType, Name: "web_search", MaxUses: req.MaxSearches}}
	}
	return body
}

// Invoke sends one request and returns the concatenated text blocks.
func (c *AnthropicClient) Invoke(ctx context.Context, req Request) (string, error) {
	// Auto-apply timeout if context has no deadline
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.httpClient.Timeout)
		defer cancel()
	}

	startTime := time.Now()
	logging.PerceptionDebug("[Anthropic] Invoke: model=%s effort=%s history=%d prompt_len=%d",
		c.model, req.Effort, len(req.History), len(req.Prompt))

	jsonData, err := json.Marshal(c.buildRequest(req))
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for i := 0; i <= c.maxRetries; i++ {
		if i > 0 {
			if err := sleepCtx(ctx, c.retryBackoff*time.Duration(1<<uint(i-1))); err != nil {
				return "", fmt.Errorf("retry aborted after %v: %w", lastErr, err)
			}
		}

		text, retry, err := c.doOnce(ctx, jsonData)
		if err == nil {
			logging.Perception("[Anthropic] Invoke: completed in %v response_len=%d", time.Since(startTime), len(text))
			return text, nil
		}
		if !retry || ctx.Err() != nil {
			logging.PerceptionWarn("[Anthropic] Invoke: failed after %v: %v", time.Since(startTime), err)
			return "", err
		}
		lastErr = err
	}

	logging.PerceptionWarn("[Anthropic] Invoke: max retries exceeded after %v: %v", time.Since(startTime), lastErr)
	return "", fmt.Errorf("max retries exceeded: %w", lastErr)
}

// doOnce performs one HTTP round trip. retry reports whether the failure is
// transient.
func (c *AnthropicClient) doOnce(ctx context.Context, jsonData []byte) (text string, retry bool, err error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(jsonData))
	if err != nil {
		return "", false, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", true, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return "", true, fmt.Errorf("API request failed with status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var anthropicResp AnthropicResponse
	if err := json.Unmarshal(body, &anthropicResp); err != nil {
		return "", false, fmt.Errorf("failed to parse response: %w", err)
	}
	if anthropicResp.Error != nil {
		return "", false, fmt.Errorf("API error: %s", anthropicResp.Error.Message)
	}

	usage.Record(ctx, c.model, "anthropic", anthropicResp.Usage.InputTokens, anthropicResp.Usage.OutputTokens)

	var result strings.Builder
	for _, block := range anthropicResp.Content {
		if block.Type == "text" {
			result.WriteString(block.Text)
		}
	}
	out := strings.TrimSpace(result.String())
	if out == "" {
		return "", false, ErrEmptyResponse
	}
	return out, false, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
