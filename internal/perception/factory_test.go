package perception

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kabuten/internal/config"
	"kabuten/internal/types"
)

func TestNewProvider(t *testing.T) {
	t.Run("anthropic", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.LLM.APIKey = "k"
		cfg.LLM.Model = "claude-x"

		p, err := NewProvider(context.Background(), cfg)
		require.NoError(t, err)
		ac, ok := p.(*AnthropicClient)
		require.True(t, ok)
		assert.Equal(t, "claude-x", ac.model)
	})

	t.Run("missing key", func(t *testing.T) {
		cfg := config.DefaultConfig()
		_, err := NewProvider(context.Background(), cfg)
		assert.ErrorIs(t, err, ErrAPIKeyMissing)
	})

	t.Run("gemini missing key", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.LLM.Provider = "gemini"
		_, err := NewProvider(context.Background(), cfg)
		assert.ErrorIs(t, err, ErrAPIKeyMissing)
	})

	t.Run("unknown provider", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.LLM.Provider = "zai"
		cfg.LLM.APIKey = "k"
		_, err := NewProvider(context.Background(), cfg)
		assert.Error(t, err)
	})
}

func TestNewReasoner_UsesLimits(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.LLM.APIKey = "k"
	cfg.Limits.MaxConcurrentAPICalls = 3

	s, err := NewReasoner(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 3, s.GetMetrics().MaxSlots)
}

func TestGeminiRequestMapping(t *testing.T) {
	req := Request{
		System:      "persona",
		History:     []Turn{{Role: RoleUser, Content: "q"}, {Role: RoleAssistant, Content: "a"}},
		Prompt:      "next",
		Effort:      types.EffortMedium,
		MaxTokens:   1000,
		MaxSearches: 3,
	}

	contents := buildContents(req)
	require.Len(t, contents, 3)
	assert.Equal(t, "model", contents[1].Role)
	assert.Equal(t, "next", contents[2].Parts[0].Text)

	cfg := buildGenerateConfig(req)
	require.NotNil(t, cfg.ThinkingConfig)
	assert.Equal(t, int32(2048), *cfg.ThinkingConfig.ThinkingBudget)
	assert.Equal(t, int32(3048), cfg.MaxOutputTokens)
	assert.NotNil(t, cfg.SystemInstruction)
	require.Len(t, cfg.Tools, 1)
	assert.NotNil(t, cfg.Tools[0].GoogleSearch)

	plain := buildGenerateConfig(Request{Prompt: "x"})
	assert.Nil(t, plain.SystemInstruction)
	assert.Empty(t, plain.Tools)
}

func TestThinkingBudget(t *testing.T) {
	assert.Equal(t, 1024, ThinkingBudget(types.EffortLow))
	assert.Equal(t, 2048, ThinkingBudget(types.EffortMedium))
	assert.Equal(t, 4096, ThinkingBudget(types.EffortHigh))
}
