package perception

import (
	"context"
	"fmt"

	"kabuten/internal/config"
	"kabuten/internal/logging"
)

// NewProvider builds the raw provider named by cfg.LLM.Provider.
func NewProvider(ctx context.Context, cfg *config.Config) (Reasoner, error) {
	switch cfg.LLM.Provider {
	case "anthropic", "":
		ac := DefaultAnthropicConfig(cfg.LLM.APIKey)
		if cfg.LLM.BaseURL != "" {
			ac.BaseURL = cfg.LLM.BaseURL
		}
		if cfg.LLM.Model != "" {
			ac.Model = cfg.LLM.Model
		}
		client, err := NewAnthropicClient(ac)
		if err != nil {
			return nil, err
		}
		return client, nil
	case "gemini":
		client, err := NewGeminiClient(ctx, cfg.LLM.APIKey, cfg.LLM.Model, 0)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s (valid: %v)", cfg.LLM.Provider, config.ValidProviders)
	}
}

// NewReasoner builds the configured provider behind a Scheduler.
func NewReasoner(ctx context.Context, cfg *config.Config) (*Scheduler, error) {
	provider, err := NewProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}
	sc := SchedulerConfig{
		MaxConcurrentAPICalls: cfg.GetMaxConcurrentAPICalls(),
		SlotAcquireTimeout:    cfg.GetSlotAcquireTimeout(),
		MinRequestInterval:    cfg.GetMinRequestInterval(),
	}
	logging.Boot("Reasoner: provider=%s model=%s slots=%d min_interval=%v",
		cfg.LLM.Provider, cfg.LLM.Model, sc.MaxConcurrentAPICalls, sc.MinRequestInterval)
	return NewScheduler(provider, sc), nil
}
