package main

import (
	"errors"
	"fmt"

	"github.com/nsouzaco/code-assistant/internal/config"
	"github.com/nsouzaco/code-assistant/internal/conversation"
	"github.com/nsouzaco/code-assistant/internal/llm"
	"github.com/nsouzaco/code-assistant/internal/prompt"
	"github.com/nsouzaco/code-assistant/internal/state"
)

// newModel builds the configured transport. A missing API key yields a nil
// model: the engine then reports the configuration error on every send.
func newModel(cfg config.LLMConfig) (conversation.Model, error) {
	if cfg.APIKey == "" {
		return nil, nil
	}
	switch cfg.Provider {
	case "langchain":
		m, err := llm.NewLangchainModel(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.MaxTokens)
		if errors.Is(err, llm.ErrMissingAPIKey) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("create langchain model: %w", err)
		}
		return m, nil
	default:
		return llm.NewClient(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.MaxTokens), nil
	}
}

// newEngine wires a store to the configured model.
func newEngine(cfg *config.Config, store *state.Store) (*conversation.Engine, error) {
	model, err := newModel(cfg.LLM)
	if err != nil {
		return nil, err
	}
	return conversation.New(store, model,
		conversation.WithTimeout(cfg.LLM.Timeout),
		conversation.WithTiers(prompt.TiersFromConfig(cfg.Window)),
		conversation.WithRateLimit(cfg.LLM.RequestsPerMinute),
	), nil
}
