package llm

import (
	"context"
	"errors"

	"storyreel/config"
)

// ErrMissingAPIKey is a configuration error: no chat collaborator credential
// is available. It is detected before any network call.
var ErrMissingAPIKey = errors.New("no LLM API key configured")

// Client abstracts a chat-completion collaborator. Implementations return the
// raw free-form response text; parsing is the caller's concern.
type Client interface {
	Chat(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	ModelName() string
}

// NewClient selects a chat provider from the configuration. Cohere is
// preferred when configured, otherwise an OpenAI-compatible endpoint.
func NewClient(cfg config.Config) (Client, error) {
	if cfg.CohereAPIKey != "" {
		return newCohereClient(cfg.CohereAPIKey, cfg.LLMModel), nil
	}
	if cfg.OpenAIAPIKey != "" {
		return newOpenAIClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.LLMModel), nil
	}
	return nil, ErrMissingAPIKey
}
