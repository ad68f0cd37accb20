// Package llm submits a prompt to a hosted text-generation model and returns
// the generated text.
//
// Three backends share one request shape (Anthropic messages with fixed
// decoding settings): Amazon Bedrock, the Anthropic API, and any HTTP gateway
// that accepts the Bedrock invoke body.
package llm

import (
	"context"
	"fmt"

	"schemameta/config"
)

// Invoker generates text for a prompt with one blocking call.
type Invoker interface {
	Invoke(ctx context.Context, prompt string) (string, error)
}

// New builds the Invoker selected by cfg.Provider.
func New(ctx context.Context, cfg config.Config) (Invoker, error) {
	p := ParamsFromConfig(cfg)
	switch cfg.Provider {
	case config.ProviderBedrock:
		client, err := NewBedrockClient(ctx, cfg.Region, p)
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.ProviderAnthropic:
		return NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicBaseURL, p), nil
	case config.ProviderHTTP:
		return NewHTTPClient(cfg.Endpoint, cfg.APIToken, p), nil
	}
	return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
}
