package llm

import (
	"context"
	"fmt"

	"github.com/liushuangls/go-anthropic/v2"
)

// MessagesAPI is the slice of the go-anthropic client used here.
type MessagesAPI interface {
	CreateMessages(ctx context.Context, request anthropic.MessagesRequest) (anthropic.MessagesResponse, error)
}

// AnthropicClient calls the Anthropic Messages API directly.
type AnthropicClient struct {
	API    MessagesAPI
	Params Params
}

// NewAnthropicClient returns a client for apiKey. An empty baseURL keeps the
// library default.
func NewAnthropicClient(apiKey, baseURL string, p Params) *AnthropicClient {
	var opts []anthropic.ClientOption
	if baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(baseURL))
	}
	return &AnthropicClient{
		API:    anthropic.NewClient(apiKey, opts...),
		Params: p,
	}
}

func (c *AnthropicClient) Invoke(ctx context.Context, prompt string) (string, error) {
	temperature := float32(c.Params.Temperature)
	topP := float32(c.Params.TopP)
	topK := c.Params.TopK

	resp, err := c.API.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:       anthropic.Model(c.Params.ModelID),
		MaxTokens:   c.Params.MaxTokens,
		Temperature: &temperature,
		TopP:        &topP,
		TopK:        &topK,
		Messages: []anthropic.Message{
			{Role: anthropic.RoleUser, Content: []anthropic.MessageContent{
				{Type: "text", Text: &prompt},
			}},
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic messages %s: %w", c.Params.ModelID, err)
	}
	return firstText(resp)
}

func firstText(resp anthropic.MessagesResponse) (string, error) {
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != nil {
			return *block.Text, nil
		}
	}
	return "", ErrEmptyResponse
}
