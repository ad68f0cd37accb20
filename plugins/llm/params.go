package llm

import (
	"encoding/json"
	"errors"
	"fmt"

	"schemameta/config"
)

// Decoding settings are fixed so reruns over the same DDL stay as repeatable
// as the model allows.
const (
	DefaultTemperature = 0.0
	DefaultTopP        = 0.0
	DefaultTopK        = 250
)

var ErrEmptyResponse = errors.New("llm: response has no text content")

// Params is the request configuration shared by every provider.
type Params struct {
	ModelID          string
	MaxTokens        int
	Temperature      float64
	TopP             float64
	TopK             int
	AnthropicVersion string
}

// ParamsFromConfig returns the fixed decoding settings with the model and
// output limit taken from cfg.
func ParamsFromConfig(cfg config.Config) Params {
	return Params{
		ModelID:          cfg.ModelID,
		MaxTokens:        cfg.MaxTokens,
		Temperature:      DefaultTemperature,
		TopP:             DefaultTopP,
		TopK:             DefaultTopK,
		AnthropicVersion: cfg.AnthropicVersion,
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// messagesRequest is the Anthropic-on-Bedrock invoke body. Model is only sent
// to gateways; Bedrock takes the model id out of band.
type messagesRequest struct {
	Model            string    `json:"model,omitempty"`
	Messages         []message `json:"messages"`
	MaxTokens        int       `json:"max_tokens"`
	Temperature      float64   `json:"temperature"`
	TopP             float64   `json:"top_p"`
	TopK             int       `json:"top_k"`
	AnthropicVersion string    `json:"anthropic_version"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type messagesResponse struct {
	ID         string         `json:"id"`
	Model      string         `json:"model"`
	StopReason string         `json:"stop_reason"`
	Content    []contentBlock `json:"content"`
}

func encodeRequest(prompt string, p Params, withModel bool) ([]byte, error) {
	req := messagesRequest{
		Messages:         []message{{Role: "user", Content: prompt}},
		MaxTokens:        p.MaxTokens,
		Temperature:      p.Temperature,
		TopP:             p.TopP,
		TopK:             p.TopK,
		AnthropicVersion: p.AnthropicVersion,
	}
	if withModel {
		req.Model = p.ModelID
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode body: %w", err)
	}
	return body, nil
}

// decodeResponse returns the text of the first text block in body.
func decodeResponse(body []byte) (string, error) {
	var resp messagesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	for _, block := range resp.Content {
		if block.Type == "text" || block.Type == "" {
			return block.Text, nil
		}
	}
	return "", ErrEmptyResponse
}
