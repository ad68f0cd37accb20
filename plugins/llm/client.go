package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
)

// APIError is a non-2xx answer from a model endpoint. Type and Message are
// filled from the Anthropic error envelope or a Bedrock-style {"message": ...}
// body when either is present.
type APIError struct {
	StatusCode int
	Status     string
	Type       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = strings.TrimSpace(e.Body)
	}
	if e.Type != "" {
		return fmt.Sprintf("model endpoint returned %s (%s): %s", e.Status, e.Type, msg)
	}
	return fmt.Sprintf("model endpoint returned %s: %s", e.Status, msg)
}

type errorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Error   *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func newAPIError(resp *http.Response, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       string(body),
	}
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		apiErr.Type = eb.Type
		apiErr.Message = eb.Message
		if eb.Error != nil {
			apiErr.Type = eb.Error.Type
			apiErr.Message = eb.Error.Message
		}
	}
	return apiErr
}

// HTTPClient posts Bedrock-style invoke bodies to a gateway endpoint.
type HTTPClient struct {
	Endpoint   string
	Params     Params
	HTTPClient *http.Client
}

// NewHTTPClient returns a client for endpoint. When token is set every request
// carries it as an OAuth2 bearer token.
func NewHTTPClient(endpoint, token string, p Params) *HTTPClient {
	httpClient := http.DefaultClient
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(context.Background(), ts)
	}
	return &HTTPClient{
		Endpoint:   endpoint,
		Params:     p,
		HTTPClient: httpClient,
	}
}

// Invoke sends prompt as a single user message and returns the generated text.
func (c *HTTPClient) Invoke(ctx context.Context, prompt string) (string, error) {
	jsonBody, err := encodeRequest(prompt, c.Params, true)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", newAPIError(resp, body)
	}
	return decodeResponse(body)
}
