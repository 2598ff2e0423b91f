// Package llm talks to a chat-completion language model provider and
// classifies its failures so callers can decide what is retryable.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// Provider is the interface the summarizer depends on.
type Provider interface {
	Generate(ctx context.Context, system, user string, maxTokens int) (string, error)
	IsConfigured() bool
}

// APIError is a non-2xx response from the provider.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("llm provider returned %d: %s", e.StatusCode, e.Body)
}

// IsRateLimit reports whether err is the provider's rate-limit signal.
func IsRateLimit(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests
}

// IsTransient reports whether err is worth retrying: rate limits, provider
// 5xx, or network-level failures.
func IsTransient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	// Request-building errors are not; anything that made it onto the wire is.
	return errors.Is(err, errSend)
}

var errSend = errors.New("llm request failed")

// Client is an OpenAI-compatible chat-completions client. Groq and OpenAI
// both serve this shape.
type Client struct {
	Model   string
	BaseURL string
	apiKey  string
	client  *http.Client
}

// NewClient creates a client reading the API key from the named environment
// variable. An empty baseURL selects the Groq endpoint.
func NewClient(model, baseURL, apiKeyEnv string) *Client {
	if baseURL == "" {
		baseURL = "https://api.groq.com/openai/v1"
	}
	return &Client{
		Model:   model,
		BaseURL: baseURL,
		apiKey:  os.Getenv(apiKeyEnv),
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// IsConfigured reports whether the API key is set.
func (c *Client) IsConfigured() bool { return c.apiKey != "" }

// Generate sends one chat completion and returns the raw response text.
func (c *Client) Generate(ctx context.Context, system, user string, maxTokens int) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("llm provider: API key not configured")
	}

	messages := []map[string]string{}
	if system != "" {
		messages = append(messages, map[string]string{"role": "system", "content": system})
	}
	messages = append(messages, map[string]string{"role": "user", "content": user})

	body := map[string]any{
		"model":       c.Model,
		"messages":    messages,
		"temperature": 0.2,
		"max_tokens":  maxTokens,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errSend, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in provider response")
	}
	return result.Choices[0].Message.Content, nil
}
