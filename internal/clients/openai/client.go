// Package openai is a minimal client for OpenAI-compatible chat completion APIs.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"rewire/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

// Client is the chat completion interface consumed by the task generator.
// Tests substitute a stub; production code uses the HTTP client below.
type Client interface {
	ChatCompletion(ctx context.Context, req ChatRequest) (string, error)
}

// Message is a single role-tagged chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest describes one chat completion call.
type ChatRequest struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Config carries the settings required to reach the completion API.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

type httpClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient returns a chat completion client for the configured endpoint.
func NewClient(cfg Config) (Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing OpenAI API key")
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gpt-4"
	}

	return &httpClient{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

type chatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// ChatCompletion performs a single chat completion call and returns the text
// content of the first choice. There is no retry; callers decide how to
// degrade when the API is unavailable.
func (c *httpClient) ChatCompletion(ctx context.Context, req ChatRequest) (string, error) {
	span, ctx := observability.NewSpan(ctx, "openai.chat_completion")
	defer span.End()
	span.AddAttributes(
		attribute.String("openai.model", c.model),
		attribute.Int("openai.max_tokens", req.MaxTokens),
	)

	content, err := c.doChatCompletion(ctx, req)
	if err != nil {
		span.SetError(err)
	}
	return content, err
}

func (c *httpClient) doChatCompletion(ctx context.Context, req ChatRequest) (string, error) {
	body, err := json.Marshal(chatCompletionRequest{
		Model:       c.model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("chat completion call: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read chat response: %w", err)
	}

	var decoded chatCompletionResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return "", fmt.Errorf("decode chat response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		if decoded.Error != nil {
			return "", fmt.Errorf("chat completion failed (status %d): %s", resp.StatusCode, decoded.Error.Message)
		}
		return "", fmt.Errorf("chat completion failed (status %d)", resp.StatusCode)
	}

	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	return decoded.Choices[0].Message.Content, nil
}
