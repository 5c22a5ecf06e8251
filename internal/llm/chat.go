package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const chatCompletionsPath = "/chat/completions"

// ChatClient implements Client for OpenAI-compatible chat completion APIs (DeepSeek, OpenAI)
type ChatClient struct {
	provider   Provider
	apiKey     string
	baseURL    string
	httpClient *http.Client
	maxRetries int
	backoff    time.Duration
}

// NewChatClient creates a client for an OpenAI-compatible provider
func NewChatClient(config *Config, apiKey string) (*ChatClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if config.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required for provider %s", config.Provider)
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &ChatClient{
		provider:   config.Provider,
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: config.MaxRetries,
		backoff:    time.Second,
	}, nil
}

// Complete sends a system + user message pair and returns the first choice's content
func (c *ChatClient) Complete(ctx context.Context, req Request) (string, error) {
	if req.Model == "" {
		return "", &APICallError{Provider: c.provider, Message: "no model configured"}
	}

	body := chatRequest{
		Model: req.Model,
		Messages: []chatMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserPrompt},
		},
		MaxTokens: req.MaxTokens,
	}
	temperature := req.Temperature
	body.Temperature = &temperature

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	var content string
	err = retryWithBackoff(ctx, c.maxRetries, c.backoff, func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatCompletionsPath, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

		httpResp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return &APICallError{Provider: c.provider, Message: "sending request", Cause: err}
		}
		defer func() { _ = httpResp.Body.Close() }()

		respBody, err := io.ReadAll(httpResp.Body)
		if err != nil {
			return &APICallError{Provider: c.provider, Message: "reading response", Cause: err}
		}

		if httpResp.StatusCode != http.StatusOK {
			return &APICallError{
				Provider:   c.provider,
				StatusCode: httpResp.StatusCode,
				Message:    strings.TrimSpace(string(respBody)),
			}
		}

		var result chatResponse
		if err := json.Unmarshal(respBody, &result); err != nil {
			return &APICallError{Provider: c.provider, Message: "parsing response", Cause: err}
		}
		if result.Error != nil {
			return &APICallError{Provider: c.provider, Message: result.Error.Message}
		}
		if len(result.Choices) == 0 || result.Choices[0].Message.Content == "" {
			return &APICallError{Provider: c.provider, Message: "model returned no content"}
		}

		content = result.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return "", err
	}

	return content, nil
}

// Close releases resources held by the client
func (c *ChatClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Error   *chatError   `json:"error,omitempty"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type chatError struct {
	Message string `json:"message"`
}
