package llm

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestChatClient(t *testing.T, handler http.HandlerFunc, maxRetries int) *ChatClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewChatClient(&Config{
		Provider:   ProviderDeepSeek,
		BaseURL:    srv.URL + "/",
		MaxRetries: maxRetries,
	}, "test-key")
	require.NoError(t, err)
	client.backoff = time.Millisecond
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func writeChoice(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
}

func TestChatClient_Complete(t *testing.T) {
	var got chatRequest
	client := newTestChatClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeChoice(w, `{"name": "张三"}`)
	}, 0)

	out, err := client.Complete(t.Context(), Request{
		SystemPrompt: "extract",
		UserPrompt:   "姓名：张三",
		Model:        "deepseek-chat",
		Temperature:  1.3,
		MaxTokens:    4000,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"name": "张三"}`, out)

	assert.Equal(t, "deepseek-chat", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, chatMessage{Role: "system", Content: "extract"}, got.Messages[0])
	assert.Equal(t, chatMessage{Role: "user", Content: "姓名：张三"}, got.Messages[1])
	require.NotNil(t, got.Temperature)
	assert.InDelta(t, 1.3, *got.Temperature, 1e-9)
	assert.Equal(t, 4000, got.MaxTokens)
}

func TestChatClient_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	client := newTestChatClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "slow down", http.StatusTooManyRequests)
			return
		}
		writeChoice(w, "ok")
	}, 3)

	out, err := client.Complete(t.Context(), Request{Model: "deepseek-chat"})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, int32(2), calls.Load())
}

func TestChatClient_ServerErrorExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	client := newTestChatClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "boom", http.StatusBadGateway)
	}, 2)

	_, err := client.Complete(t.Context(), Request{Model: "deepseek-chat"})
	var apiErr *APICallError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
}

func TestChatClient_AuthErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	client := newTestChatClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":{"message":"invalid key"}}`, http.StatusUnauthorized)
	}, 3)

	_, err := client.Complete(t.Context(), Request{Model: "deepseek-chat"})
	require.Error(t, err)
	assert.True(t, IsAuthError(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestChatClient_EmptyContent(t *testing.T) {
	client := newTestChatClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeChoice(w, "")
	}, 0)

	_, err := client.Complete(t.Context(), Request{Model: "deepseek-chat"})
	var apiErr *APICallError
	require.True(t, errors.As(err, &apiErr))
	assert.Contains(t, apiErr.Error(), "no content")
}

func TestChatClient_ErrorBody(t *testing.T) {
	client := newTestChatClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error": {"message": "model overloaded"}}`))
	}, 0)

	_, err := client.Complete(t.Context(), Request{Model: "deepseek-chat"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestChatClient_MissingModel(t *testing.T) {
	client := newTestChatClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}, 0)

	_, err := client.Complete(t.Context(), Request{})
	require.Error(t, err)
}

func TestNewChatClient_Validation(t *testing.T) {
	_, err := NewChatClient(DefaultConfig(), "")
	assert.Error(t, err)

	_, err = NewChatClient(&Config{Provider: ProviderOpenAI}, "key")
	assert.Error(t, err)
}
