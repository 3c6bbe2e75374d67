package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	Model       string  `json:"model"`
	MaxTokens   int64   `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func completionServer(t *testing.T, status int, body string, captured *capturedRequest, calls *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if captured != nil {
			raw, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			require.NoError(t, json.Unmarshal(raw, captured))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

const okBody = `{
	"id": "chatcmpl-1",
	"object": "chat.completion",
	"created": 1741445574,
	"model": "gpt-3.5-turbo",
	"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "  Hello there!  "}}],
	"usage": {"prompt_tokens": 5, "completion_tokens": 3, "total_tokens": 8}
}`

func TestComplete_Success(t *testing.T) {
	var captured capturedRequest
	var calls int32
	srv := completionServer(t, http.StatusOK, okBody, &captured, &calls)

	client := NewClient(ChatConfig{BaseURL: srv.URL + "/v1", APIKey: "test-key", Temperature: DefaultTemperature}, srv.Client())
	reply, err := client.Complete(context.Background(), DefaultSystemPrompt, "hello")
	require.NoError(t, err)

	assert.Equal(t, "Hello there!", reply)
	assert.Equal(t, DefaultModel, captured.Model)
	assert.EqualValues(t, DefaultMaxTokens, captured.MaxTokens)
	assert.InDelta(t, DefaultTemperature, captured.Temperature, 1e-9)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, DefaultSystemPrompt, captured.Messages[0].Content)
	assert.Equal(t, "user", captured.Messages[1].Role)
	assert.Equal(t, "hello", captured.Messages[1].Content)
}

func TestComplete_UpstreamErrorNotRetried(t *testing.T) {
	var calls int32
	srv := completionServer(t, http.StatusInternalServerError, `{"error":{"message":"boom","type":"server_error"}}`, nil, &calls)

	client := NewClient(ChatConfig{BaseURL: srv.URL + "/v1/", APIKey: "test-key"}, srv.Client())
	_, err := client.Complete(context.Background(), DefaultSystemPrompt, "hello")

	assert.ErrorIs(t, err, ErrUpstream)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestComplete_EmptyChoices(t *testing.T) {
	var calls int32
	srv := completionServer(t, http.StatusOK, `{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`, nil, &calls)

	client := NewClient(ChatConfig{BaseURL: srv.URL + "/v1", APIKey: "test-key"}, srv.Client())
	_, err := client.Complete(context.Background(), "", "hello")

	assert.ErrorIs(t, err, ErrUpstream)
}

func TestComplete_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewClient(ChatConfig{BaseURL: url, APIKey: "test-key"}, nil)
	_, err := client.Complete(context.Background(), DefaultSystemPrompt, "hello")

	assert.ErrorIs(t, err, ErrUpstream)
}

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient(ChatConfig{APIKey: "k"}, nil)

	assert.Equal(t, DefaultModel, client.Model())
	assert.EqualValues(t, DefaultMaxTokens, client.cfg.MaxTokens)
}
