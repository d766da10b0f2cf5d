package llm

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"balanced-meal-planner/internal/config"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGroq(t *testing.T, handler http.HandlerFunc, jsonMode bool) *GroqClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.LLM.GroqAPIKey = "groq_key"
	client := NewGroqClient(cfg, jsonMode)
	client.url = server.URL
	return client
}

func TestGroqGenerateContent(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		client := newTestGroq(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer groq_key", r.Header.Get("Authorization"))

			body, _ := io.ReadAll(r.Body)
			var req groqRequest
			require.NoError(t, json.Unmarshal(body, &req))
			assert.Equal(t, "hello", req.Messages[0].Content)
			assert.Equal(t, "json_object", req.ResponseFormat["type"])

			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{}"}}],"usage":{"prompt_tokens":7,"completion_tokens":3,"total_tokens":10}}`))
		}, true)

		resp, err := client.GenerateContent(context.Background(), "hello")
		require.NoError(t, err)
		assert.Equal(t, "{}", resp.Content)
		assert.Equal(t, 7, resp.Usage.PromptTokens)
		assert.Equal(t, 3, resp.Usage.CompletionTokens)
		assert.Equal(t, client.model, resp.Usage.Model)
	})

	t.Run("PlainTextModeOmitsResponseFormat", func(t *testing.T) {
		client := newTestGroq(t, func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			assert.NotContains(t, string(body), "response_format")
			_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
		}, false)

		resp, err := client.GenerateContent(context.Background(), "hello")
		require.NoError(t, err)
		assert.Equal(t, "ok", resp.Content)
	})

	t.Run("APIError", func(t *testing.T) {
		client := newTestGroq(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte("slow down"))
		}, true)

		_, err := client.GenerateContent(context.Background(), "hello")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status=429")
	})

	t.Run("NoChoices", func(t *testing.T) {
		client := newTestGroq(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"choices":[]}`))
		}, true)

		_, err := client.GenerateContent(context.Background(), "hello")
		assert.EqualError(t, err, "no content generated")
	})
}
