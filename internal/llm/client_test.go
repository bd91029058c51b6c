package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"echolot/internal/config"
)

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(config.LLMConfig{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`["a","b"]`, `["a","b"]`},
		{"```json\n[\"a\"]\n```", `["a"]`},
		{"```\n[\"a\"]\n```", `["a"]`},
		{"Here you go:\n```json\n[\"a\"]\n```\nEnjoy.", `["a"]`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stripCodeFence(tt.in))
	}
}

func chatServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		resp := map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  "test-model",
			"choices": []map[string]any{
				{
					"index":         0,
					"finish_reason": "stop",
					"message":       map[string]any{"role": "assistant", "content": content},
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestSplitByMeaning(t *testing.T) {
	srv := chatServer(t, "```json\n[\"Erster Teil.\", \"Zweiter Teil.\"]\n```")
	defer srv.Close()

	client, err := NewClient(config.LLMConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Model:   "test-model",
	})
	require.NoError(t, err)

	segments, err := client.SplitByMeaning(context.Background(), "Erster Teil. Zweiter Teil.", 80)
	require.NoError(t, err)
	assert.Equal(t, []string{"Erster Teil.", "Zweiter Teil."}, segments)
}

func TestSplitByMeaningBadJSON(t *testing.T) {
	srv := chatServer(t, "I cannot do that.")
	defer srv.Close()

	client, err := NewClient(config.LLMConfig{APIKey: "test-key", BaseURL: srv.URL, Model: "m"})
	require.NoError(t, err)

	_, err = client.SplitByMeaning(context.Background(), "text", 80)
	require.Error(t, err)
}

func TestProbe(t *testing.T) {
	srv := chatServer(t, "OK")
	defer srv.Close()

	client, err := NewClient(config.LLMConfig{APIKey: "test-key", BaseURL: srv.URL, Model: "m"})
	require.NoError(t, err)

	assert.NoError(t, client.Probe(context.Background()))
}
