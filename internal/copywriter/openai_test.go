package copywriter

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatCompletion(content string) string {
	raw, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	})
	return string(raw)
}

func TestOpenAIWriterDraft(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, chatCompletion("Hero | Bold and bright | bottle on a red podium\nCalm | Quiet luxury | bottle in a spa"))
	}))
	defer srv.Close()

	writer, err := NewOpenAIWriter(OpenAIOptions{APIKey: "sk-test", BaseURL: srv.URL + "/v1", HTTPClient: srv.Client()})
	require.NoError(t, err)

	draft, err := writer.Draft(context.Background(), Brief{ProductName: "perfume", Count: 2, Locale: "en"})
	require.NoError(t, err)
	assert.Equal(t, providerOpenAI, draft.Provider)
	assert.False(t, draft.Degraded)
	require.Len(t, draft.Concepts, 2)
	assert.Equal(t, "Calm", draft.Concepts[1].Title)
	assert.Equal(t, defaultOpenAIModel, gotBody["model"])
}

func TestOpenAIWriterFallsBackOnUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"message":"bad model","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	var reason string
	writer, err := NewOpenAIWriter(OpenAIOptions{
		APIKey:     "sk-test",
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
		OnFallback: func(r string, _ error) { reason = r },
	})
	require.NoError(t, err)

	draft, err := writer.Draft(context.Background(), Brief{ProductName: "lamp", Count: 3})
	require.NoError(t, err)
	assert.Equal(t, "chat_request", reason)
	assert.Equal(t, providerStatic, draft.Provider)
	assert.Equal(t, "chat_request", draft.Metadata["fallback_reason"])
	assert.Len(t, draft.Concepts, 3)
}

func TestNewOpenAIWriterRequiresKey(t *testing.T) {
	_, err := NewOpenAIWriter(OpenAIOptions{})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestStaticWriterTitleCases(t *testing.T) {
	draft, err := NewStaticWriter().Draft(context.Background(), Brief{ProductName: "bamboo cutting board", Count: 2})
	require.NoError(t, err)
	require.Len(t, draft.Concepts, 2)
	assert.Equal(t, "Bamboo Cutting Board: Everyday Essential", draft.Concepts[0].Title)
	assert.NotEqual(t, draft.Concepts[0].ImagePrompt, draft.Concepts[1].ImagePrompt)
}
