package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"kandrai/internal/config"
	"kandrai/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLLMConfig(baseURL string) config.LLMConfig {
	return config.LLMConfig{
		Provider:    "openai",
		Model:       "gpt-4o-mini",
		BaseURL:     baseURL,
		APIKeyEnv:   "KANDRAI_TEST_OPENAI_KEY",
		Temperature: 0.2,
		MaxTokens:   1400,
		Timeout:     5 * time.Second,
	}
}

// fakeOpenAI records the last request body and answers with reply/status.
type fakeOpenAI struct {
	server *httptest.Server
	hits   atomic.Int32
	body   map[string]any
	auth   string
}

func newFakeOpenAI(t *testing.T, status int, reply string) *fakeOpenAI {
	t.Helper()
	f := &fakeOpenAI{}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		f.auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&f.body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(f.server.Close)
	return f
}

func chatReply(content string) string {
	b, _ := json.Marshal(map[string]any{
		"model": "gpt-4o-mini-2024-07-18",
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": content}, "finish_reason": "stop"},
		},
		"usage": map[string]any{"prompt_tokens": 120, "completion_tokens": 30, "total_tokens": 150},
	})
	return string(b)
}

func TestOpenAIProviderRequestShape(t *testing.T) {
	upstream := newFakeOpenAI(t, http.StatusOK, chatReply(`  {"ok":true}  `))
	provider := NewOpenAIProvider(testLLMConfig(upstream.server.URL+"/v1/"), "sk-test", nil, nil)

	completion, err := provider.Complete(context.Background(), CompletionRequest{
		SystemPrompt: "system text",
		UserContent:  "user text",
	})
	require.NoError(t, err)

	assert.Equal(t, `{"ok":true}`, completion.Content)
	assert.Equal(t, "gpt-4o-mini-2024-07-18", completion.Model)
	assert.Equal(t, "openai", completion.Provider)
	require.NotNil(t, completion.Usage)
	assert.Equal(t, int64(120), completion.Usage.InputTokens)
	assert.Equal(t, int64(30), completion.Usage.OutputTokens)
	assert.Equal(t, int64(150), completion.Usage.TotalTokens)

	assert.Equal(t, "Bearer sk-test", upstream.auth)
	assert.Equal(t, "gpt-4o-mini", upstream.body["model"])
	assert.InDelta(t, 0.2, upstream.body["temperature"], 1e-6)
	assert.EqualValues(t, 1400, upstream.body["max_tokens"])
	assert.Equal(t, map[string]any{"type": "json_object"}, upstream.body["response_format"])
	assert.Equal(t, []any{
		map[string]any{"role": "system", "content": "system text"},
		map[string]any{"role": "user", "content": "user text"},
	}, upstream.body["messages"])
}

func TestOpenAIProviderErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		reply    string
		wantCode string
	}{
		{"upstream 500", http.StatusInternalServerError, `{"error":{"message":"boom"}}`, errors.ErrCodeAIServiceFailed},
		{"upstream 401", http.StatusUnauthorized, `{"error":{"message":"bad key"}}`, errors.ErrCodeAIServiceFailed},
		{"upstream 503 html", http.StatusServiceUnavailable, `<html>down</html>`, errors.ErrCodeAIServiceFailed},
		{"not json", http.StatusOK, `<html>`, errors.ErrCodeAIResponseInvalid},
		{"no choices", http.StatusOK, `{"choices":[]}`, errors.ErrCodeAIResponseInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upstream := newFakeOpenAI(t, tt.status, tt.reply)
			provider := NewOpenAIProvider(testLLMConfig(upstream.server.URL+"/v1"), "sk-test", nil, nil)

			_, err := provider.Complete(context.Background(), CompletionRequest{UserContent: "x"})
			require.Error(t, err)

			appErr, ok := errors.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, appErr.Code)
			assert.Equal(t, http.StatusBadGateway, errors.StatusCode(err))
		})
	}
}

func TestOpenAIProviderUnreachable(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	url := upstream.URL
	upstream.Close()

	provider := NewOpenAIProvider(testLLMConfig(url), "sk-test", nil, nil)
	_, err := provider.Complete(context.Background(), CompletionRequest{UserContent: "x"})
	require.Error(t, err)

	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrorTypeNetwork, appErr.Type)
	assert.Equal(t, http.StatusBadGateway, appErr.HTTPStatus())
}

func TestOpenAIProviderTimeout(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	t.Cleanup(upstream.Close)

	provider := NewOpenAIProvider(testLLMConfig(upstream.URL), "sk-test", nil, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := provider.Complete(ctx, CompletionRequest{UserContent: "x"})
	require.Error(t, err)

	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeAITimeout, appErr.Code)
	assert.Equal(t, http.StatusBadGateway, appErr.HTTPStatus())
}
