package llm

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"kandrai/internal/config"
	"kandrai/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessorMissingCredentialMakesNoCall(t *testing.T) {
	t.Setenv("KANDRAI_TEST_OPENAI_KEY", "")
	upstream := newFakeOpenAI(t, http.StatusOK, chatReply(`{}`))

	built := 0
	accessor := NewAccessor(testLLMConfig(upstream.server.URL), nil, nil,
		WithProviderFactory(func(ctx context.Context, cfg config.LLMConfig, apiKey string, httpClient *http.Client, logger *errors.Logger) (Provider, error) {
			built++
			return DefaultProviderFactory(ctx, cfg, apiKey, httpClient, logger)
		}))

	assert.False(t, accessor.CredentialConfigured(context.Background()))

	_, err := accessor.Complete(context.Background(), CompletionRequest{UserContent: "x"})
	require.Error(t, err)

	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeMissingAPIKey, appErr.Code)
	assert.Equal(t, http.StatusServiceUnavailable, appErr.HTTPStatus())
	assert.Contains(t, appErr.Message, "KANDRAI_TEST_OPENAI_KEY")

	assert.Zero(t, built, "no provider should be built without a credential")
	assert.Zero(t, upstream.hits.Load(), "no upstream request should be made")
}

func TestAccessorPicksUpCredentialPerCall(t *testing.T) {
	upstream := newFakeOpenAI(t, http.StatusOK, chatReply(`{"ok":true}`))
	accessor := NewAccessor(testLLMConfig(upstream.server.URL), nil, nil)

	t.Setenv("KANDRAI_TEST_OPENAI_KEY", "")
	_, err := accessor.Complete(context.Background(), CompletionRequest{UserContent: "x"})
	require.Error(t, err)

	t.Setenv("KANDRAI_TEST_OPENAI_KEY", "sk-late")
	assert.True(t, accessor.CredentialConfigured(context.Background()))
	completion, err := accessor.Complete(context.Background(), CompletionRequest{UserContent: "x"})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, completion.Content)
	assert.Equal(t, "Bearer sk-late", upstream.auth)
	assert.EqualValues(t, 1, upstream.hits.Load())
}

func TestAccessorCredentialSourceError(t *testing.T) {
	accessor := NewAccessor(testLLMConfig("http://127.0.0.1:1"), failingSource{}, nil)

	_, err := accessor.Provider(context.Background())
	require.Error(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, errors.StatusCode(err))
}

func TestAccessorUnsupportedProvider(t *testing.T) {
	cfg := testLLMConfig("")
	cfg.Provider = "mystery"
	accessor := NewAccessor(cfg, EnvCredentials{Fallback: "sk"}, nil)

	_, err := accessor.Provider(context.Background())
	require.Error(t, err)
	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeInvalidConfig, appErr.Code)
}

func TestAccessorBuildsAnthropicProvider(t *testing.T) {
	var key string
	reply := `{"id":"msg_1","type":"message","role":"assistant","model":"claude-3-5-haiku-20241022",
		"content":[{"type":"text","text":"{}"}],"stop_reason":"end_turn","usage":{"input_tokens":3,"output_tokens":1}}`
	srv := newFakeAnthropic(t, http.StatusOK, reply, nil, &key)
	accessor := NewAccessor(anthropicConfig(srv.URL), EnvCredentials{Fallback: "ak-static"}, nil)

	completion, err := accessor.Complete(context.Background(), CompletionRequest{UserContent: "x"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", completion.Provider)
	assert.Equal(t, "ak-static", key)
}

func TestAccessorBreakerOpens(t *testing.T) {
	upstream := newFakeOpenAI(t, http.StatusInternalServerError, `{}`)
	cfg := testLLMConfig(upstream.server.URL)
	cfg.CircuitBreaker = config.CircuitBreakerConfig{
		Enabled:          true,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		MinRequests:      2,
		FailureThreshold: 0.5,
	}
	accessor := NewAccessor(cfg, EnvCredentials{Fallback: "sk-test"}, nil)

	for range 2 {
		_, err := accessor.Complete(context.Background(), CompletionRequest{UserContent: "x"})
		appErr, ok := errors.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, errors.ErrCodeAIServiceFailed, appErr.Code)
	}

	_, err := accessor.Complete(context.Background(), CompletionRequest{UserContent: "x"})
	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeCircuitOpen, appErr.Code)
	assert.Equal(t, http.StatusBadGateway, appErr.HTTPStatus())

	assert.EqualValues(t, 2, upstream.hits.Load(), "open breaker must fail fast")
	assert.Equal(t, "open", accessor.BreakerStats()["state"])
}

type countingSource struct {
	key   string
	calls int
}

func (c *countingSource) Credential(context.Context) (string, error) {
	c.calls++
	return c.key, nil
}

func TestAccessorCredentialStatusCache(t *testing.T) {
	uncached := &countingSource{key: "sk"}
	accessor := NewAccessor(testLLMConfig(""), uncached, nil)
	assert.True(t, accessor.CredentialConfigured(context.Background()))
	assert.True(t, accessor.CredentialConfigured(context.Background()))
	assert.Equal(t, 2, uncached.calls)

	cached := &countingSource{key: "sk"}
	accessor = NewAccessor(testLLMConfig(""), cached, nil, WithCredentialStatusTTL(time.Hour))
	for range 3 {
		assert.True(t, accessor.CredentialConfigured(context.Background()))
	}
	assert.Equal(t, 1, cached.calls)

	// the call path still resolves the credential every time
	_, err := accessor.Provider(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, cached.calls)
}

type failingSource struct{}

func (failingSource) Credential(context.Context) (string, error) {
	return "", fmt.Errorf("vault sealed")
}
