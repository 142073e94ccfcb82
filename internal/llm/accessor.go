package llm

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"kandrai/internal/config"
	"kandrai/internal/errors"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ProviderFactory builds a provider bound to a resolved credential.
type ProviderFactory func(ctx context.Context, cfg config.LLMConfig, apiKey string, httpClient *http.Client, logger *errors.Logger) (Provider, error)

// Accessor hands out a provider per call. The credential is resolved first and
// nothing is constructed, let alone dialed, when it is missing.
type Accessor struct {
	cfg         config.LLMConfig
	credentials CredentialSource
	breaker     *Breaker
	httpClient  *http.Client
	factory     ProviderFactory
	logger      *errors.Logger

	statusTTL time.Duration
	statusMu  sync.Mutex
	statusAt  time.Time
	status    bool
}

// AccessorOption customizes an Accessor
type AccessorOption func(*Accessor)

// WithHTTPClient overrides the shared outbound HTTP client
func WithHTTPClient(client *http.Client) AccessorOption {
	return func(a *Accessor) { a.httpClient = client }
}

// WithCredentialStatusTTL caches CredentialConfigured for ttl. Calls that need
// the credential always resolve it afresh.
func WithCredentialStatusTTL(ttl time.Duration) AccessorOption {
	return func(a *Accessor) { a.statusTTL = ttl }
}

// WithProviderFactory overrides how providers are built
func WithProviderFactory(factory ProviderFactory) AccessorOption {
	return func(a *Accessor) { a.factory = factory }
}

// NewAccessor creates the accessor shared by all requests
func NewAccessor(cfg config.LLMConfig, credentials CredentialSource, logger *errors.Logger, opts ...AccessorOption) *Accessor {
	if logger == nil {
		logger = errors.NewDiscardLogger()
	}
	if credentials == nil {
		credentials = EnvCredentials{Var: cfg.APIKeyEnv, Fallback: cfg.APIKey}
	}

	a := &Accessor{
		cfg:         cfg,
		credentials: credentials,
		breaker:     NewBreaker("llm-"+cfg.Provider, cfg.CircuitBreaker, logger),
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		factory: DefaultProviderFactory,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// DefaultProviderFactory selects the provider named in configuration
func DefaultProviderFactory(ctx context.Context, cfg config.LLMConfig, apiKey string, httpClient *http.Client, logger *errors.Logger) (Provider, error) {
	switch cfg.Provider {
	case "openai", "":
		return NewOpenAIProvider(cfg, apiKey, httpClient, logger), nil
	case "anthropic":
		return NewAnthropicProvider(cfg, apiKey, httpClient, logger), nil
	case "gemini":
		return NewGeminiProvider(ctx, cfg, apiKey, httpClient, logger)
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported AI provider: %s", cfg.Provider), nil)
	}
}

// Provider resolves the credential and builds a provider for one call.
func (a *Accessor) Provider(ctx context.Context) (Provider, error) {
	key, err := a.credentials.Credential(ctx)
	if err != nil {
		return nil, errors.Classify(err, errors.ErrCodeMissingAPIKey, "credential lookup failed: ")
	}
	if key == "" {
		return nil, errors.NewConfigError(errors.ErrCodeMissingAPIKey,
			fmt.Sprintf("%s is not set on the server", a.credentialName()), nil).
			WithContext("provider", a.cfg.Provider)
	}
	return a.factory(ctx, a.cfg, key, a.httpClient, a.logger)
}

// Complete resolves a provider and runs one completion through the breaker.
func (a *Accessor) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	provider, err := a.Provider(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := provider.Close(); err != nil {
			a.logger.Warn("Failed to close AI provider", "provider", provider.Name(), "error", err)
		}
	}()

	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}

	return a.breaker.Execute(func() (*Completion, error) {
		return provider.Complete(ctx, req)
	})
}

// CredentialConfigured reports whether a credential currently resolves.
func (a *Accessor) CredentialConfigured(ctx context.Context) bool {
	if a.statusTTL <= 0 {
		return a.lookupStatus(ctx)
	}

	a.statusMu.Lock()
	defer a.statusMu.Unlock()
	if !a.statusAt.IsZero() && time.Since(a.statusAt) < a.statusTTL {
		return a.status
	}
	a.status = a.lookupStatus(ctx)
	a.statusAt = time.Now()
	return a.status
}

func (a *Accessor) lookupStatus(ctx context.Context) bool {
	key, err := a.credentials.Credential(ctx)
	return err == nil && key != ""
}

// ProviderName returns the configured provider
func (a *Accessor) ProviderName() string {
	return a.cfg.Provider
}

// Model returns the configured model
func (a *Accessor) Model() string {
	return a.cfg.Model
}

// BreakerStats returns circuit breaker statistics
func (a *Accessor) BreakerStats() map[string]any {
	return a.breaker.GetStats()
}

func (a *Accessor) credentialName() string {
	if a.cfg.APIKeyEnv != "" {
		return a.cfg.APIKeyEnv
	}
	return config.DefaultAPIKeyEnv(a.cfg.Provider)
}
