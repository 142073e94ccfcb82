package llm

import (
	"context"
	"os"
	"strings"

	"kandrai/internal/config"
	"kandrai/internal/errors"
)

// EnvCredentials reads the named environment variable on every call and falls back
// to a static value from configuration.
type EnvCredentials struct {
	Var      string
	Fallback string
}

func (e EnvCredentials) Credential(context.Context) (string, error) {
	if e.Var != "" {
		if v := strings.TrimSpace(os.Getenv(e.Var)); v != "" {
			return v, nil
		}
	}
	return strings.TrimSpace(e.Fallback), nil
}

// VaultCredentials reads the credential from a Vault KVv2 secret on every call.
type VaultCredentials struct {
	Client *config.VaultClient
}

func (v VaultCredentials) Credential(context.Context) (string, error) {
	key, err := v.Client.LLMKey()
	if err != nil {
		return "", errors.NewConfigError(errors.ErrCodeMissingAPIKey,
			"LLM credential could not be read from Vault", err)
	}
	return strings.TrimSpace(key), nil
}

// ChainCredentials returns the first non-empty credential. A failing source is skipped;
// its error is only reported when no later source yields a key.
type ChainCredentials []CredentialSource

func (c ChainCredentials) Credential(ctx context.Context) (string, error) {
	var firstErr error
	for _, src := range c {
		key, err := src.Credential(ctx)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if key != "" {
			return key, nil
		}
	}
	return "", firstErr
}

// NewCredentialSource builds the lookup order used by the service: environment
// variable, static config value, then Vault when a client is given.
func NewCredentialSource(cfg config.LLMConfig, vault *config.VaultClient) CredentialSource {
	env := EnvCredentials{Var: cfg.APIKeyEnv, Fallback: cfg.APIKey}
	if vault == nil {
		return env
	}
	return ChainCredentials{env, VaultCredentials{Client: vault}}
}
