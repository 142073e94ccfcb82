package llm

import (
	"context"
)

// Provider is a single upstream completion backend.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
	Name() string
	Close() error
}

// Completer runs one completion. Accessor implements it; tests substitute fakes.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}

// CredentialSource resolves the upstream credential. It is consulted on every call,
// so a key added to the environment after startup is picked up without a restart.
type CredentialSource interface {
	Credential(ctx context.Context) (string, error)
}

// CompletionRequest is one system+user exchange that must come back as a JSON object.
type CompletionRequest struct {
	SystemPrompt string
	UserContent  string
}

// Completion is the raw reply text plus what the upstream reported about it.
type Completion struct {
	Content  string
	Model    string
	Provider string
	Usage    *TokenUsage
}

// TokenUsage represents token usage information from AI responses
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}
