package observability

import (
	"context"

	"kandrai/internal/llm"

	"go.opentelemetry.io/otel/attribute"
)

// InstrumentedCompleter records every upstream completion as an AI operation.
type InstrumentedCompleter struct {
	next      llm.Completer
	operation string
	om        *ObservabilityManager
}

// InstrumentCompleter wraps next so each call is traced and counted under operation.
func InstrumentCompleter(next llm.Completer, operation string, om *ObservabilityManager) *InstrumentedCompleter {
	return &InstrumentedCompleter{next: next, operation: operation, om: om}
}

// Complete implements llm.Completer.
func (c *InstrumentedCompleter) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.Completion, error) {
	var completion *llm.Completion
	metrics := c.om.GetMetrics()

	err := metrics.TrackAIOperationWithTokens(ctx, c.operation, func(ctx context.Context) *AIOperationResult {
		var err error
		completion, err = c.next.Complete(ctx, req)
		result := &AIOperationResult{Error: err}
		if completion != nil {
			result.TokenUsage = completion.Usage
		}
		return result
	}, c.om)
	if err != nil {
		return nil, err
	}

	metrics.RecordContentSize(ctx, "prompt", len(req.UserContent), c.om)
	return completion, nil
}

// ProviderAttribute tags business metrics with the upstream provider.
func ProviderAttribute(provider string) attribute.KeyValue {
	return attribute.String("provider", provider)
}
