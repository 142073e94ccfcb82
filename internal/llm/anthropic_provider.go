package llm

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"kandrai/internal/config"
	"kandrai/internal/errors"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// AnthropicProvider talks to the Anthropic Messages API.
type AnthropicProvider struct {
	client anthropic.Client
	cfg    config.LLMConfig
	logger *errors.Logger
}

var _ Provider = (*AnthropicProvider)(nil)

// NewAnthropicProvider builds a provider bound to one credential. BaseURL, when set,
// is the API root without the /v1 suffix.
func NewAnthropicProvider(cfg config.LLMConfig, apiKey string, httpClient *http.Client, logger *errors.Logger) *AnthropicProvider {
	if logger == nil {
		logger = errors.NewDiscardLogger()
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &AnthropicProvider{
		client: anthropic.NewClient(opts...),
		cfg:    cfg,
		logger: logger,
	}
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

func (p *AnthropicProvider) Close() error { return nil }

// Complete sends exactly one Messages request. It never retries.
func (p *AnthropicProvider) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	rid := uuid.New().String()
	start := time.Now()

	tracer := otel.Tracer("kandrai.llm.anthropic")
	ctx, span := tracer.Start(ctx, "anthropic.messages")
	defer span.End()
	span.SetAttributes(
		attribute.String("ai.provider", "anthropic"),
		attribute.String("ai.model", p.cfg.Model),
		attribute.Int("ai.max_tokens", p.cfg.MaxTokens),
		attribute.Int("input.user_length", len(req.UserContent)),
	)

	p.logger.Info("llm.anthropic.request",
		"req_id", rid,
		"model", p.cfg.Model,
		"temp", p.cfg.Temperature,
		"max_tokens", p.cfg.MaxTokens,
		"user_len", len(req.UserContent),
	)

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(p.cfg.Model),
		MaxTokens:   int64(p.cfg.MaxTokens),
		Temperature: anthropic.Float(float64(p.cfg.Temperature)),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.UserContent)),
		},
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		appErr := classifyAnthropicError(err)
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		p.logger.LogError(appErr, "llm.anthropic.send_error",
			"req_id", rid,
			"elapsed_ms", time.Since(start).Milliseconds())
		return nil, appErr
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		span.SetAttributes(attribute.Bool("success", false))
		p.logger.Error("llm.anthropic.no_text",
			"req_id", rid, "stop_reason", string(msg.StopReason),
			"elapsed_ms", time.Since(start).Milliseconds())
		return nil, errors.NewAIError(errors.ErrCodeAIResponseInvalid, "AI provider returned no text content", nil)
	}

	completion := &Completion{
		Content:  strings.TrimSpace(text.String()),
		Model:    string(msg.Model),
		Provider: p.Name(),
	}
	if completion.Model == "" {
		completion.Model = p.cfg.Model
	}
	if msg.Usage.InputTokens > 0 || msg.Usage.OutputTokens > 0 {
		completion.Usage = &TokenUsage{
			InputTokens:  msg.Usage.InputTokens,
			OutputTokens: msg.Usage.OutputTokens,
			TotalTokens:  msg.Usage.InputTokens + msg.Usage.OutputTokens,
		}
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", completion.Usage.InputTokens),
			attribute.Int64("ai.tokens.output", completion.Usage.OutputTokens),
		)
	}

	span.SetAttributes(attribute.Bool("success", true))
	p.logger.Info("llm.anthropic.response",
		"req_id", rid,
		"model", completion.Model,
		"stop_reason", string(msg.StopReason),
		"content_len", len(completion.Content),
		"elapsed_ms", time.Since(start).Milliseconds())

	return completion, nil
}

func classifyAnthropicError(err error) *errors.AppError {
	var apiErr *anthropic.Error
	if stderrors.As(err, &apiErr) {
		return upstreamStatusError(apiErr.StatusCode, err)
	}
	var urlErr *url.Error
	if stderrors.As(err, &urlErr) || stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
		return classifyTransportError(err)
	}
	return errors.NewAIError(errors.ErrCodeAIResponseInvalid, "AI provider returned an unreadable response", err)
}
