package llm

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"kandrai/internal/config"
	"kandrai/internal/errors"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// maxErrorBody bounds how much of a failed upstream reply ends up in logs and errors.
const maxErrorBody = 2048

// OpenAIProvider talks to an OpenAI compatible chat/completions endpoint.
type OpenAIProvider struct {
	client *openai.Client
	cfg    config.LLMConfig
	logger *errors.Logger
}

var _ Provider = (*OpenAIProvider)(nil)

// NewOpenAIProvider builds a provider bound to one credential. httpClient may be shared.
func NewOpenAIProvider(cfg config.LLMConfig, apiKey string, httpClient *http.Client, logger *errors.Logger) *OpenAIProvider {
	if logger == nil {
		logger = errors.NewDiscardLogger()
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	clientConfig.HTTPClient = httpClient

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientConfig),
		cfg:    cfg,
		logger: logger,
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) Close() error { return nil }

// Complete sends exactly one chat/completions request. It never retries.
func (p *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	rid := uuid.New().String()
	start := time.Now()

	tracer := otel.Tracer("kandrai.llm.openai")
	ctx, span := tracer.Start(ctx, "openai.chat_completion")
	defer span.End()
	span.SetAttributes(
		attribute.String("ai.provider", "openai"),
		attribute.String("ai.model", p.cfg.Model),
		attribute.Float64("ai.temperature", float64(p.cfg.Temperature)),
		attribute.Int("ai.max_tokens", p.cfg.MaxTokens),
		attribute.Int("input.user_length", len(req.UserContent)),
	)

	p.logger.Info("llm.openai.request",
		"req_id", rid,
		"model", p.cfg.Model,
		"temp", p.cfg.Temperature,
		"max_tokens", p.cfg.MaxTokens,
		"user_len", len(req.UserContent),
	)

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.cfg.Model,
		Temperature: p.cfg.Temperature,
		MaxTokens:   p.cfg.MaxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.UserContent},
		},
	})
	if err != nil {
		appErr := classifyOpenAIError(err)
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		p.logger.LogError(appErr, "llm.openai.send_error",
			"req_id", rid,
			"elapsed_ms", time.Since(start).Milliseconds())
		return nil, appErr
	}

	if len(resp.Choices) == 0 {
		span.SetAttributes(attribute.Bool("success", false))
		p.logger.Error("llm.openai.no_choices",
			"req_id", rid, "response_id", resp.ID,
			"elapsed_ms", time.Since(start).Milliseconds())
		return nil, errors.NewAIError(errors.ErrCodeAIResponseInvalid, "AI provider returned no choices", nil)
	}

	completion := &Completion{
		Content:  strings.TrimSpace(resp.Choices[0].Message.Content),
		Model:    resp.Model,
		Provider: p.Name(),
	}
	if completion.Model == "" {
		completion.Model = p.cfg.Model
	}
	if resp.Usage.TotalTokens > 0 {
		completion.Usage = &TokenUsage{
			InputTokens:  int64(resp.Usage.PromptTokens),
			OutputTokens: int64(resp.Usage.CompletionTokens),
			TotalTokens:  int64(resp.Usage.TotalTokens),
		}
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", completion.Usage.InputTokens),
			attribute.Int64("ai.tokens.output", completion.Usage.OutputTokens),
			attribute.Int64("ai.tokens.total", completion.Usage.TotalTokens),
		)
	}

	span.SetAttributes(attribute.Bool("success", true))
	p.logger.Info("llm.openai.response",
		"req_id", rid,
		"model", completion.Model,
		"finish_reason", string(resp.Choices[0].FinishReason),
		"content_len", len(completion.Content),
		"elapsed_ms", time.Since(start).Milliseconds())

	return completion, nil
}

// classifyOpenAIError maps a failed CreateChatCompletion call onto the error taxonomy.
// Upstream statuses become AI errors, transport failures network errors, and anything
// else (an undecodable 2xx body) an invalid response.
func classifyOpenAIError(err error) *errors.AppError {
	var apiErr *openai.APIError
	if stderrors.As(err, &apiErr) {
		return upstreamStatusError(apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if stderrors.As(err, &reqErr) {
		return upstreamStatusError(reqErr.HTTPStatusCode,
			fmt.Errorf("openai status %d: %s", reqErr.HTTPStatusCode, truncate(string(reqErr.Body), maxErrorBody)))
	}
	var urlErr *url.Error
	if stderrors.As(err, &urlErr) || stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
		return classifyTransportError(err)
	}
	return errors.NewAIError(errors.ErrCodeAIResponseInvalid, "AI provider returned an unreadable response", err)
}

func upstreamStatusError(status int, cause error) *errors.AppError {
	return errors.NewAIError(errors.ErrCodeAIServiceFailed,
		fmt.Sprintf("AI provider returned status %d", status), cause).
		WithContext("upstream_status", status)
}

// classifyTransportError maps a failed round trip onto the network category.
func classifyTransportError(err error) *errors.AppError {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.NewNetworkError(errors.ErrCodeAITimeout, "AI provider did not answer in time", err)
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return errors.NewNetworkError(errors.ErrCodeAITimeout, "AI provider did not answer in time", err)
	}
	return errors.NewNetworkError(errors.ErrCodeAIServiceFailed, "AI provider unreachable", err)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
