package llm

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"kandrai/internal/config"
	"kandrai/internal/errors"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

// GeminiProvider implements Provider for Google Gemini
type GeminiProvider struct {
	client *genai.Client
	cfg    config.LLMConfig
	logger *errors.Logger
}

var _ Provider = (*GeminiProvider)(nil)

// NewGeminiProvider creates a Gemini client bound to one credential
func NewGeminiProvider(ctx context.Context, cfg config.LLMConfig, apiKey string, httpClient *http.Client, logger *errors.Logger) (*GeminiProvider, error) {
	if logger == nil {
		logger = errors.NewDiscardLogger()
	}

	clientConfig := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, errors.NewAIError(errors.ErrCodeAIServiceFailed,
			"Failed to create Gemini client", err)
	}

	return &GeminiProvider{
		client: client,
		cfg:    cfg,
		logger: logger,
	}, nil
}

func (g *GeminiProvider) Name() string { return "gemini" }

// Close implements Provider. The genai client holds no resources in single-shot usage.
func (g *GeminiProvider) Close() error { return nil }

// Complete implements Provider
func (g *GeminiProvider) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	rid := uuid.New().String()
	start := time.Now()

	tracer := otel.Tracer("kandrai.llm.gemini")
	ctx, span := tracer.Start(ctx, "gemini.generate_content")
	defer span.End()
	span.SetAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", g.cfg.Model),
		attribute.Float64("ai.temperature", float64(g.cfg.Temperature)),
		attribute.Int("input.user_length", len(req.UserContent)),
	)

	temperature := g.cfg.Temperature
	genaiConfig := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      &temperature,
		MaxOutputTokens:  int32(g.cfg.MaxTokens),
	}
	if req.SystemPrompt != "" {
		genaiConfig.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}

	g.logger.Info("llm.gemini.request",
		"req_id", rid,
		"model", g.cfg.Model,
		"temp", g.cfg.Temperature,
		"max_tokens", g.cfg.MaxTokens,
		"user_len", len(req.UserContent))

	result, err := g.client.Models.GenerateContent(ctx, g.cfg.Model, genai.Text(req.UserContent), genaiConfig)
	if err != nil {
		appErr := classifyGeminiError(err)
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		g.logger.LogError(appErr, "llm.gemini.send_error",
			"req_id", rid,
			"elapsed_ms", time.Since(start).Milliseconds())
		return nil, appErr
	}

	completion := &Completion{
		Content:  strings.TrimSpace(result.Text()),
		Model:    result.ModelVersion,
		Provider: g.Name(),
		Usage:    extractTokenUsage(result),
	}
	if completion.Model == "" {
		completion.Model = g.cfg.Model
	}
	if completion.Usage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", completion.Usage.InputTokens),
			attribute.Int64("ai.tokens.output", completion.Usage.OutputTokens),
			attribute.Int64("ai.tokens.total", completion.Usage.TotalTokens),
		)
	}

	span.SetAttributes(attribute.Bool("success", true))
	g.logger.Info("llm.gemini.response",
		"req_id", rid,
		"model", completion.Model,
		"content_len", len(completion.Content),
		"elapsed_ms", time.Since(start).Milliseconds())

	return completion, nil
}

// classifyGeminiError maps a failed GenerateContent call onto the error taxonomy
func classifyGeminiError(err error) *errors.AppError {
	var apiErr *googleapi.Error
	if stderrors.As(err, &apiErr) {
		return errors.NewAIError(errors.ErrCodeAIServiceFailed,
			fmt.Sprintf("AI provider returned status %d", apiErr.Code), err).
			WithContext("upstream_status", apiErr.Code)
	}
	var genaiErr genai.APIError
	if stderrors.As(err, &genaiErr) {
		return errors.NewAIError(errors.ErrCodeAIServiceFailed,
			fmt.Sprintf("AI provider returned status %d", genaiErr.Code), err).
			WithContext("upstream_status", genaiErr.Code)
	}
	if appErr := classifyTransportError(err); appErr.Code == errors.ErrCodeAITimeout {
		return appErr
	}
	return errors.NewAIError(errors.ErrCodeAIServiceFailed, "Failed to generate content", err)
}

// extractTokenUsage extracts token usage information from Gemini API response
func extractTokenUsage(result *genai.GenerateContentResponse) *TokenUsage {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}

	usage := result.UsageMetadata
	return &TokenUsage{
		InputTokens:  int64(usage.PromptTokenCount),
		OutputTokens: int64(usage.CandidatesTokenCount),
		TotalTokens:  int64(usage.TotalTokenCount),
	}
}
