package analysis

import (
	"context"
	"time"

	"kandrai/internal/errors"
	"kandrai/internal/llm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// Outcome is one finished analysis.
type Outcome struct {
	Result   Result
	Fallback bool
	Missing  []string
	Model    string
	Provider string
	Usage    *llm.TokenUsage
	Duration time.Duration
}

// Service runs analyses against a completer.
type Service struct {
	completer      llm.Completer
	validateSchema bool
	logger         *errors.Logger
}

// NewService creates an analysis service. validateSchema turns on warn-only shape checks.
func NewService(completer llm.Completer, validateSchema bool, logger *errors.Logger) *Service {
	if logger == nil {
		logger = errors.NewDiscardLogger()
	}
	return &Service{
		completer:      completer,
		validateSchema: validateSchema,
		logger:         logger,
	}
}

// Analyze normalizes and validates req, then either builds the fallback for blank
// input or makes exactly one completion call.
func (s *Service) Analyze(ctx context.Context, req Request) (*Outcome, error) {
	start := time.Now()
	tracer := otel.Tracer("kandrai.analysis")
	ctx, span := tracer.Start(ctx, "analysis.analyze")
	defer span.End()

	req.Normalize()
	if err := req.Validate(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("analysis.role", string(req.Role)),
		attribute.Int("input.jd_length", len(req.JobDescription)),
		attribute.Int("input.candidate_length", len(req.CandidateText)),
		attribute.Bool("input.has_doubt", req.RecruiterDoubt != ""),
	)

	if missing := req.MissingInputs(); len(missing) > 0 {
		span.SetAttributes(attribute.Bool("analysis.fallback", true))
		s.logger.Info("analysis.fallback", "missing_inputs", missing)

		result, err := BuildFallback(missing).Result()
		if err != nil {
			return nil, errors.NewInternalError(errors.ErrCodeInternal, "failed to build fallback report", err)
		}
		return &Outcome{
			Result:   result,
			Fallback: true,
			Missing:  missing,
			Duration: time.Since(start),
		}, nil
	}

	completion, err := s.completer.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: SystemPrompt,
		UserContent:  BuildUserContent(req),
	})
	if err != nil {
		span.RecordError(err)
		if appErr, ok := errors.AsAppError(err); ok {
			return nil, appErr
		}
		return nil, errors.NewAIError(errors.ErrCodeAIServiceFailed, "AI provider call failed", err)
	}

	result, err := ParseReply(completion.Content)
	if err != nil {
		span.RecordError(err)
		s.logger.LogError(err, "analysis.reply_invalid",
			"content_len", len(completion.Content),
			"model", completion.Model)
		return nil, err
	}

	if s.validateSchema {
		if err := CheckShape([]byte(completion.Content)); err != nil {
			s.logger.Warn("analysis.schema_mismatch", "error", err.Error(), "model", completion.Model)
			span.SetAttributes(attribute.Bool("analysis.schema_mismatch", true))
		}
	}

	span.SetAttributes(attribute.Bool("analysis.fallback", false))
	return &Outcome{
		Result:   result,
		Model:    completion.Model,
		Provider: completion.Provider,
		Usage:    completion.Usage,
		Duration: time.Since(start),
	}, nil
}
