package server

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"kandrai/internal/analysis"
	kandraiErrors "kandrai/internal/errors"
	"kandrai/internal/extract"
	"kandrai/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

// multipartMemory is how much of an upload is buffered in memory before
// spilling to a temporary file.
const multipartMemory = 8 << 20

// extractResponse is the body of a successful POST /extract.
type extractResponse struct {
	Text string `json:"text"`
}

// analyzeHandler answers POST /analyze
func (s *Server) analyzeHandler(w http.ResponseWriter, r *http.Request) {
	logger := s.requestLogger(r)
	om := s.Observability
	ctx, span := om.Tracer("kandrai.api").Start(r.Context(), "api.analyze")
	defer span.End()

	var req analysis.Request
	if err := parseJSONRequest(r, &req); err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String("error.type", "validation"))
		s.writeAppError(w, logger, err)
		return
	}

	outcome, err := s.Analyzer.Analyze(ctx, req)
	metrics := om.GetMetrics()
	if err != nil {
		span.RecordError(err)
		if appErr, ok := kandraiErrors.AsAppError(err); ok {
			span.SetAttributes(attribute.String("error.type", string(appErr.Type)))
		}
		metrics.RecordBusinessMetric(ctx, observability.MetricAnalysisCompleted, false, om,
			attribute.Int("status", kandraiErrors.StatusCode(err)))
		s.writeAppError(w, logger, err)
		return
	}

	if outcome.Fallback {
		metrics.RecordBusinessMetric(ctx, observability.MetricAnalysisFallback, true, om,
			attribute.StringSlice("missing_inputs", outcome.Missing))
	} else {
		metrics.RecordBusinessMetric(ctx, observability.MetricAnalysisCompleted, true, om,
			observability.ProviderAttribute(outcome.Provider))
	}

	span.SetAttributes(
		attribute.Bool("analysis.fallback", outcome.Fallback),
		attribute.String("analysis.model", outcome.Model),
	)
	logger.Info("Analysis completed",
		"fallback", outcome.Fallback,
		"model", outcome.Model,
		"duration_ms", outcome.Duration.Milliseconds())

	writeJSON(w, logger, http.StatusOK, outcome.Result)
}

// extractHandler answers POST /extract with the text of the uploaded "file" part
func (s *Server) extractHandler(w http.ResponseWriter, r *http.Request) {
	logger := s.requestLogger(r)
	om := s.Observability
	ctx, span := om.Tracer("kandrai.api").Start(r.Context(), "api.extract")
	defer span.End()

	filename, data, err := readUpload(r, "file")
	if err != nil {
		span.RecordError(err)
		s.writeAppError(w, logger, err)
		return
	}

	span.SetAttributes(
		attribute.String("upload.filename", filename),
		attribute.Int("upload.size", len(data)),
	)

	metrics := om.GetMetrics()
	metrics.RecordContentSize(ctx, "upload", len(data), om)

	text, err := s.Extractor.Extract(ctx, filename, data)
	format := string(extract.DetectFormat(filename))
	if err != nil {
		span.RecordError(err)
		metrics.RecordBusinessMetric(ctx, observability.MetricTextExtracted, false, om,
			attribute.String("format", format))
		s.writeAppError(w, logger, err)
		return
	}

	metrics.RecordBusinessMetric(ctx, observability.MetricTextExtracted, true, om,
		attribute.String("format", format))
	logger.Info("Text extracted", "filename", filename, "format", format, "text_length", len(text))

	writeJSON(w, logger, http.StatusOK, extractResponse{Text: text})
}

// parseJSONRequest parses the JSON request body into v
func parseJSONRequest(r *http.Request, v any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || mediaType != "application/json" {
			return kandraiErrors.NewValidationError(kandraiErrors.ErrCodeInvalidRequest,
				"Content-Type must be application/json", err)
		}
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return bodyReadError(err)
	}
	defer r.Body.Close()

	if err := json.Unmarshal(body, v); err != nil {
		return kandraiErrors.NewValidationError(kandraiErrors.ErrCodeInvalidRequest,
			fmt.Sprintf("Invalid JSON body: %v", err), err)
	}

	return nil
}

// readUpload returns the name and content of the multipart part called field.
func readUpload(r *http.Request, field string) (string, []byte, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if stderrors.Is(err, http.ErrNotMultipart) || stderrors.Is(err, http.ErrMissingBoundary) {
			return "", nil, kandraiErrors.NewValidationError(kandraiErrors.ErrCodeInvalidRequest,
				"Request must be multipart/form-data with a 'file' field", err)
		}
		return "", nil, bodyReadError(err)
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile(field)
	if err != nil {
		return "", nil, kandraiErrors.NewValidationError(kandraiErrors.ErrCodeInvalidRequest,
			fmt.Sprintf("Missing upload field '%s'", field), err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, bodyReadError(err)
	}
	return strings.TrimSpace(header.Filename), data, nil
}

// bodyReadError classifies a failure to read the request body.
func bodyReadError(err error) error {
	var maxBytesErr *http.MaxBytesError
	if stderrors.As(err, &maxBytesErr) {
		return kandraiErrors.NewValidationError(kandraiErrors.ErrCodeRequestTooLarge,
			fmt.Sprintf("Request body too large (limit is %d bytes)", maxBytesErr.Limit), err)
	}
	return kandraiErrors.NewValidationError(kandraiErrors.ErrCodeInvalidRequest,
		fmt.Sprintf("Failed to read request body: %v", err), err)
}
