package server

import (
	"context"
	"time"

	"kandrai/internal/analysis"
	"kandrai/internal/config"
	kandraiErrors "kandrai/internal/errors"
	"kandrai/internal/observability"
)

// ErrorResponse represents an error response. Detail is what the front-end shows.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// Analyzer runs one analysis.
type Analyzer interface {
	Analyze(ctx context.Context, req analysis.Request) (*analysis.Outcome, error)
}

// TextExtractor turns an uploaded file into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, filename string, data []byte) (string, error)
}

// LLMStatus reports on the upstream completion backend without calling it.
type LLMStatus interface {
	ProviderName() string
	Model() string
	CredentialConfigured(ctx context.Context) bool
	BreakerStats() map[string]any
}

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	// Full application configuration
	AppConfig *config.Config

	// Timeout configurations
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Request size limit, 0 disables it
	MaxRequestSize int64

	Analyzer      Analyzer
	Extractor     TextExtractor
	LLM           LLMStatus
	Observability *observability.ObservabilityManager

	Logger *kandraiErrors.Logger
}

// Dependencies are the collaborators the handlers call into.
type Dependencies struct {
	Analyzer      Analyzer
	Extractor     TextExtractor
	LLM           LLMStatus
	Observability *observability.ObservabilityManager
}

// NewServer creates a new Server instance from the application configuration
func NewServer(appCfg *config.Config, version string, deps Dependencies, logger *kandraiErrors.Logger) *Server {
	if logger == nil {
		logger = kandraiErrors.NewDiscardLogger()
	}

	return &Server{
		Host:           appCfg.Server.Host,
		Port:           appCfg.Server.Port,
		Version:        version,
		AppConfig:      appCfg,
		ReadTimeout:    appCfg.Server.ReadTimeout,
		WriteTimeout:   appCfg.Server.WriteTimeout,
		IdleTimeout:    appCfg.Server.IdleTimeout,
		MaxRequestSize: appCfg.Server.MaxRequestSize,
		Analyzer:       deps.Analyzer,
		Extractor:      deps.Extractor,
		LLM:            deps.LLM,
		Observability:  deps.Observability,
		Logger:         logger,
	}
}
