package server

import (
	"encoding/json"
	"log"
	"net/http"

	kandraiErrors "kandrai/internal/errors"
)

// Values reported by the status endpoints. They identify the deployed build to the
// front-end, which checks marker to confirm it talks to the current API.
const (
	serviceName   = "Kandrai API"
	engineName    = "kandrai"
	engineVersion = "3.1.1"
	engineMarker  = "NEW-3.1.1"
)

type rootResponse struct {
	OK      bool   `json:"ok"`
	Service string `json:"service"`
	Version string `json:"version"`
	Docs    string `json:"docs"`
}

type healthResponse struct {
	OK                   bool   `json:"ok"`
	Engine               string `json:"engine"`
	Marker               string `json:"marker"`
	Provider             string `json:"provider"`
	CredentialConfigured bool   `json:"credential_configured"`
}

// rootHandler answers GET /
func (s *Server) rootHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Logger, http.StatusOK, rootResponse{
		OK:      true,
		Service: serviceName,
		Version: engineVersion,
		Docs:    "/openapi.json",
	})
}

// healthHandler answers GET /health. It never calls the upstream API; a missing
// credential is reported, not treated as unhealthy.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Logger, http.StatusOK, healthResponse{
		OK:                   true,
		Engine:               engineName,
		Marker:               engineMarker,
		Provider:             s.LLM.ProviderName(),
		CredentialConfigured: s.LLM.CredentialConfigured(r.Context()),
	})
}

// statsHandler provides server statistics
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	cors := s.AppConfig.CORS
	response := map[string]any{
		"service": engineName,
		"version": s.Version,
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
		},
		"llm": map[string]any{
			"provider":              s.LLM.ProviderName(),
			"model":                 s.LLM.Model(),
			"credential_configured": s.LLM.CredentialConfigured(r.Context()),
		},
		"circuit_breaker": s.LLM.BreakerStats(),
		"cors": map[string]any{
			"allowed_origins":        cors.AllowedOrigins,
			"allowed_origin_pattern": cors.AllowedOriginPattern,
			"allow_credentials":      cors.AllowCredentials,
		},
	}

	writeJSON(w, s.Logger, http.StatusOK, response)
}

// openAPIHandler serves the route description linked from GET /
func (s *Server) openAPIHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Logger, http.StatusOK, openAPIDocument(s.Version))
}

// writeJSON writes v as the JSON response body
func writeJSON(w http.ResponseWriter, logger *kandraiErrors.Logger, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		logger.LogError(err, "Failed to encode response")
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}

// writeAppError classifies err and writes it as {"error": code, "detail": message}
func (s *Server) writeAppError(w http.ResponseWriter, logger *kandraiErrors.Logger, err error) {
	appErr := kandraiErrors.Classify(err, kandraiErrors.ErrCodeInternal, "")
	status := appErr.HTTPStatus()

	if status >= http.StatusInternalServerError {
		logger.LogError(appErr, "Request failed", "status", status)
	} else {
		logger.Info("Request rejected", "status", status, "error_code", appErr.Code, "detail", appErr.Message)
	}

	writeJSON(w, logger, status, ErrorResponse{
		Error:  appErr.Code,
		Detail: appErr.Message,
	})
}
