package server

import (
	"context"
	"net/http"
	"strings"

	kandraiErrors "kandrai/internal/errors"

	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// Handler returns the full handler chain: tracing, CORS, request ids, routes.
func (s *Server) Handler() (http.Handler, error) {
	corsPolicy, err := newCORS(s.AppConfig.CORS)
	if err != nil {
		return nil, err
	}

	var handler http.Handler = s.setupRoutes()
	handler = requestIDMiddleware(handler)
	handler = corsPolicy.Handler(handler)
	handler = s.Observability.HTTPMiddleware()(handler)
	return handler, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	requestLimitHandler := s.requestSizeLimitMiddleware()

	mux.HandleFunc("GET /{$}", s.rootHandler)
	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /stats", s.statsHandler)
	mux.HandleFunc("GET /openapi.json", s.openAPIHandler)
	mux.HandleFunc("POST /analyze", requestLimitHandler(s.analyzeHandler))
	mux.HandleFunc("POST /extract", requestLimitHandler(s.extractHandler))

	return mux
}

// requestIDMiddleware echoes the caller's X-Request-ID or assigns a new one.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// requestID returns the id assigned by requestIDMiddleware, if any.
func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// requestLogger returns the server logger tagged with the request id.
func (s *Server) requestLogger(r *http.Request) *kandraiErrors.Logger {
	if id := requestID(r.Context()); id != "" {
		return s.Logger.With("request_id", id)
	}
	return s.Logger
}

// requestSizeLimitMiddleware limits the size of incoming requests
func (s *Server) requestSizeLimitMiddleware() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if s.MaxRequestSize > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, s.MaxRequestSize)
			}

			next(w, r)
		}
	}
}
