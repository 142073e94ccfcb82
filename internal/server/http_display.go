package server

import (
	"context"
	"fmt"
	"strings"
)

// displayServerInfo shows server configuration information
func (s *Server) displayServerInfo() {
	s.displayEndpoints()
	s.displayUpstreamInfo()
	s.displayRequestLimitInfo()
	s.displayCORSInfo()
}

// displayEndpoints shows available API endpoints
func (s *Server) displayEndpoints() {
	fmt.Println("Available endpoints:")
	fmt.Println("  GET  /              - Service banner")
	fmt.Println("  GET  /health        - Health check")
	fmt.Println("  GET  /stats         - Server statistics")
	fmt.Println("  GET  /openapi.json  - Route description")
	fmt.Println("  POST /analyze       - Analyze candidate against job description")
	fmt.Println("  POST /extract       - Extract text from .txt or .pdf upload")
}

// displayUpstreamInfo shows which model answers /analyze
func (s *Server) displayUpstreamInfo() {
	fmt.Printf("LLM provider: %s (model %s)\n", s.LLM.ProviderName(), s.LLM.Model())
	if !s.LLM.CredentialConfigured(context.Background()) {
		fmt.Println("WARNING: no LLM credential configured; /analyze will answer 503 until one is set")
	}
}

// displayRequestLimitInfo shows request size limit configuration
func (s *Server) displayRequestLimitInfo() {
	if s.MaxRequestSize > 0 {
		fmt.Printf("Request size limit: %d bytes (%.1f MB)\n", s.MaxRequestSize, float64(s.MaxRequestSize)/(1024*1024))
	} else {
		fmt.Println("Request size limit: DISABLED")
		fmt.Println("WARNING: No request size limits configured!")
	}
}

// displayCORSInfo shows the cross-origin policy
func (s *Server) displayCORSInfo() {
	cors := s.AppConfig.CORS
	fmt.Printf("CORS origins: %s\n", strings.Join(cors.AllowedOrigins, ", "))
	if cors.AllowedOriginPattern != "" {
		fmt.Printf("CORS origin pattern: %s\n", cors.AllowedOriginPattern)
	}
}
