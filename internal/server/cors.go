package server

import (
	"fmt"
	"net/http"
	"regexp"
	"slices"

	"kandrai/internal/config"

	"github.com/rs/cors"
)

// allowedMethods is every method the API could be called with from a browser.
var allowedMethods = []string{
	http.MethodGet,
	http.MethodHead,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodOptions,
}

// originMatcher accepts the configured origins plus anything the pattern fully matches.
type originMatcher struct {
	origins []string
	pattern *regexp.Regexp
}

func newOriginMatcher(cfg config.CORSConfig) (*originMatcher, error) {
	m := &originMatcher{origins: cfg.AllowedOrigins}
	if cfg.AllowedOriginPattern != "" {
		re, err := regexp.Compile(`^(?:` + cfg.AllowedOriginPattern + `)$`)
		if err != nil {
			return nil, fmt.Errorf("invalid CORS origin pattern: %w", err)
		}
		m.pattern = re
	}
	return m, nil
}

func (m *originMatcher) Allowed(origin string) bool {
	if slices.Contains(m.origins, origin) {
		return true
	}
	return m.pattern != nil && m.pattern.MatchString(origin)
}

// newCORS builds the cross-origin policy. rs/cors ignores AllowedOrigins once
// AllowOriginFunc is set, so the matcher covers both the list and the pattern.
func newCORS(cfg config.CORSConfig) (*cors.Cors, error) {
	matcher, err := newOriginMatcher(cfg)
	if err != nil {
		return nil, err
	}

	return cors.New(cors.Options{
		AllowOriginFunc:  matcher.Allowed,
		AllowedMethods:   allowedMethods,
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	}), nil
}
