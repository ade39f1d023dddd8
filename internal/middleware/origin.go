package middleware

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/mapofsmiles/companion/pkg/response"
)

// OriginPolicy decides which browser origins may drive the host.
// Patterns are exact origins or contain a single "*" wildcard,
// e.g. "http://localhost:*".
type OriginPolicy struct {
	patterns []string
	logger   *zap.Logger
}

func NewOriginPolicy(patterns []string, logger *zap.Logger) *OriginPolicy {
	lower := make([]string, 0, len(patterns))
	for _, p := range patterns {
		lower = append(lower, strings.ToLower(p))
	}
	return &OriginPolicy{patterns: lower, logger: logger}
}

// Allowed reports whether origin matches one of the patterns.
func (p *OriginPolicy) Allowed(origin string) bool {
	origin = strings.ToLower(origin)
	for _, pattern := range p.patterns {
		if matchOrigin(pattern, origin) {
			return true
		}
	}
	return false
}

// CheckRequest accepts requests without an Origin header (not sent by a
// browser page) and browser requests from an allowed origin.
func (p *OriginPolicy) CheckRequest(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || p.Allowed(origin)
}

// Guard rejects browser requests from other origins before they reach a handler.
func (p *OriginPolicy) Guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !p.CheckRequest(r) {
			p.logger.Warn("request from disallowed origin",
				zap.String("origin", r.Header.Get("Origin")),
				zap.String("path", r.URL.Path),
			)
			response.Error(w, http.StatusForbidden, "FORBIDDEN_ORIGIN", "origin not allowed")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func matchOrigin(pattern, origin string) bool {
	if pattern == "*" {
		return true
	}
	i := strings.IndexByte(pattern, '*')
	if i < 0 {
		return pattern == origin
	}
	prefix, suffix := pattern[:i], pattern[i+1:]
	return len(origin) >= len(prefix)+len(suffix) &&
		strings.HasPrefix(origin, prefix) &&
		strings.HasSuffix(origin, suffix)
}
