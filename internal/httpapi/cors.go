package httpapi

import (
	"net/http"
	"regexp"
	"sort"
	"strings"

	"receipt-bridge/internal/config"
	"receipt-bridge/internal/logging"
)

const (
	corsAllowMethods = "GET,POST,OPTIONS"
	corsAllowHeaders = "content-type,authorization,x-api-key"
	corsMaxAge       = "600"
)

// corsConfig is immutable once built; a config update swaps in a new one.
type corsConfig struct {
	origins  map[string]struct{}
	patterns []*regexp.Regexp
}

func newCORSConfig(cfg *config.Config, log *logging.Logger) *corsConfig {
	c := &corsConfig{origins: make(map[string]struct{})}
	for _, item := range splitList(cfg.CORS.AllowOrigins) {
		if o := normalizeOrigin(item); o != "" {
			c.origins[o] = struct{}{}
		}
	}
	for _, item := range splitList(cfg.CORS.AllowOriginPatterns) {
		re, err := regexp.Compile(globToRegexp(item))
		if err != nil {
			log.Warn("cors origin pattern ignored: %q error=%v", item, err)
			continue
		}
		c.patterns = append(c.patterns, re)
	}

	listed := make([]string, 0, len(c.origins))
	for o := range c.origins {
		listed = append(listed, o)
	}
	sort.Strings(listed)
	log.Info("cors allow origins=%v patterns=%d", listed, len(c.patterns))
	return c
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// globToRegexp anchors patterns containing '*'; others are used as regexps.
func globToRegexp(pattern string) string {
	if !strings.Contains(pattern, "*") {
		return pattern
	}
	return "^" + strings.ReplaceAll(regexp.QuoteMeta(pattern), `\*`, ".*") + "$"
}

func (c *corsConfig) allows(origin string) bool {
	origin = normalizeOrigin(origin)
	if origin == "" {
		return false
	}
	if _, ok := c.origins[origin]; ok {
		return true
	}
	for _, re := range c.patterns {
		if re.MatchString(origin) {
			return true
		}
	}
	return false
}

func normalizeOrigin(origin string) string {
	return strings.TrimSuffix(strings.TrimSpace(origin), "/")
}

// corsMiddleware answers preflights itself so they never reach requireAuth.
func corsMiddleware(log *logging.Logger, cfg *corsConfig, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		w.Header().Set("Access-Control-Allow-Private-Network", "true")

		if origin != "" {
			if cfg.allows(origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			} else {
				log.Debug("cors reject origin %q", origin)
			}
		}

		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", corsAllowMethods)
			w.Header().Set("Access-Control-Allow-Headers", corsAllowHeaders)
			w.Header().Set("Access-Control-Max-Age", corsMaxAge)
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
