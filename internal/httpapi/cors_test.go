package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"receipt-bridge/internal/config"
	"receipt-bridge/internal/logging"
)

func corsHandler(t *testing.T, origins, patterns string) http.Handler {
	t.Helper()
	cfg := config.Config{}
	config.ApplyDefaults(&cfg)
	cfg.CORS.AllowOrigins = origins
	cfg.CORS.AllowOriginPatterns = patterns
	log := logging.Nop()
	return corsMiddleware(log, newCORSConfig(&cfg, log), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestCORSAllowOrigin(t *testing.T) {
	tests := []struct {
		name     string
		origins  string
		patterns string
		origin   string
		want     string
	}{
		{name: "explicit", origins: "https://pos.example", origin: "https://pos.example", want: "https://pos.example"},
		{name: "trailing slash in config", origins: "https://pos.example/", origin: "https://pos.example", want: "https://pos.example"},
		{name: "one of many", origins: "https://a.example, https://b.example", origin: "https://b.example", want: "https://b.example"},
		{name: "pattern", patterns: "https://pos-pr-*.example.com", origin: "https://pos-pr-131.example.com", want: "https://pos-pr-131.example.com"},
		{name: "pattern is anchored", patterns: "https://pos-pr-*.example.com", origin: "https://evil.com/https://pos-pr-1.example.com"},
		{name: "not allowed", origins: "https://pos.example", origin: "https://other.example"},
		{name: "bad pattern ignored", patterns: "([", origin: "https://pos.example"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := corsHandler(t, tt.origins, tt.patterns)
			req := httptest.NewRequest(http.MethodGet, "http://127.0.0.1/health", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.want, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	h := corsHandler(t, "https://pos.example", "")
	req := httptest.NewRequest(http.MethodOptions, "http://127.0.0.1/print/list", nil)
	req.Header.Set("Origin", "https://pos.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Methods"))
	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Private-Network"))
}

func TestCORSOptionsBypassAuth(t *testing.T) {
	cfg := config.Config{}
	config.ApplyDefaults(&cfg)
	cfg.Auth.ApiKey = "test-key"
	s := newServer(&cfg, "", logging.Nop(), &fakeDevice{})

	req := httptest.NewRequest(http.MethodOptions, "http://127.0.0.1/print/text", nil)
	req.Header.Set("Origin", cfg.CORS.AllowOrigins)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}
