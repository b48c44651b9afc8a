package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"receipt-bridge/internal/ble"
	"receipt-bridge/internal/config"
	"receipt-bridge/internal/logging"
)

// Device is the printer link. *ble.Client implements it.
type Device interface {
	Connect(address string) error
	Disconnect() error
	IsConnected() bool
	Describe() (*ble.DescribeResult, error)
	Send(target ble.Target, data []byte) error
}

type Server struct {
	cfg     *config.Config
	cfgPath string
	log     *logging.Logger
	client  Device
	cors    *corsConfig
	cfgMu   sync.RWMutex

	now   func() time.Time
	newID func() string
}

func NewServer(cfg *config.Config, cfgPath string, log *logging.Logger) *Server {
	if err := ble.Enable(); err != nil {
		log.Error("ble enable failed: %v", err)
	} else {
		log.Info("ble adapter enabled")
	}
	return newServer(cfg, cfgPath, log, &ble.Client{})
}

func newServer(cfg *config.Config, cfgPath string, log *logging.Logger, dev Device) *Server {
	srv := &Server{
		cfg:     cfg,
		cfgPath: cfgPath,
		log:     log,
		client:  dev,
		now:     time.Now,
		newID:   uuid.NewString,
	}
	srv.cors = newCORSConfig(cfg, log)
	return srv
}

func (s *Server) Run() error {
	cfg := s.configSnapshot()
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	s.log.Info("listening on http://%s", addr)

	return http.ListenAndServe(addr, s.Handler())
}

// Handler returns the full middleware and route stack.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health is intentionally unauthenticated
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"ok": true})
	})

	// Device endpoints
	mux.HandleFunc("/ble/scan", s.withRequestLog(s.requireAuth(s.scan)))
	mux.HandleFunc("/ble/connect", s.withRequestLog(s.requireAuth(s.connect)))
	mux.HandleFunc("/ble/disconnect", s.withRequestLog(s.requireAuth(s.disconnect)))
	mux.HandleFunc("/ble/status", s.withRequestLog(s.requireAuth(s.status)))
	mux.HandleFunc("/ble/describe", s.withRequestLog(s.requireAuth(s.describe)))

	// Print endpoints
	mux.HandleFunc("/print/text", s.withRequestLog(s.requireAuth(s.printText)))
	mux.HandleFunc("/print/raw", s.withRequestLog(s.requireAuth(s.printRaw)))
	mux.HandleFunc("/print/list", s.withRequestLog(s.requireAuth(s.printList)))
	mux.HandleFunc("/print/barcode", s.withRequestLog(s.requireAuth(s.printBarcode)))
	mux.HandleFunc("/print/test", s.withRequestLog(s.requireAuth(s.printTest)))
	mux.HandleFunc("/encode/list", s.withRequestLog(s.requireAuth(s.encodeList)))

	// Config endpoints
	mux.HandleFunc("/config", s.withRequestLog(s.requireAuth(s.configHandler)))

	// CORS settings can be replaced through /config, so resolve them per request.
	withCORS := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		corsMiddleware(s.log, s.currentCORS(), mux).ServeHTTP(w, r)
	})
	return s.accessLog(withCORS)
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Info("http %s %s (%s)", r.Method, r.URL.Path, time.Since(start))
	})
}

func (s *Server) withRequestLog(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.log.Debug("recv %s %s", r.Method, r.URL.Path)
		next(w, r)
	}
}

func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != s.currentAPIKey() {
			s.log.Warn("unauthorized %s %s", r.Method, r.URL.Path)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("content-type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func (s *Server) configHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.getConfig(w, r)
	case http.MethodPost:
		s.setConfig(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) getConfig(w http.ResponseWriter, r *http.Request) {
	cfg := s.configSnapshot()
	writeJSON(w, map[string]any{"ok": true, "config": cfg})
}

func (s *Server) setConfig(w http.ResponseWriter, r *http.Request) {
	var next config.Config
	if err := json.NewDecoder(r.Body).Decode(&next); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	config.ApplyDefaults(&next)
	if err := config.Validate(&next); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := config.Save(s.cfgPath, &next); err != nil {
		s.log.Error("config save error: %v", err)
		http.Error(w, "config save failed", http.StatusInternalServerError)
		return
	}
	s.replaceConfig(&next)
	s.log.Info("config updated")
	writeJSON(w, map[string]any{"ok": true})
}

func (s *Server) currentAPIKey() string {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg.Auth.ApiKey
}

func (s *Server) configSnapshot() config.Config {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return *s.cfg
}

func (s *Server) currentCORS() *corsConfig {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cors
}

func (s *Server) replaceConfig(cfg *config.Config) {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()
	s.cfg = cfg
	s.cors = newCORSConfig(cfg, s.log)
}
