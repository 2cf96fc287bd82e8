package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"time"

	"git.home.luguber.info/inful/regsync/internal/cache"
	"git.home.luguber.info/inful/regsync/internal/config"
	"git.home.luguber.info/inful/regsync/internal/foundation/errors"
	"git.home.luguber.info/inful/regsync/internal/logfields"
	"git.home.luguber.info/inful/regsync/internal/metrics"
	"git.home.luguber.info/inful/regsync/internal/server/middleware"
	"git.home.luguber.info/inful/regsync/internal/version"
)

// HTTPServer is the single admin listener: health, status, metrics, and the
// small operations API.
type HTTPServer struct {
	cfg     *config.Config
	daemon  *Daemon
	server  *http.Server
	adapter *errors.HTTPErrorAdapter
	addr    string
}

// NewHTTPServer creates the admin server for a daemon. Configs built in
// code may omit the monitoring section; config.Load always fills it.
func NewHTTPServer(cfg *config.Config, d *Daemon) *HTTPServer {
	if cfg.Monitoring == nil {
		cfg.Monitoring = &config.MonitoringConfig{
			AdminPort: config.DefaultAdminPort,
			Metrics:   config.MonitoringMetrics{Path: config.DefaultMetricsPath},
			Health:    config.MonitoringHealth{Path: config.DefaultHealthPath},
		}
	}
	return &HTTPServer{
		cfg:     cfg,
		daemon:  d,
		adapter: errors.NewHTTPErrorAdapter(nil),
	}
}

// Start binds and serves. The listener is pre-bound so a taken port fails
// here instead of asynchronously inside Serve.
func (s *HTTPServer) Start(ctx context.Context) error {
	mux := http.NewServeMux()

	healthPath := s.cfg.Monitoring.Health.Path
	if healthPath == "" {
		healthPath = config.DefaultHealthPath
	}
	mux.HandleFunc(healthPath, s.daemon.handleHealth)
	if healthPath != "/healthz" {
		mux.HandleFunc("/healthz", s.daemon.handleHealth) // Kubernetes-style alias
	}
	mux.HandleFunc("/health/detailed", s.daemon.handleHealthDetailed)

	mux.HandleFunc("/status", s.handleStatus)

	if s.cfg.Monitoring.Metrics.Enabled && s.daemon.promRegistry() != nil {
		metricsPath := s.cfg.Monitoring.Metrics.Path
		if metricsPath == "" {
			metricsPath = config.DefaultMetricsPath
		}
		// Resolve the registry per request; a config reload swaps it.
		mux.HandleFunc(metricsPath, func(w http.ResponseWriter, r *http.Request) {
			metrics.HTTPHandler(s.daemon.promRegistry()).ServeHTTP(w, r)
		})
	}

	mux.HandleFunc("/api/check/trigger", s.handleTriggerCheck)
	mux.HandleFunc("/api/operations", s.handleOperations)
	mux.HandleFunc("/api/operations/", s.handleOperationLookup)

	addr := fmt.Sprintf(":%d", s.cfg.Monitoring.AdminPort)
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind admin listener on %s: %w", addr, err)
	}

	chain := middleware.Chain(slog.Default(), s.adapter)
	s.server = &http.Server{
		Handler:      chain(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("Admin server error", logfields.Error(err))
		}
	}()

	s.addr = ln.Addr().String()
	slog.Info("Admin server listening", slog.String("addr", s.addr))
	return nil
}

// Addr returns the bound listener address. Empty before Start.
func (s *HTTPServer) Addr() string {
	return s.addr
}

// Stop gracefully shuts the server down.
func (s *HTTPServer) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

// StatusResponse is the /status payload.
type StatusResponse struct {
	Status       Status           `json:"status"`
	Uptime       string           `json:"uptime"`
	Version      string           `json:"version"`
	CacheBackend string           `json:"cache_backend"`
	Agent        registrySnapshot `json:"agent"`
}

// registrySnapshot embeds the agent snapshot without forcing the admin API
// types onto the registry package.
type registrySnapshot struct {
	State       string    `json:"state"`
	Operations  int       `json:"operations"`
	Checks      int64     `json:"checks"`
	LastSuccess time.Time `json:"last_success,omitzero"`
	ETagHeld    bool      `json:"etag_held"`
	PollInterval string   `json:"poll_interval"`
}

func (s *HTTPServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.daemon.Agent().Snapshot()
	resp := StatusResponse{
		Status:       s.daemon.GetStatus(),
		Uptime:       time.Since(s.daemon.GetStartTime()).String(),
		Version:      version.Version,
		CacheBackend: string(s.daemon.GetConfig().Cache.Backend),
		Agent: registrySnapshot{
			State:        string(snap.State),
			Operations:   snap.Operations,
			Checks:       snap.Checks,
			LastSuccess:  snap.LastSuccess,
			ETagHeld:     snap.ETagHeld,
			PollInterval: snap.PollInterval,
		},
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleTriggerCheck runs a manual check. It coalesces with any in-flight
// check, so hammering this endpoint cannot multiply registry traffic.
func (s *HTTPServer) handleTriggerCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "POST required"})
		return
	}

	changed, err := s.daemon.Agent().CheckForUpdate(r.Context())
	if err != nil {
		status := s.adapter.StatusCodeFor(err)
		writeJSON(w, status, map[string]string{
			"result": string(metrics.CheckError),
			"error":  err.Error(),
		})
		return
	}

	result := metrics.CheckUnchanged
	if changed {
		result = metrics.CheckApplied
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": string(result)})
}

// handleOperations lists the known signatures from the last applied manifest.
func (s *HTTPServer) handleOperations(w http.ResponseWriter, r *http.Request) {
	sigs := s.daemon.Agent().KnownSignatures()
	sort.Strings(sigs)
	writeJSON(w, http.StatusOK, map[string]any{
		"count":      len(sigs),
		"signatures": sigs,
	})
}

// handleOperationLookup fetches one operation document from the cache.
func (s *HTTPServer) handleOperationLookup(w http.ResponseWriter, r *http.Request) {
	sig := r.URL.Path[len("/api/operations/"):]
	if sig == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "signature required"})
		return
	}

	agent := s.daemon.Agent()
	doc, err := s.daemon.cacheStore().Get(r.Context(), agent.CacheKey(sig))
	if err != nil {
		if cache.IsNotFound(err) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "operation not found"})
			return
		}
		s.adapter.WriteErrorResponse(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"signature": sig,
		"document":  doc,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
