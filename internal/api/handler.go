// Package api serves the daemon's operational HTTP endpoints.
package api

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/snoozeweb/snooze-syslog/internal/config"
	"github.com/snoozeweb/snooze-syslog/internal/metrics"
)

// readyThreshold is the raw queue utilization above which /readyz fails.
const readyThreshold = 0.8

// Probe reports the daemon's readiness.
type Probe interface {
	Ready() bool
	RawUtilization() float64
}

// Reloader re-reads the configuration file.
type Reloader interface {
	Reload() (*config.Config, error)
}

// Handler holds all HTTP handler dependencies.
type Handler struct {
	probe    Probe
	reloader Reloader
	log      *slog.Logger
	mux      *http.ServeMux
}

// New creates an HTTP handler and registers all routes. reloader may be nil,
// in which case POST /v1/reload is not served.
func New(probe Probe, reloader Reloader, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{probe: probe, reloader: reloader, log: logger, mux: http.NewServeMux()}

	h.mux.HandleFunc("GET /healthz", h.healthz)
	h.mux.HandleFunc("GET /readyz", h.readyz)
	h.mux.Handle("GET /metrics", promhttp.Handler())
	if reloader != nil {
		h.mux.HandleFunc("POST /v1/reload", h.reload)
	}

	return loggingMiddleware(logger, h.mux)
}

// GET /healthz: always 200 (liveness probe).
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /readyz: 503 until the listeners are bound or while the raw queue is >80% full.
func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	util := h.probe.RawUtilization()
	metrics.QueueUtilization.Set(util)
	switch {
	case !h.probe.Ready():
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":            "starting",
			"queue_utilization": util,
		})
	case util > readyThreshold:
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":            "overloaded",
			"queue_utilization": util,
		})
	default:
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":            "ready",
			"queue_utilization": util,
		})
	}
}

// POST /v1/reload: re-read the config file; debug level and drop rules are applied.
func (h *Handler) reload(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.reloader.Reload()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reloaded":   true,
		"debug":      cfg.Debug,
		"drop_rules": len(cfg.Drop),
	})
}
