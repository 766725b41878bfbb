// Package api exposes the fire simulation service over HTTP: simulation
// lifecycle, snapshot streaming, scenario storage and debug charts.
package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pyrelab/firespread/internal/config"
	"github.com/pyrelab/firespread/internal/httputil"
	"github.com/pyrelab/firespread/internal/manager"
	"github.com/pyrelab/firespread/internal/monitoring"
	"github.com/pyrelab/firespread/internal/scenario"
	"github.com/pyrelab/firespread/internal/version"
)

// ANSI escape codes for request log coloring
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	mgr       *manager.Manager
	scenarios *scenario.Store
	cfg       *config.SimConfig
}

// NewServer creates the API server. The scenario store may be nil when the
// service runs without persistence; the scenario routes then return 404.
func NewServer(mgr *manager.Manager, scenarios *scenario.Store, cfg *config.SimConfig) *Server {
	return &Server{
		mgr:       mgr,
		scenarios: scenarios,
		cfg:       cfg,
	}
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/config", s.handleConfig)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/simulations", s.handleSimulations)
	mux.HandleFunc("/api/simulations/", s.handleSimulationSubroutes)
	mux.HandleFunc("/api/scenarios", s.handleScenarios)
	mux.HandleFunc("/api/scenarios/", s.handleScenarioSubroutes)
	return mux
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, status, and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, s.cfg)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	stats := struct {
		Simulations manager.Stats `json:"simulations"`
		Scenarios   int           `json:"scenarios"`
	}{Simulations: s.mgr.Stats()}

	if s.scenarios != nil {
		n, err := s.scenarios.Count()
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		stats.Scenarios = n
	}
	httputil.WriteJSONOK(w, stats)
}

// splitSubroute splits "{id}" or "{id}/{action}" trailing path segments.
func splitSubroute(path, prefix string) (id, action string, ok bool) {
	rest := strings.TrimPrefix(path, prefix)
	if rest == path || rest == "" {
		return "", "", false
	}
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	switch len(parts) {
	case 1:
		return parts[0], "", parts[0] != ""
	case 2:
		return parts[0], parts[1], parts[0] != "" && parts[1] != ""
	default:
		return "", "", false
	}
}
