// Package api serves the track analytics endpoints.
package api

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/banshee-data/track.report/internal/failover"
	"github.com/banshee-data/track.report/internal/httputil"
	"github.com/banshee-data/track.report/internal/query"
	"github.com/banshee-data/track.report/internal/track"
	"github.com/banshee-data/track.report/internal/version"
)

// ANSI escape codes for status and path coloring.
const (
	colorCyan      = "\033[36m"
	colorReset     = "\033[0m"
	colorYellow    = "\033[33m"
	colorBoldGreen = "\033[1;32m"
	colorBoldRed   = "\033[1;31m"
)

// ChartRenderer draws the PNG diagnostic chart.
type ChartRenderer interface {
	RenderPNG(ctx context.Context, data *track.SensorsData, events map[string][]track.Event) ([]byte, error)
}

// Deps are the collaborators a Server is built from.
type Deps struct {
	Resolver  *query.Resolver
	Fetcher   track.Fetcher
	Enricher  *track.Enricher
	Forwarder *failover.Forwarder
	Charts    ChartRenderer
	// Debug is passed to the fetcher for the derived endpoints.
	Debug bool
}

type Server struct {
	deps Deps
}

func NewServer(deps Deps) *Server {
	if deps.Resolver == nil {
		deps.Resolver = query.NewResolver(nil, nil, nil)
	}
	if deps.Forwarder == nil {
		deps.Forwarder = failover.New(failover.Config{}, nil)
	}
	return &Server{deps: deps}
}

// Router mounts the API handlers, the metrics endpoint and the health check.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	tracks := s.handle(query.EndpointTracks)
	for _, path := range []string{"/tracks", "/tracks/", "/tracks/{gps_code}", "/tracks/{gps_code}/"} {
		r.Handle(path, tracks).Methods(http.MethodGet)
	}
	r.Handle("/length", s.handle(query.EndpointLength)).Methods(http.MethodGet)
	r.Handle("/consumption", s.handle(query.EndpointConsumption)).Methods(http.MethodGet)
	r.Handle("/info", s.handle(query.EndpointInfo)).Methods(http.MethodGet)

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	r.Use(metricsMiddleware)
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		httputil.MethodNotAllowed(w)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSONOK(w, map[string]interface{}{
		"status":  "ok",
		"version": version.Current(),
	})
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

// LoggingMiddleware logs method, path, query, status, and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		elapsed := time.Since(start)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(elapsed.Nanoseconds())/1e6,
		)
	})
}
