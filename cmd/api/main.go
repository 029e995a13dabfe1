package main

import (
	"bufio"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"fairshare/internal/api"
	"fairshare/internal/metrics"
)

func main() {
	_ = godotenv.Load()

	srvDeps, err := api.NewServer()
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}
	metrics.RegisterDefault()

	mux := http.NewServeMux()

	// Datasets
	mux.HandleFunc("/v1/datasets", srvDeps.DatasetsHandler)
	mux.HandleFunc("/v1/datasets/import", srvDeps.ImportHandler)
	mux.HandleFunc("/v1/datasets/", srvDeps.DatasetByIDHandler)

	// Allocation
	mux.HandleFunc("/v1/allocate", srvDeps.AllocateHandler)
	mux.HandleFunc("/v1/runs/", srvDeps.RunByIDHandler) // includes /report, /events/stream

	// WebSocket run events
	mux.HandleFunc("/v1/ws", srvDeps.EventsWSHandler)

	// Health / debug / metrics
	mux.HandleFunc("/healthz", srvDeps.HealthHandler)
	mux.HandleFunc("/readyz", srvDeps.ReadyHandler)
	mux.HandleFunc("/debugz", srvDeps.DebugJSON)
	mux.HandleFunc("/openapi.yaml", srvDeps.OpenAPIHandler)
	mux.HandleFunc("/docs", srvDeps.DocsHandler)
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	addr := ":8080"
	if v := os.Getenv("PORT"); v != "" {
		addr = ":" + v
	}

	handler := logMiddleware(metricsMiddleware(rateLimitMiddleware(mux)))
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Printf("API listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		dur := time.Since(start)
		log.Printf("%s %s %s %v", r.RemoteAddr, r.Method, r.URL.Path, dur)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Flush() {
	if f, ok := rec.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack keeps websocket upgrades working through the metrics wrapper.
func (rec *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hj, ok := rec.ResponseWriter.(http.Hijacker); ok {
		return hj.Hijack()
	}
	return nil, nil, errors.New("response writer does not support hijacking")
}

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		status := strconv.Itoa(rec.status)
		path := metricRoute(r.URL.Path)
		metrics.HTTPRequests.WithLabelValues(r.Method, path, status).Inc()
		metrics.HTTPDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
	})
}

// metricRoute collapses IDs in request paths to route patterns so label
// cardinality stays bounded.
func metricRoute(path string) string {
	switch {
	case path == "/v1/datasets" || path == "/v1/datasets/import":
		return path
	case strings.HasPrefix(path, "/v1/datasets/"):
		return "/v1/datasets/{id}"
	case strings.HasPrefix(path, "/v1/runs/"):
		rest := strings.TrimPrefix(path, "/v1/runs/")
		switch {
		case strings.HasSuffix(rest, "/events/stream"):
			return "/v1/runs/{id}/events/stream"
		case strings.HasSuffix(rest, "/report"):
			return "/v1/runs/{id}/report"
		default:
			return "/v1/runs/{id}"
		}
	}
	switch path {
	case "/v1/allocate", "/v1/ws", "/healthz", "/readyz", "/debugz", "/openapi.yaml", "/docs", "/metrics":
		return path
	}
	return "other"
}

func rateLimitMiddleware(next http.Handler) http.Handler {
	rps := 50.0
	if v, err := strconv.ParseFloat(os.Getenv("RATE_RPS"), 64); err == nil && v > 0 {
		rps = v
	}
	burst := 100
	if v, err := strconv.Atoi(os.Getenv("RATE_BURST")); err == nil && v > 0 {
		burst = v
	}
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
