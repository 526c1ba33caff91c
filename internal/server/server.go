// Package server exposes a Cleaner over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/jmylchreest/plink/internal/logger"
	"github.com/jmylchreest/plink/internal/version"
	"github.com/jmylchreest/plink/pkg/cleaner"
)

// URLCleaner is the part of *cleaner.Cleaner the server needs.
type URLCleaner interface {
	Clean(rawURL string) (*cleaner.Result, error)
	Providers() []string
}

// Config configures the HTTP server.
type Config struct {
	Addr string

	// RateLimit is the sustained requests per second allowed per client on
	// the cleaning API; Burst is the bucket size. A zero RateLimit disables
	// limiting.
	RateLimit rate.Limit
	Burst     int

	// MaxURLs bounds the batch size of POST /v1/clean.
	MaxURLs int

	// MaxBodyBytes bounds the request body of POST /v1/clean.
	MaxBodyBytes int64

	ShutdownTimeout time.Duration
}

// DefaultConfig returns the configuration used by `plink serve`.
func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		RateLimit:       20,
		Burst:           40,
		MaxURLs:         1000,
		MaxBodyBytes:    1 << 20,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Server serves the cleaning API.
type Server struct {
	cleaner URLCleaner
	config  Config
	limiter *clientLimiter
	handler http.Handler
}

// New creates a Server. Zero fields of cfg take their DefaultConfig value.
func New(c URLCleaner, cfg Config) *Server {
	def := DefaultConfig()
	if cfg.Addr == "" {
		cfg.Addr = def.Addr
	}
	if cfg.MaxURLs <= 0 {
		cfg.MaxURLs = def.MaxURLs
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = def.MaxBodyBytes
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = def.ShutdownTimeout
	}

	s := &Server{cleaner: c, config: cfg}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = newClientLimiter(cfg.RateLimit, burst)
	}

	ProvidersLoaded.Set(float64(len(c.Providers())))
	BuildInfo.WithLabelValues(version.String(), version.Get().Commit).Set(1)

	mux := http.NewServeMux()
	s.registerHandlers(mux)
	s.handler = mux
	return s
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) registerHandlers(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", instrument("health", s.handleHealth))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /v1/clean", instrument("clean", s.limit("clean", s.handleCleanOne)))
	mux.HandleFunc("POST /v1/clean", instrument("clean_batch", s.limit("clean_batch", s.handleCleanBatch)))
}

func (s *Server) limit(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	if s.limiter == nil {
		return next
	}
	return s.limiter.middleware(endpoint, next)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.config.Addr,
		Handler:      s.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.InfoContext(ctx, "http server starting", "addr", s.config.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}

type healthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Providers int    `json:"providers"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Version:   version.String(),
		Providers: len(s.cleaner.Providers()),
	})
}

// batchRequest is the body of POST /v1/clean.
type batchRequest struct {
	URLs []string `json:"urls"`
}

// batchItem is one entry of a batch response: either a result or an error.
type batchItem struct {
	Input  string          `json:"input"`
	Result *cleaner.Result `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

type batchResponse struct {
	Results []batchItem `json:"results"`
	Failed  int         `json:"failed"`
}

func (s *Server) handleCleanOne(w http.ResponseWriter, r *http.Request) {
	input := r.URL.Query().Get("url")
	if input == "" {
		writeError(w, "clean", http.StatusBadRequest, "missing url query parameter")
		return
	}

	res, err := s.cleaner.Clean(input)
	recordResult(res, err)
	if err != nil {
		writeError(w, "clean", http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCleanBatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)

	var req batchRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, "clean_batch", http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, "clean_batch", http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.URLs) == 0 {
		writeError(w, "clean_batch", http.StatusBadRequest, "urls must not be empty")
		return
	}
	if len(req.URLs) > s.config.MaxURLs {
		writeError(w, "clean_batch", http.StatusRequestEntityTooLarge,
			"too many urls: "+strconv.Itoa(len(req.URLs))+" > "+strconv.Itoa(s.config.MaxURLs))
		return
	}

	resp := batchResponse{Results: make([]batchItem, 0, len(req.URLs))}
	for _, input := range req.URLs {
		res, err := s.cleaner.Clean(input)
		recordResult(res, err)
		item := batchItem{Input: input, Result: res}
		if err != nil {
			item.Error = err.Error()
			resp.Failed++
		}
		resp.Results = append(resp.Results, item)
	}
	writeJSON(w, http.StatusOK, resp)
}

// statusRecorder captures the status code for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func instrument(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		HTTPRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
		HTTPRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(rec.status)).Inc()
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		logger.Warn("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, endpoint string, status int, msg string) {
	logger.Debug("request failed", "endpoint", endpoint, "status", status, "error", msg)
	writeJSON(w, status, map[string]string{"error": msg})
}
