// Package main is the HTTP entry point of the token feature pipeline: it
// builds a feature record on demand for the token id posted to /features.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/yourorg/token-features/internal/app"
	"github.com/yourorg/token-features/internal/config"
	"github.com/yourorg/token-features/internal/fetch"
	"github.com/yourorg/token-features/internal/logging"
	"github.com/yourorg/token-features/internal/model"
	"github.com/yourorg/token-features/internal/otel"
	"github.com/yourorg/token-features/internal/sink"
	"github.com/yourorg/token-features/internal/validation"
)

const version = "1.0.0"

// startTime records when the service was initialized for uptime reporting
var startTime = time.Now()

// ServerConfig holds the configuration for the HTTP server
type ServerConfig struct {
	// HTTP port to listen on
	Port string

	// Per-request deadline; 0 leaves the request context alone
	Timeout time.Duration

	// Inbound rate limit; 0 disables it
	RateLimitRPS   float64
	RateLimitBurst int

	// Whether to expose Prometheus metrics
	EnableMetrics bool

	// Sinks is a display name of the configured outputs
	Sinks string
}

// Processor turns a token id into a persisted feature record
type Processor interface {
	Process(ctx context.Context, tokenID string) (model.FeatureRecord, error)
}

// Server serves feature records over HTTP
type Server struct {
	config    ServerConfig
	processor Processor
	server    *http.Server
	registry  *prometheus.Registry
	metrics   *serverMetrics
	rateLimit *rate.Limiter
}

// serverMetrics holds Prometheus metrics for the server
type serverMetrics struct {
	requestCounter  *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	volatility      prometheus.Histogram
}

// registerMetrics sets up Prometheus metrics collection on reg
func registerMetrics(reg prometheus.Registerer) *serverMetrics {
	m := &serverMetrics{
		requestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "token_features_requests_total",
				Help: "Total number of feature requests processed",
			},
			[]string{"status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "token_features_request_duration_seconds",
				Help:    "Request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"status"},
		),
		volatility: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "token_features_volatility_score",
				Help:    "Volatility scores of served records",
				Buckets: prometheus.LinearBuckets(10, 10, 10),
			},
		),
	}

	reg.MustRegister(
		m.requestCounter,
		m.requestDuration,
		m.volatility,
	)
	return m
}

func main() {
	cfg, err := config.LoadFromFile(config.GetEnvOrDefault("ENV_FILE", ".env"))
	if err != nil {
		logrus.Fatalf("Configuration error: %v", err)
	}
	logging.Setup(cfg.LogFormat, cfg.LogLevel)
	logrus.Info("Logging configured")

	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}

	shutdown := otel.InitTracer(cfg)
	defer shutdown()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	pipeline, err := app.New(context.Background(), cfg, registry)
	if err != nil {
		logrus.Fatalf("Failed to initialize pipeline: %v", err)
	}
	defer pipeline.Close()

	server := NewServer(loadConfig(cfg, pipeline.Sinks.Name()), pipeline.Aggregator, registry)
	server.Start()
}

// loadConfig derives the server settings from the application config
func loadConfig(cfg config.Config, sinks string) ServerConfig {
	return ServerConfig{
		Port:           cfg.Port,
		Timeout:        cfg.RequestTimeout,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		EnableMetrics:  cfg.EnableMetrics,
		Sinks:          sinks,
	}
}

// NewServer creates a server around processor. Metrics are registered on
// registry when enabled.
func NewServer(config ServerConfig, processor Processor, registry *prometheus.Registry) *Server {
	s := &Server{
		config:    config,
		processor: processor,
		registry:  registry,
	}

	if config.EnableMetrics && registry != nil {
		s.metrics = registerMetrics(registry)
	}

	if config.RateLimitRPS > 0 {
		s.rateLimit = rate.NewLimiter(rate.Limit(config.RateLimitRPS), config.RateLimitBurst)
		logrus.Infof("Rate limiting initialized: %v req/s, burst: %d", config.RateLimitRPS, config.RateLimitBurst)
	}

	logrus.WithFields(logrus.Fields{
		"port":       config.Port,
		"timeout":    config.Timeout,
		"metrics":    config.EnableMetrics,
		"rate_limit": config.RateLimitRPS,
		"sinks":      config.Sinks,
	}).Info("Server initialized")

	return s
}

// routes registers the API endpoints
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/features", s.handleFeatures)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/status", s.handleStatus)
	return mux
}

// Start begins the HTTP server and sets up graceful shutdown
func (s *Server) Start() {
	s.server = &http.Server{
		Addr:         ":" + s.config.Port,
		Handler:      s.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.Infof("Server starting on port %s", s.config.Port)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Error starting server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		logrus.Fatalf("Server shutdown failed: %v", err)
	}
	logrus.Info("Server stopped")
}

// handleHealth is a simple health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "OK",
		"version":   version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleMetrics exposes Prometheus metrics
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if !s.config.EnableMetrics || s.registry == nil {
		http.Error(w, "Metrics disabled", http.StatusServiceUnavailable)
		return
	}
	promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
}

// handleStatus provides service status information
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "operational",
		"uptime":  time.Since(startTime).String(),
		"version": version,
		"configuration": map[string]interface{}{
			"timeout":    s.config.Timeout.String(),
			"rate_limit": s.config.RateLimitRPS,
			"metrics":    s.config.EnableMetrics,
			"sinks":      s.config.Sinks,
		},
	})
}

// FeatureRequest asks for the record of one token
type FeatureRequest struct {
	ID      string `json:"id,omitempty"`
	TokenID string `json:"token_id"`
}

// FeatureResponse wraps a record. Data is set whenever a record was
// computed, including when persisting it failed.
type FeatureResponse struct {
	ID         string               `json:"id,omitempty"`
	TokenID    string               `json:"token_id,omitempty"`
	StatusCode int                  `json:"statusCode"`
	Status     string               `json:"status"`
	Data       *model.FeatureRecord `json:"data,omitempty"`
	Error      string               `json:"error,omitempty"`
	LatencyMs  int64                `json:"latencyMs"`
}

// handleFeatures builds, persists and returns the record of the posted token
func (s *Server) handleFeatures(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if s.rateLimit != nil && !s.rateLimit.Allow() {
		s.respond(w, start, FeatureResponse{StatusCode: http.StatusTooManyRequests, Error: "Rate limit exceeded"})
		return
	}

	var request FeatureRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.respond(w, start, FeatureResponse{StatusCode: http.StatusBadRequest, Error: "Invalid request body"})
		return
	}
	request.TokenID = strings.TrimSpace(request.TokenID)
	if request.TokenID == "" {
		s.respond(w, start, FeatureResponse{ID: request.ID, StatusCode: http.StatusBadRequest, Error: "token_id is required"})
		return
	}

	ctx := r.Context()
	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	record, err := s.processor.Process(ctx, request.TokenID)

	response := FeatureResponse{
		ID:         request.ID,
		TokenID:    request.TokenID,
		StatusCode: statusFor(err),
	}
	if err == nil || errors.Is(err, sink.ErrPersist) {
		response.Data = &record
	}
	if err != nil {
		response.Error = err.Error()
		logrus.WithField("token_id", request.TokenID).WithError(err).Warn("Feature request failed")
	} else if s.metrics != nil {
		s.metrics.volatility.Observe(record.Volatility)
	}

	s.respond(w, start, response)
}

// statusFor maps a pipeline error to an HTTP status
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, validation.ErrInvalidRecord):
		return http.StatusUnprocessableEntity
	case errors.Is(err, sink.ErrPersist):
		return http.StatusInternalServerError
	case errors.Is(err, fetch.ErrUnavailable), errors.Is(err, fetch.ErrDataUnavailable), fetch.IsTransport(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
