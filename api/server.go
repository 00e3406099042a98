// Package api - Thin HTTP layer over the calculation engine
// The API is ONLY responsible for: input decoding, validation, engine calls,
// output serialization. The API NEVER performs pricing logic.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"embroidery-pricing/adapters/storage"
	"embroidery-pricing/core/engine"
	"embroidery-pricing/internal/errors"
	"embroidery-pricing/internal/logging"
)

// MaxBodyBytes limits request bodies
const MaxBodyBytes = 1 << 20

// Config holds the server dependencies. Store and Gatherer are optional.
type Config struct {
	Version string
	Engine  *engine.Engine

	// Store records every successful calculation when set
	Store storage.Store

	// Gatherer backs GET /metrics; nil uses the default registry
	Gatherer prometheus.Gatherer

	// AllowedOrigins enables CORS for the listed origins
	AllowedOrigins []string

	Logger *zap.Logger
}

// Server is the API server
type Server struct {
	engine   *engine.Engine
	store    storage.Store
	version  string
	router   chi.Router
	validate *validator.Validate
	logger   *zap.Logger
	gatherer prometheus.Gatherer
}

// NewServer creates an API server
func NewServer(cfg Config) *Server {
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		engine:   cfg.Engine,
		store:    cfg.Store,
		version:  cfg.Version,
		router:   chi.NewRouter(),
		validate: newValidator(),
		logger:   logging.OrNop(cfg.Logger).Named("api"),
		gatherer: gatherer,
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.requestLogger)
	if len(cfg.AllowedOrigins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", TenantHeader},
			ExposedHeaders: []string{CalculationHeader},
			MaxAge:         300,
		}))
	}

	s.registerRoutes()
	return s
}

// registerRoutes registers all API routes
func (s *Server) registerRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/version", s.handleVersion)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	s.router.Route("/v1", func(r chi.Router) {
		r.Use(requireTenant)
		r.Use(limitBody)

		r.Post("/shipping/calculate", s.handleShipping)
		r.Post("/shipping/rates", s.handleRates)
		r.Post("/pricing/calculate", s.handlePricing)
		r.Post("/digitizing/quote", s.handleQuote)
		r.Post("/digitizing/quotes", s.handleQuoteBatch)
		r.Get("/calculations", s.handleListCalculations)
		r.Get("/calculations/{id}", s.handleGetCalculation)
	})
}

// newValidator reports fields by their JSON names
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type tenantKey struct{}

// requireTenant rejects /v1 requests without a tenant header
func requireTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenant := r.Header.Get(TenantHeader)
		if tenant == "" {
			writeError(w, errors.DomainInput(TenantHeader+" header is required"))
			return
		}
		ctx := context.WithValue(r.Context(), tenantKey{}, tenant)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
		next.ServeHTTP(w, r)
	})
}

func tenantFrom(ctx context.Context) string {
	tenant, _ := ctx.Value(tenantKey{}).(string)
	return tenant
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("tenant_id", r.Header.Get(TenantHeader)),
			zap.Duration("duration", time.Since(start)))
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"status":  "healthy",
		"version": s.version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	}, http.StatusOK)
}

// handleVersion handles GET /version
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{
		"version":     s.version,
		"engine":      "embroidery-pricing",
		"api_version": "v1",
	}, http.StatusOK)
}

// statusFor maps an error type to an HTTP status
func statusFor(t errors.Type) int {
	switch t {
	case errors.TypeDomainInput:
		return http.StatusBadRequest
	case errors.TypePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case errors.TypeMissingReference, errors.TypeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error) {
	t := errors.TypeOf(err)
	message := err.Error()
	if e, ok := errors.As(err); ok {
		message = e.Message
	}
	writeJSON(w, ErrorBody{Error: ErrorDetail{Code: string(t), Message: message}}, statusFor(t))
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// HTTPServer builds an *http.Server for addr with the given read timeout
func (s *Server) HTTPServer(addr string, readTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
	}
}
