package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/moneycircle/circle/internal/backend"
	"github.com/moneycircle/circle/internal/contract"
	"github.com/moneycircle/circle/internal/logger"
	"github.com/moneycircle/circle/internal/metrics"
	"github.com/moneycircle/circle/internal/pricing"
	"github.com/moneycircle/circle/internal/types"
)

const (
	RequestIDHeader = "X-Request-ID"
	MaxUploadBytes  = 10 << 20
)

// PoolBackend is the part of the remote API used by the pool routes.
type PoolBackend interface {
	TakenRanks(ctx context.Context, pool types.PoolID) ([]types.Rank, error)
	CreateCreditPool(ctx context.Context, terms types.PoolTerms) (json.RawMessage, error)
}

// Dependencies are the services the web server routes to.
type Dependencies struct {
	Calculator *pricing.Calculator
	Signer     *contract.Signer
	Pools      PoolBackend
	Metrics    *metrics.Collector
}

// WebServer exposes the pricing calculator and the signing flow over HTTP
type WebServer struct {
	router *mux.Router
	port   string
	deps   Dependencies
	log    zerolog.Logger
	server *http.Server
}

// NewWebServer creates a new web server instance
func NewWebServer(port string, deps Dependencies) *WebServer {
	if port == "" {
		port = "8080"
	}

	server := &WebServer{
		router: mux.NewRouter(),
		port:   port,
		deps:   deps,
		log:    logger.GetForComponent("web_server"),
	}

	server.setupRoutes()
	server.server = &http.Server{
		Addr:         ":" + port,
		Handler:      server.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return server
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")
	if ws.deps.Metrics != nil {
		ws.router.Handle("/metrics", ws.deps.Metrics.Handler()).Methods("GET")
	}

	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")
	api.HandleFunc("/preview", ws.handlePreview).Methods("GET")
	api.HandleFunc("/quote", ws.handleQuote).Methods("GET")
	api.HandleFunc("/pools", ws.handleCreatePool).Methods("POST")
	api.HandleFunc("/pools/{id:[0-9]+}/ranks", ws.handleGetRanks).Methods("GET")
	api.HandleFunc("/contracts", ws.handleSubmitContract).Methods("POST")

	// Middleware only runs on matched routes, so preflight requests need one
	ws.router.PathPrefix("/").Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
}

// Handler returns the routed handler, mainly for tests.
func (ws *WebServer) Handler() http.Handler {
	return ws.router
}

// Start starts the web server and blocks until it stops.
func (ws *WebServer) Start() error {
	ws.log.Info().Str("port", ws.port).Msg("Starting web server")

	err := ws.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server, waiting for in-flight requests until ctx ends.
func (ws *WebServer) Shutdown(ctx context.Context) error {
	ws.log.Info().Msg("Shutting down web server")
	return ws.server.Shutdown(ctx)
}

// handleHealth returns server health status
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	params := ws.deps.Calculator.Parameters()
	response := map[string]interface{}{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]interface{}{
			"version":          runtime.Version(),
			"goroutines_count": runtime.NumGoroutine(),
			"alloc_bytes":      memStats.Alloc,
			"sys_bytes":        memStats.Sys,
			"gc_cycles":        memStats.NumGC,
		},
		"component": map[string]interface{}{
			"name":    "circle-pricing-service",
			"version": "1.0.0",
		},
		"pricing": map[string]interface{}{
			"fairness_rate": params.FairnessRate.String(),
			"currency":      params.Currency,
			"time_unit":     params.TimeUnit,
		},
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// writeJSONResponse writes a JSON response
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		ws.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, code, message string) {
	response := map[string]interface{}{
		"error":     true,
		"message":   message,
		"code":      code,
		"timestamp": time.Now().UTC(),
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// writeError maps err to a status code and error code.
func (ws *WebServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classifyError(err)
	if status >= http.StatusInternalServerError {
		ws.requestLogger(r).Error().Err(err).Str("code", code).Msg("Request failed")
	}
	ws.writeErrorResponse(w, status, code, err.Error())
}

func classifyError(err error) (int, string) {
	var apiErr *backend.APIError
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, pricing.ErrInvalidTerms):
		return http.StatusBadRequest, "invalid_terms"
	case errors.Is(err, contract.ErrUnsigned):
		return http.StatusBadRequest, "unsigned"
	case errors.Is(err, pricing.ErrNotPriceable):
		return http.StatusUnprocessableEntity, "not_priceable"
	case errors.Is(err, pricing.ErrRankOutOfRange):
		return http.StatusUnprocessableEntity, "rank_out_of_range"
	case errors.Is(err, pricing.ErrInvalidResult):
		return http.StatusUnprocessableEntity, "invalid_result"
	case errors.Is(err, contract.ErrRankTaken):
		return http.StatusConflict, "rank_taken"
	case errors.Is(err, contract.ErrPoolFull):
		return http.StatusConflict, "pool_full"
	case errors.As(err, &apiErr):
		return http.StatusBadGateway, "backend_error"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusBadGateway, "backend_unavailable"
	}
}

// corsMiddleware adds CORS headers
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+RequestIDHeader)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type requestIDKey struct{}

// loggingMiddleware tags the request with an id and logs it once served
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey{}, requestID))

		// Capture the status code for the log line and the counter
		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		ws.deps.Metrics.RecordHTTPRequest(r.Method, strconv.Itoa(wrapper.statusCode))
		ws.requestLogger(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapper.statusCode).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}

func (ws *WebServer) requestLogger(r *http.Request) *zerolog.Logger {
	l := ws.log
	if id, ok := r.Context().Value(requestIDKey{}).(string); ok {
		l = l.With().Str("request_id", id).Logger()
	}
	return &l
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
