package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"shiftopt/internal/config"
	"shiftopt/internal/service"
)

// Version is stamped at build time.
var Version = "dev"

const serviceName = "shift-optimization"

// Server exposes the optimization service over HTTP.
type Server struct {
	cfg          *config.AppConfig
	svc          *service.Service
	mux          *http.ServeMux
	httpServer   *http.Server
	traceCounter atomic.Uint64
}

// NewServer wires the routes for a service.
func NewServer(cfg *config.AppConfig, svc *service.Service) *Server {
	s := &Server{cfg: cfg, svc: svc, mux: http.NewServeMux()}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/", s.wrap(s.handleRoot))
	s.mux.HandleFunc("/health", s.wrap(s.handleHealth))
	s.mux.HandleFunc("/optimize", s.wrap(s.handleOptimize))
	s.mux.HandleFunc("/optimize/async", s.wrap(s.handleOptimizeAsync))
	s.mux.HandleFunc("/optimize/status/", s.wrap(s.handleRunStatus))
	s.mux.HandleFunc("/validate/constraints", s.wrap(s.handleValidateConstraints))
	s.mux.HandleFunc("/algorithms", s.wrap(s.handleAlgorithms))
	s.mux.HandleFunc("/metrics", s.handleMetrics)
}

// Handler returns the full middleware stack: CORS, tracing and timing
// headers, panic recovery, then the route mux.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	return c.Handler(s.middleware(s.mux))
}

// ListenAndServe starts the HTTP server and blocks until ctx is cancelled
// or the listener fails.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.svc.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// middleware stamps every response with X-Trace-ID and X-Process-Time and
// converts panics into structured 500s.
func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := s.nextTraceID()
		w.Header().Set("X-Trace-ID", traceID)

		tw := &timedWriter{ResponseWriter: w, start: time.Now()}
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().
					Interface("panic", rec).
					Str("trace_id", traceID).
					Str("path", r.URL.Path).
					Msg("Request handler panicked")
				if !tw.wrote {
					writeJSON(tw, http.StatusInternalServerError, map[string]interface{}{
						"error":     "internal_server_error",
						"message":   "An unexpected error occurred",
						"timestamp": time.Now().UTC(),
						"trace_id":  traceID,
					})
				}
			}
		}()

		next.ServeHTTP(tw, r)

		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("trace_id", traceID).
			Dur("elapsed", time.Since(tw.start)).
			Msg("Request handled")
	})
}

// nextTraceID produces opt_<counter>_<YYYYMMDD_HHMMSS> identifiers.
func (s *Server) nextTraceID() string {
	n := s.traceCounter.Add(1)
	return fmt.Sprintf("opt_%d_%s", n, time.Now().Format("20060102_150405"))
}

// timedWriter injects X-Process-Time just before the first byte goes out.
type timedWriter struct {
	http.ResponseWriter
	start time.Time
	wrote bool
}

func (w *timedWriter) WriteHeader(code int) {
	if !w.wrote {
		w.wrote = true
		seconds := time.Since(w.start).Seconds()
		w.Header().Set("X-Process-Time", strconv.FormatFloat(seconds, 'f', 6, 64))
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *timedWriter) Write(b []byte) (int, error) {
	if !w.wrote {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// httpError carries a status code and a JSON body through the wrap layer.
type httpError struct {
	status int
	body   interface{}
}

func (e *httpError) Error() string {
	return fmt.Sprintf("http %d", e.status)
}

func errNotFound(message string) error {
	return &httpError{status: http.StatusNotFound, body: map[string]string{"error": message}}
}

func errMethodNotAllowed() error {
	return &httpError{status: http.StatusMethodNotAllowed, body: map[string]string{"error": "Method not allowed"}}
}

func errBadRequest(body interface{}) error {
	return &httpError{status: http.StatusBadRequest, body: body}
}

// wrap adapts a value-returning handler into an http.HandlerFunc with
// uniform JSON encoding and error mapping.
func (s *Server) wrap(handler func(r *http.Request) (interface{}, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.svc == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "Service not initialized"})
			return
		}

		out, err := handler(r)
		if err != nil {
			var herr *httpError
			if errors.As(err, &herr) {
				writeJSON(w, herr.status, herr.body)
				return
			}
			log.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
			writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
				"error":     "internal_server_error",
				"message":   err.Error(),
				"timestamp": time.Now().UTC(),
			})
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to encode response body")
	}
}
