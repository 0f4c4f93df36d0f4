package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Health is the /healthz payload.
type Health struct {
	Status  string            `json:"status"`
	Started time.Time         `json:"started"`
	LastRun map[string]string `json:"last_run,omitempty"`
}

// Server serves /metrics and /healthz.
type Server struct {
	router  *mux.Router
	server  *http.Server
	log     *zap.Logger
	started time.Time

	mu      sync.Mutex
	lastRun map[string]time.Time
}

// NewServer builds the router; nothing listens until Start.
func NewServer(addr string, reg *Registry, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		router:  mux.NewRouter(),
		log:     log,
		started: time.Now(),
		lastRun: make(map[string]time.Time),
	}
	s.router.Use(s.requestIDMiddleware)
	s.router.Handle("/metrics", reg.Handler()).Methods(http.MethodGet)
	s.router.HandleFunc("/healthz", s.health).Methods(http.MethodGet)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// MarkRun records a completed run of job for /healthz.
func (s *Server) MarkRun(job string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRun[job] = at
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	h := Health{Status: "ok", Started: s.started, LastRun: make(map[string]string, len(s.lastRun))}
	for job, at := range s.lastRun {
		h.LastRun[job] = at.Format(time.RFC3339)
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h); err != nil {
		s.log.Warn("encode health", zap.Error(err))
	}
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.New().String()[:8]
		w.Header().Set("X-Request-ID", id)
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("http request",
			zap.String("id", id), zap.String("method", r.Method), zap.String("path", r.URL.Path),
			zap.Duration("took", time.Since(start)))
	})
}

// Start listens in the background. Errors other than a clean shutdown are logged.
func (s *Server) Start() {
	go func() {
		s.log.Info("metrics server listening", zap.String("addr", s.server.Addr))
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("metrics server stopped", zap.Error(err))
		}
	}()
}

// Shutdown stops the listener, waiting for in-flight requests until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
