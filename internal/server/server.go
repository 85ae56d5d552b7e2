// Package server exposes an admin HTTP surface: health, and previews of the
// rewriter and the DDL planner. It never executes statements.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/davidelias/django-firebird/internal/logger"
	"github.com/davidelias/django-firebird/internal/schema"
)

const (
	maxBodyBytes    = 1 << 20
	shutdownTimeout = 5 * time.Second
)

// Pinger checks the database attachment.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Option configures a Server.
type Option func(*Server)

// WithPinger makes /healthz report database reachability.
func WithPinger(p Pinger) Option {
	return func(s *Server) { s.pinger = p }
}

// WithCatalog enables GET /tables. A catalog that is also a
// schema.Inspector serves GET /tables/{name}.
func WithCatalog(c schema.Catalog) Option {
	return func(s *Server) { s.catalog = c }
}

// WithLogger sets the request logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Server) { s.log = l }
}

type Server struct {
	addr    string
	pinger  Pinger
	catalog schema.Catalog
	log     *logger.Logger
}

func New(addr string, opts ...Option) *Server {
	s := &Server{addr: addr}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Global()
	}
	s.log = s.log.Component("server")
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Post("/rewrite", s.handleRewrite)
	r.Route("/ddl", func(r chi.Router) {
		r.Post("/create", s.handleCreate)
		r.Post("/drop", s.handleDrop)
	})
	r.Get("/tables", s.handleTables)
	r.Get("/tables/{name}", s.handleTable)
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("listening on %s", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.With().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Str("request_id", middleware.GetReqID(r.Context())).
			Any("duration", time.Since(start)).
			Logger().
			Debug("request")
	})
}
