// Package server exposes the ML feature schema over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/findyourpaths/phonespecs/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Options struct {
	Addr string
	// FeaturesPath is the dataset whose header lists the features.
	FeaturesPath   string
	Excluded       []string
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

type Server struct {
	opts       Options
	httpServer *http.Server
}

func New(opts Options) *Server {
	s := &Server{opts: opts}
	s.httpServer = &http.Server{
		Addr:         opts.Addr,
		Handler:      s.Router(),
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	}
	return s
}

// Router builds the route table with its middleware stack.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, LoggerMiddleware, middleware.Recoverer)

	origins := s.opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	h := &handlers{featuresPath: s.opts.FeaturesPath, excluded: s.opts.Excluded}
	r.Get("/", h.home)
	r.Get("/get_features", h.getFeatures)
	r.Get("/get_feature_groups", h.getFeatureGroups)
	r.Post("/predict", h.predict)
	r.Handle("/metrics", observability.MetricsHandler())
	return r
}

// Start serves until Stop is called.
func (s *Server) Start() error {
	slog.Info("starting feature server", "addr", s.httpServer.Addr, "features", s.opts.FeaturesPath)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("could not start server: %w", err)
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	slog.Info("stopping feature server")
	return s.httpServer.Shutdown(ctx)
}

// Run serves until ctx is done, then shuts down, allowing in-flight
// requests up to grace to finish.
func (s *Server) Run(ctx context.Context, grace time.Duration) error {
	errc := make(chan error, 1)
	go func() { errc <- s.Start() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := s.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	return <-errc
}

// LoggerMiddleware logs each request with its status and duration.
func LoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Info("request",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
