// Package server is the JSON HTTP front end over the review sessions.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/thywilljoshua/site-diary/internal/ai"
	"github.com/thywilljoshua/site-diary/internal/extract"
	"github.com/thywilljoshua/site-diary/internal/logger"
	"github.com/thywilljoshua/site-diary/internal/metrics"
	"github.com/thywilljoshua/site-diary/internal/render"
	"github.com/thywilljoshua/site-diary/internal/review"
)

// Options are the HTTP settings.
type Options struct {
	Addr            string
	MaxUploadBytes  int64
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
}

// Deps are the stages and state the handlers drive. Nil entries get
// defaults.
type Deps struct {
	Store     *review.Store
	Extractor *extract.Extractor
	Enhancer  ai.Enhancer
	Renderer  *render.Renderer
	Metrics   *metrics.Metrics
	Logger    logger.Logger
}

type Server struct {
	engine *gin.Engine
	opts   Options
	log    logger.Logger
}

func New(opts Options, deps Deps) *Server {
	deps.Logger = logger.OrNop(deps.Logger)
	if deps.Store == nil {
		deps.Store = review.NewStore()
	}
	if deps.Extractor == nil {
		deps.Extractor = extract.New(deps.Logger)
	}
	if deps.Enhancer == nil {
		deps.Enhancer = ai.Noop{}
	}
	if deps.Renderer == nil {
		deps.Renderer = render.New(render.Config{Compress: true})
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(RequestLogger(deps.Logger, deps.Metrics))
	engine.Use(MaxBodySize(opts.MaxUploadBytes))
	engine.Use(CORS(opts.AllowedOrigins))

	api := NewAPI(deps)
	registerRoutes(engine, api)
	engine.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	return &Server{engine: engine, opts: opts, log: deps.Logger}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server listening", logger.String("addr", s.opts.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
