// Package server exposes the cache engine over HTTP.
//
// The cache API under /v1 is gated by bearer credentials, enforced by
// the engine itself. The administrative API under /web/api serves the
// dashboard and is ungated here; restricting it is a deployment
// concern (bind it behind a private listener or reverse-proxy ACL).
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/meigma/artifactcache"
)

// Server wires the engine and reporting views into a gin router.
type Server struct {
	engine *artifactcache.Engine
	logger *zap.Logger
	router *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for access logs and handler errors.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New assembles the HTTP surface. Metrics middleware registers its
// collectors with reg; pass prometheus.NewRegistry() in tests to avoid
// global registry collisions.
func New(engine *artifactcache.Engine, reg *prometheus.Registry, opts ...Option) *Server {
	s := &Server{
		engine: engine,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestID())
	r.Use(accessLog(s.logger))
	r.Use(httpMetrics(reg))

	v1 := r.Group("/v1")
	{
		v1.GET("/cache/:hash", s.getCache)
		v1.PUT("/cache/:hash", s.putCache)
	}

	web := r.Group("/web/api")
	{
		web.GET("/caches", s.listCaches)
		web.GET("/stats", s.stats)
		web.DELETE("/caches/:hash", s.deleteCache)
		web.DELETE("/caches", s.purgeCaches)
	}

	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	s.router = r
	return s
}

// Handler returns the assembled router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is canceled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info("listening", zap.String("addr", addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) health(c *gin.Context) {
	if err := s.engine.Ping(c.Request.Context()); err != nil {
		s.logger.Error("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":    "unavailable",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
