// Package server exposes the crawler over HTTP: a liveness route, GET /crawl and Prometheus metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"render-crawler/pkg/cache"
	"render-crawler/pkg/config"
	"render-crawler/pkg/crawler"
	"render-crawler/pkg/render"
)

const shutdownTimeout = 10 * time.Second

// Server is the HTTP adapter over crawler.Crawl
type Server struct {
	cfg    *config.AppConfig
	base   crawler.CrawlOptions // configured defaults every /crawl starts from
	launch render.Launcher
	cache  *cache.Cache[string, []byte]
	log    *logrus.Entry
}

// New creates a Server; cfg is expected to be validated
func New(cfg *config.AppConfig, launch render.Launcher, logger *logrus.Entry) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("AppConfig is required")
	}
	if launch == nil {
		return nil, errors.New("render engine launcher is required")
	}
	strategy, err := cache.ParseStrategy(cfg.Cache.Strategy)
	if err != nil {
		return nil, err
	}
	return &Server{
		cfg:    cfg,
		base:   crawler.OptionsFromConfig(cfg, logger),
		launch: launch,
		cache: cache.New[string, []byte](cache.Options{
			MaxSize:  cfg.Cache.MaxSize,
			Strategy: strategy,
			TTL:      cfg.Cache.TTL,
		}),
		log: logger.WithField("component", "http_server"),
	}, nil
}

// Handler returns the routed handler wrapped in request ID and access logging middleware
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handlePing)
	mux.HandleFunc("GET /crawl", s.handleCrawl)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("/", s.handleNotFound)
	return s.withRequestLog(mux)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("Server is running on http://%s", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		s.log.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		return nil
	}
}
