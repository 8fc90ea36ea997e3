// Package httpapi - HTTP вход в поиск и управление тарифом (gin)
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kitbuilder587/fetscr/internal/metrics"
	"github.com/kitbuilder587/fetscr/internal/ratelimit"
	"github.com/kitbuilder587/fetscr/internal/service"
)

const (
	defaultShutdownTimeout = 10 * time.Second
	readHeaderTimeout      = 10 * time.Second
)

type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
}

type Deps struct {
	Search   service.SearchService
	Accounts service.AccountService
	Limiter  *ratelimit.Limiter
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
	// Gatherer для /metrics, nil - глобальный реестр
	Gatherer prometheus.Gatherer
}

type Server struct {
	cfg     Config
	engine  *gin.Engine
	httpSrv *http.Server
	logger  *zap.Logger
}

func New(cfg Config, deps Deps) *Server {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(deps.Logger, deps.Metrics))

	h := &handlers{
		search:   deps.Search,
		accounts: deps.Accounts,
		logger:   deps.Logger,
	}

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	metricsHandler := metrics.Handler()
	if deps.Gatherer != nil {
		metricsHandler = metrics.HandlerFor(deps.Gatherer)
	}
	engine.GET("/metrics", gin.WrapH(metricsHandler))

	api := engine.Group("/api", requireAccount())
	{
		api.POST("/register", h.register)
		api.POST("/scrape", rateLimit(deps.Limiter, deps.Metrics), h.scrape)
		api.GET("/plan", h.getPlan)
		api.POST("/plan", h.changePlan)
		api.GET("/history", h.history)
	}

	return &Server{
		cfg:    cfg,
		engine: engine,
		logger: deps.Logger,
	}
}

// Handler - для тестов через httptest
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run слушает до отмены ctx, потом плавно гасит сервер
func (s *Server) Run(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.cfg.Addr))
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http serve: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
