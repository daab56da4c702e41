// Package api is the HTTP surface: a thin gin server translating between
// JSON requests and the turn orchestrator and session ledger underneath it.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/chessmate-ai/chessmate/internal/config"
	"github.com/chessmate-ai/chessmate/internal/ledger"
	"github.com/chessmate-ai/chessmate/internal/logging"
	"github.com/chessmate-ai/chessmate/internal/orchestrator"
	"github.com/chessmate-ai/chessmate/internal/usage"
)

// Server hosts the HTTP API.
type Server struct {
	engine *gin.Engine
	httpd  *http.Server
	cfg    *config.Config
	orch   *orchestrator.Orchestrator
	ledger *ledger.Ledger
}

// NewServer wires the engine, middleware and routes. Collaborators are
// injected; the server owns nothing but the listener.
func NewServer(cfg *config.Config, orch *orchestrator.Orchestrator, led *ledger.Ledger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	usage.SetMetricsEnabled(cfg.Metrics)

	engine.Use(logging.GinLogrusLogger())
	engine.Use(logging.GinLogrusRecovery())
	engine.Use(usage.PrometheusMiddleware())

	s := &Server{
		engine: engine,
		cfg:    cfg,
		orch:   orch,
		ledger: led,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", s.handleHealth)
	if s.cfg.Metrics {
		s.engine.GET("/metrics", usage.MetricsHandler())
	}

	v1 := s.engine.Group("/v1")
	if len(s.cfg.APIKeys) > 0 {
		v1.Use(APIKeyAuth(s.cfg.APIKeys))
	}
	v1.POST("/turns", s.handleTurn)
	v1.GET("/sessions/:id/history", s.handleHistory)
	v1.DELETE("/sessions/:id", s.handleClearSession)
}

// Engine exposes the router for tests.
func (s *Server) Engine() *gin.Engine { return s.engine }

// Start begins serving and blocks until the listener fails or Shutdown is
// called.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpd = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Infof("listening on %s", addr)
	err := s.httpd.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpd == nil {
		return nil
	}
	return s.httpd.Shutdown(ctx)
}
