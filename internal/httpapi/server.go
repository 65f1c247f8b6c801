// Package httpapi is the minimal front door described by the interface
// layer: native JSON ingestion, query, and websocket subscription
// endpoints over one engine instance. Grounded on the teacher's
// internal/transport/http/server.go (Server struct, gin engine,
// cors.New, graceful Start/Shutdown split), stripped of every
// auth/RBAC/billing route group that server never needed.
package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"signalstore/internal/config"
	"signalstore/internal/engine"
)

// Server wraps one AsyncEngine behind a gin router and an http.Server,
// exposing the ingestion/query/subscribe endpoints over HTTP and
// websocket.
type Server struct {
	cfg    config.ServerConfig
	logger *slog.Logger
	router *gin.Engine
	http   *http.Server
}

// NewServer builds the router and registers every route but does not
// start listening; call Start for that.
func NewServer(cfg config.ServerConfig, eng *engine.AsyncEngine, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(RequestID(), Logger(logger), Recovery(logger))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
	corsConfig.AllowMethods = cfg.CORSAllowedMethods
	corsConfig.AllowHeaders = cfg.CORSAllowedHeaders
	corsConfig.AllowCredentials = false
	router.Use(cors.New(corsConfig))

	h := &handlers{engine: eng, logger: logger}
	registerRoutes(router, h)

	return &Server{
		cfg:    cfg,
		logger: logger,
		router: router,
		http: &http.Server{
			Addr:         cfg.Address(),
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
	}
}

// Start blocks serving HTTP until Shutdown is called, returning nil for
// the expected http.ErrServerClosed case.
func (s *Server) Start() error {
	s.logger.Info("starting http server", "addr", s.cfg.Address())
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("httpapi: listen: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and closes listeners, honoring ctx's
// deadline (normally ServerConfig.ShutdownTimeout).
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.http.Shutdown(ctx)
}
