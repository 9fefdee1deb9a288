// Package api exposes trend estimation over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"breachtrend/internal"
)

// Server wraps the gin router and the underlying HTTP server
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	logger     *internal.Logger
}

// NewServer wires routes for the trend handler
func NewServer(handler *TrendHandler, logger *internal.Logger) *Server {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(logger))

	router.GET("/healthz", handler.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.POST("/trends", handler.CreateTrend)
	v1.GET("/trends", handler.ListTrends)
	v1.GET("/trends/:id", handler.GetTrend)

	return &Server{router: router, logger: logger}
}

// Router exposes the engine for tests
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start serves until Shutdown is called
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("[Server] Listening on %s", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
