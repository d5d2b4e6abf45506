// File: internal/server/server.go
//
// Package server exposes the widget pipeline over a local HTTP API plus a
// WebSocket event relay. The surface is deliberately unauthenticated and
// binds to loopback by default; putting it on a shared interface is a
// deployment decision, not something this package encourages.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/xkilldash9x/panelforge/internal/config"
	"github.com/xkilldash9x/panelforge/internal/service"
)

// Server wraps the gin engine and the underlying http.Server.
type Server struct {
	logger     *zap.Logger
	cfg        config.ServerConfig
	components *service.Components
	httpServer *http.Server
}

// New builds the server and wires all routes.
func New(cfg config.ServerConfig, components *service.Components, logger *zap.Logger) *Server {
	s := &Server{
		logger:     logger.Named("server"),
		cfg:        cfg,
		components: components,
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLogger())

	engine.GET("/healthz", s.handleHealthz)

	v1 := engine.Group("/api/v1")
	{
		v1.POST("/generate", s.handleGenerate)
		v1.GET("/widgets", s.handleListWidgets)
		v1.POST("/widgets", s.handleRegisterWidget)
		v1.GET("/widgets/:id", s.handleGetWidget)
		v1.PUT("/widgets/:id", s.handleUpdateWidget)
		v1.DELETE("/widgets/:id", s.handleRemoveWidget)
		v1.POST("/widgets/:id/render", s.handleRenderWidget)
		v1.POST("/widgets/:id/regenerate", s.handleRegenerateWidget)
		v1.GET("/widgets/:id/attempts", s.handleWidgetAttempts)
		v1.GET("/attempts", s.handleAllAttempts)
		v1.GET("/stats", s.handleStats)
		v1.GET("/events", s.handleEvents)
	}

	s.httpServer = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      engine,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Run serves until ctx is canceled, then drains within the configured
// shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening.", zap.String("addr", s.cfg.ListenAddr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("HTTP server draining.")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		s.logger.Debug("Request handled.",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
		)
	}
}
