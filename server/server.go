// Package server exposes the engine over HTTP: event ingestion, personality
// management, graph snapshots, episodic search, and a live change stream.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/edenrobotics/egograph/ego"
	"github.com/edenrobotics/egograph/ego/metrics"
	"github.com/edenrobotics/egograph/episodic"
	"github.com/edenrobotics/egograph/graph"
	"github.com/edenrobotics/egograph/internal/profile"
)

// Server wires the HTTP layer around the event engine.
type Server struct {
	echoServer *echo.Echo
	profile    *profile.Profile

	engine   *ego.Engine
	graph    *graph.Graph
	episodic *episodic.Store
	recorder *metrics.Recorder
	hub      *Hub
}

// NewServer creates the HTTP server and registers all routes. hub may be the
// same Hub passed to the engine as its Notifier.
func NewServer(p *profile.Profile, engine *ego.Engine, g *graph.Graph, ep *episodic.Store, recorder *metrics.Recorder, hub *Hub) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(requestLogger())

	s := &Server{
		echoServer: e,
		profile:    p,
		engine:     engine,
		graph:      g,
		episodic:   ep,
		recorder:   recorder,
		hub:        hub,
	}

	e.GET("/healthz", s.healthz)
	if recorder != nil {
		e.GET("/metrics", echo.WrapHandler(recorder.Handler()))
	}

	apiV1 := e.Group("/api/v1")
	apiV1.POST("/events", s.processEvent)
	apiV1.POST("/events/batch", s.processBatch)
	apiV1.GET("/personality", s.getPersonality)
	apiV1.PUT("/personality/:trait", s.updateTrait)
	apiV1.GET("/graph", s.getGraphSnapshot)
	apiV1.GET("/memories", s.listUserMemories)
	apiV1.GET("/episodic/search", s.searchEpisodic)
	apiV1.POST("/inject/trauma", s.injectTrauma)
	apiV1.POST("/inject/kindness", s.injectKindness)
	apiV1.GET("/stream", s.stream)

	return s
}

// Start begins serving until the context is canceled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.profile.Addr, s.profile.Port)

	go func() {
		<-ctx.Done()
		s.Shutdown(context.Background())
	}()

	if err := s.echoServer.Start(address); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and closes the change stream.
func (s *Server) Shutdown(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if s.hub != nil {
		s.hub.Close()
	}
	if err := s.echoServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shut down server", "error", err)
	}
}

// Echo exposes the underlying router, mainly for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echoServer
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogMethod:  true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			slog.Debug("http request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			)
			return nil
		},
	})
}

func (s *Server) healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
