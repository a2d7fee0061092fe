// Package httpserver exposes worker status, Prometheus metrics and the
// scope websocket over HTTP.
package httpserver

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/patrickmn/go-cache"

	"github.com/osci-render/osci-go/internal/conf"
	"github.com/osci-render/osci-go/internal/errors"
	"github.com/osci-render/osci-go/internal/handoff"
	"github.com/osci-render/osci-go/internal/logger"
	"github.com/osci-render/osci-go/internal/observability"
	"github.com/osci-render/osci-go/internal/shape"
)

const componentHTTP = "httpserver"

// WorkerSource lists the workers to report on. *handoff.Manager satisfies it.
type WorkerSource interface {
	Workers() []*handoff.Worker
	Get(id string) (*handoff.Worker, bool)
}

// ShapeController reads and replaces the live figure parameters.
// *shape.Lissajous satisfies it.
type ShapeController interface {
	Config() shape.LissajousConfig
	Configure(cfg shape.LissajousConfig)
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithMetrics mounts /metrics and records request metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithScope mounts the scope websocket handler at /ws/scope.
func WithScope(h http.Handler) Option {
	return func(s *Server) { s.scope = h }
}

// WithShape mounts GET and PUT /api/v1/shape.
func WithShape(c ShapeController) Option {
	return func(s *Server) { s.shape = c }
}

// WithVersion sets the version reported by the health endpoint.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// Server is the status and streaming HTTP server.
type Server struct {
	Echo *echo.Echo

	settings    conf.HTTPSettings
	workers     WorkerSource
	metrics     *observability.Metrics
	scope       http.Handler
	shape       ShapeController
	statusCache *cache.Cache
	log         logger.Logger
	version     string
	started     time.Time

	mu       sync.Mutex
	listener net.Listener
}

// New builds the server and its routes. It does not listen until Start.
func New(settings conf.HTTPSettings, workers WorkerSource, opts ...Option) *Server {
	s := &Server{
		Echo:     echo.New(),
		settings: settings,
		workers:  workers,
		log:      logger.Global().Module(componentHTTP),
		version:  "dev",
		started:  time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	// no janitor goroutine; expired entries are ignored on read
	s.statusCache = cache.New(settings.StatusCacheTTL, 0)

	s.Echo.HideBanner = true
	s.Echo.HidePort = true
	s.configureMiddleware()
	s.initRoutes()
	return s
}

func (s *Server) configureMiddleware() {
	s.Echo.Use(middleware.Recover())
	s.Echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogRemoteIP: true,
		LogMethod:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if s.metrics != nil {
				s.metrics.HTTP.RecordRequest(v.Method, c.Path(), v.Status, v.Latency)
			}
			fields := []logger.Field{
				logger.String("remote_ip", v.RemoteIP),
				logger.String("method", v.Method),
				logger.String("uri", v.URI),
				logger.Int("status", v.Status),
				logger.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				s.log.Warn("request failed", append(fields, logger.Error(v.Error))...)
				return nil
			}
			s.log.Debug("request", fields...)
			return nil
		},
	}))
}

func (s *Server) initRoutes() {
	api := s.Echo.Group("/api/v1")
	api.GET("/health", s.HealthCheck)
	api.GET("/workers", s.ListWorkers)
	api.GET("/workers/:id", s.GetWorker)
	if s.shape != nil {
		api.GET("/shape", s.GetShape)
		api.PUT("/shape", s.UpdateShape)
	}

	if s.metrics != nil {
		s.Echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}
	if s.scope != nil {
		s.Echo.GET("/ws/scope", echo.WrapHandler(s.scope))
	}
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.settings.Listen)
	if err != nil {
		return errors.New(err).
			Component(componentHTTP).
			Category(errors.CategoryNetwork).
			Context("listen", s.settings.Listen).
			Build()
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	s.Echo.Listener = ln

	go func() {
		if err := s.Echo.Start(""); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("HTTP server stopped", logger.Error(err))
		}
	}()

	s.log.Info("HTTP server listening", logger.String("address", ln.Addr().String()))
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.statusCache.Flush()
	if err := s.Echo.Shutdown(ctx); err != nil {
		return errors.New(err).
			Component(componentHTTP).
			Category(errors.CategoryNetwork).
			Context("operation", "shutdown").
			Build()
	}
	return nil
}
