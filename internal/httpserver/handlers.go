package httpserver

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/osci-render/osci-go/internal/handoff"
	"github.com/osci-render/osci-go/internal/logger"
	"github.com/osci-render/osci-go/internal/shape"
)

const workersCacheKey = "workers"

// ErrorResponse is the JSON body of every failed API call
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// HealthResponse is returned by GET /api/v1/health
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Uptime    string `json:"uptime"`
	Workers   int    `json:"workers"`
	Running   int    `json:"running"`
	Timestamp string `json:"timestamp"`
}

// HealthCheck reports liveness and a worker count summary.
func (s *Server) HealthCheck(c echo.Context) error {
	stats := s.workerStats()
	running := 0
	for i := range stats {
		if stats[i].State == handoff.StateRunning {
			running++
		}
	}
	return c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Version:   s.version,
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		Workers:   len(stats),
		Running:   running,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// ListWorkers returns the stats of every worker, cached for StatusCacheTTL.
func (s *Server) ListWorkers(c echo.Context) error {
	return c.JSON(http.StatusOK, s.workerStats())
}

// GetWorker returns the live stats of one worker.
func (s *Server) GetWorker(c echo.Context) error {
	id := c.Param("id")
	w, ok := s.workers.Get(id)
	if !ok {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "worker_not_found",
			Message: "no worker with id " + id,
			Code:    http.StatusNotFound,
		})
	}
	return c.JSON(http.StatusOK, w.Stats())
}

func (s *Server) workerStats() []handoff.Stats {
	if s.settings.StatusCacheTTL <= 0 {
		return s.collectStats()
	}
	if cached, ok := s.statusCache.Get(workersCacheKey); ok {
		if stats, ok := cached.([]handoff.Stats); ok {
			return stats
		}
	}
	stats := s.collectStats()
	s.statusCache.SetDefault(workersCacheKey, stats)
	return stats
}

func (s *Server) collectStats() []handoff.Stats {
	workers := s.workers.Workers()
	stats := make([]handoff.Stats, 0, len(workers))
	for _, w := range workers {
		stats = append(stats, w.Stats())
	}
	return stats
}

// ShapeParams is the JSON form of the live Lissajous parameters. A PUT body
// may carry any subset; omitted fields keep their current value.
type ShapeParams struct {
	FrequencyX    float64 `json:"frequency_x"`
	FrequencyY    float64 `json:"frequency_y"`
	Phase         float64 `json:"phase"`
	Amplitude     float64 `json:"amplitude"`
	RotationSpeed float64 `json:"rotation_speed"`
}

func shapeParams(cfg shape.LissajousConfig) ShapeParams {
	return ShapeParams{
		FrequencyX:    cfg.FrequencyX,
		FrequencyY:    cfg.FrequencyY,
		Phase:         cfg.Phase,
		Amplitude:     cfg.Amplitude,
		RotationSpeed: cfg.RotationSpeed,
	}
}

func (p ShapeParams) config() shape.LissajousConfig {
	return shape.LissajousConfig{
		FrequencyX:    p.FrequencyX,
		FrequencyY:    p.FrequencyY,
		Phase:         p.Phase,
		Amplitude:     p.Amplitude,
		RotationSpeed: p.RotationSpeed,
	}
}

// GetShape returns the current figure parameters.
func (s *Server) GetShape(c echo.Context) error {
	return c.JSON(http.StatusOK, shapeParams(s.shape.Config()))
}

// UpdateShape applies new figure parameters to the running generator. The
// change takes effect on the next generated sample without resetting phase.
func (s *Server) UpdateShape(c echo.Context) error {
	params := shapeParams(s.shape.Config())
	if err := c.Bind(&params); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_body",
			Message: "shape parameters must be a JSON object",
			Code:    http.StatusBadRequest,
		})
	}

	cfg := params.config()
	if err := cfg.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_shape",
			Message: err.Error(),
			Code:    http.StatusBadRequest,
		})
	}

	s.shape.Configure(cfg)
	s.log.Info("shape updated",
		logger.Float64("frequency_x", cfg.FrequencyX),
		logger.Float64("frequency_y", cfg.FrequencyY),
		logger.Float64("amplitude", cfg.Amplitude))
	return c.JSON(http.StatusOK, params)
}
