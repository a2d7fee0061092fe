// Package app assembles the engine, its background workers and the status
// server from settings.
package app

import (
	"context"
	"time"

	"github.com/osci-render/osci-go/internal/buildinfo"
	"github.com/osci-render/osci-go/internal/conf"
	"github.com/osci-render/osci-go/internal/cpuspec"
	"github.com/osci-render/osci-go/internal/engine"
	"github.com/osci-render/osci-go/internal/errors"
	"github.com/osci-render/osci-go/internal/handoff"
	"github.com/osci-render/osci-go/internal/httpserver"
	"github.com/osci-render/osci-go/internal/logger"
	"github.com/osci-render/osci-go/internal/mqtt"
	"github.com/osci-render/osci-go/internal/observability"
	"github.com/osci-render/osci-go/internal/recorder"
	"github.com/osci-render/osci-go/internal/scope"
	"github.com/osci-render/osci-go/internal/shape"
)

const (
	componentApp = "app"

	shutdownTimeout = 5 * time.Second
)

// Option configures an App.
type Option func(*App)

// WithLogger overrides the application logger.
func WithLogger(l logger.Logger) Option {
	return func(a *App) { a.log = l }
}

// WithDriver replaces the driver selected by settings.Audio.Driver.
func WithDriver(d engine.Driver) Option {
	return func(a *App) { a.driver = d }
}

// WithMQTTClient replaces the paho client used by the MQTT worker.
func WithMQTTClient(c mqtt.Client) Option {
	return func(a *App) { a.mqttClient = c }
}

// App is one configured oscigo process.
type App struct {
	settings *conf.Settings
	build    *buildinfo.Context
	log      logger.Logger

	metrics    *observability.Metrics
	engine     *engine.Engine
	driver     engine.Driver
	mqttClient mqtt.Client
	mqttConfig mqtt.Config

	recorder  *recorder.Recorder
	hub       *scope.Hub
	publisher *mqtt.Publisher
	server    *httpserver.Server
}

// New builds the engine and registers one worker per enabled consumer.
func New(settings *conf.Settings, build *buildinfo.Context, opts ...Option) (*App, error) {
	a := &App{
		settings: settings,
		build:    build,
		log:      logger.Global().Module(componentApp),
	}
	for _, opt := range opts {
		opt(a)
	}

	m, err := observability.NewMetrics()
	if err != nil {
		return nil, errors.New(err).
			Component(componentApp).
			Category(errors.CategorySystem).
			Context("operation", "init_metrics").
			Build()
	}
	a.metrics = m

	gen := shape.NewLissajous(shape.LissajousConfig{
		FrequencyX:    settings.Shape.FrequencyX,
		FrequencyY:    settings.Shape.FrequencyY,
		Phase:         settings.Shape.Phase,
		Amplitude:     settings.Shape.Amplitude,
		RotationSpeed: settings.Shape.RotationSpeed,
	}, settings.Audio.SampleRate)

	a.engine = engine.New(gen,
		engine.WithLogger(a.log.Module("engine")),
		engine.WithManagerOptions(handoff.WithManagerMetrics(m.Handoff)),
	)

	if a.driver == nil {
		if a.driver, err = engine.NewDriver(&settings.Audio, a.log.Module("driver")); err != nil {
			return nil, err
		}
	}

	if err := a.registerWorkers(); err != nil {
		_ = a.engine.Manager().Close(context.Background())
		return nil, err
	}

	if settings.HTTP.Enabled {
		serverOpts := []httpserver.Option{
			httpserver.WithLogger(a.log.Module("http")),
			httpserver.WithMetrics(m),
			httpserver.WithVersion(build.Version()),
			httpserver.WithShape(gen),
		}
		if a.hub != nil {
			serverOpts = append(serverOpts, httpserver.WithScope(a.hub))
		}
		a.server = httpserver.New(settings.HTTP, a.engine.Manager(), serverOpts...)
	}

	return a, nil
}

func (a *App) workerOptions(name string) []handoff.WorkerOption {
	return []handoff.WorkerOption{
		handoff.WithLogger(a.log.Module("handoff")),
		handoff.WithMetrics(a.metrics.Handoff),
		handoff.WithStopWarnTimeout(a.settings.Workers.StopWarnTimeout),
		handoff.WithErrorLogInterval(a.settings.Workers.ErrorLogInterval),
		handoff.WithID(name),
	}
}

func (a *App) register(name string, task handoff.Task) error {
	w, err := handoff.NewWorker(name, task, a.workerOptions(name)...)
	if err != nil {
		return err
	}
	return a.engine.Manager().Register(w)
}

func (a *App) registerWorkers() error {
	ws := &a.settings.Workers

	if ws.Recorder.Enabled {
		rec, err := recorder.New(ws.Recorder,
			recorder.WithLogger(a.log.Module("recorder")),
			recorder.WithMetrics(a.metrics.Recorder))
		if err != nil {
			return err
		}
		a.recorder = rec
		if err := a.register("recorder", rec); err != nil {
			return err
		}
	}

	if ws.Scope.Enabled {
		a.hub = scope.NewHub(ws.Scope,
			scope.WithLogger(a.log.Module("scope")),
			scope.WithMetrics(a.metrics.Scope))
		if err := a.register("scope", a.hub); err != nil {
			return err
		}
	}

	if ws.MQTT.Enabled {
		a.mqttConfig = mqtt.ConfigFromSettings(&ws.MQTT)
		if a.mqttClient == nil {
			client, err := mqtt.NewClient(a.mqttConfig,
				mqtt.WithClientLogger(a.log.Module("mqtt")),
				mqtt.WithClientMetrics(a.metrics.MQTT))
			if err != nil {
				return err
			}
			a.mqttClient = client
		}
		a.publisher = mqtt.NewPublisher(a.mqttClient, a.mqttConfig, ws.MQTT.Every,
			mqtt.WithPublisherLogger(a.log.Module("mqtt")))
		if err := a.register("mqtt", a.publisher); err != nil {
			return err
		}
	}

	return nil
}

// Engine returns the owned engine.
func (a *App) Engine() *engine.Engine { return a.engine }

// Server returns the status server, or nil when HTTP is disabled.
func (a *App) Server() *httpserver.Server { return a.server }

// Metrics returns the process metrics registry.
func (a *App) Metrics() *observability.Metrics { return a.metrics }

// Recorder returns the recorder worker's task, or nil when disabled.
func (a *App) Recorder() *recorder.Recorder { return a.recorder }

// Run starts the status server and the engine and blocks until ctx is done.
// A broker that cannot be reached at startup is logged; the MQTT worker then
// counts its failed publishes.
func (a *App) Run(ctx context.Context) error {
	if a.publisher != nil {
		connectCtx, cancel := context.WithTimeout(ctx, a.mqttConfig.ConnectTimeout)
		if err := a.publisher.Connect(connectCtx); err != nil {
			a.log.Warn("mqtt broker unavailable", logger.Error(err))
		}
		cancel()
	}

	if a.server != nil {
		if err := a.server.Start(); err != nil {
			_ = a.engine.Manager().Close(context.Background())
			return err
		}
	}

	a.log.Info("starting oscigo",
		logger.String("version", a.build.Version()),
		logger.String("driver", a.settings.Audio.Driver),
		logger.Int("workers", a.engine.Manager().Len()))

	a.log.Info("host cpu", cpuspec.GetCPUSpec().Fields()...)

	runErr := a.engine.Run(ctx, a.driver)

	var shutdownErr error
	if a.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		shutdownErr = a.server.Shutdown(shutdownCtx)
		cancel()
	}
	return errors.Join(runErr, shutdownErr)
}
