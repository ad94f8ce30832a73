package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/specialistvlad/tempogrid/internal/ctxlog"
	"github.com/specialistvlad/tempogrid/internal/engine"
	"github.com/specialistvlad/tempogrid/internal/metrics"
	"github.com/specialistvlad/tempogrid/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	ctx        context.Context
	outW       io.Writer
	logger     *slog.Logger
	config     *Config
	registry   *registry.Registry
	engine     *engine.Engine
	metrics    *prometheus.Registry
	httpServer *http.Server
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App with its own logger, registry and metrics registry. A
// registry that fails validation for the configured backend is a
// programming error and panics.
func NewApp(outW io.Writer, cfg *Config, modules ...registry.Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	reg.Load(modules...)
	reg.Freeze()
	logger.Debug("All Go modules registered.", "count", len(modules))

	if err := reg.Validate(ctx, cfg.Backend); err != nil {
		panic(fmt.Errorf("backend %q: %w", cfg.Backend, err))
	}

	promReg := prometheus.NewRegistry()
	eng := engine.New(reg.Implementations, engine.Options{
		Backend:              cfg.Backend,
		ReleaseIntermediates: cfg.ReleaseIntermediates,
		Recorder:             metrics.NewCollector(promReg),
	})

	return &App{
		ctx:      ctx,
		outW:     outW,
		logger:   logger,
		config:   cfg,
		registry: reg,
		engine:   eng,
		metrics:  promReg,
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Metrics returns the registry the app's collectors are registered with.
func (a *App) Metrics() *prometheus.Registry {
	return a.metrics
}

// Context returns a context carrying the app's logger.
func (a *App) Context() context.Context {
	return a.ctx
}
