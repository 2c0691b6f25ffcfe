package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/zen-systems/toolroute/pkg/adapter"
	"github.com/zen-systems/toolroute/pkg/config"
	"github.com/zen-systems/toolroute/pkg/dispatch"
	"github.com/zen-systems/toolroute/pkg/logging"
	"github.com/zen-systems/toolroute/pkg/metrics"
	"github.com/zen-systems/toolroute/pkg/reasoning"
	"github.com/zen-systems/toolroute/pkg/router"
)

// app holds the wired components shared by every command.
type app struct {
	cfg        *config.Config
	logger     zerolog.Logger
	registry   *prometheus.Registry
	engine     *reasoning.Engine
	classifier *router.Classifier
	dispatcher *dispatch.Dispatcher
}

func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return newAppFromConfig(cfg, logging.New(cfg.Logging))
}

// newAppFromConfig validates cfg and wires every component. A provider that
// cannot be built is a startup error.
func newAppFromConfig(cfg *config.Config, logger zerolog.Logger) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// One client per process so the rate limiter spans sessions.
	client, err := adapter.New(cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s adapter: %w", cfg.Model.Provider, err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	engine := reasoning.NewEngine(
		reasoning.WithAdapter(client),
		reasoning.WithLimits(cfg.Reasoning),
		reasoning.WithLogger(logger),
		reasoning.WithMetrics(m),
	)

	tools := router.ToolsFromConfig(cfg.Tools)
	classifier, err := router.NewClassifier(tools, cfg.Classifier, engine,
		router.WithLogger(logger),
		router.WithMetrics(m),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build classifier: %w", err)
	}

	executors, err := dispatch.GenerationExecutors(tools, engine, cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to build executors: %w", err)
	}
	registry, err := dispatch.NewRegistry(executors...)
	if err != nil {
		return nil, fmt.Errorf("failed to build registry: %w", err)
	}

	return &app{
		cfg:        cfg,
		logger:     logger,
		registry:   reg,
		engine:     engine,
		classifier: classifier,
		dispatcher: dispatch.NewDispatcher(registry, dispatch.WithLogger(logger), dispatch.WithMetrics(m)),
	}, nil
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg, nil
}
