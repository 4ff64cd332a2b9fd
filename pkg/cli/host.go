package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/lsx/pkg/config"
	"github.com/platinummonkey/lsx/pkg/observability"
	"github.com/platinummonkey/lsx/pkg/plugins"
)

// Host bundles everything a command needs to talk to plugins.
type Host struct {
	RunID      string
	Config     *config.Config
	Registry   *plugins.Registry
	Dispatcher *plugins.Dispatcher
	Logger     *logrus.Logger
	Metrics    *observability.Metrics // nil unless metrics are enabled
	Gatherer   prometheus.Gatherer
	Shutdown   *observability.ShutdownManager
}

// HostOptions overrides parts of the host, mostly for tests.
type HostOptions struct {
	Opener plugins.Opener // defaults to native plugin loading
	Logger *logrus.Logger // defaults to the configured logger
}

// NewHost builds the registry and dispatcher described by cfg and runs
// discovery on the plugins directory. Load failures are logged and listed;
// they never fail host construction.
func NewHost(ctx context.Context, cfg *config.Config, opts HostOptions) (*Host, error) {
	logger := opts.Logger
	if logger == nil {
		logger = cfg.NewLogger()
	}

	policy, err := cfg.CompatibilityPolicy()
	if err != nil {
		return nil, fmt.Errorf("invalid compatibility policy: %w", err)
	}

	h := &Host{
		RunID:    observability.WithRunID(logger),
		Config:   cfg,
		Logger:   logger,
		Shutdown: observability.NewShutdownManager(logger, 5*time.Second),
	}

	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		h.Metrics = observability.NewMetrics(reg)
		h.Gatherer = reg
		if cfg.Metrics.Textfile != "" {
			path := cfg.Metrics.Textfile
			h.Shutdown.Register("metrics-textfile", func(context.Context) error {
				return observability.WriteTextfile(path, reg)
			})
		}
	}

	h.Registry = plugins.NewRegistry(plugins.Options{
		Opener:        opts.Opener,
		EnabledStore:  config.NewEnabledStore(cfg),
		Compatibility: policy,
		ProbeTimeout:  cfg.Plugins.ProbeTimeout,
		Logger:        logger,
		Metrics:       h.Metrics,
	})
	h.Shutdown.Register("plugin-registry", func(context.Context) error {
		return h.Registry.Close()
	})

	var cache *plugins.FieldCache
	if cfg.FieldCache.Size > 0 {
		cache = plugins.NewFieldCache(cfg.FieldCache.Size, cfg.FieldCache.TTL, h.Metrics)
	}
	h.Dispatcher = plugins.NewDispatcher(h.Registry, plugins.DispatcherOptions{
		ParallelThreshold: cfg.Listing.ParallelThreshold,
		Workers:           cfg.Listing.Workers,
		FieldCache:        cache,
		Logger:            logger,
	})

	if _, err := h.Registry.Discover(ctx, cfg.PluginsDir); err != nil {
		h.Close(ctx)
		return nil, fmt.Errorf("plugin discovery failed: %w", err)
	}
	return h, nil
}

// Close releases every plugin and flushes metrics.
func (h *Host) Close(ctx context.Context) error {
	return h.Shutdown.Shutdown(ctx)
}
