// Package daemon composes the registry agent with its collaborators: the
// cache backend, metrics recorder, optional event publisher, admin HTTP
// server, and config watcher. The daemon owns lifecycle; the agent owns
// reconciliation.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/regsync/internal/cache"
	"git.home.luguber.info/inful/regsync/internal/config"
	"git.home.luguber.info/inful/regsync/internal/events"
	"git.home.luguber.info/inful/regsync/internal/logfields"
	"git.home.luguber.info/inful/regsync/internal/metrics"
	"git.home.luguber.info/inful/regsync/internal/observability"
	"git.home.luguber.info/inful/regsync/internal/registry"
)

// Status represents the current state of the daemon.
type Status string

const (
	StatusStopped  Status = "stopped"
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusStopping Status = "stopping"
	StatusError    Status = "error"
)

// Daemon is the long-running composition of agent and collaborators.
type Daemon struct {
	configFilePath string
	status         atomic.Value // Status
	startTime      time.Time

	// mu guards the reloadable components below; a config reload swaps
	// them while the admin handlers keep serving.
	mu           sync.RWMutex
	config       *config.Config
	store        cache.Store
	registryProm *prom.Registry
	recorder     metrics.Recorder
	publisher    *events.Publisher
	agent        *registry.Agent

	httpServer    *HTTPServer
	configWatcher *ConfigWatcher
	collector     *observability.MetricsCollector
}

// NewDaemon creates a daemon without config file watching.
func NewDaemon(cfg *config.Config) (*Daemon, error) {
	return NewDaemonWithConfigFile(cfg, "")
}

// NewDaemonWithConfigFile creates a daemon; a non-empty configFilePath
// enables live reload on config changes.
func NewDaemonWithConfigFile(cfg *config.Config, configFilePath string) (*Daemon, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}

	d := &Daemon{
		config:         cfg,
		configFilePath: configFilePath,
		collector:      observability.NewMetricsCollector(),
	}
	d.status.Store(StatusStopped)

	if err := d.buildComponents(cfg); err != nil {
		return nil, err
	}

	d.httpServer = NewHTTPServer(cfg, d)

	if configFilePath != "" {
		watcher, err := NewConfigWatcher(configFilePath, d)
		if err != nil {
			return nil, fmt.Errorf("failed to create config watcher: %w", err)
		}
		d.configWatcher = watcher
	}

	return d, nil
}

// buildComponents constructs the cache store, recorder, publisher, and agent
// from a configuration. Used at construction and again on reload.
func (d *Daemon) buildComponents(cfg *config.Config) error {
	store, err := cache.New(cfg.Cache)
	if err != nil {
		return fmt.Errorf("failed to create cache backend: %w", err)
	}

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	var registryProm *prom.Registry
	if cfg.Monitoring != nil && cfg.Monitoring.Metrics.Enabled {
		registryProm = prom.NewRegistry()
		recorder = metrics.NewPrometheusRecorder(registryProm)
	}

	var publisher *events.Publisher
	if cfg.Events != nil && cfg.Events.Enabled {
		publisher, err = events.NewPublisher(cfg.Events)
		if err != nil {
			// Event publishing is best-effort; a missing broker must not keep
			// the agent from syncing.
			slog.Warn("Event publisher unavailable, continuing without events",
				logfields.Error(err))
			publisher = nil
		}
	}

	agentCfg := registry.FromAppConfig(cfg)
	opts := []registry.Option{registry.WithRecorder(recorder)}
	if publisher != nil {
		opts = append(opts, registry.WithPublisher(&updateNotifier{
			publisher: publisher,
			cfg:       agentCfg,
		}))
	}

	agent, err := registry.NewAgent(agentCfg, store, opts...)
	if err != nil {
		_ = store.Close()
		if publisher != nil {
			_ = publisher.Close()
		}
		return err
	}

	d.mu.Lock()
	d.store = store
	d.recorder = recorder
	d.registryProm = registryProm
	d.publisher = publisher
	d.agent = agent
	d.config = cfg
	d.mu.Unlock()
	return nil
}

// Start brings up the admin server, the agent, and the config watcher.
func (d *Daemon) Start(ctx context.Context) error {
	d.status.Store(StatusStarting)
	d.startTime = time.Now()

	cfg := d.GetConfig()
	slog.Info("Starting RegSync daemon",
		logfields.Backend(string(cfg.Cache.Backend)),
		logfields.SchemaHash(cfg.Registry.SchemaHash))

	if err := d.httpServer.Start(ctx); err != nil {
		d.status.Store(StatusError)
		return fmt.Errorf("failed to start admin server: %w", err)
	}

	if err := d.Agent().Start(ctx); err != nil {
		d.status.Store(StatusError)
		return fmt.Errorf("failed to start registry agent: %w", err)
	}

	if d.configWatcher != nil {
		if err := d.configWatcher.Start(ctx); err != nil {
			slog.Warn("Config watcher failed to start, continuing without live reload",
				logfields.Error(err))
		}
	}

	d.status.Store(StatusRunning)
	slog.Info("RegSync daemon running")
	return nil
}

// Stop shuts components down in reverse start order.
func (d *Daemon) Stop(ctx context.Context) error {
	d.status.Store(StatusStopping)
	slog.Info("Stopping RegSync daemon")

	if d.configWatcher != nil {
		if err := d.configWatcher.Stop(ctx); err != nil {
			slog.Error("Error stopping config watcher", logfields.Error(err))
		}
	}

	d.Agent().Stop()

	if err := d.httpServer.Stop(ctx); err != nil {
		slog.Error("Error stopping admin server", logfields.Error(err))
	}

	if pub := d.eventPublisher(); pub != nil {
		_ = pub.Close()
	}
	if err := d.cacheStore().Close(); err != nil {
		slog.Error("Error closing cache store", logfields.Error(err))
	}

	d.status.Store(StatusStopped)
	slog.Info("RegSync daemon stopped")
	return nil
}

// GetStatus returns the current daemon status.
func (d *Daemon) GetStatus() Status {
	if s, ok := d.status.Load().(Status); ok {
		return s
	}
	return StatusStopped
}

// GetStartTime returns when the daemon was started.
func (d *Daemon) GetStartTime() time.Time {
	return d.startTime
}

// GetConfig returns the active configuration.
func (d *Daemon) GetConfig() *config.Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.config
}

// Agent exposes the registry agent to the admin API.
func (d *Daemon) Agent() *registry.Agent {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.agent
}

func (d *Daemon) cacheStore() cache.Store {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.store
}

func (d *Daemon) eventPublisher() *events.Publisher {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.publisher
}

func (d *Daemon) promRegistry() *prom.Registry {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.registryProm
}

// ReloadConfig tears the agent and its collaborators down and rebuilds them
// from the new configuration. The admin server keeps running; port changes
// need a restart.
func (d *Daemon) ReloadConfig(ctx context.Context, newConfig *config.Config) error {
	slog.Info("Applying new configuration")

	d.Agent().Stop()
	if pub := d.eventPublisher(); pub != nil {
		_ = pub.Close()
	}
	if err := d.cacheStore().Close(); err != nil {
		slog.Error("Error closing cache store during reload", logfields.Error(err))
	}

	if err := d.buildComponents(newConfig); err != nil {
		d.status.Store(StatusError)
		return fmt.Errorf("failed to rebuild components: %w", err)
	}

	if err := d.Agent().Start(ctx); err != nil {
		d.status.Store(StatusError)
		return fmt.Errorf("failed to restart registry agent: %w", err)
	}

	d.status.Store(StatusRunning)
	slog.Info("Configuration reloaded successfully")
	return nil
}

// updateNotifier adapts the events publisher to the narrow interface the
// agent consumes.
type updateNotifier struct {
	publisher *events.Publisher
	cfg       registry.Config
}

func (n *updateNotifier) PublishUpdate(ctx context.Context, added, removed, operations int) error {
	return n.publisher.PublishUpdate(ctx, events.UpdateEvent{
		ID:            uuid.NewString(),
		ServiceIDHash: n.cfg.ServiceIDHash(),
		SchemaHash:    n.cfg.SchemaHash,
		Added:         added,
		Removed:       removed,
		Operations:    operations,
		Timestamp:     time.Now(),
	})
}
