package config

import (
	"fmt"
	"time"
)

// Default values applied when the configuration omits a field.
const (
	DefaultBaseURL      = "https://registry.luguber.info/operations"
	DefaultPollInterval = 30 * time.Second
	DefaultKeyPrefix    = "apq:"
	DefaultAdminPort    = 8787
	DefaultMetricsPath  = "/metrics"
	DefaultHealthPath   = "/health"
	DefaultEventSubject = "regsync.registry.updates"
	DefaultEventStream  = "REGSYNC"
)

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

// CompositeDefaultApplier applies defaults across all configuration domains.
type CompositeDefaultApplier struct {
	appliers []DefaultApplier
}

// NewDefaultApplier creates a composite default applier with all domain appliers.
func NewDefaultApplier() *CompositeDefaultApplier {
	return &CompositeDefaultApplier{
		appliers: []DefaultApplier{
			&RegistryDefaultApplier{},
			&CacheDefaultApplier{},
			&EventsDefaultApplier{},
			&MonitoringDefaultApplier{},
		},
	}
}

// ApplyDefaults applies defaults for all configuration domains.
func (c *CompositeDefaultApplier) ApplyDefaults(cfg *Config) error {
	for _, applier := range c.appliers {
		if err := applier.ApplyDefaults(cfg); err != nil {
			return fmt.Errorf("applying defaults for %s: %w", applier.Domain(), err)
		}
	}
	return nil
}

// applyDefaults applies default values to configuration.
func applyDefaults(config *Config) error {
	return NewDefaultApplier().ApplyDefaults(config)
}

// RegistryDefaultApplier handles registry configuration defaults.
type RegistryDefaultApplier struct{}

func (r *RegistryDefaultApplier) Domain() string { return "registry" }

func (r *RegistryDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Registry.BaseURL == "" {
		cfg.Registry.BaseURL = DefaultBaseURL
	}
	if cfg.Registry.PollInterval == "" {
		cfg.Registry.PollInterval = DefaultPollInterval.String()
	}
	return nil
}

// CacheDefaultApplier handles cache configuration defaults.
type CacheDefaultApplier struct{}

func (c *CacheDefaultApplier) Domain() string { return "cache" }

func (c *CacheDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = CacheBackendMemory
	}
	if cfg.Cache.KeyPrefix == "" {
		cfg.Cache.KeyPrefix = DefaultKeyPrefix
	}
	if cfg.Cache.Backend == CacheBackendSQLite && cfg.Cache.SQLite.Path == "" {
		cfg.Cache.SQLite.Path = "./regsync-cache.db"
	}
	if cfg.Cache.Backend == CacheBackendNATS {
		if cfg.Cache.NATS.URL == "" {
			cfg.Cache.NATS.URL = "nats://127.0.0.1:4222"
		}
		if cfg.Cache.NATS.Bucket == "" {
			cfg.Cache.NATS.Bucket = "regsync-apq"
		}
	}
	return nil
}

// EventsDefaultApplier handles event publishing defaults.
type EventsDefaultApplier struct{}

func (e *EventsDefaultApplier) Domain() string { return "events" }

func (e *EventsDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Events == nil || !cfg.Events.Enabled {
		return nil
	}
	if cfg.Events.URL == "" {
		cfg.Events.URL = "nats://127.0.0.1:4222"
	}
	if cfg.Events.Subject == "" {
		cfg.Events.Subject = DefaultEventSubject
	}
	if cfg.Events.Stream == "" {
		cfg.Events.Stream = DefaultEventStream
	}
	return nil
}

// MonitoringDefaultApplier handles monitoring configuration defaults.
type MonitoringDefaultApplier struct{}

func (m *MonitoringDefaultApplier) Domain() string { return "monitoring" }

func (m *MonitoringDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Monitoring == nil {
		// Metrics default on when the whole section is omitted.
		cfg.Monitoring = &MonitoringConfig{Metrics: MonitoringMetrics{Enabled: true}}
	}
	if cfg.Monitoring.AdminPort == 0 {
		cfg.Monitoring.AdminPort = DefaultAdminPort
	}
	if cfg.Monitoring.Metrics.Path == "" {
		cfg.Monitoring.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Monitoring.Health.Path == "" {
		cfg.Monitoring.Health.Path = DefaultHealthPath
	}
	cfg.Monitoring.Logging.Level = NormalizeLogLevel(string(cfg.Monitoring.Logging.Level))
	cfg.Monitoring.Logging.Format = NormalizeLogFormat(string(cfg.Monitoring.Logging.Format))
	return nil
}
