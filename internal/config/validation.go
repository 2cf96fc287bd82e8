package config

import (
	"fmt"
	"net/url"
	"time"

	"git.home.luguber.info/inful/regsync/internal/foundation/errors"
)

// ValidateConfig validates the complete configuration structure.
// Call after applyDefaults so canonical values drive the checks.
func ValidateConfig(cfg *Config) error {
	validator := newConfigurationValidator(cfg)
	return validator.validate()
}

// configurationValidator coordinates validation across all configuration domains.
type configurationValidator struct {
	config *Config
}

func newConfigurationValidator(config *Config) *configurationValidator {
	return &configurationValidator{config: config}
}

// validate performs configuration validation in order of dependencies.
func (cv *configurationValidator) validate() error {
	if err := cv.validateRegistry(); err != nil {
		return err
	}
	if err := cv.validateCache(); err != nil {
		return err
	}
	if err := cv.validateEvents(); err != nil {
		return err
	}
	return cv.validateMonitoring()
}

// validateRegistry checks the remote registry settings. Missing identifiers are
// fatal here, before any network activity.
func (cv *configurationValidator) validateRegistry() error {
	reg := cv.config.Registry

	if reg.ServiceID == "" {
		return errors.ConfigError("registry service_id is required").
			WithContext("field", "registry.service_id").
			Build()
	}
	if reg.SchemaHash == "" {
		return errors.ConfigError("registry schema fingerprint is required (set schema_hash or schema_file)").
			WithContext("field", "registry.schema_hash").
			Build()
	}

	if _, err := url.ParseRequestURI(reg.BaseURL); err != nil {
		return errors.ConfigError(fmt.Sprintf("registry base_url is not a valid URL: %s", reg.BaseURL)).
			WithContext("field", "registry.base_url").
			Build()
	}

	d, err := time.ParseDuration(reg.PollInterval)
	if err != nil {
		return errors.ConfigError(fmt.Sprintf("registry poll_interval is not a valid duration: %s", reg.PollInterval)).
			WithContext("field", "registry.poll_interval").
			Build()
	}
	if d <= 0 {
		return errors.ConfigError("registry poll_interval must be positive").
			WithContext("field", "registry.poll_interval").
			Build()
	}

	return nil
}

func (cv *configurationValidator) validateCache() error {
	backend, err := ValidateCacheBackend(string(cv.config.Cache.Backend))
	if err != nil {
		return errors.ConfigError(err.Error()).
			WithContext("field", "cache.backend").
			Build()
	}

	switch backend {
	case CacheBackendSQLite:
		if cv.config.Cache.SQLite.Path == "" {
			return errors.ConfigError("cache sqlite.path is required for the sqlite backend").
				WithContext("field", "cache.sqlite.path").
				Build()
		}
	case CacheBackendNATS:
		if cv.config.Cache.NATS.URL == "" {
			return errors.ConfigError("cache nats.url is required for the nats backend").
				WithContext("field", "cache.nats.url").
				Build()
		}
		if cv.config.Cache.NATS.Bucket == "" {
			return errors.ConfigError("cache nats.bucket is required for the nats backend").
				WithContext("field", "cache.nats.bucket").
				Build()
		}
	}

	return nil
}

func (cv *configurationValidator) validateEvents() error {
	ev := cv.config.Events
	if ev == nil || !ev.Enabled {
		return nil
	}
	if ev.URL == "" {
		return errors.ConfigError("events url is required when event publishing is enabled").
			WithContext("field", "events.url").
			Build()
	}
	if ev.Subject == "" {
		return errors.ConfigError("events subject is required when event publishing is enabled").
			WithContext("field", "events.subject").
			Build()
	}
	return nil
}

func (cv *configurationValidator) validateMonitoring() error {
	mon := cv.config.Monitoring
	if mon == nil {
		return nil
	}
	if mon.AdminPort < 0 || mon.AdminPort > 65535 {
		return errors.ConfigError(fmt.Sprintf("monitoring admin_port out of range: %d", mon.AdminPort)).
			WithContext("field", "monitoring.admin_port").
			Build()
	}
	return nil
}
