package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Registry   RegistryConfig    `yaml:"registry"`
	Cache      CacheConfig       `yaml:"cache,omitempty"`
	Events     *EventsConfig     `yaml:"events,omitempty"`
	Monitoring *MonitoringConfig `yaml:"monitoring,omitempty"`
}

// RegistryConfig describes the remote operation registry to poll.
type RegistryConfig struct {
	// BaseURL is the registry endpoint prefix. The manifest URL is derived
	// as <base_url>/<sha256(service_id)>/<schema_hash>.
	BaseURL   string `yaml:"base_url,omitempty"`
	ServiceID string `yaml:"service_id"`
	// SchemaHash pins the schema fingerprint directly. Mutually exclusive
	// with SchemaFile.
	SchemaHash string `yaml:"schema_hash,omitempty"`
	// SchemaFile points at the local schema document; its fingerprint is
	// computed at load time.
	SchemaFile string `yaml:"schema_file,omitempty"`
	// PollInterval is a duration string ("30s", "2m"). Default 30s.
	PollInterval string `yaml:"poll_interval,omitempty"`
	// VerifySignatures recomputes each operation's signature from its
	// document and logs mismatches. Advisory only.
	VerifySignatures bool `yaml:"verify_signatures,omitempty"`
}

// Interval returns the parsed poll interval. Call after Load, which
// validates the duration string.
func (r RegistryConfig) Interval() time.Duration {
	d, err := time.ParseDuration(r.PollInterval)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// CacheConfig selects and configures the local cache backend.
type CacheConfig struct {
	Backend   CacheBackend      `yaml:"backend,omitempty"`    // memory|sqlite|nats
	KeyPrefix string            `yaml:"key_prefix,omitempty"` // prepended to signatures
	SQLite    SQLiteCacheConfig `yaml:"sqlite,omitempty"`
	NATS      NATSCacheConfig   `yaml:"nats,omitempty"`
}

// SQLiteCacheConfig configures the sqlite cache backend.
type SQLiteCacheConfig struct {
	Path string `yaml:"path,omitempty"`
}

// NATSCacheConfig configures the NATS JetStream KV cache backend.
type NATSCacheConfig struct {
	URL    string `yaml:"url,omitempty"`
	Bucket string `yaml:"bucket,omitempty"`
}

// EventsConfig configures update event publishing.
type EventsConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url,omitempty"`     // NATS server URL
	Subject string `yaml:"subject,omitempty"` // publish subject
	Stream  string `yaml:"stream,omitempty"`  // JetStream stream name
}

// MonitoringConfig represents monitoring and observability configuration.
type MonitoringConfig struct {
	AdminPort int               `yaml:"admin_port,omitempty"`
	Metrics   MonitoringMetrics `yaml:"metrics"`
	Health    MonitoringHealth  `yaml:"health"`
	Logging   MonitoringLogging `yaml:"logging"`
}

// MonitoringMetrics represents metrics configuration.
type MonitoringMetrics struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// MonitoringHealth represents health check configuration.
type MonitoringHealth struct {
	Path string `yaml:"path"`
}

// MonitoringLogging represents logging configuration.
type MonitoringLogging struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// Load loads configuration from the specified file.
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	if err := loadEnvFile(); err != nil {
		// Don't fail if .env doesn't exist, just log it
		fmt.Fprintf(os.Stderr, "Note: .env file not found or couldn't be loaded: %v\n", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Apply defaults before validation so canonical values drive the checks
	if err := applyDefaults(&config); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}

	// Resolve the schema fingerprint when configured via file
	if err := resolveSchemaHash(&config); err != nil {
		return nil, err
	}

	// Validate configuration
	if err := ValidateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// resolveSchemaHash fills Registry.SchemaHash from Registry.SchemaFile when needed.
func resolveSchemaHash(config *Config) error {
	if config.Registry.SchemaFile == "" || config.Registry.SchemaHash != "" {
		return nil
	}
	data, err := os.ReadFile(config.Registry.SchemaFile)
	if err != nil {
		return fmt.Errorf("failed to read schema file %s: %w", config.Registry.SchemaFile, err)
	}
	sum := sha256.Sum256(data)
	config.Registry.SchemaHash = hex.EncodeToString(sum[:])
	return nil
}

// Init creates a new configuration file with example content.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	exampleConfig := Config{
		Registry: RegistryConfig{
			BaseURL:      "https://registry.luguber.info/operations",
			ServiceID:    "checkout-service",
			SchemaFile:   "./schema.graphql",
			PollInterval: "30s",
		},
		Cache: CacheConfig{
			Backend:   CacheBackendMemory,
			KeyPrefix: "apq:",
			SQLite: SQLiteCacheConfig{
				Path: "./regsync-cache.db",
			},
			NATS: NATSCacheConfig{
				URL:    "nats://127.0.0.1:4222",
				Bucket: "regsync-apq",
			},
		},
		Events: &EventsConfig{
			Enabled: false,
			URL:     "nats://127.0.0.1:4222",
			Subject: "regsync.registry.updates",
			Stream:  "REGSYNC",
		},
		Monitoring: &MonitoringConfig{
			AdminPort: 8787,
			Metrics: MonitoringMetrics{
				Enabled: true,
				Path:    "/metrics",
			},
			Health: MonitoringHealth{
				Path: "/health",
			},
			Logging: MonitoringLogging{
				Level:  "info",
				Format: "json",
			},
		},
	}

	data, err := yaml.Marshal(&exampleConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
