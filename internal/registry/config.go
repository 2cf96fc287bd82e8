// Package registry implements the reconciliation agent that keeps the local
// persisted-operation cache in sync with the remote operation manifest.
//
// The agent polls the manifest endpoint on a fixed interval with conditional
// requests, diffs the incoming operation set against the previously applied
// one, and applies the minimal add/remove mutations to the cache.
package registry

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"time"

	"git.home.luguber.info/inful/regsync/internal/config"
	"git.home.luguber.info/inful/regsync/internal/foundation/errors"
)

// DefaultKeyPrefix namespaces operation documents in the cache.
const DefaultKeyPrefix = "apq:"

// StalenessThreshold is how long the agent tolerates no successful check
// before warning. Advisory only; never affects correctness.
const StalenessThreshold = 60 * time.Second

// Config is the immutable agent configuration. Construct once, validate, and
// hand to NewAgent.
type Config struct {
	// ServiceID identifies the graph/service at the registry. Required.
	ServiceID string

	// SchemaHash is the fingerprint of the schema the manifest was published
	// against. Required.
	SchemaHash string

	// BaseURL is the registry endpoint prefix. The manifest URL is derived as
	// <base_url>/<sha256(service_id)>/<schema_hash>.
	BaseURL string

	// PollInterval between checks. Defaults to 30s.
	PollInterval time.Duration

	// KeyPrefix namespaces cache keys. Defaults to "apq:".
	KeyPrefix string

	// Debug enables verbose per-check logging.
	Debug bool

	// VerifySignatures recomputes each entry's signature from its document and
	// logs mismatches. Advisory only; mismatched entries are still applied.
	VerifySignatures bool
}

// FromAppConfig builds an agent Config from the loaded application config.
func FromAppConfig(cfg *config.Config) Config {
	return Config{
		ServiceID:        cfg.Registry.ServiceID,
		SchemaHash:       cfg.Registry.SchemaHash,
		BaseURL:          cfg.Registry.BaseURL,
		PollInterval:     cfg.Registry.Interval(),
		KeyPrefix:        cfg.Cache.KeyPrefix,
		VerifySignatures: cfg.Registry.VerifySignatures,
	}
}

// Validate checks required fields and fills defaults. Called by NewAgent
// before any network activity.
func (c *Config) Validate() error {
	if c.ServiceID == "" {
		return errors.ConfigError("service identifier is required").
			WithContext("field", "service_id").
			Build()
	}
	if c.SchemaHash == "" {
		return errors.ConfigError("schema fingerprint is required").
			WithContext("field", "schema_hash").
			Build()
	}
	if c.BaseURL == "" {
		c.BaseURL = config.DefaultBaseURL
	}
	if _, err := url.ParseRequestURI(c.BaseURL); err != nil {
		return errors.ConfigError("base URL is not a valid URL: " + c.BaseURL).
			WithContext("field", "base_url").
			Build()
	}
	if c.PollInterval <= 0 {
		c.PollInterval = config.DefaultPollInterval
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = DefaultKeyPrefix
	}
	return nil
}

// ServiceIDHash returns the stable one-way hash of the service identifier
// used in the manifest URL and in published events.
func (c Config) ServiceIDHash() string {
	sum := sha256.Sum256([]byte(c.ServiceID))
	return hex.EncodeToString(sum[:])
}

// ManifestURL returns the URL the agent polls, derived deterministically from
// the hashed service identifier and the schema fingerprint.
func (c Config) ManifestURL() string {
	return c.BaseURL + "/" + c.ServiceIDHash() + "/" + url.PathEscape(c.SchemaHash)
}

// FetchTimeout bounds one manifest request: generous enough to tolerate one
// slow round but still bounded.
func (c Config) FetchTimeout() time.Duration {
	return 3 * c.PollInterval
}

// CacheKey returns the namespaced cache key for an operation signature.
func (c Config) CacheKey(signature string) string {
	return c.KeyPrefix + signature
}
