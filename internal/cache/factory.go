package cache

import (
	"fmt"

	"git.home.luguber.info/inful/regsync/internal/config"
)

// New constructs the cache backend selected by the configuration.
func New(cfg config.CacheConfig) (Store, error) {
	switch cfg.Backend {
	case config.CacheBackendMemory, "":
		return NewMemoryStore(), nil
	case config.CacheBackendSQLite:
		return NewSQLiteStore(cfg.SQLite.Path)
	case config.CacheBackendNATS:
		return NewNATSStore(cfg.NATS.URL, cfg.NATS.Bucket)
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", cfg.Backend)
	}
}
