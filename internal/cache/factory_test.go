package cache

import (
	"git.home.luguber.info/inful/regsync/internal/config"
)

func configFor(backend, sqlitePath string) config.CacheConfig {
	return config.CacheConfig{
		Backend: config.CacheBackend(backend),
		SQLite:  config.SQLiteCacheConfig{Path: sqlitePath},
	}
}
