package config

import (
	"git.home.luguber.info/inful/regsync/internal/foundation/normalization"
)

// CacheBackend enumerates supported cache backends.
type CacheBackend string

const (
	CacheBackendMemory CacheBackend = "memory"
	CacheBackendSQLite CacheBackend = "sqlite"
	CacheBackendNATS   CacheBackend = "nats"
)

var cacheBackendNormalizer = normalization.NewEnumNormalizer("cache backend", map[string]CacheBackend{
	"memory": CacheBackendMemory,
	"sqlite": CacheBackendSQLite,
	"nats":   CacheBackendNATS,
}, CacheBackendMemory)

// NormalizeCacheBackend maps a raw string onto a known backend, defaulting to memory.
func NormalizeCacheBackend(raw string) CacheBackend {
	return cacheBackendNormalizer.Normalize(raw)
}

// ValidateCacheBackend returns an error naming the valid options when raw is unrecognized.
func ValidateCacheBackend(raw string) (CacheBackend, error) {
	return cacheBackendNormalizer.NormalizeWithValidation(raw)
}

// LogLevel enumerates supported logging levels (mapped to slog levels at startup).
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var logLevelNormalizer = normalization.NewNormalizer(map[string]LogLevel{
	"debug": LogLevelDebug,
	"info":  LogLevelInfo,
	"warn":  LogLevelWarn,
	"error": LogLevelError,
}, LogLevelInfo)

func NormalizeLogLevel(raw string) LogLevel {
	return logLevelNormalizer.Normalize(raw)
}

// LogFormat enumerates supported log output formats.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

var logFormatNormalizer = normalization.NewNormalizer(map[string]LogFormat{
	"json": LogFormatJSON,
	"text": LogFormatText,
}, LogFormatText)

func NormalizeLogFormat(raw string) LogFormat {
	return logFormatNormalizer.Normalize(raw)
}
