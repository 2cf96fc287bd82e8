package observability

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Check outcomes tracked by the collector. The agent reports one per
// completed check; anything else counts as an error.
const (
	OutcomeUpdated   = "updated"
	OutcomeUnchanged = "unchanged"
	OutcomeError     = "error"
)

// MetricsCollector tracks application metrics.
type MetricsCollector struct {
	mu sync.RWMutex

	// Check metrics
	checkCount      int64           // Total checks started
	checkDurations  []time.Duration // Individual check durations (for percentiles)
	checkErrors     int64           // Total failed checks
	checksByOutcome map[string]int64
	currentInFlight int64
	lastSuccess     time.Time
	staleWarnings   int64

	// Cache metrics
	cacheHits      int64
	cacheMisses    int64
	cacheMutations map[string]int64 // operation -> count

	// Manifest metrics
	manifestOperations int64 // operation count in the last applied manifest

	// Event metrics
	eventsPublished int64
	eventErrors     int64
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		checksByOutcome: make(map[string]int64),
		cacheMutations:  make(map[string]int64),
	}
}

// RecordCheckStart records the start of a manifest check.
func (mc *MetricsCollector) RecordCheckStart(checkID string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.checkCount++
	mc.currentInFlight++

	slog.Debug("Check started", "check_id", checkID, "check.count", mc.checkCount)
}

// RecordCheckEnd records the end of a manifest check with its outcome.
func (mc *MetricsCollector) RecordCheckEnd(duration time.Duration, outcome string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.checkDurations = append(mc.checkDurations, duration)
	mc.currentInFlight--
	mc.checksByOutcome[outcome]++

	if outcome == OutcomeError {
		mc.checkErrors++
		slog.Debug("Check failed", "duration_ms", duration.Milliseconds())
		return
	}

	mc.lastSuccess = time.Now()
	slog.Debug("Check completed", "outcome", outcome, "duration_ms", duration.Milliseconds())
}

// RecordStaleWarning records a check that ran past the staleness threshold.
func (mc *MetricsCollector) RecordStaleWarning() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.staleWarnings++
	slog.Debug("Stale check recorded", "stale_warnings", mc.staleWarnings)
}

// RecordCacheHit records a cache hit.
func (mc *MetricsCollector) RecordCacheHit(backend string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.cacheHits++
	slog.Debug("Cache hit", "backend", backend, "total_hits", mc.cacheHits)
}

// RecordCacheMiss records a cache miss.
func (mc *MetricsCollector) RecordCacheMiss(backend string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.cacheMisses++
	slog.Debug("Cache miss", "backend", backend, "total_misses", mc.cacheMisses)
}

// RecordCacheMutation records applied cache writes or deletes.
func (mc *MetricsCollector) RecordCacheMutation(operation string, count int64) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.cacheMutations[operation] += count
	slog.Debug("Cache mutation", "operation", operation, "count", count)
}

// RecordManifestOperations records the operation count of the last applied manifest.
func (mc *MetricsCollector) RecordManifestOperations(count int64) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.manifestOperations = count
}

// RecordEventPublished records a successfully published update event.
func (mc *MetricsCollector) RecordEventPublished() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.eventsPublished++
}

// RecordEventError records a failed event publish.
func (mc *MetricsCollector) RecordEventError() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.eventErrors++
}

// GetSnapshot returns a snapshot of current metrics.
func (mc *MetricsCollector) GetSnapshot() MetricsSnapshot {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	snapshot := MetricsSnapshot{
		Timestamp:          time.Now(),
		TotalChecks:        mc.checkCount,
		CurrentInFlight:    mc.currentInFlight,
		CheckErrors:        mc.checkErrors,
		ChecksByOutcome:    copyStringInt64Map(mc.checksByOutcome),
		LastSuccess:        mc.lastSuccess,
		StaleWarnings:      mc.staleWarnings,
		CacheHits:          mc.cacheHits,
		CacheMisses:        mc.cacheMisses,
		CacheHitRate:       calculateHitRate(mc.cacheHits, mc.cacheMisses),
		CacheMutations:     copyStringInt64Map(mc.cacheMutations),
		ManifestOperations: mc.manifestOperations,
		EventsPublished:    mc.eventsPublished,
		EventErrors:        mc.eventErrors,
	}

	// Calculate percentiles
	if len(mc.checkDurations) > 0 {
		snapshot.P50CheckDuration = calculatePercentile(mc.checkDurations, 50)
		snapshot.P95CheckDuration = calculatePercentile(mc.checkDurations, 95)
		snapshot.P99CheckDuration = calculatePercentile(mc.checkDurations, 99)
		snapshot.AvgCheckDuration = calculateAverage(mc.checkDurations)
	}

	return snapshot
}

// MetricsSnapshot represents a point-in-time snapshot of metrics.
type MetricsSnapshot struct {
	Timestamp          time.Time
	TotalChecks        int64
	CurrentInFlight    int64
	CheckErrors        int64
	ChecksByOutcome    map[string]int64
	LastSuccess        time.Time
	StaleWarnings      int64
	P50CheckDuration   time.Duration
	P95CheckDuration   time.Duration
	P99CheckDuration   time.Duration
	AvgCheckDuration   time.Duration
	CacheHits          int64
	CacheMisses        int64
	CacheHitRate       float64
	CacheMutations     map[string]int64
	ManifestOperations int64
	EventsPublished    int64
	EventErrors        int64
}

// FormatMetrics returns a human-readable string of metrics.
func (s MetricsSnapshot) FormatMetrics() string {
	successRate := 0.0
	if s.TotalChecks > 0 {
		successRate = float64(s.TotalChecks-s.CheckErrors) / float64(s.TotalChecks) * 100
	}

	lastSuccess := "never"
	if !s.LastSuccess.IsZero() {
		lastSuccess = s.LastSuccess.Format(time.RFC3339)
	}

	output := fmt.Sprintf(`
=== RegSync Metrics ===
Timestamp: %s

Check Metrics:
  Total Checks: %d
  In Flight: %d
  Check Errors: %d
  Success Rate: %.2f%%
  Last Success: %s
  Stale Warnings: %d

Check Durations:
  Average: %v
  P50: %v
  P95: %v
  P99: %v

Cache Metrics:
  Cache Hits: %d
  Cache Misses: %d
  Hit Rate: %.2f%%
  Mutations: %v

Manifest Metrics:
  Known Operations: %d

Event Metrics:
  Published: %d
  Errors: %d

Outcome Breakdown: %v
======================
`,
		s.Timestamp.Format(time.RFC3339),
		s.TotalChecks,
		s.CurrentInFlight,
		s.CheckErrors,
		successRate,
		lastSuccess,
		s.StaleWarnings,
		s.AvgCheckDuration,
		s.P50CheckDuration,
		s.P95CheckDuration,
		s.P99CheckDuration,
		s.CacheHits,
		s.CacheMisses,
		s.CacheHitRate*100,
		s.CacheMutations,
		s.ManifestOperations,
		s.EventsPublished,
		s.EventErrors,
		s.ChecksByOutcome,
	)

	return output
}

// Helper functions

func copyStringInt64Map(m map[string]int64) map[string]int64 {
	result := make(map[string]int64)
	for k, v := range m {
		result[k] = v
	}
	return result
}

func calculateHitRate(hits, misses int64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

func calculateAverage(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var total time.Duration
	for _, d := range durations {
		total += d
	}
	return total / time.Duration(len(durations))
}

func calculatePercentile(durations []time.Duration, percentile int) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	// Sort durations for accurate percentile calculation
	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	// Calculate index
	index := (len(sorted) * percentile) / 100
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}

// GlobalMetricsCollector holds the singleton metrics collector.
var globalMetricsCollector *MetricsCollector

// InitMetricsCollector initializes the global metrics collector.
func InitMetricsCollector() *MetricsCollector {
	if globalMetricsCollector == nil {
		globalMetricsCollector = NewMetricsCollector()
	}
	return globalMetricsCollector
}

// GetMetricsCollector returns the global metrics collector.
func GetMetricsCollector() *MetricsCollector {
	if globalMetricsCollector == nil {
		return InitMetricsCollector()
	}
	return globalMetricsCollector
}

// SetMetricsCollector sets the global metrics collector (for testing).
func SetMetricsCollector(mc *MetricsCollector) {
	globalMetricsCollector = mc
}

// ResetMetricsCollector resets the global metrics collector (for testing).
func ResetMetricsCollector() {
	globalMetricsCollector = nil
}
