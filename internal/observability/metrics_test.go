package observability

import (
	"testing"
	"time"
)

func TestRecordCheckStart(t *testing.T) {
	mc := NewMetricsCollector()

	mc.RecordCheckStart("check-1")
	mc.RecordCheckStart("check-2")

	snapshot := mc.GetSnapshot()
	if snapshot.TotalChecks != 2 {
		t.Errorf("expected 2 checks, got %d", snapshot.TotalChecks)
	}
	if snapshot.CurrentInFlight != 2 {
		t.Errorf("expected 2 in flight, got %d", snapshot.CurrentInFlight)
	}
}

func TestRecordCheckEnd(t *testing.T) {
	mc := NewMetricsCollector()

	mc.RecordCheckStart("check-1")
	mc.RecordCheckEnd(100*time.Millisecond, OutcomeUpdated)

	snapshot := mc.GetSnapshot()
	if snapshot.CurrentInFlight != 0 {
		t.Errorf("expected 0 in flight, got %d", snapshot.CurrentInFlight)
	}
	if snapshot.ChecksByOutcome[OutcomeUpdated] != 1 {
		t.Errorf("expected 1 updated check, got %d", snapshot.ChecksByOutcome[OutcomeUpdated])
	}
	if snapshot.LastSuccess.IsZero() {
		t.Error("expected LastSuccess to be set after successful check")
	}
}

func TestRecordCheckEndError(t *testing.T) {
	mc := NewMetricsCollector()

	mc.RecordCheckStart("check-1")
	mc.RecordCheckEnd(50*time.Millisecond, OutcomeError)

	snapshot := mc.GetSnapshot()
	if snapshot.CheckErrors != 1 {
		t.Errorf("expected 1 check error, got %d", snapshot.CheckErrors)
	}
	if !snapshot.LastSuccess.IsZero() {
		t.Error("failed check must not update LastSuccess")
	}
}

func TestCheckDurationPercentiles(t *testing.T) {
	mc := NewMetricsCollector()

	durations := []time.Duration{
		10 * time.Millisecond,
		20 * time.Millisecond,
		30 * time.Millisecond,
		40 * time.Millisecond,
		50 * time.Millisecond,
	}

	for _, d := range durations {
		mc.RecordCheckStart("check")
		mc.RecordCheckEnd(d, OutcomeUnchanged)
	}

	snapshot := mc.GetSnapshot()
	if snapshot.AvgCheckDuration != 30*time.Millisecond {
		t.Errorf("expected avg 30ms, got %v", snapshot.AvgCheckDuration)
	}
	if snapshot.P50CheckDuration != 30*time.Millisecond {
		t.Errorf("expected p50 30ms, got %v", snapshot.P50CheckDuration)
	}
	if snapshot.P99CheckDuration != 50*time.Millisecond {
		t.Errorf("expected p99 50ms, got %v", snapshot.P99CheckDuration)
	}
}

func TestRecordCacheHitMiss(t *testing.T) {
	mc := NewMetricsCollector()

	for i := 0; i < 3; i++ {
		mc.RecordCacheHit("memory")
	}
	mc.RecordCacheMiss("memory")

	snapshot := mc.GetSnapshot()
	if snapshot.CacheHits != 3 {
		t.Errorf("expected 3 hits, got %d", snapshot.CacheHits)
	}
	if snapshot.CacheMisses != 1 {
		t.Errorf("expected 1 miss, got %d", snapshot.CacheMisses)
	}
	if snapshot.CacheHitRate != 0.75 {
		t.Errorf("expected hit rate 0.75, got %f", snapshot.CacheHitRate)
	}
}

func TestRecordCacheMutation(t *testing.T) {
	mc := NewMetricsCollector()

	mc.RecordCacheMutation("set", 5)
	mc.RecordCacheMutation("delete", 2)
	mc.RecordCacheMutation("set", 1)

	snapshot := mc.GetSnapshot()
	if snapshot.CacheMutations["set"] != 6 {
		t.Errorf("expected 6 sets, got %d", snapshot.CacheMutations["set"])
	}
	if snapshot.CacheMutations["delete"] != 2 {
		t.Errorf("expected 2 deletes, got %d", snapshot.CacheMutations["delete"])
	}
}

func TestRecordManifestOperations(t *testing.T) {
	mc := NewMetricsCollector()

	mc.RecordManifestOperations(42)
	mc.RecordManifestOperations(40)

	snapshot := mc.GetSnapshot()
	if snapshot.ManifestOperations != 40 {
		t.Errorf("expected last value 40, got %d", snapshot.ManifestOperations)
	}
}

func TestRecordEvents(t *testing.T) {
	mc := NewMetricsCollector()

	mc.RecordEventPublished()
	mc.RecordEventPublished()
	mc.RecordEventError()

	snapshot := mc.GetSnapshot()
	if snapshot.EventsPublished != 2 {
		t.Errorf("expected 2 published, got %d", snapshot.EventsPublished)
	}
	if snapshot.EventErrors != 1 {
		t.Errorf("expected 1 error, got %d", snapshot.EventErrors)
	}
}

func TestRecordStaleWarning(t *testing.T) {
	mc := NewMetricsCollector()

	mc.RecordStaleWarning()
	mc.RecordStaleWarning()

	snapshot := mc.GetSnapshot()
	if snapshot.StaleWarnings != 2 {
		t.Errorf("expected 2 stale warnings, got %d", snapshot.StaleWarnings)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	mc := NewMetricsCollector()
	mc.RecordCacheMutation("set", 1)

	snapshot := mc.GetSnapshot()
	snapshot.CacheMutations["set"] = 999

	fresh := mc.GetSnapshot()
	if fresh.CacheMutations["set"] != 1 {
		t.Error("mutating a snapshot must not affect the collector")
	}
}

func TestFormatMetrics(t *testing.T) {
	mc := NewMetricsCollector()
	mc.RecordCheckStart("check-1")
	mc.RecordCheckEnd(25*time.Millisecond, OutcomeUpdated)
	mc.RecordCacheMutation("set", 3)

	output := mc.GetSnapshot().FormatMetrics()

	if !contains(output, "RegSync Metrics") {
		t.Error("expected header in formatted metrics")
	}
	if !contains(output, "Total Checks: 1") {
		t.Error("expected check count in formatted metrics")
	}
}

func TestFormatMetricsNeverSucceeded(t *testing.T) {
	mc := NewMetricsCollector()

	output := mc.GetSnapshot().FormatMetrics()
	if !contains(output, "Last Success: never") {
		t.Error("expected 'never' for zero LastSuccess")
	}
}

func TestGlobalMetricsCollector(t *testing.T) {
	ResetMetricsCollector()
	defer ResetMetricsCollector()

	mc1 := GetMetricsCollector()
	mc2 := GetMetricsCollector()

	if mc1 != mc2 {
		t.Error("expected the same global collector instance")
	}

	custom := NewMetricsCollector()
	SetMetricsCollector(custom)
	if GetMetricsCollector() != custom {
		t.Error("expected custom collector after SetMetricsCollector")
	}
}

// Helper function
func contains(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
