package metrics

import (
	"testing"
	"time"
)

// Compile-time checks that both implementations satisfy the interface.
var (
	_ Recorder = NoopRecorder{}
	_ Recorder = (*PrometheusRecorder)(nil)
)

func TestNoopRecorderIsSafe(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.IncCheckResult(CheckApplied)
	r.ObserveCheckDuration(time.Second)
	r.SetManifestOperations(3)
	r.IncCacheMutation(MutationSet)
	r.IncCacheMutationError(MutationDelete)
	r.SetLastSuccessTimestamp(time.Now())
	r.IncSignatureMismatch()
}

func TestNilPrometheusRecorderIsSafe(t *testing.T) {
	var p *PrometheusRecorder
	p.IncCheckResult(CheckError)
	p.ObserveCheckDuration(time.Second)
	p.SetManifestOperations(0)
	p.IncCacheMutation(MutationSet)
	p.IncCacheMutationError(MutationSet)
	p.SetLastSuccessTimestamp(time.Time{})
	p.IncSignatureMismatch()
}
