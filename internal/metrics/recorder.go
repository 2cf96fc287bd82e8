package metrics

import "time"

// CheckResult enumerates outcomes of one manifest check.
type CheckResult string

const (
	CheckApplied   CheckResult = "applied"   // manifest changed and was reconciled
	CheckUnchanged CheckResult = "unchanged" // registry answered not-modified
	CheckError     CheckResult = "error"     // fetch or reconcile failed
)

// MutationOp labels cache mutations performed by the reconciler.
type MutationOp string

const (
	MutationSet    MutationOp = "set"
	MutationDelete MutationOp = "delete"
)

// Recorder defines observability hooks for manifest checks and cache
// reconciliation. Implementations may forward to Prometheus, OpenTelemetry,
// etc. All methods must be safe for nil receivers when using the NoopRecorder
// (allowing optional injection).
type Recorder interface {
	IncCheckResult(result CheckResult)
	ObserveCheckDuration(d time.Duration)
	SetManifestOperations(n int)
	IncCacheMutation(op MutationOp)
	IncCacheMutationError(op MutationOp)
	SetLastSuccessTimestamp(t time.Time)
	IncSignatureMismatch()
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncCheckResult(CheckResult)        {}
func (NoopRecorder) ObserveCheckDuration(time.Duration) {}
func (NoopRecorder) SetManifestOperations(int)          {}
func (NoopRecorder) IncCacheMutation(MutationOp)        {}
func (NoopRecorder) IncCacheMutationError(MutationOp)   {}
func (NoopRecorder) SetLastSuccessTimestamp(time.Time)  {}
func (NoopRecorder) IncSignatureMismatch()              {}
