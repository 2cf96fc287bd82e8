package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once               sync.Once
	checkResults       *prom.CounterVec
	checkDuration      prom.Histogram
	manifestOperations prom.Gauge
	cacheMutations     *prom.CounterVec
	cacheMutationErrs  *prom.CounterVec
	lastSuccess        prom.Gauge
	sigMismatches      prom.Counter
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.checkResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "regsync",
			Name:      "checks_total",
			Help:      "Manifest check counts by result",
		}, []string{"result"})
		pr.checkDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "regsync",
			Name:      "check_duration_seconds",
			Help:      "Duration of manifest checks including reconciliation",
			Buckets:   prom.DefBuckets,
		})
		pr.manifestOperations = prom.NewGauge(prom.GaugeOpts{
			Namespace: "regsync",
			Name:      "manifest_operations",
			Help:      "Operations in the last applied manifest",
		})
		pr.cacheMutations = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "regsync",
			Name:      "cache_mutations_total",
			Help:      "Cache mutations performed by the reconciler",
		}, []string{"op"})
		pr.cacheMutationErrs = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "regsync",
			Name:      "cache_mutation_errors_total",
			Help:      "Failed cache mutations by operation",
		}, []string{"op"})
		pr.lastSuccess = prom.NewGauge(prom.GaugeOpts{
			Namespace: "regsync",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix timestamp of the last successful check",
		})
		pr.sigMismatches = prom.NewCounter(prom.CounterOpts{
			Namespace: "regsync",
			Name:      "signature_mismatches_total",
			Help:      "Manifest entries whose recomputed signature disagreed with the published one",
		})
		reg.MustRegister(pr.checkResults, pr.checkDuration, pr.manifestOperations,
			pr.cacheMutations, pr.cacheMutationErrs, pr.lastSuccess, pr.sigMismatches)
	})
	return pr
}

func (p *PrometheusRecorder) IncCheckResult(result CheckResult) {
	if p == nil || p.checkResults == nil {
		return
	}
	p.checkResults.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveCheckDuration(d time.Duration) {
	if p == nil || p.checkDuration == nil {
		return
	}
	p.checkDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) SetManifestOperations(n int) {
	if p == nil || p.manifestOperations == nil {
		return
	}
	p.manifestOperations.Set(float64(n))
}

func (p *PrometheusRecorder) IncCacheMutation(op MutationOp) {
	if p == nil || p.cacheMutations == nil {
		return
	}
	p.cacheMutations.WithLabelValues(string(op)).Inc()
}

func (p *PrometheusRecorder) IncCacheMutationError(op MutationOp) {
	if p == nil || p.cacheMutationErrs == nil {
		return
	}
	p.cacheMutationErrs.WithLabelValues(string(op)).Inc()
}

func (p *PrometheusRecorder) SetLastSuccessTimestamp(t time.Time) {
	if p == nil || p.lastSuccess == nil {
		return
	}
	p.lastSuccess.Set(float64(t.Unix()))
}

func (p *PrometheusRecorder) IncSignatureMismatch() {
	if p == nil || p.sigMismatches == nil {
		return
	}
	p.sigMismatches.Inc()
}
