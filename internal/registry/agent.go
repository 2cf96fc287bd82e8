package registry

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"git.home.luguber.info/inful/regsync/internal/cache"
	"git.home.luguber.info/inful/regsync/internal/logfields"
	"git.home.luguber.info/inful/regsync/internal/metrics"
	"git.home.luguber.info/inful/regsync/internal/observability"
	"git.home.luguber.info/inful/regsync/internal/util/sets"
)

// State reports whether the agent currently has a check in flight.
type State string

const (
	StateIdle     State = "idle"
	StateChecking State = "checking"
)

// UpdatePublisher receives a notification after every applied manifest.
// A nil publisher disables publishing.
type UpdatePublisher interface {
	PublishUpdate(ctx context.Context, added, removed, operations int) error
}

// Agent polls the operation registry and reconciles the cache against the
// manifest it publishes. All mutable state (known signatures, ETag, last
// success) lives in memory only; a restart performs a full fetch and full
// cache repopulation.
type Agent struct {
	cfg      Config
	store    cache.Store
	recorder metrics.Recorder

	client      *http.Client
	manifestURL string
	publisher   UpdatePublisher

	scheduler gocron.Scheduler
	started   bool
	startMu   sync.Mutex

	// Concurrent CheckForUpdate callers are coalesced into one in-flight
	// check; all observe the same result.
	group      singleflight.Group
	checking   atomic.Bool
	checkCount atomic.Int64

	mu          sync.Mutex
	known       sets.Set[string]
	etag        string
	lastSuccess time.Time
}

// Option configures optional agent collaborators.
type Option func(*Agent)

// WithRecorder injects a metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(a *Agent) {
		if r != nil {
			a.recorder = r
		}
	}
}

// WithPublisher injects an update event publisher.
func WithPublisher(p UpdatePublisher) Option {
	return func(a *Agent) { a.publisher = p }
}

// WithHTTPClient overrides the HTTP client (tests inject httptest clients).
func WithHTTPClient(c *http.Client) Option {
	return func(a *Agent) {
		if c != nil {
			a.client = c
		}
	}
}

// NewAgent validates the configuration and constructs an agent. No network
// activity happens here; the first fetch runs in Start or CheckForUpdate.
func NewAgent(cfg Config, store cache.Store, opts ...Option) (*Agent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &Agent{
		cfg:         cfg,
		store:       store,
		recorder:    metrics.NoopRecorder{},
		client:      &http.Client{},
		manifestURL: cfg.ManifestURL(),
		known:       sets.New[string](),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Start performs one check synchronously, then arms the periodic poll. A
// failing initial check is logged, not returned: the host keeps serving with
// no manifest, and the poll recovers on a later tick.
func (a *Agent) Start(ctx context.Context) error {
	a.startMu.Lock()
	defer a.startMu.Unlock()

	if a.started {
		return nil
	}

	if _, err := a.CheckForUpdate(ctx); err != nil {
		slog.Error("Initial manifest check failed, continuing without manifest",
			logfields.Error(err))
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return err
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(a.cfg.PollInterval),
		gocron.NewTask(a.tick),
		gocron.WithName("manifest-poll"),
	)
	if err != nil {
		_ = scheduler.Shutdown()
		return err
	}

	scheduler.Start()
	a.scheduler = scheduler
	a.started = true

	slog.Info("Registry agent started",
		logfields.SchemaHash(a.cfg.SchemaHash),
		slog.Duration("poll_interval", a.cfg.PollInterval))
	return nil
}

// tick runs one scheduled check. Errors are logged here and never reach the
// scheduler, so a failing registry cannot kill the poll loop.
func (a *Agent) tick() {
	if _, err := a.CheckForUpdate(context.Background()); err != nil {
		slog.Error("Scheduled manifest check failed", logfields.Error(err))
	}
}

// Stop cancels future ticks. Idempotent and safe before Start. A check that
// is already in flight finishes on its own, bounded by the fetch timeout.
func (a *Agent) Stop() {
	a.startMu.Lock()
	defer a.startMu.Unlock()

	if a.scheduler != nil {
		if err := a.scheduler.Shutdown(); err != nil {
			slog.Error("Error shutting down scheduler", logfields.Error(err))
		}
		a.scheduler = nil
	}
	a.started = false
}

// CheckForUpdate fetches the manifest and reconciles the cache. Returns true
// when the manifest changed and was applied, false when the registry
// confirmed no change. Concurrent callers share one in-flight check and one
// network request; the error of that check is returned to every caller.
func (a *Agent) CheckForUpdate(ctx context.Context) (bool, error) {
	a.warnIfStale()

	checkID := uuid.NewString()
	checkCtx := observability.WithCheckID(ctx, checkID)

	result, err, _ := a.group.Do("check", func() (any, error) {
		a.checking.Store(true)
		defer a.checking.Store(false)

		collector := observability.GetMetricsCollector()
		collector.RecordCheckStart(checkID)

		spanCtx, span := observability.GetGlobalTracer().StartCheckSpan(checkCtx, checkID)

		start := time.Now()
		changed, err := a.tryUpdate(spanCtx)
		duration := time.Since(start)
		a.recorder.ObserveCheckDuration(duration)
		observability.EndSpan(span, err)

		if err != nil {
			a.recorder.IncCheckResult(metrics.CheckError)
			collector.RecordCheckEnd(duration, observability.OutcomeError)
			return false, err
		}

		now := time.Now()
		a.mu.Lock()
		a.lastSuccess = now
		a.mu.Unlock()
		a.recorder.SetLastSuccessTimestamp(now)

		if changed {
			a.recorder.IncCheckResult(metrics.CheckApplied)
			collector.RecordCheckEnd(duration, observability.OutcomeUpdated)
		} else {
			a.recorder.IncCheckResult(metrics.CheckUnchanged)
			collector.RecordCheckEnd(duration, observability.OutcomeUnchanged)
		}
		return changed, nil
	})
	if err != nil {
		return false, err
	}
	return result.(bool), nil
}

// warnIfStale emits a non-fatal warning when the last successful check is
// older than the staleness threshold. A zero lastSuccess counts as infinitely
// stale, so the warning fires until the first success.
func (a *Agent) warnIfStale() {
	a.mu.Lock()
	last := a.lastSuccess
	a.mu.Unlock()

	if last.IsZero() {
		slog.Warn("Operation manifest has never been synced")
		observability.GetMetricsCollector().RecordStaleWarning()
		return
	}
	if age := time.Since(last); age > StalenessThreshold {
		slog.Warn("Operation manifest is stale",
			slog.Duration("age", age),
			slog.Duration("threshold", StalenessThreshold))
		observability.GetMetricsCollector().RecordStaleWarning()
	}
}

// Snapshot is a read-only view of the agent for status reporting.
type Snapshot struct {
	State        State     `json:"state"`
	Operations   int       `json:"operations"`
	Checks       int64     `json:"checks"`
	LastSuccess  time.Time `json:"last_success,omitzero"`
	ETagHeld     bool      `json:"etag_held"`
	PollInterval string    `json:"poll_interval"`
}

// Snapshot returns the current agent state for the status endpoint.
func (a *Agent) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	state := StateIdle
	if a.checking.Load() {
		state = StateChecking
	}
	return Snapshot{
		State:        state,
		Operations:   a.known.Len(),
		Checks:       a.checkCount.Load(),
		LastSuccess:  a.lastSuccess,
		ETagHeld:     a.etag != "",
		PollInterval: a.cfg.PollInterval.String(),
	}
}

// KnownSignatures returns the sorted signatures from the last applied
// manifest.
func (a *Agent) KnownSignatures() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return sets.SortedValues(a.known)
}

// LastSuccess returns the time of the last successful check, zero if none.
func (a *Agent) LastSuccess() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastSuccess
}

// CacheKey exposes the namespaced cache key for a signature, for lookups by
// the admin API.
func (a *Agent) CacheKey(signature string) string {
	return a.cfg.CacheKey(signature)
}
