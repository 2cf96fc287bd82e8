package registry

import (
	"context"

	"git.home.luguber.info/inful/regsync/internal/foundation/errors"
	"git.home.luguber.info/inful/regsync/internal/logfields"
	"git.home.luguber.info/inful/regsync/internal/metrics"
	"git.home.luguber.info/inful/regsync/internal/observability"
	"git.home.luguber.info/inful/regsync/internal/signature"
	"git.home.luguber.info/inful/regsync/internal/util/sets"
)

// UpdateManifest reconciles the cache against the incoming manifest: adds
// cache entries for newly-introduced signatures, deletes entries for removed
// ones, and leaves unchanged signatures untouched (documents are
// content-addressed by signature and never re-written).
//
// Performs no network I/O and is safe to call directly with a hand-built
// manifest. On a rejected manifest neither the cache nor the known signature
// set is modified.
func (a *Agent) UpdateManifest(ctx context.Context, m *Manifest) (added, removed int, err error) {
	if !m.Valid() {
		return 0, 0, errors.ManifestError("invalid manifest format").
			WithContext("version", manifestVersionOf(m)).
			Build()
	}

	incoming := m.SignatureMap()
	if a.cfg.VerifySignatures {
		a.verifySignatures(ctx, incoming)
	}

	incomingSet := sets.New[string]()
	for sig := range incoming {
		incomingSet.Add(sig)
	}

	a.mu.Lock()
	known := a.known
	a.mu.Unlock()

	// Adds: incoming signatures the previous manifest didn't have.
	for sig, doc := range incoming {
		if known.Has(sig) {
			continue
		}
		if cerr := a.store.Set(ctx, a.cfg.CacheKey(sig), doc); cerr != nil {
			// Mutation failures are logged and counted but never abort the
			// sweep; the next full fetch converges the cache again.
			a.recorder.IncCacheMutationError(metrics.MutationSet)
			observability.WarnContext(ctx, "Failed to cache operation",
				logfields.Signature(sig), logfields.Error(cerr))
			continue
		}
		a.recorder.IncCacheMutation(metrics.MutationSet)
		added++
	}

	// Removals: previously known signatures absent from the incoming set.
	for sig := range known {
		if incomingSet.Has(sig) {
			continue
		}
		if cerr := a.store.Delete(ctx, a.cfg.CacheKey(sig)); cerr != nil {
			a.recorder.IncCacheMutationError(metrics.MutationDelete)
			observability.WarnContext(ctx, "Failed to evict operation",
				logfields.Signature(sig), logfields.Error(cerr))
			continue
		}
		a.recorder.IncCacheMutation(metrics.MutationDelete)
		removed++
	}

	// Replace the known set wholesale, unconditionally, so the next diff
	// computes removals correctly even when this round added nothing.
	a.mu.Lock()
	a.known = incomingSet
	a.mu.Unlock()

	a.recorder.SetManifestOperations(incomingSet.Len())

	collector := observability.GetMetricsCollector()
	collector.RecordManifestOperations(int64(incomingSet.Len()))
	if added > 0 {
		collector.RecordCacheMutation("set", int64(added))
	}
	if removed > 0 {
		collector.RecordCacheMutation("delete", int64(removed))
	}

	if added > 0 || removed > 0 {
		observability.InfoContext(ctx, "Operation manifest applied",
			logfields.Added(added),
			logfields.Removed(removed),
			logfields.Operations(incomingSet.Len()))
		a.publishUpdate(ctx, added, removed, incomingSet.Len())
	} else if a.cfg.Debug {
		observability.DebugContext(ctx, "Operation manifest applied with no changes",
			logfields.Operations(incomingSet.Len()))
	}

	return added, removed, nil
}

// verifySignatures recomputes each entry's signature from its document. A
// mismatch is advisory: logged and counted, never rejected.
func (a *Agent) verifySignatures(ctx context.Context, incoming map[string]string) {
	for sig, doc := range incoming {
		if !signature.Verify(doc, sig) {
			a.recorder.IncSignatureMismatch()
			observability.WarnContext(ctx, "Manifest signature does not match document",
				logfields.Signature(sig))
		}
	}
}

// publishUpdate notifies the optional event publisher. Failures are warnings;
// a lost event never fails a check.
func (a *Agent) publishUpdate(ctx context.Context, added, removed, operations int) {
	if a.publisher == nil {
		return
	}
	if err := a.publisher.PublishUpdate(ctx, added, removed, operations); err != nil {
		observability.WarnContext(ctx, "Failed to publish registry update event",
			logfields.Error(err))
	}
}

func manifestVersionOf(m *Manifest) int {
	if m == nil {
		return 0
	}
	return m.Version
}
