package registry

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strings"

	"git.home.luguber.info/inful/regsync/internal/foundation/errors"
	"git.home.luguber.info/inful/regsync/internal/logfields"
	"git.home.luguber.info/inful/regsync/internal/observability"
)

// maxErrorBodyBytes caps how much of an error response body is carried as
// diagnostic detail.
const maxErrorBodyBytes = 512

// tryUpdate performs one conditional fetch of the manifest. Returns true when
// the manifest changed and was applied, false when the registry answered
// not-modified. The held ETag is only replaced after a successful apply, so a
// failed fetch never corrupts conditional-request state.
func (a *Agent) tryUpdate(ctx context.Context) (bool, error) {
	a.checkCount.Add(1)

	reqCtx, cancel := context.WithTimeout(ctx, a.cfg.FetchTimeout())
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, a.manifestURL, nil)
	if err != nil {
		return false, errors.NetworkError("failed to build manifest request").
			WithContext("url", a.manifestURL).
			Build()
	}
	req.Header.Set("Accept", "application/json")

	a.mu.Lock()
	etag := a.etag
	a.mu.Unlock()
	if etag != "" {
		// The token is opaque; attach it verbatim, never parse it.
		req.Header.Set("If-None-Match", etag)
	}

	if a.cfg.Debug {
		observability.DebugContext(ctx, "Fetching operation manifest",
			logfields.URL(a.manifestURL))
	}

	fetchCtx, span := observability.GetGlobalTracer().StartFetchSpan(reqCtx, a.manifestURL)
	resp, err := a.client.Do(req.WithContext(fetchCtx))
	observability.EndSpan(span, err)
	if err != nil {
		return false, errors.WrapError(err, errors.CategoryNetwork, "manifest fetch failed").
			Retryable().
			WithContext("url", a.manifestURL).
			Build()
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		if a.cfg.Debug {
			observability.DebugContext(ctx, "Operation manifest unchanged")
		}
		return false, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return false, errors.NetworkError("manifest fetch returned non-success status").
			Retryable().
			WithContext("status", resp.StatusCode).
			WithContext("body", strings.TrimSpace(string(body))).
			Build()
	}

	contentType := resp.Header.Get("Content-Type")
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType != "application/json" {
		return false, errors.ManifestError("unexpected manifest content type").
			WithContext("content_type", contentType).
			Build()
	}

	var manifest Manifest
	if err := json.NewDecoder(resp.Body).Decode(&manifest); err != nil {
		return false, errors.WrapError(err, errors.CategoryManifest, "invalid manifest format").
			Build()
	}

	if _, _, err := a.UpdateManifest(ctx, &manifest); err != nil {
		return false, err
	}

	// Capture the validator token only after the manifest is applied.
	if newTag := resp.Header.Get("ETag"); newTag != "" {
		a.mu.Lock()
		a.etag = newTag
		a.mu.Unlock()
	}

	return true, nil
}

// Checks returns how many fetches the agent has attempted. Diagnostic only.
func (a *Agent) Checks() int64 {
	return a.checkCount.Load()
}
