package registry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/regsync/internal/cache"
	"git.home.luguber.info/inful/regsync/internal/foundation/errors"
)

// manifestServer is a fake registry endpoint with a switchable response.
type manifestServer struct {
	mu       sync.Mutex
	manifest *Manifest
	etag     string
	requests atomic.Int64
	delay    time.Duration

	status      int    // 0 means serve the manifest
	contentType string // overrides application/json when set
	body        string // raw body override
}

func (s *manifestServer) set(m *Manifest, etag string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.manifest = m
	s.etag = etag
}

func (s *manifestServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.requests.Add(1)
		if s.delay > 0 {
			time.Sleep(s.delay)
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		if s.status != 0 {
			ct := s.contentType
			if ct == "" {
				ct = "application/json"
			}
			w.Header().Set("Content-Type", ct)
			w.WriteHeader(s.status)
			_, _ = w.Write([]byte(s.body))
			return
		}

		if s.etag != "" && r.Header.Get("If-None-Match") == s.etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}

		if s.etag != "" {
			w.Header().Set("ETag", s.etag)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(s.manifest)
	}
}

func newFetchAgent(t *testing.T, baseURL string, store cache.Store) *Agent {
	t.Helper()
	agent, err := NewAgent(Config{
		ServiceID:    "checkout-service",
		SchemaHash:   "schema-v1",
		BaseURL:      baseURL,
		PollInterval: 50 * time.Millisecond,
	}, store)
	require.NoError(t, err)
	return agent
}

func TestCheckForUpdateAppliesManifest(t *testing.T) {
	srv := &manifestServer{}
	srv.set(manifestOf(ManifestEntry{Signature: "a", Document: "docA"}), "")
	ts := httptest.NewServer(srv.handler())
	defer ts.Close()

	store := cache.NewMemoryStore()
	agent := newFetchAgent(t, ts.URL, store)

	changed, err := agent.CheckForUpdate(context.Background())
	require.NoError(t, err)
	assert.True(t, changed)

	doc, err := store.Get(context.Background(), "apq:a")
	require.NoError(t, err)
	assert.Equal(t, "docA", doc)
	assert.EqualValues(t, 1, agent.Checks())
	assert.False(t, agent.LastSuccess().IsZero())
}

func TestCheckForUpdateManifestURLPath(t *testing.T) {
	var gotPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(manifestOf())
	}))
	defer ts.Close()

	agent := newFetchAgent(t, ts.URL, cache.NewMemoryStore())
	_, err := agent.CheckForUpdate(context.Background())
	require.NoError(t, err)

	sum := sha256.Sum256([]byte("checkout-service"))
	assert.Equal(t, "/"+hex.EncodeToString(sum[:])+"/schema-v1", gotPath)
}

func TestCheckForUpdateNotModified(t *testing.T) {
	srv := &manifestServer{}
	srv.set(manifestOf(ManifestEntry{Signature: "a", Document: "docA"}), `"v1"`)
	ts := httptest.NewServer(srv.handler())
	defer ts.Close()

	store := cache.NewMemoryStore()
	agent := newFetchAgent(t, ts.URL, store)

	// First fetch applies and captures the validator token.
	changed, err := agent.CheckForUpdate(context.Background())
	require.NoError(t, err)
	assert.True(t, changed)

	store.ResetCalls()

	// Second fetch sends If-None-Match and the server short-circuits.
	changed, err = agent.CheckForUpdate(context.Background())
	require.NoError(t, err)
	assert.False(t, changed)

	// 304 leaves known signatures, cache, and the token untouched.
	assert.Equal(t, []string{"a"}, agent.KnownSignatures())
	calls := store.Calls()
	assert.Equal(t, 0, calls.Set)
	assert.Equal(t, 0, calls.Delete)
	assert.True(t, agent.Snapshot().ETagHeld)
	assert.EqualValues(t, 2, srv.requests.Load())
}

func TestCheckForUpdateCoalescesConcurrentCallers(t *testing.T) {
	srv := &manifestServer{delay: 150 * time.Millisecond}
	srv.set(manifestOf(ManifestEntry{Signature: "a", Document: "docA"}), "")
	ts := httptest.NewServer(srv.handler())
	defer ts.Close()

	agent := newFetchAgent(t, ts.URL, cache.NewMemoryStore())

	var wg sync.WaitGroup
	results := make([]bool, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = agent.CheckForUpdate(context.Background())
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	// Exactly one network request; both callers observed the same result.
	assert.EqualValues(t, 1, srv.requests.Load())
	assert.Equal(t, results[0], results[1])
}

func TestCheckForUpdateTransportError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close() // refuse connections

	agent := newFetchAgent(t, ts.URL, cache.NewMemoryStore())

	_, err := agent.CheckForUpdate(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryNetwork))
	assert.True(t, agent.LastSuccess().IsZero())
	assert.Empty(t, agent.KnownSignatures())
}

func TestCheckForUpdateNonSuccessStatusCarriesBody(t *testing.T) {
	srv := &manifestServer{status: http.StatusBadGateway, body: "registry exploded"}
	ts := httptest.NewServer(srv.handler())
	defer ts.Close()

	agent := newFetchAgent(t, ts.URL, cache.NewMemoryStore())

	_, err := agent.CheckForUpdate(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryNetwork))

	classified, ok := errors.AsClassified(err)
	require.True(t, ok)
	body, _ := classified.Context().Get("body")
	assert.Equal(t, "registry exploded", body)
}

func TestCheckForUpdateRejectsWrongContentType(t *testing.T) {
	srv := &manifestServer{status: http.StatusOK, contentType: "text/html", body: "<html></html>"}
	ts := httptest.NewServer(srv.handler())
	defer ts.Close()

	agent := newFetchAgent(t, ts.URL, cache.NewMemoryStore())

	_, err := agent.CheckForUpdate(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryManifest))
}

func TestCheckForUpdateRejectsMalformedBody(t *testing.T) {
	srv := &manifestServer{status: http.StatusOK, body: `{"version": "one"}`}
	ts := httptest.NewServer(srv.handler())
	defer ts.Close()

	store := cache.NewMemoryStore()
	agent := newFetchAgent(t, ts.URL, store)

	_, err := agent.CheckForUpdate(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryManifest))
	assert.Equal(t, 0, store.Len())
}

func TestCheckForUpdateRejectsNonArrayOperations(t *testing.T) {
	srv := &manifestServer{status: http.StatusOK, body: `{"version": 1, "operations": {"a": "b"}}`}
	ts := httptest.NewServer(srv.handler())
	defer ts.Close()

	store := cache.NewMemoryStore()
	agent := newFetchAgent(t, ts.URL, store)

	_, err := agent.CheckForUpdate(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryManifest))
	assert.Equal(t, 0, store.Len())
	assert.Empty(t, agent.KnownSignatures())
}

func TestCheckForUpdateManifestChangeReconciles(t *testing.T) {
	srv := &manifestServer{}
	srv.set(manifestOf(ManifestEntry{Signature: "a", Document: "docA"}), `"v1"`)
	ts := httptest.NewServer(srv.handler())
	defer ts.Close()

	store := cache.NewMemoryStore()
	agent := newFetchAgent(t, ts.URL, store)

	_, err := agent.CheckForUpdate(context.Background())
	require.NoError(t, err)

	srv.set(manifestOf(ManifestEntry{Signature: "b", Document: "docB"}), `"v2"`)

	changed, err := agent.CheckForUpdate(context.Background())
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []string{"apq:b"}, store.Keys())
}
