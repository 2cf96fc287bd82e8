package daemon

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/regsync/internal/config"
)

// newManifestServer serves a fixed version-1 manifest for daemon tests. It
// answers conditional requests with 304 so repeated checks exercise the
// not-modified path the way a real registry would.
func newManifestServer(t *testing.T, operations map[string]string) *httptest.Server {
	t.Helper()

	type entry struct {
		Signature string `json:"signature"`
		Document  string `json:"document"`
	}
	ops := []entry{}
	for sig, doc := range operations {
		ops = append(ops, entry{Signature: sig, Document: doc})
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].Signature < ops[j].Signature })

	body, err := json.Marshal(map[string]any{
		"version":    1,
		"operations": ops,
	})
	require.NoError(t, err)
	etag := fmt.Sprintf("\"%x\"", sha256.Sum256(body))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("ETag", etag)
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestConfig(baseURL string) *config.Config {
	return &config.Config{
		Registry: config.RegistryConfig{
			BaseURL:      baseURL,
			ServiceID:    "checkout-service",
			SchemaHash:   "schema-v1",
			PollInterval: "1h", // no background ticks during tests
		},
		Cache: config.CacheConfig{
			Backend:   config.CacheBackendMemory,
			KeyPrefix: "apq:",
		},
		Monitoring: &config.MonitoringConfig{
			AdminPort: 0, // ephemeral
			Metrics:   config.MonitoringMetrics{Enabled: true, Path: "/metrics"},
			Health:    config.MonitoringHealth{Path: "/health"},
		},
	}
}

func TestNewDaemonRequiresConfig(t *testing.T) {
	_, err := NewDaemon(nil)
	require.Error(t, err)
}

func TestNewDaemonStartsStopped(t *testing.T) {
	srv := newManifestServer(t, nil)
	d, err := NewDaemon(newTestConfig(srv.URL))
	require.NoError(t, err)

	assert.Equal(t, StatusStopped, d.GetStatus())
	assert.Nil(t, d.configWatcher)
}

func TestDaemonLifecycle(t *testing.T) {
	srv := newManifestServer(t, map[string]string{
		"sig-1": "query One { one }",
	})
	cfg := newTestConfig(srv.URL)

	d, err := NewDaemon(cfg)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, d.Start(ctx))
	assert.Equal(t, StatusRunning, d.GetStatus())

	// Initial check runs synchronously during Start.
	assert.Equal(t, []string{"sig-1"}, d.Agent().KnownSignatures())

	require.NoError(t, d.Stop(ctx))
	assert.Equal(t, StatusStopped, d.GetStatus())
}

func TestDaemonStartFailsWhenAdminPortTaken(t *testing.T) {
	srv := newManifestServer(t, nil)
	cfg := newTestConfig(srv.URL)

	d, err := NewDaemon(cfg)
	require.NoError(t, err)

	// Occupy the admin port so Start fails at bind time.
	blocker, err := NewDaemon(newTestConfig(srv.URL))
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, blocker.Start(ctx))
	defer func() { _ = blocker.Stop(ctx) }()

	var port int
	_, err = fmt.Sscanf(blocker.httpServer.Addr(), "[::]:%d", &port)
	if err != nil {
		_, err = fmt.Sscanf(blocker.httpServer.Addr(), "0.0.0.0:%d", &port)
	}
	require.NoError(t, err)

	cfg.Monitoring.AdminPort = port
	err = d.Start(ctx)
	require.Error(t, err)
	assert.Equal(t, StatusError, d.GetStatus())
}

func TestDaemonReloadConfigSwapsAgent(t *testing.T) {
	srv := newManifestServer(t, map[string]string{
		"sig-a": "query A { a }",
	})
	cfg := newTestConfig(srv.URL)

	d, err := NewDaemon(cfg)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, d.Start(ctx))
	defer func() { _ = d.Stop(ctx) }()

	require.Equal(t, []string{"sig-a"}, d.Agent().KnownSignatures())
	oldAgent := d.Agent()

	newCfg := newTestConfig(srv.URL)
	newCfg.Registry.ServiceID = "billing-service"
	require.NoError(t, d.ReloadConfig(ctx, newCfg))

	assert.Equal(t, StatusRunning, d.GetStatus())
	assert.NotSame(t, oldAgent, d.Agent())
	assert.Equal(t, newCfg, d.GetConfig())
}

func TestDaemonReloadRejectsBrokenConfig(t *testing.T) {
	srv := newManifestServer(t, nil)
	d, err := NewDaemon(newTestConfig(srv.URL))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, d.Start(ctx))
	defer func() { _ = d.Stop(ctx) }()

	broken := newTestConfig(srv.URL)
	broken.Registry.ServiceID = ""
	err = d.ReloadConfig(ctx, broken)
	require.Error(t, err)
	assert.Equal(t, StatusError, d.GetStatus())
}

func TestDaemonWithoutEventsHasNoPublisher(t *testing.T) {
	srv := newManifestServer(t, nil)
	d, err := NewDaemon(newTestConfig(srv.URL))
	require.NoError(t, err)

	assert.Nil(t, d.eventPublisher())
}

func TestDaemonSurvivesUnreachableEventBroker(t *testing.T) {
	srv := newManifestServer(t, nil)
	cfg := newTestConfig(srv.URL)
	cfg.Events = &config.EventsConfig{
		Enabled: true,
		URL:     "nats://127.0.0.1:1", // nothing listening
		Subject: "regsync.registry.updates",
		Stream:  "REGSYNC",
	}

	d, err := NewDaemon(cfg)
	require.NoError(t, err, "missing broker must not prevent startup")
	assert.Nil(t, d.eventPublisher())
}
