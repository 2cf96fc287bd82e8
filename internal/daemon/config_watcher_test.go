package daemon

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/regsync/internal/config"
)

func writeConfigFile(t *testing.T, path, baseURL, serviceID string) {
	t.Helper()
	content := fmt.Sprintf(`registry:
  base_url: %s
  service_id: %s
  schema_hash: schema-v1
  poll_interval: 1h
cache:
  backend: memory
monitoring:
  admin_port: 0
  metrics:
    enabled: false
  health:
    path: /health
`, baseURL, serviceID)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestConfigWatcherReloadsOnChange(t *testing.T) {
	srv := newManifestServer(t, nil)
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	writeConfigFile(t, configPath, srv.URL, "checkout-service")

	cfg, err := config.Load(configPath)
	require.NoError(t, err)

	d, err := NewDaemonWithConfigFile(cfg, configPath)
	require.NoError(t, err)
	require.NotNil(t, d.configWatcher)
	d.configWatcher.debounceTime = 50 * time.Millisecond

	ctx := context.Background()
	require.NoError(t, d.Start(ctx))
	defer func() { _ = d.Stop(ctx) }()

	writeConfigFile(t, configPath, srv.URL, "billing-service")

	require.Eventually(t, func() bool {
		return d.GetConfig().Registry.ServiceID == "billing-service"
	}, 5*time.Second, 20*time.Millisecond, "config change never applied")
	assert.Equal(t, StatusRunning, d.GetStatus())
}

func TestConfigWatcherIgnoresOtherFiles(t *testing.T) {
	srv := newManifestServer(t, nil)
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	writeConfigFile(t, configPath, srv.URL, "checkout-service")

	cfg, err := config.Load(configPath)
	require.NoError(t, err)

	d, err := NewDaemonWithConfigFile(cfg, configPath)
	require.NoError(t, err)
	d.configWatcher.debounceTime = 50 * time.Millisecond

	ctx := context.Background()
	require.NoError(t, d.Start(ctx))
	defer func() { _ = d.Stop(ctx) }()

	oldAgent := d.Agent()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("unrelated"), 0o644))

	time.Sleep(300 * time.Millisecond)
	assert.Same(t, oldAgent, d.Agent(), "unrelated file change must not trigger reload")
}

func TestConfigWatcherKeepsRunningOnBrokenConfig(t *testing.T) {
	srv := newManifestServer(t, nil)
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	writeConfigFile(t, configPath, srv.URL, "checkout-service")

	cfg, err := config.Load(configPath)
	require.NoError(t, err)

	d, err := NewDaemonWithConfigFile(cfg, configPath)
	require.NoError(t, err)
	d.configWatcher.debounceTime = 50 * time.Millisecond

	ctx := context.Background()
	require.NoError(t, d.Start(ctx))
	defer func() { _ = d.Stop(ctx) }()

	require.NoError(t, os.WriteFile(configPath, []byte("registry: [broken"), 0o644))

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, StatusRunning, d.GetStatus())
	assert.Equal(t, "checkout-service", d.GetConfig().Registry.ServiceID)
}
