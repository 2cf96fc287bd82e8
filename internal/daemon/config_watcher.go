package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/regsync/internal/config"
	"git.home.luguber.info/inful/regsync/internal/logfields"
)

// ConfigWatcher monitors the configuration file and triggers daemon reloads.
type ConfigWatcher struct {
	configPath   string
	daemon       *Daemon
	watcher      *fsnotify.Watcher
	mu           sync.Mutex
	stopChan     chan struct{}
	reloadChan   chan struct{}
	debounceTime time.Duration
}

// NewConfigWatcher creates a watcher for configPath.
func NewConfigWatcher(configPath string, daemon *Daemon) (*ConfigWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	absPath, err := filepath.Abs(configPath)
	if err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}

	return &ConfigWatcher{
		configPath:   absPath,
		daemon:       daemon,
		watcher:      watcher,
		stopChan:     make(chan struct{}),
		reloadChan:   make(chan struct{}, 1),
		debounceTime: 2 * time.Second, // Debounce rapid file changes
	}, nil
}

// Start begins monitoring. Watching the parent directory is more reliable
// than watching the file itself across editors that rename on save.
func (cw *ConfigWatcher) Start(ctx context.Context) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	configDir := filepath.Dir(cw.configPath)
	if err := cw.watcher.Add(configDir); err != nil {
		return fmt.Errorf("failed to watch config directory %s: %w", configDir, err)
	}

	slog.Info("Starting configuration watcher", slog.String("config_path", cw.configPath))

	go cw.watchLoop(ctx)
	go cw.reloadLoop(ctx)

	return nil
}

// Stop stops the watcher goroutines and closes the fsnotify watcher.
func (cw *ConfigWatcher) Stop(ctx context.Context) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	slog.Info("Stopping configuration watcher")
	close(cw.stopChan)

	if cw.watcher != nil {
		if err := cw.watcher.Close(); err != nil {
			slog.Error("Error closing file watcher", logfields.Error(err))
		}
	}
	return nil
}

func (cw *ConfigWatcher) watchLoop(ctx context.Context) {
	configFile := filepath.Base(cw.configPath)

	for {
		select {
		case <-ctx.Done():
			return
		case <-cw.stopChan:
			return
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != configFile {
				continue
			}

			switch {
			case event.Op.Has(fsnotify.Write), event.Op.Has(fsnotify.Create), event.Op.Has(fsnotify.Rename):
				slog.Debug("Config file change detected", slog.String("file", event.Name))
				cw.triggerReload()
			case event.Op.Has(fsnotify.Remove):
				slog.Warn("Config file removed", slog.String("file", event.Name))
			}

		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("Config watcher error", logfields.Error(err))
		}
	}
}

// reloadLoop debounces reload triggers so a burst of writes produces one reload.
func (cw *ConfigWatcher) reloadLoop(ctx context.Context) {
	var reloadTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			return
		case <-cw.stopChan:
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			return
		case <-cw.reloadChan:
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			reloadTimer = time.AfterFunc(cw.debounceTime, func() {
				if err := cw.performReload(ctx); err != nil {
					slog.Error("Failed to reload configuration", logfields.Error(err))
				}
			})
		}
	}
}

func (cw *ConfigWatcher) triggerReload() {
	select {
	case cw.reloadChan <- struct{}{}:
	default:
		// Reload already pending
	}
}

// performReload loads, sanity checks, and applies the new configuration.
// A config that fails to load or validate leaves the running daemon untouched.
func (cw *ConfigWatcher) performReload(ctx context.Context) error {
	slog.Info("Reloading configuration", slog.String("config_path", cw.configPath))

	newConfig, err := config.Load(cw.configPath)
	if err != nil {
		return fmt.Errorf("failed to load new configuration: %w", err)
	}

	if err := cw.validateConfigChange(newConfig); err != nil {
		return fmt.Errorf("configuration change rejected: %w", err)
	}

	if err := cw.daemon.ReloadConfig(ctx, newConfig); err != nil {
		return fmt.Errorf("failed to apply new configuration: %w", err)
	}

	slog.Info("Configuration reloaded successfully")
	return nil
}

// validateConfigChange flags changes the running daemon cannot apply live.
func (cw *ConfigWatcher) validateConfigChange(newConfig *config.Config) error {
	currentConfig := cw.daemon.GetConfig()

	if newConfig.Monitoring != nil && currentConfig.Monitoring != nil &&
		newConfig.Monitoring.AdminPort != currentConfig.Monitoring.AdminPort {
		slog.Warn("Admin port change detected - requires restart for full effect")
	}

	return nil
}
