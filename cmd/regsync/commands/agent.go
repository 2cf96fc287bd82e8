package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/regsync/internal/config"
	"git.home.luguber.info/inful/regsync/internal/daemon"
)

// AgentCmd implements the 'agent' command.
type AgentCmd struct{}

func (a *AgentCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyLogConfig(cfg, root.Verbose)
	return RunAgent(cfg, root.Config)
}

// RunAgent runs the daemon until a shutdown signal arrives.
func RunAgent(cfg *config.Config, configPath string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Config file watching gives live reloads on config changes.
	d, err := daemon.NewDaemonWithConfigFile(cfg, configPath)
	if err != nil {
		return fmt.Errorf("failed to create daemon: %w", err)
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- d.Start(ctx)
	}()

	slog.Info("Agent started, waiting for shutdown signal...")

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("daemon error: %w", err)
		}
	case <-ctx.Done():
		slog.Info("Shutdown signal received, stopping agent...")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()

	if err := d.Stop(stopCtx); err != nil {
		return fmt.Errorf("failed to stop daemon: %w", err)
	}

	slog.Info("Agent stopped successfully")
	return nil
}
