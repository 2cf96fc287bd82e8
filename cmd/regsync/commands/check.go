package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"git.home.luguber.info/inful/regsync/internal/cache"
	"git.home.luguber.info/inful/regsync/internal/config"
	"git.home.luguber.info/inful/regsync/internal/registry"
)

// CheckCmd implements the 'check' command: one synchronous manifest check
// against a fresh agent, summary on stdout.
type CheckCmd struct{}

type checkSummary struct {
	Result     string `json:"result"`
	Operations int    `json:"operations"`
	Changed    bool   `json:"manifest_changed"`
	Error      string `json:"error,omitempty"`
}

func (c *CheckCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyLogConfig(cfg, root.Verbose)

	store, err := cache.New(cfg.Cache)
	if err != nil {
		return fmt.Errorf("create cache backend: %w", err)
	}
	defer func() { _ = store.Close() }()

	agent, err := registry.NewAgent(registry.FromAppConfig(cfg), store)
	if err != nil {
		return err
	}

	changed, checkErr := agent.CheckForUpdate(context.Background())

	summary := checkSummary{
		Result:     "unchanged",
		Operations: len(agent.KnownSignatures()),
		Changed:    changed,
	}
	if changed {
		summary.Result = "applied"
	}
	if checkErr != nil {
		summary.Result = "error"
		summary.Error = checkErr.Error()
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(summary)

	return checkErr
}
