package commands

import (
	"context"
	"fmt"
	"os"

	"git.home.luguber.info/inful/regsync/internal/cache"
	"git.home.luguber.info/inful/regsync/internal/config"
)

// LookupCmd implements the 'lookup' command: fetch one cached operation
// document by signature.
type LookupCmd struct {
	Signature string `arg:"" help:"Operation signature to look up"`
}

func (l *LookupCmd) Run(_ *Global, root *CLI) error {
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

	doc, err := store.Get(context.Background(), cfg.Cache.KeyPrefix+l.Signature)
	if err != nil {
		if cache.IsNotFound(err) {
			return fmt.Errorf("signature %s not found in cache", l.Signature)
		}
		return err
	}

	fmt.Fprintln(os.Stdout, doc)
	return nil
}
