package main

import (
	"log/slog"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/regsync/cmd/regsync/commands"
	"git.home.luguber.info/inful/regsync/internal/foundation/errors"
	"git.home.luguber.info/inful/regsync/internal/version"
)

func main() {
	var cli commands.CLI
	ctx := kong.Parse(&cli,
		kong.Name("regsync"),
		kong.Description("Keeps a local persisted-operation cache in sync with a remote registry."),
		kong.UsageOnError(),
		kong.Vars{"version": version.Version},
	)
	if err := ctx.Run(&commands.Global{}, &cli); err != nil {
		errors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
	}
}
