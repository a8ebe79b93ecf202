package main

import (
	"github.com/alecthomas/kong"
)

// version is set by ldflags during build.
var version = "dev"

type CLI struct {
	Version  kong.VersionFlag `short:"v" help:"Show version"`
	Evaluate EvaluateCmd      `cmd:"" help:"Run a tournament against a directory of agent manifests"`
	SelfTest SelfTestCmd      `cmd:"self-test" help:"Run the bundled smoke scenarios against the reference agents"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("agentarena"),
		kong.Description("Tournament evaluator for sandboxed AI agent matches"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
