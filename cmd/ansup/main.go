package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/mattn/go-isatty"

	"github.com/ansup-io/ansup/internal/cli"
	"github.com/ansup-io/ansup/internal/config"
)

const quickStart = `ansup - analysis server supervisor

Quick start:
  ansup env                             Check the execution environment
  ansup run                             Launch and supervise the server
  ansup exec COMMAND                    Run a server-advertised command

For help:
  ansup --help                          All commands and flags
`

func main() {
	// Show quick start if no args provided
	if len(os.Args) == 1 {
		fmt.Print(quickStart)
		return
	}

	// Load configuration from files/environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		cfg = config.Default()
	}

	// Humans at a terminal get text unless the config says otherwise
	format := cfg.Format
	if format == "ndjson" && isatty.IsTerminal(os.Stdout.Fd()) {
		format = "text"
	}

	var c cli.CLI
	ctx := kong.Parse(&c,
		kong.Name("ansup"),
		kong.Description("ansup: supervise an external analysis server over its RPC protocol"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}),
		kong.Vars{
			"config_format": format,
		},
	)

	globals := cli.NewGlobalsWithConfig(&c, cfg)
	err = ctx.Run(globals)
	if err != nil {
		os.Exit(1)
	}
}
