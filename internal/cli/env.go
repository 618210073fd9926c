package cli

import (
	"context"
	"errors"

	"github.com/olekukonko/tablewriter"

	"github.com/ansup-io/ansup/internal/environment"
)

// EnvCmd resolves and prints the execution environment
type EnvCmd struct {
	Override string `help:"Explicit executable path (skips discovery)"`
}

// Run executes the env command
func (c *EnvCmd) Run(globals *Globals) error {
	cfg := globals.Config
	override := c.Override
	if override == "" {
		override = cfg.Environment.Override
	}

	provider := environment.NewExecProvider(cfg.Environment.Candidates)
	resolver := environment.NewResolver(provider, cfg.Environment.MinimumVersion)

	env, err := resolver.Resolve(context.Background(), override)
	if err != nil {
		var tooLow *environment.VersionTooLowError
		switch {
		case errors.As(err, &tooLow):
			return outputErrorCommon(globals, "VERSION_TOO_LOW", err.Error(),
				"upgrade the runtime or lower environment.minimum_version")
		case errors.Is(err, environment.ErrUnresolvableVersion):
			return outputErrorCommon(globals, "UNRESOLVABLE_VERSION", err.Error())
		default:
			return outputErrorCommon(globals, "NO_ENVIRONMENT", err.Error(),
				"set environment.override or install one of the candidate runtimes")
		}
	}

	if globals.Format == "ndjson" {
		return globals.Writer().WriteResolved(env)
	}

	table := tablewriter.NewWriter(globals.Stdout)
	table.Header("Path", "Version", "Source")
	table.Append([]string{env.ExecutablePath, env.Version, string(env.Source)})
	return table.Render()
}
