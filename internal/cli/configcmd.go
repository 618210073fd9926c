package cli

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ConfigCmd groups configuration helpers
type ConfigCmd struct {
	Show ConfigShowCmd `cmd:"" default:"1" help:"Print the effective configuration"`
}

// ConfigShowCmd prints the effective configuration
type ConfigShowCmd struct{}

// Run executes the config show command
func (c *ConfigShowCmd) Run(globals *Globals) error {
	cfg := globals.Config

	if globals.Format == "ndjson" {
		enc := json.NewEncoder(globals.Stdout)
		return enc.Encode(cfg)
	}

	fmt.Fprintln(globals.Stdout, "Current Configuration:")
	fmt.Fprintf(globals.Stdout, "  format: %s\n", cfg.Format)
	fmt.Fprintf(globals.Stdout, "  quiet: %v\n", cfg.Quiet)
	fmt.Fprintf(globals.Stdout, "  verbose: %v\n", cfg.Verbose)
	fmt.Fprintln(globals.Stdout, "Server:")
	fmt.Fprintf(globals.Stdout, "  command: %s\n", strings.Join(cfg.Server.Command, " "))
	fmt.Fprintf(globals.Stdout, "  settle_timeout: %s\n", cfg.Server.SettleTimeout)
	fmt.Fprintln(globals.Stdout, "Environment:")
	fmt.Fprintf(globals.Stdout, "  override: %s\n", cfg.Environment.Override)
	fmt.Fprintf(globals.Stdout, "  minimum_version: %s\n", cfg.Environment.MinimumVersion)
	fmt.Fprintf(globals.Stdout, "  candidates: %s\n", strings.Join(cfg.Environment.Candidates, ", "))
	fmt.Fprintf(globals.Stdout, "  watch_path: %s\n", cfg.Environment.WatchPath)
	fmt.Fprintln(globals.Stdout, "Debug:")
	fmt.Fprintf(globals.Stdout, "  enabled: %v\n", cfg.Debug.Enabled)
	fmt.Fprintf(globals.Stdout, "  host: %s\n", cfg.Debug.Host)
	fmt.Fprintf(globals.Stdout, "  port: %d\n", cfg.Debug.Port)
	fmt.Fprintf(globals.Stdout, "  settle_delay: %s\n", cfg.Debug.SettleDelay)
	fmt.Fprintln(globals.Stdout, "Heartbeat:")
	fmt.Fprintf(globals.Stdout, "  interval: %s\n", cfg.Heartbeat.Interval)
	fmt.Fprintln(globals.Stdout, "Workspace:")
	fmt.Fprintf(globals.Stdout, "  root: %s\n", cfg.Workspace.Root)
	fmt.Fprintf(globals.Stdout, "  document_globs: %s\n", strings.Join(cfg.Workspace.DocumentGlobs, ", "))
	return nil
}
