package cli

import (
	"io"
	"os"

	"github.com/ansup-io/ansup/internal/config"
	"github.com/ansup-io/ansup/internal/output"
)

// CLI is the top-level command tree
type CLI struct {
	Format  string `help:"Output format: ndjson or text" enum:"ndjson,text" default:"${config_format}"`
	Verbose bool   `help:"Enable verbose debug logging"`
	Quiet   bool   `short:"q" help:"Suppress informational output"`

	Run    RunCmd    `cmd:"" help:"Supervise the analysis server"`
	Exec   ExecCmd   `cmd:"" help:"Start a session, execute a server-advertised command, stop"`
	Env    EnvCmd    `cmd:"" help:"Resolve and print the execution environment"`
	Config ConfigCmd `cmd:"" help:"Configuration helpers"`
}

// Globals carries shared flags and wiring into every command
type Globals struct {
	Format  string
	Quiet   bool
	Verbose bool
	Stdout  io.Writer
	Stderr  io.Writer
	Config  *config.Config

	logger *agentLogger
}

// NewGlobalsWithConfig builds Globals from parsed flags with config fallbacks
func NewGlobalsWithConfig(c *CLI, cfg *config.Config) *Globals {
	g := &Globals{
		Format:  c.Format,
		Quiet:   c.Quiet || cfg.Quiet,
		Verbose: c.Verbose || cfg.Verbose,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Config:  cfg,
	}
	g.logger = newAgentLogger(g)
	return g
}

// Debug logs a verbose diagnostic line (no-op unless --verbose)
func (g *Globals) Debug(format string, args ...interface{}) {
	g.logger.Debug(format, args...)
}

// Writer returns the status sink for the selected format.
func (g *Globals) Writer() output.Writer {
	if g.Format == "text" {
		return output.NewTextWriter(g.Stdout)
	}
	return output.NewNDJSONWriter(g.Stdout)
}
