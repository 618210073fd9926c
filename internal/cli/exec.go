package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/ansup-io/ansup/internal/debug"
	"github.com/ansup-io/ansup/internal/domain"
	"github.com/ansup-io/ansup/internal/environment"
	"github.com/ansup-io/ansup/internal/rpc"
	"github.com/ansup-io/ansup/internal/supervisor"
)

// ExecCmd starts a session, executes one command, and stops
type ExecCmd struct {
	Command string `arg:"" help:"Server-advertised command to execute"`
}

// Run executes the exec command
func (c *ExecCmd) Run(globals *Globals) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	cfg := globals.Config
	writer := globals.Writer()
	provider := environment.NewExecProvider(cfg.Environment.Candidates)
	resolver := environment.NewResolver(provider, cfg.Environment.MinimumVersion)
	launcher := &rpc.Launcher{ExtraArgs: cfg.Server.Command}
	coordinator := debug.NewCoordinator(cfg.Debug, nil)

	mgr := supervisor.New(resolver, supervisor.TransportFunc(
		func(ctx context.Context, env domain.EnvironmentDescriptor) (supervisor.Conn, error) {
			return launcher.Start(ctx, env)
		}), writer, globals.logger.Sugared(),
		supervisor.WithOverride(cfg.Environment.Override),
		supervisor.WithSettleTimeout(cfg.Server.SettleTimeout),
		supervisor.WithDebugAttach(coordinator.Attach),
	)

	if err := mgr.Start(ctx); err != nil {
		// The manager already reported the failure with its code.
		return err
	}
	defer mgr.Stop(context.Background())

	result, err := supervisor.NewProxy(mgr).Execute(ctx, c.Command)
	switch {
	case errors.Is(err, supervisor.ErrNoActiveSession):
		return outputErrorCommon(globals, "NO_ACTIVE_SESSION", err.Error())
	case err != nil:
		var unknown *supervisor.UnknownCommandError
		if errors.As(err, &unknown) {
			return outputErrorCommon(globals, "UNKNOWN_COMMAND", err.Error(),
				"run 'ansup env' and check the server's advertised commands")
		}
		return outputErrorCommon(globals, "COMMAND_FAILED", err.Error())
	}

	return writer.WriteResult(c.Command, result)
}
