package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ansup-io/ansup/internal/config"
	"github.com/ansup-io/ansup/internal/debug"
	"github.com/ansup-io/ansup/internal/domain"
	"github.com/ansup-io/ansup/internal/environment"
	"github.com/ansup-io/ansup/internal/output"
	"github.com/ansup-io/ansup/internal/rpc"
	"github.com/ansup-io/ansup/internal/supervisor"
	"github.com/ansup-io/ansup/internal/trigger"
	"github.com/ansup-io/ansup/internal/watchdog"
	"github.com/ansup-io/ansup/internal/workspace"
)

// RunCmd supervises the analysis server until interrupted
type RunCmd struct {
	OnFirstDocument bool `help:"Defer the initial start until the first matching document appears in the workspace"`
	NoWatchConfig   bool `help:"Do not restart on configuration changes"`
}

// runReporter decorates the status writer so the watchdog follows the
// session: probing begins when the session reaches running and halts
// when it returns to idle.
type runReporter struct {
	output.Writer
	onState func(to domain.SessionState)
}

func (r *runReporter) WriteStateChange(sessionID string, from, to domain.SessionState) error {
	if r.onState != nil {
		r.onState(to)
	}
	return r.Writer.WriteStateChange(sessionID, from, to)
}

// printPreamble writes the human-facing supervision banner. Text mode
// only; ndjson consumers get structured events instead.
func (c *RunCmd) printPreamble(globals *Globals) {
	if globals.Quiet || globals.Format != "text" {
		return
	}
	cfg := globals.Config
	fmt.Fprintf(globals.Stderr, "Supervising analysis server (workspace %s)\n", cfg.Workspace.Root)
	if c.OnFirstDocument {
		fmt.Fprintln(globals.Stderr, "Waiting for the first matching document")
	}
	fmt.Fprintf(globals.Stderr, "Heartbeat every %s\n", cfg.Heartbeat.Interval)
	fmt.Fprintln(globals.Stderr, "Press Ctrl+C to stop")
}

// Run executes the run command
func (c *RunCmd) Run(globals *Globals) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	c.printPreamble(globals)

	cfg := globals.Config
	sugar := globals.logger.Sugared()
	reporter := &runReporter{Writer: globals.Writer()}

	provider := environment.NewExecProvider(cfg.Environment.Candidates)
	resolver := environment.NewResolver(provider, cfg.Environment.MinimumVersion)
	launcher := &rpc.Launcher{ExtraArgs: cfg.Server.Command}
	coordinator := debug.NewCoordinator(cfg.Debug, nil)

	mgr := supervisor.New(resolver, supervisor.TransportFunc(
		func(ctx context.Context, env domain.EnvironmentDescriptor) (supervisor.Conn, error) {
			return launcher.Start(ctx, env)
		}), reporter, sugar,
		supervisor.WithOverride(cfg.Environment.Override),
		supervisor.WithSettleTimeout(cfg.Server.SettleTimeout),
		supervisor.WithDebugAttach(coordinator.Attach),
	)

	dog := watchdog.New(nil, cfg.Heartbeat.Interval, 5*time.Second, mgr.Ping,
		func(ts time.Time, ok bool, detail string) {
			reporter.WriteHeartbeat(domain.HeartbeatResult{Timestamp: ts, OK: ok, Detail: detail})
		})
	reporter.onState = func(to domain.SessionState) {
		switch to {
		case domain.StateRunning:
			dog.Start(ctx)
		case domain.StateIdle:
			dog.Stop()
		}
	}

	agg := trigger.New(func(ctx context.Context, reason domain.RestartReason) {
		reporter.WriteRestartTrigger(reason)
		if err := mgr.Restart(ctx); err != nil && !errors.Is(err, supervisor.ErrBusy) {
			globals.Debug("restart failed: %v", err)
		}
	}, sugar)

	g, gctx := errgroup.WithContext(ctx)

	// Configuration change trigger, scoped to restart-relevant namespaces
	if !c.NoWatchConfig {
		if watcher, err := config.Watch(); err != nil {
			globals.Debug("config watch unavailable: %v", err)
		} else {
			g.Go(func() error {
				for {
					select {
					case <-gctx.Done():
						return gctx.Err()
					case ns := <-watcher.Changes():
						globals.Debug("config namespace changed: %s", ns)
						agg.Notify(gctx, domain.ReasonConfigChanged)
					}
				}
			})
		}
	}

	// Environment change trigger
	if cfg.Environment.WatchPath != "" {
		watcher, err := environment.NewWatcher(cfg.Environment.WatchPath)
		if err != nil {
			globals.Debug("environment watch unavailable: %v", err)
		} else {
			g.Go(func() error { return watcher.Run(gctx) })
			g.Go(func() error {
				for {
					select {
					case <-gctx.Done():
						return gctx.Err()
					case path := <-watcher.Changes():
						globals.Debug("environment changed: %s", path)
						agg.Notify(gctx, domain.ReasonEnvironmentChanged)
					}
				}
			})
		}
	}

	// Initial start: lazy on the first document, or immediately
	if c.OnFirstDocument {
		docs := workspace.NewDocumentWatcher(cfg.Workspace.Root, cfg.Workspace.DocumentGlobs)
		g.Go(func() error { return docs.Run(gctx) })
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case path := <-docs.Opened():
				globals.Debug("first document opened: %s", path)
				agg.Notify(gctx, domain.ReasonDocumentOpened)
				return nil
			}
		})
	} else {
		agg.Notify(gctx, domain.ReasonManual)
	}

	<-gctx.Done()
	g.Wait()

	// The aggregator abandons any trailing restart once the context is
	// cancelled; wait it out, then shut the session down cleanly.
	agg.Wait()
	dog.Stop()
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer stopCancel()
	if err := mgr.Stop(stopCtx); err != nil && !errors.Is(err, supervisor.ErrBusy) {
		return outputErrorCommon(globals, "STOP_FAILED", err.Error())
	}
	return nil
}
