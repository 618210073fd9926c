package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"

	"github.com/ansup-io/ansup/internal/domain"
)

// defaultProtocolArgs launch the analysis server module in stdio mode.
var defaultProtocolArgs = []string{"-m", "ansup_server", "--stdio"}

// Launcher spawns the analysis server with a resolved environment and
// layers the RPC client over its stdio.
type Launcher struct {
	// ProtocolArgs are the arguments the protocol requires; ExtraArgs
	// come from user configuration and are appended after them.
	ProtocolArgs []string
	ExtraArgs    []string
	// StopGrace bounds how long Shutdown waits for a clean exit before
	// the process is killed.
	StopGrace time.Duration
}

// Proc is a live connection to a spawned analysis server process.
type Proc struct {
	cmd    *exec.Cmd
	client *Client
	grace  time.Duration
}

// Start spawns the server process. The handshake is left to the caller
// so launch and protocol failures stay distinguishable.
func (l *Launcher) Start(ctx context.Context, env domain.EnvironmentDescriptor) (*Proc, error) {
	args := l.ProtocolArgs
	if args == nil {
		args = defaultProtocolArgs
	}
	args = append(append([]string{}, args...), l.ExtraArgs...)

	// The process is terminated through the shutdown exchange, not by
	// context cancellation.
	cmd := exec.Command(env.ExecutablePath, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("spawn %s: %w", env.ExecutablePath, err)
	}

	grace := l.StopGrace
	if grace <= 0 {
		grace = 5 * time.Second
	}
	return &Proc{
		cmd:    cmd,
		client: NewClient(stdout, stdin, stdin),
		grace:  grace,
	}, nil
}

// PID returns the spawned process ID.
func (p *Proc) PID() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// Initialize runs the handshake and returns the advertised commands.
func (p *Proc) Initialize(ctx context.Context) ([]string, error) {
	result, err := p.client.Initialize(ctx)
	if err != nil {
		return nil, err
	}
	return result.Capabilities.Commands, nil
}

// ExecuteCommand forwards a command through the session.
func (p *Proc) ExecuteCommand(ctx context.Context, command string) (json.RawMessage, error) {
	return p.client.ExecuteCommand(ctx, command)
}

// Ping probes liveness.
func (p *Proc) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}

// Shutdown runs the protocol's shutdown exchange and waits for the
// process to exit, killing it if it overstays the grace period.
func (p *Proc) Shutdown(ctx context.Context) error {
	shutdownErr := p.client.Shutdown(ctx)
	p.client.Close()

	exited := make(chan error, 1)
	go func() { exited <- p.cmd.Wait() }()
	select {
	case <-exited:
	case <-time.After(p.grace):
		p.cmd.Process.Kill()
		<-exited
	case <-ctx.Done():
		p.cmd.Process.Kill()
		<-exited
	}
	return shutdownErr
}

// Close kills the process without the shutdown exchange. Used on
// handshake failure, where the protocol state is unknown.
func (p *Proc) Close() error {
	p.client.Close()
	if p.cmd.Process != nil {
		p.cmd.Process.Kill()
	}
	return p.cmd.Wait()
}
