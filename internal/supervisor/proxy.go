package supervisor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/samber/lo"

	"github.com/ansup-io/ansup/internal/domain"
)

// UnknownCommandError means the requested command is not among the
// session's advertised capabilities.
type UnknownCommandError struct {
	Command string
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("unknown command %q", e.Command)
}

// Proxy executes server-advertised commands against the active session.
// It is a thin pass-through: two guard checks, then the result verbatim.
type Proxy struct {
	manager *Manager
}

// NewProxy creates a Proxy over the manager's session.
func NewProxy(m *Manager) *Proxy {
	return &Proxy{manager: m}
}

// Execute forwards command through the RPC session. Fails with
// ErrNoActiveSession unless the session is running, and with
// UnknownCommandError when the command was never advertised. Neither
// failure changes session state.
func (p *Proxy) Execute(ctx context.Context, command string) (json.RawMessage, error) {
	p.manager.mu.Lock()
	state := p.manager.state
	conn := p.manager.conn
	var caps []string
	if p.manager.session != nil {
		caps = p.manager.session.Capabilities
	}
	p.manager.mu.Unlock()

	if state != domain.StateRunning || conn == nil {
		return nil, ErrNoActiveSession
	}
	if !lo.Contains(caps, command) {
		return nil, &UnknownCommandError{Command: command}
	}
	return conn.ExecuteCommand(ctx, command)
}
