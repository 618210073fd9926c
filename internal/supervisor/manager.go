package supervisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ansup-io/ansup/internal/domain"
	"github.com/ansup-io/ansup/internal/environment"
)

var (
	// ErrBusy is returned when a lifecycle call arrives while another
	// transition holds the in-flight guard. Callers rely on the
	// eventual state instead of blocking.
	ErrBusy = errors.New("lifecycle transition already in flight")
	// ErrNoActiveSession is returned for operations that need a
	// running session when there is none.
	ErrNoActiveSession = errors.New("no active session")
)

// Conn is the live protocol connection to a spawned server process.
// rpc.Proc is the production implementation.
type Conn interface {
	PID() int
	Initialize(ctx context.Context) ([]string, error)
	ExecuteCommand(ctx context.Context, command string) (json.RawMessage, error)
	Ping(ctx context.Context) error
	Shutdown(ctx context.Context) error
	Close() error
}

// Transport spawns a server process for a resolved environment.
type Transport interface {
	Dial(ctx context.Context, env domain.EnvironmentDescriptor) (Conn, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, env domain.EnvironmentDescriptor) (Conn, error)

func (f TransportFunc) Dial(ctx context.Context, env domain.EnvironmentDescriptor) (Conn, error) {
	return f(ctx, env)
}

// Reporter receives every lifecycle transition and failure as a status
// line. Write-only from the supervisor's perspective.
type Reporter interface {
	WriteResolved(env domain.EnvironmentDescriptor) error
	WriteStateChange(sessionID string, from, to domain.SessionState) error
	WriteSessionStart(s *domain.Session) error
	WriteSessionEnd(s *domain.Session, uptime time.Duration) error
	WriteDebugAttach(att domain.DebugAttachment) error
	WriteFailure(code, message string) error
}

// AttachFunc launches the optional debug channel for a session. The
// returned closer, when non-nil, is released when the session stops.
type AttachFunc func(ctx context.Context, sessionID string) (domain.DebugAttachment, io.Closer)

// Manager owns the single logical session and serializes its lifecycle
// transitions. The in-flight guard is the only shared coordination
// point: overlapping start/stop/restart calls return ErrBusy without
// side effect, so two launches can never race.
type Manager struct {
	resolver  *environment.Resolver
	transport Transport
	reporter  Reporter
	logger    *zap.SugaredLogger
	override  string
	attach    AttachFunc

	settleTimeout time.Duration

	guard atomic.Bool

	mu          sync.Mutex
	state       domain.SessionState
	session     *domain.Session
	conn        Conn
	debugCloser io.Closer
}

// Option configures a Manager.
type Option func(*Manager)

// WithOverride sets an explicit executable path, skipping discovery.
func WithOverride(path string) Option {
	return func(m *Manager) { m.override = path }
}

// WithDebugAttach wires the debug launch coordinator.
func WithDebugAttach(attach AttachFunc) Option {
	return func(m *Manager) { m.attach = attach }
}

// WithSettleTimeout bounds the RPC handshake.
func WithSettleTimeout(d time.Duration) Option {
	return func(m *Manager) { m.settleTimeout = d }
}

// New creates a Manager in the idle state.
func New(resolver *environment.Resolver, transport Transport, reporter Reporter, logger *zap.SugaredLogger, opts ...Option) *Manager {
	m := &Manager{
		resolver:      resolver,
		transport:     transport,
		reporter:      reporter,
		logger:        logger,
		state:         domain.StateIdle,
		settleTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current session state.
func (m *Manager) State() domain.SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Session returns a copy of the current session, or nil when idle.
func (m *Manager) Session() *domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil
	}
	s := *m.session
	return &s
}

// Start acquires the guard and brings the session to running. A failure
// at any step releases the guard, leaves the state idle and is reported
// but never retried here.
func (m *Manager) Start(ctx context.Context) error {
	if !m.guard.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer m.guard.Store(false)
	return m.start(ctx)
}

// Stop acquires the guard and tears the session down. Stopping an idle
// session is a no-op. The guard is symmetric with Start so a stop can
// never race a launch mid-flight.
func (m *Manager) Stop(ctx context.Context) error {
	if !m.guard.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer m.guard.Store(false)
	return m.stop(ctx)
}

// Restart is stop-then-start under a single guard acquisition; the stop
// half is skipped when idle.
func (m *Manager) Restart(ctx context.Context) error {
	if !m.guard.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer m.guard.Store(false)
	if err := m.stop(ctx); err != nil {
		return err
	}
	return m.start(ctx)
}

// start runs the launch sequence. Caller holds the guard.
func (m *Manager) start(ctx context.Context) error {
	if m.State() != domain.StateIdle {
		if err := m.stop(ctx); err != nil {
			return err
		}
	}

	env, err := m.resolver.Resolve(ctx, m.override)
	if err != nil {
		m.reportResolveFailure(err)
		return err
	}
	m.reporter.WriteResolved(env)

	session := domain.NewSession(env)
	m.mu.Lock()
	m.session = session
	m.mu.Unlock()
	m.transition(session.ID, domain.StateStarting)

	// Debug attachment is fired off independently; it is joined only
	// for reporting and its failure never fails the start.
	if m.attach != nil {
		go m.runAttach(ctx, session.ID)
	}

	conn, err := m.transport.Dial(ctx, env)
	if err != nil {
		m.failStart(session.ID, fmt.Sprintf("spawn failed: %v", err))
		return fmt.Errorf("launch failed: %w", err)
	}

	hctx, cancel := context.WithTimeout(ctx, m.settleTimeout)
	caps, err := conn.Initialize(hctx)
	cancel()
	if err != nil {
		conn.Close()
		m.failStart(session.ID, fmt.Sprintf("handshake failed: %v", err))
		return fmt.Errorf("launch failed: %w", err)
	}

	m.mu.Lock()
	session.PID = conn.PID()
	session.StartedAt = time.Now()
	session.Capabilities = caps
	m.conn = conn
	m.mu.Unlock()

	m.transition(session.ID, domain.StateRunning)
	m.reporter.WriteSessionStart(session)
	m.logger.Debugw("session running", "session_id", session.ID, "pid", session.PID, "capabilities", len(caps))
	return nil
}

// stop tears down the current session. Caller holds the guard.
func (m *Manager) stop(ctx context.Context) error {
	m.mu.Lock()
	if m.state == domain.StateIdle {
		m.mu.Unlock()
		return nil
	}
	session := m.session
	conn := m.conn
	debugCloser := m.debugCloser
	m.mu.Unlock()

	m.transition(session.ID, domain.StateStopping)

	if conn != nil {
		if err := conn.Shutdown(ctx); err != nil {
			m.logger.Debugw("shutdown exchange failed", "session_id", session.ID, "error", err)
		}
	}
	if debugCloser != nil {
		debugCloser.Close()
	}

	var uptime time.Duration
	if !session.StartedAt.IsZero() {
		uptime = time.Since(session.StartedAt)
	}

	m.mu.Lock()
	m.conn = nil
	m.session = nil
	m.debugCloser = nil
	m.mu.Unlock()

	m.transition(session.ID, domain.StateIdle)
	m.reporter.WriteSessionEnd(session, uptime)
	return nil
}

// failStart resets to idle after a failed launch. A failed start is not
// a crash: no process survives it, and neither does a debug attachment
// that landed before the failure.
func (m *Manager) failStart(sessionID, detail string) {
	m.mu.Lock()
	debugCloser := m.debugCloser
	m.session = nil
	m.conn = nil
	m.debugCloser = nil
	m.mu.Unlock()
	if debugCloser != nil {
		debugCloser.Close()
	}
	m.transition(sessionID, domain.StateIdle)
	m.reporter.WriteFailure("LAUNCH_FAILED", detail)
}

func (m *Manager) reportResolveFailure(err error) {
	code := "NO_ENVIRONMENT"
	var tooLow *environment.VersionTooLowError
	switch {
	case errors.As(err, &tooLow):
		code = "VERSION_TOO_LOW"
	case errors.Is(err, environment.ErrUnresolvableVersion):
		code = "UNRESOLVABLE_VERSION"
	}
	m.reporter.WriteFailure(code, err.Error())
}

func (m *Manager) runAttach(ctx context.Context, sessionID string) {
	att, closer := m.attach(ctx, sessionID)
	m.mu.Lock()
	if m.session != nil && m.session.ID == sessionID {
		m.debugCloser = closer
	} else if closer != nil {
		// Session already gone; the attachment dies with it.
		closer.Close()
	}
	m.mu.Unlock()
	m.reporter.WriteDebugAttach(att)
}

// transition moves to the next state in strict order and reports it.
func (m *Manager) transition(sessionID string, to domain.SessionState) {
	m.mu.Lock()
	from := m.state
	m.state = to
	m.mu.Unlock()
	m.reporter.WriteStateChange(sessionID, from, to)
}

// Ping probes the running session's liveness.
func (m *Manager) Ping(ctx context.Context) error {
	m.mu.Lock()
	conn := m.conn
	state := m.state
	m.mu.Unlock()
	if state != domain.StateRunning || conn == nil {
		return ErrNoActiveSession
	}
	return conn.Ping(ctx)
}
