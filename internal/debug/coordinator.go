package debug

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/ansup-io/ansup/internal/config"
	"github.com/ansup-io/ansup/internal/domain"
)

// Failure reasons recorded on the attachment, never raised.
const (
	ReasonMissingConfig = "MISSING_DEBUG_CONFIG"
	ReasonAttachFailed  = "DEBUG_ATTACH_FAILED"
)

const dialTimeout = 5 * time.Second

// DialFunc opens the debug channel. Swapped out in tests.
type DialFunc func(ctx context.Context, addr string) (net.Conn, error)

// Coordinator attaches the optional debug channel to a starting
// session. All outcomes are recorded on the returned attachment; a
// failed attach leaves the primary session untouched.
type Coordinator struct {
	cfg   config.DebugConfig
	clock clock.Clock
	dial  DialFunc
}

// NewCoordinator creates a Coordinator for the given debug settings.
func NewCoordinator(cfg config.DebugConfig, clk clock.Clock) *Coordinator {
	if clk == nil {
		clk = clock.New()
	}
	return &Coordinator{
		cfg:   cfg,
		clock: clk,
		dial: func(ctx context.Context, addr string) (net.Conn, error) {
			d := net.Dialer{Timeout: dialTimeout}
			return d.DialContext(ctx, "tcp", addr)
		},
	}
}

// Attach waits out the settle delay (the server needs a moment before a
// debugger can connect) and then dials the configured endpoint. The
// returned closer owns the channel and is non-nil only on success.
func (c *Coordinator) Attach(ctx context.Context, sessionID string) (domain.DebugAttachment, io.Closer) {
	att := domain.DebugAttachment{SessionID: sessionID}
	if !c.cfg.Enabled {
		return att, nil
	}
	if c.cfg.Host == "" || c.cfg.Port == 0 {
		att.FailureReason = ReasonMissingConfig
		return att, nil
	}

	timer := c.clock.Timer(c.cfg.SettleDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		att.FailureReason = ReasonAttachFailed
		return att, nil
	case <-timer.C:
	}

	conn, err := c.dial(ctx, fmt.Sprintf("%s:%d", c.cfg.Host, c.cfg.Port))
	if err != nil {
		att.FailureReason = ReasonAttachFailed
		return att, nil
	}
	att.Attached = true
	return att, conn
}
