package debug

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ansup-io/ansup/internal/config"
)

func testCfg() config.DebugConfig {
	return config.DebugConfig{
		Enabled:     true,
		Host:        "127.0.0.1",
		Port:        5678,
		SettleDelay: time.Millisecond,
	}
}

func TestAttachDisabled(t *testing.T) {
	cfg := testCfg()
	cfg.Enabled = false
	c := NewCoordinator(cfg, nil)

	att, closer := c.Attach(context.Background(), "sess-1")
	assert.False(t, att.Attached)
	assert.Empty(t, att.FailureReason)
	assert.Nil(t, closer)
}

func TestAttachMissingConfigIsRecordedNotFatal(t *testing.T) {
	cfg := testCfg()
	cfg.Host = ""
	c := NewCoordinator(cfg, nil)

	att, closer := c.Attach(context.Background(), "sess-1")
	assert.False(t, att.Attached)
	assert.Equal(t, ReasonMissingConfig, att.FailureReason)
	assert.Nil(t, closer)
	assert.Equal(t, "sess-1", att.SessionID)
}

func TestAttachDialFailure(t *testing.T) {
	c := NewCoordinator(testCfg(), nil)
	c.dial = func(ctx context.Context, addr string) (net.Conn, error) {
		return nil, errors.New("connection refused")
	}

	att, closer := c.Attach(context.Background(), "sess-2")
	assert.False(t, att.Attached)
	assert.Equal(t, ReasonAttachFailed, att.FailureReason)
	assert.Nil(t, closer)
}

func TestAttachSuccessAfterSettleDelay(t *testing.T) {
	var dialed string
	server, client := net.Pipe()
	defer server.Close()

	c := NewCoordinator(testCfg(), nil)
	c.dial = func(ctx context.Context, addr string) (net.Conn, error) {
		dialed = addr
		return client, nil
	}

	att, closer := c.Attach(context.Background(), "sess-3")
	require.True(t, att.Attached)
	assert.Empty(t, att.FailureReason)
	assert.Equal(t, "127.0.0.1:5678", dialed)
	require.NotNil(t, closer)
	closer.Close()
}

func TestAttachCancelledDuringSettle(t *testing.T) {
	cfg := testCfg()
	cfg.SettleDelay = time.Hour
	c := NewCoordinator(cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	att, closer := c.Attach(ctx, "sess-4")
	assert.False(t, att.Attached)
	assert.Equal(t, ReasonAttachFailed, att.FailureReason)
	assert.Nil(t, closer)
}
