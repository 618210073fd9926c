package output

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ansup-io/ansup/internal/domain"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	dec := json.NewDecoder(buf)
	var m map[string]interface{}
	require.NoError(t, dec.Decode(&m))
	return m
}

func TestWriteResolved(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewNDJSONWriter(buf)

	err := w.WriteResolved(domain.EnvironmentDescriptor{
		ExecutablePath: "/usr/bin/tool",
		Version:        "3.8.0",
		Source:         domain.SourceOverride,
	})
	require.NoError(t, err)

	m := decodeLine(t, buf)
	require.Equal(t, "resolved", m["type"])
	require.EqualValues(t, 1, m["schemaVersion"])
	env, ok := m["environment"].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "/usr/bin/tool", env["executable_path"])
	require.Equal(t, "3.8.0", env["version"])
	require.Equal(t, "override", env["source"])
}

func TestWriteStateChange(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewNDJSONWriter(buf)

	err := w.WriteStateChange("sess-1", domain.StateIdle, domain.StateStarting)
	require.NoError(t, err)

	m := decodeLine(t, buf)
	require.Equal(t, "state_change", m["type"])
	require.Equal(t, "sess-1", m["session_id"])
	require.Equal(t, "idle", m["from"])
	require.Equal(t, "starting", m["to"])
}

func TestWriteSessionEnd(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewNDJSONWriter(buf)

	s := &domain.Session{ID: "sess-2", PID: 99}
	err := w.WriteSessionEnd(s, 90*time.Second)
	require.NoError(t, err)

	m := decodeLine(t, buf)
	require.Equal(t, "session_end", m["type"])
	require.Equal(t, "sess-2", m["session_id"])
	require.EqualValues(t, 99, m["pid"])
	require.EqualValues(t, 90, m["uptime_seconds"])
}

func TestWriteHeartbeat(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewNDJSONWriter(buf)

	err := w.WriteHeartbeat(domain.HeartbeatResult{
		Timestamp: time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC),
		OK:        false,
		Detail:    "probe timed out",
	})
	require.NoError(t, err)

	m := decodeLine(t, buf)
	require.Equal(t, "heartbeat", m["type"])
	require.Equal(t, false, m["ok"])
	require.Equal(t, "probe timed out", m["detail"])
	require.Equal(t, "2026-02-01T12:00:00Z", m["timestamp"])
}

func TestWriteErrorWithHint(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewNDJSONWriter(buf)

	err := w.WriteError("VERSION_TOO_LOW", "found 3.6.0, required 3.7.9", "upgrade the runtime")
	require.NoError(t, err)

	m := decodeLine(t, buf)
	require.Equal(t, "error", m["type"])
	require.Equal(t, "VERSION_TOO_LOW", m["code"])
	require.Equal(t, "upgrade the runtime", m["hint"])
}

func TestWriteDebugAttachInlinesAttachment(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewNDJSONWriter(buf)

	err := w.WriteDebugAttach(domain.DebugAttachment{
		SessionID:     "sess-3",
		FailureReason: "MISSING_DEBUG_CONFIG",
	})
	require.NoError(t, err)

	m := decodeLine(t, buf)
	require.Equal(t, "debug_attach", m["type"])
	require.Equal(t, "sess-3", m["session_id"])
	require.Equal(t, false, m["attached"])
	require.Equal(t, "MISSING_DEBUG_CONFIG", m["failure_reason"])
}

func TestTextWriterHeartbeat(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewTextWriter(buf)

	require.NoError(t, w.WriteHeartbeat(domain.HeartbeatResult{OK: true}))
	assert.Contains(t, buf.String(), "heartbeat ok")
}
