package output

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/ansup-io/ansup/internal/domain"
)

const schemaVersion = 1

// Writer is the reporting sink: one typed status line per lifecycle
// transition, failure, trigger and heartbeat. Write-only.
type Writer interface {
	WriteResolved(env domain.EnvironmentDescriptor) error
	WriteStateChange(sessionID string, from, to domain.SessionState) error
	WriteSessionStart(s *domain.Session) error
	WriteSessionEnd(s *domain.Session, uptime time.Duration) error
	WriteDebugAttach(att domain.DebugAttachment) error
	WriteHeartbeat(hb domain.HeartbeatResult) error
	WriteRestartTrigger(reason domain.RestartReason) error
	WriteFailure(code, message string) error
	WriteError(code, message string, hint ...string) error
	WriteResult(command string, result json.RawMessage) error
}

// NDJSONWriter emits one JSON object per line for machine consumers.
type NDJSONWriter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewNDJSONWriter creates an NDJSON writer over w.
func NewNDJSONWriter(w io.Writer) *NDJSONWriter {
	return &NDJSONWriter{w: w}
}

func (n *NDJSONWriter) write(v interface{}) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	enc := json.NewEncoder(n.w)
	return enc.Encode(v)
}

func (n *NDJSONWriter) WriteResolved(env domain.EnvironmentDescriptor) error {
	return n.write(struct {
		Type          string                       `json:"type"`
		SchemaVersion int                          `json:"schemaVersion"`
		Environment   domain.EnvironmentDescriptor `json:"environment"`
		Timestamp     string                       `json:"timestamp"`
	}{"resolved", schemaVersion, env, now()})
}

func (n *NDJSONWriter) WriteStateChange(sessionID string, from, to domain.SessionState) error {
	return n.write(struct {
		Type          string              `json:"type"`
		SchemaVersion int                 `json:"schemaVersion"`
		SessionID     string              `json:"session_id"`
		From          domain.SessionState `json:"from"`
		To            domain.SessionState `json:"to"`
		Timestamp     string              `json:"timestamp"`
	}{"state_change", schemaVersion, sessionID, from, to, now()})
}

func (n *NDJSONWriter) WriteSessionStart(s *domain.Session) error {
	return n.write(struct {
		Type          string          `json:"type"`
		SchemaVersion int             `json:"schemaVersion"`
		Session       *domain.Session `json:"session"`
		Timestamp     string          `json:"timestamp"`
	}{"session_start", schemaVersion, s, now()})
}

func (n *NDJSONWriter) WriteSessionEnd(s *domain.Session, uptime time.Duration) error {
	return n.write(struct {
		Type          string `json:"type"`
		SchemaVersion int    `json:"schemaVersion"`
		SessionID     string `json:"session_id"`
		PID           int    `json:"pid,omitempty"`
		UptimeSeconds int    `json:"uptime_seconds"`
		Timestamp     string `json:"timestamp"`
	}{"session_end", schemaVersion, s.ID, s.PID, int(uptime.Seconds()), now()})
}

func (n *NDJSONWriter) WriteDebugAttach(att domain.DebugAttachment) error {
	return n.write(struct {
		Type          string `json:"type"`
		SchemaVersion int    `json:"schemaVersion"`
		domain.DebugAttachment
		Timestamp string `json:"timestamp"`
	}{"debug_attach", schemaVersion, att, now()})
}

func (n *NDJSONWriter) WriteHeartbeat(hb domain.HeartbeatResult) error {
	return n.write(struct {
		Type          string `json:"type"`
		SchemaVersion int    `json:"schemaVersion"`
		OK            bool   `json:"ok"`
		Detail        string `json:"detail,omitempty"`
		Timestamp     string `json:"timestamp"`
	}{"heartbeat", schemaVersion, hb.OK, hb.Detail, hb.Timestamp.UTC().Format(time.RFC3339)})
}

func (n *NDJSONWriter) WriteRestartTrigger(reason domain.RestartReason) error {
	return n.write(struct {
		Type          string               `json:"type"`
		SchemaVersion int                  `json:"schemaVersion"`
		Reason        domain.RestartReason `json:"reason"`
		Timestamp     string               `json:"timestamp"`
	}{"restart_trigger", schemaVersion, reason, now()})
}

func (n *NDJSONWriter) WriteFailure(code, message string) error {
	return n.WriteError(code, message)
}

func (n *NDJSONWriter) WriteError(code, message string, hint ...string) error {
	ev := struct {
		Type          string `json:"type"`
		SchemaVersion int    `json:"schemaVersion"`
		Code          string `json:"code"`
		Message       string `json:"message"`
		Hint          string `json:"hint,omitempty"`
		Timestamp     string `json:"timestamp"`
	}{"error", schemaVersion, code, message, "", now()}
	if len(hint) > 0 {
		ev.Hint = hint[0]
	}
	return n.write(ev)
}

func (n *NDJSONWriter) WriteResult(command string, result json.RawMessage) error {
	return n.write(struct {
		Type          string          `json:"type"`
		SchemaVersion int             `json:"schemaVersion"`
		Command       string          `json:"command"`
		Result        json.RawMessage `json:"result,omitempty"`
		Timestamp     string          `json:"timestamp"`
	}{"command_result", schemaVersion, command, result, now()})
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
