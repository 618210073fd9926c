package domain

import (
	"time"

	"github.com/google/uuid"
)

// SessionState is the lifecycle state of the supervised analysis server session.
type SessionState string

const (
	StateIdle     SessionState = "idle"
	StateStarting SessionState = "starting"
	StateRunning  SessionState = "running"
	StateStopping SessionState = "stopping"
)

// EnvironmentSource records how the executable path was obtained.
type EnvironmentSource string

const (
	SourceOverride   EnvironmentSource = "override"
	SourceDiscovered EnvironmentSource = "discovered"
)

// EnvironmentDescriptor is the result of environment resolution.
type EnvironmentDescriptor struct {
	ExecutablePath string            `json:"executable_path"`
	Version        string            `json:"version"` // canonical triple, e.g. "3.8.0"
	Source         EnvironmentSource `json:"source"`
}

// Session is the single logical connection to the companion process.
// The supervisor owns exactly one; at most one is ever non-idle.
type Session struct {
	ID           string                `json:"session_id"`
	Environment  EnvironmentDescriptor `json:"environment"`
	PID          int                   `json:"pid,omitempty"`
	StartedAt    time.Time             `json:"started_at"`
	Capabilities []string              `json:"capabilities,omitempty"`
}

// NewSession creates a Session for a freshly resolved environment.
func NewSession(env EnvironmentDescriptor) *Session {
	return &Session{
		ID:          uuid.NewString(),
		Environment: env,
	}
}

// RestartReason tags why a restart was requested.
type RestartReason string

const (
	ReasonEnvironmentChanged RestartReason = "environment-changed"
	ReasonConfigChanged      RestartReason = "config-changed"
	ReasonDocumentOpened     RestartReason = "document-opened"
	ReasonManual             RestartReason = "manual"
)

// HeartbeatResult is a single liveness observation. It is reported,
// never persisted, and never acted on by the watchdog itself.
type HeartbeatResult struct {
	Timestamp time.Time `json:"timestamp"`
	OK        bool      `json:"ok"`
	Detail    string    `json:"detail,omitempty"`
}

// DebugAttachment is the outcome of the optional debug channel attach.
// It is scoped to the session it was created for and carries a failure
// reason instead of raising one.
type DebugAttachment struct {
	SessionID     string `json:"session_id"`
	Attached      bool   `json:"attached"`
	FailureReason string `json:"failure_reason,omitempty"`
}
