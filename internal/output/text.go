package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/ansup-io/ansup/internal/domain"
)

var (
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	faintStyle = lipgloss.NewStyle().Faint(true)
)

// TextWriter renders status lines for humans.
type TextWriter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewTextWriter creates a text writer over w.
func NewTextWriter(w io.Writer) *TextWriter {
	return &TextWriter{w: w}
}

func (t *TextWriter) line(format string, args ...interface{}) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	stamp := faintStyle.Render(time.Now().Format("15:04:05"))
	_, err := fmt.Fprintf(t.w, "%s %s\n", stamp, fmt.Sprintf(format, args...))
	return err
}

func (t *TextWriter) WriteResolved(env domain.EnvironmentDescriptor) error {
	return t.line("environment resolved: %s (version %s, %s)", env.ExecutablePath, env.Version, env.Source)
}

func (t *TextWriter) WriteStateChange(sessionID string, from, to domain.SessionState) error {
	return t.line("session %s: %s -> %s", shortID(sessionID), from, to)
}

func (t *TextWriter) WriteSessionStart(s *domain.Session) error {
	return t.line("%s session %s running (pid %d, %d commands)",
		okStyle.Render("●"), shortID(s.ID), s.PID, len(s.Capabilities))
}

func (t *TextWriter) WriteSessionEnd(s *domain.Session, uptime time.Duration) error {
	return t.line("○ session %s stopped after %s", shortID(s.ID), uptime.Round(time.Second))
}

func (t *TextWriter) WriteDebugAttach(att domain.DebugAttachment) error {
	if att.Attached {
		return t.line("%s debug channel attached (session %s)", okStyle.Render("●"), shortID(att.SessionID))
	}
	if att.FailureReason == "" {
		return t.line("debug channel disabled")
	}
	return t.line("%s debug attach failed: %s", warnStyle.Render("!"), att.FailureReason)
}

func (t *TextWriter) WriteHeartbeat(hb domain.HeartbeatResult) error {
	if hb.OK {
		return t.line("%s heartbeat ok", okStyle.Render("♥"))
	}
	return t.line("%s heartbeat failed: %s", warnStyle.Render("♥"), hb.Detail)
}

func (t *TextWriter) WriteRestartTrigger(reason domain.RestartReason) error {
	return t.line("restart requested (%s)", reason)
}

func (t *TextWriter) WriteFailure(code, message string) error {
	return t.line("%s %s", errStyle.Render("["+code+"]"), message)
}

func (t *TextWriter) WriteError(code, message string, hint ...string) error {
	if len(hint) > 0 && hint[0] != "" {
		return t.line("%s %s (hint: %s)", errStyle.Render("["+code+"]"), message, hint[0])
	}
	return t.WriteFailure(code, message)
}

func (t *TextWriter) WriteResult(command string, result json.RawMessage) error {
	return t.line("%s => %s", command, string(result))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
