package environment

import (
	"context"
	"os/exec"
	"regexp"
	"strings"
)

// Details is what a provider can report about a runtime it resolved.
type Details struct {
	Version string // raw version string as reported by the runtime
}

// Provider locates the currently active runtime and resolves its details.
// Implementations are expected to be side-effect free beyond the probe
// itself.
type Provider interface {
	// ActivePath returns the path of the active runtime executable,
	// or ErrNoEnvironment if none is resolvable.
	ActivePath(ctx context.Context) (string, error)
	// Details probes the runtime at path for its reported version.
	Details(ctx context.Context, path string) (Details, error)
}

var versionPattern = regexp.MustCompile(`(\d+)\.(\d+)(?:\.(\d+))?`)

// ExecProvider discovers a runtime by looking up candidate executable
// names on PATH and probing the winner with --version.
type ExecProvider struct {
	Candidates []string

	// lookPath and runProbe are swapped out in tests
	lookPath func(name string) (string, error)
	runProbe func(ctx context.Context, path string) (string, error)
}

// NewExecProvider creates a provider over the given candidate names.
func NewExecProvider(candidates []string) *ExecProvider {
	return &ExecProvider{
		Candidates: candidates,
		lookPath:   exec.LookPath,
		runProbe:   runVersionProbe,
	}
}

func (p *ExecProvider) ActivePath(ctx context.Context) (string, error) {
	for _, name := range p.Candidates {
		path, err := p.lookPath(name)
		if err == nil {
			return path, nil
		}
	}
	return "", ErrNoEnvironment
}

func (p *ExecProvider) Details(ctx context.Context, path string) (Details, error) {
	out, err := p.runProbe(ctx, path)
	if err != nil {
		return Details{}, ErrUnresolvableVersion
	}
	return Details{Version: strings.TrimSpace(out)}, nil
}

func runVersionProbe(ctx context.Context, path string) (string, error) {
	// Runtimes historically print the version banner on stderr, so
	// capture both streams.
	cmd := exec.CommandContext(ctx, path, "--version")
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", err
	}
	return string(out), nil
}
