package environment

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/mod/semver"

	"github.com/ansup-io/ansup/internal/domain"
)

var (
	// ErrNoEnvironment means no runtime could be located at all.
	ErrNoEnvironment = errors.New("no usable environment found")
	// ErrUnresolvableVersion means a runtime was found but its version
	// string could not be parsed.
	ErrUnresolvableVersion = errors.New("environment version is unresolvable")
)

// VersionTooLowError means the resolved runtime is older than the
// minimum the analysis server requires.
type VersionTooLowError struct {
	Found    string
	Required string
}

func (e *VersionTooLowError) Error() string {
	return fmt.Sprintf("environment version %s is below required minimum %s", e.Found, e.Required)
}

// Resolver discovers a usable execution environment and gates it on a
// minimum version. Resolution fails closed: on any error no descriptor
// is produced and no session may be started from it.
type Resolver struct {
	provider Provider
	minimum  string // canonical triple, e.g. "3.7.9"
}

// NewResolver creates a Resolver over the given provider and minimum
// version constraint.
func NewResolver(provider Provider, minimum string) *Resolver {
	return &Resolver{provider: provider, minimum: minimum}
}

// Resolve produces an environment descriptor. A non-empty override path
// is trusted as-is and skips discovery; its version is still probed and
// gated. The check against the minimum is pure given the probed version.
func (r *Resolver) Resolve(ctx context.Context, override string) (domain.EnvironmentDescriptor, error) {
	path := override
	source := domain.SourceOverride
	if path == "" {
		discovered, err := r.provider.ActivePath(ctx)
		if err != nil {
			return domain.EnvironmentDescriptor{}, err
		}
		path = discovered
		source = domain.SourceDiscovered
	}

	details, err := r.provider.Details(ctx, path)
	if err != nil {
		return domain.EnvironmentDescriptor{}, err
	}

	version, ok := parseVersion(details.Version)
	if !ok {
		return domain.EnvironmentDescriptor{}, ErrUnresolvableVersion
	}

	if semver.Compare("v"+version, "v"+r.minimum) < 0 {
		return domain.EnvironmentDescriptor{}, &VersionTooLowError{Found: version, Required: r.minimum}
	}

	return domain.EnvironmentDescriptor{
		ExecutablePath: path,
		Version:        version,
		Source:         source,
	}, nil
}

// parseVersion extracts a canonical major.minor.patch triple from a raw
// version banner ("Python 3.8.0", "3.8", ...).
func parseVersion(raw string) (string, bool) {
	m := versionPattern.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	patch := m[3]
	if patch == "" {
		patch = "0"
	}
	return fmt.Sprintf("%s.%s.%s", m[1], m[2], patch), true
}
