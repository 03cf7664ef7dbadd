// Package version decides whether the loader can run against the host it was
// handed, before any library is loaded.
package version

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/specialistvlad/stageloader/internal/host"
)

// ErrIncompatibleVersion is matched by every rejection from the gate.
var ErrIncompatibleVersion = errors.New("incompatible host version")

// Rule is the comparison a Requirement applies.
type Rule int

const (
	// AtLeast accepts any actual version greater than or equal to the
	// requirement. The host protocol is additive.
	AtLeast Rule = iota
	// Exact accepts only the required version. Submodule layouts are tied
	// to one host build.
	Exact
)

func (r Rule) String() string {
	if r == Exact {
		return "exactly"
	}
	return "at least"
}

// Requirement is one immutable version constraint.
type Requirement struct {
	Component string
	Version   uint32
	Rule      Rule
}

// IncompatibleError reports which requirement failed.
type IncompatibleError struct {
	Requirement Requirement
	Actual      uint32
}

func (e *IncompatibleError) Error() string {
	return fmt.Sprintf("%s version %08X rejected, expected %s %08X",
		e.Requirement.Component, e.Actual, e.Requirement.Rule, e.Requirement.Version)
}

func (e *IncompatibleError) Unwrap() error { return ErrIncompatibleVersion }

// Check validates actual against the requirement.
func (r Requirement) Check(actual uint32) error {
	var ok bool
	switch r.Rule {
	case Exact:
		ok = actual == r.Version
	default:
		ok = actual >= r.Version
	}
	if !ok {
		return &IncompatibleError{Requirement: r, Actual: actual}
	}
	return nil
}

// Gate holds the loader's compiled-against requirements.
type Gate struct {
	Protocol Requirement
	Runtime  Requirement
	Editor   Requirement
}

// NewGate builds a gate with a minimum host protocol version and exact
// per-mode build versions.
func NewGate(minProtocol, runtimeVersion, editorVersion uint32) Gate {
	return Gate{
		Protocol: Requirement{Component: "host protocol", Version: minProtocol, Rule: AtLeast},
		Runtime:  Requirement{Component: "runtime", Version: runtimeVersion, Rule: Exact},
		Editor:   Requirement{Component: "editor", Version: editorVersion, Rule: Exact},
	}
}

// CheckCompatibility returns nil when the host may proceed to loading. A
// non-nil error is a hard stop for this plugin, never a retryable condition.
func (g Gate) CheckCompatibility(caps host.Capabilities) error {
	if err := g.Protocol.Check(caps.ProtocolVersion); err != nil {
		return err
	}
	switch caps.Mode {
	case host.ModeRuntime:
		return g.Runtime.Check(caps.RuntimeVersion)
	case host.ModeEditor:
		return g.Editor.Check(caps.EditorVersion)
	default:
		return fmt.Errorf("%w: unknown host mode %s", ErrIncompatibleVersion, caps.Mode)
	}
}

// Parse reads a version number written in decimal or with a 0x/0o/0b prefix.
func Parse(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty version")
	}
	v, err := strconv.ParseUint(strings.ReplaceAll(s, "_", ""), 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid version %q: %w", s, err)
	}
	return uint32(v), nil
}

// Format renders a version the way host logs show them.
func Format(v uint32) string {
	return fmt.Sprintf("%08X", v)
}
