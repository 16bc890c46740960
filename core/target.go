// Package core holds Bagel's data model: the declared build spec, the
// dependency graph derived from it, and the transient results of running a
// build.
package core

import (
	"fmt"
	"strings"
)

// A Kind distinguishes the two flavours of target Bagel knows about. It
// doesn't affect how a target is built; it's carried through so front ends
// and the info command can display it.
type Kind int

const (
	// Binary is the default kind: a target that produces something runnable.
	Binary Kind = iota
	// Lib marks a target as a library, built the same way but intended to be
	// depended on rather than run directly.
	Lib
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case Lib:
		return "lib"
	default:
		return "binary"
	}
}

// ParseKind parses the "binary"/"lib" strings accepted in Bagel.toml.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "binary":
		return Binary, nil
	case "lib":
		return Lib, nil
	default:
		return Binary, fmt.Errorf("unknown target kind %q", s)
	}
}

// A TargetSpec is one target as declared by the user: a shell command, the
// files it reads, the files it's declared to produce, the other targets it
// depends on, and any environment it needs.
type TargetSpec struct {
	// Name is the target's identifier, unique within its BuildSpec.
	Name string
	// Cmd is the shell command run to build this target.
	Cmd string
	// Inputs is the ordered list of path/glob patterns Bagel fingerprints.
	Inputs []string
	// Outputs is the ordered list of paths this target is declared to
	// produce. Declarative only: the core never reads them, except when
	// ExecConfig.CheckOutputs opts into a post-build existence check.
	Outputs []string
	// Deps lists the names of other targets in the same BuildSpec that must
	// finish (successfully or not) before this target starts.
	Deps []string
	// Env is environment to set (or override) for this target's command.
	Env map[string]string
	// Kind is Binary or Lib; doesn't affect execution.
	Kind Kind
}

// hasDep reports whether name appears in t.Deps.
func (t *TargetSpec) hasDep(name string) bool {
	for _, d := range t.Deps {
		if d == name {
			return true
		}
	}
	return false
}

// validate checks this target's own fields in isolation (not its
// relationship to the rest of the spec, which BuildSpec.Validate handles).
func (t *TargetSpec) validate() error {
	if strings.TrimSpace(t.Cmd) == "" {
		return NewSpecError(t.Name, "has an empty command")
	}
	if len(t.Inputs) == 0 {
		return NewSpecError(t.Name, "has no inputs")
	}
	for _, in := range t.Inputs {
		if strings.TrimSpace(in) == "" {
			return NewSpecError(t.Name, "has an empty input pattern")
		}
	}
	if len(t.Outputs) == 0 {
		return NewSpecError(t.Name, "has no outputs")
	}
	for _, out := range t.Outputs {
		if strings.TrimSpace(out) == "" {
			return NewSpecError(t.Name, "has an empty output path")
		}
	}
	for _, d := range t.Deps {
		if strings.TrimSpace(d) == "" {
			return NewSpecError(t.Name, "has an empty dependency name")
		}
	}
	if t.hasDep(t.Name) {
		return NewSpecError(t.Name, "depends on itself")
	}
	return nil
}

// A BuildSpec is the full set of targets declared for a project: the
// mapping from target name to TargetSpec, parsed once from Bagel.toml and
// immutable thereafter.
type BuildSpec struct {
	Targets map[string]*TargetSpec
}

// NewBuildSpec wraps a name->target map as a BuildSpec. It does not
// validate; call Validate (or use config.Load, which does both together).
func NewBuildSpec(targets map[string]*TargetSpec) *BuildSpec {
	return &BuildSpec{Targets: targets}
}

// Get returns the named target, or nil if it isn't in the spec.
func (s *BuildSpec) Get(name string) *TargetSpec {
	return s.Targets[name]
}

// Has reports whether name is a target in this spec.
func (s *BuildSpec) Has(name string) bool {
	_, ok := s.Targets[name]
	return ok
}

// Names returns the target names in this spec, unsorted.
func (s *BuildSpec) Names() []string {
	names := make([]string, 0, len(s.Targets))
	for name := range s.Targets {
		names = append(names, name)
	}
	return names
}
