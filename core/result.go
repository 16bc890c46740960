package core

import (
	"fmt"
	"time"
)

// A StatusKind is the discriminant of a TargetStatus. Go has no sum types,
// so a closed status type is modelled the conventional way for this
// codebase: a small enum plus, for variants that carry data (Failed's exit
// code, SpawnError's cause), extra fields on the containing struct that are
// only meaningful for that kind.
type StatusKind int

const (
	// Built means the target's command ran and exited zero.
	Built StatusKind = iota
	// Skipped means the cache already held a matching fingerprint.
	Skipped
	// Failed means the command ran and exited non-zero; Code holds the exit
	// code.
	Failed
	// Signaled means the command was terminated by a signal before it could
	// exit normally.
	Signaled
	// SpawnError means the command could never be started (shell missing,
	// permission denied, etc), as distinct from running and failing. A
	// dedicated kind rather than overloading Failed(-1), which could
	// otherwise be confused with a real process exit code on some
	// platforms.
	SpawnError
	// SkippedDueToFailedDep means this target was not run because one of
	// its dependencies failed (or was itself skipped for the same reason)
	// and continue_on_error was set. Without continue_on_error the build
	// halts before this target would ever be considered.
	SkippedDueToFailedDep
	// MissingOutputs means the command exited zero but, with
	// ExecConfig.CheckOutputs enabled, one or more declared outputs did not
	// exist afterwards. The cache entry is still written: outputs are not
	// part of the fingerprint (spec.md's non-goals), so this is purely a
	// reporting signal.
	MissingOutputs
)

// TargetStatus is the terminal outcome of one target within a single
// invocation.
type TargetStatus struct {
	Kind StatusKind
	// Code is the process exit code; only meaningful when Kind == Failed.
	Code int
	// Err is the underlying error; only meaningful when Kind == SpawnError.
	Err error
}

// String renders the status the way it appears in CLI output.
func (s TargetStatus) String() string {
	switch s.Kind {
	case Built:
		return "built"
	case Skipped:
		return "skipped"
	case Failed:
		return fmt.Sprintf("failed (exit code %d)", s.Code)
	case Signaled:
		return "killed by signal"
	case SpawnError:
		return fmt.Sprintf("could not start: %s", s.Err)
	case SkippedDueToFailedDep:
		return "skipped (dependency failed)"
	case MissingOutputs:
		return "missing declared outputs"
	default:
		return "unknown"
	}
}

// IsFailure reports whether this status counts as a build failure for exit
// code and continue_on_error purposes. SkippedDueToFailedDep does too: it's
// not a fresh failure, but the build as a whole did not fully succeed.
func (s TargetStatus) IsFailure() bool {
	switch s.Kind {
	case Failed, Signaled, SpawnError, SkippedDueToFailedDep, MissingOutputs:
		return true
	default:
		return false
	}
}

// BuiltStatus, SkippedStatus etc. are convenience constructors so callers
// don't have to spell out the zero-value fields for kinds that don't carry
// extra data.
func BuiltStatus() TargetStatus             { return TargetStatus{Kind: Built} }
func SkippedStatus() TargetStatus           { return TargetStatus{Kind: Skipped} }
func SignaledStatus() TargetStatus          { return TargetStatus{Kind: Signaled} }
func SkippedDueToFailedDepStatus() TargetStatus {
	return TargetStatus{Kind: SkippedDueToFailedDep}
}
func MissingOutputsStatus() TargetStatus { return TargetStatus{Kind: MissingOutputs} }

// FailedStatus constructs a Failed status carrying the given exit code.
func FailedStatus(code int) TargetStatus { return TargetStatus{Kind: Failed, Code: code} }

// SpawnErrorStatus constructs a SpawnError status carrying the underlying
// cause.
func SpawnErrorStatus(err error) TargetStatus { return TargetStatus{Kind: SpawnError, Err: err} }

// A RebuildReason classifies *why* a target needs rebuilding, beyond the
// plain boolean the cache store's needs_rebuild check returns. Purely
// diagnostic: it never changes whether a rebuild happens.
type RebuildReason int

const (
	// NotNeeded means the cached fingerprint matches; no rebuild needed.
	NotNeeded RebuildReason = iota
	// NeverBuilt means no cache entry exists yet for this target.
	NeverBuilt
	// ForcedRebuild means --force was given; the cache wasn't consulted.
	ForcedRebuild
	// InputsChanged means the recorded entry's input-files hash differs
	// from the current one, with command and environment unchanged.
	InputsChanged
	// CommandChanged means the recorded entry's command hash differs from
	// the current one, with inputs and environment unchanged.
	CommandChanged
	// EnvChanged means the recorded entry's environment hash differs from
	// the current one, with inputs and command unchanged.
	EnvChanged
	// HashMismatch means a cache entry exists and differs from the current
	// fingerprint, but not in a way the three component hashes can
	// attribute to a single component (e.g. a legacy entry written under
	// an older cache schema, whose component hashes all come back empty).
	HashMismatch
)

// String renders the reason for verbose/info output.
func (r RebuildReason) String() string {
	switch r {
	case NotNeeded:
		return "up to date"
	case NeverBuilt:
		return "never built"
	case ForcedRebuild:
		return "forced rebuild"
	case InputsChanged:
		return "inputs changed"
	case CommandChanged:
		return "command changed"
	case EnvChanged:
		return "environment changed"
	case HashMismatch:
		return "inputs, command, or environment changed"
	default:
		return "unknown"
	}
}

// A TargetResult is the transient outcome of building (or skipping) one
// target during a single invocation.
type TargetResult struct {
	Target   string
	Status   TargetStatus
	Duration time.Duration
	// Output holds captured combined stdout+stderr. The serial executor
	// leaves this nil (it streams output live to the terminal instead); the
	// parallel executor populates it for every target whose command ran.
	Output []byte
}

// A BuildReport aggregates every target's outcome from a single
// invocation, in completion order (not topological order, per spec.md
// §5).
type BuildReport struct {
	Results       []TargetResult
	TotalDuration time.Duration
}

// Success reports whether every target in the report succeeded.
func (r *BuildReport) Success() bool {
	for _, res := range r.Results {
		if res.Status.IsFailure() {
			return false
		}
	}
	return true
}

// BuiltCount, SkippedCount, FailedCount return the counts the CLI's
// end-of-build summary line reports.
func (r *BuildReport) BuiltCount() int   { return r.countKind(Built) }
func (r *BuildReport) SkippedCount() int { return r.countKind(Skipped) }

// FailedCount counts every failure kind (Failed, Signaled, SpawnError,
// SkippedDueToFailedDep, MissingOutputs), per spec.md's "failed includes
// Signaled".
func (r *BuildReport) FailedCount() int {
	n := 0
	for _, res := range r.Results {
		if res.Status.IsFailure() {
			n++
		}
	}
	return n
}

func (r *BuildReport) countKind(k StatusKind) int {
	n := 0
	for _, res := range r.Results {
		if res.Status.Kind == k {
			n++
		}
	}
	return n
}
