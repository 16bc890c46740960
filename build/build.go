// Package build implements the Executor: a per-target build routine
// shared by a serial and a parallel variant.
package build

import (
	"context"
	"time"

	logging "gopkg.in/op/go-logging.v1"

	"github.com/bagel-build/bagel/cache"
	"github.com/bagel-build/bagel/core"
	"github.com/bagel-build/bagel/fingerprint"
	"github.com/bagel-build/bagel/process"
)

var log = logging.MustGetLogger("build")

// ExecConfig configures a build run, shared between the serial and
// parallel executors.
type ExecConfig struct {
	// Root is the project root; target commands run with this as their
	// working directory and input patterns resolve relative to it.
	Root string
	// Force skips the cache check entirely: every target is rebuilt.
	Force bool
	// ContinueOnError lets the build keep scheduling dependents of a
	// failed target (as SkippedDueToFailedDep) instead of halting after
	// the current wave/step.
	ContinueOnError bool
	// CheckOutputs opts into a post-build existence check of each
	// target's declared outputs. It never affects the fingerprint or
	// cache key; a missing output is purely a reporting signal.
	CheckOutputs bool
}

// buildOne runs the shared per-target routine described in spec.md §4.D:
// expand globs, fingerprint, consult the cache, spawn if needed, record on
// success. capture controls whether subprocess output is captured
// (parallel) or streamed live (serial).
func buildOne(ctx context.Context, target *core.TargetSpec, store *cache.Store, cfg ExecConfig, capture bool) core.TargetResult {
	start := time.Now()

	inputs, err := fingerprint.ExpandInputs(cfg.Root, target.Inputs, target.Name)
	if err != nil {
		return core.TargetResult{
			Target:   target.Name,
			Status:   core.SpawnErrorStatus(err),
			Duration: time.Since(start),
		}
	}

	hash, err := fingerprint.Compute(cfg.Root, inputs, target.Cmd, target.Env, target.Name)
	if err != nil {
		return core.TargetResult{
			Target:   target.Name,
			Status:   core.SpawnErrorStatus(err),
			Duration: time.Since(start),
		}
	}

	if cfg.Force {
		log.Debugf("building %s (%s)", target.Name, core.ForcedRebuild)
	} else {
		needs, reason, err := store.NeedsRebuild(target.Name, hash.Inputs, hash.Cmd, hash.Env)
		if err != nil {
			return core.TargetResult{
				Target:   target.Name,
				Status:   core.SpawnErrorStatus(err),
				Duration: time.Since(start),
			}
		}
		if !needs {
			log.Debugf("not building %s, nothing's changed", target.Name)
			return core.TargetResult{
				Target:   target.Name,
				Status:   core.SkippedStatus(),
				Duration: time.Since(start),
			}
		}
		log.Debugf("building %s (%s)", target.Name, reason)
	}

	result := process.Run(ctx, target.Cmd, process.Options{
		Dir:     cfg.Root,
		Env:     target.Env,
		Capture: capture,
	})

	if result.Status.Kind == core.Built {
		store.RecordBuild(target.Name, hash.Inputs, hash.Cmd, hash.Env, time.Now())
		if err := store.FlushTarget(target.Name); err != nil {
			return core.TargetResult{
				Target:   target.Name,
				Status:   core.SpawnErrorStatus(err),
				Duration: time.Since(start),
				Output:   result.Output,
			}
		}
		if cfg.CheckOutputs {
			if missing := missingOutputs(cfg.Root, target.Outputs); missing {
				log.Warningf("%s: missing declared output(s) after build", target.Name)
				return core.TargetResult{
					Target:   target.Name,
					Status:   core.MissingOutputsStatus(),
					Duration: time.Since(start),
					Output:   result.Output,
				}
			}
		}
	} else if result.Status.IsFailure() {
		log.Warningf("%s: %s", target.Name, result.Status)
	}

	return core.TargetResult{
		Target:   target.Name,
		Status:   result.Status,
		Duration: time.Since(start),
		Output:   result.Output,
	}
}
