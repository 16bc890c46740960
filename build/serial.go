package build

import (
	"context"
	"time"

	"github.com/bagel-build/bagel/cache"
	"github.com/bagel-build/bagel/core"
)

// Serial runs every target in g's topological order, one at a time,
// streaming subprocess output directly to the terminal. It owns a single
// cache handle for the whole run. On a failure it stops dispatching
// further targets unless cfg.ContinueOnError is set, in which case
// dependents of the failure are recorded as SkippedDueToFailedDep and the
// walk continues.
func Serial(ctx context.Context, g *core.BuildGraph, store *cache.Store, cfg ExecConfig) *core.BuildReport {
	start := time.Now()
	report := &core.BuildReport{}

	failed := map[string]bool{}
	halted := false

	for _, name := range g.TopologicalOrder() {
		target := g.Spec().Get(name)

		if halted {
			break
		}

		if depFailed(target, failed) {
			log.Debugf("skipping %s, dependency failed", name)
			result := core.TargetResult{Target: name, Status: core.SkippedDueToFailedDepStatus()}
			report.Results = append(report.Results, result)
			failed[name] = true
			continue
		}

		result := buildOne(ctx, target, store, cfg, false)
		report.Results = append(report.Results, result)

		if result.Status.IsFailure() {
			failed[name] = true
			if !cfg.ContinueOnError {
				log.Warningf("halting build after %s failed", name)
				halted = true
			}
		}
	}

	report.TotalDuration = time.Since(start)
	return report
}

// depFailed reports whether any of target's dependencies are recorded as
// failed (directly or transitively, since failed propagates forward as
// entries are visited in topological order).
func depFailed(target *core.TargetSpec, failed map[string]bool) bool {
	for _, dep := range target.Deps {
		if failed[dep] {
			return true
		}
	}
	return false
}
