package build

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bagel-build/bagel/cache"
	"github.com/bagel-build/bagel/core"
)

// ParallelConfig extends ExecConfig with the parallel variant's own
// knobs.
type ParallelConfig struct {
	ExecConfig
	// Workers bounds the number of targets built concurrently within a
	// wave. Zero or negative means unbounded (errgroup.SetLimit(-1)).
	Workers int
}

// Parallel runs g wave by wave: each wave is the current set of targets
// whose outstanding-dependency count has reached zero, dispatched
// concurrently and bounded by cfg.Workers. All workers share the one
// store (its own locking makes this safe, and each worker only ever
// touches the target it was assigned, so each entry file is written by a
// single worker). A failed target halts new wave dispatch unless
// cfg.ContinueOnError is set.
func Parallel(ctx context.Context, g *core.BuildGraph, store *cache.Store, cfg ParallelConfig) *core.BuildReport {
	start := time.Now()
	report := &core.BuildReport{}
	var resultsMu sync.Mutex

	outstanding := g.OutstandingDeps()
	counters := make(map[string]*int32, len(outstanding))
	for name, n := range outstanding {
		v := int32(n)
		counters[name] = &v
	}

	failed := map[string]bool{}
	var failedMu sync.Mutex

	ready := readyTargets(counters)
	halted := false

	for len(ready) > 0 && !halted {
		wave := ready
		ready = nil
		log.Debugf("dispatching wave of %d target(s): %v", len(wave), wave)

		eg, egCtx := errgroup.WithContext(ctx)
		if cfg.Workers > 0 {
			eg.SetLimit(cfg.Workers)
		}

		var nextWave []string
		var nextMu sync.Mutex

		for _, name := range wave {
			name := name
			eg.Go(func() error {
				target := g.Spec().Get(name)

				failedMu.Lock()
				skip := depFailed(target, failed)
				failedMu.Unlock()

				var result core.TargetResult
				if skip {
					log.Debugf("skipping %s, dependency failed", name)
					result = core.TargetResult{Target: name, Status: core.SkippedDueToFailedDepStatus()}
				} else {
					result = buildOne(egCtx, target, store, cfg.ExecConfig, true)
				}

				resultsMu.Lock()
				report.Results = append(report.Results, result)
				resultsMu.Unlock()

				if result.Status.IsFailure() {
					failedMu.Lock()
					failed[name] = true
					failedMu.Unlock()
				}

				for _, dependent := range g.ReverseDeps(name) {
					if atomic.AddInt32(counters[dependent], -1) == 0 {
						nextMu.Lock()
						nextWave = append(nextWave, dependent)
						nextMu.Unlock()
					}
				}
				return nil
			})
		}

		// errgroup's own Wait never returns an error here: buildOne never
		// returns a Go error, it encodes failure in the TargetResult. The
		// group exists purely to bound concurrency and wait for the wave.
		_ = eg.Wait()

		failedMu.Lock()
		anyFailed := len(failed) > 0
		failedMu.Unlock()
		if anyFailed && !cfg.ContinueOnError {
			log.Warningf("halting build, a target in this wave failed")
			halted = true
			break
		}

		sort.Strings(nextWave)
		ready = nextWave
	}

	report.TotalDuration = time.Since(start)
	return report
}

// readyTargets returns the names whose outstanding-dependency count is
// already zero, sorted for reproducible wave ordering.
func readyTargets(counters map[string]*int32) []string {
	var ready []string
	for name, count := range counters {
		if atomic.LoadInt32(count) == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)
	return ready
}
