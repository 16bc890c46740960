package bagelcli

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bagel-build/bagel/core"
)

// debounceWindow coalesces bursts of filesystem events (editors commonly
// write a file, then touch its mtime, then write a swap file) into a
// single rebuild.
const debounceWindow = 200 * time.Millisecond

// Watch watches every input path declared across spec's targets and calls
// rebuild once after each burst of changes, until ctx is cancelled.
// For each input pattern, the parent directory of the pattern (resolved
// relative to root) is registered, since fsnotify watches concrete paths
// rather than glob patterns; any event in a registered directory triggers
// a rebuild, and newly created files matching a glob are picked up that
// way. A directory that cannot be registered (it does not exist, or its
// path itself holds glob metacharacters, as with "**/*.go") is logged and
// not watched; subdirectories are not watched.
func Watch(ctx context.Context, root string, spec *core.BuildSpec, rebuild func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dirs := map[string]bool{}
	for _, name := range spec.Names() {
		target := spec.Get(name)
		for _, input := range target.Inputs {
			dir := filepath.Dir(filepath.Join(root, input))
			dirs[dir] = true
		}
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			log.Warningf("failed to watch %s: %s", dir, err)
		}
	}

	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounceWindow, rebuild)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warningf("watch error: %s", err)
		}
	}
}
