package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/karrick/godirwalk"

	"github.com/bagel-build/bagel/core"
)

// CachedTargets lists the names of every target with a persisted entry on
// disk, found by walking the cache directory rather than consulting
// in-memory state (so it reflects entries from previous invocations too).
func (s *Store) CachedTargets() ([]string, error) {
	if _, err := os.Stat(s.dir); os.IsNotExist(err) {
		return nil, nil
	}

	var names []string
	err := godirwalk.Walk(s.dir, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			if de.IsDir() {
				return nil
			}
			name := filepath.Base(path)
			if strings.HasSuffix(name, ".json") {
				names = append(names, strings.TrimSuffix(name, ".json"))
			}
			return nil
		},
		Unsorted: true,
	})
	if err != nil {
		return nil, &core.CacheError{Message: "failed to walk cache directory", Cause: err}
	}
	sort.Strings(names)
	return names, nil
}

// A PruneResult summarises a Prune call for CLI reporting.
type PruneResult struct {
	Removed    []string
	BytesFreed uint64
}

// Summary renders a human-readable one-line summary, e.g. "removed 3
// entries, freed 128 B".
func (r *PruneResult) Summary() string {
	if len(r.Removed) == 0 {
		return "nothing to prune"
	}
	return "removed " + humanize.Comma(int64(len(r.Removed))) + " entries, freed " + humanize.Bytes(r.BytesFreed)
}

// Prune removes every cache entry whose built_at is older than maxAge,
// relative to now. Entries currently held dirty in memory (built during
// this invocation but not yet flushed) are never pruned, since they are
// not yet "old" by definition. This bounds the unbounded growth of
// .bagel/cache for long-lived projects.
func (s *Store) Prune(maxAge time.Duration, now time.Time) (*PruneResult, error) {
	targets, err := s.CachedTargets()
	if err != nil {
		return nil, err
	}
	log.Debugf("pruning cache entries older than %s across %d target(s)", maxAge, len(targets))

	result := &PruneResult{}
	cutoff := now.Add(-maxAge)

	s.mu.Lock()
	dirty := make(map[string]bool, len(s.entries))
	for name, st := range s.entries {
		if st.dirty {
			dirty[name] = true
		}
	}
	s.mu.Unlock()

	for _, target := range targets {
		if dirty[target] {
			continue
		}
		path := s.entryPath(target)
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		} else if err != nil {
			return nil, &core.CacheError{Target: target, Message: "failed to read cache entry during prune", Cause: err}
		}
		var entry CacheEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			return nil, &core.CacheError{Target: target, Message: "cache entry is corrupt", Cause: err}
		}
		if time.Unix(entry.BuiltAt, 0).After(cutoff) {
			continue
		}
		info, statErr := os.Stat(path)
		if err := os.Remove(path); err != nil {
			return nil, &core.CacheError{Target: target, Message: "failed to remove cache entry during prune", Cause: err}
		}
		if statErr == nil {
			result.BytesFreed += uint64(info.Size())
		}
		log.Debugf("pruned %s, built %s", target, humanize.Time(time.Unix(entry.BuiltAt, 0)))
		result.Removed = append(result.Removed, target)

		s.mu.Lock()
		delete(s.entries, target)
		s.mu.Unlock()
	}

	log.Infof("pruned %d entries, freed %s", len(result.Removed), humanize.Bytes(result.BytesFreed))
	return result, nil
}
