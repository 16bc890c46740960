// Package cache implements Bagel's content-addressed cache store: one JSON
// entry per target under <project_root>/.bagel/cache, loaded on demand and
// flushed atomically so many workers can update different targets at once
// without coordination.
package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	logging "gopkg.in/op/go-logging.v1"

	"github.com/bagel-build/bagel/core"
)

var log = logging.MustGetLogger("cache")

const cacheDirName = ".bagel/cache"

// A CacheEntry is the persisted record of a target's last successful
// build. The three hashes are kept independent, rather than combined into
// one, so NeedsRebuild can report which one of them changed. A legacy
// entry written under the old single-Hash schema deserializes with all
// three fields empty, which NeedsRebuild treats as HashMismatch.
type CacheEntry struct {
	InputsHash string `json:"inputs_hash"`
	CmdHash    string `json:"cmd_hash"`
	EnvHash    string `json:"env_hash"`
	// BuiltAt is the Unix timestamp the entry was recorded.
	BuiltAt int64 `json:"built_at"`
}

// entryState tracks an in-memory CacheEntry together with whether it has
// unflushed changes.
type entryState struct {
	entry *CacheEntry
	dirty bool
}

// A Store is a handle onto one project's on-disk cache directory. A Store
// is safe for concurrent use by multiple goroutines, each operating on
// different targets; the locking only protects the in-memory map, since
// the on-disk protocol (write-temp, rename) never requires cross-worker
// coordination.
type Store struct {
	dir string

	mu      sync.Mutex
	entries map[string]*entryState
}

// Open returns a Store rooted at <root>/.bagel/cache. The directory is not
// created until the first write.
func Open(root string) *Store {
	return &Store{
		dir:     filepath.Join(root, cacheDirName),
		entries: map[string]*entryState{},
	}
}

// NeedsRebuild answers whether target needs rebuilding given its current
// component hashes. The first query for a target loads its entry from
// disk if present; later queries within the same Store reuse the
// in-memory copy. A target with no recorded entry always needs
// rebuilding. When an entry exists but differs, the reason names whichever
// single component changed, or HashMismatch if more than one component
// changed or the entry predates per-component hashing (all three stored
// hashes empty) and so can't be attributed to one of them.
func (s *Store) NeedsRebuild(target, inputsHash, cmdHash, envHash string) (bool, core.RebuildReason, error) {
	st, err := s.load(target)
	if err != nil {
		return false, core.NotNeeded, err
	}
	if st.entry == nil {
		log.Debugf("%s: no cache entry, never built", target)
		return true, core.NeverBuilt, nil
	}

	e := st.entry
	if e.InputsHash == "" && e.CmdHash == "" && e.EnvHash == "" {
		log.Debugf("%s: legacy cache entry, rebuilding", target)
		return true, core.HashMismatch, nil
	}
	diffs := 0
	for _, d := range []bool{e.InputsHash != inputsHash, e.CmdHash != cmdHash, e.EnvHash != envHash} {
		if d {
			diffs++
		}
	}
	if diffs > 1 {
		log.Debugf("%s: %d components changed, rebuilding", target, diffs)
		return true, core.HashMismatch, nil
	}
	switch {
	case e.InputsHash != inputsHash:
		log.Debugf("%s: inputs changed, rebuilding", target)
		return true, core.InputsChanged, nil
	case e.CmdHash != cmdHash:
		log.Debugf("%s: command changed, rebuilding", target)
		return true, core.CommandChanged, nil
	case e.EnvHash != envHash:
		log.Debugf("%s: environment changed, rebuilding", target)
		return true, core.EnvChanged, nil
	}
	log.Debugf("%s: up to date, skipping", target)
	return false, core.NotNeeded, nil
}

// RecordBuild updates the in-memory entry for target with its current
// component hashes and the current time, and marks it dirty. It does not
// write to disk; call FlushTarget (or Flush) to persist.
func (s *Store) RecordBuild(target, inputsHash, cmdHash, envHash string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[target] = &entryState{
		entry: &CacheEntry{InputsHash: inputsHash, CmdHash: cmdHash, EnvHash: envHash, BuiltAt: at.Unix()},
		dirty: true,
	}
}

// FlushTarget writes the in-memory entry for target to disk if dirty, via
// a temporary sibling file renamed over the real entry. The rename is the
// atomic commit: readers either see the whole old file or the whole new
// one, never a partial write.
func (s *Store) FlushTarget(target string) error {
	s.mu.Lock()
	st, ok := s.entries[target]
	if !ok || !st.dirty {
		s.mu.Unlock()
		return nil
	}
	entry := st.entry
	s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return &core.CacheError{Target: target, Message: "failed to create cache directory", Cause: err}
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return &core.CacheError{Target: target, Message: "failed to marshal cache entry", Cause: err}
	}

	final := s.entryPath(target)
	tmp := filepath.Join(s.dir, target+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return &core.CacheError{Target: target, Message: "failed to write temporary cache file", Cause: err}
	}
	if err := os.Rename(tmp, final); err != nil {
		return &core.CacheError{Target: target, Message: "failed to commit cache file", Cause: err}
	}
	log.Debugf("%s: flushed cache entry to %s", target, final)

	s.mu.Lock()
	st.dirty = false
	s.mu.Unlock()
	return nil
}

// Flush flushes every target currently held in memory, returning the first
// error encountered (if any); it still attempts every target even after an
// error, so a single corrupt flush doesn't prevent the rest from
// persisting.
func (s *Store) Flush() error {
	s.mu.Lock()
	targets := make([]string, 0, len(s.entries))
	for t := range s.entries {
		targets = append(targets, t)
	}
	s.mu.Unlock()

	var first error
	for _, t := range targets {
		if err := s.FlushTarget(t); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Invalidate removes target from memory and deletes its on-disk entry if
// present.
func (s *Store) Invalidate(target string) error {
	s.mu.Lock()
	delete(s.entries, target)
	s.mu.Unlock()

	if err := os.Remove(s.entryPath(target)); err != nil && !os.IsNotExist(err) {
		return &core.CacheError{Target: target, Message: "failed to remove cache entry", Cause: err}
	}
	log.Debugf("%s: invalidated cache entry", target)
	return nil
}

// Clear drops all in-memory state and removes the cache directory
// recursively.
func (s *Store) Clear() error {
	s.mu.Lock()
	s.entries = map[string]*entryState{}
	s.mu.Unlock()

	if err := os.RemoveAll(s.dir); err != nil {
		return &core.CacheError{Message: "failed to remove cache directory", Cause: err}
	}
	log.Info("cache cleared")
	return nil
}

// load returns the entryState for target, reading it from disk on first
// access. A missing file is not an error: st.entry is left nil, meaning
// "never built".
func (s *Store) load(target string) (*entryState, error) {
	s.mu.Lock()
	if st, ok := s.entries[target]; ok {
		s.mu.Unlock()
		return st, nil
	}
	s.mu.Unlock()

	data, err := os.ReadFile(s.entryPath(target))
	if os.IsNotExist(err) {
		st := &entryState{}
		s.mu.Lock()
		s.entries[target] = st
		s.mu.Unlock()
		return st, nil
	} else if err != nil {
		return nil, &core.CacheError{Target: target, Message: "failed to read cache entry", Cause: err}
	}

	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, &core.CacheError{Target: target, Message: "cache entry is corrupt", Cause: err}
	}

	st := &entryState{entry: &entry}
	s.mu.Lock()
	s.entries[target] = st
	s.mu.Unlock()
	return st, nil
}

func (s *Store) entryPath(target string) string {
	return filepath.Join(s.dir, target+".json")
}

// Dir returns the cache directory this store reads and writes.
func (s *Store) Dir() string { return s.dir }
