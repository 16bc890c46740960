package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachedTargetsEmpty(t *testing.T) {
	store := Open(t.TempDir())
	names, err := store.CachedTargets()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestCachedTargetsListsFlushedEntries(t *testing.T) {
	root := t.TempDir()
	store := Open(root)
	store.RecordBuild("app", "in1", "cmd1", "env1", time.Now())
	store.RecordBuild("lib", "in2", "cmd2", "env2", time.Now())
	require.NoError(t, store.Flush())

	names, err := store.CachedTargets()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"app", "lib"}, names)
}

func TestPruneRemovesOldEntries(t *testing.T) {
	root := t.TempDir()
	store := Open(root)

	now := time.Now()
	old := now.Add(-48 * time.Hour)

	store.RecordBuild("stale", "in1", "cmd1", "env1", old)
	store.RecordBuild("fresh", "in2", "cmd2", "env2", now)
	require.NoError(t, store.Flush())

	result, err := store.Prune(24*time.Hour, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"stale"}, result.Removed)

	names, err := store.CachedTargets()
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh"}, names)
}

func TestPruneSkipsDirtyUnflushedEntries(t *testing.T) {
	root := t.TempDir()
	store := Open(root)

	now := time.Now()
	old := now.Add(-48 * time.Hour)
	store.RecordBuild("stale", "in1", "cmd1", "env1", old)
	require.NoError(t, store.Flush())

	// Re-record without flushing: this target is dirty in memory even
	// though its on-disk timestamp is old.
	store.RecordBuild("stale", "in2", "cmd1", "env1", old)

	result, err := store.Prune(24*time.Hour, now)
	require.NoError(t, err)
	assert.Empty(t, result.Removed)
}

func TestPruneResultSummary(t *testing.T) {
	empty := &PruneResult{}
	assert.Equal(t, "nothing to prune", empty.Summary())

	withEntries := &PruneResult{Removed: []string{"a", "b"}, BytesFreed: 100}
	assert.Contains(t, withEntries.Summary(), "2")
}
