package build

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/bagel-build/bagel/cache"
	"github.com/bagel-build/bagel/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("uses sh -c")
	}
}

func writeInput(t *testing.T, root, name, contents string) {
	t.Helper()
	path := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
}

func simpleTarget(name, cmd string) *core.TargetSpec {
	return &core.TargetSpec{
		Name:    name,
		Cmd:     cmd,
		Inputs:  []string{"in.txt"},
		Outputs: []string{"out.txt"},
	}
}

func TestBuildOneBuildsThenSkips(t *testing.T) {
	skipOnWindows(t)
	root := t.TempDir()
	writeInput(t, root, "in.txt", "hello")

	store := cache.Open(root)
	target := simpleTarget("app", "echo hi > out.txt")
	cfg := ExecConfig{Root: root}

	res := buildOne(context.Background(), target, store, cfg, true)
	assert.Equal(t, core.Built, res.Status.Kind)

	res = buildOne(context.Background(), target, store, cfg, true)
	assert.Equal(t, core.Skipped, res.Status.Kind)
}

func TestBuildOneFailureDoesNotRecordCache(t *testing.T) {
	skipOnWindows(t)
	root := t.TempDir()
	writeInput(t, root, "in.txt", "hello")

	store := cache.Open(root)
	target := simpleTarget("app", "exit 7")
	cfg := ExecConfig{Root: root}

	res := buildOne(context.Background(), target, store, cfg, true)
	require.Equal(t, core.Failed, res.Status.Kind)
	assert.Equal(t, 7, res.Status.Code)

	needs, _, err := store.NeedsRebuild("app", "anything", "anything", "anything")
	require.NoError(t, err)
	assert.True(t, needs)
}

func TestBuildOneForceRebuild(t *testing.T) {
	skipOnWindows(t)
	root := t.TempDir()
	writeInput(t, root, "in.txt", "hello")

	store := cache.Open(root)
	target := simpleTarget("app", "echo hi > out.txt")
	cfg := ExecConfig{Root: root}

	res := buildOne(context.Background(), target, store, cfg, true)
	require.Equal(t, core.Built, res.Status.Kind)

	forced := ExecConfig{Root: root, Force: true}
	res = buildOne(context.Background(), target, store, forced, true)
	assert.Equal(t, core.Built, res.Status.Kind)
}

func TestBuildOneMissingOutputs(t *testing.T) {
	skipOnWindows(t)
	root := t.TempDir()
	writeInput(t, root, "in.txt", "hello")

	store := cache.Open(root)
	target := simpleTarget("app", "true")
	cfg := ExecConfig{Root: root, CheckOutputs: true}

	res := buildOne(context.Background(), target, store, cfg, true)
	assert.Equal(t, core.MissingOutputs, res.Status.Kind)
}

func TestBuildOneInputExpansionFailure(t *testing.T) {
	root := t.TempDir()
	store := cache.Open(root)
	target := &core.TargetSpec{
		Name:    "app",
		Cmd:     "echo hi",
		Inputs:  []string{"missing.txt"},
		Outputs: []string{"out.txt"},
	}
	cfg := ExecConfig{Root: root}

	res := buildOne(context.Background(), target, store, cfg, true)
	assert.Equal(t, core.SpawnError, res.Status.Kind)
}
