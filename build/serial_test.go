package build

import (
	"context"
	"testing"

	"github.com/bagel-build/bagel/cache"
	"github.com/bagel-build/bagel/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func diamondSpec(root string) *core.BuildSpec {
	target := func(name string, cmd string, deps ...string) *core.TargetSpec {
		return &core.TargetSpec{
			Name:    name,
			Cmd:     cmd,
			Inputs:  []string{"in.txt"},
			Outputs: []string{name + ".out"},
			Deps:    deps,
		}
	}
	return core.NewBuildSpec(map[string]*core.TargetSpec{
		"base": target("base", "true"),
		"lib1": target("lib1", "true", "base"),
		"lib2": target("lib2", "true", "base"),
		"app":  target("app", "true", "lib1", "lib2"),
	})
}

func TestSerialRespectsTopologicalOrder(t *testing.T) {
	skipOnWindows(t)
	root := t.TempDir()
	writeInput(t, root, "in.txt", "x")

	spec := diamondSpec(root)
	require.NoError(t, spec.Validate())
	g, err := core.NewGraph(spec)
	require.NoError(t, err)

	store := cache.Open(root)
	report := Serial(context.Background(), g, store, ExecConfig{Root: root})

	require.True(t, report.Success())
	pos := map[string]int{}
	for i, res := range report.Results {
		pos[res.Target] = i
	}
	assert.Less(t, pos["base"], pos["lib1"])
	assert.Less(t, pos["base"], pos["lib2"])
	assert.Less(t, pos["lib1"], pos["app"])
	assert.Less(t, pos["lib2"], pos["app"])
}

func TestSerialHaltsOnFailureByDefault(t *testing.T) {
	skipOnWindows(t)
	root := t.TempDir()
	writeInput(t, root, "in.txt", "x")

	spec := core.NewBuildSpec(map[string]*core.TargetSpec{
		"base": {Name: "base", Cmd: "exit 1", Inputs: []string{"in.txt"}, Outputs: []string{"base.out"}},
		"app":  {Name: "app", Cmd: "true", Inputs: []string{"in.txt"}, Outputs: []string{"app.out"}, Deps: []string{"base"}},
	})
	require.NoError(t, spec.Validate())
	g, err := core.NewGraph(spec)
	require.NoError(t, err)

	store := cache.Open(root)
	report := Serial(context.Background(), g, store, ExecConfig{Root: root})

	assert.False(t, report.Success())
	assert.Len(t, report.Results, 1)
	assert.Equal(t, "base", report.Results[0].Target)
}

func TestSerialContinueOnErrorSkipsDependents(t *testing.T) {
	skipOnWindows(t)
	root := t.TempDir()
	writeInput(t, root, "in.txt", "x")

	spec := core.NewBuildSpec(map[string]*core.TargetSpec{
		"base":  {Name: "base", Cmd: "exit 1", Inputs: []string{"in.txt"}, Outputs: []string{"base.out"}},
		"app":   {Name: "app", Cmd: "true", Inputs: []string{"in.txt"}, Outputs: []string{"app.out"}, Deps: []string{"base"}},
		"other": {Name: "other", Cmd: "true", Inputs: []string{"in.txt"}, Outputs: []string{"other.out"}},
	})
	require.NoError(t, spec.Validate())
	g, err := core.NewGraph(spec)
	require.NoError(t, err)

	store := cache.Open(root)
	report := Serial(context.Background(), g, store, ExecConfig{Root: root, ContinueOnError: true})

	require.Len(t, report.Results, 3)
	byTarget := map[string]core.TargetResult{}
	for _, r := range report.Results {
		byTarget[r.Target] = r
	}
	assert.Equal(t, core.Failed, byTarget["base"].Status.Kind)
	assert.Equal(t, core.SkippedDueToFailedDep, byTarget["app"].Status.Kind)
	assert.Equal(t, core.Built, byTarget["other"].Status.Kind)
	assert.False(t, report.Success())
}

func TestSerialSecondRunSkipsUnchangedTargets(t *testing.T) {
	skipOnWindows(t)
	root := t.TempDir()
	writeInput(t, root, "in.txt", "x")

	spec := diamondSpec(root)
	require.NoError(t, spec.Validate())
	g, err := core.NewGraph(spec)
	require.NoError(t, err)

	store := cache.Open(root)
	Serial(context.Background(), g, store, ExecConfig{Root: root})

	report := Serial(context.Background(), g, store, ExecConfig{Root: root})
	for _, r := range report.Results {
		assert.Equal(t, core.Skipped, r.Status.Kind, "target %s should be skipped", r.Target)
	}
}
