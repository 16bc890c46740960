package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func targetWithDeps(name string, deps ...string) *TargetSpec {
	t := validTarget(name)
	t.Deps = deps
	return t
}

func TestValidateUndeclaredDependency(t *testing.T) {
	spec := NewBuildSpec(map[string]*TargetSpec{
		"app": targetWithDeps("app", "lib"),
	})
	err := spec.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lib")
}

func TestValidateUndeclaredDependencySuggestsTypo(t *testing.T) {
	spec := NewBuildSpec(map[string]*TargetSpec{
		"app": targetWithDeps("app", "libb"),
		"lib": validTarget("lib"),
	})
	err := spec.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maybe you meant lib")
}

func TestValidateCycle(t *testing.T) {
	spec := NewBuildSpec(map[string]*TargetSpec{
		"a": targetWithDeps("a", "b"),
		"b": targetWithDeps("b", "c"),
		"c": targetWithDeps("c", "a"),
	})
	err := spec.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestValidateSelfDependency(t *testing.T) {
	spec := NewBuildSpec(map[string]*TargetSpec{
		"a": targetWithDeps("a", "a"),
	})
	err := spec.Validate()
	require.Error(t, err)
}

func TestNewGraphTopologicalOrder(t *testing.T) {
	spec := NewBuildSpec(map[string]*TargetSpec{
		"app":  targetWithDeps("app", "lib1", "lib2"),
		"lib1": targetWithDeps("lib1", "base"),
		"lib2": targetWithDeps("lib2", "base"),
		"base": validTarget("base"),
	})
	require.NoError(t, spec.Validate())

	g, err := NewGraph(spec)
	require.NoError(t, err)

	order := g.TopologicalOrder()
	pos := map[string]int{}
	for i, name := range order {
		pos[name] = i
	}
	assert.Less(t, pos["base"], pos["lib1"])
	assert.Less(t, pos["base"], pos["lib2"])
	assert.Less(t, pos["lib1"], pos["app"])
	assert.Less(t, pos["lib2"], pos["app"])
}

func TestGraphReverseDeps(t *testing.T) {
	spec := NewBuildSpec(map[string]*TargetSpec{
		"app":  targetWithDeps("app", "base"),
		"base": validTarget("base"),
	})
	g, err := NewGraph(spec)
	require.NoError(t, err)
	assert.Equal(t, []string{"app"}, g.ReverseDeps("base"))
	assert.Empty(t, g.ReverseDeps("app"))
}

func TestGraphOutstandingDeps(t *testing.T) {
	spec := NewBuildSpec(map[string]*TargetSpec{
		"app":  targetWithDeps("app", "lib1", "lib2"),
		"lib1": validTarget("lib1"),
		"lib2": validTarget("lib2"),
	})
	g, err := NewGraph(spec)
	require.NoError(t, err)
	counts := g.OutstandingDeps()
	assert.Equal(t, 2, counts["app"])
	assert.Equal(t, 0, counts["lib1"])
	assert.Equal(t, 0, counts["lib2"])
}

func TestNewGraphRejectsUndeclaredDependency(t *testing.T) {
	spec := NewBuildSpec(map[string]*TargetSpec{
		"app": targetWithDeps("app", "ghost"),
	})
	_, err := NewGraph(spec)
	assert.Error(t, err)
}
