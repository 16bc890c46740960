package process

import (
	"context"
	"runtime"
	"testing"

	"github.com/bagel-build/bagel/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunSuccess(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh -c")
	}
	res := Run(context.Background(), "exit 0", Options{Dir: t.TempDir(), Capture: true})
	assert.Equal(t, core.Built, res.Status.Kind)
}

func TestRunFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh -c")
	}
	res := Run(context.Background(), "exit 7", Options{Dir: t.TempDir(), Capture: true})
	require.Equal(t, core.Failed, res.Status.Kind)
	assert.Equal(t, 7, res.Status.Code)
}

func TestRunCapturesOutput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh -c")
	}
	res := Run(context.Background(), "echo hello", Options{Dir: t.TempDir(), Capture: true})
	assert.Contains(t, string(res.Output), "hello")
}

func TestRunEnvOverride(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh -c")
	}
	res := Run(context.Background(), "echo $FOO", Options{
		Dir:     t.TempDir(),
		Env:     map[string]string{"FOO": "bar"},
		Capture: true,
	})
	assert.Contains(t, string(res.Output), "bar")
}

func TestMergeEnvOverridesInherited(t *testing.T) {
	merged := mergeEnv([]string{"PATH=/usr/bin", "FOO=old"}, map[string]string{"FOO": "new"})
	found := false
	for _, kv := range merged {
		if kv == "FOO=new" {
			found = true
		}
		assert.NotEqual(t, "FOO=old", kv)
	}
	assert.True(t, found)
}
