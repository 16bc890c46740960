// Package process spawns a target's build command through the host
// shell and turns the result into a core.TargetStatus, distinguishing a
// normal exit from a signal death and from a command that could not be
// started at all.
package process

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"runtime"
	"sort"

	logging "gopkg.in/op/go-logging.v1"

	"github.com/bagel-build/bagel/core"
)

var log = logging.MustGetLogger("process")

// Result is the outcome of running one target's command.
type Result struct {
	Status core.TargetStatus
	Output []byte
}

// Options configures a single invocation of Run.
type Options struct {
	// Dir is the working directory the command runs in (the project
	// root).
	Dir string
	// Env is the target's declared environment, merged over the inherited
	// process environment (declared entries win).
	Env map[string]string
	// Capture, when true, captures combined stdout+stderr into the
	// result instead of streaming it to the current process's stdout and
	// stderr. The parallel executor always sets this; the serial executor
	// never does.
	Capture bool
}

// Run spawns cmd through the host shell: `sh -c "<cmd>"` on Unix-like
// hosts, `cmd /C "<cmd>"` on Windows. It waits for the command to finish
// and classifies the outcome.
func Run(ctx context.Context, cmd string, opts Options) Result {
	shell, flag := "sh", "-c"
	if runtime.GOOS == "windows" {
		shell, flag = "cmd", "/C"
	}

	c := exec.CommandContext(ctx, shell, flag, cmd)
	c.Dir = opts.Dir
	c.Env = mergeEnv(os.Environ(), opts.Env)
	c.SysProcAttr = sysProcAttr()

	var buf bytes.Buffer
	if opts.Capture {
		c.Stdout = &buf
		c.Stderr = &buf
	} else {
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
	}

	log.Debugf("spawning: %s %s %q", shell, flag, cmd)
	err := c.Run()
	if err == nil {
		return Result{Status: core.BuiltStatus(), Output: buf.Bytes()}
	}

	if exitErr, ok := err.(*exec.ExitError); ok {
		code, signaled := exitCode(exitErr)
		if signaled {
			log.Noticef("%q killed by signal", cmd)
			return Result{Status: core.SignaledStatus(), Output: buf.Bytes()}
		}
		log.Debugf("%q exited %d", cmd, code)
		return Result{Status: core.FailedStatus(code), Output: buf.Bytes()}
	}

	// Not an ExitError: the shell itself could not be started (missing
	// binary, permission denied, etc).
	log.Errorf("failed to start %q: %s", cmd, err)
	return Result{Status: core.SpawnErrorStatus(err), Output: buf.Bytes()}
}

// mergeEnv layers declared over inherited environment, declared entries
// overriding inherited ones of the same key. base is expected in
// "KEY=VALUE" form (as os.Environ returns); the result is sorted so
// repeated runs with the same inputs produce byte-identical env slices,
// which is not a cache requirement but makes process behavior easier to
// reason about.
func mergeEnv(base []string, declared map[string]string) []string {
	merged := map[string]string{}
	for _, kv := range base {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				merged[kv[:i]] = kv[i+1:]
				break
			}
		}
	}
	for k, v := range declared {
		merged[k] = v
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+merged[k])
	}
	return out
}
