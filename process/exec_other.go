//go:build !linux

package process

import (
	"os/exec"
	"syscall"
)

// sysProcAttr is a no-op on platforms without Pdeathsig.
func sysProcAttr() *syscall.SysProcAttr {
	return nil
}

func exitCode(err *exec.ExitError) (code int, signaled bool) {
	return err.ExitCode(), false
}
