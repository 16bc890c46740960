package build

import (
	"os"
	"path/filepath"
)

// missingOutputs reports whether any of target's declared outputs does
// not exist under root. This is opt-in diagnostic only (ExecConfig.
// CheckOutputs): outputs are never part of the fingerprint, so this check
// cannot change whether a target is considered up to date.
func missingOutputs(root string, outputs []string) bool {
	for _, out := range outputs {
		if _, err := os.Stat(filepath.Join(root, out)); err != nil {
			return true
		}
	}
	return false
}
