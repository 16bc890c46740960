// Package fingerprint computes the reproducible content hashes a target's
// inputs, command and environment reduce to, per the framing described
// alongside Compute below.
package fingerprint

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	logging "gopkg.in/op/go-logging.v1"

	"github.com/bagel-build/bagel/core"
	"github.com/bmatcuk/doublestar/v4"
)

var log = logging.MustGetLogger("fingerprint")

// readBufSize is the minimum buffered-reader size used while hashing input
// files, keeping memory use bounded regardless of file size.
const readBufSize = 64 * 1024

// hasGlobMeta reports whether pattern contains a glob metacharacter, the
// dividing line between "literal path" and "glob" resolution.
func hasGlobMeta(pattern string) bool {
	return strings.ContainsAny(pattern, "*?")
}

// ExpandInputs resolves a target's inputs list against root into a sorted,
// deduplicated list of paths relative to root. Each pattern is resolved
// independently: globs are expanded with doublestar (so `**` works),
// literal paths are included if they exist. A pattern that matches nothing
// is an error — inputs are never silently dropped.
func ExpandInputs(root string, patterns []string, target string) ([]string, error) {
	log.Debugf("expanding %d input pattern(s) for %s", len(patterns), target)
	seen := map[string]bool{}
	var paths []string

	for _, pattern := range patterns {
		if hasGlobMeta(pattern) {
			if !doublestar.ValidatePattern(pattern) {
				return nil, &core.FingerprintError{Target: target, Pattern: pattern, Message: "invalid glob pattern"}
			}
			matches, err := doublestar.FilepathGlob(filepath.Join(root, pattern))
			if err != nil {
				return nil, &core.FingerprintError{Target: target, Pattern: pattern, Message: "glob expansion failed", Cause: err}
			}
			if len(matches) == 0 {
				return nil, &core.FingerprintError{Target: target, Pattern: pattern, Message: "no files matched"}
			}
			log.Debugf("%s: pattern %s matched %d file(s)", target, pattern, len(matches))
			for _, m := range matches {
				rel, err := filepath.Rel(root, m)
				if err != nil {
					rel = m
				}
				if !seen[rel] {
					seen[rel] = true
					paths = append(paths, rel)
				}
			}
			continue
		}

		full := filepath.Join(root, pattern)
		info, err := os.Stat(full)
		if err != nil {
			return nil, &core.FingerprintError{Target: target, Pattern: pattern, Message: "no files matched"}
		}
		if info.IsDir() {
			return nil, &core.FingerprintError{Target: target, Pattern: pattern, Message: "input is a directory, not a file"}
		}
		if !seen[pattern] {
			seen[pattern] = true
			paths = append(paths, pattern)
		}
	}

	sort.Strings(paths)
	return paths, nil
}

// ComponentHashes holds a target's fingerprint as three independent
// SHA-256 digests, one per component, rather than a single combined hash.
// Splitting them this way is what lets the cache store report *which*
// component changed (RebuildReason's InputsChanged/CommandChanged/
// EnvChanged) instead of only a single "something changed" bit.
type ComponentHashes struct {
	// Inputs is the hex digest over every resolved input path and its own
	// file content hash, in sorted order.
	Inputs string
	// Cmd is the hex digest of the target's command string.
	Cmd string
	// Env is the hex digest over the target's environment, sorted by key.
	Env string
}

// Compute returns the lowercase hex-encoded SHA-256 fingerprint of a
// target's inputs, command and environment, each hashed independently.
//
// Each component is framed the same way regardless of being hashed
// separately: for each input path (already sorted by ExpandInputs, but
// re-sorted defensively here), the path bytes, ':', the hex digest of
// that file's own SHA-256, '\n'; "cmd:" followed by the command bytes and
// '\n'; and, for each env pair sorted by key, "env:", key, '=', value,
// '\n'. The explicit tags and separators keep a file literally named
// "cmd" from colliding with the command section, and keep
// concatenation-adjacent inputs from colliding with each other.
func Compute(root string, inputs []string, cmd string, env map[string]string, target string) (ComponentHashes, error) {
	log.Debugf("computing fingerprint for %s (%d input(s))", target, len(inputs))

	inputsHash, err := hashInputs(root, inputs, target)
	if err != nil {
		return ComponentHashes{}, err
	}

	return ComponentHashes{
		Inputs: inputsHash,
		Cmd:    hashCmd(cmd),
		Env:    hashEnv(env),
	}, nil
}

func hashInputs(root string, inputs []string, target string) (string, error) {
	h := sha256.New()

	sorted := make([]string, len(inputs))
	copy(sorted, inputs)
	sort.Strings(sorted)

	for _, path := range sorted {
		fh, err := hashFile(filepath.Join(root, path))
		if err != nil {
			return "", &core.FingerprintError{Target: target, Pattern: path, Message: "failed to hash input", Cause: err}
		}
		fmt.Fprintf(h, "%s:%s\n", path, fh)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func hashCmd(cmd string) string {
	h := sha256.New()
	fmt.Fprintf(h, "cmd:%s\n", cmd)
	return hex.EncodeToString(h.Sum(nil))
}

func hashEnv(env map[string]string) string {
	h := sha256.New()
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(h, "env:%s=%s\n", k, env[k])
	}
	return hex.EncodeToString(h.Sum(nil))
}

// hashFile returns the lowercase hex SHA-256 digest of a single file's
// contents, reading through a buffered reader so large inputs don't
// require loading the whole file into memory.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var h hash.Hash = sha256.New()
	r := bufio.NewReaderSize(f, readBufSize)
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
