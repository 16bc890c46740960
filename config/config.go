// Package config loads Bagel.toml into a validated core.BuildSpec.
package config

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/bagel-build/bagel/core"
)

// DefaultFilename is the config file name Bagel looks for in the project
// root.
const DefaultFilename = "Bagel.toml"

// rawTarget mirrors one [target_name] table in Bagel.toml, decoded before
// Parse turns each entry into a core.TargetSpec and runs validation.
type rawTarget struct {
	Cmd     string            `toml:"cmd"`
	Inputs  []string          `toml:"inputs"`
	Outputs []string          `toml:"outputs"`
	Deps    []string          `toml:"deps"`
	Kind    string            `toml:"kind"`
	Env     map[string]string `toml:"env"`
}

// Load reads and parses the config file at path into a validated
// core.BuildSpec. Parsing and validation happen together: Load either
// returns a fully valid spec or an error, never a partially accepted one.
func Load(path string) (*core.BuildSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &core.SpecError{Message: "failed to read " + path + ": " + err.Error()}
	}
	return Parse(data)
}

// Parse parses TOML bytes (already read from a Bagel.toml file or
// supplied directly, e.g. in tests) into a validated core.BuildSpec.
func Parse(data []byte) (*core.BuildSpec, error) {
	var raw map[string]rawTarget
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return nil, &core.SpecError{Message: "failed to parse config: " + err.Error()}
	}

	targets := make(map[string]*core.TargetSpec, len(raw))
	for name, rt := range raw {
		kind, err := core.ParseKind(rt.Kind)
		if err != nil {
			return nil, core.NewSpecError(name, "%s", err.Error())
		}
		targets[name] = &core.TargetSpec{
			Name:    name,
			Cmd:     rt.Cmd,
			Inputs:  rt.Inputs,
			Outputs: rt.Outputs,
			Deps:    rt.Deps,
			Env:     rt.Env,
			Kind:    kind,
		}
	}

	spec := core.NewBuildSpec(targets)
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}
