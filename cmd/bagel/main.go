// Command bagel is the CLI front end: flag parsing, subcommand dispatch,
// and exit codes. Every decision about rebuilding, ordering or caching
// lives in core/fingerprint/cache/build; this file only wires them
// together for a human at a terminal.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	flags "github.com/thought-machine/go-flags"
	logging "gopkg.in/op/go-logging.v1"

	"go.uber.org/automaxprocs/maxprocs"

	"github.com/bagel-build/bagel/bagelcli"
	"github.com/bagel-build/bagel/build"
	"github.com/bagel-build/bagel/cache"
	"github.com/bagel-build/bagel/config"
	"github.com/bagel-build/bagel/core"
	"github.com/bagel-build/bagel/fingerprint"
)

var log = logging.MustGetLogger("bagel")

var opts struct {
	Usage string `usage:"Bagel is a small content-addressed build system.\n\nIt reads targets from Bagel.toml and rebuilds only what changed."`

	BuildFlags struct {
		Verbose      []bool `short:"v" long:"verbose" description:"Increase log verbosity (-v for info, -vv for debug)"`
		ConfigFile   string `short:"c" long:"config" default:"Bagel.toml" description:"Path to the config file"`
		Force        bool   `short:"f" long:"force" description:"Rebuild every target, ignoring the cache"`
		Parallel     bool   `short:"j" long:"parallel" description:"Build with the parallel executor instead of serial"`
		Workers      int    `long:"workers" description:"Bound the number of targets built concurrently under --parallel; 0 means unbounded"`
		KeepGoing    bool   `long:"keep_going" description:"Continue scheduling dependents of a failed target instead of halting the build"`
		CheckOutputs bool   `long:"check_outputs" description:"After a successful build, verify each target's declared outputs exist"`
		Watch        bool   `long:"watch" description:"Rebuild automatically whenever an input changes"`
	} `group:"Options controlling what to build & how to build it"`

	HelpFlags struct {
		Help bool `short:"h" long:"help" description:"Show this help message"`
	} `group:"Help Options"`

	Build struct {
		Args struct {
			Targets []string `positional-arg-name:"targets" description:"Targets to build; all targets if omitted"`
		} `positional-args:"true"`
	} `command:"build" description:"Builds one or more targets, rebuilding only what changed"`

	Info struct {
		Args struct {
			Targets []string `positional-arg-name:"targets" description:"Targets to report on; all targets if omitted"`
		} `positional-args:"true"`
	} `command:"info" description:"Reports each target's cache status without building"`

	Init struct {
	} `command:"init" description:"Scaffolds a starter Bagel.toml in the current directory"`

	Clean struct {
		OlderThan string `long:"older-than" description:"Only remove cache entries older than this duration (e.g. 72h); removes everything if omitted"`
	} `command:"clean" description:"Clears or prunes the cache"`

	Help struct {
	} `command:"help" description:"Shows usage information"`
}

// buildFunctions maps a parsed command name to the function that runs it,
// the same dispatch-table shape the teacher's CLI uses for its much larger
// command set.
var buildFunctions = map[string]func() int{
	"build": runBuild,
	"info":  runInfo,
	"init":  runInit,
	"clean": runClean,
	"help":  runHelp,
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.SubcommandsOptional = true

	extraArgs, err := parser.ParseArgs(args)
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			parser.WriteHelp(os.Stderr)
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if opts.HelpFlags.Help {
		parser.WriteHelp(os.Stderr)
		return 0
	}

	verbosity := len(opts.BuildFlags.Verbose)
	bagelcli.InitLogging(verbosity)

	if _, err := maxprocs.Set(maxprocs.Logger(log.Infof)); err != nil {
		log.Warningf("failed to set GOMAXPROCS: %s", err)
	}

	command := "build"
	if parser.Active != nil {
		command = parser.Active.Name
	}
	// A bare `bagel target1 target2` with no subcommand behaves like
	// `bagel build target1 target2`.
	if command == "build" && parser.Active == nil && len(extraArgs) > 0 {
		opts.Build.Args.Targets = extraArgs
	}

	fn, ok := buildFunctions[command]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n", command)
		return 1
	}
	return fn()
}

func runBuild() int {
	root, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	spec, ok := loadSpecOrPrintHelp(root)
	if !ok {
		return 1
	}

	targets := opts.Build.Args.Targets
	if len(targets) > 0 {
		spec, err = subsetSpec(spec, targets)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}

	graph, err := core.NewGraph(spec)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	store := cache.Open(root)
	cfg := build.ExecConfig{
		Root:            root,
		Force:           opts.BuildFlags.Force,
		ContinueOnError: opts.BuildFlags.KeepGoing,
		CheckOutputs:    opts.BuildFlags.CheckOutputs,
	}

	runOnce := func() bool {
		report := doBuild(graph, store, cfg)
		bagelcli.PrintReport(os.Stdout, report, len(opts.BuildFlags.Verbose) > 0)
		return report.Success()
	}

	if opts.BuildFlags.Watch {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		runOnce()
		err := bagelcli.Watch(ctx, root, spec, func() { runOnce() })
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	}

	if runOnce() {
		return 0
	}
	return 1
}

func doBuild(graph *core.BuildGraph, store *cache.Store, cfg build.ExecConfig) *core.BuildReport {
	if !opts.BuildFlags.Parallel {
		return build.Serial(context.Background(), graph, store, cfg)
	}
	return build.Parallel(context.Background(), graph, store, build.ParallelConfig{
		ExecConfig: cfg,
		Workers:    opts.BuildFlags.Workers,
	})
}

func runInfo() int {
	root, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	spec, ok := loadSpecOrPrintHelp(root)
	if !ok {
		return 1
	}

	targets := opts.Info.Args.Targets
	if len(targets) == 0 {
		targets = spec.Names()
	}

	store := cache.Open(root)
	allOK := true
	for _, name := range targets {
		target := spec.Get(name)
		if target == nil {
			fmt.Fprintf(os.Stderr, "no such target %q%s\n", name, core.SuggestTargets(name, spec))
			allOK = false
			continue
		}
		if opts.BuildFlags.Force {
			fmt.Printf("%-20s rebuild=%-5v %s\n", name, true, core.ForcedRebuild)
			continue
		}

		inputs, err := fingerprint.ExpandInputs(root, target.Inputs, target.Name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%-20s error: %s\n", name, err)
			allOK = false
			continue
		}
		hash, err := fingerprint.Compute(root, inputs, target.Cmd, target.Env, target.Name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%-20s error: %s\n", name, err)
			allOK = false
			continue
		}
		needs, reason, err := store.NeedsRebuild(name, hash.Inputs, hash.Cmd, hash.Env)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%-20s error: %s\n", name, err)
			allOK = false
			continue
		}
		fmt.Printf("%-20s rebuild=%-5v %s\n", name, needs, reason)
	}
	if !allOK {
		return 1
	}
	return 0
}

func runInit() int {
	path := filepath.Join(".", config.DefaultFilename)
	if _, err := os.Stat(path); err == nil {
		if !bagelcli.PromptYN(fmt.Sprintf("%s already exists here. Overwrite it?", path), false) {
			return 1
		}
	}
	if err := os.WriteFile(path, []byte(starterConfig), 0o644); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("Wrote %s, you're ready to run `bagel build`.\n", path)
	return 0
}

func runClean() int {
	root, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	store := cache.Open(root)

	if opts.Clean.OlderThan == "" {
		if err := store.Clear(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Println("cache cleared")
		return 0
	}

	age, err := time.ParseDuration(opts.Clean.OlderThan)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid --older-than duration %q: %s\n", opts.Clean.OlderThan, err)
		return 1
	}
	result, err := store.Prune(age, time.Now())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println(result.Summary())
	return 0
}

func runHelp() int {
	parser := flags.NewParser(&opts, flags.Default)
	parser.WriteHelp(os.Stdout)
	return 0
}

// loadSpecOrPrintHelp loads the config file rooted at root, printing a
// friendlier message than a raw I/O error when the file is simply missing
// (the common first-run case), an example snippet included.
func loadSpecOrPrintHelp(root string) (*core.BuildSpec, bool) {
	path := filepath.Join(root, opts.BuildFlags.ConfigFile)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "No %s found in %s\n\n", opts.BuildFlags.ConfigFile, root)
		fmt.Fprintln(os.Stderr, "To get started, create one with your build targets, e.g.:")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "    [my_target]")
		fmt.Fprintln(os.Stderr, `    cmd = "gcc -o hello hello.c"`)
		fmt.Fprintln(os.Stderr, `    inputs = ["hello.c"]`)
		fmt.Fprintln(os.Stderr, `    outputs = ["hello"]`)
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Or run `bagel init` to scaffold one.")
		return nil, false
	}

	spec, err := config.Load(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return nil, false
	}
	if len(spec.Names()) == 0 {
		fmt.Fprintf(os.Stderr, "%s exists but declares no targets\n", opts.BuildFlags.ConfigFile)
		return nil, false
	}
	return spec, true
}

// subsetSpec restricts spec to the named targets plus their transitive
// dependencies, so `bagel build app` doesn't force every target in the
// file through the graph's validation and scheduling.
func subsetSpec(spec *core.BuildSpec, names []string) (*core.BuildSpec, error) {
	kept := map[string]*core.TargetSpec{}
	var visit func(name string) error
	visit = func(name string) error {
		if _, ok := kept[name]; ok {
			return nil
		}
		target := spec.Get(name)
		if target == nil {
			return core.NewSpecError(name, "no such target%s", core.SuggestTargets(name, spec))
		}
		kept[name] = target
		for _, dep := range target.Deps {
			if err := visit(dep); err != nil {
				return err
			}
		}
		return nil
	}
	for _, name := range names {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return core.NewBuildSpec(kept), nil
}

const starterConfig = `# Bagel.toml
#
# Each table below declares one target: the command that builds it, the
# files it reads, and the files it's declared to produce.

[app]
cmd = "echo building app"
inputs = ["main.go"]
outputs = ["app"]
`
