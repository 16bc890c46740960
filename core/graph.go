package core

import (
	"sort"

	"github.com/hashicorp/go-multierror"
	logging "gopkg.in/op/go-logging.v1"
)

var log = logging.MustGetLogger("core")

// color is used by the topological sort to three-colour targets during its
// depth-first search (Unvisited / Visiting / Visited), the standard way to
// detect a cycle while walking a DAG without a separate pass.
type color int

const (
	unvisited color = iota
	visiting
	visited
)

// A BuildGraph is a validated BuildSpec together with the dependency
// bookkeeping the executors need: a topological order, reverse adjacency
// (who depends on me), and per-target outstanding-dependency counts for the
// parallel wave scheduler.
type BuildGraph struct {
	spec *BuildSpec
	// order is dependencies-before-dependents.
	order []string
	// revDeps[name] lists the targets that declare name as a dependency.
	revDeps map[string][]string
}

// Validate checks a BuildSpec against every invariant in §4.C: non-empty
// fields, no empty dependency names, every dependency exists, no
// self-deps, no cycles. Validation is atomic — either every problem found
// is returned together (wrapped in a multierror) or the spec is accepted
// outright; a caller never sees partial acceptance.
func (s *BuildSpec) Validate() error {
	log.Debugf("validating %d target(s)", len(s.Targets))
	var errs *multierror.Error

	names := s.Names()
	for _, name := range names {
		target := s.Targets[name]
		if err := target.validate(); err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		for _, dep := range target.Deps {
			if !s.Has(dep) {
				msg := "depends on undeclared target " + quote(dep)
				if suggestion := suggestionMessage(dep, names, 2); suggestion != "" {
					msg += suggestion
				}
				errs = multierror.Append(errs, NewSpecError(name, "%s", msg))
			}
		}
	}
	if errs.ErrorOrNil() != nil {
		log.Warningf("spec failed validation: %s", errs.ErrorOrNil())
		return errs.ErrorOrNil()
	}

	// Field-level validation passed; now check for cycles, which requires
	// every referenced dependency to actually exist.
	if _, err := topologicalOrder(s); err != nil {
		log.Warningf("spec failed validation: %s", err)
		return err
	}
	return nil
}

func quote(s string) string { return "\"" + s + "\"" }

// NewGraph checks spec for dependency cycles and undeclared dependencies
// (not the per-target field checks Validate runs) and builds a BuildGraph
// from it. Callers that
// already validated the spec (e.g. via config.Load) still pay the small
// cost of re-deriving the topological order, since that's also how the
// graph's internal bookkeeping gets built.
func NewGraph(spec *BuildSpec) (*BuildGraph, error) {
	order, err := topologicalOrder(spec)
	if err != nil {
		return nil, err
	}
	revDeps := map[string][]string{}
	for name, target := range spec.Targets {
		for _, dep := range target.Deps {
			revDeps[dep] = append(revDeps[dep], name)
		}
	}
	for dep := range revDeps {
		sort.Strings(revDeps[dep])
	}
	log.Debugf("built graph with %d target(s)", len(order))
	return &BuildGraph{spec: spec, order: order, revDeps: revDeps}, nil
}

// Spec returns the BuildSpec this graph was built from.
func (g *BuildGraph) Spec() *BuildSpec { return g.spec }

// TopologicalOrder returns target names such that every target appears
// after all of its transitive dependencies.
func (g *BuildGraph) TopologicalOrder() []string {
	order := make([]string, len(g.order))
	copy(order, g.order)
	return order
}

// ReverseDeps returns the targets that directly depend on name.
func (g *BuildGraph) ReverseDeps(name string) []string {
	return g.revDeps[name]
}

// OutstandingDeps returns the initial outstanding-dependency count for
// every target, for the parallel scheduler to use as the basis of its
// atomic ready-counters.
func (g *BuildGraph) OutstandingDeps() map[string]int {
	counts := make(map[string]int, len(g.spec.Targets))
	for name, target := range g.spec.Targets {
		counts[name] = len(target.Deps)
	}
	return counts
}

// topologicalOrder runs the three-colour depth-first search described in
// spec.md §4.C: entering a target marks it Visiting, its deps are recursed
// into in declaration order, and on exit it's marked Visited and appended
// to the result. A Visiting node encountered on descent is a cycle.
// Iteration order over the spec's targets is sorted so the result is
// reproducible across runs (the spec permits either; we pick stable).
func topologicalOrder(spec *BuildSpec) ([]string, error) {
	names := spec.Names()
	sort.Strings(names)

	colors := make(map[string]color, len(names))
	order := make([]string, 0, len(names))
	var chain []string

	var visit func(name string) error
	visit = func(name string) error {
		switch colors[name] {
		case visited:
			return nil
		case visiting:
			chain = append(chain, name)
			return NewSpecError(name, "dependency cycle: %s", cycleString(chain))
		}
		colors[name] = visiting
		chain = append(chain, name)
		target := spec.Targets[name]
		for _, dep := range target.Deps {
			if !spec.Has(dep) {
				return NewSpecError(name, "depends on undeclared target %s", quote(dep))
			}
			if err := visit(dep); err != nil {
				return err
			}
		}
		chain = chain[:len(chain)-1]
		colors[name] = visited
		order = append(order, name)
		return nil
	}

	for _, name := range names {
		if colors[name] == unvisited {
			if err := visit(name); err != nil {
				return nil, err
			}
		}
	}
	return order, nil
}

func cycleString(chain []string) string {
	s := ""
	for i, name := range chain {
		if i > 0 {
			s += " -> "
		}
		s += name
	}
	return s
}
