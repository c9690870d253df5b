package compiler

import (
	"errors"
	"fmt"
)

// Errors for StepGraph operations.
var (
	ErrDuplicateStep    = errors.New("step with this ID already exists")
	ErrCyclicDependency = errors.New("cyclic dependency detected")
	ErrMissingDep       = errors.New("step depends on nonexistent step")
	ErrUnknownTarget    = errors.New("unknown target")
)

// StepGraph is a directed acyclic graph of build steps.
// It remembers declaration order so that the chain it produces is the same
// on every run for the same recipe.
type StepGraph struct {
	order      []string
	index      map[string]int
	steps      map[string]Step
	dependsOn  map[string][]string // step ID -> list of dependency IDs
	dependedBy map[string][]string // step ID -> list of steps that depend on it
}

// NewStepGraph creates an empty StepGraph.
func NewStepGraph() *StepGraph {
	return &StepGraph{
		index:      make(map[string]int),
		steps:      make(map[string]Step),
		dependsOn:  make(map[string][]string),
		dependedBy: make(map[string][]string),
	}
}

// Len returns the number of steps in the graph.
func (g *StepGraph) Len() int {
	return len(g.steps)
}

// Add adds a step to the graph.
// Returns ErrDuplicateStep if a step with the same ID already exists.
func (g *StepGraph) Add(step Step) error {
	id := step.ID().String()

	if _, exists := g.steps[id]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateStep, id)
	}

	g.index[id] = len(g.order)
	g.order = append(g.order, id)
	g.steps[id] = step

	deps := step.DependsOn()
	depIDs := make([]string, len(deps))
	for i, dep := range deps {
		depID := dep.String()
		depIDs[i] = depID
		g.dependedBy[depID] = append(g.dependedBy[depID], id)
	}
	g.dependsOn[id] = depIDs

	return nil
}

// Get retrieves a step by ID.
func (g *StepGraph) Get(id StepID) (Step, bool) {
	step, ok := g.steps[id.String()]
	return step, ok
}

// Lookup retrieves a step by target name.
// Returns an UnknownTarget error listing the known names on a miss.
func (g *StepGraph) Lookup(target string) (Step, error) {
	step, ok := g.steps[target]
	if !ok {
		return nil, NewUnknownTargetError(target, g.Names())
	}
	return step, nil
}

// Steps returns all steps in declaration order.
func (g *StepGraph) Steps() []Step {
	steps := make([]Step, 0, len(g.order))
	for _, id := range g.order {
		steps = append(steps, g.steps[id])
	}
	return steps
}

// Names returns all step IDs in declaration order.
func (g *StepGraph) Names() []string {
	names := make([]string, len(g.order))
	copy(names, g.order)
	return names
}

// Validate checks that all dependencies exist and that the graph is acyclic.
func (g *StepGraph) Validate() error {
	for _, id := range g.order {
		for _, depID := range g.dependsOn[id] {
			if _, exists := g.steps[depID]; !exists {
				return fmt.Errorf("%w: step %q depends on %q", ErrMissingDep, id, depID)
			}
		}
	}
	_, err := g.TopologicalSort()
	return err
}

// Roots returns steps that have no dependencies.
func (g *StepGraph) Roots() []Step {
	roots := make([]Step, 0)
	for _, id := range g.order {
		if len(g.dependsOn[id]) == 0 {
			roots = append(roots, g.steps[id])
		}
	}
	return roots
}

// TopologicalSort returns steps in dependency order.
// Among steps that are ready at the same time, the one declared first wins,
// so a recipe that is already in dependency order comes back unchanged.
// Returns ErrCyclicDependency if the graph contains a cycle.
func (g *StepGraph) TopologicalSort() ([]Step, error) {
	inDegree := make(map[string]int, len(g.steps))
	for _, id := range g.order {
		for _, depID := range g.dependsOn[id] {
			if _, exists := g.steps[depID]; exists {
				inDegree[id]++
			}
		}
	}

	ready := make([]string, 0)
	for _, id := range g.order {
		if inDegree[id] == 0 {
			ready = append(ready, id)
		}
	}

	sorted := make([]Step, 0, len(g.steps))

	for len(ready) > 0 {
		next := 0
		for i := 1; i < len(ready); i++ {
			if g.index[ready[i]] < g.index[ready[next]] {
				next = i
			}
		}
		id := ready[next]
		ready = append(ready[:next], ready[next+1:]...)

		sorted = append(sorted, g.steps[id])

		for _, dependentID := range g.dependedBy[id] {
			if _, exists := g.steps[dependentID]; !exists {
				continue
			}
			inDegree[dependentID]--
			if inDegree[dependentID] == 0 {
				ready = append(ready, dependentID)
			}
		}
	}

	if len(sorted) != len(g.steps) {
		return nil, fmt.Errorf("%w: %v", ErrCyclicDependency, g.unsorted(sorted))
	}

	return sorted, nil
}

// Resolve returns the prefix of the chain that ends at, and includes, target.
func (g *StepGraph) Resolve(target string) ([]Step, error) {
	if _, ok := g.steps[target]; !ok {
		return nil, NewUnknownTargetError(target, g.Names())
	}

	chain, err := g.TopologicalSort()
	if err != nil {
		return nil, err
	}

	for i, step := range chain {
		if step.ID().String() == target {
			return chain[:i+1], nil
		}
	}
	return nil, NewUnknownTargetError(target, g.Names())
}

// Closure returns target and its transitive prerequisites in chain order.
// Unlike Resolve it leaves out unrelated steps that happen to precede target.
func (g *StepGraph) Closure(target string) ([]Step, error) {
	if _, ok := g.steps[target]; !ok {
		return nil, NewUnknownTargetError(target, g.Names())
	}

	needed := map[string]bool{}
	var visit func(id string)
	visit = func(id string) {
		if needed[id] {
			return
		}
		needed[id] = true
		for _, depID := range g.dependsOn[id] {
			visit(depID)
		}
	}
	visit(target)

	return g.filterChain(needed)
}

// Dependents returns the steps that transitively depend on target, in chain order.
func (g *StepGraph) Dependents(target string) ([]Step, error) {
	if _, ok := g.steps[target]; !ok {
		return nil, NewUnknownTargetError(target, g.Names())
	}

	found := map[string]bool{}
	queue := append([]string(nil), g.dependedBy[target]...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if found[id] {
			continue
		}
		found[id] = true
		queue = append(queue, g.dependedBy[id]...)
	}

	return g.filterChain(found)
}

// Prerequisites returns the set of transitive prerequisites of id.
func (g *StepGraph) Prerequisites(id string) map[string]bool {
	seen := map[string]bool{}
	var visit func(string)
	visit = func(cur string) {
		for _, depID := range g.dependsOn[cur] {
			if !seen[depID] {
				seen[depID] = true
				visit(depID)
			}
		}
	}
	visit(id)
	return seen
}

func (g *StepGraph) filterChain(keep map[string]bool) ([]Step, error) {
	chain, err := g.TopologicalSort()
	if err != nil {
		return nil, err
	}

	steps := make([]Step, 0, len(keep))
	for _, step := range chain {
		if keep[step.ID().String()] {
			steps = append(steps, step)
		}
	}
	return steps, nil
}

func (g *StepGraph) unsorted(sorted []Step) []string {
	done := make(map[string]bool, len(sorted))
	for _, step := range sorted {
		done[step.ID().String()] = true
	}
	rest := make([]string, 0)
	for _, id := range g.order {
		if !done[id] {
			rest = append(rest, id)
		}
	}
	return rest
}
