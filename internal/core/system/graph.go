package system

import (
	"fmt"
	"slices"
)

// registration is one system as handed to the Builder.
type registration struct {
	name   string
	sys    System
	access Access // normalized
	after  []string
}

// graph is the dependency graph over registrations, indexed by
// declaration order. An edge a→b means a runs in an earlier batch than b.
type graph struct {
	n    int
	succ [][]int
	pred [][]int
}

func newGraph(n int) *graph {
	return &graph{n: n, succ: make([][]int, n), pred: make([][]int, n)}
}

func (g *graph) addEdge(from, to int) {
	if slices.Contains(g.succ[from], to) {
		return
	}
	g.succ[from] = append(g.succ[from], to)
	g.pred[to] = append(g.pred[to], from)
}

// reachable reports whether a path from → to exists.
func (g *graph) reachable(from, to int) bool {
	seen := make([]bool, g.n)
	stack := []int{from}
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if v == to {
			return true
		}
		if seen[v] {
			continue
		}
		seen[v] = true
		stack = append(stack, g.succ[v]...)
	}
	return false
}

// findCycle returns the vertices of one cycle in edge order, or nil.
// Vertices and edges are visited in declaration order, so the reported
// cycle is stable across runs.
func (g *graph) findCycle() []int {
	const (
		white = iota
		grey
		black
	)
	color := make([]int, g.n)
	parent := make([]int, g.n)
	var cycle []int

	var visit func(v int) bool
	visit = func(v int) bool {
		color[v] = grey
		succ := slices.Clone(g.succ[v])
		slices.Sort(succ)
		for _, w := range succ {
			switch color[w] {
			case grey:
				cycle = []int{w}
				for u := v; u != w; u = parent[u] {
					cycle = append(cycle, u)
				}
				slices.Reverse(cycle[1:])
				return true
			case white:
				parent[w] = v
				if visit(w) {
					return true
				}
			}
		}
		color[v] = black
		return false
	}
	for v := 0; v < g.n; v++ {
		if color[v] == white && visit(v) {
			return cycle
		}
	}
	return nil
}

// buildPlan turns registrations into batches.
//
//  1. Explicit runs-after constraints become edges; a cycle among them is fatal.
//  2. Every conflicting pair i<j with no path between them yet gets the
//     edge i→j, so the earlier-declared system runs first.
//  3. Each system lands in batch 1 + max(batch of its predecessors).
//  4. The result is re-checked: no batch may hold two conflicting systems
//     and every explicit constraint must be satisfied.
func buildPlan(regs []registration) (*Plan, error) {
	n := len(regs)
	index := make(map[string]int, n)
	for i, r := range regs {
		if r.sys == nil {
			return nil, fmt.Errorf("%w: %q has no implementation", ErrInvalidSystem, r.name)
		}
		if r.name == "" {
			return nil, fmt.Errorf("%w: system %d has no name", ErrInvalidSystem, i)
		}
		if _, dup := index[r.name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateSystem, r.name)
		}
		index[r.name] = i
		if err := r.access.Validate(); err != nil {
			return nil, fmt.Errorf("system %q: %w", r.name, err)
		}
	}

	g := newGraph(n)
	for i, r := range regs {
		for _, dep := range r.after {
			j, ok := index[dep]
			if !ok {
				return nil, fmt.Errorf("%w: %q runs after %q", ErrUnknownDependency, r.name, dep)
			}
			g.addEdge(j, i)
		}
	}
	if cyc := g.findCycle(); cyc != nil {
		return nil, cycleError(regs, cyc)
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if !regs[i].access.Conflicts(regs[j].access) {
				continue
			}
			if g.reachable(i, j) || g.reachable(j, i) {
				continue
			}
			g.addEdge(i, j)
		}
	}

	level, err := layer(g)
	if err != nil {
		if cyc := g.findCycle(); cyc != nil {
			return nil, cycleError(regs, cyc)
		}
		return nil, err
	}

	depth := 0
	for _, l := range level {
		depth = max(depth, l+1)
	}
	plan := &Plan{
		names:   make([]string, n),
		batchOf: level,
		batches: make([][]int, depth),
	}
	for i, r := range regs {
		plan.names[i] = r.name
		plan.batches[level[i]] = append(plan.batches[level[i]], i)
	}

	if err := validatePlan(plan, regs, index); err != nil {
		return nil, err
	}
	return plan, nil
}

// layer assigns each vertex its longest-path depth via Kahn's algorithm,
// always taking the lowest ready index next.
func layer(g *graph) ([]int, error) {
	indeg := make([]int, g.n)
	for v := 0; v < g.n; v++ {
		indeg[v] = len(g.pred[v])
	}
	level := make([]int, g.n)
	var ready []int
	for v := 0; v < g.n; v++ {
		if indeg[v] == 0 {
			ready = append(ready, v)
		}
	}
	done := 0
	for len(ready) > 0 {
		slices.Sort(ready)
		v := ready[0]
		ready = ready[1:]
		done++
		for _, w := range g.succ[v] {
			level[w] = max(level[w], level[v]+1)
			indeg[w]--
			if indeg[w] == 0 {
				ready = append(ready, w)
			}
		}
	}
	if done != g.n {
		return nil, ErrCyclicDependency
	}
	return level, nil
}

func validatePlan(p *Plan, regs []registration, index map[string]int) error {
	for b, batch := range p.batches {
		for x := 0; x < len(batch); x++ {
			for y := x + 1; y < len(batch); y++ {
				ra, rb := regs[batch[x]], regs[batch[y]]
				if ra.access.Conflicts(rb.access) {
					return fmt.Errorf("plan batch %d: %q and %q conflict on %v",
						b, ra.name, rb.name, ra.access.ConflictingTypes(rb.access))
				}
			}
		}
	}
	for i, r := range regs {
		for _, dep := range r.after {
			if p.batchOf[index[dep]] >= p.batchOf[i] {
				return fmt.Errorf("plan: %q scheduled before its dependency %q", r.name, dep)
			}
		}
	}
	return nil
}

func cycleError(regs []registration, cyc []int) error {
	names := make([]string, len(cyc))
	for i, v := range cyc {
		names[i] = regs[v].name
	}
	return &CycleError{Systems: names}
}
