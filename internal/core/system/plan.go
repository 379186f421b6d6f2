package system

import (
	"slices"
	"strings"
)

// Plan is the compiled execution order: a sequence of batches, each a set
// of mutually non-conflicting systems. Systems inside a batch are listed in
// declaration order.
type Plan struct {
	names   []string
	batchOf []int
	batches [][]int
}

// Len returns the number of batches.
func (p *Plan) Len() int { return len(p.batches) }

// Batches returns the system names per batch.
func (p *Plan) Batches() [][]string {
	out := make([][]string, len(p.batches))
	for b, batch := range p.batches {
		out[b] = make([]string, len(batch))
		for k, i := range batch {
			out[b][k] = p.names[i]
		}
	}
	return out
}

// Indices returns the declaration indices per batch.
func (p *Plan) Indices() [][]int {
	out := make([][]int, len(p.batches))
	for b, batch := range p.batches {
		out[b] = slices.Clone(batch)
	}
	return out
}

// BatchOf returns the batch a named system runs in, or -1.
func (p *Plan) BatchOf(name string) int {
	i := slices.Index(p.names, name)
	if i < 0 {
		return -1
	}
	return p.batchOf[i]
}

// PlanDescription is the exported shape of a Plan for logs and dumps.
type PlanDescription struct {
	Systems int        `json:"systems"`
	Batches [][]string `json:"batches"`
}

func (p *Plan) Describe() PlanDescription {
	return PlanDescription{Systems: len(p.names), Batches: p.Batches()}
}

// String renders the plan as "[a] -> [b c]".
func (p *Plan) String() string {
	parts := make([]string, len(p.batches))
	for b, names := range p.Batches() {
		parts[b] = "[" + strings.Join(names, " ") + "]"
	}
	return strings.Join(parts, " -> ")
}
