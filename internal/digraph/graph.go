package digraph

import "fmt"

// Graph is the DAG of stages: nodes are stage indices [0, N), edges are
// derived from output-to-input file matching rather than declared. A Graph
// is built single-threaded by repeated Add/AddPipeline calls, then sealed
// with Initialize before being handed to a scheduler.
type Graph struct {
	nodes      []*Stage
	stagehash  map[string]int // identity hash -> index, for dedup
	outputhash map[string]int // output path -> producing index
	edgesFrom  map[int][]int  // predecessor index -> successor indices
	edgesTo    map[int][]int  // successor index -> predecessor indices
	skipped    int
}

// NewGraph returns an empty Graph ready for Add calls.
func NewGraph() *Graph {
	return &Graph{
		stagehash:  make(map[string]int),
		outputhash: make(map[string]int),
		edgesFrom:  make(map[int][]int),
		edgesTo:    make(map[int][]int),
	}
}

// Len returns the number of stages registered in the graph.
func (g *Graph) Len() int { return len(g.nodes) }

// Skipped returns how many Add calls were dropped as duplicates.
func (g *Graph) Skipped() int { return g.skipped }

// Stage returns the stage at idx.
func (g *Graph) Stage(idx int) *Stage { return g.nodes[idx] }

// Status returns the current status of the stage at idx.
func (g *Graph) Status(idx int) Status { return g.nodes[idx].Status }

// SetStatus updates the status of the stage at idx. Callers are responsible
// for serializing access (the scheduler owns this as a single-writer
// invariant once workers are admitted).
func (g *Graph) SetStatus(idx int, s Status) { g.nodes[idx].Status = s }

// Successors returns the indices with an incoming edge from idx.
func (g *Graph) Successors(idx int) []int { return g.edgesFrom[idx] }

// Predecessors returns the indices with an outgoing edge to idx.
func (g *Graph) Predecessors(idx int) []int { return g.edgesTo[idx] }

// Add registers stage, deduplicating on its identity hash. A repeated add of
// an equal stage is silently dropped and counted via Skipped. Indices are
// assigned monotonically and never change.
func (g *Graph) Add(stage Stage) (idx int, added bool, err error) {
	if existing, ok := g.stagehash[stage.Identity]; ok {
		g.skipped++
		return existing, false, nil
	}

	idx = len(g.nodes)
	stage.Index = idx
	g.nodes = append(g.nodes, &stage)
	g.stagehash[stage.Identity] = idx

	for _, out := range stage.Outputs {
		if producer, exists := g.outputhash[out]; exists {
			return 0, false, &ConfigError{
				Kind:   ErrKindDuplicateOutput,
				Reason: fmt.Sprintf("output %q already produced by stage %d", out, producer),
			}
		}
		g.outputhash[out] = idx
	}

	return idx, true, nil
}

// AddPipeline forwards each stage to Add in order, stopping at the first error.
func (g *Graph) AddPipeline(stages []Stage) (added, skipped int, err error) {
	for _, st := range stages {
		_, isNew, addErr := g.Add(st)
		if addErr != nil {
			return added, skipped, addErr
		}
		if isNew {
			added++
		} else {
			skipped++
		}
	}
	return added, skipped, nil
}

// Initialize derives the edge set from input/output matching, rejects a
// cyclic graph as a ConfigError, and returns the indices of stages that are
// runnable in the graph's current state (their Status, typically all
// StatusUnset at this point unless warm-start has already run).
func (g *Graph) Initialize() ([]int, error) {
	g.createEdges()
	if err := g.detectCycle(); err != nil {
		return nil, err
	}
	return g.ComputeHeads(), nil
}

func (g *Graph) createEdges() {
	for s, stage := range g.nodes {
		for _, in := range stage.Inputs {
			producer, ok := g.outputhash[in]
			if !ok {
				continue
			}
			g.edgesFrom[producer] = append(g.edgesFrom[producer], s)
			g.edgesTo[s] = append(g.edgesTo[s], producer)
		}
	}
}

func (g *Graph) detectCycle() error {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make([]int, len(g.nodes))

	var visit func(n int) error
	visit = func(n int) error {
		color[n] = gray
		for _, m := range g.edgesFrom[n] {
			switch color[m] {
			case gray:
				return &ConfigError{
					Kind:   ErrKindCycle,
					Reason: fmt.Sprintf("cycle detected: stage %d depends on stage %d transitively", m, n),
				}
			case white:
				if err := visit(m); err != nil {
					return err
				}
			}
		}
		color[n] = black
		return nil
	}

	for i := range g.nodes {
		if color[i] == white {
			if err := visit(i); err != nil {
				return err
			}
		}
	}
	return nil
}

// ComputeHeads returns every stage index that is StatusUnset and whose
// predecessors (if any) are all StatusFinished. It is re-run whenever the
// ready-queue needs to be rebuilt from scratch: at Initialize, and again
// during restart reconciliation.
func (g *Graph) ComputeHeads() []int {
	var heads []int
	for i, stage := range g.nodes {
		if stage.Status != StatusUnset {
			continue
		}
		ready := true
		for _, p := range g.edgesTo[i] {
			if g.nodes[p].Status != StatusFinished {
				ready = false
				break
			}
		}
		if ready {
			heads = append(heads, i)
		}
	}
	return heads
}
