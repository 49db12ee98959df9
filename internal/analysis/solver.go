package analysis

import (
	"container/heap"
	"errors"
	"fmt"

	"retcheck/internal/cfg"
)

// ErrNonConvergence means the solver exceeded its theoretical iteration bound.
// It can only be caused by a bug in the lattice or the transfer functions.
var ErrNonConvergence = errors.New("dataflow solver did not converge")

// Stats describes one solver run
type Stats struct {
	Blocks      int // blocks in the graph
	Flags       int // distinct call-produced values
	Pops        int // worklist removals
	Processings int // transfer function applications per block
	Bound       int // maximum processings allowed
}

// Result holds the converged per-block states. It is read-only once returned.
type Result struct {
	graph *cfg.ControlFlowGraph
	entry []*AbstractState
	exit  []*AbstractState
	stats Stats
}

// Entry returns a copy of the converged state at the start of a block
func (r *Result) Entry(id int) (*AbstractState, error) {
	if _, err := r.graph.Block(id); err != nil {
		return nil, err
	}
	return r.entry[id].Clone(), nil
}

// Exit returns a copy of the converged state at the end of a block
func (r *Result) Exit(id int) (*AbstractState, error) {
	if _, err := r.graph.Block(id); err != nil {
		return nil, err
	}
	return r.exit[id].Clone(), nil
}

// Stats returns the solver counters
func (r *Result) Stats() Stats { return r.stats }

// blockQueue is a min-heap of block ids, so ready blocks are processed in ascending order
type blockQueue []int

func (q blockQueue) Len() int           { return len(q) }
func (q blockQueue) Less(i, j int) bool { return q[i] < q[j] }
func (q blockQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *blockQueue) Push(x any)        { *q = append(*q, x.(int)) }
func (q *blockQueue) Pop() any {
	old := *q
	n := len(old)
	x := old[n-1]
	*q = old[:n-1]
	return x
}

// Solver computes the forward dataflow fixed point of one function
type Solver struct {
	graph      *cfg.ControlFlowGraph
	classifier *Classifier
	strict     bool

	entry   []*AbstractState
	exit    []*AbstractState
	visited []bool
	queued  []bool
	queue   blockQueue
	stats   Stats
}

// NewSolver prepares a solver over a classified graph
func NewSolver(g *cfg.ControlFlowGraph, c *Classifier) *Solver {
	n := g.Len()
	s := &Solver{
		graph:      g,
		classifier: c,
		strict:     c.policy.StrictJoin,
		entry:      make([]*AbstractState, n),
		exit:       make([]*AbstractState, n),
		visited:    make([]bool, n),
		queued:     make([]bool, n),
	}
	for i := range n {
		s.entry[i] = Unreached()
		s.exit[i] = Unreached()
	}
	// Each block runs once on first visit, then only when its entry grows. Entry
	// states only grow and every flag can rise at most twice (TOP, CHECKED, UNCHECKED).
	s.stats = Stats{
		Blocks: n,
		Flags:  c.CallSites(),
		Bound:  n * (2*c.CallSites() + 2),
	}
	return s
}

func (s *Solver) enqueue(id int) {
	if !s.queued[id] {
		s.queued[id] = true
		heap.Push(&s.queue, id)
	}
}

// Solve iterates to the fixed point
func (s *Solver) Solve() (*Result, error) {
	entry := s.graph.Entry()
	s.entry[entry] = NewState()
	s.enqueue(entry)

	for s.queue.Len() > 0 {
		id := heap.Pop(&s.queue).(int)
		s.queued[id] = false
		s.stats.Pops++

		block, err := s.graph.Block(id)
		if err != nil {
			return nil, err
		}
		preds, err := s.graph.Predecessors(id)
		if err != nil {
			return nil, err
		}

		in := s.entry[id]
		for _, p := range preds {
			if p < 0 || p >= len(s.exit) {
				return nil, &cfg.InvalidBlockIDError{Function: s.graph.Name(), ID: p, Len: len(s.exit)}
			}
			in = in.Join(s.exit[p], s.strict)
		}
		if s.visited[id] && in.Equal(s.entry[id]) {
			continue
		}
		s.visited[id] = true
		s.entry[id] = in

		s.stats.Processings++
		if s.stats.Processings > s.stats.Bound {
			return nil, fmt.Errorf("%w: %s exceeded %d block processings (%d blocks, %d flags)",
				ErrNonConvergence, s.graph.Name(), s.stats.Bound, s.stats.Blocks, s.stats.Flags)
		}

		out := in.Clone()
		s.classifier.transferBlock(out, block, nil)
		if out.Equal(s.exit[id]) {
			continue
		}
		s.exit[id] = out

		succs, err := s.graph.Successors(id)
		if err != nil {
			return nil, err
		}
		for _, succ := range succs {
			s.enqueue(succ)
		}
	}

	log.Debugf("%s: converged after %d processings (%d pops, bound %d)",
		s.graph.Name(), s.stats.Processings, s.stats.Pops, s.stats.Bound)

	return &Result{
		graph: s.graph,
		entry: s.entry,
		exit:  s.exit,
		stats: s.stats,
	}, nil
}

// Solve runs a fresh solver over g
func Solve(g *cfg.ControlFlowGraph, c *Classifier) (*Result, error) {
	return NewSolver(g, c).Solve()
}
