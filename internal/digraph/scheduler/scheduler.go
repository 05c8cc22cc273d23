// Package scheduler implements the runtime dispatch state machine over a
// digraph.Graph: the ready-queue, the processed-set, and the registered
// worker set described in spec §3/§4 of the coordinator design.
package scheduler

import (
	"container/list"
	"errors"
	"time"

	"github.com/fluxdag/fluxdag/internal/digraph"
)

// ErrUnknownIndex is returned by operations given a stage index outside [0, N).
var ErrUnknownIndex = errors.New("scheduler: unknown stage index")

// ClientInfo describes a registered worker.
type ClientInfo struct {
	URI          string
	RegisteredAt time.Time
}

// Scheduler owns the ready-queue, processed-set, and client-set for a single
// digraph.Graph. It is not safe for concurrent use by multiple goroutines;
// callers serialize access (the coordinator does this via a single owning
// goroutine, per the concurrency design).
type Scheduler struct {
	graph     *digraph.Graph
	ready     *list.List
	processed map[int]bool
	clients   map[string]ClientInfo
}

// New builds a Scheduler over an already Initialize-d graph, seeding the
// ready-queue from the graph's current heads.
func New(g *digraph.Graph) *Scheduler {
	s := &Scheduler{
		graph:     g,
		ready:     list.New(),
		processed: make(map[int]bool),
		clients:   make(map[string]ClientInfo),
	}
	s.enqueueHeads(g.ComputeHeads())
	return s
}

func (s *Scheduler) enqueueHeads(heads []int) {
	for _, idx := range heads {
		s.graph.SetStatus(idx, digraph.StatusRunnable)
		s.ready.PushBack(idx)
	}
}

func (s *Scheduler) checkIndex(idx int) error {
	if idx < 0 || idx >= s.graph.Len() {
		return ErrUnknownIndex
	}
	return nil
}

// NextRunnable pops the front of the ready-queue and transitions that stage
// to StatusRunning, returning its index. ok is false if the queue is empty.
func (s *Scheduler) NextRunnable() (idx int, ok bool) {
	front := s.ready.Front()
	if front == nil {
		return 0, false
	}
	s.ready.Remove(front)
	idx = front.Value.(int)
	s.graph.SetStatus(idx, digraph.StatusRunning)
	return idx, true
}

// Requeue returns idx to StatusRunnable and re-enqueues it at the tail of the
// ready-queue, without disturbing already-running or finished stages.
func (s *Scheduler) Requeue(idx int) error {
	if err := s.checkIndex(idx); err != nil {
		return err
	}
	s.graph.SetStatus(idx, digraph.StatusRunnable)
	s.ready.PushBack(idx)
	return nil
}

// Finish transitions idx from running to finished, records it in the
// processed-set, optionally invokes checkpoint, and promotes any successor
// whose predecessors are now all finished. It is a no-op if idx is already
// finished, and ignored entirely if idx was already failed: Finish and Fail
// are mutually exclusive terminal calls, and the earlier one wins.
func (s *Scheduler) Finish(idx int, checkpoint func() error) error {
	if err := s.checkIndex(idx); err != nil {
		return err
	}
	if s.graph.Status(idx) == digraph.StatusFinished {
		return nil
	}
	if s.graph.Status(idx) == digraph.StatusFailed {
		return nil
	}

	s.graph.SetStatus(idx, digraph.StatusFinished)
	s.processed[idx] = true

	for _, succ := range s.graph.Successors(idx) {
		if s.graph.Status(succ) != digraph.StatusUnset {
			continue
		}
		if s.predecessorsFinished(succ) {
			s.graph.SetStatus(succ, digraph.StatusRunnable)
			s.ready.PushBack(succ)
		}
	}

	if checkpoint != nil {
		return checkpoint()
	}
	return nil
}

func (s *Scheduler) predecessorsFinished(idx int) bool {
	for _, p := range s.graph.Predecessors(idx) {
		if s.graph.Status(p) != digraph.StatusFinished {
			return false
		}
	}
	return true
}

// Fail marks idx failed and appends every transitive successor to the
// processed-set without changing their status, so they never run. It
// returns the indices newly blocked by this call. Finished and failed are
// mutually exclusive terminal states: failing an already-finished index is
// ignored. Failing an already-failed index re-runs descendant propagation
// (idempotent; used by Reconcile after restart) without double-counting.
func (s *Scheduler) Fail(idx int) (blocked []int, err error) {
	if err := s.checkIndex(idx); err != nil {
		return nil, err
	}
	if s.graph.Status(idx) == digraph.StatusFinished {
		return nil, nil
	}
	if s.graph.Status(idx) != digraph.StatusFailed {
		s.graph.SetStatus(idx, digraph.StatusFailed)
	}
	s.processed[idx] = true

	visited := map[int]bool{idx: true}
	stack := append([]int{}, s.graph.Successors(idx)...)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[n] {
			continue
		}
		visited[n] = true
		if !s.processed[n] {
			s.processed[n] = true
			blocked = append(blocked, n)
		}
		stack = append(stack, s.graph.Successors(n)...)
	}
	return blocked, nil
}

// SkipCompleted drains the current ready-queue; any command stage whose
// declared inputs and outputs all already exist on disk (per exists) is
// marked finished without dispatch, in original order, and the rest are
// re-enqueued preserving order. This is the asymmetric warm-start rule from
// the source: missing inputs are treated as "not runnable yet", not as "the
// producer needs to run first".
func (s *Scheduler) SkipCompleted(exists func(path string) bool) (skipped []int, err error) {
	pending := s.ready
	s.ready = list.New()

	for e := pending.Front(); e != nil; e = e.Next() {
		idx := e.Value.(int)
		stage := s.graph.Stage(idx)

		if stage.Kind == digraph.KindCommand && allPathsExist(stage, exists) {
			s.graph.SetStatus(idx, digraph.StatusRunning)
			if err := s.Finish(idx, nil); err != nil {
				return skipped, err
			}
			skipped = append(skipped, idx)
			continue
		}

		s.graph.SetStatus(idx, digraph.StatusRunnable)
		s.ready.PushBack(idx)
	}

	return skipped, nil
}

func allPathsExist(stage *digraph.Stage, exists func(string) bool) bool {
	for _, p := range stage.Inputs {
		if !exists(p) {
			return false
		}
	}
	for _, p := range stage.Outputs {
		if !exists(p) {
			return false
		}
	}
	return true
}

// Reconcile restores scheduler invariants after loading a checkpoint:
// StatusRunning nodes (in flight at crash time) and StatusRunnable nodes
// (queued but not yet dispatched) reset to StatusUnset; StatusFailed nodes
// keep their status (never silently cleared); the ready-queue is recomputed
// from scratch, so reset nodes whose predecessors are all finished are
// enqueued again as StatusRunnable, and Fail is re-run transitively
// from every still-failed node so blocked descendants regain their
// processed-set membership even though it was dropped on reload.
func (s *Scheduler) Reconcile() error {
	for i := 0; i < s.graph.Len(); i++ {
		switch s.graph.Status(i) {
		case digraph.StatusFinished:
			s.processed[i] = true
		case digraph.StatusRunning, digraph.StatusRunnable:
			s.graph.SetStatus(i, digraph.StatusUnset)
			delete(s.processed, i)
		case digraph.StatusFailed:
			s.processed[i] = true
		default:
			delete(s.processed, i)
		}
	}

	s.ready = list.New()
	s.enqueueHeads(s.graph.ComputeHeads())

	for i := 0; i < s.graph.Len(); i++ {
		if s.graph.Status(i) == digraph.StatusFailed {
			if _, err := s.Fail(i); err != nil {
				return err
			}
		}
	}
	return nil
}

// Done reports whether every stage index is in the processed-set.
func (s *Scheduler) Done() bool {
	return len(s.processed) == s.graph.Len()
}

// Processed reports whether idx is in the processed-set.
func (s *Scheduler) Processed(idx int) bool {
	return s.processed[idx]
}

// RegisterClient adds uri to the client-set.
func (s *Scheduler) RegisterClient(uri string) {
	s.clients[uri] = ClientInfo{URI: uri, RegisteredAt: time.Now()}
}

// DeregisterClient removes uri from the client-set.
func (s *Scheduler) DeregisterClient(uri string) {
	delete(s.clients, uri)
}

// Clients returns the URIs of every registered worker.
func (s *Scheduler) Clients() []string {
	uris := make([]string, 0, len(s.clients))
	for uri := range s.clients {
		uris = append(uris, uri)
	}
	return uris
}

// Graph returns the underlying graph, for read-only inspection by the
// coordinator (e.g. serving getStage).
func (s *Scheduler) Graph() *digraph.Graph {
	return s.graph
}
