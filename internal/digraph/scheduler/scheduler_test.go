package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxdag/fluxdag/internal/digraph"
)

func mustCommand(t *testing.T, name string, args []digraph.Arg) digraph.Stage {
	t.Helper()
	st, err := digraph.NewCommandStage(name, args, "", 0, 0)
	require.NoError(t, err)
	return st
}

func linearChain(t *testing.T) (*digraph.Graph, map[string]int) {
	t.Helper()
	g := digraph.NewGraph()
	idx := map[string]int{}

	a := mustCommand(t, "a", []digraph.Arg{{Text: "a"}, {Kind: digraph.ArgOutput, Text: "x"}})
	b := mustCommand(t, "b", []digraph.Arg{{Text: "b"}, {Kind: digraph.ArgInput, Text: "x"}, {Kind: digraph.ArgOutput, Text: "y"}})
	c := mustCommand(t, "c", []digraph.Arg{{Text: "c"}, {Kind: digraph.ArgInput, Text: "y"}, {Kind: digraph.ArgOutput, Text: "z"}})

	idx["a"], _, _ = g.Add(a)
	idx["b"], _, _ = g.Add(b)
	idx["c"], _, _ = g.Add(c)

	_, err := g.Initialize()
	require.NoError(t, err)
	return g, idx
}

func diamond(t *testing.T) (*digraph.Graph, map[string]int) {
	t.Helper()
	g := digraph.NewGraph()
	idx := map[string]int{}

	a := mustCommand(t, "a", []digraph.Arg{{Text: "a"}, {Kind: digraph.ArgOutput, Text: "x"}})
	b := mustCommand(t, "b", []digraph.Arg{{Text: "b"}, {Kind: digraph.ArgInput, Text: "x"}, {Kind: digraph.ArgOutput, Text: "y1"}})
	c := mustCommand(t, "c", []digraph.Arg{{Text: "c"}, {Kind: digraph.ArgInput, Text: "x"}, {Kind: digraph.ArgOutput, Text: "y2"}})
	d := mustCommand(t, "d", []digraph.Arg{{Text: "d"}, {Kind: digraph.ArgInput, Text: "y1"}, {Kind: digraph.ArgInput, Text: "y2"}})

	idx["a"], _, _ = g.Add(a)
	idx["b"], _, _ = g.Add(b)
	idx["c"], _, _ = g.Add(c)
	idx["d"], _, _ = g.Add(d)

	_, err := g.Initialize()
	require.NoError(t, err)
	return g, idx
}

// Scenario 1: linear chain dispatch order A, B, C.
func TestScheduler_LinearChainDispatchOrder(t *testing.T) {
	g, idx := linearChain(t)
	s := New(g)

	a, ok := s.NextRunnable()
	require.True(t, ok)
	assert.Equal(t, idx["a"], a)

	_, ok = s.NextRunnable()
	assert.False(t, ok, "B and C are not yet runnable")

	require.NoError(t, s.Finish(a, nil))

	b, ok := s.NextRunnable()
	require.True(t, ok)
	assert.Equal(t, idx["b"], b)

	require.NoError(t, s.Finish(b, nil))

	c, ok := s.NextRunnable()
	require.True(t, ok)
	assert.Equal(t, idx["c"], c)

	require.NoError(t, s.Finish(c, nil))
	assert.True(t, s.Done())
}

// Scenario 2: diamond — B and C dispatchable simultaneously, D only after both.
func TestScheduler_DiamondConcurrentDispatch(t *testing.T) {
	g, idx := diamond(t)
	s := New(g)

	a, ok := s.NextRunnable()
	require.True(t, ok)
	require.NoError(t, s.Finish(a, nil))

	first, ok := s.NextRunnable()
	require.True(t, ok)
	second, ok := s.NextRunnable()
	require.True(t, ok)
	assert.ElementsMatch(t, []int{idx["b"], idx["c"]}, []int{first, second})

	_, ok = s.NextRunnable()
	assert.False(t, ok, "D requires both B and C finished")

	require.NoError(t, s.Finish(first, nil))
	_, ok = s.NextRunnable()
	assert.False(t, ok, "D still blocked on the other of B/C")

	require.NoError(t, s.Finish(second, nil))
	d, ok := s.NextRunnable()
	require.True(t, ok)
	assert.Equal(t, idx["d"], d)
}

// Scenario 4: diamond where C fails; D is blocked without running.
func TestScheduler_FailurePropagation(t *testing.T) {
	g, idx := diamond(t)
	s := New(g)

	a, _ := s.NextRunnable()
	require.NoError(t, s.Finish(a, nil))

	first, _ := s.NextRunnable()
	second, _ := s.NextRunnable()

	var bIdx, cIdx int
	if first == idx["b"] {
		bIdx, cIdx = first, second
	} else {
		bIdx, cIdx = second, first
	}

	require.NoError(t, s.Finish(bIdx, nil))

	blocked, err := s.Fail(cIdx)
	require.NoError(t, err)
	assert.Equal(t, []int{idx["d"]}, blocked)

	_, ok := s.NextRunnable()
	assert.False(t, ok, "D must never be dispatched")

	assert.True(t, s.Done())
	assert.True(t, s.Processed(idx["d"]))
	assert.Equal(t, digraph.StatusFailed, g.Status(cIdx))
	assert.Equal(t, digraph.StatusUnset, g.Status(idx["d"]), "blocked descendant's status is untouched")
}

func TestScheduler_FailIsIdempotentAgainstFinish(t *testing.T) {
	g, idx := linearChain(t)
	s := New(g)

	a, _ := s.NextRunnable()
	require.NoError(t, s.Finish(a, nil))

	// Finishing an already-finished index is a no-op.
	require.NoError(t, s.Finish(a, nil))

	// Failing an already-finished index is ignored: finished wins.
	blocked, err := s.Fail(a)
	require.NoError(t, err)
	assert.Nil(t, blocked)
	assert.Equal(t, digraph.StatusFinished, g.Status(idx["a"]))
}

// Scenario: the reverse order — a late/duplicate SetStageFinished must not
// resurrect a stage (and its already-blocked descendants) that Fail already
// settled.
func TestScheduler_FinishIsIgnoredAfterFail(t *testing.T) {
	g, idx := linearChain(t)
	s := New(g)

	a, _ := s.NextRunnable()
	blocked, err := s.Fail(a)
	require.NoError(t, err)
	assert.NotEmpty(t, blocked)

	require.NoError(t, s.Finish(a, nil))
	assert.Equal(t, digraph.StatusFailed, g.Status(idx["a"]))
	for _, b := range blocked {
		assert.True(t, s.Processed(b))
	}
}

// Scenario 5: warm start — x already exists, A marked finished without dispatch.
func TestScheduler_WarmStartSkip(t *testing.T) {
	g, idx := linearChain(t)
	s := New(g)

	existing := map[string]bool{"x": true}
	exists := func(p string) bool { return existing[p] }

	skipped, err := s.SkipCompleted(exists)
	require.NoError(t, err)
	assert.Equal(t, []int{idx["a"]}, skipped)
	assert.Equal(t, digraph.StatusFinished, g.Status(idx["a"]))

	b, ok := s.NextRunnable()
	require.True(t, ok)
	assert.Equal(t, idx["b"], b, "B dispatches first since A was skipped")
}

// The asymmetric warm-start rule: a stage with no declared inputs is only
// skipped if ALL of its outputs already exist too.
func TestScheduler_WarmStartRequiresAllDeclaredPaths(t *testing.T) {
	g := digraph.NewGraph()
	st := mustCommand(t, "a", []digraph.Arg{{Text: "a"}, {Kind: digraph.ArgOutput, Text: "x"}, {Kind: digraph.ArgOutput, Text: "w"}})
	idxA, _, err := g.Add(st)
	require.NoError(t, err)
	_, err = g.Initialize()
	require.NoError(t, err)

	s := New(g)
	exists := func(p string) bool { return p == "x" } // only one of two outputs exists

	skipped, err := s.SkipCompleted(exists)
	require.NoError(t, err)
	assert.Empty(t, skipped)

	next, ok := s.NextRunnable()
	require.True(t, ok)
	assert.Equal(t, idxA, next)
}

// Scenario 6: crash recovery — kill after B finishes, C running; restart
// resets C to runnable, D runs after C.
func TestScheduler_CrashRecovery(t *testing.T) {
	g, idx := diamond(t)
	s := New(g)

	a, _ := s.NextRunnable()
	require.NoError(t, s.Finish(a, nil))

	first, _ := s.NextRunnable()
	second, _ := s.NextRunnable()
	var bIdx, cIdx int
	if first == idx["b"] {
		bIdx, cIdx = first, second
	} else {
		bIdx, cIdx = second, first
	}
	require.NoError(t, s.Finish(bIdx, nil))
	// cIdx stays StatusRunning: the simulated crash happens here.

	require.NoError(t, s.Reconcile())

	assert.Equal(t, digraph.StatusFinished, g.Status(idx["a"]))
	assert.Equal(t, digraph.StatusFinished, g.Status(bIdx))
	assert.Equal(t, digraph.StatusRunnable, g.Status(cIdx), "running reverts to runnable")

	c, ok := s.NextRunnable()
	require.True(t, ok)
	assert.Equal(t, cIdx, c)

	require.NoError(t, s.Finish(c, nil))

	d, ok := s.NextRunnable()
	require.True(t, ok)
	assert.Equal(t, idx["d"], d)
	require.NoError(t, s.Finish(d, nil))
	assert.True(t, s.Done())
}

// Restart after a failure: the failed stage stays failed, and its blocked
// descendant regains processed-set membership without being re-dispatched.
func TestScheduler_CrashRecoveryAfterFailure(t *testing.T) {
	g, idx := diamond(t)
	s := New(g)

	a, _ := s.NextRunnable()
	require.NoError(t, s.Finish(a, nil))
	first, _ := s.NextRunnable()
	second, _ := s.NextRunnable()
	var bIdx, cIdx int
	if first == idx["b"] {
		bIdx, cIdx = first, second
	} else {
		bIdx, cIdx = second, first
	}
	require.NoError(t, s.Finish(bIdx, nil))
	_, err := s.Fail(cIdx)
	require.NoError(t, err)

	require.NoError(t, s.Reconcile())

	assert.Equal(t, digraph.StatusFailed, g.Status(cIdx), "failed status is never cleared")
	assert.True(t, s.Processed(idx["d"]), "blocked descendant is re-derived, not re-dispatched")

	_, ok := s.NextRunnable()
	assert.False(t, ok)
	assert.True(t, s.Done())
}

func TestScheduler_Requeue(t *testing.T) {
	g, idx := linearChain(t)
	s := New(g)

	a, ok := s.NextRunnable()
	require.True(t, ok)
	require.Equal(t, idx["a"], a)

	require.NoError(t, s.Requeue(a))
	assert.Equal(t, digraph.StatusRunnable, g.Status(a))

	again, ok := s.NextRunnable()
	require.True(t, ok)
	assert.Equal(t, a, again, "requeue puts the stage back at the tail of an otherwise-empty queue")
}

func TestScheduler_UnknownIndexErrors(t *testing.T) {
	g, _ := linearChain(t)
	s := New(g)

	assert.ErrorIs(t, s.Requeue(99), ErrUnknownIndex)
	_, err := s.Fail(99)
	assert.ErrorIs(t, err, ErrUnknownIndex)
	assert.ErrorIs(t, s.Finish(99, nil), ErrUnknownIndex)
}

func TestScheduler_ClientSet(t *testing.T) {
	g, _ := linearChain(t)
	s := New(g)

	s.RegisterClient("worker-1")
	s.RegisterClient("worker-2")
	assert.ElementsMatch(t, []string{"worker-1", "worker-2"}, s.Clients())

	s.DeregisterClient("worker-1")
	assert.Equal(t, []string{"worker-2"}, s.Clients())
}
