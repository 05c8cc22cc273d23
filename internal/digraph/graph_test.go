package digraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustCommand(t *testing.T, name string, args []Arg) Stage {
	t.Helper()
	st, err := NewCommandStage(name, args, "", 0, 0)
	require.NoError(t, err)
	return st
}

// scenario 1: linear chain A(out=x) -> B(in=x,out=y) -> C(in=y,out=z)
func TestGraph_LinearChain(t *testing.T) {
	g := NewGraph()

	a := mustCommand(t, "a", []Arg{{Kind: ArgPlain, Text: "a"}, {Kind: ArgOutput, Text: "x"}})
	b := mustCommand(t, "b", []Arg{{Kind: ArgPlain, Text: "b"}, {Kind: ArgInput, Text: "x"}, {Kind: ArgOutput, Text: "y"}})
	c := mustCommand(t, "c", []Arg{{Kind: ArgPlain, Text: "c"}, {Kind: ArgInput, Text: "y"}, {Kind: ArgOutput, Text: "z"}})

	idxA, added, err := g.Add(a)
	require.NoError(t, err)
	require.True(t, added)
	idxB, _, err := g.Add(b)
	require.NoError(t, err)
	idxC, _, err := g.Add(c)
	require.NoError(t, err)

	heads, err := g.Initialize()
	require.NoError(t, err)

	assert.Equal(t, []int{idxA}, heads, "only A has no unmet predecessor")
	assert.Equal(t, []int{idxB}, g.Successors(idxA))
	assert.Equal(t, []int{idxC}, g.Successors(idxB))
	assert.Empty(t, g.Successors(idxC))
	assert.Equal(t, []int{idxA}, g.Predecessors(idxB))
	assert.Equal(t, []int{idxB}, g.Predecessors(idxC))
}

// scenario 2: diamond A->{B,C}->D
func TestGraph_Diamond(t *testing.T) {
	g := NewGraph()

	a := mustCommand(t, "a", []Arg{{Text: "a"}, {Kind: ArgOutput, Text: "x"}})
	b := mustCommand(t, "b", []Arg{{Text: "b"}, {Kind: ArgInput, Text: "x"}, {Kind: ArgOutput, Text: "y1"}})
	c := mustCommand(t, "c", []Arg{{Text: "c"}, {Kind: ArgInput, Text: "x"}, {Kind: ArgOutput, Text: "y2"}})
	d := mustCommand(t, "d", []Arg{{Text: "d"}, {Kind: ArgInput, Text: "y1"}, {Kind: ArgInput, Text: "y2"}})

	idxA, _, err := g.Add(a)
	require.NoError(t, err)
	idxB, _, err := g.Add(b)
	require.NoError(t, err)
	idxC, _, err := g.Add(c)
	require.NoError(t, err)
	idxD, _, err := g.Add(d)
	require.NoError(t, err)

	heads, err := g.Initialize()
	require.NoError(t, err)

	assert.Equal(t, []int{idxA}, heads)
	assert.ElementsMatch(t, []int{idxB, idxC}, g.Successors(idxA))
	assert.ElementsMatch(t, []int{idxB, idxC}, g.Predecessors(idxD))
}

func TestGraph_Dedup(t *testing.T) {
	g := NewGraph()

	st := mustCommand(t, "reg", []Arg{{Text: "register"}, {Text: "/a"}, {Text: "/b"}})
	_, added1, err := g.Add(st)
	require.NoError(t, err)
	require.True(t, added1)

	dup := mustCommand(t, "reg", []Arg{{Text: "register"}, {Text: "/a"}, {Text: "/b"}})
	_, added2, err := g.Add(dup)
	require.NoError(t, err)

	assert.False(t, added2)
	assert.Equal(t, 1, g.Len())
	assert.Equal(t, 1, g.Skipped())
}

func TestGraph_DuplicateOutputIsConfigError(t *testing.T) {
	g := NewGraph()

	a := mustCommand(t, "a", []Arg{{Text: "a"}, {Kind: ArgOutput, Text: "x"}})
	b := mustCommand(t, "b", []Arg{{Text: "b-different"}, {Kind: ArgOutput, Text: "x"}})

	_, _, err := g.Add(a)
	require.NoError(t, err)
	_, _, err = g.Add(b)
	require.Error(t, err)

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, ErrKindDuplicateOutput, cfgErr.Kind)
}

func TestGraph_CycleIsConfigError(t *testing.T) {
	g := NewGraph()

	a := mustCommand(t, "a", []Arg{{Text: "a"}, {Kind: ArgInput, Text: "z"}, {Kind: ArgOutput, Text: "x"}})
	b := mustCommand(t, "b", []Arg{{Text: "b"}, {Kind: ArgInput, Text: "x"}, {Kind: ArgOutput, Text: "z"}})

	_, _, err := g.Add(a)
	require.NoError(t, err)
	_, _, err = g.Add(b)
	require.NoError(t, err)

	_, err = g.Initialize()
	require.Error(t, err)

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, ErrKindCycle, cfgErr.Kind)
}

func TestGraph_ComputeHeadsRespectsFinishedPredecessors(t *testing.T) {
	g := NewGraph()

	a := mustCommand(t, "a", []Arg{{Text: "a"}, {Kind: ArgOutput, Text: "x"}})
	b := mustCommand(t, "b", []Arg{{Text: "b"}, {Kind: ArgInput, Text: "x"}})

	idxA, _, err := g.Add(a)
	require.NoError(t, err)
	idxB, _, err := g.Add(b)
	require.NoError(t, err)

	heads, err := g.Initialize()
	require.NoError(t, err)
	assert.Equal(t, []int{idxA}, heads)

	g.SetStatus(idxA, StatusFinished)
	assert.Equal(t, []int{idxB}, g.ComputeHeads())
}

func TestGraph_AddPipeline(t *testing.T) {
	g := NewGraph()
	a := mustCommand(t, "a", []Arg{{Text: "a"}})
	dupA := mustCommand(t, "a", []Arg{{Text: "a"}})
	b := mustCommand(t, "b", []Arg{{Text: "b"}})

	added, skipped, err := g.AddPipeline([]Stage{a, dupA, b})
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	assert.Equal(t, 1, skipped)
}
