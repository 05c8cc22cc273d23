package checkpoint_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxdag/fluxdag/internal/checkpoint"
	"github.com/fluxdag/fluxdag/internal/digraph"
	"github.com/fluxdag/fluxdag/internal/digraph/scheduler"
)

func buildGraph(t *testing.T) *digraph.Graph {
	t.Helper()
	g := digraph.NewGraph()

	a, err := digraph.NewCommandStage("produce",
		[]digraph.Arg{{Kind: digraph.ArgPlain, Text: "produce"}, {Kind: digraph.ArgOutput, Text: "x.bin"}},
		"a.log", 0, 0)
	require.NoError(t, err)
	_, _, err = g.Add(a)
	require.NoError(t, err)

	b, err := digraph.NewCommandStage("consume",
		[]digraph.Arg{{Kind: digraph.ArgPlain, Text: "consume"}, {Kind: digraph.ArgInput, Text: "x.bin"}},
		"b.log", 0, 0)
	require.NoError(t, err)
	_, _, err = g.Add(b)
	require.NoError(t, err)

	_, err = g.Initialize()
	require.NoError(t, err)
	return g
}

func TestStore_SaveAndLoad_RoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "checkpoint.db")
	store, err := checkpoint.Open(dbPath, "demo-pipeline")
	require.NoError(t, err)
	defer store.Close()

	g := buildGraph(t)
	sched := scheduler.New(g)

	idx, ok := sched.NextRunnable()
	require.True(t, ok)
	require.Equal(t, 0, idx)
	require.NoError(t, sched.Finish(idx, nil))

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, g, sched))

	loadedGraph, loadedSched, err := store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, loadedGraph)
	require.NotNil(t, loadedSched)

	assert.Equal(t, digraph.StatusFinished, loadedGraph.Status(0))
	assert.True(t, loadedSched.Processed(0))
	assert.Equal(t, digraph.StatusRunnable, loadedGraph.Status(1))
	assert.False(t, loadedSched.Done())
}

func TestStore_Load_EmptyIsNoCheckpoint(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "checkpoint.db")
	store, err := checkpoint.Open(dbPath, "demo-pipeline")
	require.NoError(t, err)
	defer store.Close()

	g, sched, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, g)
	assert.Nil(t, sched)
}

func TestStore_LoadStatus_ReportsPipelineNameAndStages(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "checkpoint.db")
	store, err := checkpoint.Open(dbPath, "demo-pipeline")
	require.NoError(t, err)
	defer store.Close()

	g := buildGraph(t)
	sched := scheduler.New(g)
	require.NoError(t, store.Save(context.Background(), g, sched))

	name, rows, err := store.LoadStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "demo-pipeline", name)
	require.Len(t, rows, 2)
	assert.Equal(t, "produce", rows[0].Name)
	assert.Equal(t, digraph.StatusRunnable, rows[0].Status)
	assert.Equal(t, "consume", rows[1].Name)
}

func TestStore_Load_RunningStageRevertsToRunnable(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "checkpoint.db")
	store, err := checkpoint.Open(dbPath, "demo-pipeline")
	require.NoError(t, err)
	defer store.Close()

	g := buildGraph(t)
	sched := scheduler.New(g)
	idx, ok := sched.NextRunnable()
	require.True(t, ok)
	require.Equal(t, 0, idx)

	require.NoError(t, store.Save(context.Background(), g, sched))

	loadedGraph, _, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, digraph.StatusRunnable, loadedGraph.Status(0))
}
