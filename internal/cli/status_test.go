package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxdag/fluxdag/internal/checkpoint"
	"github.com/fluxdag/fluxdag/internal/digraph"
)

func TestRenderStatusTable_IncludesEveryStage(t *testing.T) {
	rows := []checkpoint.StageRow{
		{Index: 0, Name: "produce", Status: digraph.StatusFinished},
		{Index: 1, Name: "consume", Status: digraph.StatusRunnable},
	}

	var buf bytes.Buffer
	require.NoError(t, renderStatusTable(&buf, rows))

	out := buf.String()
	assert.Contains(t, out, "produce")
	assert.Contains(t, out, digraph.StatusFinished.String())
	assert.Contains(t, out, "consume")
	assert.Contains(t, out, digraph.StatusRunnable.String())
}
