// Package batchexport renders an initialized digraph.Graph as a list of
// external batch-submission commands instead of running anything, for the
// queue=script-only driver mode: the coordinator never starts in this mode.
package batchexport

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fluxdag/fluxdag/internal/digraph"
)

// Write renders g to w, one line per stage, in index order. A command stage
// whose declared inputs and outputs already exist on disk is skipped,
// mirroring the coordinator's own warm-start rule; a stage with unfinished
// predecessors carries a --hold-on directive naming their job IDs.
func Write(w io.Writer, g *digraph.Graph) error {
	jobID := func(idx int) string { return fmt.Sprintf("stage-%03d", idx) }

	for i := 0; i < g.Len(); i++ {
		stage := g.Stage(i)

		if stage.Kind == digraph.KindCommand && allPathsExist(stage) {
			if _, err := fmt.Fprintf(w, "# %s (%s): skipped, outputs already present\n", jobID(i), stage.Name); err != nil {
				return err
			}
			continue
		}

		argv := stage.Argv()
		if len(argv) == 0 {
			if _, err := fmt.Fprintf(w, "# %s (%s): abstract stage, no command to submit\n", jobID(i), stage.Name); err != nil {
				return err
			}
			continue
		}

		hold := ""
		if deps := g.Predecessors(i); len(deps) > 0 {
			ids := make([]string, len(deps))
			for j, d := range deps {
				ids[j] = jobID(d)
			}
			hold = fmt.Sprintf(" --hold-on=%s", strings.Join(ids, ","))
		}

		if _, err := fmt.Fprintf(w, "submit --job-id=%s%s -- %s\n", jobID(i), hold, strings.Join(argv, " ")); err != nil {
			return err
		}
	}
	return nil
}

func allPathsExist(stage *digraph.Stage) bool {
	for _, p := range stage.Inputs {
		if _, err := os.Stat(p); err != nil {
			return false
		}
	}
	for _, p := range stage.Outputs {
		if _, err := os.Stat(p); err != nil {
			return false
		}
	}
	return true
}
