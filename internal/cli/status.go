package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/fluxdag/fluxdag/internal/checkpoint"
)

var statusFlags = []commandLineFlag{
	configFlag,
	pipelineNameFlag,
	checkpointPathFlag,
}

// CmdStatus builds the `fluxdag status` command: it reads the checkpoint
// store and renders every stage's last-known status as a table, without
// connecting to a running coordinator.
func CmdStatus() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status [flags]",
		Short: "Show stage statuses from the checkpoint store",
		Long: `Status reads the checkpoint database directly and prints every stage's
last recorded status. It does not contact a running coordinator, so it
reflects the state as of the last checkpoint write, not necessarily the
current moment.`,
		RunE: runStatus,
	}
	initFlags(cmd, statusFlags)
	return cmd
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, statusFlags)
	if err != nil {
		return err
	}

	store, err := checkpoint.Open(cfg.CheckpointPath, cfg.PipelineName)
	if err != nil {
		return fmt.Errorf("open checkpoint store: %w", err)
	}
	defer store.Close()

	pipelineName, rows, err := store.LoadStatus(context.Background())
	if err != nil {
		return fmt.Errorf("read checkpoint status: %w", err)
	}
	if len(rows) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "no checkpoint found for %q\n", cfg.PipelineName)
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "pipeline: %s\n", pipelineName)
	return renderStatusTable(cmd.OutOrStdout(), rows)
}

func renderStatusTable(w io.Writer, rows []checkpoint.StageRow) error {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"#", "Stage", "Status"})
	for _, r := range rows {
		t.AppendRow(table.Row{r.Index, r.Name, r.Status.String()})
	}
	t.Render()
	return nil
}
