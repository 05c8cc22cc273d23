package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// CmdExport builds the `fluxdag export` command: it renders a pipeline's
// DAG as batch-submission commands without starting a coordinator,
// equivalent to `fluxdag run --queue=script-only` but without the
// queue/config machinery that command otherwise loads.
func CmdExport() *cobra.Command {
	return &cobra.Command{
		Use:   "export <pipeline.yaml>",
		Short: "Render a pipeline as batch-submission commands",
		Long: `Export serializes the pipeline's DAG as a list of external
batch-submission commands with --hold-on dependency directives, skipping
stages whose outputs already exist. The coordinator never starts.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(args[0], os.Stdout)
		},
	}
}
