package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fluxdag/fluxdag/internal/batchexport"
	"github.com/fluxdag/fluxdag/internal/config"
	"github.com/fluxdag/fluxdag/internal/digraph"
	"github.com/fluxdag/fluxdag/internal/logger"
	"github.com/fluxdag/fluxdag/internal/pipelinespec"
)

var runFlags = []commandLineFlag{
	configFlag,
	coordinatorHostFlag,
	coordinatorPortFlag,
	urifileFlag,
	redisAddrFlag,
	pipelineNameFlag,
	checkpointPathFlag,
	queueFlag,
}

// CmdRun builds the `fluxdag run` command: the single-process driver. It
// starts an embedded coordinator for the given pipeline and, unless
// --num-exec=0, a local worker pool to execute it without any separately
// launched coordinator/worker processes. With --queue=script-only it
// instead renders a batch-submission script to stdout and exits without
// starting anything.
func CmdRun() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <pipeline.yaml> [flags]",
		Short: "Run a pipeline to completion, embedding coordinator and workers",
		Long: `Run drives a pipeline from a single process: it starts an embedded
coordinator and, by default, one local worker per --num-exec, executing
every stage without any separately launched coordinator or worker.

Flags:
  --num-exec int          local workers to fork (0 = coordinator-only; default 1)
  --queue string          pull (default) or script-only
  --use-ns                use the Redis name service instead of --urifile
  --urifile string        path the file registry reads/writes the address from
  --redis_addr string     Redis address, required when --use-ns is set
  --pipeline-name string  label for checkpoint lookup and log correlation

Exit code is 0 on full completion, nonzero if any stage failed.
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, args[0])
		},
	}
	cmd.Flags().Int("num-exec", 1, "local workers to fork; 0 means coordinator-only")
	initFlags(cmd, runFlags)
	initUseNsFlag(cmd)
	return cmd
}

func runPipeline(cmd *cobra.Command, pipelinePath string) error {
	cfg, err := loadConfig(cmd, runFlags)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if !logger.HasLogger(ctx) {
		ctx = logger.WithLogger(ctx, buildLogger(cfg))
	}

	if cfg.Queue == config.QueueScriptOnly {
		return runExport(pipelinePath, os.Stdout)
	}

	numExec, _ := cmd.Flags().GetInt("num-exec")

	svc, addr, cleanup, err := startCoordinator(ctx, cfg, pipelinePath)
	if err != nil {
		return err
	}
	defer cleanup()

	runCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		return svc.Start(gctx)
	})

	for i := 0; i < numExec; i++ {
		g.Go(func() error {
			return runOneWorker(gctx, addr, "127.0.0.1:0", cfg.WorkerConcurrency, cfg.WorkerLabels)
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("run: %w", err)
	}
	return nil
}

func runExport(pipelinePath string, w *os.File) error {
	stages, err := pipelinespec.Load(pipelinePath)
	if err != nil {
		return fmt.Errorf("load pipeline: %w", err)
	}

	g := digraph.NewGraph()
	if _, _, err := g.AddPipeline(stages); err != nil {
		return fmt.Errorf("build graph: %w", err)
	}
	if _, err := g.Initialize(); err != nil {
		return fmt.Errorf("initialize graph: %w", err)
	}

	return batchexport.Write(w, g)
}
