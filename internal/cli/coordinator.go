package cli

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"

	"github.com/fluxdag/fluxdag/internal/checkpoint"
	"github.com/fluxdag/fluxdag/internal/config"
	"github.com/fluxdag/fluxdag/internal/coordinator"
	"github.com/fluxdag/fluxdag/internal/digraph"
	"github.com/fluxdag/fluxdag/internal/digraph/scheduler"
	"github.com/fluxdag/fluxdag/internal/logger"
	"github.com/fluxdag/fluxdag/internal/pipelinespec"
)

var coordinatorFlags = []commandLineFlag{
	configFlag,
	coordinatorHostFlag,
	coordinatorPortFlag,
	urifileFlag,
	redisAddrFlag,
	pipelineNameFlag,
	checkpointPathFlag,
}

// CmdCoordinator builds the `fluxdag coordinator` command: it loads a
// pipeline definition, resumes or builds its graph, and serves the
// scheduler to remote workers over gRPC until terminated.
func CmdCoordinator() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "coordinator <pipeline.yaml> [flags]",
		Short: "Start the coordinator gRPC server for a pipeline run",
		Long: `Launch the coordinator gRPC server that drives one pipeline's scheduler
and serves its ready-queue to remote workers.

Flags:
  --coordinator.host string   gRPC listen host (default: localhost)
  --coordinator.port int      gRPC listen port (default: 8585)
  --use-ns                    use the Redis name service instead of --urifile
  --urifile string            path the file registry reads/writes the address from
  --redis_addr string         Redis address, required when --use-ns is set
  --pipeline-name string      pipeline name, used for checkpoint lookup

This process runs continuously in the foreground until terminated.
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCoordinator(cmd, args[0])
		},
	}
	initFlags(cmd, coordinatorFlags)
	initUseNsFlag(cmd)
	return cmd
}

func runCoordinator(cmd *cobra.Command, pipelinePath string) error {
	cfg, err := loadConfig(cmd, coordinatorFlags)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if !logger.HasLogger(ctx) {
		ctx = logger.WithLogger(ctx, buildLogger(cfg))
	}

	svc, addr, cleanup, err := startCoordinator(ctx, cfg, pipelinePath)
	if err != nil {
		return err
	}
	defer cleanup()

	runCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info(runCtx, "coordinator listening", "addr", addr)
	if err := svc.Start(runCtx); err != nil {
		return fmt.Errorf("coordinator: %w", err)
	}
	return svc.Stop(ctx)
}

// startCoordinator loads pipelinePath, resumes or builds its graph from
// cfg's checkpoint store, and wires a coordinator.Service plus registry
// registration for it. It does not call Start; the caller decides whether
// to run it standalone (CmdCoordinator) or alongside embedded local
// workers (CmdRun).
func startCoordinator(ctx context.Context, cfg *config.Config, pipelinePath string) (*coordinator.Service, string, func(), error) {
	stages, err := pipelinespec.Load(pipelinePath)
	if err != nil {
		return nil, "", nil, fmt.Errorf("load pipeline: %w", err)
	}

	store, err := checkpoint.Open(cfg.CheckpointPath, cfg.PipelineName)
	if err != nil {
		return nil, "", nil, fmt.Errorf("open checkpoint store: %w", err)
	}

	graph, sched, err := resumeOrBuild(ctx, store, stages)
	if err != nil {
		store.Close()
		return nil, "", nil, err
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	instanceID := fmt.Sprintf("%s@%d", hostname, cfg.CoordinatorPort)

	addr := fmt.Sprintf("%s:%d", cfg.CoordinatorHost, cfg.CoordinatorPort)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		store.Close()
		return nil, "", nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	handler := coordinator.NewHandler()
	svc := coordinator.NewService(graph, grpcServer, handler, listener, healthServer, store, instanceID, cfg.CoordinatorHost)
	svc.Resume(sched)

	reg, closeRegistry, err := buildRegistry(cfg)
	if err != nil {
		store.Close()
		return nil, "", nil, err
	}
	if err := reg.Register(ctx, cfg.PipelineName, addr); err != nil {
		logger.Warn(ctx, "coordinator: failed to register address", "err", err)
	}

	cleanup := func() {
		_ = reg.Unregister(context.Background(), cfg.PipelineName)
		_ = closeRegistry()
		store.Close()
	}

	return svc, addr, cleanup, nil
}

// resumeOrBuild loads a prior checkpoint if one exists; otherwise it builds
// a fresh graph from stages and applies the warm-start skip rule (§4.7)
// against the current filesystem state.
func resumeOrBuild(ctx context.Context, store *checkpoint.Store, stages []digraph.Stage) (*digraph.Graph, *scheduler.Scheduler, error) {
	g, sched, err := store.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load checkpoint: %w", err)
	}
	if g != nil {
		return g, sched, nil
	}

	g = digraph.NewGraph()
	if _, _, err := g.AddPipeline(stages); err != nil {
		return nil, nil, fmt.Errorf("build graph: %w", err)
	}
	if _, err := g.Initialize(); err != nil {
		return nil, nil, fmt.Errorf("initialize graph: %w", err)
	}

	sched = scheduler.New(g)
	if _, err := sched.SkipCompleted(fileExists); err != nil {
		return nil, nil, fmt.Errorf("warm-start skip: %w", err)
	}
	return g, sched, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
