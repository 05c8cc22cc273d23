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
	"google.golang.org/grpc/credentials/insecure"

	"github.com/fluxdag/fluxdag/internal/coordinator"
	"github.com/fluxdag/fluxdag/internal/coordinatorrpc"
	"github.com/fluxdag/fluxdag/internal/logger"
	"github.com/fluxdag/fluxdag/internal/worker"
)

var workerFlags = []commandLineFlag{
	configFlag,
	urifileFlag,
	redisAddrFlag,
	pipelineNameFlag,
}

// CmdWorker builds the `fluxdag worker` command: it looks up a running
// coordinator's address via the configured registry backend, registers
// itself, and polls for runnable stages until the coordinator shuts it
// down or it is interrupted.
func CmdWorker() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker [flags]",
		Short: "Poll a coordinator for runnable stages and execute them",
		Long: `Start a worker: discovers the coordinator's address via the configured
registry, registers with it, and repeatedly polls for runnable stages,
spawning each as a local OS process.

Flags:
  --use-ns                 use the Redis name service instead of --urifile
  --urifile string         path the file registry reads the coordinator address from
  --redis_addr string      Redis address, required when --use-ns is set
  --pipeline-name string   which coordinator's address to look up

This process runs continuously in the foreground until the coordinator
reports the pipeline complete or it is interrupted.
`,
		RunE: runWorker,
	}
	cmd.Flags().String("listen", "127.0.0.1:0", "address this worker's own reverse-shutdown server listens on")
	cmd.Flags().Int("concurrency", 0, "stages to run concurrently (0 uses the configured default)")
	initFlags(cmd, workerFlags)
	initUseNsFlag(cmd)
	return cmd
}

func runWorker(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, workerFlags)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if !logger.HasLogger(ctx) {
		ctx = logger.WithLogger(ctx, buildLogger(cfg))
	}

	reg, closeRegistry, err := buildRegistry(cfg)
	if err != nil {
		return err
	}
	defer closeRegistry()

	coordinatorAddr, ok, err := reg.Lookup(ctx, cfg.PipelineName)
	if err != nil {
		return fmt.Errorf("look up coordinator address: %w", err)
	}
	if !ok {
		return fmt.Errorf("no coordinator registered for pipeline %q", cfg.PipelineName)
	}

	listenAddr, _ := cmd.Flags().GetString("listen")
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	if concurrency <= 0 {
		concurrency = cfg.WorkerConcurrency
	}

	runCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return runOneWorker(runCtx, coordinatorAddr, listenAddr, concurrency, cfg.WorkerLabels)
}

// runOneWorker registers a single worker against coordinatorAddr and polls
// it until ctx is done or the coordinator calls this worker's reverse
// shutdown RPC. Shared by the standalone `worker` command and the embedded
// local-worker pool `run` starts alongside its in-process coordinator.
func runOneWorker(ctx context.Context, coordinatorAddr, listenAddr string, concurrency int, staticLabels map[string]string) error {
	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddr, err)
	}
	workerURI := listener.Addr().String()

	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdownServer := grpc.NewServer()
	coordinatorrpc.RegisterWorkerServer(shutdownServer, worker.NewShutdownServer(cancel))
	go func() {
		_ = shutdownServer.Serve(listener)
	}()
	defer shutdownServer.GracefulStop()

	conn, err := grpc.NewClient(coordinatorAddr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(coordinatorrpc.CallOptions()...),
	)
	if err != nil {
		return fmt.Errorf("dial coordinator at %s: %w", coordinatorAddr, err)
	}
	defer conn.Close()

	client := coordinator.NewClient(conn, workerURI)
	workerID := worker.NewWorkerID()

	labels := worker.HostLabels(workerCtx)
	for k, v := range staticLabels {
		labels[k] = v
	}

	logger.Info(ctx, "worker starting", "id", workerID, "coordinator", coordinatorAddr, "uri", workerURI)
	poller := worker.NewPoller(workerID, client, worker.NewCommandExecutor(), concurrency, labels)
	poller.Run(workerCtx)
	logger.Info(ctx, "worker stopped", "id", workerID)
	return nil
}
