// Package coordinator hosts the dispatch authority for a single pipeline
// run: one digraph.Graph and one scheduler.Scheduler, mutated exclusively
// from one goroutine via a command channel, exposed to workers over gRPC
// through Handler.
package coordinator

import (
	"context"
	"net"
	"sync"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/fluxdag/fluxdag/internal/coordinatorrpc"
	"github.com/fluxdag/fluxdag/internal/digraph"
	"github.com/fluxdag/fluxdag/internal/digraph/scheduler"
	"github.com/fluxdag/fluxdag/internal/logger"
)

// CheckpointSaver persists scheduler state after every state transition, so
// a crash can Reconcile from the last save instead of from scratch. Callers
// that don't need persistence (tests, one-shot runs) may pass a nil saver.
type CheckpointSaver interface {
	Save(ctx context.Context, g *digraph.Graph, s *scheduler.Scheduler) error
}

// Service owns a Graph+Scheduler pair for the lifetime of one pipeline run
// and serves it to workers over grpcServer.
type Service struct {
	id   string
	host string

	graph *digraph.Graph
	sched *scheduler.Scheduler

	commands      chan func()
	runningWorker map[int]string

	saver CheckpointSaver

	grpcServer   *grpc.Server
	listener     net.Listener
	healthServer *health.Server

	mu      sync.Mutex
	stopped bool
	cancel  context.CancelFunc
}

// NewService wires handler to grpcServer and returns a Service that, once
// Start is called, drives g's scheduler from a single goroutine and serves
// it over listener.
func NewService(
	g *digraph.Graph,
	grpcServer *grpc.Server,
	handler *Handler,
	listener net.Listener,
	healthServer *health.Server,
	saver CheckpointSaver,
	instanceID string,
	host string,
) *Service {
	s := &Service{
		id:            instanceID,
		host:          host,
		graph:         g,
		sched:         scheduler.New(g),
		commands:      make(chan func(), 64),
		runningWorker: make(map[int]string),
		saver:         saver,
		grpcServer:    grpcServer,
		listener:      listener,
		healthServer:  healthServer,
	}
	handler.service = s

	coordinatorrpc.RegisterCoordinatorServer(grpcServer, handler)
	if healthServer != nil {
		grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	}
	return s
}

// Resume replaces the service's scheduler with one already reconciled from
// a checkpoint (checkpoint.Store.Load), so the processed-set and
// ready-queue reflect the prior run instead of the fresh state NewService
// seeded from g. Must be called before Start; not safe for concurrent use
// with in-flight RPCs.
func (s *Service) Resume(sched *scheduler.Scheduler) {
	s.sched = sched
}

// submit runs fn on the owning goroutine and blocks until it completes.
func (s *Service) submit(fn func()) {
	done := make(chan struct{})
	s.commands <- func() {
		fn()
		close(done)
	}
	<-done
}

func (s *Service) checkpoint() error {
	if s.saver == nil {
		return nil
	}
	return s.saver.Save(context.Background(), s.graph, s.sched)
}

// Start runs the command loop and the gRPC server under an errgroup: if
// either exits, the other is torn down too.
func (s *Service) Start(ctx context.Context) error {
	logger.Info(ctx, "coordinator starting", "id", s.id, "addr", s.listener.Addr().String())

	if s.healthServer != nil {
		s.healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	}

	g, gctx := errgroup.WithContext(ctx)
	gctx, cancel := context.WithCancel(gctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	g.Go(func() error {
		s.runCommands(gctx)
		return nil
	})
	g.Go(func() error {
		return s.grpcServer.Serve(s.listener)
	})
	g.Go(func() error {
		<-gctx.Done()
		s.grpcServer.GracefulStop()
		return nil
	})

	return g.Wait()
}

func (s *Service) runCommands(ctx context.Context) {
	for {
		select {
		case fn := <-s.commands:
			fn()
		case <-ctx.Done():
			return
		}
	}
}

// Stop gracefully stops the gRPC server and the command loop. Safe to call
// more than once.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	cancel := s.cancel
	s.mu.Unlock()

	logger.Info(ctx, "coordinator stopping", "id", s.id)
	if s.healthServer != nil {
		s.healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	}
	s.grpcServer.GracefulStop()
	if cancel != nil {
		cancel()
	}
	return nil
}

// shutdownOnCompletion implements termination (spec §4.11): every
// registered worker is told to stop polling, then the coordinator itself
// stops serving and exits its command loop.
func (s *Service) shutdownOnCompletion(clients []string) {
	ctx := context.Background()
	logger.Info(ctx, "coordinator: pipeline complete, shutting down", "id", s.id, "workers", len(clients))
	s.broadcastShutdown(ctx, clients, "pipeline complete")
	_ = s.Stop(ctx)
}

// broadcastShutdown calls the reverse Shutdown RPC on every worker URI,
// best-effort: a worker that has already exited is simply skipped.
func (s *Service) broadcastShutdown(ctx context.Context, workerURIs []string, reason string) {
	for _, uri := range workerURIs {
		conn, err := grpc.NewClient(uri,
			grpc.WithTransportCredentials(insecure.NewCredentials()),
			grpc.WithDefaultCallOptions(coordinatorrpc.CallOptions()...),
		)
		if err != nil {
			logger.Warn(ctx, "coordinator: could not dial worker for shutdown", "worker", uri, "err", err)
			continue
		}
		client := coordinatorrpc.NewWorkerClient(conn)
		if _, err := client.Shutdown(ctx, &coordinatorrpc.ShutdownRequest{Reason: reason}); err != nil {
			logger.Warn(ctx, "coordinator: shutdown call failed", "worker", uri, "err", err)
		}
		_ = conn.Close()
	}
}
