package worker

import (
	"context"

	"github.com/fluxdag/fluxdag/internal/coordinatorrpc"
)

// ShutdownServer implements coordinatorrpc.WorkerServer: the reverse RPC the
// coordinator calls once every stage is processed (serverShutdownCall),
// telling this worker to stop polling. Each worker process runs one
// alongside its Poller, on the same gRPC server it advertises as its URI.
type ShutdownServer struct {
	cancel context.CancelFunc
}

// NewShutdownServer returns a ShutdownServer that calls cancel when the
// coordinator requests shutdown.
func NewShutdownServer(cancel context.CancelFunc) *ShutdownServer {
	return &ShutdownServer{cancel: cancel}
}

// Shutdown cancels the worker's run context, unblocking Poller.Run.
func (s *ShutdownServer) Shutdown(_ context.Context, _ *coordinatorrpc.ShutdownRequest) (*coordinatorrpc.ShutdownResponse, error) {
	s.cancel()
	return &coordinatorrpc.ShutdownResponse{}, nil
}
