package coordinatorrpc

import (
	"context"

	"google.golang.org/grpc"
)

// workerServiceName is the reverse service a coordinator dials into a
// worker's own gRPC server to request an orderly shutdown
// (serverShutdownCall in spec §4.9).
const workerServiceName = "fluxdag.coordinator.v1.Worker"

// WorkerServer is implemented by the worker side: a small gRPC server each
// worker runs alongside its poll loop so the coordinator can reach it.
type WorkerServer interface {
	Shutdown(context.Context, *ShutdownRequest) (*ShutdownResponse, error)
}

// RegisterWorkerServer attaches srv to s under the worker service descriptor.
func RegisterWorkerServer(s grpc.ServiceRegistrar, srv WorkerServer) {
	s.RegisterService(&workerServiceDesc, srv)
}

func workerShutdownHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(ShutdownRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(WorkerServer).Shutdown(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + workerServiceName + "/Shutdown"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(WorkerServer).Shutdown(ctx, req.(*ShutdownRequest))
	}
	return interceptor(ctx, req, info, handler)
}

var workerServiceDesc = grpc.ServiceDesc{
	ServiceName: workerServiceName,
	HandlerType: (*WorkerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Shutdown", Handler: workerShutdownHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "worker.proto",
}

// WorkerClient is the coordinator-side view of the reverse protocol.
type WorkerClient interface {
	Shutdown(ctx context.Context, in *ShutdownRequest, opts ...grpc.CallOption) (*ShutdownResponse, error)
}

type workerClient struct {
	cc grpc.ClientConnInterface
}

// NewWorkerClient wraps cc (dialed by the coordinator back to a worker's
// listen address) as a WorkerClient.
func NewWorkerClient(cc grpc.ClientConnInterface) WorkerClient {
	return &workerClient{cc: cc}
}

func (c *workerClient) Shutdown(ctx context.Context, in *ShutdownRequest, opts ...grpc.CallOption) (*ShutdownResponse, error) {
	out := new(ShutdownResponse)
	if err := c.cc.Invoke(ctx, "/"+workerServiceName+"/Shutdown", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
