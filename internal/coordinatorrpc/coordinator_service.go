package coordinatorrpc

import (
	"context"

	"google.golang.org/grpc"
)

// coordinatorServiceName is the fully-qualified gRPC service name a
// protoc-generated coordinator.proto would have produced.
const coordinatorServiceName = "fluxdag.coordinator.v1.Coordinator"

// CoordinatorServer is implemented by the coordinator side of the protocol
// (see internal/coordinator.Handler).
type CoordinatorServer interface {
	Register(context.Context, *RegisterRequest) (*RegisterResponse, error)
	GetRunnableStageIndex(context.Context, *GetRunnableStageIndexRequest) (*GetRunnableStageIndexResponse, error)
	GetStage(context.Context, *GetStageRequest) (*GetStageResponse, error)
	SetStageStarted(context.Context, *SetStageStartedRequest) (*SetStageStartedResponse, error)
	SetStageFinished(context.Context, *SetStageFinishedRequest) (*SetStageFinishedResponse, error)
	SetStageFailed(context.Context, *SetStageFailedRequest) (*SetStageFailedResponse, error)
	Requeue(context.Context, *RequeueRequest) (*RequeueResponse, error)
	ContinueLoop(context.Context, *ContinueLoopRequest) (*ContinueLoopResponse, error)
}

// RegisterCoordinatorServer attaches srv to s under the coordinator service descriptor.
func RegisterCoordinatorServer(s grpc.ServiceRegistrar, srv CoordinatorServer) {
	s.RegisterService(&coordinatorServiceDesc, srv)
}

func coordinatorHandler(methodName string, srv any, ctx context.Context, dec func(any) error) (any, error) {
	switch methodName {
	case "Register":
		req := new(RegisterRequest)
		if err := dec(req); err != nil {
			return nil, err
		}
		return srv.(CoordinatorServer).Register(ctx, req)
	case "GetRunnableStageIndex":
		req := new(GetRunnableStageIndexRequest)
		if err := dec(req); err != nil {
			return nil, err
		}
		return srv.(CoordinatorServer).GetRunnableStageIndex(ctx, req)
	case "GetStage":
		req := new(GetStageRequest)
		if err := dec(req); err != nil {
			return nil, err
		}
		return srv.(CoordinatorServer).GetStage(ctx, req)
	case "SetStageStarted":
		req := new(SetStageStartedRequest)
		if err := dec(req); err != nil {
			return nil, err
		}
		return srv.(CoordinatorServer).SetStageStarted(ctx, req)
	case "SetStageFinished":
		req := new(SetStageFinishedRequest)
		if err := dec(req); err != nil {
			return nil, err
		}
		return srv.(CoordinatorServer).SetStageFinished(ctx, req)
	case "SetStageFailed":
		req := new(SetStageFailedRequest)
		if err := dec(req); err != nil {
			return nil, err
		}
		return srv.(CoordinatorServer).SetStageFailed(ctx, req)
	case "Requeue":
		req := new(RequeueRequest)
		if err := dec(req); err != nil {
			return nil, err
		}
		return srv.(CoordinatorServer).Requeue(ctx, req)
	case "ContinueLoop":
		req := new(ContinueLoopRequest)
		if err := dec(req); err != nil {
			return nil, err
		}
		return srv.(CoordinatorServer).ContinueLoop(ctx, req)
	default:
		panic("coordinatorrpc: unknown method " + methodName)
	}
}

func newUnaryHandler(methodName string) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		if interceptor == nil {
			return coordinatorHandler(methodName, srv, ctx, dec)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + coordinatorServiceName + "/" + methodName}
		handler := func(ctx context.Context, req any) (any, error) {
			return coordinatorHandlerFromReq(methodName, srv, ctx, req)
		}
		decoded, err := decodeForInterceptor(methodName, dec)
		if err != nil {
			return nil, err
		}
		return interceptor(ctx, decoded, info, handler)
	}
}

func decodeForInterceptor(methodName string, dec func(any) error) (any, error) {
	req := newRequest(methodName)
	if err := dec(req); err != nil {
		return nil, err
	}
	return req, nil
}

func newRequest(methodName string) any {
	switch methodName {
	case "Register":
		return new(RegisterRequest)
	case "GetRunnableStageIndex":
		return new(GetRunnableStageIndexRequest)
	case "GetStage":
		return new(GetStageRequest)
	case "SetStageStarted":
		return new(SetStageStartedRequest)
	case "SetStageFinished":
		return new(SetStageFinishedRequest)
	case "SetStageFailed":
		return new(SetStageFailedRequest)
	case "Requeue":
		return new(RequeueRequest)
	case "ContinueLoop":
		return new(ContinueLoopRequest)
	default:
		panic("coordinatorrpc: unknown method " + methodName)
	}
}

func coordinatorHandlerFromReq(methodName string, srv any, ctx context.Context, req any) (any, error) {
	s := srv.(CoordinatorServer)
	switch methodName {
	case "Register":
		return s.Register(ctx, req.(*RegisterRequest))
	case "GetRunnableStageIndex":
		return s.GetRunnableStageIndex(ctx, req.(*GetRunnableStageIndexRequest))
	case "GetStage":
		return s.GetStage(ctx, req.(*GetStageRequest))
	case "SetStageStarted":
		return s.SetStageStarted(ctx, req.(*SetStageStartedRequest))
	case "SetStageFinished":
		return s.SetStageFinished(ctx, req.(*SetStageFinishedRequest))
	case "SetStageFailed":
		return s.SetStageFailed(ctx, req.(*SetStageFailedRequest))
	case "Requeue":
		return s.Requeue(ctx, req.(*RequeueRequest))
	case "ContinueLoop":
		return s.ContinueLoop(ctx, req.(*ContinueLoopRequest))
	default:
		panic("coordinatorrpc: unknown method " + methodName)
	}
}

var coordinatorMethodNames = []string{
	"Register", "GetRunnableStageIndex", "GetStage", "SetStageStarted",
	"SetStageFinished", "SetStageFailed", "Requeue", "ContinueLoop",
}

var coordinatorServiceDesc = func() grpc.ServiceDesc {
	methods := make([]grpc.MethodDesc, len(coordinatorMethodNames))
	for i, name := range coordinatorMethodNames {
		name := name
		methods[i] = grpc.MethodDesc{MethodName: name, Handler: newUnaryHandler(name)}
	}
	return grpc.ServiceDesc{
		ServiceName: coordinatorServiceName,
		HandlerType: (*CoordinatorServer)(nil),
		Methods:     methods,
		Streams:     []grpc.StreamDesc{},
		Metadata:    "coordinator.proto",
	}
}()

// CoordinatorClient is the worker-side view of the protocol.
type CoordinatorClient interface {
	Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*RegisterResponse, error)
	GetRunnableStageIndex(ctx context.Context, in *GetRunnableStageIndexRequest, opts ...grpc.CallOption) (*GetRunnableStageIndexResponse, error)
	GetStage(ctx context.Context, in *GetStageRequest, opts ...grpc.CallOption) (*GetStageResponse, error)
	SetStageStarted(ctx context.Context, in *SetStageStartedRequest, opts ...grpc.CallOption) (*SetStageStartedResponse, error)
	SetStageFinished(ctx context.Context, in *SetStageFinishedRequest, opts ...grpc.CallOption) (*SetStageFinishedResponse, error)
	SetStageFailed(ctx context.Context, in *SetStageFailedRequest, opts ...grpc.CallOption) (*SetStageFailedResponse, error)
	Requeue(ctx context.Context, in *RequeueRequest, opts ...grpc.CallOption) (*RequeueResponse, error)
	ContinueLoop(ctx context.Context, in *ContinueLoopRequest, opts ...grpc.CallOption) (*ContinueLoopResponse, error)
}

type coordinatorClient struct {
	cc grpc.ClientConnInterface
}

// NewCoordinatorClient wraps cc (typically from grpc.NewClient) as a CoordinatorClient.
func NewCoordinatorClient(cc grpc.ClientConnInterface) CoordinatorClient {
	return &coordinatorClient{cc: cc}
}

func (c *coordinatorClient) invoke(ctx context.Context, method string, in, out any, opts ...grpc.CallOption) error {
	return c.cc.Invoke(ctx, "/"+coordinatorServiceName+"/"+method, in, out, opts...)
}

func (c *coordinatorClient) Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*RegisterResponse, error) {
	out := new(RegisterResponse)
	if err := c.invoke(ctx, "Register", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *coordinatorClient) GetRunnableStageIndex(ctx context.Context, in *GetRunnableStageIndexRequest, opts ...grpc.CallOption) (*GetRunnableStageIndexResponse, error) {
	out := new(GetRunnableStageIndexResponse)
	if err := c.invoke(ctx, "GetRunnableStageIndex", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *coordinatorClient) GetStage(ctx context.Context, in *GetStageRequest, opts ...grpc.CallOption) (*GetStageResponse, error) {
	out := new(GetStageResponse)
	if err := c.invoke(ctx, "GetStage", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *coordinatorClient) SetStageStarted(ctx context.Context, in *SetStageStartedRequest, opts ...grpc.CallOption) (*SetStageStartedResponse, error) {
	out := new(SetStageStartedResponse)
	if err := c.invoke(ctx, "SetStageStarted", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *coordinatorClient) SetStageFinished(ctx context.Context, in *SetStageFinishedRequest, opts ...grpc.CallOption) (*SetStageFinishedResponse, error) {
	out := new(SetStageFinishedResponse)
	if err := c.invoke(ctx, "SetStageFinished", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *coordinatorClient) SetStageFailed(ctx context.Context, in *SetStageFailedRequest, opts ...grpc.CallOption) (*SetStageFailedResponse, error) {
	out := new(SetStageFailedResponse)
	if err := c.invoke(ctx, "SetStageFailed", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *coordinatorClient) Requeue(ctx context.Context, in *RequeueRequest, opts ...grpc.CallOption) (*RequeueResponse, error) {
	out := new(RequeueResponse)
	if err := c.invoke(ctx, "Requeue", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *coordinatorClient) ContinueLoop(ctx context.Context, in *ContinueLoopRequest, opts ...grpc.CallOption) (*ContinueLoopResponse, error) {
	out := new(ContinueLoopResponse)
	if err := c.invoke(ctx, "ContinueLoop", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// CallOptions returns the CallOption that selects the JSON content-subtype
// for this protocol; pass to grpc.NewClient via grpc.WithDefaultCallOptions.
func CallOptions() []grpc.CallOption {
	return []grpc.CallOption{grpc.CallContentSubtype(codecName)}
}
