package coordinator

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/fluxdag/fluxdag/internal/coordinatorrpc"
	"github.com/fluxdag/fluxdag/internal/digraph/scheduler"
)

// Handler implements coordinatorrpc.CoordinatorServer by translating each RPC
// into a closure submitted to its owning Service's single command-processing
// goroutine, so the scheduler and graph are only ever touched from one place.
type Handler struct {
	service *Service
}

// NewHandler returns an unbound Handler; NewService attaches it to a Service
// before registering it on a grpc.Server, mirroring the two-step
// handler/service construction the coordinator command uses.
func NewHandler() *Handler {
	return &Handler{}
}

func mapSchedulerErr(err error) error {
	switch {
	case err == nil:
		return nil
	case err == scheduler.ErrUnknownIndex:
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func (h *Handler) Register(_ context.Context, req *coordinatorrpc.RegisterRequest) (*coordinatorrpc.RegisterResponse, error) {
	h.service.submit(func() {
		h.service.sched.RegisterClient(req.WorkerURI)
	})
	return &coordinatorrpc.RegisterResponse{}, nil
}

func (h *Handler) GetRunnableStageIndex(_ context.Context, _ *coordinatorrpc.GetRunnableStageIndexRequest) (*coordinatorrpc.GetRunnableStageIndexResponse, error) {
	var idx int
	var ok bool
	h.service.submit(func() {
		idx, ok = h.service.sched.NextRunnable()
	})
	return &coordinatorrpc.GetRunnableStageIndexResponse{Index: idx, None: !ok}, nil
}

func (h *Handler) GetStage(_ context.Context, req *coordinatorrpc.GetStageRequest) (*coordinatorrpc.GetStageResponse, error) {
	var resp *coordinatorrpc.GetStageResponse
	var rpcErr error
	h.service.submit(func() {
		if req.Index < 0 || req.Index >= h.service.graph.Len() {
			rpcErr = status.Errorf(codes.InvalidArgument, "unknown stage index %d", req.Index)
			return
		}
		st := h.service.graph.Stage(req.Index)
		resp = &coordinatorrpc.GetStageResponse{
			Name:     st.Name,
			Argv:     st.Argv(),
			LogPath:  st.LogPath,
			MemoryGB: st.MemoryGB,
			CPUSlots: st.CPUSlots,
		}
	})
	return resp, rpcErr
}

func (h *Handler) SetStageStarted(_ context.Context, req *coordinatorrpc.SetStageStartedRequest) (*coordinatorrpc.SetStageStartedResponse, error) {
	h.service.submit(func() {
		h.service.runningWorker[req.Index] = req.WorkerURI
	})
	return &coordinatorrpc.SetStageStartedResponse{}, nil
}

func (h *Handler) SetStageFinished(_ context.Context, req *coordinatorrpc.SetStageFinishedRequest) (*coordinatorrpc.SetStageFinishedResponse, error) {
	var finishErr error
	var clients []string
	var done bool
	h.service.submit(func() {
		finishErr = h.service.sched.Finish(req.Index, h.service.checkpoint)
		delete(h.service.runningWorker, req.Index)
		if finishErr == nil && h.service.sched.Done() {
			done = true
			clients = append(clients, h.service.sched.Clients()...)
		}
	})
	if finishErr != nil {
		return nil, mapSchedulerErr(finishErr)
	}
	if done {
		go h.service.shutdownOnCompletion(clients)
	}
	return &coordinatorrpc.SetStageFinishedResponse{}, nil
}

func (h *Handler) SetStageFailed(_ context.Context, req *coordinatorrpc.SetStageFailedRequest) (*coordinatorrpc.SetStageFailedResponse, error) {
	var failErr error
	var clients []string
	var done bool
	h.service.submit(func() {
		_, failErr = h.service.sched.Fail(req.Index)
		delete(h.service.runningWorker, req.Index)
		if failErr == nil && h.service.sched.Done() {
			done = true
			clients = append(clients, h.service.sched.Clients()...)
		}
	})
	if failErr != nil {
		return nil, mapSchedulerErr(failErr)
	}
	if done {
		go h.service.shutdownOnCompletion(clients)
	}
	return &coordinatorrpc.SetStageFailedResponse{}, nil
}

func (h *Handler) Requeue(_ context.Context, req *coordinatorrpc.RequeueRequest) (*coordinatorrpc.RequeueResponse, error) {
	var err error
	h.service.submit(func() {
		err = h.service.sched.Requeue(req.Index)
		delete(h.service.runningWorker, req.Index)
	})
	if err != nil {
		return nil, mapSchedulerErr(err)
	}
	return &coordinatorrpc.RequeueResponse{}, nil
}

func (h *Handler) ContinueLoop(_ context.Context, _ *coordinatorrpc.ContinueLoopRequest) (*coordinatorrpc.ContinueLoopResponse, error) {
	var done bool
	h.service.submit(func() {
		done = h.service.sched.Done()
	})
	return &coordinatorrpc.ContinueLoopResponse{Continue: !done}, nil
}
