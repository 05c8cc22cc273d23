package coordinator

import (
	"context"
	"sync"

	"google.golang.org/grpc"

	"github.com/fluxdag/fluxdag/internal/backoff"
	"github.com/fluxdag/fluxdag/internal/coordinatorrpc"
)

// Task is the worker-facing view of a stage, carrying only what a worker
// needs to execute it: argv, log destination, and resource requirements.
type Task struct {
	Index    int
	Name     string
	Argv     []string
	LogPath  string
	MemoryGB float64
	CPUSlots int
}

// PollRequest identifies the polling worker to the coordinator.
type PollRequest struct {
	WorkerID string
	Labels   map[string]string
}

// Metrics reports a worker-side client's connection health, surfaced by
// Poller.GetState for status/health endpoints.
type Metrics struct {
	IsConnected      bool
	ConsecutiveFails int
	LastError        error
}

// Client is the worker-side view of the coordinator connection.
type Client interface {
	// Poll fetches the next runnable stage, retrying transient failures
	// according to policy until ctx is done. A nil task with a nil error
	// means the ready-queue was empty, not an error.
	Poll(ctx context.Context, policy backoff.RetryPolicy, req *PollRequest) (*Task, error)
	ReportStarted(ctx context.Context, index int) error
	ReportFinished(ctx context.Context, index int) error
	ReportFailed(ctx context.Context, index int) error
	Requeue(ctx context.Context, index int) error
	Metrics() Metrics
	Cleanup(ctx context.Context) error
}

// grpcClient implements Client over a real coordinatorrpc.CoordinatorClient.
type grpcClient struct {
	rpc coordinatorrpc.CoordinatorClient
	uri string

	registerOnce sync.Once
	registerErr  error

	mu               sync.Mutex
	isConnected      bool
	consecutiveFails int
	lastError        error
}

// NewClient wraps an already-dialed grpc connection as a Client. uri is the
// worker's own callback address, announced to the coordinator on Register.
func NewClient(cc grpc.ClientConnInterface, uri string) Client {
	return &grpcClient{rpc: coordinatorrpc.NewCoordinatorClient(cc), uri: uri, isConnected: true}
}

func (c *grpcClient) ensureRegistered(ctx context.Context) error {
	c.registerOnce.Do(func() {
		_, c.registerErr = c.rpc.Register(ctx, &coordinatorrpc.RegisterRequest{WorkerURI: c.uri})
	})
	return c.registerErr
}

func (c *grpcClient) Poll(ctx context.Context, policy backoff.RetryPolicy, req *PollRequest) (*Task, error) {
	retrier := backoff.NewRetrier(policy)
	for {
		task, err := c.pollOnce(ctx)
		c.updateState(err)
		if err == nil {
			return task, nil
		}
		if retryErr := retrier.Next(ctx, err); retryErr != nil {
			return nil, err
		}
	}
}

func (c *grpcClient) pollOnce(ctx context.Context) (*Task, error) {
	if err := c.ensureRegistered(ctx); err != nil {
		return nil, err
	}

	idxResp, err := c.rpc.GetRunnableStageIndex(ctx, &coordinatorrpc.GetRunnableStageIndexRequest{})
	if err != nil {
		return nil, err
	}
	if idxResp.None {
		return nil, nil
	}

	stageResp, err := c.rpc.GetStage(ctx, &coordinatorrpc.GetStageRequest{Index: idxResp.Index})
	if err != nil {
		return nil, err
	}

	return &Task{
		Index:    idxResp.Index,
		Name:     stageResp.Name,
		Argv:     stageResp.Argv,
		LogPath:  stageResp.LogPath,
		MemoryGB: stageResp.MemoryGB,
		CPUSlots: stageResp.CPUSlots,
	}, nil
}

func (c *grpcClient) ReportStarted(ctx context.Context, index int) error {
	_, err := c.rpc.SetStageStarted(ctx, &coordinatorrpc.SetStageStartedRequest{Index: index, WorkerURI: c.uri})
	return err
}

func (c *grpcClient) ReportFinished(ctx context.Context, index int) error {
	_, err := c.rpc.SetStageFinished(ctx, &coordinatorrpc.SetStageFinishedRequest{Index: index})
	return err
}

func (c *grpcClient) ReportFailed(ctx context.Context, index int) error {
	_, err := c.rpc.SetStageFailed(ctx, &coordinatorrpc.SetStageFailedRequest{Index: index})
	return err
}

func (c *grpcClient) Requeue(ctx context.Context, index int) error {
	_, err := c.rpc.Requeue(ctx, &coordinatorrpc.RequeueRequest{Index: index})
	return err
}

func (c *grpcClient) Metrics() Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Metrics{IsConnected: c.isConnected, ConsecutiveFails: c.consecutiveFails, LastError: c.lastError}
}

func (c *grpcClient) Cleanup(_ context.Context) error {
	return nil
}

func (c *grpcClient) updateState(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.isConnected = false
		c.consecutiveFails++
		c.lastError = err
		return
	}
	c.isConnected = true
	c.consecutiveFails = 0
	c.lastError = nil
}
