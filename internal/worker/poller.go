// Package worker implements the polling side of the coordinator/worker
// protocol: a Poller that repeatedly asks the coordinator for runnable
// stages and hands them to a TaskExecutor, reporting back completion or
// failure.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fluxdag/fluxdag/internal/backoff"
	"github.com/fluxdag/fluxdag/internal/coordinator"
	"github.com/fluxdag/fluxdag/internal/logger"
)

// TaskExecutor runs a dispatched stage. Implementations are expected to
// respect ctx cancellation for in-flight work.
type TaskExecutor interface {
	Execute(ctx context.Context, task *coordinator.Task) error
}

// NewWorkerID returns a fresh, URI-safe worker identifier.
func NewWorkerID() string {
	return uuid.NewString()
}

// Poller owns one worker's connection to a coordinator: it polls for work,
// up to concurrency stages in flight at once, and reports results.
type Poller struct {
	workerID    string
	client      coordinator.Client
	executor    TaskExecutor
	concurrency int
	labels      map[string]string
	policy      backoff.RetryPolicy
}

// NewPoller builds a Poller. concurrency <= 0 is treated as 1.
func NewPoller(workerID string, client coordinator.Client, executor TaskExecutor, concurrency int, labels map[string]string) *Poller {
	return &Poller{
		workerID:    workerID,
		client:      client,
		executor:    executor,
		concurrency: concurrency,
		labels:      labels,
		policy:      backoff.NewExponentialBackoffPolicy(defaultInitialRetryInterval),
	}
}

const defaultInitialRetryInterval = 200 * time.Millisecond

// GetState reports the poller's coordinator connection health, delegating
// directly to the underlying client's Metrics.
func (p *Poller) GetState() (isConnected bool, consecutiveFails int, lastError error) {
	m := p.client.Metrics()
	return m.IsConnected, m.ConsecutiveFails, m.LastError
}

// Run polls for and executes stages until ctx is done, waiting for any
// in-flight executions to finish (or observe ctx cancellation themselves)
// before returning.
func (p *Poller) Run(ctx context.Context) {
	slots := p.concurrency
	if slots <= 0 {
		slots = 1
	}
	sem := make(chan struct{}, slots)
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		case sem <- struct{}{}:
		}

		task, err := p.client.Poll(ctx, p.policy, &coordinator.PollRequest{WorkerID: p.workerID, Labels: p.labels})
		if err != nil {
			<-sem
			if ctx.Err() != nil {
				return
			}
			continue
		}
		if task == nil {
			<-sem
			if ctx.Err() != nil {
				return
			}
			continue
		}

		wg.Add(1)
		go func(t *coordinator.Task) {
			defer wg.Done()
			defer func() { <-sem }()
			p.runTask(ctx, t)
		}(task)
	}
}

func (p *Poller) runTask(ctx context.Context, task *coordinator.Task) {
	availMemoryGB, availCPUSlots := Capacity(ctx)
	if task.MemoryGB > availMemoryGB || task.CPUSlots > availCPUSlots {
		logger.Warn(ctx, "worker: under-resourced for stage, requeuing", "stage", task.Name,
			"need_memory_gb", task.MemoryGB, "have_memory_gb", availMemoryGB,
			"need_cpu_slots", task.CPUSlots, "have_cpu_slots", availCPUSlots)
		if err := p.client.Requeue(ctx, task.Index); err != nil {
			logger.Warn(ctx, "worker: failed to requeue under-resourced stage", "stage", task.Name, "err", err)
		}
		return
	}

	if err := p.client.ReportStarted(ctx, task.Index); err != nil {
		logger.Warn(ctx, "worker: failed to report stage started", "stage", task.Name, "err", err)
	}

	if err := p.executor.Execute(ctx, task); err != nil {
		logger.Error(ctx, "worker: stage execution failed", "stage", task.Name, "err", err)
		if rerr := p.client.ReportFailed(ctx, task.Index); rerr != nil {
			logger.Warn(ctx, "worker: failed to report stage failure", "stage", task.Name, "err", rerr)
		}
		return
	}

	if err := p.client.ReportFinished(ctx, task.Index); err != nil {
		logger.Warn(ctx, "worker: failed to report stage finished", "stage", task.Name, "err", err)
	}
}
