// Package coordinatorrpc defines the wire messages and gRPC service
// descriptors for the coordinator/worker protocol (spec §4.9). Real protoc
// codegen is not available in this build environment, so the messages are
// plain JSON-tagged Go structs carried over google.golang.org/grpc via a
// hand-registered JSON codec (see codec.go) instead of the protobuf wire
// format — the transport, server and client are the real grpc library, only
// the marshaling differs from a protoc-generated client.
package coordinatorrpc

// RegisterRequest announces a worker to the coordinator.
type RegisterRequest struct {
	WorkerURI string `json:"worker_uri"`
}

// RegisterResponse acknowledges registration.
type RegisterResponse struct{}

// GetRunnableStageIndexRequest asks for the next dispatchable stage.
type GetRunnableStageIndexRequest struct{}

// GetRunnableStageIndexResponse carries the dispatched index, or None=true
// if the ready-queue was empty.
type GetRunnableStageIndexResponse struct {
	Index int  `json:"index"`
	None  bool `json:"none"`
}

// GetStageRequest asks for a stage's descriptor by index.
type GetStageRequest struct {
	Index int `json:"index"`
}

// GetStageResponse is the stage descriptor a worker needs to execute a stage:
// argv, log path and resource requirements. It intentionally excludes
// internal scheduler bookkeeping (status, identity hash).
type GetStageResponse struct {
	Name     string   `json:"name"`
	Argv     []string `json:"argv"`
	LogPath  string   `json:"log_path"`
	MemoryGB float64  `json:"memory_gb"`
	CPUSlots int      `json:"cpu_slots"`
}

// SetStageStartedRequest logs that worker_uri began running index.
type SetStageStartedRequest struct {
	Index     int    `json:"index"`
	WorkerURI string `json:"worker_uri"`
}

// SetStageStartedResponse is empty; this RPC is logging-only server-side.
type SetStageStartedResponse struct{}

// SetStageFinishedRequest reports successful completion of index.
type SetStageFinishedRequest struct {
	Index int `json:"index"`
}

// SetStageFinishedResponse is empty.
type SetStageFinishedResponse struct{}

// SetStageFailedRequest reports that index's command exited nonzero or failed to spawn.
type SetStageFailedRequest struct {
	Index int `json:"index"`
}

// SetStageFailedResponse is empty.
type SetStageFailedResponse struct{}

// RequeueRequest asks the coordinator to return index to the ready-queue
// because the requesting worker could not host it.
type RequeueRequest struct {
	Index int `json:"index"`
}

// RequeueResponse is empty.
type RequeueResponse struct{}

// ContinueLoopRequest asks whether the worker should keep polling.
type ContinueLoopRequest struct{}

// ContinueLoopResponse reports whether any stage remains unprocessed. False
// is latching: once returned, the coordinator will not redispatch.
type ContinueLoopResponse struct {
	Continue bool `json:"continue"`
}

// ShutdownRequest is sent by the coordinator to a worker's own gRPC server
// (serverShutdownCall in spec §4.9) to tell it to exit its poll loop.
type ShutdownRequest struct {
	Reason string `json:"reason"`
}

// ShutdownResponse is empty.
type ShutdownResponse struct{}
