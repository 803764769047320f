package master

import (
	"context"

	"github.com/parth-2005/os-project/pkg/types"
)

// WorkerRegistry manages worker registration and liveness state. It is the
// only shared mutable state in the coordinator; every operation is atomic,
// and callers only ever see snapshots, never internal storage.
type WorkerRegistry interface {
	// Register upserts a worker by its (host, port) pair. Re-registering an
	// existing pair refreshes its timestamps and restores it to alive
	// without creating a duplicate.
	Register(host string, port int) (types.WorkerID, error)

	// ListAlive returns a snapshot of alive workers in registration order,
	// which keeps partitioning deterministic.
	ListAlive() []*types.WorkerInfo

	// ListAll returns a snapshot of every registered worker.
	ListAll() []*types.WorkerInfo

	// MarkUnreachable flips a worker to the unreachable state.
	MarkUnreachable(id types.WorkerID) error

	// Evict removes a worker. Eviction is final for the registry instance;
	// the worker must re-register to participate again.
	Evict(id types.WorkerID) error

	// Count returns the number of registered workers.
	Count() int
}

// LivenessProber verifies that a worker is still reachable.
type LivenessProber interface {
	// Probe performs a lightweight liveness call against the worker.
	Probe(ctx context.Context, worker *types.WorkerInfo) types.WorkerState
}
