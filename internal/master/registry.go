package master

import (
	"fmt"
	"sync"
	"time"

	"github.com/parth-2005/os-project/pkg/types"
)

// InMemoryWorkerRegistry implements WorkerRegistry using in-memory storage.
// The registry is rebuilt from scratch on coordinator restart; nothing is
// persisted.
type InMemoryWorkerRegistry struct {
	workers map[types.WorkerID]*types.WorkerInfo
	order   []types.WorkerID // registration order, stable across upserts
	max     int

	mu sync.RWMutex
}

// NewInMemoryWorkerRegistry creates a registry capped at max workers. A
// non-positive max means unbounded.
func NewInMemoryWorkerRegistry(max int) *InMemoryWorkerRegistry {
	return &InMemoryWorkerRegistry{
		workers: make(map[types.WorkerID]*types.WorkerInfo),
		max:     max,
	}
}

// Register upserts a worker by its (host, port) pair.
func (r *InMemoryWorkerRegistry) Register(host string, port int) (types.WorkerID, error) {
	if host == "" {
		return "", fmt.Errorf("%w: empty host", ErrInvalidAddress)
	}
	if port <= 0 || port > 65535 {
		return "", fmt.Errorf("%w: port %d out of range", ErrInvalidAddress, port)
	}

	id := types.NewWorkerID(host, port)
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.workers[id]; ok {
		// Idempotent re-registration: refresh timestamps, restore liveness,
		// keep the original position in registration order.
		existing.LastSeen = now
		existing.RegisteredAt = now
		existing.State = types.WorkerStateAlive
		return id, nil
	}

	if r.max > 0 && len(r.workers) >= r.max {
		return "", fmt.Errorf("%w: limit %d", ErrRegistryFull, r.max)
	}

	r.workers[id] = &types.WorkerInfo{
		ID:           id,
		Host:         host,
		Port:         port,
		State:        types.WorkerStateAlive,
		RegisteredAt: now,
		LastSeen:     now,
	}
	r.order = append(r.order, id)

	return id, nil
}

// ListAlive returns a snapshot of alive workers in registration order.
func (r *InMemoryWorkerRegistry) ListAlive() []*types.WorkerInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*types.WorkerInfo, 0, len(r.order))
	for _, id := range r.order {
		w, ok := r.workers[id]
		if !ok || w.State != types.WorkerStateAlive {
			continue
		}
		copied := *w
		result = append(result, &copied)
	}
	return result
}

// ListAll returns a snapshot of every registered worker in registration
// order, regardless of state.
func (r *InMemoryWorkerRegistry) ListAll() []*types.WorkerInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*types.WorkerInfo, 0, len(r.order))
	for _, id := range r.order {
		if w, ok := r.workers[id]; ok {
			copied := *w
			result = append(result, &copied)
		}
	}
	return result
}

// MarkUnreachable flips a worker to the unreachable state.
func (r *InMemoryWorkerRegistry) MarkUnreachable(id types.WorkerID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.workers[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrWorkerNotFound, id)
	}
	w.State = types.WorkerStateUnreachable
	return nil
}

// Evict removes a worker from the registry.
func (r *InMemoryWorkerRegistry) Evict(id types.WorkerID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.workers[id]; !ok {
		return fmt.Errorf("%w: %s", ErrWorkerNotFound, id)
	}
	delete(r.workers, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Count returns the number of registered workers.
func (r *InMemoryWorkerRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.workers)
}
