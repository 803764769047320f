package types

import (
	"fmt"
	"time"
)

// WorkerID identifies a worker by its (host, port) pair. The pair is unique
// within a registry; re-registration of the same pair refreshes the existing
// entry instead of creating a duplicate.
type WorkerID string

// NewWorkerID builds the canonical ID for a host/port pair.
func NewWorkerID(host string, port int) WorkerID {
	return WorkerID(fmt.Sprintf("%s:%d", host, port))
}

// WorkerState represents the liveness state of a worker.
type WorkerState string

const (
	// WorkerStateAlive indicates the worker is assumed reachable.
	WorkerStateAlive WorkerState = "alive"
	// WorkerStateUnreachable indicates a probe or dispatch call failed.
	WorkerStateUnreachable WorkerState = "unreachable"
)

// WorkerInfo contains a worker's registration record.
type WorkerInfo struct {
	ID           WorkerID    `json:"id"`
	Host         string      `json:"host"`
	Port         int         `json:"port"`
	State        WorkerState `json:"state"`
	RegisteredAt time.Time   `json:"registered_at"`
	LastSeen     time.Time   `json:"last_seen"`
}

// Address returns the host:port dial address of the worker.
func (w *WorkerInfo) Address() string {
	return fmt.Sprintf("%s:%d", w.Host, w.Port)
}

// BaseURL returns the worker's HTTP base URL.
func (w *WorkerInfo) BaseURL() string {
	return fmt.Sprintf("http://%s:%d", w.Host, w.Port)
}
