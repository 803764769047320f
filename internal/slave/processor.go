// Package slave implements the worker node host: the /get_task and
// /check_status HTTP surface, registration with the master, and the plug-in
// boundary behind which the actual per-kind processing routines live.
package slave

import (
	"context"
	"fmt"
	"sync"

	"github.com/parth-2005/os-project/pkg/types"
)

// ProcessedFile is one processing result: the originating filename and the
// raw artifact bytes. The host base64-encodes the bytes onto the wire under
// the kind's data key.
type ProcessedFile struct {
	Filename string
	Data     []byte
}

// Processor is the sole boundary to a job kind's processing routine. The
// host treats implementations as opaque: bytes in, artifact bytes out.
type Processor interface {
	Process(ctx context.Context, files []types.IncomingFile) ([]ProcessedFile, error)
}

// ProcessorFunc adapts a function to the Processor interface.
type ProcessorFunc func(ctx context.Context, files []types.IncomingFile) ([]ProcessedFile, error)

// Process calls f.
func (f ProcessorFunc) Process(ctx context.Context, files []types.IncomingFile) ([]ProcessedFile, error) {
	return f(ctx, files)
}

// ProcessorRegistry maps job kinds to their processors. Kinds without a
// registered processor are rejected at the /get_task boundary.
type ProcessorRegistry struct {
	processors map[types.JobKind]Processor
	mu         sync.RWMutex
}

// NewProcessorRegistry creates an empty processor registry.
func NewProcessorRegistry() *ProcessorRegistry {
	return &ProcessorRegistry{
		processors: make(map[types.JobKind]Processor),
	}
}

// Register binds a processor to a job kind, replacing any previous binding.
func (r *ProcessorRegistry) Register(kind types.JobKind, p Processor) error {
	if !kind.Valid() {
		return fmt.Errorf("unknown job kind: %q", kind)
	}
	if p == nil {
		return fmt.Errorf("processor cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.processors[kind] = p
	return nil
}

// Get returns the processor for a kind, if one is registered.
func (r *ProcessorRegistry) Get(kind types.JobKind) (Processor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.processors[kind]
	return p, ok
}

// Kinds returns the kinds with a registered processor, in enumeration order.
func (r *ProcessorRegistry) Kinds() []types.JobKind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]types.JobKind, 0, len(r.processors))
	for _, k := range types.AllJobKinds() {
		if _, ok := r.processors[k]; ok {
			kinds = append(kinds, k)
		}
	}
	return kinds
}
