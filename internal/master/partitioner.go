package master

import (
	"github.com/parth-2005/os-project/pkg/types"
)

// IndexedFile pairs an input file with its global submission index so the
// engine can restore submission order after asynchronous returns.
type IndexedFile struct {
	Index int
	File  types.IncomingFile
}

// DispatchUnit is one worker's assigned file subset for a single submission.
type DispatchUnit struct {
	Worker *types.WorkerInfo
	Files  []IndexedFile
}

// Partition splits an ordered file list across the given registry snapshot
// by round robin: file i goes to worker i mod M. Load stays even to within
// one file, remainders fall to the earliest-registered workers, and workers
// whose share is empty receive no unit at all. The result is deterministic
// for a fixed snapshot.
func Partition(files []types.IncomingFile, workers []*types.WorkerInfo) ([]DispatchUnit, error) {
	if len(workers) == 0 {
		return nil, ErrNoWorkers
	}

	m := len(workers)
	units := make([]DispatchUnit, m)
	for i, w := range workers {
		units[i].Worker = w
	}

	for i, f := range files {
		u := &units[i%m]
		u.Files = append(u.Files, IndexedFile{Index: i, File: f})
	}

	// Drop empty units (more workers than files).
	result := units[:0]
	for _, u := range units {
		if len(u.Files) > 0 {
			result = append(result, u)
		}
	}
	return result, nil
}
