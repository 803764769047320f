package master

import "errors"

var (
	// ErrNoWorkers is returned when the registry holds no alive workers at
	// partition time. It fails the whole submission before any network call.
	ErrNoWorkers = errors.New("no workers available")

	// ErrWorkerNotFound is returned for operations on an unknown worker ID.
	ErrWorkerNotFound = errors.New("worker not found")

	// ErrRegistryFull is returned when registering would exceed the
	// configured worker cap.
	ErrRegistryFull = errors.New("worker registry is full")

	// ErrInvalidAddress is returned for a malformed host/port pair.
	ErrInvalidAddress = errors.New("invalid worker address")

	// ErrDecode marks a payload that could not be decoded.
	ErrDecode = errors.New("decode result payload")

	// ErrPersist marks an artifact that could not be written.
	ErrPersist = errors.New("persist result artifact")
)
