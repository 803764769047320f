// Package master implements the coordinator core: the worker registry,
// liveness probing, batch partitioning, concurrent dispatch/collection, and
// result materialization.
package master
