package errors

import (
	"errors"
)

// Shared sentinel errors used across the query path and storage backend.
var (
	// ErrTableNotFound is returned when a table has never been activated
	ErrTableNotFound = errors.New("table not found")

	// ErrTableInactive is returned when a table exists but is not compiled
	ErrTableInactive = errors.New("table is not active")

	// ErrMissingHelper is returned when a table's helper module is not loaded
	ErrMissingHelper = errors.New("table helper module not loaded")

	// ErrOwnerNotFound is returned by the registry when no row matches an owner
	ErrOwnerNotFound = errors.New("no compile-state row for owner")

	// ErrBadCompileState is returned for state values outside the lifecycle set
	ErrBadCompileState = errors.New("invalid compile state")

	// ErrQueueStopped is returned when the query queue is shut down
	ErrQueueStopped = errors.New("query queue is stopped")

	// ErrQueueFull is returned when the query queue is at capacity
	ErrQueueFull = errors.New("query queue is full")

	// ErrNoPrimaries is returned when coverage planning finds no primary owner
	ErrNoPrimaries = errors.New("no primaries available")

	// ErrSubQueryTimeout is returned when a sub-query exceeds its storage deadline
	ErrSubQueryTimeout = errors.New("sub-query timed out")

	// ErrBackendTimeout is returned when the storage backend misses its deadline
	ErrBackendTimeout = errors.New("backend timed out")

	// ErrMismanagement is returned when the worker is driven while busy.
	// This indicates a bug in the caller, not in the query.
	ErrMismanagement = errors.New("worker received query while busy")

	// ErrEngineClosed is returned when operating on a closed storage engine
	ErrEngineClosed = errors.New("storage engine is closed")

	// ErrRecordNotFound is returned by point reads of missing records
	ErrRecordNotFound = errors.New("record not found")

	// ErrBadRecord is returned when a stored record fails to decode
	ErrBadRecord = errors.New("corrupt record: invalid length or format")

	// ErrBadKeyLength is returned when an encoded key has the wrong arity
	ErrBadKeyLength = errors.New("key has wrong number of elements")

	// ErrFrameTooLarge is returned when a wire frame exceeds the maximum size
	ErrFrameTooLarge = errors.New("frame size exceeds maximum")

	// ErrInvalidFrame is returned when a wire frame fails to decode
	ErrInvalidFrame = errors.New("invalid frame format")
)
