package bvh

import "errors"

var (
	ErrInvalidParams    = errors.New("bvh: invalid build parameters")
	ErrCancelled        = errors.New("bvh: build cancelled")
	ErrCapacityExceeded = errors.New("bvh: reference arena capacity exceeded")
	ErrOutOfMemory      = errors.New("bvh: out of memory")
)
