package idmap

import (
	"errors"
	"fmt"
)

var (
	// ErrCapacityExceeded is returned when an insert finds no free slot, or a
	// grow would pass MaxCapacity.
	ErrCapacityExceeded = errors.New("idmap: capacity exceeded")
	// ErrInvalidHandle means the handle does not decode to a slot of this map.
	ErrInvalidHandle = errors.New("idmap: invalid handle")
	// ErrStaleHandle means the slot was freed, and possibly reused, since the
	// handle was issued.
	ErrStaleHandle = errors.New("idmap: stale handle")
	// ErrSlotOccupied is returned by InsertAt when the target slot is live.
	ErrSlotOccupied = errors.New("idmap: slot occupied")
	// ErrErasedInFlush is reported by Commands.Flush for an InsertAt of a
	// handle that the same flush erased.
	ErrErasedInFlush = errors.New("idmap: handle erased in the same flush")
)

// HandleError records a failed operation on a specific handle.
type HandleError struct {
	Op     string
	Handle Handle
	Err    error
}

func (e *HandleError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Handle, e.Err)
}

func (e *HandleError) Unwrap() error {
	return e.Err
}
