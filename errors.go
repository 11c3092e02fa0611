package slotmap

import (
	"errors"
	"fmt"
)

var (
	// ErrSlotNotFound is returned when an index is out of bounds or its slot is not live.
	ErrSlotNotFound = errors.New("slot not found")

	// ErrBufferTooSmall is returned when a caller-supplied buffer cannot hold all free-slot indices.
	ErrBufferTooSmall = errors.New("buffer too small")

	// ErrUnsupportedType is returned by New for element types that contain
	// pointers or are smaller than a free-list link.
	ErrUnsupportedType = errors.New("unsupported element type")

	// ErrInvalidCapacity is returned for negative or oversized capacities.
	ErrInvalidCapacity = errors.New("invalid capacity")

	// ErrGrowthFailed is returned when storage could not be allocated.
	ErrGrowthFailed = errors.New("growth failed")

	// ErrInvalidPolicy is returned when a policy does not match the element type.
	ErrInvalidPolicy = errors.New("invalid policy")

	// ErrCorrupt is returned by Validate when an invariant does not hold.
	ErrCorrupt = errors.New("slot map corrupt")

	// ErrCorruptSnapshot is returned when a snapshot fails validation.
	ErrCorruptSnapshot = errors.New("corrupt snapshot")

	// ErrClosed is returned when a closed slot map is used.
	ErrClosed = errors.New("slot map closed")
)

// SlotNotFoundError reports the index that failed validation.
//
// It matches ErrSlotNotFound via errors.Is.
type SlotNotFoundError struct {
	Index int
}

func (e *SlotNotFoundError) Error() string {
	return fmt.Sprintf("slot not found: index %d", e.Index)
}

func (e *SlotNotFoundError) Is(target error) bool { return target == ErrSlotNotFound }

// BufferTooSmallError reports how many free-slot indices a buffer needed to hold.
//
// It matches ErrBufferTooSmall via errors.Is.
type BufferTooSmallError struct {
	Need int
	Got  int
}

func (e *BufferTooSmallError) Error() string {
	return fmt.Sprintf("buffer too small: need %d, got %d", e.Need, e.Got)
}

func (e *BufferTooSmallError) Is(target error) bool { return target == ErrBufferTooSmall }
