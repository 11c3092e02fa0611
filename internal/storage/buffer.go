package storage

import (
	"errors"
	"fmt"
	"math"
	"unsafe"

	"github.com/hupe1980/slotmap/internal/bitvec"
	"github.com/hupe1980/slotmap/internal/conv"
	"github.com/hupe1980/slotmap/resource"
)

const (
	// Granularity is the capacity rounding unit: one bit-vector byte.
	Granularity = 8
	// MinCapacity is the capacity of the first growth from zero.
	MinCapacity = Granularity
	// MaxCapacity is bounded by the int32 free-list link.
	MaxCapacity = math.MaxInt32 &^ (Granularity - 1)
)

var (
	// ErrCapacityExceeded is returned when a capacity beyond MaxCapacity is requested.
	ErrCapacityExceeded = errors.New("storage: capacity exceeded")
	// ErrReleased is returned when a released buffer is used.
	ErrReleased = errors.New("storage: buffer released")
	// ErrReleaseFailed is returned when Grow installed the new block but the
	// old block could not be returned to its allocator.
	ErrReleaseFailed = errors.New("storage: release of old block failed")
)

// RoundCapacity rounds n up to a multiple of Granularity.
func RoundCapacity(n int) (int, error) {
	if n < 0 || n > MaxCapacity {
		return 0, fmt.Errorf("%w: %d", ErrCapacityExceeded, n)
	}
	return (n + Granularity - 1) &^ (Granularity - 1), nil
}

// NextCapacity returns the doubled capacity that follows current.
func NextCapacity(current int) (int, error) {
	if current >= MaxCapacity {
		return 0, fmt.Errorf("%w: cannot grow beyond %d", ErrCapacityExceeded, MaxCapacity)
	}
	if current < MinCapacity {
		return MinCapacity, nil
	}
	if current > MaxCapacity/2 {
		return MaxCapacity, nil
	}
	return current * 2, nil
}

// Config controls where blocks come from and who pays for them.
type Config struct {
	Allocator  Allocator
	Controller *resource.Controller
}

// Buffer holds the item array and bit vector of one slot map.
// Items and Bits alias a single block; neither may be retained across Grow.
type Buffer[T any] struct {
	Items []T
	Bits  bitvec.Vector

	cfg      Config
	block    Block
	reserved int64
	released bool
}

// New allocates a buffer for capacity slots. capacity must already be rounded.
func New[T any](capacity int, cfg Config) (*Buffer[T], error) {
	if cfg.Allocator == nil {
		cfg.Allocator = Heap{}
	}
	b := &Buffer[T]{cfg: cfg}
	if err := b.alloc(capacity); err != nil {
		return nil, err
	}
	return b, nil
}

// Cap returns the number of slots.
func (b *Buffer[T]) Cap() int {
	return len(b.Items)
}

// Reserved returns the bytes currently charged to the controller.
func (b *Buffer[T]) Reserved() int64 {
	return b.reserved
}

// Grow reallocates to newCap slots, preserving every existing slot.
// On failure the buffer is unchanged.
func (b *Buffer[T]) Grow(newCap int) error {
	if b.released {
		return ErrReleased
	}
	if newCap <= b.Cap() {
		return nil
	}

	old := *b
	if err := b.alloc(newCap); err != nil {
		*b = old
		return err
	}

	copy(b.Items, old.Items)
	copy(b.Bits, old.Bits)

	if err := old.release(); err != nil {
		return fmt.Errorf("%w: %w", ErrReleaseFailed, err)
	}
	return nil
}

// RawItems returns the first n slots as their in-memory bytes.
// The view aliases the buffer and is invalidated by Grow and Release.
func (b *Buffer[T]) RawItems(n int) []byte {
	if n <= 0 {
		return nil
	}
	items := b.Items[:n]
	size := n * int(unsafe.Sizeof(items[0]))
	return unsafe.Slice((*byte)(unsafe.Pointer(&items[0])), size) //nolint:gosec // pointer-free T, see freelist.Check
}

// Clone returns an independent copy with the same capacity and contents.
func (b *Buffer[T]) Clone() (*Buffer[T], error) {
	if b.released {
		return nil, ErrReleased
	}
	c, err := New[T](b.Cap(), b.cfg)
	if err != nil {
		return nil, err
	}
	copy(c.Items, b.Items)
	copy(c.Bits, b.Bits)
	return c, nil
}

// Release frees the block and returns the reservation. It is idempotent.
func (b *Buffer[T]) Release() error {
	if b.released {
		return nil
	}
	b.released = true
	err := b.release()
	b.Items, b.Bits = nil, nil
	return err
}

func (b *Buffer[T]) release() error {
	err := b.block.Release()
	b.cfg.Controller.ReleaseMemory(b.reserved)
	b.reserved = 0
	b.block = Block{}
	return err
}

// alloc replaces the block fields with a fresh block; the caller owns the old one.
func (b *Buffer[T]) alloc(capacity int) error {
	if capacity < 0 || capacity > MaxCapacity || capacity%Granularity != 0 {
		return fmt.Errorf("%w: %d", ErrCapacityExceeded, capacity)
	}
	if capacity == 0 {
		b.Items, b.Bits, b.block, b.reserved = nil, nil, Block{}, 0
		return nil
	}

	var zero T
	itemBytes, err := conv.MulInt(capacity, int(unsafe.Sizeof(zero)))
	if err != nil {
		return err
	}
	size := itemBytes + bitvec.BytesFor(capacity)

	if err := b.cfg.Controller.AcquireMemory(int64(size)); err != nil {
		return err
	}

	block, err := b.cfg.Allocator.Alloc(size)
	if err != nil {
		b.cfg.Controller.ReleaseMemory(int64(size))
		return err
	}

	b.block = block
	b.reserved = int64(size)
	b.Items = unsafe.Slice((*T)(unsafe.Pointer(&block.Bytes[0])), capacity) //nolint:gosec // pointer-free T, see freelist.Check
	b.Bits = bitvec.Vector(block.Bytes[itemBytes:size:size])
	return nil
}
