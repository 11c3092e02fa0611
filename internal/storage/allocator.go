package storage

import (
	"github.com/hupe1980/slotmap/internal/mem"
	"github.com/hupe1980/slotmap/internal/mmap"
)

// Block is a zero-filled, address-stable byte range.
type Block struct {
	Bytes   []byte
	release func() error
}

// Release returns the block to its allocator. It is safe to call on the zero Block.
func (b Block) Release() error {
	if b.release == nil {
		return nil
	}
	return b.release()
}

// Allocator hands out address-stable blocks.
type Allocator interface {
	// Alloc returns a zero-filled block of exactly size bytes.
	Alloc(size int) (Block, error)
}

// Heap allocates blocks on the Go heap. Blocks are released by the collector.
type Heap struct{}

// Alloc implements Allocator.
func (Heap) Alloc(size int) (Block, error) {
	return Block{Bytes: mem.AllocAligned(size)}, nil
}

// OffHeap allocates blocks from anonymous memory mappings.
// Blocks must be released explicitly.
type OffHeap struct {
	// Advice is passed to the kernel for each new mapping.
	Advice mmap.AccessPattern
}

// Alloc implements Allocator.
func (o OffHeap) Alloc(size int) (Block, error) {
	if size <= 0 {
		return Block{}, nil
	}
	m, err := mmap.MapAnon(size)
	if err != nil {
		return Block{}, err
	}
	if o.Advice != mmap.AccessDefault {
		if err := m.Advise(o.Advice); err != nil {
			_ = m.Close()
			return Block{}, err
		}
	}
	return Block{Bytes: m.Bytes()[:size:size], release: m.Close}, nil
}
