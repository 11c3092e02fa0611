package storage

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/slotmap/internal/mmap"
	"github.com/hupe1980/slotmap/resource"
)

type particle struct {
	X, Y, Z float32
	Mass    float32
}

func allocators() map[string]Allocator {
	return map[string]Allocator{
		"heap":    Heap{},
		"offheap": OffHeap{Advice: mmap.AccessRandom},
	}
}

func TestRoundCapacity(t *testing.T) {
	cases := map[int]int{0: 0, 1: 8, 7: 8, 8: 8, 9: 16, 100: 104}
	for in, want := range cases {
		got, err := RoundCapacity(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, "in=%d", in)
	}

	_, err := RoundCapacity(-1)
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	_, err = RoundCapacity(MaxCapacity + 1)
	assert.ErrorIs(t, err, ErrCapacityExceeded)
}

func TestNextCapacity(t *testing.T) {
	cases := map[int]int{0: 8, 8: 16, 16: 32, 1024: 2048, MaxCapacity/2 + 8: MaxCapacity}
	for in, want := range cases {
		got, err := NextCapacity(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, "in=%d", in)
	}

	_, err := NextCapacity(MaxCapacity)
	assert.ErrorIs(t, err, ErrCapacityExceeded)
}

func TestBuffer_New(t *testing.T) {
	for name, a := range allocators() {
		t.Run(name, func(t *testing.T) {
			b, err := New[particle](16, Config{Allocator: a})
			require.NoError(t, err)
			defer b.Release()

			assert.Equal(t, 16, b.Cap())
			assert.Len(t, b.Bits, 2)
			for i := range b.Bits {
				assert.True(t, b.Bits.ByteAllClear(i))
			}

			addr := uintptr(unsafe.Pointer(&b.Items[0]))
			assert.Equal(t, uintptr(0), addr%unsafe.Alignof(particle{}))
		})
	}
}

func TestBuffer_ZeroCapacity(t *testing.T) {
	b, err := New[particle](0, Config{})
	require.NoError(t, err)
	assert.Equal(t, 0, b.Cap())
	assert.Nil(t, b.Items)
	assert.Nil(t, b.Bits)
	assert.Equal(t, int64(0), b.Reserved())
	require.NoError(t, b.Release())
}

func TestBuffer_RejectsUnroundedCapacity(t *testing.T) {
	_, err := New[particle](5, Config{})
	assert.ErrorIs(t, err, ErrCapacityExceeded)
}

func TestBuffer_GrowPreservesContents(t *testing.T) {
	for name, a := range allocators() {
		t.Run(name, func(t *testing.T) {
			b, err := New[particle](8, Config{Allocator: a})
			require.NoError(t, err)
			defer b.Release()

			for i := range b.Items {
				b.Items[i] = particle{X: float32(i), Mass: 1}
			}
			b.Bits.Set(3)
			b.Bits.Set(7)

			require.NoError(t, b.Grow(32))
			assert.Equal(t, 32, b.Cap())
			assert.Len(t, b.Bits, 4)

			for i := range 8 {
				assert.Equal(t, particle{X: float32(i), Mass: 1}, b.Items[i])
			}
			for i := 8; i < 32; i++ {
				assert.Equal(t, particle{}, b.Items[i])
			}
			assert.True(t, b.Bits.Test(3))
			assert.True(t, b.Bits.Test(7))
			assert.Equal(t, 2, b.Bits.Count())

			// Shrinking requests are ignored.
			require.NoError(t, b.Grow(16))
			assert.Equal(t, 32, b.Cap())
		})
	}
}

func TestBuffer_MemoryController(t *testing.T) {
	size := func(capacity int) int64 {
		return int64(capacity*int(unsafe.Sizeof(particle{})) + (capacity+7)/8)
	}

	rc := resource.NewController(resource.Config{MemoryLimitBytes: size(16) + size(8)})

	b, err := New[particle](8, Config{Controller: rc})
	require.NoError(t, err)
	assert.Equal(t, size(8), rc.MemoryUsage())
	assert.Equal(t, size(8), b.Reserved())

	b.Items[1] = particle{Mass: 9}
	b.Bits.Set(1)

	// Old and new blocks coexist during the copy.
	require.NoError(t, b.Grow(16))
	assert.Equal(t, size(16), rc.MemoryUsage())

	// 16 + 32 exceeds the limit; the buffer stays intact.
	err = b.Grow(32)
	assert.ErrorIs(t, err, resource.ErrMemoryLimitExceeded)
	assert.Equal(t, 16, b.Cap())
	assert.Equal(t, particle{Mass: 9}, b.Items[1])
	assert.True(t, b.Bits.Test(1))
	assert.Equal(t, size(16), rc.MemoryUsage())

	require.NoError(t, b.Release())
	assert.Equal(t, int64(0), rc.MemoryUsage())
	require.NoError(t, b.Release())
	assert.Equal(t, int64(0), rc.MemoryUsage())

	assert.ErrorIs(t, b.Grow(64), ErrReleased)
}

func TestBuffer_Clone(t *testing.T) {
	for name, a := range allocators() {
		t.Run(name, func(t *testing.T) {
			b, err := New[particle](8, Config{Allocator: a})
			require.NoError(t, err)
			defer b.Release()

			b.Items[2] = particle{Y: 2}
			b.Bits.Set(2)

			c, err := b.Clone()
			require.NoError(t, err)
			defer c.Release()

			assert.Equal(t, b.Items, c.Items)
			assert.Equal(t, b.Bits, c.Bits)

			c.Items[2].Y = 5
			c.Bits.Clear(2)
			assert.Equal(t, float32(2), b.Items[2].Y)
			assert.True(t, b.Bits.Test(2))
		})
	}
}

func TestBuffer_RawItems(t *testing.T) {
	b, err := New[uint32](8, Config{})
	require.NoError(t, err)
	defer b.Release()

	b.Items[0] = 0x04030201
	b.Items[1] = 0x08070605

	raw := b.RawItems(2)
	require.Len(t, raw, 8)
	// Native layout; every supported platform is little endian.
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, raw)

	raw[0] = 0xFF
	assert.Equal(t, uint32(0x040302FF), b.Items[0])

	assert.Nil(t, b.RawItems(0))
}
