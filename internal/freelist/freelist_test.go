package freelist

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type vec3 struct {
	X, Y, Z float32
}

type withString struct {
	ID   int64
	Name string
}

type packed struct {
	A, B, C uint16
}

type nested struct {
	A [4]uint16
	B struct {
		P *int
	}
}

func TestCheck(t *testing.T) {
	assert.NoError(t, Check[int32]())
	assert.NoError(t, Check[int64]())
	assert.NoError(t, Check[float64]())
	assert.NoError(t, Check[vec3]())
	assert.NoError(t, Check[[2]uint32]())
	assert.NoError(t, Check[[3]float32]())

	assert.ErrorIs(t, Check[uint8](), ErrTooSmall)
	assert.ErrorIs(t, Check[int16](), ErrTooSmall)
	assert.ErrorIs(t, Check[[0]int64](), ErrTooSmall)

	assert.ErrorIs(t, Check[*int](), ErrHasPointers)
	assert.ErrorIs(t, Check[string](), ErrHasPointers)
	assert.ErrorIs(t, Check[[]byte](), ErrHasPointers)
	assert.ErrorIs(t, Check[withString](), ErrHasPointers)
	assert.ErrorIs(t, Check[nested](), ErrHasPointers)
	assert.ErrorIs(t, Check[any](), ErrHasPointers)

	assert.ErrorIs(t, Check[[2]uint16](), ErrMisaligned)
	assert.ErrorIs(t, Check[[4]uint8](), ErrMisaligned)
	assert.ErrorIs(t, Check[[5]byte](), ErrMisaligned)
	assert.ErrorIs(t, Check[[6]byte](), ErrMisaligned)
	assert.ErrorIs(t, Check[packed](), ErrMisaligned)
}

func TestLink_Reinterprets(t *testing.T) {
	items := make([]vec3, 4)
	*Link(items, 2) = 17

	// The link occupies the first four bytes of the slot.
	raw := unsafe.Slice((*byte)(unsafe.Pointer(&items[2])), unsafe.Sizeof(items[2]))
	assert.NotEqual(t, make([]byte, LinkSize), raw[:LinkSize])
	assert.Equal(t, int32(17), *Link(items, 2))
	assert.Equal(t, vec3{}, items[1])
}

func TestList_PushPopLIFO(t *testing.T) {
	items := make([]int64, 8)
	l := New()
	require.True(t, l.Empty())

	for _, i := range []int32{1, 5, 3} {
		Push(&l, items, i)
	}
	assert.Equal(t, int32(3), l.Head())

	var order []int32
	Walk(&l, items, func(i int32) bool {
		order = append(order, i)
		return true
	})
	assert.Equal(t, []int32{3, 5, 1}, order)

	for _, want := range []int32{3, 5, 1} {
		got, ok := Pop(&l, items)
		require.True(t, ok)
		assert.Equal(t, want, got)
	}

	got, ok := Pop(&l, items)
	assert.False(t, ok)
	assert.Equal(t, None, got)
	assert.True(t, l.Empty())
}

func TestWalk_StopsEarly(t *testing.T) {
	items := make([]int32, 8)
	l := New()
	for i := range int32(5) {
		Push(&l, items, i)
	}

	n := 0
	Walk(&l, items, func(int32) bool {
		n++
		return n < 2
	})
	assert.Equal(t, 2, n)
}

func TestRebuild(t *testing.T) {
	items := make([]int64, 8)
	l := New()
	Push(&l, items, 6)
	Push(&l, items, 0)
	Push(&l, items, 4)

	Rebuild(&l, items, []int32{0, 4, 6})

	var order []int32
	Walk(&l, items, func(i int32) bool {
		order = append(order, i)
		return true
	})
	assert.Equal(t, []int32{0, 4, 6}, order)

	Rebuild(&l, items, nil)
	assert.True(t, l.Empty())

	l.SetHead(4)
	assert.Equal(t, int32(4), l.Head())
	l.Reset()
	assert.True(t, l.Empty())
}
