package slotmap

import (
	"iter"

	"github.com/hupe1980/slotmap/internal/freelist"
)

// nextLive returns the first live index at or after from, or -1.
func (m *SlotMap[T]) nextLive(from int) int {
	return m.buf.Bits.NextSet(from, m.highest+1)
}

// All returns an iterator over live slots in ascending index order.
//
// The yielded item at index i may be removed during iteration; items added
// during iteration may or may not be visited.
func (m *SlotMap[T]) All() iter.Seq2[int, *T] {
	return func(yield func(int, *T) bool) {
		for i := m.nextLive(0); i >= 0; i = m.nextLive(i + 1) {
			if !yield(i, &m.buf.Items[i]) {
				return
			}
		}
	}
}

// Values returns an iterator over pointers to live items in ascending index order.
func (m *SlotMap[T]) Values() iter.Seq[*T] {
	return func(yield func(*T) bool) {
		for _, v := range m.All() {
			if !yield(v) {
				return
			}
		}
	}
}

// Indices returns an iterator over live indices in ascending order.
func (m *SlotMap[T]) Indices() iter.Seq[int] {
	return func(yield func(int) bool) {
		for i := m.nextLive(0); i >= 0; i = m.nextLive(i + 1) {
			if !yield(i) {
				return
			}
		}
	}
}

// Cursor is a forward-only, non-restartable walk over live slots.
//
//	c := m.Cursor()
//	for c.Next() {
//	    use(c.Index(), c.Value())
//	}
type Cursor[T comparable] struct {
	m    *SlotMap[T]
	next int
	cur  int
}

// Cursor returns a cursor positioned before the first live slot.
func (m *SlotMap[T]) Cursor() *Cursor[T] {
	return &Cursor[T]{m: m, cur: -1}
}

// Next advances to the next live slot. Once it returns false it keeps
// returning false.
func (c *Cursor[T]) Next() bool {
	if c.next < 0 {
		return false
	}
	i := c.m.nextLive(c.next)
	if i < 0 {
		c.next, c.cur = -1, -1
		return false
	}
	c.cur, c.next = i, i+1
	return true
}

// Index returns the current index, or -1 outside a successful Next.
func (c *Cursor[T]) Index() int {
	return c.cur
}

// Value returns a pointer to the current item. It panics if Index is -1.
func (c *Cursor[T]) Value() *T {
	return &c.m.buf.Items[c.cur]
}

// FreeIndices returns an iterator over free slot indices in free-list order:
// most recently freed first, or ascending after Optimize.
// The map must not be modified during iteration.
func (m *SlotMap[T]) FreeIndices() iter.Seq[int] {
	return func(yield func(int) bool) {
		left := m.FreeSlotCount()
		freelist.Walk(&m.free, m.buf.Items, func(i int32) bool {
			if left == 0 {
				return false
			}
			left--
			return yield(int(i))
		})
	}
}

// FreeCursor walks the free list and can claim the slot it is positioned on.
//
// Claim is the only modification allowed while a FreeCursor is in use.
type FreeCursor[T comparable] struct {
	m       *SlotMap[T]
	prev    int32
	cur     int32
	succ    int32
	started bool
	claimed bool
	done    bool
}

// FreeCursor returns a cursor positioned before the head of the free list.
func (m *SlotMap[T]) FreeCursor() *FreeCursor[T] {
	return &FreeCursor[T]{m: m, prev: freelist.None, cur: freelist.None, succ: freelist.None}
}

// Next advances to the next free slot.
func (c *FreeCursor[T]) Next() bool {
	if c.done {
		return false
	}

	var next int32
	switch {
	case !c.started:
		c.started = true
		next = c.m.free.Head()
	case c.claimed:
		// cur is gone from the list; prev now links to succ.
		next = c.succ
	default:
		c.prev = c.cur
		next = *freelist.Link(c.m.buf.Items, c.cur)
	}
	c.claimed = false

	if next == freelist.None {
		c.done = true
		c.cur = freelist.None
		return false
	}
	c.cur = next
	return true
}

// Index returns the current slot, or -1 before the first and after the last
// Next. After Claim it is the claimed slot's index.
func (c *FreeCursor[T]) Index() int {
	return int(c.cur)
}

// Claim unlinks the current slot from the free list, marks it live and
// returns a pointer for initialization. It returns nil if the cursor is not
// positioned on a free slot. The slot's contents are unspecified unless the
// map was created with WithZeroOnRemove.
func (c *FreeCursor[T]) Claim() *T {
	if c.cur == freelist.None || c.claimed {
		return nil
	}
	m := c.m
	items := m.buf.Items

	c.succ = *freelist.Link(items, c.cur)
	if c.prev == freelist.None {
		m.free.SetHead(c.succ)
	} else {
		*freelist.Link(items, c.prev) = c.succ
	}
	c.claimed = true

	m.buf.Bits.Set(int(c.cur))
	m.count++

	p := &items[c.cur]
	if m.opts.zeroOnRemove {
		var zero T
		*p = zero
	}
	return p
}
