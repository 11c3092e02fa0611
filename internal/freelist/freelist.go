package freelist

import (
	"errors"
	"fmt"
	"reflect"
	"unsafe"
)

// None marks the end of the list and an empty head.
const None int32 = -1

// LinkSize is the number of bytes a link occupies at the start of a vacant slot.
const LinkSize = int(unsafe.Sizeof(int32(0)))

var (
	// ErrTooSmall is returned for element types smaller than a link.
	ErrTooSmall = errors.New("freelist: element type smaller than link")
	// ErrHasPointers is returned for element types that contain pointers.
	ErrHasPointers = errors.New("freelist: element type contains pointers")
	// ErrMisaligned is returned for element types whose alignment is weaker
	// than a link's, so a link at the start of a slot could be misaligned.
	ErrMisaligned = errors.New("freelist: element type alignment below link alignment")
)

// Check reports whether T may back an intrusive free list.
func Check[T any]() error {
	var zero T
	size := int(unsafe.Sizeof(zero))
	typ := reflect.TypeFor[T]()
	if size < LinkSize {
		return fmt.Errorf("%w: %s is %d bytes, need %d", ErrTooSmall, typ, size, LinkSize)
	}
	if hasPointers(typ) {
		return fmt.Errorf("%w: %s", ErrHasPointers, typ)
	}
	if unsafe.Alignof(zero) < unsafe.Alignof(None) {
		return fmt.Errorf("%w: %s aligns to %d, need %d", ErrMisaligned, typ, unsafe.Alignof(zero), unsafe.Alignof(None))
	}
	return nil
}

func hasPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Uintptr, reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128:
		return false
	case reflect.Array:
		return t.Len() > 0 && hasPointers(t.Elem())
	case reflect.Struct:
		for i := range t.NumField() {
			if hasPointers(t.Field(i).Type) {
				return true
			}
		}
		return false
	default:
		// Pointer, UnsafePointer, String, Slice, Map, Chan, Func, Interface.
		return true
	}
}

// Link returns slot i's storage reinterpreted as a link.
// The caller guarantees that slot i is vacant and that Check[T] passed.
func Link[T any](items []T, i int32) *int32 {
	return (*int32)(unsafe.Pointer(&items[i])) //nolint:gosec // audited reinterpretation, see package doc
}

// List is the head of an intrusive singly linked LIFO list.
// The zero value is NOT an empty list; use New or Reset.
type List struct {
	head int32
}

// New returns an empty list.
func New() List {
	return List{head: None}
}

// Head returns the first free index, or None.
func (l *List) Head() int32 {
	return l.head
}

// SetHead replaces the head. Used when rebuilding or restoring a list.
func (l *List) SetHead(i int32) {
	l.head = i
}

// Empty reports whether the list has no entries.
func (l *List) Empty() bool {
	return l.head == None
}

// Reset empties the list without touching item storage.
func (l *List) Reset() {
	l.head = None
}

// Push threads the current head into slot i and makes i the new head.
func Push[T any](l *List, items []T, i int32) {
	*Link(items, i) = l.head
	l.head = i
}

// Pop removes and returns the head, or (None, false) if the list is empty.
func Pop[T any](l *List, items []T) (int32, bool) {
	i := l.head
	if i == None {
		return None, false
	}
	l.head = *Link(items, i)
	return i, true
}

// Walk calls fn for each free index in list order until fn returns false.
func Walk[T any](l *List, items []T, fn func(i int32) bool) {
	for i := l.head; i != None; i = *Link(items, i) {
		if !fn(i) {
			return
		}
	}
}

// Rebuild relinks the list so that it visits indices in the given order.
func Rebuild[T any](l *List, items []T, indices []int32) {
	next := None
	for k := len(indices) - 1; k >= 0; k-- {
		*Link(items, indices[k]) = next
		next = indices[k]
	}
	l.head = next
}
