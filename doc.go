// Package slotmap provides a slot map: a container of fixed-size items
// addressed by stable integer indices.
//
// Items live in one contiguous array. A packed bit vector records which slots
// are live, and vacated slots are chained into a free list through their own
// storage, so reuse needs no memory beyond the array and one bit per slot.
// Removing an item never moves another one, and an index stays valid until its
// item is removed.
//
// # Quick Start
//
//	type Particle struct {
//	    X, Y, VX, VY float32
//	}
//
//	m, _ := slotmap.New[Particle](1024)
//	defer m.Close()
//
//	i, _ := m.Add(Particle{X: 1, Y: 2})
//	p, _ := m.At(i)   // mutable access, no copy
//	p.VX = 0.5
//
//	for i, p := range m.All() {
//	    fmt.Println(i, p.X)
//	}
//
//	_ = m.RemoveAt(i)
//
// # Element Types
//
// Vacant slots hold an int32 link in their first four bytes. Element types
// must therefore be at least four bytes wide and must not contain pointers,
// strings, slices, maps, channels, functions or interfaces. They must also
// align to at least four bytes, so [4]uint8 and [2]uint16 are rejected. New
// returns ErrUnsupportedType otherwise.
//
// # Growth and Compaction
//
// Storage doubles when full (0 grows to 8) and is never shrunk. Removing the
// highest touched slot retires it immediately; other removals queue the slot
// for reuse, newest first. Optimize retires every free slot at the top of the
// touched range and relinks the rest in ascending order. Growth and Optimize
// both run synchronously and cost time proportional to Cap and to the number
// of free slots respectively.
//
// # Storage
//
// By default storage comes from the Go heap, which never relocates it.
// WithOffHeap uses anonymous memory mappings instead, keeping large maps out
// of the collector's view. WithResourceController charges storage against a
// shared memory budget.
//
// # Snapshots
//
// Save and Load (and the io.WriterTo / io.ReaderFrom pair) persist a map with
// its indices and free list intact. Snapshots are checksummed with CRC32C and
// may be compressed with LZ4 or ZSTD. They store items in host byte order and
// are rejected on hosts with a different one.
//
// # Concurrency
//
// A SlotMap is not safe for concurrent use. It owns its storage exclusively
// and must not be copied by value; Clone makes an independent copy.
package slotmap
