// Package mmap provides anonymous memory mappings for off-heap slot storage.
//
// # Overview
//
// An anonymous mapping is read-write memory obtained directly from the
// operating system. It lives outside the Go heap, so the garbage collector
// neither scans nor moves it: the address of every byte stays fixed until
// Close is called. Slot storage built on top of it may therefore hold only
// pointer-free element types.
//
// # Usage
//
//	m, err := mmap.MapAnon(1 << 20)
//	if err != nil { ... }
//	defer m.Close()
//
//	buf := m.Bytes() // zero-filled, fixed address until Close
//
// # Platform Support
//
//   - Unix (Linux, macOS, BSD): mmap(2) with MAP_ANON|MAP_PRIVATE, madvise(2) hints
//   - Windows: VirtualAlloc with MEM_RESERVE|MEM_COMMIT (advice is a no-op)
//
// # Thread Safety
//
// Close is idempotent and protected by an atomic flag. Callers must ensure
// nothing touches Bytes() after Close returns.
package mmap
