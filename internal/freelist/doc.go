// Package freelist implements the intrusive free list of a slot map.
//
// A vacant slot's storage is reinterpreted to hold the index of the next
// vacant slot, so free-slot bookkeeping costs no memory beyond a single head
// index. This is the only package that reinterprets item storage; every other
// package goes through Link, Push, Pop and Walk.
//
// # Preconditions
//
// Reinterpretation is sound only when the element type:
//
//   - is at least as large as the link type (int32, 4 bytes) and aligned at
//     least as strictly, so a link at the start of any slot is a properly
//     aligned int32 on strict-alignment targets too.
//   - contains no pointers, so the garbage collector never scans a link value
//     as an address and off-heap storage never hides a live heap reference.
//
// Check verifies both at construction time.
package freelist
