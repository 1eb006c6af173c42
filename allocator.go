// SPDX-License-Identifier: Apache-2.0

package freelist

import (
	"unsafe"
)

// Allocator is an interface that describes an allocator serving a fixed region.
type Allocator interface {
	// Alloc allocates memory of the given size and returns a pointer to it.
	// The alignment parameter specifies the alignment of the allocated memory.
	// A nil result means the request cannot be served; it is not a fatal condition.
	Alloc(size, alignment uintptr) unsafe.Pointer

	// Free returns memory obtained from Alloc. size must match the size passed to Alloc.
	// Freeing a pointer twice, or one not obtained from this allocator, is undefined.
	Free(ptr unsafe.Pointer, size uintptr)

	// Resize releases ptr and acquires a block of newSize bytes.
	// On a nil result the original pointer is no longer valid.
	Resize(ptr unsafe.Pointer, oldSize, newSize uintptr) unsafe.Pointer

	// Reset returns the allocator to its initial state without releasing the region.
	// After invoking this method any pointer previously returned by Alloc becomes immediately invalid.
	Reset()

	// Release drops the region. After invoking this method, Alloc always fails.
	Release()

	// Len returns the total number of bytes currently allocated, including block headers.
	Len() int

	// Cap returns the total number of bytes under management.
	Cap() int

	// Peak returns the peak number of bytes that have been allocated.
	// This value is not reset when Reset is called, allowing tracking of maximum usage.
	Peak() int
}

// Allocate allocates memory for a value of type T using the provided Allocator.
// If the allocator is non-nil and has room, it returns a zeroed *T inside its region.
// Otherwise it allocates memory using Go's built-in new function.
// T must not contain Go pointers: the garbage collector does not scan the region.
func Allocate[T any](a Allocator) *T {
	if a != nil {
		var x T
		if ptr := a.Alloc(unsafe.Sizeof(x), unsafe.Alignof(x)); ptr != nil {
			p := (*T)(ptr)
			*p = x
			return p
		}
	}
	return new(T)
}

// Deallocate returns a value created by Allocate to the allocator.
func Deallocate[T any](a Allocator, p *T) {
	if a == nil || p == nil {
		return
	}
	var x T
	a.Free(unsafe.Pointer(p), unsafe.Sizeof(x))
}
