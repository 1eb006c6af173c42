// SPDX-License-Identifier: Apache-2.0

package freelist

import (
	"sync"
	"unsafe"
)

type concurrentAllocator struct {
	mtx sync.Mutex
	a   Allocator
}

// NewConcurrent returns an allocator that is safe to be accessed concurrently
// from multiple goroutines. Every call on a is serialized behind one mutex.
func NewConcurrent(a Allocator) Allocator {
	return &concurrentAllocator{a: a}
}

// Alloc satisfies the Allocator interface.
func (c *concurrentAllocator) Alloc(size, alignment uintptr) unsafe.Pointer {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.a == nil {
		return nil
	}
	return c.a.Alloc(size, alignment)
}

// Free satisfies the Allocator interface.
func (c *concurrentAllocator) Free(ptr unsafe.Pointer, size uintptr) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.a == nil {
		return
	}
	c.a.Free(ptr, size)
}

// Resize satisfies the Allocator interface.
func (c *concurrentAllocator) Resize(ptr unsafe.Pointer, oldSize, newSize uintptr) unsafe.Pointer {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.a == nil {
		return nil
	}
	return c.a.Resize(ptr, oldSize, newSize)
}

// Reset satisfies the Allocator interface.
func (c *concurrentAllocator) Reset() {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.a == nil {
		return
	}
	c.a.Reset()
}

// Release satisfies the Allocator interface.
func (c *concurrentAllocator) Release() {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.a == nil {
		return
	}
	c.a.Release()
}

// Len satisfies the Allocator interface.
func (c *concurrentAllocator) Len() int {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.a == nil {
		return 0
	}
	return c.a.Len()
}

// Cap satisfies the Allocator interface.
func (c *concurrentAllocator) Cap() int {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.a == nil {
		return 0
	}
	return c.a.Cap()
}

// Peak satisfies the Allocator interface.
func (c *concurrentAllocator) Peak() int {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.a == nil {
		return 0
	}
	return c.a.Peak()
}
