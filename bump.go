// SPDX-License-Identifier: Apache-2.0

package freelist

import (
	"unsafe"
)

// Bump is a non-reclaiming allocator over a single Region. It only ever moves
// an offset forward: Free is a no-op and Resize is not supported. Reset
// rewinds the offset and makes the whole region available again.
//
// A Bump is not safe for concurrent use.
type Bump struct {
	region *Region
	offset uintptr
	peak   uintptr // tracks peak allocated space
	zero   bool
}

// BumpOption represents a configuration option for a Bump allocator.
type BumpOption func(*Bump)

// WithBumpZeroing controls whether allocations are cleared. Enabled by default.
func WithBumpZeroing(enabled bool) BumpOption {
	return func(b *Bump) {
		b.zero = enabled
	}
}

// NewBump creates a bump allocator that exclusively manages buf.
func NewBump(buf []byte, opts ...BumpOption) (*Bump, error) {
	r, err := NewRegion(buf)
	if err != nil {
		return nil, err
	}
	return NewBumpFromRegion(r, opts...), nil
}

// NewBumpFromRegion creates a bump allocator over r and takes ownership of it.
func NewBumpFromRegion(r *Region, opts ...BumpOption) *Bump {
	b := &Bump{
		region: r,
		zero:   true,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Alloc satisfies the Allocator interface.
// The current address is padded up to alignment (0 means unaligned); the call
// fails when the padded request would pass the end of the region.
func (b *Bump) Alloc(size, alignment uintptr) unsafe.Pointer {
	if b.region == nil || size == 0 {
		return nil
	}
	if alignment == 0 {
		alignment = 1
	}
	if !isPowerOfTwo(alignment) {
		return nil
	}
	addr := b.region.start + b.offset
	alignOffset := alignUp(addr, alignment) - addr
	available := b.availableBytes()
	if alignOffset > available || size > available-alignOffset {
		return nil
	}
	ptr := b.region.at(b.offset + alignOffset)
	b.offset += alignOffset + size
	if b.offset > b.peak {
		b.peak = b.offset
	}

	if b.zero {
		clear(unsafe.Slice((*byte)(ptr), size))
	}
	return ptr
}

// Free satisfies the Allocator interface. It does nothing.
func (b *Bump) Free(unsafe.Pointer, uintptr) {}

// Resize satisfies the Allocator interface. Bump allocators cannot resize and always return nil.
func (b *Bump) Resize(unsafe.Pointer, uintptr, uintptr) unsafe.Pointer {
	return nil
}

// Reset satisfies the Allocator interface.
func (b *Bump) Reset() {
	b.offset = 0
}

// Release satisfies the Allocator interface.
func (b *Bump) Release() {
	if b.region == nil {
		return
	}
	_ = b.region.Close()
	b.region = nil
	b.offset = 0
}

// Region returns the managed region, or nil after Release.
func (b *Bump) Region() *Region {
	return b.region
}

func (b *Bump) availableBytes() uintptr {
	return b.region.size() - b.offset
}

// Len returns the number of bytes consumed, alignment padding included.
func (b *Bump) Len() int {
	return int(b.offset)
}

// Cap returns the size of the managed region.
func (b *Bump) Cap() int {
	if b.region == nil {
		return 0
	}
	return b.region.Len()
}

// Peak returns the peak number of bytes that have been allocated.
// This value is not reset when Reset is called, allowing tracking of maximum usage.
func (b *Bump) Peak() int {
	return int(b.peak)
}
