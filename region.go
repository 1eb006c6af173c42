// SPDX-License-Identifier: Apache-2.0

package freelist

import (
	"fmt"
	"unsafe"
)

// Region is a contiguous, word aligned byte range handed to an allocator.
// The allocator constructed over a Region owns every byte in it; the caller
// must not read or write the underlying buffer directly while it does.
type Region struct {
	buf   []byte         // keeps the caller's memory reachable for the GC
	base  unsafe.Pointer // address of buf[0]
	start uintptr
	end   uintptr
	unmap func() error
}

// NewRegion wraps buf. The start is rounded up and the end rounded down to the
// machine word so that every block header lands on an aligned address.
// It fails with ErrRegionTooSmall when fewer than one header's worth of bytes remain.
func NewRegion(buf []byte) (*Region, error) {
	if len(buf) == 0 {
		return nil, fmt.Errorf("%w: empty buffer", ErrRegionTooSmall)
	}
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
	pad := alignUp(addr, wordSize) - addr
	if pad >= uintptr(len(buf)) {
		return nil, fmt.Errorf("%w: %d bytes", ErrRegionTooSmall, len(buf))
	}
	usable := (uintptr(len(buf)) - pad) &^ (wordSize - 1)
	if usable < headerWidth {
		return nil, fmt.Errorf("%w: %d bytes", ErrRegionTooSmall, len(buf))
	}
	buf = buf[pad : pad+usable]
	return &Region{
		buf:   buf,
		base:  unsafe.Pointer(unsafe.SliceData(buf)),
		start: addr + pad,
		end:   addr + pad + usable,
	}, nil
}

// Start returns the address of the first managed byte.
func (r *Region) Start() uintptr {
	return r.start
}

// End returns the address one past the last managed byte.
func (r *Region) End() uintptr {
	return r.end
}

// Len returns the number of managed bytes.
func (r *Region) Len() int {
	return int(r.size())
}

// Bytes exposes the managed bytes. Block headers are part of the returned slice.
func (r *Region) Bytes() []byte {
	return r.buf
}

// Close returns mapped memory to the operating system. It is a no-op for
// regions built over Go memory.
func (r *Region) Close() error {
	if r.unmap == nil {
		return nil
	}
	unmap := r.unmap
	r.unmap = nil
	r.buf = nil
	r.base = nil
	return unmap()
}

func (r *Region) size() uintptr {
	return r.end - r.start
}

// at returns the address of the byte at offset off from the start.
func (r *Region) at(off uintptr) unsafe.Pointer {
	return unsafe.Add(r.base, off)
}

// offsetOf reports the offset of ptr from the start, and whether ptr lies inside the region.
func (r *Region) offsetOf(ptr unsafe.Pointer) (uintptr, bool) {
	p := uintptr(ptr)
	if p < r.start || p >= r.end {
		return 0, false
	}
	return p - r.start, true
}
