// SPDX-License-Identifier: Apache-2.0

package freelist

import (
	"fmt"
	"log/slog"
	"unsafe"
)

// FreeList is an implicit free-list heap over a single Region.
//
// The region is partitioned into blocks, each led by a one-word header that
// stores the block size and a free flag. The next block always starts at
// the current block's offset plus its size; no other bookkeeping exists.
// Allocation scans blocks in address order and takes the first free one that
// fits (first-fit), splitting off the remainder as a new free block when it
// is large enough to hold a header and a word of payload. Freed blocks are
// never merged with their neighbours.
//
// Request sizes are rounded up to a multiple of the machine word, so every
// block size is a word multiple and every payload is word aligned.
//
// A FreeList is not safe for concurrent use. Wrap it with NewConcurrent when
// several goroutines share it.
type FreeList struct {
	region *Region
	used   uintptr // bytes held by allocated blocks, headers included
	peak   uintptr

	defaultAlignment uintptr
	zero             bool
	preserve         bool
	strict           bool
	logger           *slog.Logger
}

// FreeListOption represents a configuration option for a FreeList.
type FreeListOption func(*FreeList)

// WithDefaultAlignment sets the alignment used when Alloc is called with alignment 0
// and by Resize.
func WithDefaultAlignment(alignment uintptr) FreeListOption {
	return func(f *FreeList) {
		f.defaultAlignment = alignment
	}
}

// WithZeroing controls whether payloads are cleared before they are handed out.
// Zeroing is enabled by default.
func WithZeroing(enabled bool) FreeListOption {
	return func(f *FreeList) {
		f.zero = enabled
	}
}

// WithPreserveOnResize makes Resize copy min(old capacity, new size) payload
// bytes into the new block. By default Resize does not copy.
func WithPreserveOnResize(enabled bool) FreeListOption {
	return func(f *FreeList) {
		f.preserve = enabled
	}
}

// WithStrictChecks makes Free and Resize panic on pointers that do not address
// a block payload and on double frees. Checking walks the block list, so each
// call becomes linear in the number of blocks.
func WithStrictChecks(enabled bool) FreeListOption {
	return func(f *FreeList) {
		f.strict = enabled
	}
}

// WithLogger sets the logger that receives debug records about exhaustion,
// resets and releases. Nothing is logged by default.
func WithLogger(logger *slog.Logger) FreeListOption {
	return func(f *FreeList) {
		f.logger = logger
	}
}

// NewFreeList creates a FreeList that exclusively manages buf.
// It fails with ErrRegionTooSmall when buf cannot hold one block header.
func NewFreeList(buf []byte, opts ...FreeListOption) (*FreeList, error) {
	r, err := NewRegion(buf)
	if err != nil {
		return nil, err
	}
	return NewFreeListFromRegion(r, opts...)
}

// NewFreeListFromRegion creates a FreeList over r and takes ownership of it:
// Release closes the region.
func NewFreeListFromRegion(r *Region, opts ...FreeListOption) (*FreeList, error) {
	if r == nil || r.size() < headerWidth {
		return nil, ErrRegionTooSmall
	}
	f := &FreeList{
		region:           r,
		defaultAlignment: wordSize,
		zero:             true,
	}
	for _, opt := range opts {
		opt(f)
	}
	if !isPowerOfTwo(f.defaultAlignment) || f.defaultAlignment > wordSize {
		return nil, fmt.Errorf("%w: %d", ErrInvalidAlignment, f.defaultAlignment)
	}
	if f.logger == nil {
		f.logger = slog.New(slog.DiscardHandler)
	}
	f.init()
	return f, nil
}

// init writes a single free block spanning the whole region.
func (f *FreeList) init() {
	f.region.setHeader(0, makeHeader(f.region.size(), true))
	f.used = 0
}

// Alloc satisfies the Allocator interface.
// It returns nil when size is 0, when alignment is not a power of two or is
// larger than a word, or when no free block can hold size bytes.
func (f *FreeList) Alloc(size, alignment uintptr) unsafe.Pointer {
	if f.region == nil || size == 0 {
		return nil
	}
	if alignment == 0 {
		alignment = f.defaultAlignment
	}
	if !isPowerOfTwo(alignment) || alignment > wordSize {
		return nil
	}
	off, ok := f.alloc(size)
	if !ok {
		return nil
	}
	ptr := f.region.at(off)
	if f.zero {
		clear(unsafe.Slice((*byte)(ptr), size))
	}
	return ptr
}

// alloc runs the first-fit scan and returns the payload offset of the selected block.
// No header is written unless a block is selected.
func (f *FreeList) alloc(size uintptr) (uintptr, bool) {
	capacity := f.region.size()
	if size > capacity-headerWidth {
		f.logger.Debug("freelist: request exceeds region", "size", size, "cap", capacity)
		return 0, false
	}
	need := alignUp(size, wordSize)

	for cursor := uintptr(0); cursor < capacity; {
		h := f.region.header(cursor)
		blockSize := h.size()
		if blockSize == 0 {
			// a zero size would never advance; treat the rest of the region as unusable
			break
		}
		if h.free() && blockSize >= headerWidth+need {
			if remainder := blockSize - headerWidth - need; remainder >= headerWidth+minPayload {
				f.region.setHeader(cursor+headerWidth+need, makeHeader(remainder, true))
				blockSize = headerWidth + need
			}
			f.region.setHeader(cursor, makeHeader(blockSize, false))
			f.used += blockSize
			if f.used > f.peak {
				f.peak = f.used
			}
			return cursor + headerWidth, true
		}
		cursor += blockSize
	}

	f.logger.Debug("freelist: exhausted", "size", size, "len", f.used, "cap", capacity)
	return 0, false
}

// headerOf returns the header offset for a payload pointer. ok is false for
// pointers that cannot be payloads of this region.
func (f *FreeList) headerOf(ptr unsafe.Pointer) (uintptr, bool) {
	if f.region == nil || ptr == nil {
		return 0, false
	}
	off, ok := f.region.offsetOf(ptr)
	if !ok || off < headerWidth || off%wordSize != 0 {
		return 0, false
	}
	return off - headerWidth, true
}

// isBlockStart reports whether a block header starts at off.
func (f *FreeList) isBlockStart(off uintptr) bool {
	found := false
	f.Walk(func(b Block) bool {
		if b.Offset >= off {
			found = b.Offset == off
			return false
		}
		return true
	})
	return found
}

// Free satisfies the Allocator interface.
// Pointers outside the region are ignored. size is not consulted.
func (f *FreeList) Free(ptr unsafe.Pointer, _ uintptr) {
	off, ok := f.headerOf(ptr)
	if !ok {
		if f.strict && ptr != nil && f.region != nil {
			if _, inside := f.region.offsetOf(ptr); inside {
				panic(ErrInvalidPointer)
			}
		}
		return
	}
	if f.strict && !f.isBlockStart(off) {
		panic(ErrInvalidPointer)
	}
	h := f.region.header(off)
	if h.free() {
		if f.strict {
			panic(ErrDoubleFree)
		}
		return
	}
	f.region.setHeader(off, makeHeader(h.size(), true))
	f.used -= h.size()
}

// Resize satisfies the Allocator interface.
//
// The block at ptr is freed first and a new block of newSize bytes is then
// allocated with the default alignment. The result may equal ptr. Payload
// bytes are copied only when WithPreserveOnResize is enabled. When the new
// allocation fails Resize returns nil and ptr has already been freed.
// A nil ptr behaves like Alloc; a newSize of 0 behaves like Free.
func (f *FreeList) Resize(ptr unsafe.Pointer, oldSize, newSize uintptr) unsafe.Pointer {
	if ptr == nil {
		return f.Alloc(newSize, 0)
	}
	if newSize == 0 {
		f.Free(ptr, oldSize)
		return nil
	}
	off, ok := f.headerOf(ptr)
	if !ok {
		if f.strict {
			panic(ErrInvalidPointer)
		}
		return nil
	}
	oldCap := f.region.header(off).size() - headerWidth

	f.Free(ptr, oldSize)
	newOff, ok := f.alloc(newSize)
	if !ok {
		return nil
	}

	newPtr := f.region.at(newOff)
	dst := unsafe.Slice((*byte)(newPtr), newSize)
	n := uintptr(0)
	if f.preserve {
		n = min(oldCap, newSize)
		copy(dst[:n], unsafe.Slice((*byte)(ptr), n))
	}
	if f.zero {
		clear(dst[n:])
	}
	return newPtr
}

// UsableSize returns the payload capacity of the block at ptr, which can
// exceed the requested size because of rounding and unsplit remainders.
// It returns 0 for pointers outside the region.
func (f *FreeList) UsableSize(ptr unsafe.Pointer) uintptr {
	off, ok := f.headerOf(ptr)
	if !ok {
		return 0
	}
	return f.region.header(off).size() - headerWidth
}

// Reset satisfies the Allocator interface.
// The region goes back to a single free block; Peak is kept.
func (f *FreeList) Reset() {
	if f.region == nil {
		return
	}
	f.init()
	f.logger.Debug("freelist: reset", "cap", f.region.size(), "peak", f.peak)
}

// Release satisfies the Allocator interface.
// Regions created by MapRegion are unmapped.
func (f *FreeList) Release() {
	if f.region == nil {
		return
	}
	if err := f.region.Close(); err != nil {
		f.logger.Warn("freelist: release region", "error", err)
	}
	f.region = nil
	f.used = 0
	f.logger.Debug("freelist: released", "peak", f.peak)
}

// Region returns the managed region, or nil after Release.
func (f *FreeList) Region() *Region {
	return f.region
}

// Len returns the number of bytes held by allocated blocks, headers included.
func (f *FreeList) Len() int {
	return int(f.used)
}

// Cap returns the size of the managed region.
func (f *FreeList) Cap() int {
	if f.region == nil {
		return 0
	}
	return f.region.Len()
}

// Peak returns the peak value of Len. It survives Reset.
func (f *FreeList) Peak() int {
	return int(f.peak)
}
