// SPDX-License-Identifier: Apache-2.0

package freelist

import (
	"fmt"
)

// Block describes one block of a FreeList as read from its header.
type Block struct {
	Offset uintptr `json:"offset"` // offset of the header from the region start
	Size   uintptr `json:"size"`   // header plus payload, in bytes
	Free   bool    `json:"free"`
}

// Payload returns the payload capacity of the block.
func (b Block) Payload() uintptr {
	return b.Size - headerWidth
}

// Stats summarizes the block layout of a FreeList.
type Stats struct {
	Blocks      int     `json:"blocks"`
	FreeBlocks  int     `json:"free_blocks"`
	UsedBlocks  int     `json:"used_blocks"`
	FreeBytes   uintptr `json:"free_bytes"`   // bytes held by free blocks, headers included
	UsedBytes   uintptr `json:"used_bytes"`   // bytes held by allocated blocks, headers included
	LargestFree uintptr `json:"largest_free"` // payload capacity of the largest free block
}

// HeaderWidth returns the size of the in-band block header in bytes.
func HeaderWidth() uintptr {
	return headerWidth
}

// Walk calls fn for each block in address order until fn returns false.
// The walk stops early at a header that would leave the region or not advance.
func (f *FreeList) Walk(fn func(Block) bool) {
	if f.region == nil {
		return
	}
	capacity := f.region.size()
	for cursor := uintptr(0); cursor < capacity; {
		h := f.region.header(cursor)
		size := h.size()
		if size == 0 || size > capacity-cursor {
			return
		}
		if !fn(Block{Offset: cursor, Size: size, Free: h.free()}) {
			return
		}
		cursor += size
	}
}

// Stats walks the heap and returns a summary of its blocks.
func (f *FreeList) Stats() Stats {
	var s Stats
	f.Walk(func(b Block) bool {
		s.Blocks++
		if b.Free {
			s.FreeBlocks++
			s.FreeBytes += b.Size
			if p := b.Payload(); p > s.LargestFree {
				s.LargestFree = p
			}
		} else {
			s.UsedBlocks++
			s.UsedBytes += b.Size
		}
		return true
	})
	return s
}

// Check verifies that the block headers partition the region without gaps or
// overlaps and that the allocated bytes match Len. Failures wrap ErrCorruptHeap.
func (f *FreeList) Check() error {
	if f.region == nil {
		return nil
	}
	capacity := f.region.size()
	var cursor, used uintptr
	for cursor < capacity {
		h := f.region.header(cursor)
		size := h.size()
		switch {
		case size < headerWidth:
			return fmt.Errorf("%w: block at offset %d has size %d", ErrCorruptHeap, cursor, size)
		case size%wordSize != 0:
			return fmt.Errorf("%w: block at offset %d has unaligned size %d", ErrCorruptHeap, cursor, size)
		case size > capacity-cursor:
			return fmt.Errorf("%w: block at offset %d with size %d overruns region of %d bytes",
				ErrCorruptHeap, cursor, size, capacity)
		}
		if !h.free() {
			used += size
		}
		cursor += size
	}
	if used != f.used {
		return fmt.Errorf("%w: allocated blocks hold %d bytes, accounting says %d", ErrCorruptHeap, used, f.used)
	}
	return nil
}
