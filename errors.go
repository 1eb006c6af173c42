// SPDX-License-Identifier: Apache-2.0

package freelist

import "errors"

var (
	// ErrRegionTooSmall indicates that the buffer cannot hold a single block header
	// once it has been trimmed to word alignment.
	ErrRegionTooSmall = errors.New("freelist: region too small to hold a block header")

	// ErrInvalidAlignment indicates an alignment that is not a power of two or
	// exceeds the machine word.
	ErrInvalidAlignment = errors.New("freelist: alignment must be a power of two no larger than a word")

	// ErrInvalidPointer indicates a pointer that does not address the payload of a block.
	ErrInvalidPointer = errors.New("freelist: pointer does not address a block payload")

	// ErrDoubleFree indicates an attempt to free a block that is already free.
	ErrDoubleFree = errors.New("freelist: block is already free")

	// ErrCorruptHeap indicates that the block headers no longer partition the region.
	ErrCorruptHeap = errors.New("freelist: corrupt heap")
)
