// SPDX-License-Identifier: Apache-2.0

package freelist

import "unsafe"

const (
	// wordSize is the fixed alignment of every header and payload.
	wordSize = unsafe.Sizeof(uintptr(0))

	// headerWidth is the in-band header: one machine word.
	headerWidth = wordSize

	// minPayload is the smallest payload a split may leave behind. Sizes are
	// rounded to the word, so one byte of payload already costs a word.
	minPayload = wordSize

	freeBit uintptr = 1
)

// header is the leading word of a block. Bit 0 is the free flag, the
// remaining bits hold the block size in bytes, header included. Sizes are
// word multiples, so bit 0 of a size is always clear.
type header uintptr

func makeHeader(size uintptr, free bool) header {
	h := header(size &^ freeBit)
	if free {
		h |= header(freeBit)
	}
	return h
}

func (h header) size() uintptr {
	return uintptr(h) &^ freeBit
}

func (h header) free() bool {
	return uintptr(h)&freeBit == freeBit
}

// header reads the block header at offset off.
func (r *Region) header(off uintptr) header {
	return *(*header)(r.at(off))
}

// setHeader writes h at offset off.
func (r *Region) setHeader(off uintptr, h header) {
	*(*header)(r.at(off)) = h
}

// alignUp rounds n up to a multiple of a, which must be a power of two.
func alignUp(n, a uintptr) uintptr {
	return (n + a - 1) &^ (a - 1)
}

func isPowerOfTwo(n uintptr) bool {
	return n != 0 && n&(n-1) == 0
}
