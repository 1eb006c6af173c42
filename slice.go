// SPDX-License-Identifier: Apache-2.0

package freelist

import (
	"math"
	"unsafe"
)

// Below this capacity SliceAppend doubles; above it, it grows by a quarter.
const growThreshold = 256

// AllocateSlice returns a []T of the given length and capacity whose backing
// array is carved out of a. When a is nil, cap is 0, the byte size overflows,
// or a is exhausted, the slice comes from make instead.
// T must not contain Go pointers.
func AllocateSlice[T any](a Allocator, len, cap int) []T {
	if a == nil || cap <= 0 || len > cap {
		return make([]T, len, cap)
	}
	n, ok := sliceBytes[T](cap)
	if !ok {
		return make([]T, len, cap)
	}
	var zero T
	ptr := (*T)(a.Alloc(n, unsafe.Alignof(zero)))
	if ptr == nil {
		return make([]T, len, cap)
	}
	return unsafe.Slice(ptr, cap)[:len]
}

// FreeSlice hands the backing array of s back to a. A FreeList ignores
// arrays that live outside its region, so slices that fell back to make are
// safe to pass.
func FreeSlice[T any](a Allocator, s []T) {
	if a == nil || cap(s) == 0 {
		return
	}
	n, _ := sliceBytes[T](cap(s))
	a.Free(unsafe.Pointer(unsafe.SliceData(s)), n)
}

// SliceAppend is append with the growth served by a. When s has to grow, its
// old backing array is freed once the elements have been copied, so s must be
// nil, Go memory, or a slice obtained from a; callers must not keep other
// references to the old array.
func SliceAppend[T any](a Allocator, s []T, data ...T) []T {
	if a == nil {
		return append(s, data...)
	}
	need := len(s) + len(data)
	if need <= cap(s) {
		return append(s, data...)
	}

	grown := AllocateSlice[T](a, len(s), nextCap(cap(s), need))
	copy(grown, s)
	grown = append(grown, data...)
	FreeSlice(a, s)
	return grown
}

// nextCap returns the capacity a slice of capacity old grows to when it must
// hold need elements.
func nextCap(old, need int) int {
	if old == 0 {
		return need
	}
	c := old
	for c < need {
		if c < growThreshold {
			c *= 2
		} else {
			c += c / 4
		}
	}
	return c
}

func sliceBytes[T any](n int) (uintptr, bool) {
	var zero T
	size := unsafe.Sizeof(zero)
	if size != 0 && uintptr(n) > math.MaxInt/size {
		return 0, false
	}
	return size * uintptr(n), true
}
