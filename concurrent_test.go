// SPDX-License-Identifier: Apache-2.0

package freelist

import (
	"sync"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestConcurrentLen(t *testing.T) {
	heap := NewConcurrent(newTestHeap(t, 1024))

	require.Equal(t, 0, heap.Len())

	ptr1 := heap.Alloc(100, 8)
	require.NotNil(t, ptr1)
	require.Equal(t, int(headerWidth+104), heap.Len())

	ptr2 := heap.Alloc(200, 8)
	require.NotNil(t, ptr2)
	require.Equal(t, int(2*headerWidth+304), heap.Len())

	heap.Free(ptr1, 100)
	require.Equal(t, int(headerWidth+200), heap.Len())
}

func TestConcurrentLenCapAfterReset(t *testing.T) {
	heap := NewConcurrent(newTestHeap(t, 1024))

	require.NotNil(t, heap.Alloc(100, 8))
	require.Equal(t, 1024, heap.Cap())

	heap.Reset()
	require.Equal(t, 0, heap.Len())
	require.Equal(t, 1024, heap.Cap())
	require.Equal(t, int(headerWidth+104), heap.Peak())

	heap.Release()
	require.Equal(t, 0, heap.Len())
	require.Equal(t, 0, heap.Cap())
}

func TestConcurrentAccess(t *testing.T) {
	base := newTestHeap(t, 1024*1024)
	heap := NewConcurrent(base)

	const numGoroutines = 10
	const allocationsPerGoroutine = 100

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(fill byte) {
			defer wg.Done()
			ptrs := make([]unsafe.Pointer, 0, allocationsPerGoroutine)
			for j := 0; j < allocationsPerGoroutine; j++ {
				ptr := heap.Alloc(10, 8)
				if ptr == nil {
					t.Error("allocation failed")
					return
				}
				b := unsafe.Slice((*byte)(ptr), 10)
				for k := range b {
					b[k] = fill
				}
				ptrs = append(ptrs, ptr)
			}
			for _, ptr := range ptrs {
				for _, c := range unsafe.Slice((*byte)(ptr), 10) {
					if c != fill {
						t.Error("payload overwritten by another goroutine")
						return
					}
				}
			}
			for j, ptr := range ptrs {
				if j%2 == 0 {
					heap.Free(ptr, 10)
				}
			}
		}(byte(i + 1))
	}

	wg.Wait()

	expectedLen := numGoroutines * allocationsPerGoroutine / 2 * int(headerWidth+16)
	require.Equal(t, expectedLen, heap.Len())
	require.NoError(t, base.Check())
}

func TestConcurrentResize(t *testing.T) {
	heap := NewConcurrent(newTestHeap(t, 1024))

	ptr := heap.Alloc(16, 8)
	require.NotNil(t, ptr)
	grown := heap.Resize(ptr, 16, 32)
	require.NotNil(t, grown)
	require.Equal(t, int(headerWidth+32), heap.Len())
}

func TestConcurrentWithTypes(t *testing.T) {
	heap := NewConcurrent(newTestHeap(t, 1024))

	type TestStruct struct {
		a int64
		b int32
		c int16
	}

	ptr1 := Allocate[TestStruct](heap)
	require.NotNil(t, ptr1)
	expectedSize := headerWidth + unsafe.Sizeof(TestStruct{})
	require.Equal(t, int(expectedSize), heap.Len())

	slice := AllocateSlice[int](heap, 10, 20)
	require.Len(t, slice, 10)
	require.Equal(t, 20, cap(slice))

	expectedSize += headerWidth + unsafe.Sizeof(int(0))*20
	require.Equal(t, int(expectedSize), heap.Len())

	Deallocate(heap, ptr1)
	FreeSlice(heap, slice)
	require.Equal(t, 0, heap.Len())
}

func TestConcurrentWrappingNil(t *testing.T) {
	heap := NewConcurrent(nil)

	require.Nil(t, heap.Alloc(10, 1))
	require.Nil(t, heap.Resize(nil, 0, 10))
	require.Equal(t, 0, heap.Len())
	require.Equal(t, 0, heap.Cap())
	require.Equal(t, 0, heap.Peak())

	heap.Free(nil, 0)
	heap.Reset()
	heap.Release()
}

func TestConcurrentWrappingMockAllocator(t *testing.T) {
	heap := NewConcurrent(&mockAllocator{})

	require.Equal(t, 0, heap.Len())
	require.Equal(t, int(^uintptr(0)>>1), heap.Cap())

	ptr := heap.Alloc(100, 1)
	require.NotNil(t, ptr)
	require.Equal(t, 0, heap.Len())
}

func BenchmarkConcurrentAllocFree(b *testing.B) {
	heap := NewConcurrent(newTestHeap(b, 1024*1024))

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if ptr := heap.Alloc(64, 8); ptr != nil {
				heap.Free(ptr, 64)
			}
		}
	})
}
