package freelist

import (
	"slices"
	"sync"
	"weak"
)

const (
	defaultPoolHeapSize = 1024 * 1024 // 1MB
	minPoolHeapSize     = 4 * 1024
	poolSizeWindow      = 50
)

// Pool provides a thread-safe pool of FreeList heaps for workloads that repeatedly
// build up and tear down short-lived allocations.
//
// Items are stored as weak pointers, so the GC can reclaim an idle heap at any
// time. Acquire tries to get a strong pointer while removing an item from the pool;
// Release resets the heap and turns the item back into a weak pointer.
// Heap sizes are learned per key from the peak usage recorded on Release.
type Pool struct {
	pool  []weak.Pointer[PoolItem]
	sizes map[uint64]*poolItemSize
	opts  []FreeListOption
	mu    sync.Mutex
}

// poolItemSize tracks the peak usage across the last poolSizeWindow releases of a key
type poolItemSize struct {
	count      int
	totalBytes int
}

// PoolItem wraps a FreeList for use in the pool
type PoolItem struct {
	Heap *FreeList
	Key  uint64
}

// NewPool creates a new Pool. opts are applied to every heap the pool creates.
func NewPool(opts ...FreeListOption) *Pool {
	return &Pool{
		sizes: make(map[uint64]*poolItemSize),
		opts:  opts,
	}
}

// Acquire returns a reset heap for key. Pooled heaps that are still alive and
// at least as large as the size learned for key are reused, most recently
// released first; otherwise a new heap of that size is created.
func (p *Pool) Acquire(key uint64) *PoolItem {
	p.mu.Lock()
	defer p.mu.Unlock()

	want := p.heapSize(key)
	for i := len(p.pool) - 1; i >= 0; i-- {
		v := p.pool[i].Value()
		if v == nil {
			// collected by the GC
			p.pool = slices.Delete(p.pool, i, i+1)
			continue
		}
		if v.Heap.Cap() < want {
			continue
		}
		p.pool = slices.Delete(p.pool, i, i+1)
		v.Key = key
		return v
	}

	heap, err := NewFreeList(make([]byte, want), p.opts...)
	if err != nil {
		// heapSize never goes below minPoolHeapSize, so only a bad option gets here
		panic(err)
	}
	return &PoolItem{
		Heap: heap,
		Key:  key,
	}
}

// Release returns a heap to the pool for reuse.
// Its peak usage is recorded to size future heaps for the same key.
func (p *Pool) Release(item *PoolItem) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.release(item)
}

// ReleaseMany returns several heaps to the pool under a single lock.
func (p *Pool) ReleaseMany(items []*PoolItem) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, item := range items {
		p.release(item)
	}
}

func (p *Pool) release(item *PoolItem) {
	peak := item.Heap.Peak()
	item.Heap.Reset()

	if size, ok := p.sizes[item.Key]; ok {
		if size.count == poolSizeWindow {
			size.count = 1
			size.totalBytes = size.totalBytes / poolSizeWindow
		}
		size.count++
		size.totalBytes += peak
	} else {
		p.sizes[item.Key] = &poolItemSize{
			count:      1,
			totalBytes: peak,
		}
	}

	item.Key = 0
	p.pool = append(p.pool, weak.Make(item))
}

// heapSize returns the heap size for a key: the average recorded peak,
// or 1MB when nothing was recorded yet.
func (p *Pool) heapSize(key uint64) int {
	if size, ok := p.sizes[key]; ok {
		return max(size.totalBytes/size.count, minPoolHeapSize)
	}
	return defaultPoolHeapSize
}
