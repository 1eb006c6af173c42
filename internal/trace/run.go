// SPDX-License-Identifier: Apache-2.0

package trace

import (
	"fmt"
	"log/slog"
	"unsafe"

	freelist "github.com/wundergraph/go-freelist"
)

// Result statuses.
const (
	StatusOK        = "ok"
	StatusExhausted = "exhausted"
	StatusSkipped   = "skipped"
)

// Result records the outcome of one op.
type Result struct {
	Index  int    `json:"index"`
	Op     string `json:"op"`
	ID     string `json:"id,omitempty"`
	Size   Size   `json:"size,omitempty"`
	Offset int64  `json:"offset"` // payload offset from the region start, -1 if none
	Status string `json:"status"`
}

// Report is the outcome of a replay.
type Report struct {
	Allocator string           `json:"allocator"`
	Results   []Result         `json:"results"`
	Len       int              `json:"len"`
	Cap       int              `json:"cap"`
	Peak      int              `json:"peak"`
	Exhausted int              `json:"exhausted"`
	Stats     *freelist.Stats  `json:"stats,omitempty"`
	Blocks    []freelist.Block `json:"blocks,omitempty"`
}

// NewAllocator builds the allocator the script asks for over region.
// The allocator takes ownership of the region.
func (s *Script) NewAllocator(region *freelist.Region, logger *slog.Logger) (freelist.Allocator, error) {
	switch s.Allocator {
	case KindBump:
		return freelist.NewBumpFromRegion(region), nil
	case KindFreeList, "":
		opts := []freelist.FreeListOption{
			freelist.WithPreserveOnResize(s.PreserveOnResize),
			freelist.WithStrictChecks(s.StrictChecks),
		}
		if s.Zeroing != nil {
			opts = append(opts, freelist.WithZeroing(*s.Zeroing))
		}
		if logger != nil {
			opts = append(opts, freelist.WithLogger(logger))
		}
		return freelist.NewFreeListFromRegion(region, opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAllocator, s.Allocator)
	}
}

// NewRegion creates a word aligned region of size bytes, either on the Go
// heap or mapped from the operating system.
func NewRegion(size Size, mapped bool) (*freelist.Region, error) {
	if mapped {
		return freelist.MapRegion(int(size))
	}
	words := make([]uint64, (size+7)/8)
	return freelist.NewRegion(unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(words))), int(size)))
}

type allocation struct {
	ptr  unsafe.Pointer
	size uintptr
}

// Run replays the script against a. Exhaustion is recorded in the report and
// is not an error. Run fails only when a check op finds a corrupt heap.
func Run(s *Script, a freelist.Allocator) (*Report, error) {
	var region *freelist.Region
	if r, ok := a.(interface{ Region() *freelist.Region }); ok {
		region = r.Region()
	}
	offset := func(ptr unsafe.Pointer) int64 {
		if ptr == nil || region == nil {
			return -1
		}
		return int64(uintptr(ptr) - region.Start())
	}

	report := &Report{Allocator: s.Allocator}
	live := make(map[string]allocation)

	for i, op := range s.Ops {
		res := Result{Index: i, Op: op.Op, ID: op.ID, Size: op.Size, Offset: -1, Status: StatusOK}

		switch op.Op {
		case OpAlloc:
			ptr := a.Alloc(uintptr(op.Size), uintptr(op.Align))
			if ptr == nil {
				res.Status = StatusExhausted
				break
			}
			live[op.ID] = allocation{ptr: ptr, size: uintptr(op.Size)}
			res.Offset = offset(ptr)
		case OpFree:
			cur, ok := live[op.ID]
			if !ok {
				res.Status = StatusSkipped
				break
			}
			a.Free(cur.ptr, cur.size)
			delete(live, op.ID)
			res.Offset = offset(cur.ptr)
		case OpResize:
			cur, ok := live[op.ID]
			if !ok {
				res.Status = StatusSkipped
				break
			}
			ptr := a.Resize(cur.ptr, cur.size, uintptr(op.Size))
			if ptr == nil {
				// the old block is gone either way
				delete(live, op.ID)
				res.Status = StatusExhausted
				break
			}
			live[op.ID] = allocation{ptr: ptr, size: uintptr(op.Size)}
			res.Offset = offset(ptr)
		case OpWrite:
			cur, ok := live[op.ID]
			if !ok {
				res.Status = StatusSkipped
				break
			}
			copy(unsafe.Slice((*byte)(cur.ptr), cur.size), op.Data)
			res.Offset = offset(cur.ptr)
		case OpCheck:
			if c, ok := a.(interface{ Check() error }); ok {
				if err := c.Check(); err != nil {
					return report, fmt.Errorf("op %d: %w", i, err)
				}
			}
		case OpReset:
			a.Reset()
			clear(live)
		default:
			return report, fmt.Errorf("op %d: %w: %q", i, ErrUnknownOp, op.Op)
		}

		if res.Status == StatusExhausted {
			report.Exhausted++
		}
		report.Results = append(report.Results, res)
	}

	report.Len = a.Len()
	report.Cap = a.Cap()
	report.Peak = a.Peak()
	if heap, ok := a.(*freelist.FreeList); ok {
		stats := heap.Stats()
		report.Stats = &stats
		heap.Walk(func(b freelist.Block) bool {
			report.Blocks = append(report.Blocks, b)
			return true
		})
	}
	return report, nil
}
