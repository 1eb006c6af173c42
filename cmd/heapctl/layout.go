// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"os"
	"unsafe"

	"github.com/spf13/cobra"

	freelist "github.com/wundergraph/go-freelist"
	"github.com/wundergraph/go-freelist/internal/trace"
)

var (
	layoutSize   string
	layoutAllocs []int
	layoutFrees  []int
)

func init() {
	cmd := newLayoutCmd()
	cmd.Flags().StringVar(&layoutSize, "size", "1KB", "Region size, e.g. 512 or 1KB")
	cmd.Flags().IntSliceVar(&layoutAllocs, "alloc", nil, "Allocation sizes, in order")
	cmd.Flags().IntSliceVar(&layoutFrees, "free", nil, "Indexes of allocations to free afterwards")
	rootCmd.AddCommand(cmd)
}

func newLayoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Show the block layout after a sequence of allocations",
		Long: `The layout command allocates each --alloc size from a fresh free-list
heap, frees the allocations listed by --free and prints every block header.

Example:
  heapctl layout --size 1KB --alloc 16,32,8
  heapctl layout --size 256 --alloc 16,32,8 --free 0 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLayout(cmd.OutOrStdout())
		},
	}
	return cmd
}

type layoutResult struct {
	Allocs []layoutAlloc    `json:"allocs"`
	Stats  freelist.Stats   `json:"stats"`
	Blocks []freelist.Block `json:"blocks"`
	Len    int              `json:"len"`
	Cap    int              `json:"cap"`
}

type layoutAlloc struct {
	Size   int   `json:"size"`
	Offset int64 `json:"offset"` // payload offset, -1 when exhausted
	Freed  bool  `json:"freed,omitempty"`
}

func runLayout(out io.Writer) error {
	size, err := trace.ParseSize(layoutSize)
	if err != nil {
		return err
	}
	region, err := trace.NewRegion(size, false)
	if err != nil {
		return fmt.Errorf("failed to create region: %w", err)
	}
	heap, err := freelist.NewFreeListFromRegion(region, freelist.WithLogger(newLogger(os.Stderr)))
	if err != nil {
		return err
	}
	defer heap.Release()

	res := layoutResult{Allocs: make([]layoutAlloc, len(layoutAllocs))}
	ptrs := make([]unsafe.Pointer, len(layoutAllocs))
	for i, n := range layoutAllocs {
		if n < 0 {
			return fmt.Errorf("alloc %d: negative size %d", i, n)
		}
		res.Allocs[i] = layoutAlloc{Size: n, Offset: -1}
		ptrs[i] = heap.Alloc(uintptr(n), 0)
		if ptrs[i] != nil {
			res.Allocs[i].Offset = int64(uintptr(ptrs[i]) - region.Start())
		}
	}
	for _, i := range layoutFrees {
		if i < 0 || i >= len(ptrs) {
			return fmt.Errorf("free index %d out of range [0, %d)", i, len(ptrs))
		}
		heap.Free(ptrs[i], uintptr(layoutAllocs[i]))
		ptrs[i] = nil
		res.Allocs[i].Freed = true
	}

	res.Stats = heap.Stats()
	heap.Walk(func(b freelist.Block) bool {
		res.Blocks = append(res.Blocks, b)
		return true
	})
	res.Len = heap.Len()
	res.Cap = heap.Cap()

	if jsonOut {
		return printJSON(out, res)
	}

	for i, a := range res.Allocs {
		switch {
		case a.Offset < 0:
			printInfo(out, "alloc %d (%d bytes): exhausted\n", i, a.Size)
		case a.Freed:
			printInfo(out, "alloc %d (%d bytes): @%d, freed\n", i, a.Size, a.Offset)
		default:
			printInfo(out, "alloc %d (%d bytes): @%d\n", i, a.Size, a.Offset)
		}
	}
	printInfo(out, "\n  offset    size  state\n")
	if !quiet {
		trace.WriteBlocks(out, res.Blocks)
	}
	printInfo(out, "\nlen: %d  cap: %d  largest free: %d\n", res.Len, res.Cap, res.Stats.LargestFree)
	return nil
}
