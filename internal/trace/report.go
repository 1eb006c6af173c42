// SPDX-License-Identifier: Apache-2.0

package trace

import (
	"encoding/json"
	"fmt"
	"io"

	freelist "github.com/wundergraph/go-freelist"
)

// WriteText renders the report for a terminal.
func (r *Report) WriteText(w io.Writer) error {
	ew := &errWriter{w: w}

	ew.printf("allocator: %s\n", r.Allocator)
	for _, res := range r.Results {
		ew.printf("%4d  %-7s", res.Index, res.Op)
		if res.ID != "" {
			ew.printf(" %-8s", res.ID)
		}
		if res.Size != 0 {
			ew.printf(" %8d", uint64(res.Size))
		}
		if res.Offset >= 0 {
			ew.printf(" @%d", res.Offset)
		}
		if res.Status != StatusOK {
			ew.printf(" [%s]", res.Status)
		}
		ew.printf("\n")
	}

	ew.printf("\nlen: %s  cap: %s  peak: %s  exhausted: %d\n",
		Size(r.Len), Size(r.Cap), Size(r.Peak), r.Exhausted)

	if r.Stats != nil {
		ew.printf("blocks: %d (%d free, %d used)  free bytes: %d  largest free: %d\n",
			r.Stats.Blocks, r.Stats.FreeBlocks, r.Stats.UsedBlocks,
			r.Stats.FreeBytes, r.Stats.LargestFree)
	}
	if len(r.Blocks) > 0 {
		ew.printf("\n")
		WriteBlocks(ew, r.Blocks)
	}
	return ew.err
}

// WriteBlocks prints one line per block in address order.
func WriteBlocks(w io.Writer, blocks []freelist.Block) {
	for _, b := range blocks {
		state := "used"
		if b.Free {
			state = "free"
		}
		fmt.Fprintf(w, "  %6d  %6d  %s\n", b.Offset, b.Size, state)
	}
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	e.err = err
	return n, err
}

func (e *errWriter) printf(format string, args ...any) {
	fmt.Fprintf(e, format, args...)
}
