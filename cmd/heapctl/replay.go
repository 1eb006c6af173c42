// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/wundergraph/go-freelist/internal/trace"
)

var (
	replayAllocator string
	replaySize      string
	replayMmap      bool
)

func init() {
	cmd := newReplayCmd()
	cmd.Flags().StringVar(&replayAllocator, "allocator", "", "Override the workload's allocator (freelist or bump)")
	cmd.Flags().StringVar(&replaySize, "size", "", "Override the workload's region size, e.g. 4096 or 64KB")
	cmd.Flags().BoolVar(&replayMmap, "mmap", false, "Back the region with anonymous mapped memory")
	rootCmd.AddCommand(cmd)
}

func newReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <trace.yaml>",
		Short: "Replay a workload and report the outcome",
		Long: `The replay command runs every op of a YAML workload against a fresh
allocator and prints one line per op, the final usage and the block layout.
Failed allocations are reported as exhausted; a failed check op is an error.

Example:
  heapctl replay workload.yaml
  heapctl replay workload.yaml --allocator bump --size 64KB
  heapctl replay workload.yaml --mmap --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd.OutOrStdout(), args[0])
		},
	}
	return cmd
}

func runReplay(out io.Writer, path string) error {
	printVerbose(out, "Loading workload: %s\n", path)

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open workload: %w", err)
	}
	defer f.Close()

	script, err := trace.Parse(f)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if replayAllocator != "" {
		script.Allocator = replayAllocator
		if err := script.Validate(); err != nil {
			return err
		}
	}
	if replaySize != "" {
		if script.Size, err = trace.ParseSize(replaySize); err != nil {
			return err
		}
	}

	region, err := trace.NewRegion(script.Size, replayMmap)
	if err != nil {
		return fmt.Errorf("failed to create region: %w", err)
	}
	a, err := script.NewAllocator(region, newLogger(os.Stderr))
	if err != nil {
		_ = region.Close()
		return err
	}
	defer a.Release()

	printVerbose(out, "Region: %s (%d usable bytes, mmap=%t)\n", script.Size, region.Len(), replayMmap)

	report, err := trace.Run(script, a)
	if err != nil {
		return fmt.Errorf("replay stopped: %w", err)
	}

	if jsonOut {
		return report.WriteJSON(out)
	}
	if quiet {
		return nil
	}
	return report.WriteText(out)
}
