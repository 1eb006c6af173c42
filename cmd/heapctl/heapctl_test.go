// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// workloadPath returns the path of a workload shipped with the trace package
func workloadPath(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join("..", "..", "internal", "trace", "testdata", name)
	_, err := os.Stat(path)
	require.NoError(t, err, "test workload not found")
	return path
}

func resetFlags() {
	verbose, quiet, jsonOut = false, false, false
	replayAllocator, replaySize, replayMmap = "", "", false
	layoutSize, layoutAllocs, layoutFrees = "1KB", nil, nil
}

func TestReplayCommand(t *testing.T) {
	tests := []struct {
		name        string
		workload    string
		allocator   string
		size        string
		mmap        bool
		wantErr     bool
		wantContain []string
	}{
		{
			name:        "free list",
			workload:    "reuse.yaml",
			wantContain: []string{"allocator: freelist", "cap: 1.00KB", "free"},
		},
		{
			name:        "bump",
			workload:    "bump.yaml",
			wantContain: []string{"allocator: bump", "[exhausted]", "exhausted: 1"},
		},
		{
			name:        "allocator override",
			workload:    "reuse.yaml",
			allocator:   "bump",
			wantContain: []string{"allocator: bump"},
		},
		{
			name:        "size override with mmap",
			workload:    "reuse.yaml",
			size:        "4KB",
			mmap:        true,
			wantContain: []string{"cap: 4.00KB"},
		},
		{
			name:      "unknown allocator",
			workload:  "reuse.yaml",
			allocator: "buddy",
			wantErr:   true,
		},
		{
			name:     "bad size",
			workload: "reuse.yaml",
			size:     "lots",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags()
			replayAllocator = tt.allocator
			replaySize = tt.size
			replayMmap = tt.mmap

			var out bytes.Buffer
			err := runReplay(&out, workloadPath(t, tt.workload))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			for _, want := range tt.wantContain {
				require.Contains(t, out.String(), want)
			}
		})
	}
}

func TestReplayMissingFile(t *testing.T) {
	resetFlags()
	err := runReplay(&bytes.Buffer{}, filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestReplayJSON(t *testing.T) {
	resetFlags()
	jsonOut = true

	var out bytes.Buffer
	require.NoError(t, runReplay(&out, workloadPath(t, "reuse.yaml")))

	var report map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	require.Equal(t, "freelist", report["allocator"])
	require.Contains(t, report, "blocks")
}

func TestLayoutCommand(t *testing.T) {
	resetFlags()
	layoutSize = "256"
	layoutAllocs = []int{16, 32, 8, 1024}
	layoutFrees = []int{0}

	var out bytes.Buffer
	require.NoError(t, runLayout(&out))
	require.Contains(t, out.String(), "alloc 0 (16 bytes): @8, freed")
	require.Contains(t, out.String(), "alloc 1 (32 bytes): @32")
	require.Contains(t, out.String(), "alloc 3 (1024 bytes): exhausted")
	require.Contains(t, out.String(), "cap: 256")
}

func TestLayoutJSON(t *testing.T) {
	resetFlags()
	jsonOut = true
	layoutSize = "128"
	layoutAllocs = []int{16}

	var out bytes.Buffer
	require.NoError(t, runLayout(&out))

	var res layoutResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	require.Len(t, res.Allocs, 1)
	require.Len(t, res.Blocks, 2)
	require.False(t, res.Blocks[0].Free)
	require.True(t, res.Blocks[1].Free)
	require.Equal(t, 128, res.Cap)
}

func TestLayoutErrors(t *testing.T) {
	resetFlags()
	layoutAllocs = []int{16}
	layoutFrees = []int{3}
	require.Error(t, runLayout(&bytes.Buffer{}))

	resetFlags()
	layoutSize = "4"
	require.Error(t, runLayout(&bytes.Buffer{}))
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	versionCmd.Run(versionCmd, nil)
	require.Contains(t, out.String(), "heapctl dev")
}
