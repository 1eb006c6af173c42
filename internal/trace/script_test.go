// SPDX-License-Identifier: Apache-2.0

package trace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		want    Size
		wantErr bool
	}{
		{in: "4096", want: 4096},
		{in: " 64 ", want: 64},
		{in: "4KB", want: 4 * 1024},
		{in: "1MB", want: 1024 * 1024},
		{in: "lots", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSize(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestParseFile(t *testing.T) {
	f, err := os.Open(filepath.Join("testdata", "reuse.yaml"))
	require.NoError(t, err)
	defer f.Close()

	s, err := Parse(f)
	require.NoError(t, err)
	require.Equal(t, KindFreeList, s.Allocator)
	require.Equal(t, Size(1024), s.Size)
	require.False(t, s.PreserveOnResize)
	require.Nil(t, s.Zeroing)
	require.Len(t, s.Ops, 6)
	require.Equal(t, Op{Op: OpWrite, ID: "a", Data: "hello"}, s.Ops[2])
}

func TestParseEmpty(t *testing.T) {
	s, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	require.Equal(t, KindFreeList, s.Allocator)
	require.Empty(t, s.Ops)
}

func TestParseDefaultsAllocator(t *testing.T) {
	s, err := Parse(strings.NewReader("size: 128\nzeroing: false\n"))
	require.NoError(t, err)
	require.Equal(t, KindFreeList, s.Allocator)
	require.NotNil(t, s.Zeroing)
	require.False(t, *s.Zeroing)
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse(strings.NewReader("size: 128\ncolour: blue\n"))
	require.Error(t, err)
}

func TestParseRejectsBadSize(t *testing.T) {
	_, err := Parse(strings.NewReader("size: huge\n"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		script  string
		wantErr error
	}{
		{
			name:    "unknown allocator",
			script:  "allocator: buddy\n",
			wantErr: ErrUnknownAllocator,
		},
		{
			name:    "unknown op",
			script:  "ops:\n  - {op: defrag}\n",
			wantErr: ErrUnknownOp,
		},
		{
			name:    "alloc without id",
			script:  "ops:\n  - {op: alloc, size: 8}\n",
			wantErr: ErrMissingID,
		},
		{
			name:    "alloc without size",
			script:  "ops:\n  - {op: alloc, id: a}\n",
			wantErr: ErrMissingSize,
		},
		{
			name:    "alloc of live id",
			script:  "ops:\n  - {op: alloc, id: a, size: 8}\n  - {op: alloc, id: a, size: 8}\n",
			wantErr: ErrDuplicateID,
		},
		{
			name:    "free of unknown id",
			script:  "ops:\n  - {op: free, id: a}\n",
			wantErr: ErrUnknownID,
		},
		{
			name:    "double free",
			script:  "ops:\n  - {op: alloc, id: a, size: 8}\n  - {op: free, id: a}\n  - {op: free, id: a}\n",
			wantErr: ErrUnknownID,
		},
		{
			name:    "use after reset",
			script:  "ops:\n  - {op: alloc, id: a, size: 8}\n  - {op: reset}\n  - {op: write, id: a, data: x}\n",
			wantErr: ErrUnknownID,
		},
		{
			name:    "resize to zero",
			script:  "ops:\n  - {op: alloc, id: a, size: 8}\n  - {op: resize, id: a}\n",
			wantErr: ErrMissingSize,
		},
		{
			name:    "write past the allocation",
			script:  "ops:\n  - {op: alloc, id: a, size: 4}\n  - {op: write, id: a, data: hello}\n",
			wantErr: ErrDataTooLong,
		},
		{
			name:   "write after resize",
			script: "ops:\n  - {op: alloc, id: a, size: 4}\n  - {op: resize, id: a, size: 8}\n  - {op: write, id: a, data: hello}\n",
		},
		{
			name:   "realloc after free",
			script: "ops:\n  - {op: alloc, id: a, size: 4}\n  - {op: free, id: a}\n  - {op: alloc, id: a, size: 4}\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.script))
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSizeString(t *testing.T) {
	require.Equal(t, "1.00KB", Size(1024).String())
}
