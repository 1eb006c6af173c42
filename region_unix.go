// SPDX-License-Identifier: Apache-2.0

//go:build linux || darwin

package freelist

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// MapRegion reserves size bytes of anonymous memory outside the Go heap and
// wraps it in a Region. Close unmaps the memory; an allocator built over the
// region closes it on Release.
func MapRegion(size int) (*Region, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrRegionTooSmall, size)
	}
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("freelist: mmap %d bytes: %w", size, err)
	}
	r, err := NewRegion(data)
	if err != nil {
		_ = unix.Munmap(data)
		return nil, err
	}
	r.unmap = func() error {
		if err := unix.Munmap(data); err != nil {
			return fmt.Errorf("freelist: munmap: %w", err)
		}
		return nil
	}
	return r, nil
}
