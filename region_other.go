// SPDX-License-Identifier: Apache-2.0

//go:build !(linux || darwin)

package freelist

import "fmt"

// MapRegion falls back to Go heap memory on platforms without anonymous mmap.
func MapRegion(size int) (*Region, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrRegionTooSmall, size)
	}
	return NewRegion(make([]byte, size))
}
