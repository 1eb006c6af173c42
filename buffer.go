// SPDX-License-Identifier: Apache-2.0

package freelist

import (
	"errors"
	"io"
)

// minRead is the spare capacity ReadFrom asks for before each Read call.
const minRead = 512

var errNegativeRead = errors.New("freelist: reader returned negative count from Read")

// Buffer is a bytes.Buffer-like struct whose storage comes from an Allocator.
// Whenever the buffer grows, the new backing array is taken from the
// allocator and the old one is freed, so a FreeList can hand the space to the
// next request. When the allocator is nil or exhausted, the storage comes from
// the Go heap instead.
//
// Unread bytes always start at the beginning of the backing array; reads
// shift the remainder down.
type Buffer struct {
	alloc Allocator
	buf   []byte
}

// NewBuffer returns an empty Buffer drawing from a.
func NewBuffer(a Allocator) *Buffer {
	return &Buffer{alloc: a}
}

// Grow makes room for at least n more bytes without another allocation.
// It panics if n is negative.
func (b *Buffer) Grow(n int) {
	if n < 0 {
		panic("freelist: negative Buffer.Grow count")
	}
	need := len(b.buf) + n
	if need <= cap(b.buf) {
		return
	}
	grown := AllocateSlice[byte](b.alloc, len(b.buf), nextCap(cap(b.buf), need))
	copy(grown, b.buf)
	FreeSlice(b.alloc, b.buf)
	b.buf = grown
}

// Write implements io.Writer. It never returns an error.
func (b *Buffer) Write(p []byte) (int, error) {
	if len(p) > 0 {
		b.buf = SliceAppend(b.alloc, b.buf, p...)
	}
	return len(p), nil
}

// WriteByte implements io.ByteWriter.
func (b *Buffer) WriteByte(c byte) error {
	b.buf = SliceAppend(b.alloc, b.buf, c)
	return nil
}

// WriteString implements io.StringWriter.
func (b *Buffer) WriteString(s string) (int, error) {
	if len(s) > 0 {
		b.Grow(len(s))
		b.buf = append(b.buf, s...)
	}
	return len(s), nil
}

// ReadFrom implements io.ReaderFrom. It reads straight into the spare
// capacity of the buffer until r returns io.EOF, which is not reported.
func (b *Buffer) ReadFrom(r io.Reader) (n int64, err error) {
	for {
		b.Grow(minRead)
		m, rerr := r.Read(b.buf[len(b.buf):cap(b.buf)])
		if m < 0 {
			panic(errNegativeRead)
		}
		b.buf = b.buf[:len(b.buf)+m]
		n += int64(m)
		if rerr == io.EOF {
			return n, nil
		}
		if rerr != nil {
			return n, rerr
		}
	}
}

// WriteTo implements io.WriterTo. Bytes accepted by w are consumed even
// when w fails.
func (b *Buffer) WriteTo(w io.Writer) (n int64, err error) {
	if len(b.buf) == 0 {
		return 0, nil
	}
	m, err := w.Write(b.buf)
	if m > 0 {
		b.consume(m)
	}
	return int64(m), err
}

// Read implements io.Reader. It returns io.EOF alongside the last bytes when
// p is larger than what is left, and on every call once the buffer is empty.
func (b *Buffer) Read(p []byte) (int, error) {
	if len(b.buf) == 0 {
		return 0, io.EOF
	}
	n := copy(p, b.buf)
	b.consume(n)
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// ReadByte implements io.ByteReader.
func (b *Buffer) ReadByte() (byte, error) {
	if len(b.buf) == 0 {
		return 0, io.EOF
	}
	c := b.buf[0]
	b.consume(1)
	return c, nil
}

// Next consumes up to n bytes and returns them in a fresh Go slice, which
// stays valid after the buffer is written to or freed.
func (b *Buffer) Next(n int) []byte {
	n = min(n, len(b.buf))
	if n <= 0 {
		return []byte{}
	}
	out := append([]byte(nil), b.buf[:n]...)
	b.consume(n)
	return out
}

func (b *Buffer) consume(n int) {
	rest := copy(b.buf, b.buf[n:])
	b.buf = b.buf[:rest]
}

// Bytes returns the unread bytes. The slice aliases allocator memory and is
// valid only until the next modification of the buffer.
func (b *Buffer) Bytes() []byte {
	if b.buf == nil {
		return []byte{}
	}
	return b.buf
}

// String returns a copy of the unread bytes.
func (b *Buffer) String() string {
	return string(b.buf)
}

// Len returns the number of unread bytes.
func (b *Buffer) Len() int { return len(b.buf) }

// Cap returns the capacity of the backing array.
func (b *Buffer) Cap() int { return cap(b.buf) }

// Available returns how many bytes can be written without growing.
func (b *Buffer) Available() int { return cap(b.buf) - len(b.buf) }

// Reset empties the buffer and keeps the backing array.
func (b *Buffer) Reset() {
	b.buf = b.buf[:0]
}

// Truncate keeps the first n unread bytes.
// It panics if n is negative or greater than Len.
func (b *Buffer) Truncate(n int) {
	if n < 0 || n > len(b.buf) {
		panic("freelist: truncation out of range")
	}
	b.buf = b.buf[:n]
}

// Free returns the backing array to the allocator and leaves the buffer
// empty. The buffer can be written to again afterwards.
func (b *Buffer) Free() {
	FreeSlice(b.alloc, b.buf)
	b.buf = nil
}
