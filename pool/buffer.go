// Package pool provides sync.Pool wrappers used on the encode path.
package pool

import (
	"sync"
	"unicode/utf8"
)

// Buffer is a reusable byte buffer for building wire text.
type Buffer struct {
	buf []byte
}

var bufferPool = sync.Pool{
	New: func() any {
		return &Buffer{buf: make([]byte, 0, 512)}
	},
}

// AcquireBuffer gets a Buffer from the pool.
// Call Release when done.
func AcquireBuffer() *Buffer {
	b := bufferPool.Get().(*Buffer)
	b.buf = b.buf[:0]
	return b
}

// Release returns the Buffer to the pool.
func (b *Buffer) Release() {
	if b == nil {
		return
	}
	if cap(b.buf) <= 64*1024 {
		bufferPool.Put(b)
	}
}

// Len returns the number of bytes written.
func (b *Buffer) Len() int {
	return len(b.buf)
}

// WriteString appends s.
func (b *Buffer) WriteString(s string) {
	b.buf = append(b.buf, s...)
}

// WriteByte appends c.
func (b *Buffer) WriteByte(c byte) error {
	b.buf = append(b.buf, c)
	return nil
}

// WriteRune appends the UTF-8 encoding of r.
func (b *Buffer) WriteRune(r rune) {
	b.buf = utf8.AppendRune(b.buf, r)
}

// TrimSuffixRune removes trailing occurrences of r.
func (b *Buffer) TrimSuffixRune(r rune) {
	for len(b.buf) > 0 {
		last, size := utf8.DecodeLastRune(b.buf)
		if last != r {
			return
		}
		b.buf = b.buf[:len(b.buf)-size]
	}
}

// String returns the buffer contents as a new string.
func (b *Buffer) String() string {
	return string(b.buf)
}

// Build runs fn with a pooled Buffer and returns the resulting string.
func Build(fn func(b *Buffer)) string {
	b := AcquireBuffer()
	fn(b)
	s := b.String()
	b.Release()
	return s
}
