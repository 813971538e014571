package transform

import "fmt"

// Buffer is the growable output storage of a single run.
//
// The whole backing slice is usable: the driver writes into the window
// starting at the number of bytes produced so far and truncates to that
// count once the run is over.
type Buffer struct {
	b []byte
}

// NewBuffer allocates a buffer with size bytes of capacity. Sizes below one
// are raised to one so the first step always has somewhere to write.
func NewBuffer(size int) *Buffer {
	if size < 1 {
		size = 1
	}

	return &Buffer{b: make([]byte, size)}
}

// Cap returns the current capacity.
func (b *Buffer) Cap() int { return len(b.b) }

// Window returns the unwritten tail after the first written bytes.
func (b *Buffer) Window(written uint64) []byte {
	return b.b[written:]
}

// Bytes returns the first n bytes.
func (b *Buffer) Bytes(n uint64) []byte {
	return b.b[:n]
}

// Grow multiplies the capacity by factor, keeping the existing contents.
// The new capacity is at least one byte larger and never above limit when
// limit is positive. Growing a buffer already at limit fails with
// ErrOutputLimit.
func (b *Buffer) Grow(factor, limit int) error {
	current := len(b.b)
	if limit > 0 && current >= limit {
		return fmt.Errorf("%w: %d bytes", ErrOutputLimit, limit)
	}

	next := current * factor
	if next <= current {
		next = current + 1
	}

	if limit > 0 && next > limit {
		next = limit
	}

	grown := make([]byte, next)
	copy(grown, b.b)
	b.b = grown

	return nil
}
