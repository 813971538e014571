package verify

import (
	"errors"
	"fmt"
)

// ErrMismatch reports that decoding did not reproduce the original input.
// It is never returned for encode or decode failures.
var ErrMismatch = errors.New("round trip mismatch")

// Mismatch stages, in the order they are checked.
const (
	StageLength   = "length"
	StageBytes    = "bytes"
	StageChecksum = "checksum"
)

// MismatchError describes the first difference found between the original
// and the recovered bytes.
type MismatchError struct {
	Stage    string
	Offset   int
	Checksum Checksum
	Want     uint64
	Got      uint64
}

func (e *MismatchError) Error() string {
	switch e.Stage {
	case StageLength:
		return fmt.Sprintf("%v: length %d, want %d", ErrMismatch, e.Got, e.Want)
	case StageBytes:
		return fmt.Sprintf("%v: first differing byte at offset %d", ErrMismatch, e.Offset)
	default:
		return fmt.Sprintf("%v: %s %#x, want %#x", ErrMismatch, e.Checksum, e.Got, e.Want)
	}
}

// Unwrap lets errors.Is match ErrMismatch.
func (e *MismatchError) Unwrap() error {
	return ErrMismatch
}
