package compression

import (
	"errors"
	"fmt"
)

// Registry and detection errors.
var (
	ErrUnknownCodec          = errors.New("unknown codec")
	ErrUnknownFormat         = errors.New("unrecognised stream format")
	ErrDictionaryUnsupported = errors.New("codec does not support preset dictionaries")
	ErrInvalidLevel          = errors.New("invalid compression level")
)

func errTrailingData(n int) error {
	return fmt.Errorf("%d bytes of trailing data after end of stream", n)
}
