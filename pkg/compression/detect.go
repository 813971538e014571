package compression

import (
	"bytes"
)

var (
	gzipMagic   = []byte{0x1f, 0x8b, 0x08}
	zstdMagic   = []byte{0x28, 0xb5, 0x2f, 0xfd}
	snappyMagic = []byte{0xff, 0x06, 0x00, 0x00, 's', 'N', 'a', 'P', 'p', 'Y'}
)

// Detect guesses the codec that produced an encoded stream from its leading
// bytes. Raw deflate and snappy blocks carry no header and are never
// detected.
func Detect(source []byte) (string, error) {
	switch {
	case bytes.HasPrefix(source, gzipMagic):
		return Gzip, nil
	case bytes.HasPrefix(source, zstdMagic):
		return Zstd, nil
	case bytes.HasPrefix(source, snappyMagic):
		return Snappy, nil
	case isZlibHeader(source):
		return Zlib, nil
	}

	return "", ErrUnknownFormat
}

// isZlibHeader checks the CMF and FLG bytes: deflate method, a window of at
// most 32KiB and a header checksum divisible by 31.
func isZlibHeader(b []byte) bool {
	if len(b) < 2 {
		return false
	}

	cmf, flg := b[0], b[1]

	return cmf&0x0f == 8 && cmf>>4 <= 7 && (uint16(cmf)<<8|uint16(flg))%31 == 0
}
