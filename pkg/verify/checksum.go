package verify

import (
	"fmt"
	"hash/adler32"
	"hash/crc32"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
)

// Checksum names an integrity check computed over plain bytes.
type Checksum string

// Supported checksums.
const (
	ChecksumAdler32 Checksum = "adler32"
	ChecksumCRC32   Checksum = "crc32"
	ChecksumXXH64   Checksum = "xxh64"
)

// Checksums returns every supported checksum.
func Checksums() []Checksum {
	return []Checksum{ChecksumAdler32, ChecksumCRC32, ChecksumXXH64}
}

// ParseChecksum validates a checksum name.
func ParseChecksum(name string) (Checksum, error) {
	switch c := Checksum(name); c {
	case ChecksumAdler32, ChecksumCRC32, ChecksumXXH64:
		return c, nil
	default:
		return "", errors.Errorf("unknown checksum %q", name)
	}
}

// Sum computes the checksum over data.
func (c Checksum) Sum(data []byte) uint64 {
	switch c {
	case ChecksumAdler32:
		return uint64(adler32.Checksum(data))
	case ChecksumCRC32:
		return uint64(crc32.ChecksumIEEE(data))
	case ChecksumXXH64:
		return xxhash.Sum64(data)
	default:
		panic(fmt.Sprintf("verify: unknown checksum %q", string(c)))
	}
}

// Fingerprint identifies input bytes for memoisation.
func Fingerprint(data []byte) string {
	return fmt.Sprintf("%016x-%d", xxhash.Sum64(data), len(data))
}
