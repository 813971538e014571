package compression

import (
	"math"

	"github.com/pkg/errors"

	"github.com/ethpandaops/streamcodec/pkg/transform"
)

// Compressor provides compression and decompression functionality.
type Compressor interface {
	// Compress compresses the input data.
	Compress(data []byte) ([]byte, error)

	// Decompress decompresses the input data.
	Decompress(data []byte) ([]byte, error)

	// MaxLength returns the maximum allowed length for decompressed data.
	// Returns 0 if there is no limit.
	MaxLength() uint64
}

// StreamCompressor implements Compressor by running a codec through a
// transform driver.
type StreamCompressor struct {
	codec     transform.Codec
	driver    *transform.Driver
	limited   *transform.Driver
	maxLength uint64
}

// NewStreamCompressor creates a new StreamCompressor. A non-zero maxLength
// caps the decompressed output. Limits beyond math.MaxInt are clamped to it.
func NewStreamCompressor(driver *transform.Driver, codec transform.Codec, maxLength uint64) *StreamCompressor {
	limited := driver
	if maxLength > 0 {
		limited = driver.WithMaxOutputSize(int(min(maxLength, uint64(math.MaxInt))))
	}

	return &StreamCompressor{
		codec:     codec,
		driver:    driver,
		limited:   limited,
		maxLength: maxLength,
	}
}

// Compress encodes data with the codec.
func (c *StreamCompressor) Compress(data []byte) ([]byte, error) {
	res, err := c.driver.Encode(c.codec, data, transform.ModeFinish)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to compress with %s", c.codec.Name)
	}

	return res.Output, nil
}

// Decompress decodes data with the codec.
func (c *StreamCompressor) Decompress(data []byte) ([]byte, error) {
	res, err := c.limited.Decode(c.codec, data, transform.ModeFinish)
	if err != nil {
		if errors.Is(err, transform.ErrOutputLimit) {
			return nil, errors.Errorf("decompressed data exceeds max length: > %d", c.maxLength)
		}

		return nil, errors.Wrapf(err, "failed to decompress with %s", c.codec.Name)
	}

	return res.Output, nil
}

// MaxLength returns the maximum allowed length for decompressed data.
func (c *StreamCompressor) MaxLength() uint64 {
	return c.maxLength
}

// Ensure StreamCompressor implements Compressor.
var _ Compressor = (*StreamCompressor)(nil)
