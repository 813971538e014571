package compression

import (
	"io"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"

	"github.com/ethpandaops/streamcodec/pkg/transform"
)

// Zstd is the codec name for Zstandard frames.
const Zstd = "zstd"

const zstdBlockSize = 128 << 10

// zstdBound is the worst-case size of a single frame holding n bytes.
// Blocks that do not compress are stored raw with a 3 byte header, and the
// frame adds a header of at most 18 bytes and a 4 byte checksum.
func zstdBound(n int) int {
	margin := 0
	if n < zstdBlockSize {
		margin = (zstdBlockSize - n) >> 11
	}

	return n + n>>8 + margin + 3*(n/zstdBlockSize+1) + 32
}

// zstdDictID derives a stable dictionary id from the dictionary content so
// encoder and decoder agree without further configuration.
func zstdDictID(dict []byte) uint32 {
	id := uint32(xxhash.Sum64(dict))
	if id == 0 {
		id = 1
	}

	return id
}

// zstdCheckHeader requires input to open with a complete frame header. The
// encoder always writes a frame, and the stream decoder would read an empty
// or cut header as a clean end of input.
func zstdCheckHeader(input []byte) error {
	var h zstd.Header

	if err := h.Decode(input); err != nil {
		return errors.Wrap(err, "failed to read frame header")
	}

	return nil
}

func zstdEncoderOptions(o *options) ([]zstd.EOption, error) {
	level := zstd.SpeedDefault

	switch {
	case o.level == DefaultLevel:
	case o.level >= 1 && o.level <= 22:
		level = zstd.EncoderLevelFromZstd(o.level)
	default:
		return nil, errors.Wrapf(ErrInvalidLevel, "zstd level %d not in [1, 22]", o.level)
	}

	opts := []zstd.EOption{
		zstd.WithEncoderLevel(level),
		zstd.WithEncoderConcurrency(1),
		zstd.WithEncoderCRC(true),
		zstd.WithZeroFrames(true),
	}

	if len(o.dictionary) > 0 {
		opts = append(opts, zstd.WithEncoderDictRaw(zstdDictID(o.dictionary), o.dictionary))
	}

	return opts, nil
}

func newZstd(o *options) (transform.Codec, error) {
	dict := o.dictionary

	decoderOpts := []zstd.DOption{zstd.WithDecoderConcurrency(1)}
	if len(dict) > 0 {
		decoderOpts = append(decoderOpts, zstd.WithDecoderDictRaw(zstdDictID(dict), dict))
	}

	return transform.Codec{
		Name: Zstd,
		Encoder: &boundedEngine{
			engine: &engine{
				name:      Zstd,
				direction: transform.DirectionEncode,
				init: func() (transform.Session, error) {
					opts, err := zstdEncoderOptions(o)
					if err != nil {
						return nil, err
					}

					s := &writerSession{}

					w, err := zstd.NewWriter(&s.pending, opts...)
					if err != nil {
						return nil, err
					}

					s.w = w

					return s, nil
				},
			},
			bound: zstdBound,
		},
		Decoder: &engine{
			name:      Zstd,
			direction: transform.DirectionDecode,
			init: func() (transform.Session, error) {
				return &readerSession{
					check: zstdCheckHeader,
					open: func(r io.Reader) (io.ReadCloser, error) {
						d, err := zstd.NewReader(r, decoderOpts...)
						if err != nil {
							return nil, err
						}

						return d.IOReadCloser(), nil
					},
				}, nil
			},
		},
	}, nil
}
