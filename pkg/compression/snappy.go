package compression

import (
	"io"
	"math"

	"github.com/golang/snappy"
	"github.com/pkg/errors"

	"github.com/ethpandaops/streamcodec/pkg/transform"
)

// Snappy codec names. Snappy is the framing format with per-chunk CRCs,
// SnappyBlock a single raw block as used on request/response wires.
const (
	Snappy      = "snappy"
	SnappyBlock = "snappy-block"
)

const (
	snappyStreamHeader = 10
	snappyChunkHeader  = 8
	snappyMaxChunk     = 65536
)

// snappyBound covers a framed stream in which every chunk is stored
// uncompressed, which the writer does whenever compression saves too little.
func snappyBound(n int) int {
	return n + snappyStreamHeader + snappyChunkHeader*(n/snappyMaxChunk+1)
}

func snappyBlockBound(n int) int {
	if bound := snappy.MaxEncodedLen(n); bound >= 0 {
		return bound
	}

	return math.MaxInt32
}

func newSnappy(o *options) (transform.Codec, error) {
	if len(o.dictionary) > 0 {
		return transform.Codec{}, ErrDictionaryUnsupported
	}

	return transform.Codec{
		Name: Snappy,
		Encoder: &boundedEngine{
			engine: &engine{
				name:      Snappy,
				direction: transform.DirectionEncode,
				init: func() (transform.Session, error) {
					s := &writerSession{}
					s.w = snappy.NewBufferedWriter(&s.pending)

					return s, nil
				},
			},
			bound: snappyBound,
		},
		Decoder: &engine{
			name:      Snappy,
			direction: transform.DirectionDecode,
			init: func() (transform.Session, error) {
				return &readerSession{
					open: func(r io.Reader) (io.ReadCloser, error) {
						return io.NopCloser(snappy.NewReader(r)), nil
					},
				}, nil
			},
		},
	}, nil
}

func newSnappyBlock(o *options) (transform.Codec, error) {
	if len(o.dictionary) > 0 {
		return transform.Codec{}, ErrDictionaryUnsupported
	}

	return transform.Codec{
		Name: SnappyBlock,
		Encoder: &boundedEngine{
			engine: &engine{
				name:      SnappyBlock,
				direction: transform.DirectionEncode,
				init: func() (transform.Session, error) {
					return &bufferSession{apply: snappyBlockEncode}, nil
				},
			},
			bound: snappyBlockBound,
		},
		Decoder: &engine{
			name:      SnappyBlock,
			direction: transform.DirectionDecode,
			init: func() (transform.Session, error) {
				return &bufferSession{apply: snappyBlockDecode}, nil
			},
		},
	}, nil
}

func snappyBlockEncode(input []byte, _ int) ([]byte, error) {
	if snappy.MaxEncodedLen(len(input)) < 0 {
		return nil, snappy.ErrTooLarge
	}

	return snappy.Encode(nil, input), nil
}

// snappyBlockDecode checks the length declared in the block header against
// limit before allocating the output.
func snappyBlockDecode(input []byte, limit int) ([]byte, error) {
	n, err := snappy.DecodedLen(input)
	if err != nil {
		return nil, transform.DataError(errors.Wrap(err, "failed to get decoded length"))
	}

	if limit > 0 && n > limit {
		return nil, errors.Wrapf(transform.ErrOutputLimit, "block declares %d bytes, limit is %d", n, limit)
	}

	out, err := snappy.Decode(nil, input)
	if err != nil {
		return nil, transform.DataError(err)
	}

	return out, nil
}
