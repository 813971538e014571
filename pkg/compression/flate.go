package compression

import (
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"

	"github.com/ethpandaops/streamcodec/pkg/transform"
)

// Codec names for the deflate family.
const (
	Zlib    = "zlib"
	Gzip    = "gzip"
	Deflate = "deflate"
)

// deflateBound is the worst-case size of a raw deflate stream holding n
// bytes. Incompressible input is emitted as stored blocks with a 5 byte
// header each. The proportional slack covers Huffman-only blocks, which are
// picked over stored ones from a size estimate.
func deflateBound(n int) int {
	return n + n>>4 + 5*(n/16383+1) + 16
}

func zlibBound(dict []byte) func(int) int {
	overhead := 2 + 4
	if len(dict) > 0 {
		overhead += 4
	}

	return func(n int) int {
		return deflateBound(n) + overhead
	}
}

func gzipBound(n int) int {
	return deflateBound(n) + 10 + 8
}

func newZlib(o *options) (transform.Codec, error) {
	level, dict := o.level, o.dictionary

	return transform.Codec{
		Name: Zlib,
		Encoder: &boundedEngine{
			engine: &engine{
				name:      Zlib,
				direction: transform.DirectionEncode,
				init: func() (transform.Session, error) {
					s := &writerSession{}

					w, err := zlib.NewWriterLevelDict(&s.pending, level, dict)
					if err != nil {
						return nil, err
					}

					s.w = w

					return s, nil
				},
			},
			bound: zlibBound(dict),
		},
		Decoder: &engine{
			name:      Zlib,
			direction: transform.DirectionDecode,
			init: func() (transform.Session, error) {
				return &readerSession{
					open: func(r io.Reader) (io.ReadCloser, error) {
						return zlib.NewReaderDict(r, dict)
					},
				}, nil
			},
		},
	}, nil
}

func newGzip(o *options) (transform.Codec, error) {
	if len(o.dictionary) > 0 {
		return transform.Codec{}, ErrDictionaryUnsupported
	}

	level := o.level

	return transform.Codec{
		Name: Gzip,
		Encoder: &boundedEngine{
			engine: &engine{
				name:      Gzip,
				direction: transform.DirectionEncode,
				init: func() (transform.Session, error) {
					s := &writerSession{}

					w, err := gzip.NewWriterLevel(&s.pending, level)
					if err != nil {
						return nil, err
					}

					s.w = w

					return s, nil
				},
			},
			bound: gzipBound,
		},
		Decoder: &engine{
			name:      Gzip,
			direction: transform.DirectionDecode,
			init: func() (transform.Session, error) {
				return &readerSession{
					open: func(r io.Reader) (io.ReadCloser, error) {
						return gzip.NewReader(r)
					},
				}, nil
			},
		},
	}, nil
}

func newDeflate(o *options) (transform.Codec, error) {
	level, dict := o.level, o.dictionary

	return transform.Codec{
		Name: Deflate,
		Encoder: &boundedEngine{
			engine: &engine{
				name:      Deflate,
				direction: transform.DirectionEncode,
				init: func() (transform.Session, error) {
					s := &writerSession{}

					w, err := flate.NewWriterDict(&s.pending, level, dict)
					if err != nil {
						return nil, err
					}

					s.w = w

					return s, nil
				},
			},
			bound: deflateBound,
		},
		Decoder: &engine{
			name:      Deflate,
			direction: transform.DirectionDecode,
			init: func() (transform.Session, error) {
				return &readerSession{
					open: func(r io.Reader) (io.ReadCloser, error) {
						return flate.NewReaderDict(r, dict), nil
					},
				}, nil
			},
		},
	}, nil
}
