package compression

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/ethpandaops/streamcodec/pkg/transform"
)

type factory func(o *options) (transform.Codec, error)

var factories = map[string]factory{
	Zlib:        newZlib,
	Gzip:        newGzip,
	Deflate:     newDeflate,
	Zstd:        newZstd,
	Snappy:      newSnappy,
	SnappyBlock: newSnappyBlock,
}

// New builds the codec registered under name.
//
// Options are captured when the codec is built, so every session created
// from it shares the same level and dictionary. An out of range level is
// reported when a session is initialised.
func New(name string, opts ...Option) (transform.Codec, error) {
	f, ok := factories[name]
	if !ok {
		return transform.Codec{}, errors.Wrapf(ErrUnknownCodec, "%q (known: %v)", name, Names())
	}

	o := newOptions(opts)

	codec, err := f(o)
	if err != nil {
		return transform.Codec{}, errors.Wrapf(err, "failed to build %s codec", name)
	}

	codec.ID = o.identity(name)

	return codec, nil
}

// Names returns the registered codec names in sorted order.
func Names() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
