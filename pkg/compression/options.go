package compression

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// DefaultLevel asks a codec for its own default compression level.
const DefaultLevel = -1

type options struct {
	level      int
	dictionary []byte
}

// Option configures a codec built by New.
type Option func(*options)

// WithLevel sets the compression level. The valid range depends on the codec.
func WithLevel(level int) Option {
	return func(o *options) {
		o.level = level
	}
}

// WithDictionary sets a preset dictionary shared by encoder and decoder.
func WithDictionary(dict []byte) Option {
	return func(o *options) {
		o.dictionary = dict
	}
}

func newOptions(opts []Option) *options {
	o := &options{level: DefaultLevel}
	for _, opt := range opts {
		opt(o)
	}

	return o
}

// identity names a codec together with its level and dictionary.
func (o *options) identity(name string) string {
	dict := "-"
	if len(o.dictionary) > 0 {
		dict = fmt.Sprintf("%016x", xxhash.Sum64(o.dictionary))
	}

	return fmt.Sprintf("%s/level=%d/dict=%s", name, o.level, dict)
}
