package verify

import (
	"github.com/pkg/errors"

	"github.com/ethpandaops/streamcodec/pkg/cache"
)

// Config controls round trip verification.
type Config struct {
	// Checksums compared after the byte comparison.
	Checksums []string `yaml:"checksums"`
	// Incremental drives both directions in incremental mode.
	Incremental bool `yaml:"incremental"`
	// Memo controls how long passing reports are remembered.
	Memo cache.Config `yaml:"memo"`
}

// DefaultConfig returns a Config checking Adler-32 in finish mode.
func DefaultConfig() *Config {
	return &Config{
		Checksums: []string{string(ChecksumAdler32)},
		Memo:      cache.DefaultConfig(),
	}
}

// Validate checks if the configuration is valid and returns an error if not.
func (c *Config) Validate() error {
	if len(c.Checksums) == 0 {
		return errors.New("at least one checksum is required")
	}

	for _, name := range c.Checksums {
		if _, err := ParseChecksum(name); err != nil {
			return errors.Wrap(err, "invalid checksums")
		}
	}

	if c.Memo.TTL < 0 {
		return errors.Errorf("memo ttl must not be negative, got %s", c.Memo.TTL)
	}

	return nil
}

func (c *Config) checksums() []Checksum {
	out := make([]Checksum, 0, len(c.Checksums))

	for _, name := range c.Checksums {
		if cs, err := ParseChecksum(name); err == nil {
			out = append(out, cs)
		}
	}

	return out
}
