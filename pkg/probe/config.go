package probe

import (
	"errors"
	"time"

	perrors "github.com/pkg/errors"

	"github.com/ethpandaops/streamcodec/pkg/compression"
	"github.com/ethpandaops/streamcodec/pkg/transform"
	"github.com/ethpandaops/streamcodec/pkg/verify"
)

// Config is the configuration for the Prober.
type Config struct {
	Interval     time.Duration `yaml:"interval" default:"5m"`
	Codecs       []string      `yaml:"codecs"`
	PayloadSizes []int         `yaml:"payloadSizes"`
	Seed         int64         `yaml:"seed"`

	ReportPath   string `yaml:"reportPath"`
	ReportFormat string `yaml:"reportFormat" default:"json"`
	// ReportCodec compresses the report file when set.
	ReportCodec string `yaml:"reportCodec"`

	Retry     RetryConfig      `yaml:"retry"`
	Transform transform.Config `yaml:"transform"`
	Verify    verify.Config    `yaml:"verify"`
}

// RetryConfig bounds how long report writes are retried.
type RetryConfig struct {
	InitialInterval time.Duration `yaml:"initialInterval" default:"500ms"`
	MaxInterval     time.Duration `yaml:"maxInterval" default:"15s"`
	MaxElapsedTime  time.Duration `yaml:"maxElapsedTime" default:"1m"`
	MaxTries        uint          `yaml:"maxTries" default:"5"`
}

// DefaultConfig probes every registered codec every five minutes.
func DefaultConfig() *Config {
	return &Config{
		Interval:     5 * time.Minute,
		Codecs:       compression.Names(),
		PayloadSizes: []int{1024, 64 * 1024},
		Seed:         1,
		ReportFormat: verify.FormatJSON,
		Retry: RetryConfig{
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     15 * time.Second,
			MaxElapsedTime:  time.Minute,
			MaxTries:        5,
		},
		Transform: *transform.DefaultConfig(),
		Verify:    *verify.DefaultConfig(),
	}
}

// Validate validates the Config.
func (c *Config) Validate() error {
	if c.Interval <= 0 {
		return errors.New("interval must be greater than 0")
	}

	if len(c.Codecs) == 0 {
		return errors.New("at least one codec is required")
	}

	for _, name := range c.Codecs {
		if _, err := compression.New(name); err != nil {
			return perrors.Wrap(err, "invalid codecs")
		}
	}

	for _, size := range c.PayloadSizes {
		if size <= 0 {
			return perrors.Errorf("payload sizes must be greater than 0, got %d", size)
		}
	}

	switch c.ReportFormat {
	case verify.FormatJSON, verify.FormatCBOR, verify.FormatYAML:
	default:
		return perrors.Errorf("unknown report format %q", c.ReportFormat)
	}

	if c.ReportCodec != "" {
		if _, err := compression.New(c.ReportCodec); err != nil {
			return perrors.Wrap(err, "invalid report codec")
		}
	}

	if c.Retry.MaxTries == 0 {
		return errors.New("retry max tries must be greater than 0")
	}

	if err := c.Transform.Validate(); err != nil {
		return perrors.Wrap(err, "transform config is invalid")
	}

	if err := c.Verify.Validate(); err != nil {
		return perrors.Wrap(err, "verify config is invalid")
	}

	return nil
}
