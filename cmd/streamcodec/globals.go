package main

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/streamcodec/pkg/compression"
	"github.com/ethpandaops/streamcodec/pkg/transform"
)

// Globals are flags shared by every command.
type Globals struct {
	LogLevel  string `help:"Log level." default:"info" enum:"trace,debug,info,warn,error"`
	LogFormat string `help:"Log format." default:"text" enum:"text,json"`

	InitialBufferSize int  `help:"Initial output buffer size in bytes." default:"16384"`
	NoPreSize         bool `help:"Start from the initial buffer size instead of the codec bound."`
	GrowthFactor      int  `help:"Output buffer growth factor." default:"2"`
	MaxOutputSize     int  `help:"Maximum output size in bytes (0 for no limit)." default:"0"`
	InputChunkSize    int  `help:"Feed input in chunks of this size (0 for all at once)." default:"0"`
	MaxSteps          int  `help:"Fail after this many steps (0 for no limit)." default:"0"`
}

func (g *Globals) logger() (logrus.FieldLogger, error) {
	log := logrus.New()
	log.SetOutput(os.Stderr)

	level, err := logrus.ParseLevel(g.LogLevel)
	if err != nil {
		return nil, err
	}

	log.SetLevel(level)

	if g.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	return log, nil
}

func (g *Globals) transformConfig() *transform.Config {
	return &transform.Config{
		InitialBufferSize: g.InitialBufferSize,
		PreSize:           !g.NoPreSize,
		GrowthFactor:      g.GrowthFactor,
		MaxOutputSize:     g.MaxOutputSize,
		InputChunkSize:    g.InputChunkSize,
		MaxSteps:          g.MaxSteps,
	}
}

func (g *Globals) setup() (logrus.FieldLogger, *transform.Driver, error) {
	log, err := g.logger()
	if err != nil {
		return nil, nil, err
	}

	config := g.transformConfig()
	if err := config.Validate(); err != nil {
		return nil, nil, errors.Wrap(err, "invalid transform flags")
	}

	return log, transform.NewDriver(log, config, nil), nil
}

// CodecFlags select and tune a codec.
type CodecFlags struct {
	Codec      string `short:"c" help:"Codec name (see the codecs command)." default:"gzip"`
	Level      int    `short:"l" help:"Compression level (-1 for the codec default)." default:"-1"`
	Dictionary string `help:"File holding a preset dictionary."`
}

func (f *CodecFlags) options() ([]compression.Option, error) {
	opts := []compression.Option{compression.WithLevel(f.Level)}

	if f.Dictionary != "" {
		dict, err := os.ReadFile(f.Dictionary)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read dictionary")
		}

		opts = append(opts, compression.WithDictionary(dict))
	}

	return opts, nil
}

func (f *CodecFlags) codec() (transform.Codec, error) {
	opts, err := f.options()
	if err != nil {
		return transform.Codec{}, err
	}

	return compression.New(f.Codec, opts...)
}

func readInput(path string, in io.Reader) ([]byte, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(in)

		return data, errors.Wrap(err, "failed to read stdin")
	}

	data, err := os.ReadFile(path)

	return data, errors.Wrapf(err, "failed to read %s", path)
}
