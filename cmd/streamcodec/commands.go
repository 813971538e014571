package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/ethpandaops/streamcodec/pkg/compression"
	"github.com/ethpandaops/streamcodec/pkg/fileio"
	"github.com/ethpandaops/streamcodec/pkg/probe"
	"github.com/ethpandaops/streamcodec/pkg/transform"
	"github.com/ethpandaops/streamcodec/pkg/verify"
)

// CompressCmd encodes its input with one codec.
type CompressCmd struct {
	CodecFlags

	Input  string `arg:"" optional:"" help:"Input file, or - for stdin." default:"-"`
	Output string `short:"o" help:"Output file, written atomically. Defaults to stdout."`
}

func (c *CompressCmd) Run(g *Globals, s *streams) error {
	log, driver, err := g.setup()
	if err != nil {
		return err
	}

	codec, err := c.codec()
	if err != nil {
		return err
	}

	data, err := readInput(c.Input, s.in)
	if err != nil {
		return err
	}

	if c.Output != "" {
		_, err := fileio.New(log, driver).WriteFile(c.Output, codec, data)

		return err
	}

	res, err := driver.Encode(codec, data, transform.ModeFinish)
	if err != nil {
		return err
	}

	_, err = s.out.Write(res.Output)

	return err
}

// DecompressCmd decodes its input, detecting the codec unless one is named.
type DecompressCmd struct {
	Codec      string `short:"c" help:"Codec name. Detected from the leading bytes when empty."`
	Dictionary string `help:"File holding a preset dictionary."`

	Input  string `arg:"" optional:"" help:"Input file, or - for stdin." default:"-"`
	Output string `short:"o" help:"Output file, written atomically. Defaults to stdout."`
}

func (c *DecompressCmd) Run(g *Globals, s *streams) error {
	log, driver, err := g.setup()
	if err != nil {
		return err
	}

	data, err := readInput(c.Input, s.in)
	if err != nil {
		return err
	}

	name := c.Codec
	if name == "" {
		if name, err = compression.Detect(data); err != nil {
			return errors.Wrap(err, "pass --codec for formats without a header")
		}

		log.WithField("codec", name).Debug("Detected codec")
	}

	flags := CodecFlags{Codec: name, Level: compression.DefaultLevel, Dictionary: c.Dictionary}

	codec, err := flags.codec()
	if err != nil {
		return err
	}

	res, err := driver.Decode(codec, data, transform.ModeFinish)
	if err != nil {
		return err
	}

	if c.Output != "" {
		return fileio.New(log, driver).WriteRaw(c.Output, res.Output)
	}

	_, err = s.out.Write(res.Output)

	return err
}

// VerifyCmd round trips its input through each named codec.
type VerifyCmd struct {
	Codecs      []string `short:"c" help:"Codecs to verify. Defaults to all."`
	Level       int      `short:"l" help:"Compression level (-1 for the codec default)." default:"-1"`
	Checksums   []string `help:"Checksums to compare." default:"adler32"`
	Incremental bool     `help:"Drive both directions in incremental mode."`
	Format      string   `short:"f" help:"Report format." default:"json" enum:"json,yaml,cbor"`

	Input string `arg:"" optional:"" help:"Input file, or - for stdin." default:"-"`
}

func (c *VerifyCmd) Run(g *Globals, s *streams) error {
	log, driver, err := g.setup()
	if err != nil {
		return err
	}

	data, err := readInput(c.Input, s.in)
	if err != nil {
		return err
	}

	verifier, err := verify.New(log, driver, &verify.Config{
		Checksums:   c.Checksums,
		Incremental: c.Incremental,
	}, nil)
	if err != nil {
		return err
	}

	names := c.Codecs
	if len(names) == 0 {
		names = compression.Names()
	}

	reports := make([]*verify.Report, 0, len(names))

	var failed []string

	for _, name := range names {
		codec, err := compression.New(name, compression.WithLevel(c.Level))
		if err != nil {
			return err
		}

		report, err := verifier.RoundTrip(codec, data)
		if err != nil {
			failed = append(failed, name)
		}

		reports = append(reports, report)
	}

	out, err := verify.Marshal(c.Format, reports)
	if err != nil {
		return err
	}

	if _, err := s.out.Write(out); err != nil {
		return err
	}

	if len(failed) > 0 {
		return errors.Errorf("round trip failed for %s", strings.Join(failed, ", "))
	}

	return nil
}

// DetectCmd prints the codec of a compressed input.
type DetectCmd struct {
	Input string `arg:"" optional:"" help:"Input file, or - for stdin." default:"-"`
}

func (c *DetectCmd) Run(_ *Globals, s *streams) error {
	data, err := readInput(c.Input, s.in)
	if err != nil {
		return err
	}

	name, err := compression.Detect(data)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(s.out, name)

	return err
}

// CodecsCmd lists the registered codecs.
type CodecsCmd struct{}

func (c *CodecsCmd) Run(_ *Globals, s *streams) error {
	_, err := fmt.Fprintln(s.out, strings.Join(compression.Names(), "\n"))

	return err
}

// ProbeCmd runs the prober until interrupted, or once.
type ProbeCmd struct {
	Config      string `help:"YAML probe configuration file."`
	Report      string `help:"Report file. Overrides the configuration file."`
	Once        bool   `help:"Run a single probe and exit."`
	MetricsAddr string `help:"Serve Prometheus metrics on this address." default:""`
	Namespace   string `help:"Prometheus metric namespace." default:"streamcodec"`
}

func (c *ProbeCmd) Run(g *Globals, s *streams) error {
	log, err := g.logger()
	if err != nil {
		return err
	}

	config, err := loadProbeConfig(c.Config, g)
	if err != nil {
		return err
	}

	if c.Report != "" {
		config.ReportPath = c.Report
	}

	prober, err := probe.New(log, config, c.Namespace)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if c.Once {
		summary, err := prober.RunOnce(ctx)
		if summary != nil {
			fmt.Fprintf(s.out, "passed=%d failed=%d duration=%s\n", summary.Passed, summary.Failed, summary.Duration)

			if err == nil && summary.Failed > 0 {
				err = errors.Errorf("%d probes failed", summary.Failed)
			}
		}

		return err
	}

	if c.MetricsAddr != "" {
		registry := prometheus.NewRegistry()
		if err := prober.Register(registry); err != nil {
			return err
		}

		stop := serveMetrics(log, c.MetricsAddr, registry)
		defer stop()
	}

	if err := prober.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()

	log.Info("Stopping prober")

	return prober.Stop()
}

// loadProbeConfig reads path over the default probe configuration. The
// transform section defaults to the global flags.
func loadProbeConfig(path string, g *Globals) (*probe.Config, error) {
	config := probe.DefaultConfig()
	config.Transform = *g.transformConfig()

	if path == "" {
		return config, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open probe config")
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	if err := dec.Decode(config); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", path)
	}

	return config, nil
}

func serveMetrics(log logrus.FieldLogger, addr string, registry *prometheus.Registry) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.WithField("addr", addr).Info("Serving metrics")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Metrics server failed")
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = server.Shutdown(ctx)
	}
}
