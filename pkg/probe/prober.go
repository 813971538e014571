// Package probe periodically checks that every configured codec reproduces
// a fixed set of payloads.
package probe

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chuckpreslar/emission"
	"github.com/go-co-op/gocron/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/streamcodec/pkg/cache"
	"github.com/ethpandaops/streamcodec/pkg/compression"
	"github.com/ethpandaops/streamcodec/pkg/fileio"
	"github.com/ethpandaops/streamcodec/pkg/transform"
	"github.com/ethpandaops/streamcodec/pkg/verify"
)

const (
	resultPassed   = "passed"
	resultMismatch = "mismatch"
	resultError    = "error"
)

// Prober runs round trip verification of every configured codec over the
// built-in payloads, on a schedule, and writes a summary after each run.
type Prober struct {
	log     logrus.FieldLogger
	config  *Config
	broker  *emission.Emitter
	metrics *Metrics

	driverMetrics *transform.Metrics
	memoMetrics   *cache.Metrics

	memo     cache.Memo[string, verify.Report]
	verifier *verify.Verifier
	codecs   []transform.Codec
	payloads []Payload
	sink     *Sink

	scheduler gocron.Scheduler

	mu   sync.Mutex
	last *Summary
}

// New creates a new Prober.
func New(log logrus.FieldLogger, config *Config, namespace string) (*Prober, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid probe config: %w", err)
	}

	log = log.WithField("component", ModuleName)

	driverMetrics := transform.NewMetrics(namespace)
	driver := transform.NewDriver(log, &config.Transform, driverMetrics)

	memoMetrics := cache.NewMetrics(cache.MetricsConfig{
		Namespace:      namespace,
		InstanceLabels: map[string]string{"memo": "probe_reports"},
	})
	memo := cache.NewMemo[string, verify.Report](log, config.Verify.Memo, memoMetrics)

	verifier, err := verify.New(log, driver, &config.Verify, memo)
	if err != nil {
		return nil, err
	}

	codecs := make([]transform.Codec, 0, len(config.Codecs))

	for _, name := range config.Codecs {
		codec, err := compression.New(name)
		if err != nil {
			return nil, err
		}

		codecs = append(codecs, codec)
	}

	p := &Prober{
		log:           log,
		config:        config,
		broker:        emission.NewEmitter(),
		metrics:       NewMetrics(namespace),
		driverMetrics: driverMetrics,
		memoMetrics:   memoMetrics,
		memo:          memo,
		verifier:      verifier,
		codecs:        codecs,
		payloads:      Payloads(config.PayloadSizes, config.Seed),
	}

	if config.ReportPath != "" {
		var reportCodec *transform.Codec

		if config.ReportCodec != "" {
			codec, err := compression.New(config.ReportCodec)
			if err != nil {
				return nil, err
			}

			reportCodec = &codec
		}

		p.sink = NewSink(log, fileio.New(log, driver), config.ReportPath, config.ReportFormat, reportCodec, config.Retry)
	}

	return p, nil
}

// Register registers the prober, driver and memo metrics.
func (p *Prober) Register(registerer prometheus.Registerer) error {
	if err := p.metrics.Register(registerer); err != nil {
		return err
	}

	if err := p.driverMetrics.Register(registerer); err != nil {
		return err
	}

	return p.memoMetrics.Register(registerer)
}

// Start starts the memo and schedules a probe run every interval, the first
// one immediately.
func (p *Prober) Start(ctx context.Context) error {
	p.log.WithFields(logrus.Fields{
		"interval": p.config.Interval,
		"codecs":   p.config.Codecs,
		"payloads": len(p.payloads),
	}).Info("Starting prober")

	if err := p.memo.Start(ctx); err != nil {
		return fmt.Errorf("failed to start report memo: %w", err)
	}

	s, err := gocron.NewScheduler(gocron.WithLocation(time.Local))
	if err != nil {
		return err
	}

	if _, err := s.NewJob(
		gocron.DurationJob(p.config.Interval),
		gocron.NewTask(
			func(ctx context.Context) {
				if _, err := p.RunOnce(ctx); err != nil {
					p.log.WithError(err).Error("Probe run failed")
				}
			},
			ctx,
		),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		return err
	}

	p.scheduler = s

	s.Start()

	return nil
}

// Stop stops the scheduler and the memo.
func (p *Prober) Stop() error {
	if p.scheduler != nil {
		if err := p.scheduler.Shutdown(); err != nil {
			p.log.WithError(err).Error("Failed to stop scheduler")
		}
	}

	return p.memo.Stop()
}

// RunOnce probes every codec with every payload and writes the summary. A
// failed probe is recorded in the summary; only a failed report write is
// returned as an error.
func (p *Prober) RunOnce(ctx context.Context) (*Summary, error) {
	summary := &Summary{Started: time.Now()}

	for _, codec := range p.codecs {
		for _, payload := range p.payloads {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			report, err := p.verifier.RoundTrip(codec, payload.Data)

			result := p.record(codec.Name, payload.Name, report, err)
			if result == resultPassed {
				summary.Passed++
			} else {
				summary.Failed++
			}

			summary.Results = append(summary.Results, Result{Payload: payload.Name, Report: *report})
		}
	}

	summary.Duration = time.Since(summary.Started)

	p.metrics.RecordRun(time.Now())

	p.mu.Lock()
	p.last = summary
	p.mu.Unlock()

	log := p.log.WithFields(logrus.Fields{
		"passed":   summary.Passed,
		"failed":   summary.Failed,
		"duration": summary.Duration,
	})

	if summary.Failed > 0 {
		log.Warn("Probe run found failures")
	} else {
		log.Info("Probe run passed")
	}

	if p.sink == nil {
		return summary, nil
	}

	err := p.sink.Write(ctx, summary)
	p.metrics.RecordWrite(err)

	return summary, err
}

func (p *Prober) record(codec, payload string, report *verify.Report, err error) string {
	if err == nil {
		p.metrics.RecordProbe(codec, payload, resultPassed, report.Ratio())
		p.emitProbePassed(payload, report)

		return resultPassed
	}

	result := resultError
	if errors.Is(err, verify.ErrMismatch) {
		result = resultMismatch
	}

	p.log.WithError(err).WithFields(logrus.Fields{
		"codec":   codec,
		"payload": payload,
	}).Warn("Probe failed")

	p.metrics.RecordProbe(codec, payload, result, 0)
	p.emitProbeFailed(payload, report, err)

	return result
}

// Last returns the summary of the most recent run, or nil.
func (p *Prober) Last() *Summary {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.last
}
