package probe

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/streamcodec/pkg/fileio"
	"github.com/ethpandaops/streamcodec/pkg/transform"
	"github.com/ethpandaops/streamcodec/pkg/verify"
)

// Summary is the report written after each probe run.
type Summary struct {
	Started  time.Time     `json:"started" cbor:"1,keyasint" yaml:"started"`
	Duration time.Duration `json:"duration" cbor:"2,keyasint" yaml:"duration"`
	Passed   int           `json:"passed" cbor:"3,keyasint" yaml:"passed"`
	Failed   int           `json:"failed" cbor:"4,keyasint" yaml:"failed"`
	Results  []Result      `json:"results" cbor:"5,keyasint" yaml:"results"`
}

// Result is one codec and payload combination of a probe run.
type Result struct {
	Payload string        `json:"payload" cbor:"1,keyasint" yaml:"payload"`
	Report  verify.Report `json:"report" cbor:"2,keyasint" yaml:"report"`
}

// Sink writes summaries to a file, retrying failed writes.
type Sink struct {
	log    logrus.FieldLogger
	files  *fileio.Files
	path   string
	format string
	codec  *transform.Codec
	retry  RetryConfig
}

// NewSink creates a Sink writing to path. A nil codec writes the report
// uncompressed.
func NewSink(log logrus.FieldLogger, files *fileio.Files, path, format string, codec *transform.Codec, retry RetryConfig) *Sink {
	return &Sink{
		log:    log.WithField("component", "probe/sink"),
		files:  files,
		path:   path,
		format: format,
		codec:  codec,
		retry:  retry,
	}
}

// Write encodes summary and writes it, retrying until the write succeeds or
// the retry limits are reached.
func (s *Sink) Write(ctx context.Context, summary *Summary) error {
	data, err := verify.Marshal(s.format, summary)
	if err != nil {
		return errors.Wrap(err, "failed to encode summary")
	}

	operation := func() (struct{}, error) {
		return struct{}{}, s.write(data)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.retry.InitialInterval
	bo.MaxInterval = s.retry.MaxInterval

	retryOpts := []backoff.RetryOption{
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(s.retry.MaxTries),
		backoff.WithMaxElapsedTime(s.retry.MaxElapsedTime),
		backoff.WithNotify(func(err error, duration time.Duration) {
			s.log.WithError(err).Warnf("Failed to write probe report, retrying in %s", duration)
		}),
	}

	if _, err := backoff.Retry(ctx, operation, retryOpts...); err != nil {
		return errors.Wrapf(err, "failed to write probe report to %s", s.path)
	}

	s.log.WithFields(logrus.Fields{
		"path":   s.path,
		"format": s.format,
		"size":   len(data),
	}).Debug("Wrote probe report")

	return nil
}

func (s *Sink) write(data []byte) error {
	if s.codec == nil {
		return s.files.WriteRaw(s.path, data)
	}

	if _, err := s.files.WriteFile(s.path, *s.codec, data); err != nil {
		if errors.Is(err, transform.ErrStep) || errors.Is(err, transform.ErrInit) || errors.Is(err, transform.ErrOutputLimit) {
			return backoff.Permanent(err)
		}

		return err
	}

	return nil
}
