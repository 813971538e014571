package verify

import (
	"bytes"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/streamcodec/pkg/cache"
	"github.com/ethpandaops/streamcodec/pkg/transform"
)

// Verifier checks that decoding an encoding reproduces the input.
type Verifier struct {
	log       logrus.FieldLogger
	driver    *transform.Driver
	config    *Config
	checksums []Checksum
	memo      cache.Memo[string, Report]
}

// New creates a Verifier. A nil memo disables memoisation of passing
// reports.
func New(log logrus.FieldLogger, driver *transform.Driver, config *Config, memo cache.Memo[string, Report]) (*Verifier, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid verify config")
	}

	return &Verifier{
		log:       log.WithField("component", "verify"),
		driver:    driver,
		config:    config,
		checksums: config.checksums(),
		memo:      memo,
	}, nil
}

func (v *Verifier) mode() transform.Mode {
	if v.config.Incremental {
		return transform.ModeIncremental
	}

	return transform.ModeFinish
}

// RoundTrip encodes input, decodes the result and compares it with input.
//
// The report is returned even when the round trip fails. Encode and decode
// failures carry transform errors; differences in the recovered bytes are
// reported as ErrMismatch.
func (v *Verifier) RoundTrip(codec transform.Codec, input []byte) (*Report, error) {
	start := time.Now()
	fingerprint := Fingerprint(input)
	key := codec.Identity() + "/" + fingerprint

	if v.memo != nil {
		if cached, ok := v.memo.Get(key); ok {
			cached.Cached = true

			return &cached, nil
		}
	}

	report := &Report{
		Codec:       codec.Name,
		Fingerprint: fingerprint,
		InputSize:   len(input),
	}

	log := v.log.WithFields(logrus.Fields{
		"codec": codec.Name,
		"size":  len(input),
	})

	err := v.roundTrip(codec, input, report)

	report.Duration = time.Since(start)
	report.Passed = err == nil

	if err != nil {
		report.Error = err.Error()
		log.WithError(err).Warn("Round trip failed")

		return report, err
	}

	log.WithFields(logrus.Fields{
		"encoded": report.EncodedSize,
		"ratio":   report.Ratio(),
	}).Debug("Round trip passed")

	if v.memo != nil {
		v.memo.Set(key, *report)
	}

	return report, nil
}

func (v *Verifier) roundTrip(codec transform.Codec, input []byte, report *Report) error {
	enc, err := v.driver.Encode(codec, input, v.mode())
	if err != nil {
		report.Encode.State = transform.StateFailed.String()

		return errors.Wrap(err, "encode failed")
	}

	report.EncodedSize = len(enc.Output)
	report.Encode = Pass{State: enc.State.String(), Steps: enc.Steps, Growths: enc.Growths}

	dec, err := v.driver.Decode(codec, enc.Output, v.mode())
	if err != nil {
		report.Decode.State = transform.StateFailed.String()

		return errors.Wrap(err, "decode failed")
	}

	report.DecodedSize = len(dec.Output)
	report.Decode = Pass{State: dec.State.String(), Steps: dec.Steps, Growths: dec.Growths}

	sums, err := Compare(input, dec.Output, v.checksums...)
	report.Checksums = sums

	return err
}

// Compare checks recovered against original by length, then byte by byte,
// then with each checksum. It returns the original's checksums and a
// *MismatchError for the first difference found.
func Compare(original, recovered []byte, checksums ...Checksum) (map[string]uint64, error) {
	if len(original) != len(recovered) {
		return nil, &MismatchError{
			Stage: StageLength,
			Want:  uint64(len(original)),
			Got:   uint64(len(recovered)),
		}
	}

	if !bytes.Equal(original, recovered) {
		return nil, &MismatchError{Stage: StageBytes, Offset: firstDifference(original, recovered)}
	}

	sums := make(map[string]uint64, len(checksums))

	for _, cs := range checksums {
		want, got := cs.Sum(original), cs.Sum(recovered)
		if want != got {
			return nil, &MismatchError{Stage: StageChecksum, Checksum: cs, Want: want, Got: got}
		}

		sums[string(cs)] = want
	}

	return sums, nil
}

func firstDifference(a, b []byte) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}

	return n
}
