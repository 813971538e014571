// Package fileio stores whole payloads as compressed files.
package fileio

import (
	"os"

	"github.com/moby/sys/atomicwriter"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/streamcodec/pkg/compression"
	"github.com/ethpandaops/streamcodec/pkg/transform"
)

// DefaultPerm is the mode of files created by WriteFile.
const DefaultPerm os.FileMode = 0o644

// Files encodes payloads into files and decodes them back.
type Files struct {
	log    logrus.FieldLogger
	driver *transform.Driver
	perm   os.FileMode
}

// New creates a Files using driver for every transform.
func New(log logrus.FieldLogger, driver *transform.Driver) *Files {
	return &Files{
		log:    log.WithField("component", "fileio"),
		driver: driver,
		perm:   DefaultPerm,
	}
}

// WithPerm returns a copy of f that creates files with perm.
func (f *Files) WithPerm(perm os.FileMode) *Files {
	c := *f
	c.perm = perm

	return &c
}

// WriteFile encodes data with codec and replaces path with the result.
// Either the complete stream lands at path or path is left as it was.
func (f *Files) WriteFile(path string, codec transform.Codec, data []byte) (*transform.Result, error) {
	res, err := f.driver.Encode(codec, data, transform.ModeFinish)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to encode %s", path)
	}

	if err := atomicwriter.WriteFile(path, res.Output, f.perm); err != nil {
		return nil, errors.Wrapf(err, "failed to write %s", path)
	}

	f.log.WithFields(logrus.Fields{
		"path":    path,
		"codec":   codec.Name,
		"in":      res.TotalIn,
		"out":     res.TotalOut,
		"growths": res.Growths,
	}).Debug("Wrote compressed file")

	return res, nil
}

// WriteRaw replaces path with data without encoding it.
func (f *Files) WriteRaw(path string, data []byte) error {
	if err := atomicwriter.WriteFile(path, data, f.perm); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}

	return nil
}

// ReadFile reads path to EOF and decodes it with codec.
func (f *Files) ReadFile(path string, codec transform.Codec) ([]byte, error) {
	encoded, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}

	return f.decode(path, codec, encoded)
}

// ReadFileDetect reads path, detects its codec from the leading bytes and
// decodes it. It returns the decoded bytes and the detected codec name.
func (f *Files) ReadFileDetect(path string, opts ...compression.Option) ([]byte, string, error) {
	encoded, err := os.ReadFile(path)
	if err != nil {
		return nil, "", errors.Wrapf(err, "failed to read %s", path)
	}

	name, err := compression.Detect(encoded)
	if err != nil {
		return nil, "", errors.Wrapf(err, "failed to detect format of %s", path)
	}

	codec, err := compression.New(name, opts...)
	if err != nil {
		return nil, name, err
	}

	out, err := f.decode(path, codec, encoded)

	return out, name, err
}

func (f *Files) decode(path string, codec transform.Codec, encoded []byte) ([]byte, error) {
	res, err := f.driver.Decode(codec, encoded, transform.ModeFinish)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s", path)
	}

	f.log.WithFields(logrus.Fields{
		"path":  path,
		"codec": codec.Name,
		"in":    res.TotalIn,
		"out":   res.TotalOut,
	}).Debug("Read compressed file")

	return res.Output, nil
}
