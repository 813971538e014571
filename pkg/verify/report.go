package verify

import (
	"encoding/json"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Report formats.
const (
	FormatJSON = "json"
	FormatCBOR = "cbor"
	FormatYAML = "yaml"
)

// Report is the outcome of one round trip.
type Report struct {
	Codec       string            `json:"codec" cbor:"1,keyasint" yaml:"codec"`
	Fingerprint string            `json:"fingerprint" cbor:"2,keyasint" yaml:"fingerprint"`
	InputSize   int               `json:"inputSize" cbor:"3,keyasint" yaml:"inputSize"`
	EncodedSize int               `json:"encodedSize" cbor:"4,keyasint" yaml:"encodedSize"`
	DecodedSize int               `json:"decodedSize" cbor:"5,keyasint" yaml:"decodedSize"`
	Encode      Pass              `json:"encode" cbor:"6,keyasint" yaml:"encode"`
	Decode      Pass              `json:"decode" cbor:"7,keyasint" yaml:"decode"`
	Checksums   map[string]uint64 `json:"checksums,omitempty" cbor:"8,keyasint,omitempty" yaml:"checksums,omitempty"`
	Passed      bool              `json:"passed" cbor:"9,keyasint" yaml:"passed"`
	Error       string            `json:"error,omitempty" cbor:"10,keyasint,omitempty" yaml:"error,omitempty"`
	Duration    time.Duration     `json:"duration" cbor:"11,keyasint" yaml:"duration"`
	Cached      bool              `json:"cached" cbor:"12,keyasint" yaml:"cached"`
}

// Pass records one direction of a round trip.
type Pass struct {
	State   string `json:"state" cbor:"1,keyasint" yaml:"state"`
	Steps   int    `json:"steps" cbor:"2,keyasint" yaml:"steps"`
	Growths int    `json:"growths" cbor:"3,keyasint" yaml:"growths"`
}

// Ratio returns the encoded size relative to the input size.
func (r *Report) Ratio() float64 {
	if r.InputSize == 0 {
		return 0
	}

	return float64(r.EncodedSize) / float64(r.InputSize)
}

// Marshal encodes v in the given format.
func Marshal(format string, v any) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(v, "", "  ")
	case FormatCBOR:
		return cbor.Marshal(v)
	case FormatYAML:
		return yaml.Marshal(v)
	default:
		return nil, errors.Errorf("unknown report format %q", format)
	}
}

// Unmarshal decodes data in the given format into v.
func Unmarshal(format string, data []byte, v any) error {
	switch format {
	case FormatJSON:
		return json.Unmarshal(data, v)
	case FormatCBOR:
		return cbor.Unmarshal(data, v)
	case FormatYAML:
		return yaml.Unmarshal(data, v)
	default:
		return errors.Errorf("unknown report format %q", format)
	}
}
