package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/streamcodec/pkg/compression"
	"github.com/ethpandaops/streamcodec/pkg/verify"
)

func run(t *testing.T, stdin []byte, args ...string) ([]byte, error) {
	t.Helper()

	var out bytes.Buffer

	err := execute(append([]string{"--log-level=error"}, args...), bytes.NewReader(stdin), &out)

	return out.Bytes(), err
}

func TestCompressDecompressStdio(t *testing.T) {
	input := bytes.Repeat([]byte("pipe me through "), 256)

	for _, name := range compression.Names() {
		t.Run(name, func(t *testing.T) {
			encoded, err := run(t, input, "compress", "--codec", name, "--initial-buffer-size=16", "--no-pre-size")
			require.NoError(t, err)
			assert.Less(t, len(encoded), len(input))

			decoded, err := run(t, encoded, "decompress", "--codec", name)
			require.NoError(t, err)
			assert.Equal(t, input, decoded)
		})
	}
}

func TestDecompressDetects(t *testing.T) {
	input := []byte("detected on the way back")

	encoded, err := run(t, input, "compress", "-c", "zstd", "-l", "19")
	require.NoError(t, err)

	name, err := run(t, encoded, "detect")
	require.NoError(t, err)
	assert.Equal(t, "zstd\n", string(name))

	decoded, err := run(t, encoded, "decompress")
	require.NoError(t, err)
	assert.Equal(t, input, decoded)
}

func TestDecompressUndetectable(t *testing.T) {
	encoded, err := run(t, []byte("raw"), "compress", "-c", "deflate")
	require.NoError(t, err)

	_, err = run(t, encoded, "decompress")
	assert.ErrorIs(t, err, compression.ErrUnknownFormat)
	assert.ErrorContains(t, err, "pass --codec")
}

func TestCompressFiles(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "input.txt")
	dict := filepath.Join(dir, "dict")
	encoded := filepath.Join(dir, "input.txt.z")
	decoded := filepath.Join(dir, "output.txt")

	data := []byte(strings.Repeat("the shared dictionary words ", 50))
	require.NoError(t, os.WriteFile(input, data, 0o644))
	require.NoError(t, os.WriteFile(dict, []byte("the shared dictionary words"), 0o644))

	_, err := run(t, nil, "compress", "-c", "zlib", "--dictionary", dict, "-o", encoded, input)
	require.NoError(t, err)

	_, err = run(t, nil, "decompress", "-c", "zlib", "--dictionary", dict, "-o", decoded, encoded)
	require.NoError(t, err)

	got, err := os.ReadFile(decoded)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	_, err = run(t, nil, "decompress", "-c", "zlib", "-o", decoded, encoded)
	assert.Error(t, err)
}

func TestVerify(t *testing.T) {
	out, err := run(t, []byte("verify every codec"), "verify", "--checksums", "crc32,xxh64")
	require.NoError(t, err)

	var reports []verify.Report
	require.NoError(t, verify.Unmarshal(verify.FormatJSON, out, &reports))
	require.Len(t, reports, len(compression.Names()))

	for _, report := range reports {
		assert.True(t, report.Passed, report.Codec)
		assert.Len(t, report.Checksums, 2)
	}
}

func TestVerifyYAMLSubset(t *testing.T) {
	out, err := run(t, []byte("two codecs"), "verify", "-c", "gzip", "-c", "snappy", "--incremental", "-f", "yaml")
	require.NoError(t, err)

	var reports []verify.Report
	require.NoError(t, verify.Unmarshal(verify.FormatYAML, out, &reports))
	require.Len(t, reports, 2)
	assert.Equal(t, "gzip", reports[0].Codec)
	assert.Equal(t, "snappy", reports[1].Codec)
}

func TestVerifyInvalidLevel(t *testing.T) {
	_, err := run(t, []byte("x"), "verify", "-c", "zstd", "-l", "99")
	assert.ErrorContains(t, err, "round trip failed for zstd")
}

func TestCodecs(t *testing.T) {
	out, err := run(t, nil, "codecs")
	require.NoError(t, err)
	assert.Equal(t, compression.Names(), strings.Fields(string(out)))
}

func TestUnknownCodec(t *testing.T) {
	_, err := run(t, []byte("x"), "compress", "-c", "lz4")
	assert.ErrorIs(t, err, compression.ErrUnknownCodec)
}

func TestInvalidTransformFlags(t *testing.T) {
	_, err := run(t, []byte("x"), "--growth-factor=1", "compress")
	assert.ErrorContains(t, err, "invalid transform flags")
}

func TestOutputLimit(t *testing.T) {
	encoded, err := run(t, bytes.Repeat([]byte{0}, 1<<16), "compress", "-c", "gzip")
	require.NoError(t, err)

	_, err = run(t, encoded, "--max-output-size=1024", "decompress")
	assert.ErrorContains(t, err, "output exceeds maximum size")
}

func TestProbeOnce(t *testing.T) {
	dir := t.TempDir()
	config := filepath.Join(dir, "probe.yaml")
	report := filepath.Join(dir, "report.cbor")

	require.NoError(t, os.WriteFile(config, []byte(`
codecs: [gzip, zstd]
payloadSizes: [64]
reportFormat: cbor
verify:
  checksums: [xxh64]
`), 0o644))

	out, err := run(t, nil, "probe", "--once", "--config", config, "--report", report)
	require.NoError(t, err)
	assert.Contains(t, string(out), "passed=10 failed=0")

	_, err = os.Stat(report)
	assert.NoError(t, err)
}

func TestProbeConfigUnknownField(t *testing.T) {
	config := filepath.Join(t.TempDir(), "probe.yaml")
	require.NoError(t, os.WriteFile(config, []byte("codec: [gzip]\n"), 0o644))

	_, err := run(t, nil, "probe", "--once", "--config", config)
	assert.ErrorContains(t, err, "failed to parse")
}
