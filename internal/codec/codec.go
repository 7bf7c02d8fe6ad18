// Package codec implements threshold-aware gzip compression for archive
// payloads. Compressed payloads self-describe through a marker prefix so
// readers never need out-of-band knowledge.
package codec

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
)

// Marker prefixes every compressed payload persisted as a string.
const Marker = "COMPRESSED:"

// AlgorithmGzip is the only algorithm currently produced.
const AlgorithmGzip = "gzip"

// DefaultThreshold is the estimated-size cutoff for whole-archive compression.
const DefaultThreshold = 10 * 1024

// Config tunes compression behavior.
type Config struct {
	// Threshold is the whole-archive size cutoff in bytes.
	Threshold int
	// MinSize is the per-field floor below which compression is not attempted.
	MinSize int
	// Level is the gzip level; 0 means gzip.DefaultCompression.
	Level int
}

// DefaultConfig returns the standard tuning.
func DefaultConfig() Config {
	return Config{Threshold: DefaultThreshold, MinSize: 0, Level: gzip.DefaultCompression}
}

// Result describes a successful compression.
type Result struct {
	Data           []byte
	Algorithm      string
	OriginalSize   int
	CompressedSize int
	Ratio          float64
}

// Compress gzips data. It returns (nil, false) when compression is not
// beneficial (output would be at least as large as the input) or when the
// input is below the configured floor, so the caller stores the raw payload.
func Compress(data []byte, cfg Config) (*Result, bool) {
	if len(data) == 0 || len(data) < cfg.MinSize {
		return nil, false
	}
	level := cfg.Level
	if level == 0 {
		level = gzip.DefaultCompression
	}

	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, false
	}
	if _, err := w.Write(data); err != nil {
		return nil, false
	}
	if err := w.Close(); err != nil {
		return nil, false
	}
	if buf.Len() >= len(data) {
		return nil, false
	}
	return &Result{
		Data:           buf.Bytes(),
		Algorithm:      AlgorithmGzip,
		OriginalSize:   len(data),
		CompressedSize: buf.Len(),
		Ratio:          float64(buf.Len()) / float64(len(data)),
	}, true
}

// Decompress reverses Compress. Corrupt input yields an error; callers treat
// that as "use the best available fallback", not as fatal.
func Decompress(blob []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	out, err := io.ReadAll(r)
	if cerr := r.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	return out, nil
}

// EncodeString compresses s when beneficial and wraps the result in the
// marker + base64 framing. Otherwise s is returned unchanged.
func EncodeString(s string, cfg Config) string {
	res, ok := Compress([]byte(s), cfg)
	if !ok {
		return s
	}
	return Marker + base64.StdEncoding.EncodeToString(res.Data)
}

// EncodeBytes wraps already-compressed bytes in the marker + base64 framing.
func EncodeBytes(compressed []byte) string {
	return Marker + base64.StdEncoding.EncodeToString(compressed)
}

// DecodeString reverses EncodeString. Strings without the marker pass
// through unchanged, which keeps legacy uncompressed rows readable.
func DecodeString(s string) (string, error) {
	if !IsCompressed(s) {
		return s, nil
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(s, Marker))
	if err != nil {
		return "", fmt.Errorf("decode payload: %w", err)
	}
	out, err := Decompress(raw)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// IsCompressed reports whether s carries the compression marker.
func IsCompressed(s string) bool {
	return strings.HasPrefix(s, Marker)
}
