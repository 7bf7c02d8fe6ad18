package codec

import (
	"bytes"
	"crypto/rand"
	"strings"
	"testing"
)

func TestCompressRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte("archived chat payload "), 200)
	res, ok := Compress(data, DefaultConfig())
	if !ok {
		t.Fatal("expected compressible input to compress")
	}
	if res.CompressedSize >= res.OriginalSize {
		t.Errorf("compressed %d >= original %d", res.CompressedSize, res.OriginalSize)
	}
	if res.Algorithm != AlgorithmGzip {
		t.Errorf("algorithm = %q, want gzip", res.Algorithm)
	}

	out, err := Decompress(res.Data)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, data) {
		t.Error("round trip mismatch")
	}
}

func TestCompressNotBeneficial(t *testing.T) {
	// Random bytes do not compress; the codec must decline.
	data := make([]byte, 256)
	if _, err := rand.Read(data); err != nil {
		t.Fatal(err)
	}
	if _, ok := Compress(data, DefaultConfig()); ok {
		t.Error("random input should not report beneficial compression")
	}

	if _, ok := Compress(nil, DefaultConfig()); ok {
		t.Error("empty input should not compress")
	}
}

func TestCompressMinSizeFloor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinSize = 1024
	data := bytes.Repeat([]byte("aaaa"), 64) // 256 bytes, below floor
	if _, ok := Compress(data, cfg); ok {
		t.Error("input below MinSize should not compress")
	}
}

func TestDecompressCorrupt(t *testing.T) {
	if _, err := Decompress([]byte("not gzip at all")); err == nil {
		t.Error("expected error for corrupt input")
	}
}

func TestEncodeDecodeString(t *testing.T) {
	s := strings.Repeat("the quick brown fox ", 100)
	enc := EncodeString(s, DefaultConfig())
	if !IsCompressed(enc) {
		t.Fatal("expected marker prefix on compressible string")
	}
	dec, err := DecodeString(enc)
	if err != nil {
		t.Fatal(err)
	}
	if dec != s {
		t.Error("string round trip mismatch")
	}
}

func TestDecodeStringPassthrough(t *testing.T) {
	// Legacy rows store raw JSON without the marker.
	raw := `{"version":1}`
	got, err := DecodeString(raw)
	if err != nil {
		t.Fatal(err)
	}
	if got != raw {
		t.Errorf("got %q, want passthrough", got)
	}
}

func TestDecodeStringCorrupt(t *testing.T) {
	if _, err := DecodeString(Marker + "!!!not base64!!!"); err == nil {
		t.Error("expected error for bad base64")
	}
	if _, err := DecodeString(Marker + "aGVsbG8="); err == nil {
		t.Error("expected error for non-gzip payload")
	}
}

func TestEncodeStringIncompressible(t *testing.T) {
	s := "short"
	if got := EncodeString(s, DefaultConfig()); got != s {
		t.Errorf("got %q, want raw string back", got)
	}
}
