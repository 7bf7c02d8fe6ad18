package seal

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testCipher(t *testing.T) *Cipher {
	t.Helper()
	key := bytes.Repeat([]byte{0x42}, KeySize)
	c, err := New(key)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c := testCipher(t)
	for _, s := range []string{"", "hello", `{"reason":"cleanup"}`, strings.Repeat("x", 4096), "émoji 🎉"} {
		enc, err := c.EncryptField(s)
		if err != nil {
			t.Fatal(err)
		}
		if !IsEncrypted(enc) {
			t.Fatalf("missing marker on %q", enc)
		}
		dec, err := c.DecryptField(enc)
		if err != nil {
			t.Fatal(err)
		}
		if dec != s {
			t.Errorf("round trip mismatch for %q", s)
		}
	}
}

func TestDecryptPassthroughLegacy(t *testing.T) {
	c := testCipher(t)
	// Rows written before encryption was introduced store plaintext.
	got, err := c.DecryptField("plain legacy content")
	if err != nil {
		t.Fatal(err)
	}
	if got != "plain legacy content" {
		t.Errorf("got %q, want passthrough", got)
	}
}

func TestDecryptCorrupt(t *testing.T) {
	c := testCipher(t)
	for _, v := range []string{Marker + "!!bad!!", Marker + "aGk=", Marker + "aGVsbG8gd29ybGQgbG9uZ2VyIHRoYW4gbm9uY2U="} {
		if _, err := c.DecryptField(v); !errors.Is(err, ErrDecrypt) {
			t.Errorf("DecryptField(%q) = %v, want ErrDecrypt", v, err)
		}
	}
}

func TestDecryptWrongKey(t *testing.T) {
	c := testCipher(t)
	enc, err := c.EncryptField("secret")
	if err != nil {
		t.Fatal(err)
	}

	other, err := New(bytes.Repeat([]byte{0x07}, KeySize))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := other.DecryptField(enc); !errors.Is(err, ErrDecrypt) {
		t.Errorf("wrong key decrypt = %v, want ErrDecrypt", err)
	}
}

func TestNewRejectsBadKey(t *testing.T) {
	if _, err := New([]byte("short")); err == nil {
		t.Error("expected error for short key")
	}
}

func TestNewFromPassphrase(t *testing.T) {
	c1, err := NewFromPassphrase("hunter2", []byte("salt-value"))
	if err != nil {
		t.Fatal(err)
	}
	c2, err := NewFromPassphrase("hunter2", []byte("salt-value"))
	if err != nil {
		t.Fatal(err)
	}
	enc, err := c1.EncryptField("cross-instance")
	if err != nil {
		t.Fatal(err)
	}
	dec, err := c2.DecryptField(enc)
	if err != nil {
		t.Fatal(err)
	}
	if dec != "cross-instance" {
		t.Error("same passphrase+salt must decrypt")
	}
}

func TestLoadOrCreateKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "vault.key")

	key1, err := LoadOrCreateKey(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(key1) != KeySize {
		t.Fatalf("key length = %d, want %d", len(key1), KeySize)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("key file permission = %o, want 0600", perm)
	}

	// Second load returns the same key.
	key2, err := LoadOrCreateKey(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(key1, key2) {
		t.Error("second load returned a different key")
	}
}
