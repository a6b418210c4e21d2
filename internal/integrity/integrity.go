// Package integrity computes and verifies plaintext digests used for tamper
// detection, independently of the AEAD tag.
package integrity

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/illarion/filevault/internal/vaulterr"
)

// Size is the digest length in bytes
const Size = sha256.Size

// Digest is a SHA-256 fingerprint of plaintext bytes
type Digest [Size]byte

// Compute returns the digest of plaintext
func Compute(plaintext []byte) Digest {
	return Digest(sha256.Sum256(plaintext))
}

// Verify recomputes the digest of plaintext and compares it with want.
// A mismatch is reported as vaulterr.ErrTamper.
func Verify(plaintext []byte, want Digest) error {
	got := Compute(plaintext)
	if subtle.ConstantTimeCompare(got[:], want[:]) != 1 {
		return vaulterr.ErrTamper
	}
	return nil
}

// File streams the file at path through the digest
func File(path string) (Digest, error) {
	var d Digest
	f, err := os.Open(path)
	if err != nil {
		return d, err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return d, err
	}
	copy(d[:], h.Sum(nil))
	return d, nil
}

// String returns the hex form of the digest
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// MarshalText encodes the digest as hex
func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText decodes a hex digest
func (d *Digest) UnmarshalText(text []byte) error {
	b, err := hex.DecodeString(string(text))
	if err != nil {
		return fmt.Errorf("invalid digest: %w", err)
	}
	if len(b) != Size {
		return fmt.Errorf("invalid digest length %d", len(b))
	}
	copy(d[:], b)
	return nil
}

// Parse decodes a hex digest
func Parse(s string) (Digest, error) {
	var d Digest
	err := d.UnmarshalText([]byte(s))
	return d, err
}
