package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"pgregory.net/rapid"

	"github.com/illarion/filevault/internal/crypto"
	"github.com/illarion/filevault/internal/vaulterr"
	"github.com/illarion/filevault/internal/versionstore"
)

func TestPropertyRoundTrip(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	path := filepath.Join(f.dir, "data")

	rapid.Check(t, func(rt *rapid.T) {
		content := rapid.SliceOfN(rapid.Byte(), 0, 4096).Draw(rt, "content")
		f.engine.opts.Cipher = rapid.SampledFrom([]crypto.CipherSuite{crypto.AES256GCM, crypto.ChaCha20Poly1305}).Draw(rt, "cipher")
		f.engine.opts.Compression = rapid.SampledFrom([]versionstore.Compression{versionstore.CompressionNone, versionstore.CompressionZstd}).Draw(rt, "compression")

		if err := os.WriteFile(path, content, 0600); err != nil {
			rt.Fatalf("write: %v", err)
		}
		entry, err := f.engine.Encrypt(ctx, path, EncryptOptions{})
		if err != nil {
			rt.Fatalf("encrypt: %v", err)
		}
		got, err := f.engine.Decrypt(ctx, entry.ID, entry.Version)
		if err != nil {
			rt.Fatalf("decrypt: %v", err)
		}
		if !slices.Equal(got, content) {
			rt.Fatalf("round trip mismatch: %d bytes in, %d bytes out", len(content), len(got))
		}
	})
}

func TestPropertySingleBitFlip(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	path := filepath.Join(f.dir, "data")

	rapid.Check(t, func(rt *rapid.T) {
		content := rapid.SliceOfN(rapid.Byte(), 1, 512).Draw(rt, "content")
		if err := os.WriteFile(path, content, 0600); err != nil {
			rt.Fatalf("write: %v", err)
		}
		entry, err := f.engine.Encrypt(ctx, path, EncryptOptions{})
		if err != nil {
			rt.Fatalf("encrypt: %v", err)
		}

		pos := rapid.IntRange(0, len(entry.Ciphertext)-1).Draw(rt, "byte")
		bit := rapid.IntRange(0, 7).Draw(rt, "bit")
		f.updateBlob(t, entry.ID, entry.Version, func(b []byte) []byte {
			b[pos] ^= 1 << bit
			return b
		})

		_, err = f.engine.Decrypt(ctx, entry.ID, entry.Version)
		if !errors.Is(err, vaulterr.ErrAuthTag) {
			rt.Fatalf("flipped bit %d of byte %d: got %v, want ErrAuthTag", bit, pos, err)
		}
	})
}

// Versions of one identity strictly increase and are never reused, whatever
// mix of encryptions and deletions happens.
func TestPropertyVersionMonotonicity(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	rapid.Check(t, func(rt *rapid.T) {
		path := filepath.Join(f.dir, "mono")
		if err := os.WriteFile(path, []byte("seed"), 0600); err != nil {
			rt.Fatalf("write: %v", err)
		}
		first, err := f.engine.Encrypt(ctx, path, EncryptOptions{})
		if err != nil {
			rt.Fatalf("encrypt: %v", err)
		}
		id := first.ID
		issued := []uint64{first.Version}
		live := []uint64{first.Version}

		steps := rapid.IntRange(1, 12).Draw(rt, "steps")
		for range steps {
			if len(live) > 0 && rapid.Bool().Draw(rt, "delete") {
				i := rapid.IntRange(0, len(live)-1).Draw(rt, "victim")
				if err := f.engine.DeleteVersion(ctx, id, live[i]); err != nil {
					rt.Fatalf("delete v%d: %v", live[i], err)
				}
				live = slices.Delete(live, i, i+1)
				if len(live) == 0 {
					// the record is gone; later encrypts start a fresh identity
					break
				}
				continue
			}

			e, err := f.engine.Encrypt(ctx, path, EncryptOptions{ID: id})
			if err != nil {
				rt.Fatalf("encrypt: %v", err)
			}
			if last := issued[len(issued)-1]; e.Version <= last {
				rt.Fatalf("version %d not above last issued %d", e.Version, last)
			}
			issued = append(issued, e.Version)
			live = append(live, e.Version)
		}

		if len(live) == 0 {
			return
		}
		sums, err := f.engine.ListVersions(ctx, id)
		if err != nil {
			rt.Fatalf("list: %v", err)
		}
		var listed []uint64
		for _, s := range sums {
			listed = append(listed, s.Version)
		}
		slices.Reverse(listed)
		if !slices.Equal(listed, live) {
			rt.Fatalf("listed %v, want %v", listed, live)
		}
	})
}
