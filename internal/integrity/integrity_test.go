package integrity

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/illarion/filevault/internal/vaulterr"
)

func TestVerify(t *testing.T) {
	data := []byte("hello")
	d := Compute(data)

	if err := Verify(data, d); err != nil {
		t.Errorf("Verify failed on matching data: %v", err)
	}
	if err := Verify([]byte("hellp"), d); !errors.Is(err, vaulterr.ErrTamper) {
		t.Errorf("expected ErrTamper, got %v", err)
	}
}

func TestKnownDigest(t *testing.T) {
	d := Compute([]byte("hello"))
	want := "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	if d.String() != want {
		t.Errorf("digest = %s, want %s", d, want)
	}

	parsed, err := Parse(want)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if parsed != d {
		t.Error("parsed digest mismatch")
	}
	if _, err := Parse("abcd"); err == nil {
		t.Error("expected error for short digest")
	}
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.txt")
	if err := os.WriteFile(path, []byte("hello"), 0600); err != nil {
		t.Fatal(err)
	}

	d, err := File(path)
	if err != nil {
		t.Fatalf("File failed: %v", err)
	}
	if d != Compute([]byte("hello")) {
		t.Error("streamed digest differs from in-memory digest")
	}
}
