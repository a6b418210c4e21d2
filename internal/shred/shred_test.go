package shred

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/illarion/filevault/internal/vaulterr"
)

func writeFile(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "secret.txt")
	if err := os.WriteFile(path, content, 0600); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	return path
}

// cancelAfter reports cancellation once Err has been called n times
type cancelAfter struct {
	context.Context
	n int
}

func (c *cancelAfter) Err() error {
	if c.n <= 0 {
		return context.Canceled
	}
	c.n--
	return nil
}

func TestShredRemovesFile(t *testing.T) {
	path := writeFile(t, bytes.Repeat([]byte("top secret "), 10000))
	dir := filepath.Dir(path)

	if err := New(nil, nil).Shred(context.Background(), path); err != nil {
		t.Fatalf("Shred failed: %v", err)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("File still exists: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Directory not empty after shred: %v", entries)
	}
}

func TestOverwriteReplacesContent(t *testing.T) {
	original := bytes.Repeat([]byte("A"), bufferSize+123)
	path := writeFile(t, original)

	if err := New([]Pattern{Zeros}, nil).Overwrite(context.Background(), path); err != nil {
		t.Fatalf("Overwrite failed: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if len(got) != len(original) {
		t.Fatalf("Size changed: %d, want %d", len(got), len(original))
	}
	if !bytes.Equal(got, make([]byte, len(original))) {
		t.Error("Content was not zeroed")
	}

	if err := New([]Pattern{Random}, nil).Overwrite(context.Background(), path); err != nil {
		t.Fatalf("Overwrite failed: %v", err)
	}
	got, _ = os.ReadFile(path)
	if bytes.Equal(got, make([]byte, len(original))) {
		t.Error("Random pass left zeros")
	}
}

func TestShredEmptyFile(t *testing.T) {
	path := writeFile(t, nil)
	if err := New(nil, nil).Shred(context.Background(), path); err != nil {
		t.Fatalf("Shred failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Empty file was not removed")
	}
}

func TestShredRefusesDirectory(t *testing.T) {
	dir := t.TempDir()
	err := New(nil, nil).Shred(context.Background(), dir)

	var se *vaulterr.ShredError
	if !errors.As(err, &se) {
		t.Fatalf("Expected ShredError, got %v", err)
	}
	if !se.Intact() {
		t.Error("Directory refusal should report the target intact")
	}
	if !errors.Is(err, vaulterr.ErrShred) {
		t.Error("ShredError should match ErrShred")
	}
}

func TestShredMissingFile(t *testing.T) {
	err := New(nil, nil).Shred(context.Background(), filepath.Join(t.TempDir(), "nope"))
	var se *vaulterr.ShredError
	if !errors.As(err, &se) || !se.Intact() {
		t.Fatalf("Expected intact ShredError, got %v", err)
	}
}

func TestShredReadOnlyFileLeftIntact(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores file permissions")
	}
	content := []byte("keep me")
	path := writeFile(t, content)
	if err := os.Chmod(path, 0400); err != nil {
		t.Fatalf("Chmod failed: %v", err)
	}

	err := New(nil, nil).Shred(context.Background(), path)
	var se *vaulterr.ShredError
	if !errors.As(err, &se) || !se.Intact() {
		t.Fatalf("Expected intact ShredError, got %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("File vanished: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Error("Content changed although shred failed before the first pass")
	}
}

func TestShredCancelledBeforeFirstPass(t *testing.T) {
	content := []byte("still here")
	path := writeFile(t, content)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New(nil, nil).Shred(ctx, path)
	var se *vaulterr.ShredError
	if !errors.As(err, &se) || !se.Intact() {
		t.Fatalf("Expected intact ShredError, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled in chain, got %v", err)
	}
	got, _ := os.ReadFile(path)
	if !bytes.Equal(got, content) {
		t.Error("Content changed")
	}
}

func TestShredCancelledBetweenPasses(t *testing.T) {
	path := writeFile(t, []byte("partially shredded"))

	ctx := &cancelAfter{Context: context.Background(), n: 1}
	err := New([]Pattern{Zeros, Random, Zeros}, nil).Shred(ctx, path)

	var se *vaulterr.ShredError
	if !errors.As(err, &se) {
		t.Fatalf("Expected ShredError, got %v", err)
	}
	if se.Intact() || se.Pass != 1 {
		t.Errorf("Pass = %d, want 1 (partial)", se.Pass)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Partially shredded file should remain: %v", err)
	}
	if !bytes.Equal(got, make([]byte, len(got))) {
		t.Error("First pass should have completed")
	}
}

func TestParsePasses(t *testing.T) {
	got, err := ParsePasses([]string{"random", "zeros", "ones"})
	if err != nil {
		t.Fatalf("ParsePasses failed: %v", err)
	}
	if len(got) != 3 || got[2] != Ones {
		t.Errorf("ParsePasses = %v", got)
	}
	if _, err := ParsePasses([]string{"gutmann"}); err == nil {
		t.Error("Expected error for unknown pass")
	}
}
