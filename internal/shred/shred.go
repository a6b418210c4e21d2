// Package shred overwrites and removes plaintext files.
//
// Overwriting in place only defeats recovery through the filesystem API.
// Copy-on-write filesystems, journals, snapshots and SSD wear levelling can
// keep older copies of the blocks; no guarantee is made at the physical
// layer.
package shred

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/illarion/filevault/internal/vaulterr"
)

// Pattern is the content written by one overwrite pass
type Pattern string

const (
	Random Pattern = "random"
	Zeros  Pattern = "zeros"
	Ones   Pattern = "ones"
)

// DefaultPasses is used when no passes are configured
var DefaultPasses = []Pattern{Random, Zeros, Random}

const bufferSize = 64 * 1024

// ParsePasses validates pass names from configuration
func ParsePasses(names []string) ([]Pattern, error) {
	out := make([]Pattern, 0, len(names))
	for _, n := range names {
		switch p := Pattern(n); p {
		case Random, Zeros, Ones:
			out = append(out, p)
		default:
			return nil, fmt.Errorf("unknown shred pass %q", n)
		}
	}
	return out, nil
}

// Shredder overwrites files with a fixed sequence of passes
type Shredder struct {
	passes []Pattern
	log    *slog.Logger
}

// New creates a shredder. Empty passes select DefaultPasses.
func New(passes []Pattern, logger *slog.Logger) *Shredder {
	if len(passes) == 0 {
		passes = DefaultPasses
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Shredder{passes: passes, log: logger}
}

// Passes returns the configured pass sequence
func (s *Shredder) Passes() []Pattern {
	return s.passes
}

// Shred overwrites path with every pass, renames it to a random name in the
// same directory and removes it. Cancellation is honoured between passes
// only. Every failure is a *vaulterr.ShredError.
func (s *Shredder) Shred(ctx context.Context, path string) error {
	if err := s.Overwrite(ctx, path); err != nil {
		return err
	}

	done := len(s.passes)
	tmp := filepath.Join(filepath.Dir(path), "."+uuid.NewString())
	if err := os.Rename(path, tmp); err != nil {
		return &vaulterr.ShredError{Path: path, Pass: done, Err: fmt.Errorf("rename: %w", err)}
	}
	if err := os.Remove(tmp); err != nil {
		return &vaulterr.ShredError{Path: path, Pass: done, Err: fmt.Errorf("remove: %w", err)}
	}

	s.log.Debug("file shredded", "path", path, "passes", done)
	return nil
}

// Overwrite runs the overwrite passes without removing the file
func (s *Shredder) Overwrite(ctx context.Context, path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return &vaulterr.ShredError{Path: path, Pass: -1, Err: err}
	}
	if !info.Mode().IsRegular() {
		return &vaulterr.ShredError{Path: path, Pass: -1, Err: errors.New("not a regular file")}
	}

	// opened before the first write so permission problems leave the file intact
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return &vaulterr.ShredError{Path: path, Pass: -1, Err: err}
	}
	defer f.Close()

	size := info.Size()
	buf := make([]byte, bufferSize)
	for i, p := range s.passes {
		if err := ctx.Err(); err != nil {
			pass := i
			if i == 0 {
				pass = -1
			}
			return &vaulterr.ShredError{Path: path, Pass: pass, Err: err}
		}
		if err := overwrite(f, size, p, buf); err != nil {
			return &vaulterr.ShredError{Path: path, Pass: i, Err: err}
		}
		s.log.Debug("shred pass complete", "path", path, "pass", i+1, "pattern", p)
	}

	if err := f.Close(); err != nil {
		return &vaulterr.ShredError{Path: path, Pass: len(s.passes) - 1, Err: err}
	}
	return nil
}

// overwrite writes size bytes of pattern from the start of f and syncs
func overwrite(f *os.File, size int64, p Pattern, buf []byte) error {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}

	fill := byte(0)
	if p == Ones {
		fill = 0xFF
	}
	if p != Random {
		for i := range buf {
			buf[i] = fill
		}
	}

	for remaining := size; remaining > 0; {
		chunk := buf
		if remaining < int64(len(chunk)) {
			chunk = chunk[:remaining]
		}
		if p == Random {
			if _, err := rand.Read(chunk); err != nil {
				return err
			}
		}
		n, err := f.Write(chunk)
		if err != nil {
			return err
		}
		remaining -= int64(n)
	}
	return f.Sync()
}
