// Package security confines plaintext restores to a target directory.
//
// File names come from the metadata index, which is stored unencrypted and
// could have been edited. Every write goes through an os.Root so a crafted
// name can never place plaintext outside the chosen directory.
package security

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrPathEscapes  = errors.New("path escapes restore directory")
	ErrAbsolutePath = errors.New("absolute paths are not allowed")
	ErrEmptyPath    = errors.New("empty path not allowed")
	ErrExists       = errors.New("file already exists")
)

// RestoreDir writes decrypted files below one directory
type RestoreDir struct {
	root *os.Root
	path string
}

// Open opens dir as a restore target
func Open(dir string) (*RestoreDir, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	root, err := os.OpenRoot(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open restore directory: %w", err)
	}

	return &RestoreDir{root: root, path: absPath}, nil
}

// Close releases the directory handle
func (d *RestoreDir) Close() error {
	if d.root != nil {
		return d.root.Close()
	}
	return nil
}

// Path returns the absolute restore directory
func (d *RestoreDir) Path() string {
	return d.path
}

// Normalize validates a name relative to the restore directory and returns
// it cleaned, with forward slashes. Absolute names, names escaping the
// directory and reserved names are rejected.
func (d *RestoreDir) Normalize(name string) (string, error) {
	if name == "" {
		return "", ErrEmptyPath
	}

	if !filepath.IsLocal(name) {
		if filepath.IsAbs(name) || strings.HasPrefix(name, "/") {
			return "", fmt.Errorf("%w: %s", ErrAbsolutePath, name)
		}
		return "", fmt.Errorf("%w: %s", ErrPathEscapes, name)
	}

	clean := filepath.Clean(name)
	rel, err := filepath.Rel(d.path, filepath.Join(d.path, clean))
	if err != nil {
		return "", fmt.Errorf("failed to compute relative path: %w", err)
	}
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%w: %s", ErrPathEscapes, name)
	}

	return filepath.ToSlash(rel), nil
}

// WriteFile writes data to name inside the directory, creating parent
// directories. Without overwrite an existing file is ErrExists.
func (d *RestoreDir) WriteFile(name string, data []byte, perm os.FileMode, overwrite bool) (string, error) {
	rel, err := d.Normalize(filepath.FromSlash(name))
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}
	platform := filepath.FromSlash(rel)

	if dir := filepath.Dir(platform); dir != "." {
		if err := d.mkdirAll(dir); err != nil {
			return "", err
		}
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags |= os.O_EXCL
	}
	f, err := d.root.OpenFile(platform, flags, perm)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("%w: %s", ErrExists, rel)
		}
		return "", err
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return filepath.Join(d.path, platform), nil
}

// mkdirAll creates every missing component of a validated relative dir
func (d *RestoreDir) mkdirAll(dir string) error {
	current := ""
	for _, part := range strings.Split(dir, string(filepath.Separator)) {
		current = filepath.Join(current, part)
		err := d.root.Mkdir(current, 0700)
		if err != nil && !errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("failed to create %s: %w", current, err)
		}
	}
	return nil
}
