package engine

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/illarion/filevault/internal/vaulterr"
	"github.com/illarion/filevault/internal/versionstore"
)

// FileError is a per-file failure collected by EncryptDir
type FileError struct {
	Path string
	Err  error
}

// DirResult reports the outcome of EncryptDir
type DirResult struct {
	Encrypted   []*versionstore.Entry
	Failed      []FileError
	RemovedDirs []string
}

// EncryptDir encrypts every regular file below dir. A file whose absolute
// path matches an indexed record becomes a new version of that identity.
// Failures are collected per file and do not stop the walk; only
// cancellation does. When shredding, directories left empty are removed.
// opts.ID is ignored.
func (e *Engine) EncryptDir(ctx context.Context, dir string, opts EncryptOptions) (*DirResult, error) {
	if e.Locked() {
		return nil, vaulterr.ErrLocked
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, &vaulterr.IOError{Op: "resolve", Path: dir, Err: err}
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, &vaulterr.IOError{Op: "stat", Path: root, Err: err}
	}
	if !info.IsDir() {
		return nil, &vaulterr.IOError{Op: "walk", Path: root, Err: errors.New("not a directory")}
	}

	res := &DirResult{}
	var dirs []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			res.Failed = append(res.Failed, FileError{Path: path, Err: &vaulterr.IOError{Op: "walk", Path: path, Err: err}})
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			dirs = append(dirs, path)
			return nil
		}
		if !d.Type().IsRegular() || slices.Contains(e.opts.Exclude, path) {
			return nil
		}

		fileOpts := opts
		fileOpts.ID = ""
		if id, ok, err := e.index.FindByPath(path); err != nil {
			res.Failed = append(res.Failed, FileError{Path: path, Err: err})
			return nil
		} else if ok {
			fileOpts.ID = id
		}

		entry, err := e.Encrypt(ctx, path, fileOpts)
		if entry != nil {
			res.Encrypted = append(res.Encrypted, entry)
		}
		if err != nil {
			res.Failed = append(res.Failed, FileError{Path: path, Err: err})
		}
		return ctx.Err()
	})
	if err != nil {
		return res, err
	}

	if opts.Shred {
		// deepest first
		for _, d := range slices.Backward(dirs) {
			if empty, _ := isEmptyDir(d); empty {
				if err := os.Remove(d); err == nil {
					res.RemovedDirs = append(res.RemovedDirs, d)
				}
			}
		}
	}

	e.log.Info("directory encrypted", "path", root, "files", len(res.Encrypted), "failed", len(res.Failed))
	return res, nil
}

func isEmptyDir(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()
	names, err := f.Readdirnames(1)
	return len(names) == 0 && err != nil, nil
}
