package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/illarion/filevault/internal/engine"
	"github.com/illarion/filevault/internal/git"
	"github.com/illarion/filevault/internal/vaulterr"
)

// EncryptFlags carry the encrypt command options
type EncryptFlags struct {
	ID    string
	Tags  []string
	Notes string
	Keep  bool // do not shred the sources
	Shred bool // shred even when the config disables it
}

// Encrypt stores a new version of every file and directory in paths. A file
// whose path is already indexed becomes the next version of that identity.
func Encrypt(ctx context.Context, g Globals, paths []string, f EncryptFlags) {
	if len(paths) == 0 {
		usageError("encrypt requires at least one path", "filevault encrypt [--id ID] [--tag TAG]... [--note TEXT] [--keep] <path>...")
	}
	if f.ID != "" && len(paths) > 1 {
		usageError("--id applies to a single file", "filevault encrypt --id ID <file>")
	}

	a := openApp(g)
	defer a.Close()
	a.unlock()

	opts := engine.EncryptOptions{
		ID:    f.ID,
		Tags:  f.Tags,
		Notes: f.Notes,
		Shred: (a.cfg.Shred.Enabled || f.Shred) && !f.Keep,
	}

	var shredded []string
	failed := false
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			HandleError(err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			failed = true
			continue
		}

		if info.IsDir() {
			if opts.ID != "" {
				usageError("--id cannot be used with a directory", "filevault encrypt --id ID <file>")
			}
			res, err := a.engine.EncryptDir(ctx, abs, opts)
			if res != nil {
				for _, e := range res.Encrypted {
					fmt.Printf("✓ %s -> %s v%d\n", e.SourcePath, e.ID, e.Version)
					if opts.Shred {
						shredded = append(shredded, e.SourcePath)
					}
				}
				for _, fe := range res.Failed {
					fmt.Fprintf(os.Stderr, "✗ %s: %s\n", fe.Path, fe.Err)
					failed = true
				}
				for _, d := range res.RemovedDirs {
					fmt.Printf("  removed empty directory %s\n", d)
				}
			}
			if err != nil {
				HandleError(err)
			}
			continue
		}

		fileOpts := opts
		if fileOpts.ID == "" {
			id, ok, err := a.engine.FindByPath(abs)
			if err != nil {
				HandleError(err)
			}
			if ok {
				fileOpts.ID = id
			}
		}

		entry, err := a.engine.Encrypt(ctx, abs, fileOpts)
		var shredErr *vaulterr.ShredError
		switch {
		case errors.As(err, &shredErr) && entry != nil:
			fmt.Printf("✓ %s -> %s v%d\n", abs, entry.ID, entry.Version)
			fmt.Fprintf(os.Stderr, "✗ %s\n", shredErr)
			failed = true
		case err != nil:
			if errors.Is(err, context.Canceled) {
				HandleError(err)
			}
			fmt.Fprintf(os.Stderr, "✗ %s: %s\n", abs, err)
			failed = true
		default:
			fmt.Printf("✓ %s -> %s v%d\n", abs, entry.ID, entry.Version)
			if opts.Shred {
				shredded = append(shredded, abs)
			}
		}
	}

	for _, w := range git.Warnings(git.Check(shredded)) {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
	if failed {
		os.Exit(1)
	}
}
