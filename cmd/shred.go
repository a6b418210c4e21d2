package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/illarion/filevault/internal/git"
	"github.com/illarion/filevault/internal/shred"
)

// Shred overwrites and removes files without storing them
func Shred(ctx context.Context, g Globals, paths []string, force bool) {
	if len(paths) == 0 {
		usageError("shred requires at least one file", "filevault shred [--force] <file>...")
	}
	cfg, log := loadConfig(g)

	passes, err := shred.ParsePasses(cfg.Shred.Passes)
	if err != nil {
		HandleError(err)
	}
	shredder := shred.New(passes, log)

	if !force && !confirm(fmt.Sprintf("Permanently destroy %d file(s)? [y/N]: ", len(paths)), false) {
		fmt.Println("Aborted")
		return
	}

	var done []string
	failed := false
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			HandleError(err)
		}
		if err := shredder.Shred(ctx, abs); err != nil {
			fmt.Fprintf(os.Stderr, "✗ %s\n", err)
			failed = true
			if ctx.Err() != nil {
				break
			}
			continue
		}
		done = append(done, abs)
		fmt.Printf("✓ Shredded %s (%d passes)\n", abs, len(shredder.Passes()))
	}

	for _, w := range git.Warnings(git.Check(done)) {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
	if failed {
		os.Exit(1)
	}
}
