package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/illarion/filevault/internal/security"
	"github.com/illarion/filevault/internal/storage"
	"github.com/illarion/filevault/internal/vaulterr"
)

// HandleError prints err for the user and exits with status 1
func HandleError(err error) {
	var shredErr *vaulterr.ShredError
	switch {
	case errors.Is(err, storage.ErrNotInitialized):
		fmt.Fprintf(os.Stderr, "Error: store not initialized\n")
		fmt.Fprintf(os.Stderr, "Run 'filevault init' first\n")
	case errors.Is(err, vaulterr.ErrAuth):
		fmt.Fprintf(os.Stderr, "Error: wrong password\n")
	case errors.Is(err, vaulterr.ErrWeakPassword):
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		fmt.Fprintf(os.Stderr, "Use 'filevault genpass' for a strong password\n")
	case errors.Is(err, vaulterr.ErrAuthTag), errors.Is(err, vaulterr.ErrTamper):
		fmt.Fprintf(os.Stderr, "Error: integrity check failed: %s\n", err)
		fmt.Fprintf(os.Stderr, "The stored version is corrupted or was tampered with\n")
	case errors.As(err, &shredErr):
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		if shredErr.Intact() {
			fmt.Fprintf(os.Stderr, "The original file was left in place\n")
		} else {
			fmt.Fprintf(os.Stderr, "The original file was partially overwritten\n")
		}
	case errors.Is(err, security.ErrExists):
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		fmt.Fprintf(os.Stderr, "Use --force to overwrite\n")
	default:
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
	os.Exit(1)
}

// usageError prints a usage line and exits
func usageError(msg, usage string) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	fmt.Fprintf(os.Stderr, "Usage: %s\n", usage)
	os.Exit(1)
}

// ParseVersion parses a version argument; "latest" and "0" mean newest
func ParseVersion(s string) (uint64, error) {
	if s == "latest" {
		return 0, nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid version %q", s)
	}
	return v, nil
}

// formatSize formats bytes for display
func formatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
