package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/illarion/filevault/internal/security"
)

// DecryptFlags carry the decrypt command options
type DecryptFlags struct {
	Version uint64 // 0 selects the latest
	Out     string // file path, "-" or empty for stdout
	Restore string // directory to restore the original name into
	Force   bool
}

// Decrypt writes the plaintext of one version of an identity. The identity
// may be given by id or by the original path of the file.
func Decrypt(ctx context.Context, g Globals, ref string, f DecryptFlags) {
	if f.Out != "" && f.Restore != "" {
		usageError("--out and --restore are exclusive", "filevault decrypt [--version N] [--out FILE|--restore DIR] <id|path>")
	}

	a := openApp(g)
	defer a.Close()

	id := a.resolve(ref)
	rec, err := a.engine.Record(id)
	if err != nil {
		HandleError(err)
	}

	a.unlock()
	plaintext, err := a.engine.Decrypt(ctx, id, f.Version)
	if err != nil {
		HandleError(err)
	}

	switch {
	case f.Restore != "":
		dir, err := security.Open(f.Restore)
		if err != nil {
			HandleError(err)
		}
		defer dir.Close()

		written, err := dir.WriteFile(rec.Name, plaintext, 0600, f.Force)
		if err != nil {
			HandleError(err)
		}
		fmt.Fprintf(os.Stderr, "✓ Restored %s\n", written)
	case f.Out != "" && f.Out != "-":
		flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
		if f.Force {
			flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
		}
		file, err := os.OpenFile(f.Out, flags, 0600)
		if os.IsExist(err) {
			HandleError(fmt.Errorf("%s: %w", f.Out, security.ErrExists))
		}
		if err != nil {
			HandleError(err)
		}
		if _, err := file.Write(plaintext); err != nil {
			file.Close()
			HandleError(err)
		}
		if err := file.Close(); err != nil {
			HandleError(err)
		}
		fmt.Fprintf(os.Stderr, "✓ Wrote %s\n", f.Out)
	default:
		if _, err := os.Stdout.Write(plaintext); err != nil {
			HandleError(err)
		}
	}
}

// resolve maps a command line reference to an identity. References that
// name a previously encrypted path resolve through the index.
func (a *app) resolve(ref string) string {
	if _, err := a.engine.Record(ref); err == nil {
		return ref
	}
	if abs, err := filepath.Abs(ref); err == nil {
		id, ok, err := a.engine.FindByPath(abs)
		if err != nil {
			HandleError(err)
		}
		if ok {
			return id
		}
	}
	return ref
}
