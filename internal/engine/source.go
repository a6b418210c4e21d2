package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/sethvargo/go-retry"

	"github.com/illarion/filevault/internal/vaulterr"
)

// transient reports errors worth retrying when reading a source
func transient(err error) bool {
	return errors.Is(err, syscall.EAGAIN) ||
		errors.Is(err, syscall.EBUSY) ||
		errors.Is(err, syscall.ETXTBSY) ||
		errors.Is(err, syscall.EINTR)
}

// readSource reads a regular file fully, retrying transient failures with
// exponential backoff
func (e *Engine) readSource(ctx context.Context, path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &vaulterr.IOError{Op: "stat", Path: path, Err: err}
	}
	if !info.Mode().IsRegular() {
		return nil, &vaulterr.IOError{Op: "read", Path: path, Err: fmt.Errorf("not a regular file")}
	}

	var data []byte
	backoff := retry.WithMaxRetries(e.opts.IORetries, retry.NewExponential(e.opts.RetryBase))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		b, err := e.readFile(path)
		if err != nil {
			if transient(err) {
				e.log.Debug("transient read error, retrying", "path", path, "error", err)
				return retry.RetryableError(err)
			}
			return err
		}
		data = b
		return nil
	})
	if err != nil {
		return nil, &vaulterr.IOError{Op: "read", Path: path, Err: err}
	}
	return data, nil
}
