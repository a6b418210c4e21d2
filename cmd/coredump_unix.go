//go:build unix

package cmd

import "golang.org/x/sys/unix"

// DisableCoreDumps keeps key material out of crash dumps
func DisableCoreDumps() error {
	return unix.Setrlimit(unix.RLIMIT_CORE, &unix.Rlimit{Cur: 0, Max: 0})
}
