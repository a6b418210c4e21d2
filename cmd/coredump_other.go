//go:build !unix

package cmd

// DisableCoreDumps is a no-op on platforms without rlimits
func DisableCoreDumps() error {
	return nil
}
