package cmd

import (
	"context"
	"fmt"
	"os"
)

// Verify authenticates every stored version
func Verify(ctx context.Context, g Globals) {
	a := openApp(g)
	defer a.Close()
	a.unlock()

	failures, err := a.engine.Verify(ctx)
	if err != nil {
		HandleError(err)
	}
	if len(failures) == 0 {
		fmt.Println("✓ All versions verified")
		return
	}

	for _, f := range failures {
		fmt.Fprintf(os.Stderr, "✗ %s v%d (%s): %s\n", f.ID, f.Version, f.Path, f.Err)
	}
	fmt.Fprintf(os.Stderr, "%d version(s) failed verification\n", len(failures))
	os.Exit(1)
}
