package cmd

import (
	"context"
	"fmt"

	"github.com/illarion/filevault/internal/crypto"
	"github.com/illarion/filevault/internal/integrity"
	"github.com/illarion/filevault/internal/textdiff"
)

// Diff shows the changes between two versions of an identity
func Diff(ctx context.Context, g Globals, ref string, from, to uint64) {
	a := openApp(g)
	defer a.Close()

	id := a.resolve(ref)
	a.unlock()

	oldData, err := a.engine.Decrypt(ctx, id, from)
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(oldData)

	newData, err := a.engine.Decrypt(ctx, id, to)
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(newData)

	if !textdiff.IsText(oldData) || !textdiff.IsText(newData) {
		oldSum, newSum := integrity.Compute(oldData), integrity.Compute(newData)
		if oldSum == newSum {
			fmt.Println("Binary versions are identical")
			return
		}
		fmt.Printf("Binary versions differ\n  v%d %s (%s)\n  v%d %s (%s)\n",
			from, oldSum, formatSize(int64(len(oldData))),
			to, newSum, formatSize(int64(len(newData))))
		return
	}

	out := textdiff.Unified(fmt.Sprintf("%s v%d", id, from), fmt.Sprintf("%s v%d", id, to), oldData, newData)
	if out == "" {
		fmt.Println("No differences")
		return
	}
	fmt.Print(out)
}
