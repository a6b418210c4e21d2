package cmd

import (
	"context"
	"fmt"
)

// Remove deletes one version of an identity. Removing the last version
// removes the identity.
func Remove(ctx context.Context, g Globals, ref string, version uint64) {
	a := openApp(g)
	defer a.Close()

	id := a.resolve(ref)
	a.unlock()
	if err := a.engine.DeleteVersion(ctx, id, version); err != nil {
		HandleError(err)
	}
	fmt.Printf("✓ Removed %s v%d\n", id, version)

	if _, err := a.engine.Record(id); err != nil {
		fmt.Printf("  %s has no versions left and was removed\n", id)
	}
}
