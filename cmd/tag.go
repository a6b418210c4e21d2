package cmd

import (
	"context"
	"fmt"
	"strings"
)

// Tag replaces the tags and notes of an identity
func Tag(ctx context.Context, g Globals, ref string, tags []string, notes string) {
	a := openApp(g)
	defer a.Close()

	id := a.resolve(ref)
	a.unlock()

	rec, err := a.engine.Tag(ctx, id, tags, notes)
	if err != nil {
		HandleError(err)
	}
	fmt.Printf("✓ %s\n", rec.ID)
	fmt.Printf("  tags:  %s\n", strings.Join(rec.Tags, ", "))
	fmt.Printf("  notes: %s\n", rec.Notes)
}
