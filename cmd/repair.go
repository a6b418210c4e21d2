package cmd

import (
	"context"
	"fmt"
)

// Repair reconciles the index with the stored versions after an interrupted
// write
func Repair(ctx context.Context, g Globals) {
	a := openApp(g)
	defer a.Close()

	report, err := a.engine.Repair(ctx)
	if err != nil {
		HandleError(err)
	}
	if !report.Changed() {
		fmt.Println("✓ Index is consistent")
		return
	}

	for _, r := range report.Adopted {
		fmt.Printf("  adopted %s v%d\n", r.ID, r.Version)
	}
	for _, r := range report.Dropped {
		fmt.Printf("  dropped %s v%d\n", r.ID, r.Version)
	}
	for _, id := range report.RemovedRecords {
		fmt.Printf("  removed empty record %s\n", id)
	}
	fmt.Printf("✓ Repaired: %d adopted, %d dropped\n", len(report.Adopted), len(report.Dropped))
}
