package cmd

import (
	"fmt"
	"os"
)

// Compact rewrites the store to reclaim space left by deleted versions
func Compact(g Globals) {
	a := openApp(g)
	defer a.Close()

	info, err := os.Stat(a.db.Path())
	if err != nil {
		HandleError(err)
	}
	sizeBefore := info.Size()

	if err := a.db.Compact(); err != nil {
		HandleError(err)
	}

	info, err = os.Stat(a.db.Path())
	if err != nil {
		HandleError(err)
	}
	sizeAfter := info.Size()

	fmt.Printf("Compacted: %s -> %s\n", formatSize(sizeBefore), formatSize(sizeAfter))
}
