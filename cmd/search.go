package cmd

import (
	"fmt"
	"strings"
)

// Search prints the records matching query, best first. An empty query
// lists everything.
func Search(g Globals, query string) {
	a := openApp(g)
	defer a.Close()

	n := 0
	for rec := range a.engine.Search(query) {
		n++
		fmt.Printf("%s  v%-4d %s\n", rec.ID, rec.Latest(), rec.Path)
		if len(rec.Tags) > 0 {
			fmt.Printf("    tags: %s\n", strings.Join(rec.Tags, ", "))
		}
		if rec.Notes != "" {
			fmt.Printf("    notes: %s\n", rec.Notes)
		}
	}
	if n == 0 {
		fmt.Println("No matches")
	}
}
