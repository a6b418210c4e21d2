package cmd

import (
	"context"
	"fmt"
	"time"
)

// Versions lists the versions of an identity, newest first. No password is
// required since entry metadata is stored unencrypted.
func Versions(ctx context.Context, g Globals, ref string) {
	a := openApp(g)
	defer a.Close()

	id := a.resolve(ref)
	rec, err := a.engine.Record(id)
	if err != nil {
		HandleError(err)
	}
	versions, err := a.engine.ListVersions(ctx, id)
	if err != nil {
		HandleError(err)
	}

	fmt.Printf("%s  %s\n", rec.ID, rec.Path)
	if len(rec.Tags) > 0 {
		fmt.Printf("  Tags:  %v\n", rec.Tags)
	}
	if rec.Notes != "" {
		fmt.Printf("  Notes: %s\n", rec.Notes)
	}
	fmt.Println()

	if len(versions) == 0 {
		fmt.Println("  (no versions)")
		return
	}
	for _, v := range versions {
		fmt.Printf("  v%-4d %s  %9s  %9s stored  %s/%s\n",
			v.Version,
			v.Created.Local().Format(time.DateTime),
			formatSize(v.Size),
			formatSize(v.StoredSize),
			v.Cipher,
			v.Compression,
		)
	}
}
