package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/illarion/filevault/internal/keyring"
	"github.com/illarion/filevault/internal/storage"
)

// Status shows the store location, credential and contents. Does not
// require a password.
func Status(g Globals) {
	cfg, _ := loadConfig(g)
	if _, err := os.Stat(cfg.Store); os.IsNotExist(err) {
		fmt.Printf("No store found at %s\n", cfg.Store)
		fmt.Println("Run 'filevault init' to create one")
		return
	}

	a := openApp(g)
	defer a.Close()

	stats, err := a.db.Stats()
	if err != nil {
		HandleError(err)
	}
	modified, err := a.db.GetModified()
	if err != nil {
		HandleError(err)
	}
	cred, err := a.credential()
	if err != nil && !errors.Is(err, storage.ErrNoCredential) {
		HandleError(err)
	}

	fmt.Printf("Store:        %s (%s)\n", a.db.Path(), formatSize(stats.FileSize))
	fmt.Printf("Modified:     %s\n", modified.Local().Format(time.DateTime))
	fmt.Printf("Identities:   %d\n", stats.Identities)
	fmt.Printf("Versions:     %d (%s encrypted)\n", stats.Versions, formatSize(stats.BlobBytes))
	fmt.Printf("Cipher:       %s (new versions)\n", a.cfg.Cipher)
	fmt.Printf("Compression:  %s\n", a.cfg.Compression)
	if cred != nil {
		fmt.Printf("Key:          %s\n", cred.KDF)
		if a.keys.NeedsUpgrade(cred) {
			fmt.Println("              ⚠ weaker than configured, run 'filevault passwd --upgrade'")
		}
	}
	if a.cfg.Keyring {
		if keyring.HasPassword(a.storeID) {
			fmt.Println("Keyring:      password stored")
		} else {
			fmt.Println("Keyring:      not stored")
		}
	}

	records, err := a.index.All()
	if err != nil {
		HandleError(err)
	}
	fmt.Println()
	if len(records) == 0 {
		fmt.Println("  (no files)")
		return
	}
	for _, rec := range records {
		marker := "●"
		if _, err := os.Lstat(rec.Path); err == nil {
			marker = "◐" // plaintext still present at the original path
		}
		fmt.Printf("  %s %s  v%d  %s\n", marker, rec.ID, rec.Latest(), rec.Path)
	}
	fmt.Println()
	fmt.Println("● stored only   ◐ plaintext still on disk")
}
