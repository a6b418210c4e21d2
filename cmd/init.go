package cmd

import (
	"fmt"
	"os"

	"github.com/illarion/filevault/internal/crypto"
	"github.com/illarion/filevault/internal/keys"
	"github.com/illarion/filevault/internal/storage"
)

// Init creates a new store and its master credential
func Init(g Globals) {
	cfg, log := loadConfig(g)

	db, err := storage.Open(cfg.Store)
	if err != nil {
		HandleError(err)
	}
	defer db.Close()

	initialized, err := db.IsInitialized()
	if err != nil {
		HandleError(err)
	}
	if initialized {
		fmt.Fprintf(os.Stderr, "Error: store already initialized at %s\n", cfg.Store)
		fmt.Fprintf(os.Stderr, "Use 'filevault status' to see current state\n")
		os.Exit(1)
	}

	password, err := GetNewPassword("Enter new password: ")
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(password)

	km := keys.NewManager(cfg.KDFParams(), log)
	cred, _, err := km.Create(password)
	if err != nil {
		HandleError(err)
	}
	defer km.Lock()

	data, err := cred.Marshal()
	if err != nil {
		HandleError(err)
	}
	if err := db.Initialize(); err != nil {
		HandleError(err)
	}
	if err := db.PutCredential(data); err != nil {
		HandleError(err)
	}

	fmt.Printf("✓ Initialized store at %s\n", cfg.Store)
	fmt.Printf("  Key derivation: %s\n", cred.KDF)

	if cfg.Keyring {
		if storeID, err := db.StoreID(); err == nil {
			OfferToSavePassword(storeID, password)
		}
	}
}
