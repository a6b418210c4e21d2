package cmd

import (
	"fmt"
	"os"

	"github.com/illarion/filevault/internal/crypto"
	"github.com/illarion/filevault/internal/keyring"
)

// KeyringSave saves the store password to the OS keyring
func KeyringSave(g Globals) {
	a := openApp(g)
	defer a.Close()

	cred, err := a.credential()
	if err != nil {
		HandleError(err)
	}

	password, err := ReadPassword("Enter password: ")
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(password)

	if err := a.keys.Verify(password, cred); err != nil {
		HandleError(err)
	}

	if err := keyring.SavePassword(a.storeID, password); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to save to keyring: %s\n", err)
		os.Exit(1)
	}
	fmt.Println("Password saved to keyring")
}

// KeyringDelete removes the store password from the OS keyring
func KeyringDelete(g Globals) {
	a := openApp(g)
	defer a.Close()

	if err := keyring.DeletePassword(a.storeID); err != nil {
		if keyring.IsNotFound(err) {
			fmt.Println("No password stored in keyring")
			return
		}
		HandleError(err)
	}
	fmt.Println("Password removed from keyring")
}

// KeyringStatus checks if the store password is in the keyring
func KeyringStatus(g Globals) {
	a := openApp(g)
	defer a.Close()

	if keyring.HasPassword(a.storeID) {
		fmt.Println("Password: stored in keyring")
	} else {
		fmt.Println("Password: not stored")
	}
}
