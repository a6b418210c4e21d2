package cmd

import (
	"fmt"
	"os"

	"github.com/illarion/filevault/internal/crypto"
	"github.com/illarion/filevault/internal/keyring"
)

// Passwd changes the store password. With upgrade the password stays the
// same and only the key derivation cost is raised to the configured one.
// Stored versions are not rewritten since the data key does not change.
func Passwd(g Globals, upgrade bool) {
	a := openApp(g)
	defer a.Close()

	cred, err := a.credential()
	if err != nil {
		HandleError(err)
	}
	if upgrade && !a.keys.NeedsUpgrade(cred) {
		fmt.Printf("Key derivation already uses %s\n", cred.KDF)
		return
	}

	currentPassword, _, err := GetPasswordWithRetry("Enter current password: ", a.storeID, a.cfg.Keyring, func(p []byte) error {
		return a.keys.Verify(p, cred)
	})
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(currentPassword)

	newPassword := currentPassword
	if !upgrade {
		newPassword, err = ReadPasswordConfirm("Enter new password: ")
		if err != nil {
			HandleError(err)
		}
		defer crypto.ClearBytes(newPassword)
	}

	next, err := a.keys.ChangePassword(currentPassword, newPassword, cred)
	if err != nil {
		HandleError(err)
	}
	data, err := next.Marshal()
	if err != nil {
		HandleError(err)
	}
	if err := a.db.PutCredential(data); err != nil {
		HandleError(err)
	}

	if !upgrade && keyring.HasPassword(a.storeID) {
		if err := keyring.SavePassword(a.storeID, newPassword); err == nil {
			fmt.Println("Keyring updated with new password")
		} else {
			fmt.Fprintf(os.Stderr, "warning: failed to update keyring: %s\n", err)
		}
	}

	if upgrade {
		fmt.Printf("key derivation upgraded to %s\n", next.KDF)
		return
	}
	fmt.Println("password changed successfully")
}
