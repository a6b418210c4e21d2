package cmd

import (
	"fmt"

	"github.com/illarion/filevault/internal/crypto"
)

// GenPass prints a random password that satisfies the password policy
func GenPass(length int) {
	password, err := crypto.GeneratePassword(length)
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(password)

	fmt.Println(string(password))
}
