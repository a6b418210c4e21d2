package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/illarion/filevault/internal/config"
	"github.com/illarion/filevault/internal/crypto"
	"github.com/illarion/filevault/internal/keyring"
	"github.com/illarion/filevault/internal/vaulterr"
)

// PasswordSource tells where a password came from
type PasswordSource int

const (
	SourceEnv PasswordSource = iota
	SourceKeyring
	SourcePrompt
)

const promptAttempts = 3

// ReadPassword reads a password from the terminal without echoing
func ReadPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	return password, nil
}

// ReadPasswordConfirm reads a password twice and ensures they match
func ReadPasswordConfirm(prompt string) ([]byte, error) {
	password1, err := ReadPassword(prompt)
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(password1)

	password2, err := ReadPassword("Confirm password: ")
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(password2)

	if !crypto.ConstantTimeCompare(password1, password2) {
		return nil, errors.New("passwords do not match")
	}
	return append([]byte(nil), password1...), nil
}

// PasswordFromEnv reads the password from FILEVAULT_PASSWORD
func PasswordFromEnv() []byte {
	password := os.Getenv(config.EnvPassword)
	if password == "" {
		return nil
	}
	return []byte(password)
}

// GetPasswordWithRetry tries the environment, then the keyring, then the
// terminal. verify is called with each candidate; a keyring entry that fails
// it is stale and gets removed. The caller clears the returned password.
func GetPasswordWithRetry(prompt, storeID string, useKeyring bool, verify func([]byte) error) ([]byte, PasswordSource, error) {
	if password := PasswordFromEnv(); password != nil {
		if err := verify(password); err != nil {
			crypto.ClearBytes(password)
			return nil, SourceEnv, err
		}
		return password, SourceEnv, nil
	}

	if useKeyring && storeID != "" {
		if password, err := keyring.GetPassword(storeID); err == nil {
			if err := verify(password); err == nil {
				return password, SourceKeyring, nil
			}
			crypto.ClearBytes(password)
			fmt.Fprintln(os.Stderr, "warning: stored keyring password is stale, removing it")
			_ = keyring.DeletePassword(storeID)
		}
	}

	var lastErr error
	for range promptAttempts {
		password, err := ReadPassword(prompt)
		if err != nil {
			return nil, SourcePrompt, err
		}
		if err := verify(password); err != nil {
			crypto.ClearBytes(password)
			lastErr = err
			if errors.Is(err, vaulterr.ErrAuth) {
				fmt.Fprintln(os.Stderr, "wrong password, try again")
				continue
			}
			return nil, SourcePrompt, err
		}
		return password, SourcePrompt, nil
	}
	return nil, SourcePrompt, lastErr
}

// GetNewPassword reads a new password from the environment or the terminal
// with confirmation
func GetNewPassword(prompt string) ([]byte, error) {
	if password := PasswordFromEnv(); password != nil {
		return password, nil
	}
	return ReadPasswordConfirm(prompt)
}

// OfferToSavePassword asks whether to cache a typed password in the keyring
func OfferToSavePassword(storeID string, password []byte) {
	if !term.IsTerminal(int(os.Stdin.Fd())) || keyring.HasPassword(storeID) {
		return
	}
	if !confirm("Save password to OS keyring? [y/N]: ", false) {
		return
	}
	if err := keyring.SavePassword(storeID, password); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to save to keyring: %s\n", err)
		return
	}
	fmt.Println("Password saved to keyring")
}

// confirm asks a yes/no question on the terminal
func confirm(question string, def bool) bool {
	fmt.Print(question)
	var response string
	fmt.Scanln(&response)
	switch strings.ToLower(strings.TrimSpace(response)) {
	case "y", "yes":
		return true
	case "n", "no":
		return false
	}
	return def
}
