// Package keyring caches the master password of a store in the OS keyring.
// Entries are keyed by the random store id, so several stores can coexist.
package keyring

import (
	"errors"

	"github.com/zalando/go-keyring"
)

const serviceName = "filevault"

// ErrNotFound is returned when no password is stored for the store
var ErrNotFound = keyring.ErrNotFound

// SavePassword stores a password in the OS keyring
func SavePassword(storeID string, password []byte) error {
	return keyring.Set(serviceName, storeID, string(password))
}

// GetPassword retrieves a password from the OS keyring
func GetPassword(storeID string) ([]byte, error) {
	secret, err := keyring.Get(serviceName, storeID)
	if err != nil {
		return nil, err
	}
	return []byte(secret), nil
}

// DeletePassword removes a password from the OS keyring
func DeletePassword(storeID string) error {
	return keyring.Delete(serviceName, storeID)
}

// HasPassword checks if a password is stored in the keyring
func HasPassword(storeID string) bool {
	_, err := keyring.Get(serviceName, storeID)
	return err == nil
}

// IsNotFound reports whether err means no entry exists
func IsNotFound(err error) bool {
	return errors.Is(err, keyring.ErrNotFound)
}
