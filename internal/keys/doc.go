// Package keys implements the master password lifecycle.
//
// A Credential is created once per store. The password runs through the
// credential's KDF; the output is expanded with HKDF under two unrelated
// contexts: one produces the stored verification hash, the other a
// key-encryption key that unwraps the store's random data key. The data key
// becomes the SessionKey and lives in a memguard locked buffer while the
// Manager is unlocked.
//
// Manager state machine:
//
//	Locked --Create/Unlock--> Unlocked --Lock--> Locked
//
// Lock takes the write side of the manager's lock, so it waits for any
// WithKey caller and no caller observes the key while Lock runs.
package keys
