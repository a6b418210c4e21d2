// Package engine orchestrates encryption, decryption and version management
// of protected files.
//
// The engine is either Locked or Unlocked, following the key manager.
// Operations that need key material fail with vaulterr.ErrLocked while
// locked; index queries and Repair work in both states.
//
// Encrypt commits in a fixed order: the version entry (durable bbolt commit),
// then the metadata record, then the optional shred of the source. A crash
// between the first two steps leaves an orphan entry that Repair adopts. The
// source is never touched before its ciphertext is durable.
//
// Writers are serialized per identity; different identities proceed in
// parallel. Plaintext returned by Decrypt is never written to disk by the
// engine.
package engine
