// Package crypto provides cryptographic primitives for filevault.
//
// Key derivation:
//   - Argon2id (default, memory-hard) or PBKDF2-HMAC-SHA256 (legacy stores)
//   - parameters travel with the credential so cost can be raised later
//   - HKDF-SHA256 expands the KDF output into independent subkeys per context
//
// Encryption uses an AEAD suite chosen per version:
//   - AES-256-GCM or ChaCha20-Poly1305, 32-byte key
//   - fresh random nonce per encryption operation
//   - additional data binds a ciphertext to its identity and version
//
// Memory safety:
//   - Use ClearBytes() to zero sensitive data after use
//   - Call Encryptor.Destroy() when done with encryption operations
package crypto
