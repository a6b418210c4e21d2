// Package index maps searchable attributes of protected files to their
// identities and stored versions.
//
// Records are kept unencrypted in the records bucket so that searching and
// listing work while the store is locked. A record never holds ciphertext,
// only identity ids and version numbers.
package index
