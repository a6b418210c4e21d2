// Package storage provides the BBolt database interface for filevault.
//
// Database structure uses six top-level buckets:
//   - config: format tag, timestamps, store id (unencrypted)
//   - credential: the master credential record (salt, KDF params, hash, wrapped key)
//   - versions: one nested bucket per identity, version number -> entry metadata
//   - blobs: one nested bucket per identity, version number -> ciphertext
//   - sequences: identity -> last issued version number
//   - records: identity -> searchable metadata record (unencrypted)
//
// The unencrypted records bucket lets search and status work without the
// password, at the cost of exposing file names and tags to whoever can read
// the store file.
//
// BBolt provides ACID transactions, file locking and fsync on commit, which
// is what the engine relies on to order a version commit before its index
// update.
package storage
