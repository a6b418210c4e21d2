// Package versionstore persists encrypted versions of protected files.
//
// Each identity owns a sequence of immutable entries. Version numbers start at
// 1, only grow, and are never reused: the last issued number is kept in the
// sequences bucket even after every entry of an identity is deleted. Entry
// metadata and ciphertext live in separate buckets so listing versions never
// touches the blobs.
//
// A Put writes the entry, its blob and the new sequence value in a single
// bbolt transaction, so after a crash either all three exist or none do.
package versionstore
