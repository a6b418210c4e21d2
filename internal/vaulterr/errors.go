// Package vaulterr defines the error taxonomy shared by the filevault engine.
//
// Callers test for a category with errors.Is against the sentinels and use
// errors.As to reach the structured types for details (path, pass, operation).
package vaulterr

import (
	"errors"
	"fmt"
)

var (
	ErrAuth         = errors.New("authentication failed")
	ErrLocked       = errors.New("vault is locked")
	ErrWeakPassword = errors.New("password does not meet the minimum strength")
	ErrIO           = errors.New("i/o failure")
	ErrEncryption   = errors.New("encryption failure")
	ErrAuthTag      = errors.New("authentication tag mismatch - data corrupted or tampered")
	ErrTamper       = errors.New("content digest mismatch - data corrupted or tampered")
	ErrNotFound     = errors.New("not found")
	ErrShred        = errors.New("shred failed")
)

// IOError represents a file system failure on a source or target path
type IOError struct {
	Op   string // "read", "stat", "walk", ...
	Path string
	Err  error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("io error: %s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("io error: %s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) Is(target error) bool { return target == ErrIO }

// EncryptionError represents a failure inside a cryptographic primitive
// (cipher setup, nonce generation, compression of the sealed payload).
type EncryptionError struct {
	Op  string // "encrypt" or "decrypt"
	Err error
}

func (e *EncryptionError) Error() string {
	return fmt.Sprintf("%s error: %v", e.Op, e.Err)
}

func (e *EncryptionError) Unwrap() error { return e.Err }

func (e *EncryptionError) Is(target error) bool { return target == ErrEncryption }

// ShredError reports a failed or partial shred. Pass is the zero-based
// overwrite pass that was reached; -1 means nothing was overwritten and the
// file is intact.
type ShredError struct {
	Path string
	Pass int
	Err  error
}

func (e *ShredError) Error() string {
	if e.Pass < 0 {
		return fmt.Sprintf("shred %s: %v (file left intact)", e.Path, e.Err)
	}
	return fmt.Sprintf("shred %s: pass %d: %v (partial shred)", e.Path, e.Pass+1, e.Err)
}

func (e *ShredError) Unwrap() error { return e.Err }

func (e *ShredError) Is(target error) bool { return target == ErrShred }

// Intact reports whether the source was left untouched by the failed shred.
func (e *ShredError) Intact() bool { return e.Pass < 0 }
