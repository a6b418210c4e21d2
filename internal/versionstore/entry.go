package versionstore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/illarion/filevault/internal/crypto"
	"github.com/illarion/filevault/internal/integrity"
)

// EntryFormat is the record format written by this version
const EntryFormat = 1

// Compression identifies how the plaintext was packed before sealing
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionZstd Compression = "zstd"
)

// ParseCompression validates a compression name from configuration
func ParseCompression(name string) (Compression, error) {
	switch Compression(name) {
	case "", CompressionNone:
		return CompressionNone, nil
	case CompressionZstd:
		return CompressionZstd, nil
	}
	return "", fmt.Errorf("unsupported compression %q", name)
}

// Entry is one immutable encrypted version of an identity
type Entry struct {
	Format      int                `json:"format"`
	ID          string             `json:"id"`
	Version     uint64             `json:"version"`
	Cipher      crypto.CipherSuite `json:"cipher"`
	Compression Compression        `json:"compression"`
	Nonce       []byte             `json:"nonce"`
	Ciphertext  []byte             `json:"-"` // stored in the blobs bucket
	Digest      integrity.Digest   `json:"digest"`
	Created     time.Time          `json:"created"`
	Size        int64              `json:"size"` // plaintext bytes
	SourcePath  string             `json:"source_path"`
}

// Summary describes a version without its ciphertext
type Summary struct {
	ID          string
	Version     uint64
	Created     time.Time
	Size        int64
	StoredSize  int64
	Cipher      crypto.CipherSuite
	Compression Compression
	Digest      integrity.Digest
	SourcePath  string
}

// Summary returns the entry's summary
func (e *Entry) Summary() Summary {
	return Summary{
		ID:          e.ID,
		Version:     e.Version,
		Created:     e.Created,
		Size:        e.Size,
		StoredSize:  int64(len(e.Ciphertext)),
		Cipher:      e.Cipher,
		Compression: e.Compression,
		Digest:      e.Digest,
		SourcePath:  e.SourcePath,
	}
}

// AssociatedData binds a ciphertext to its identity and version. Moving a
// blob to another slot makes authentication fail.
func AssociatedData(id string, version uint64) []byte {
	return fmt.Appendf(nil, "filevault/v1/%s/%d", id, version)
}

func (e *Entry) validate() error {
	if e.ID == "" {
		return fmt.Errorf("entry has no identity")
	}
	if e.Version == 0 {
		return fmt.Errorf("entry version must be positive")
	}
	if len(e.Nonce) == 0 {
		return fmt.Errorf("entry has no nonce")
	}
	if e.Cipher == "" {
		return fmt.Errorf("entry has no cipher suite")
	}
	return nil
}

func decodeEntry(data []byte) (*Entry, error) {
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to decode entry: %w", err)
	}
	if e.Format != EntryFormat {
		return nil, fmt.Errorf("unsupported entry format %d", e.Format)
	}
	if e.Compression == "" {
		e.Compression = CompressionNone
	}
	return &e, nil
}
