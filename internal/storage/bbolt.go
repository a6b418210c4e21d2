package storage

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/illarion/filevault/internal/crypto"
)

// FormatVersion is the on-disk layout version written to the config bucket
const FormatVersion = "1"

// Bucket names
var (
	ConfigBucket     = []byte("config")     // format, timestamps, store id - unencrypted
	CredentialBucket = []byte("credential") // master credential
	VersionsBucket   = []byte("versions")   // identity -> version -> entry metadata
	BlobsBucket      = []byte("blobs")      // identity -> version -> ciphertext
	SequencesBucket  = []byte("sequences")  // identity -> last issued version
	RecordsBucket    = []byte("records")    // identity -> metadata record
)

// Config keys
var (
	ConfigFormat   = []byte("format")
	ConfigCreated  = []byte("created")
	ConfigModified = []byte("modified")
	ConfigStoreID  = []byte("store_id")

	credentialKey = []byte("current")
)

var (
	ErrNotInitialized = errors.New("store not initialized")
	ErrNoCredential   = errors.New("credential not found")
)

// DB provides BBolt-based storage for filevault
type DB struct {
	db *bolt.DB
}

// Open opens or creates a filevault database. The parent directory is created
// with owner-only permissions when missing.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database
func (s *DB) Close() error {
	return s.db.Close()
}

// Path returns the database file path
func (s *DB) Path() string {
	return s.db.Path()
}

// View runs fn in a read-only transaction
func (s *DB) View(fn func(tx *bolt.Tx) error) error {
	return s.db.View(fn)
}

// Update runs fn in a read-write transaction. The transaction is fsynced
// before Update returns nil.
func (s *DB) Update(fn func(tx *bolt.Tx) error) error {
	return s.db.Update(fn)
}

// Initialize creates the bucket structure for a new store
func (s *DB) Initialize() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{ConfigBucket, CredentialBucket, VersionsBucket, BlobsBucket, SequencesBucket, RecordsBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}

		config := tx.Bucket(ConfigBucket)
		if err := config.Put(ConfigFormat, []byte(FormatVersion)); err != nil {
			return err
		}

		now := time.Now()
		created, _ := now.MarshalBinary()
		if err := config.Put(ConfigCreated, created); err != nil {
			return err
		}
		if err := config.Put(ConfigModified, created); err != nil {
			return err
		}

		if config.Get(ConfigStoreID) == nil {
			id, err := crypto.GenerateRandom(16)
			if err != nil {
				return err
			}
			if err := config.Put(ConfigStoreID, []byte(hex.EncodeToString(id))); err != nil {
				return err
			}
		}
		return nil
	})
}

// IsInitialized checks if the database has been initialized
func (s *DB) IsInitialized() (bool, error) {
	var initialized bool
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config != nil && config.Get(ConfigFormat) != nil {
			initialized = true
		}
		return nil
	})
	return initialized, err
}

// Format returns the on-disk format tag
func (s *DB) Format() (string, error) {
	var format string
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return ErrNotInitialized
		}
		data := config.Get(ConfigFormat)
		if data == nil {
			return ErrNotInitialized
		}
		format = string(data)
		return nil
	})
	return format, err
}

// PutCredential replaces the stored credential record
func (s *DB) PutCredential(data []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(CredentialBucket)
		if b == nil {
			return ErrNotInitialized
		}
		return b.Put(credentialKey, data)
	})
}

// Credential retrieves the stored credential record
func (s *DB) Credential() ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(CredentialBucket)
		if b == nil {
			return ErrNotInitialized
		}
		v := b.Get(credentialKey)
		if v == nil {
			return ErrNoCredential
		}
		// Make a copy since the slice is only valid during the transaction
		data = append([]byte(nil), v...)
		return nil
	})
	return data, err
}

// UpdateModified updates the last modified timestamp
func (s *DB) UpdateModified() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return TouchModified(tx)
	})
}

// TouchModified updates the last modified timestamp inside an open transaction
func TouchModified(tx *bolt.Tx) error {
	config := tx.Bucket(ConfigBucket)
	if config == nil {
		return ErrNotInitialized
	}
	modified, _ := time.Now().MarshalBinary()
	return config.Put(ConfigModified, modified)
}

// GetModified retrieves the last modified timestamp
func (s *DB) GetModified() (time.Time, error) {
	var modified time.Time
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return ErrNotInitialized
		}
		data := config.Get(ConfigModified)
		if data == nil {
			return fmt.Errorf("modified time not found")
		}
		return modified.UnmarshalBinary(data)
	})
	return modified, err
}

// StoreID retrieves the random store identifier, used as the keyring account
func (s *DB) StoreID() (string, error) {
	var id string
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return ErrNotInitialized
		}
		data := config.Get(ConfigStoreID)
		if data == nil {
			return fmt.Errorf("store_id not found")
		}
		id = string(data)
		return nil
	})
	return id, err
}

// VersionKey encodes a version number as a big-endian bucket key so that
// cursor order equals numeric order.
func VersionKey(version uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, version)
	return k
}

// ParseVersionKey decodes a key produced by VersionKey
func ParseVersionKey(k []byte) (uint64, error) {
	if len(k) != 8 {
		return 0, fmt.Errorf("invalid version key length %d", len(k))
	}
	return binary.BigEndian.Uint64(k), nil
}

// Stats summarizes the store contents
type Stats struct {
	Identities int
	Versions   int
	BlobBytes  int64
	FileSize   int64
}

// Stats counts identities, versions and ciphertext bytes
func (s *DB) Stats() (Stats, error) {
	var st Stats
	err := s.db.View(func(tx *bolt.Tx) error {
		if records := tx.Bucket(RecordsBucket); records != nil {
			st.Identities = records.Stats().KeyN
		}
		blobs := tx.Bucket(BlobsBucket)
		if blobs == nil {
			return nil
		}
		return blobs.ForEachBucket(func(id []byte) error {
			return blobs.Bucket(id).ForEach(func(_, v []byte) error {
				st.Versions++
				st.BlobBytes += int64(len(v))
				return nil
			})
		})
	})
	if err != nil {
		return st, err
	}
	if info, err := os.Stat(s.db.Path()); err == nil {
		st.FileSize = info.Size()
	}
	return st, nil
}

// Compact creates a compacted copy of the database, removing unused space.
// This is useful after deleting versions to reclaim disk space.
func (s *DB) Compact() error {
	srcPath := s.db.Path()
	tmpPath := srcPath + ".compact"

	dst, err := bolt.Open(tmpPath, 0600, nil)
	if err != nil {
		return fmt.Errorf("failed to create compact database: %w", err)
	}

	if err := bolt.Compact(dst, s.db, 64*1024); err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to copy data: %w", err)
	}

	if err := dst.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close compact database: %w", err)
	}

	if err := s.db.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close source database: %w", err)
	}

	// Atomic replace
	backupPath := srcPath + ".backup"
	if err := os.Rename(srcPath, backupPath); err != nil {
		return fmt.Errorf("failed to backup original: %w", err)
	}
	if err := os.Rename(tmpPath, srcPath); err != nil {
		os.Rename(backupPath, srcPath) // rollback
		return fmt.Errorf("failed to replace database: %w", err)
	}
	os.Remove(backupPath)

	s.db, err = bolt.Open(srcPath, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return fmt.Errorf("failed to reopen database: %w", err)
	}

	return nil
}
