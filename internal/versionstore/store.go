package versionstore

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	bolt "go.etcd.io/bbolt"

	"github.com/illarion/filevault/internal/storage"
	"github.com/illarion/filevault/internal/vaulterr"
)

// ErrVersionConflict is returned by Put when the version was already issued
var ErrVersionConflict = errors.New("version already issued")

// Store is the bbolt-backed version store
type Store struct {
	db  *storage.DB
	log *slog.Logger
}

// New creates a store on an initialized database
func New(db *storage.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{db: db, log: logger}
}

// Next returns the version number the next Put for id must use. Callers
// serialize Next and Put per identity.
func (s *Store) Next(id string) (uint64, error) {
	var last uint64
	err := s.db.View(func(tx *bolt.Tx) error {
		seq := tx.Bucket(storage.SequencesBucket)
		if seq == nil {
			return storage.ErrNotInitialized
		}
		last = lastIssued(seq, id)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return last + 1, nil
}

// Put durably commits a new entry. The version must be greater than every
// version ever issued for the identity, otherwise ErrVersionConflict.
func (s *Store) Put(e *Entry) error {
	if err := e.validate(); err != nil {
		return err
	}
	e.Format = EntryFormat
	meta, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode entry: %w", err)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		seq := tx.Bucket(storage.SequencesBucket)
		if seq == nil {
			return storage.ErrNotInitialized
		}
		if last := lastIssued(seq, e.ID); e.Version <= last {
			return fmt.Errorf("%w: %s v%d (last issued v%d)", ErrVersionConflict, e.ID, e.Version, last)
		}

		key := storage.VersionKey(e.Version)
		versions, err := identityBucket(tx, storage.VersionsBucket, e.ID)
		if err != nil {
			return err
		}
		if err := versions.Put(key, meta); err != nil {
			return err
		}
		blobs, err := identityBucket(tx, storage.BlobsBucket, e.ID)
		if err != nil {
			return err
		}
		if err := blobs.Put(key, e.Ciphertext); err != nil {
			return err
		}
		if err := seq.Put([]byte(e.ID), storage.VersionKey(e.Version)); err != nil {
			return err
		}
		return storage.TouchModified(tx)
	})
	if err != nil {
		return err
	}

	s.log.Debug("version committed", "id", e.ID, "version", e.Version, "bytes", len(e.Ciphertext))
	return nil
}

// Get loads an entry with its ciphertext
func (s *Store) Get(id string, version uint64) (*Entry, error) {
	var entry *Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		meta, blob := lookup(tx, id, version)
		if meta == nil || blob == nil {
			return fmt.Errorf("%w: %s version %d", vaulterr.ErrNotFound, id, version)
		}
		e, err := decodeEntry(meta)
		if err != nil {
			return err
		}
		e.Ciphertext = append([]byte(nil), blob...)
		entry = e
		return nil
	})
	return entry, err
}

// Has reports whether the entry exists
func (s *Store) Has(id string, version uint64) (bool, error) {
	var ok bool
	err := s.db.View(func(tx *bolt.Tx) error {
		meta, blob := lookup(tx, id, version)
		ok = meta != nil && blob != nil
		return nil
	})
	return ok, err
}

// Summaries lists the stored versions of id in ascending order
func (s *Store) Summaries(id string) ([]Summary, error) {
	var out []Summary
	err := s.db.View(func(tx *bolt.Tx) error {
		versions := nested(tx, storage.VersionsBucket, id)
		if versions == nil {
			return nil
		}
		blobs := nested(tx, storage.BlobsBucket, id)
		return versions.ForEach(func(k, v []byte) error {
			e, err := decodeEntry(v)
			if err != nil {
				return err
			}
			sum := e.Summary()
			if blobs != nil {
				sum.StoredSize = int64(len(blobs.Get(k)))
			}
			out = append(out, sum)
			return nil
		})
	})
	return out, err
}

// DeleteWith removes one entry and its blob and runs also, when not nil, in
// the same transaction, so both changes commit or neither does. The sequence
// is kept so the version number is never issued again. A missing entry is
// not an error; the result reports whether one was removed.
func (s *Store) DeleteWith(id string, version uint64, also func(tx *bolt.Tx) error) (bool, error) {
	var removed bool
	err := s.db.Update(func(tx *bolt.Tx) error {
		if also != nil {
			if err := also(tx); err != nil {
				return err
			}
		}
		var err error
		removed, err = deleteTx(tx, id, version)
		return err
	})
	if err != nil {
		return false, err
	}
	if removed {
		s.log.Debug("version deleted", "id", id, "version", version)
	}
	return removed, nil
}

func deleteTx(tx *bolt.Tx, id string, version uint64) (bool, error) {
	meta, blob := lookup(tx, id, version)
	if meta == nil && blob == nil {
		return false, nil
	}

	key := storage.VersionKey(version)
	if err := deleteFrom(tx, storage.VersionsBucket, id, key); err != nil {
		return false, err
	}
	if err := deleteFrom(tx, storage.BlobsBucket, id, key); err != nil {
		return false, err
	}
	return true, storage.TouchModified(tx)
}

// Identities returns every identity with at least one stored entry, mapped
// to its versions in ascending order
func (s *Store) Identities() (map[string][]uint64, error) {
	out := make(map[string][]uint64)
	err := s.db.View(func(tx *bolt.Tx) error {
		root := tx.Bucket(storage.VersionsBucket)
		if root == nil {
			return storage.ErrNotInitialized
		}
		return root.ForEachBucket(func(id []byte) error {
			return root.Bucket(id).ForEach(func(k, _ []byte) error {
				v, err := storage.ParseVersionKey(k)
				if err != nil {
					return err
				}
				out[string(id)] = append(out[string(id)], v)
				return nil
			})
		})
	})
	return out, err
}

func lastIssued(seq *bolt.Bucket, id string) uint64 {
	v := seq.Get([]byte(id))
	if len(v) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(v)
}

func identityBucket(tx *bolt.Tx, root []byte, id string) (*bolt.Bucket, error) {
	b := tx.Bucket(root)
	if b == nil {
		return nil, storage.ErrNotInitialized
	}
	return b.CreateBucketIfNotExists([]byte(id))
}

func nested(tx *bolt.Tx, root []byte, id string) *bolt.Bucket {
	b := tx.Bucket(root)
	if b == nil {
		return nil
	}
	return b.Bucket([]byte(id))
}

func lookup(tx *bolt.Tx, id string, version uint64) (meta, blob []byte) {
	key := storage.VersionKey(version)
	if b := nested(tx, storage.VersionsBucket, id); b != nil {
		meta = b.Get(key)
	}
	if b := nested(tx, storage.BlobsBucket, id); b != nil {
		blob = b.Get(key)
	}
	return meta, blob
}

// deleteFrom removes key and drops the identity bucket once it is empty
func deleteFrom(tx *bolt.Tx, root []byte, id string, key []byte) error {
	b := nested(tx, root, id)
	if b == nil {
		return nil
	}
	if err := b.Delete(key); err != nil {
		return err
	}
	if k, _ := b.Cursor().First(); k == nil {
		return tx.Bucket(root).DeleteBucket([]byte(id))
	}
	return nil
}
