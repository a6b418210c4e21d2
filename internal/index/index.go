package index

import (
	"fmt"
	"io"
	"iter"
	"log/slog"
	"slices"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/illarion/filevault/internal/storage"
	"github.com/illarion/filevault/internal/vaulterr"
)

// Index is the bbolt-backed metadata index
type Index struct {
	db  *storage.DB
	log *slog.Logger
	now func() time.Time
}

// New creates an index on an initialized database
func New(db *storage.DB, logger *slog.Logger) *Index {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Index{db: db, log: logger, now: time.Now}
}

// Upsert creates or updates the record of id and appends version to it.
// Non-empty attributes replace the path and notes; tags are merged.
func (x *Index) Upsert(id string, attrs Attributes, version uint64) (*Record, error) {
	if version == 0 {
		return nil, fmt.Errorf("upsert %s: version must be positive", id)
	}
	var out *Record
	err := x.update(id, true, func(r *Record) error {
		r.setPath(attrs.Path)
		r.mergeTags(attrs.Tags)
		if attrs.Notes != "" {
			r.Notes = attrs.Notes
		}
		r.addVersion(version)
		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	x.log.Debug("record updated", "id", id, "version", version)
	return out, nil
}

// SetAttributes replaces the tags and notes of an existing record. A
// non-empty path replaces the original path.
func (x *Index) SetAttributes(id string, attrs Attributes) (*Record, error) {
	var out *Record
	err := x.update(id, false, func(r *Record) error {
		r.setPath(attrs.Path)
		r.Tags = normalizeTags(attrs.Tags)
		r.Notes = attrs.Notes
		out = r
		return nil
	})
	return out, err
}

// Remove drops the reference to version. The record is deleted with its
// last reference. ErrNotFound when the record or the reference is absent.
func (x *Index) Remove(id string, version uint64) error {
	return x.db.Update(func(tx *bolt.Tx) error {
		return x.RemoveTx(tx, id, version)
	})
}

// RemoveTx is Remove inside a caller's read-write transaction
func (x *Index) RemoveTx(tx *bolt.Tx, id string, version uint64) error {
	b := tx.Bucket(storage.RecordsBucket)
	if b == nil {
		return storage.ErrNotInitialized
	}
	data := b.Get([]byte(id))
	if data == nil {
		return fmt.Errorf("%w: identity %s", vaulterr.ErrNotFound, id)
	}
	r, err := decodeRecord(data)
	if err != nil {
		return err
	}
	if !r.removeVersion(version) {
		return fmt.Errorf("%w: %s version %d", vaulterr.ErrNotFound, id, version)
	}

	if len(r.Versions) == 0 {
		x.log.Debug("record removed", "id", id)
		return b.Delete([]byte(id))
	}
	r.Modified = x.now().UTC()
	enc, err := encodeRecord(r)
	if err != nil {
		return err
	}
	return b.Put([]byte(id), enc)
}

// Get returns the record of id
func (x *Index) Get(id string) (*Record, error) {
	var out *Record
	err := x.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(storage.RecordsBucket)
		if b == nil {
			return storage.ErrNotInitialized
		}
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: identity %s", vaulterr.ErrNotFound, id)
		}
		r, err := decodeRecord(data)
		out = r
		return err
	})
	return out, err
}

// FindByPath returns the identity whose original path equals path
func (x *Index) FindByPath(path string) (string, bool, error) {
	var id string
	err := x.scan(func(r *Record) bool {
		if r.Path == path {
			id = r.ID
			return false
		}
		return true
	})
	return id, id != "", err
}

// All returns every record ordered by id
func (x *Index) All() ([]Record, error) {
	var out []Record
	err := x.scan(func(r *Record) bool {
		out = append(out, *r)
		return true
	})
	return out, err
}

// Search yields the records matching query, best match first. Matching is
// case-insensitive over the file name, original path, tags and notes; an
// empty query matches every record. Each range over the sequence reads a
// fresh snapshot.
func (x *Index) Search(query string) iter.Seq[Record] {
	q := strings.ToLower(strings.TrimSpace(query))
	return func(yield func(Record) bool) {
		var hits []hit
		err := x.scan(func(r *Record) bool {
			if s := score(r, q); s > 0 {
				hits = append(hits, hit{rec: r, score: s})
			}
			return true
		})
		if err != nil {
			x.log.Error("search failed", "query", query, "error", err)
			return
		}

		slices.SortFunc(hits, compareHits)
		for _, h := range hits {
			if !yield(*h.rec) {
				return
			}
		}
	}
}

// scan visits every record in a read-only snapshot until fn returns false
func (x *Index) scan(fn func(r *Record) bool) error {
	return x.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(storage.RecordsBucket)
		if b == nil {
			return storage.ErrNotInitialized
		}
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			r, err := decodeRecord(v)
			if err != nil {
				return fmt.Errorf("record %s: %w", k, err)
			}
			if !fn(r) {
				return nil
			}
		}
		return nil
	})
}

// update applies fn to the record of id in one write transaction. With
// create set a missing record is started, otherwise it is ErrNotFound.
func (x *Index) update(id string, create bool, fn func(r *Record) error) error {
	return x.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(storage.RecordsBucket)
		if b == nil {
			return storage.ErrNotInitialized
		}

		now := x.now().UTC()
		var r *Record
		if data := b.Get([]byte(id)); data != nil {
			var err error
			if r, err = decodeRecord(data); err != nil {
				return err
			}
		} else if create {
			r = &Record{ID: id, Created: now}
		} else {
			return fmt.Errorf("%w: identity %s", vaulterr.ErrNotFound, id)
		}

		if err := fn(r); err != nil {
			return err
		}
		r.Modified = now

		enc, err := encodeRecord(r)
		if err != nil {
			return err
		}
		return b.Put([]byte(id), enc)
	})
}
