package engine

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/illarion/filevault/internal/crypto"
	"github.com/illarion/filevault/internal/index"
	"github.com/illarion/filevault/internal/integrity"
	"github.com/illarion/filevault/internal/keys"
	"github.com/illarion/filevault/internal/logging"
	"github.com/illarion/filevault/internal/shred"
	"github.com/illarion/filevault/internal/vaulterr"
	"github.com/illarion/filevault/internal/versionstore"
)

// ErrSourceChanged means the source was modified after it was read, so it
// was left in place instead of being shredded
var ErrSourceChanged = errors.New("source changed after it was encrypted")

// Options tune how new versions are written
type Options struct {
	Cipher      crypto.CipherSuite
	Compression versionstore.Compression
	IORetries   uint64
	RetryBase   time.Duration
	Exclude     []string // absolute paths EncryptDir never picks up
}

// EncryptOptions select the target identity and attributes of one Encrypt
type EncryptOptions struct {
	ID    string // empty creates a new identity
	Tags  []string
	Notes string
	Shred bool
}

// Engine encrypts files into the version store and keeps the index current
type Engine struct {
	keys     *keys.Manager
	store    *versionstore.Store
	index    *index.Index
	shredder *shred.Shredder
	opts     Options
	locks    *keyedMutex
	log      *slog.Logger

	readFile func(string) ([]byte, error)
}

// New wires an engine. Zero options select AES-256-GCM without compression
// and no read retries.
func New(km *keys.Manager, store *versionstore.Store, idx *index.Index, shredder *shred.Shredder, opts Options, logger *slog.Logger) *Engine {
	if opts.Cipher == "" {
		opts.Cipher = crypto.AES256GCM
	}
	if opts.Compression == "" {
		opts.Compression = versionstore.CompressionNone
	}
	if opts.RetryBase == 0 {
		opts.RetryBase = 50 * time.Millisecond
	}
	if logger == nil {
		logger = logging.Discard()
	}
	if shredder == nil {
		shredder = shred.New(nil, logger)
	}
	return &Engine{
		keys:     km,
		store:    store,
		index:    idx,
		shredder: shredder,
		opts:     opts,
		locks:    newKeyedMutex(),
		log:      logger,
		readFile: os.ReadFile,
	}
}

// Locked reports whether key material is unavailable
func (e *Engine) Locked() bool {
	return !e.keys.Unlocked()
}

// Encrypt stores the content of sourcePath as a new version. With opts.ID
// set the version is appended to that identity (ErrNotFound when unknown),
// otherwise a new identity is created. When opts.Shred is set the source is
// shredded after the version and the record are committed; a shred failure
// returns the committed entry together with a *vaulterr.ShredError.
func (e *Engine) Encrypt(ctx context.Context, sourcePath string, opts EncryptOptions) (*versionstore.Entry, error) {
	if e.Locked() {
		return nil, vaulterr.ErrLocked
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := filepath.Abs(sourcePath)
	if err != nil {
		return nil, &vaulterr.IOError{Op: "resolve", Path: sourcePath, Err: err}
	}

	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}

	unlock := e.locks.Lock(id)
	defer unlock()

	// must hold the identity lock, or Upsert could revive a deleted record
	if opts.ID != "" {
		if _, err := e.index.Get(id); err != nil {
			return nil, err
		}
	}

	plaintext, err := e.readSource(ctx, path)
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(plaintext)

	version, err := e.store.Next(id)
	if err != nil {
		return nil, err
	}

	entry, err := e.seal(id, version, path, plaintext)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := e.store.Put(entry); err != nil {
		return nil, fmt.Errorf("failed to commit version: %w", err)
	}

	attrs := index.Attributes{Path: path, Tags: opts.Tags, Notes: opts.Notes}
	if _, err := e.index.Upsert(id, attrs, version); err != nil {
		// the entry stays committed as an orphan until Repair adopts it
		return nil, fmt.Errorf("version %d of %s committed but not indexed: %w", version, id, err)
	}
	e.log.Info("encrypted", "path", path, "id", id, "version", version)

	if opts.Shred {
		if err := e.checkUnchanged(path, entry); err != nil {
			e.log.Warn("source changed, not shredded", "path", path, "error", err)
			return entry, err
		}
		if err := e.shredder.Shred(ctx, path); err != nil {
			e.log.Warn("shred failed", "path", path, "error", err)
			return entry, err
		}
	}
	return entry, nil
}

// checkUnchanged refuses to let a shred destroy content that no version
// holds: the file must still hash to the committed digest.
func (e *Engine) checkUnchanged(path string, entry *versionstore.Entry) error {
	got, err := integrity.File(path)
	if err != nil {
		return &vaulterr.ShredError{Path: path, Pass: -1, Err: err}
	}
	if got != entry.Digest {
		return &vaulterr.ShredError{Path: path, Pass: -1, Err: ErrSourceChanged}
	}
	return nil
}

// seal builds the entry for plaintext under the session key
func (e *Engine) seal(id string, version uint64, path string, plaintext []byte) (*versionstore.Entry, error) {
	payload, err := compress(e.opts.Compression, plaintext)
	if err != nil {
		return nil, &vaulterr.EncryptionError{Op: "encrypt", Err: err}
	}
	if e.opts.Compression != versionstore.CompressionNone {
		defer crypto.ClearBytes(payload)
	}

	entry := &versionstore.Entry{
		ID:          id,
		Version:     version,
		Cipher:      e.opts.Cipher,
		Compression: e.opts.Compression,
		Digest:      integrity.Compute(plaintext),
		Created:     time.Now().UTC(),
		Size:        int64(len(plaintext)),
		SourcePath:  path,
	}

	err = e.keys.WithKey(func(key []byte) error {
		enc, err := crypto.NewEncryptor(e.opts.Cipher, key)
		if err != nil {
			return &vaulterr.EncryptionError{Op: "encrypt", Err: err}
		}
		defer enc.Destroy()

		nonce, ct, err := enc.Seal(payload, versionstore.AssociatedData(id, version))
		if err != nil {
			return &vaulterr.EncryptionError{Op: "encrypt", Err: err}
		}
		entry.Nonce = nonce
		entry.Ciphertext = ct
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Decrypt returns the plaintext of one version; version 0 selects the latest.
// Only versions referenced by the index are visible. Nothing is written to
// disk.
func (e *Engine) Decrypt(ctx context.Context, id string, version uint64) ([]byte, error) {
	if e.Locked() {
		return nil, vaulterr.ErrLocked
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rec, err := e.index.Get(id)
	if err != nil {
		return nil, err
	}
	if version == 0 {
		version = rec.Latest()
	}
	if !rec.HasVersion(version) {
		return nil, fmt.Errorf("%w: %s version %d", vaulterr.ErrNotFound, id, version)
	}

	entry, err := e.store.Get(id, version)
	if err != nil {
		return nil, err
	}
	return e.open(entry)
}

// open authenticates, decrypts and verifies one entry
func (e *Engine) open(entry *versionstore.Entry) ([]byte, error) {
	var payload []byte
	err := e.keys.WithKey(func(key []byte) error {
		enc, err := crypto.NewEncryptor(entry.Cipher, key)
		if err != nil {
			return &vaulterr.EncryptionError{Op: "decrypt", Err: err}
		}
		defer enc.Destroy()

		payload, err = enc.Open(entry.Nonce, entry.Ciphertext, versionstore.AssociatedData(entry.ID, entry.Version))
		if errors.Is(err, crypto.ErrAuthFailed) || errors.Is(err, crypto.ErrInvalidCiphertext) {
			return fmt.Errorf("%w: %s version %d", vaulterr.ErrAuthTag, entry.ID, entry.Version)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	plaintext, err := decompress(entry.Compression, payload, entry.Size)
	if err != nil {
		crypto.ClearBytes(payload)
		return nil, &vaulterr.EncryptionError{Op: "decrypt", Err: err}
	}
	if err := integrity.Verify(plaintext, entry.Digest); err != nil {
		crypto.ClearBytes(plaintext)
		return nil, fmt.Errorf("%w: %s version %d", err, entry.ID, entry.Version)
	}
	return plaintext, nil
}

// ListVersions returns the indexed versions of id, newest first. It works
// in the locked state too: entry metadata is stored unencrypted and no key
// is touched. The same holds for Search, Record and FindByPath.
func (e *Engine) ListVersions(ctx context.Context, id string) ([]versionstore.Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rec, err := e.index.Get(id)
	if err != nil {
		return nil, err
	}
	all, err := e.store.Summaries(id)
	if err != nil {
		return nil, err
	}

	out := make([]versionstore.Summary, 0, len(rec.Versions))
	for _, s := range all {
		if rec.HasVersion(s.Version) {
			out = append(out, s)
		}
	}
	slices.Reverse(out)
	return out, nil
}

// DeleteVersion removes one version. The index reference and the entry go
// in one transaction, so a crash never leaves an unreferenced entry for
// Repair to bring back. Removing the last version removes the record.
// Ciphertext is deleted, not shredded. Requires the unlocked state.
func (e *Engine) DeleteVersion(ctx context.Context, id string, version uint64) error {
	if e.Locked() {
		return vaulterr.ErrLocked
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	unlock := e.locks.Lock(id)
	defer unlock()

	removed, err := e.store.DeleteWith(id, version, func(tx *bolt.Tx) error {
		return e.index.RemoveTx(tx, id, version)
	})
	if err != nil {
		return err
	}
	if !removed {
		e.log.Warn("indexed version had no entry", "id", id, "version", version)
		return nil
	}
	e.log.Info("version deleted", "id", id, "version", version)
	return nil
}

// Search yields records matching query, best first
func (e *Engine) Search(query string) iter.Seq[index.Record] {
	return e.index.Search(query)
}

// Record returns the metadata record of id
func (e *Engine) Record(id string) (*index.Record, error) {
	return e.index.Get(id)
}

// FindByPath returns the identity whose last known original path is path
func (e *Engine) FindByPath(path string) (string, bool, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false, &vaulterr.IOError{Op: "resolve", Path: path, Err: err}
	}
	return e.index.FindByPath(abs)
}

// Tag replaces the tags and notes of id. Requires the unlocked state.
func (e *Engine) Tag(ctx context.Context, id string, tags []string, notes string) (*index.Record, error) {
	if e.Locked() {
		return nil, vaulterr.ErrLocked
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	unlock := e.locks.Lock(id)
	defer unlock()

	return e.index.SetAttributes(id, index.Attributes{Tags: tags, Notes: notes})
}
