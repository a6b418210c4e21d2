package versionstore

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/illarion/filevault/internal/crypto"
	"github.com/illarion/filevault/internal/integrity"
	"github.com/illarion/filevault/internal/storage"
	"github.com/illarion/filevault/internal/vaulterr"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "vault.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Initialize(); err != nil {
		t.Fatalf("Failed to initialize: %v", err)
	}
	return New(db, nil)
}

func testEntry(id string, version uint64, payload string) *Entry {
	return &Entry{
		ID:          id,
		Version:     version,
		Cipher:      crypto.AES256GCM,
		Compression: CompressionNone,
		Nonce:       []byte("123456789012"),
		Ciphertext:  []byte(payload),
		Digest:      integrity.Compute([]byte(payload)),
		Created:     time.Now().UTC(),
		Size:        int64(len(payload)),
		SourcePath:  "/tmp/" + id + ".txt",
	}
}

func putNext(t *testing.T, s *Store, id, payload string) uint64 {
	t.Helper()
	v, err := s.Next(id)
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if err := s.Put(testEntry(id, v, payload)); err != nil {
		t.Fatalf("Put v%d failed: %v", v, err)
	}
	return v
}

func deleteEntry(t *testing.T, s *Store, id string, version uint64) {
	t.Helper()
	removed, err := s.DeleteWith(id, version, nil)
	if err != nil {
		t.Fatalf("Delete %s v%d failed: %v", id, version, err)
	}
	if !removed {
		t.Fatalf("Delete %s v%d: no entry", id, version)
	}
}

func TestPutGet(t *testing.T) {
	s := openTestStore(t)

	v := putNext(t, s, "a", "ciphertext-1")
	if v != 1 {
		t.Fatalf("First version = %d, want 1", v)
	}

	e, err := s.Get("a", 1)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(e.Ciphertext) != "ciphertext-1" {
		t.Errorf("Ciphertext = %q", e.Ciphertext)
	}
	if e.Format != EntryFormat {
		t.Errorf("Format = %d, want %d", e.Format, EntryFormat)
	}
	if e.Digest != integrity.Compute([]byte("ciphertext-1")) {
		t.Error("Digest did not survive the round trip")
	}
	if e.SourcePath != "/tmp/a.txt" {
		t.Errorf("SourcePath = %q", e.SourcePath)
	}

	if _, err := s.Get("a", 2); !errors.Is(err, vaulterr.ErrNotFound) {
		t.Errorf("Get missing version: got %v, want ErrNotFound", err)
	}
	if _, err := s.Get("missing", 1); !errors.Is(err, vaulterr.ErrNotFound) {
		t.Errorf("Get missing identity: got %v, want ErrNotFound", err)
	}
}

func TestVersionsNeverReused(t *testing.T) {
	s := openTestStore(t)

	for i := uint64(1); i <= 3; i++ {
		if v := putNext(t, s, "a", "x"); v != i {
			t.Fatalf("version = %d, want %d", v, i)
		}
	}

	deleteEntry(t, s, "a", 3)
	if v := putNext(t, s, "a", "y"); v != 4 {
		t.Errorf("version after deleting v3 = %d, want 4", v)
	}

	// deleting everything keeps the sequence
	for _, v := range []uint64{1, 2, 4} {
		deleteEntry(t, s, "a", v)
	}
	if v := putNext(t, s, "a", "z"); v != 5 {
		t.Errorf("version after deleting all = %d, want 5", v)
	}
}

func TestPutRejectsIssuedVersion(t *testing.T) {
	s := openTestStore(t)
	putNext(t, s, "a", "x")

	err := s.Put(testEntry("a", 1, "again"))
	if !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("Put of issued version: got %v, want ErrVersionConflict", err)
	}

	e, err := s.Get("a", 1)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(e.Ciphertext) != "x" {
		t.Error("Existing entry was overwritten")
	}
}

func TestPutValidates(t *testing.T) {
	s := openTestStore(t)

	bad := testEntry("a", 1, "x")
	bad.Nonce = nil
	if err := s.Put(bad); err == nil {
		t.Error("Expected error for entry without nonce")
	}
	if err := s.Put(testEntry("", 1, "x")); err == nil {
		t.Error("Expected error for entry without identity")
	}
	if err := s.Put(testEntry("a", 0, "x")); err == nil {
		t.Error("Expected error for version 0")
	}
}

func TestSummariesAndIdentities(t *testing.T) {
	s := openTestStore(t)
	putNext(t, s, "a", "one")
	putNext(t, s, "a", "three")
	putNext(t, s, "b", "x")

	sums, err := s.Summaries("a")
	if err != nil {
		t.Fatalf("Summaries failed: %v", err)
	}
	if len(sums) != 2 || sums[0].Version != 1 || sums[1].Version != 2 {
		t.Fatalf("Summaries = %+v", sums)
	}
	if sums[1].StoredSize != int64(len("three")) {
		t.Errorf("StoredSize = %d", sums[1].StoredSize)
	}

	ids, err := s.Identities()
	if err != nil {
		t.Fatalf("Identities failed: %v", err)
	}
	if len(ids) != 2 || len(ids["a"]) != 2 || len(ids["b"]) != 1 {
		t.Errorf("Identities = %v", ids)
	}

	deleteEntry(t, s, "b", 1)
	ids, _ = s.Identities()
	if _, ok := ids["b"]; ok {
		t.Error("Identity without entries should not be listed")
	}
}

func TestDeleteMissing(t *testing.T) {
	s := openTestStore(t)
	putNext(t, s, "a", "x")

	if removed, err := s.DeleteWith("a", 7, nil); err != nil || removed {
		t.Errorf("DeleteWith = %v, %v; want false, nil", removed, err)
	}
	if ok, _ := s.Has("a", 1); !ok {
		t.Error("Unrelated entry vanished")
	}
}

func TestDeleteWithSharesTransaction(t *testing.T) {
	s := openTestStore(t)
	putNext(t, s, "a", "x")
	putNext(t, s, "a", "y")

	failure := errors.New("companion failed")
	if _, err := s.DeleteWith("a", 1, func(*bolt.Tx) error { return failure }); !errors.Is(err, failure) {
		t.Fatalf("got %v, want companion error", err)
	}
	if ok, _ := s.Has("a", 1); !ok {
		t.Fatal("Entry removed although the transaction failed")
	}

	var ran bool
	removed, err := s.DeleteWith("a", 1, func(tx *bolt.Tx) error {
		ran = tx.Writable()
		return nil
	})
	if err != nil || !removed || !ran {
		t.Fatalf("DeleteWith = %v, %v (companion ran: %v)", removed, err, ran)
	}
	if ok, _ := s.Has("a", 1); ok {
		t.Error("Entry still present")
	}

	removed, err = s.DeleteWith("a", 1, func(*bolt.Tx) error { return nil })
	if err != nil || removed {
		t.Errorf("Second DeleteWith = %v, %v; want false, nil", removed, err)
	}
}

func TestAssociatedDataDistinct(t *testing.T) {
	a := string(AssociatedData("id", 1))
	b := string(AssociatedData("id", 2))
	c := string(AssociatedData("id2", 1))
	if a == b || a == c || b == c {
		t.Errorf("associated data collide: %q %q %q", a, b, c)
	}
}
