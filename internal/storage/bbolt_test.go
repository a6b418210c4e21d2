package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	bolt "go.etcd.io/bbolt"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "store", "vault.db")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Initialize(); err != nil {
		t.Fatalf("Failed to initialize: %v", err)
	}
	return db
}

func TestOpenAndInitialize(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "vault.db")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	initialized, err := db.IsInitialized()
	if err != nil {
		t.Fatalf("Failed to check initialization: %v", err)
	}
	if initialized {
		t.Error("Fresh database should not be initialized")
	}

	if err := db.Initialize(); err != nil {
		t.Fatalf("Failed to initialize: %v", err)
	}

	initialized, err = db.IsInitialized()
	if err != nil {
		t.Fatalf("Failed to check initialization: %v", err)
	}
	if !initialized {
		t.Error("Database should be initialized")
	}

	format, err := db.Format()
	if err != nil {
		t.Fatalf("Failed to read format: %v", err)
	}
	if format != FormatVersion {
		t.Errorf("Format mismatch: got %s, want %s", format, FormatVersion)
	}

	info, err := os.Stat(filepath.Dir(dbPath))
	if err != nil {
		t.Fatalf("Store directory missing: %v", err)
	}
	if info.Mode().Perm() != 0700 {
		t.Errorf("Store directory permissions: got %o, want 700", info.Mode().Perm())
	}
}

func TestCredential(t *testing.T) {
	db := openTestDB(t)

	if _, err := db.Credential(); !errors.Is(err, ErrNoCredential) {
		t.Errorf("Expected ErrNoCredential, got %v", err)
	}

	if err := db.PutCredential([]byte(`{"format":1}`)); err != nil {
		t.Fatalf("Failed to store credential: %v", err)
	}

	data, err := db.Credential()
	if err != nil {
		t.Fatalf("Failed to read credential: %v", err)
	}
	if string(data) != `{"format":1}` {
		t.Errorf("Credential mismatch: got %s", data)
	}
}

func TestStoreIDAndModified(t *testing.T) {
	db := openTestDB(t)

	id, err := db.StoreID()
	if err != nil {
		t.Fatalf("Failed to get store id: %v", err)
	}
	if len(id) != 32 {
		t.Errorf("Store id should be 32 hex chars, got %q", id)
	}

	before, err := db.GetModified()
	if err != nil {
		t.Fatalf("Failed to get modified: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if err := db.UpdateModified(); err != nil {
		t.Fatalf("Failed to update modified: %v", err)
	}
	after, err := db.GetModified()
	if err != nil {
		t.Fatalf("Failed to get modified: %v", err)
	}
	if !after.After(before) {
		t.Errorf("Modified time did not advance: %v -> %v", before, after)
	}
}

func TestVersionKeyOrdering(t *testing.T) {
	db := openTestDB(t)

	err := db.Update(func(tx *bolt.Tx) error {
		b, err := tx.Bucket(BlobsBucket).CreateBucketIfNotExists([]byte("id"))
		if err != nil {
			return err
		}
		for _, v := range []uint64{10, 2, 300, 1} {
			if err := b.Put(VersionKey(v), []byte("x")); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Failed to write versions: %v", err)
	}

	var got []uint64
	err = db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(BlobsBucket).Bucket([]byte("id")).ForEach(func(k, _ []byte) error {
			v, err := ParseVersionKey(k)
			if err != nil {
				return err
			}
			got = append(got, v)
			return nil
		})
	})
	if err != nil {
		t.Fatalf("Failed to read versions: %v", err)
	}

	want := []uint64{1, 2, 10, 300}
	if len(got) != len(want) {
		t.Fatalf("Got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Position %d: got %d, want %d", i, got[i], want[i])
		}
	}

	if _, err := ParseVersionKey([]byte{1, 2}); err == nil {
		t.Error("Expected error for short key")
	}

	stats, err := db.Stats()
	if err != nil {
		t.Fatalf("Failed to get stats: %v", err)
	}
	if stats.Versions != 4 {
		t.Errorf("Stats versions: got %d, want 4", stats.Versions)
	}
}

func TestCompact(t *testing.T) {
	db := openTestDB(t)

	if err := db.PutCredential([]byte("cred")); err != nil {
		t.Fatalf("Failed to store credential: %v", err)
	}

	if err := db.Compact(); err != nil {
		t.Fatalf("Failed to compact: %v", err)
	}

	data, err := db.Credential()
	if err != nil {
		t.Fatalf("Credential lost after compaction: %v", err)
	}
	if string(data) != "cred" {
		t.Errorf("Credential mismatch after compaction: got %s", data)
	}

	if _, err := os.Stat(db.Path() + ".compact"); !os.IsNotExist(err) {
		t.Error("Temporary compact file should be removed")
	}
}
