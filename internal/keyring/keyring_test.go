package keyring

import (
	"testing"

	"github.com/zalando/go-keyring"
)

func TestRoundTrip(t *testing.T) {
	keyring.MockInit()

	if HasPassword("store-a") {
		t.Fatal("Fresh keyring should be empty")
	}
	if _, err := GetPassword("store-a"); !IsNotFound(err) {
		t.Fatalf("Expected not found, got %v", err)
	}

	if err := SavePassword("store-a", []byte("s3cret-passphrase")); err != nil {
		t.Fatalf("SavePassword failed: %v", err)
	}
	got, err := GetPassword("store-a")
	if err != nil {
		t.Fatalf("GetPassword failed: %v", err)
	}
	if string(got) != "s3cret-passphrase" {
		t.Errorf("GetPassword = %q", got)
	}
	if HasPassword("store-b") {
		t.Error("Entries must be scoped by store id")
	}

	if err := DeletePassword("store-a"); err != nil {
		t.Fatalf("DeletePassword failed: %v", err)
	}
	if HasPassword("store-a") {
		t.Error("Password still present after delete")
	}
}
