package crypto

import (
	"bytes"
	"errors"
	"testing"
)

func testKDFParams() KDFParams {
	return KDFParams{Algorithm: KDFArgon2id, Memory: 8 * 1024, Time: 1, Threads: 1}
}

func TestDeriveKeyDeterministic(t *testing.T) {
	salt := bytes.Repeat([]byte{7}, SaltSize)

	for _, params := range []KDFParams{
		testKDFParams(),
		{Algorithm: KDFPBKDF2SHA256, Iterations: 1000},
	} {
		k1, err := DeriveKey([]byte("password"), salt, params)
		if err != nil {
			t.Fatalf("%s: DeriveKey failed: %v", params.Algorithm, err)
		}
		k2, err := DeriveKey([]byte("password"), salt, params)
		if err != nil {
			t.Fatalf("%s: DeriveKey failed: %v", params.Algorithm, err)
		}
		if !bytes.Equal(k1, k2) {
			t.Errorf("%s: same input produced different keys", params.Algorithm)
		}
		if len(k1) != KeySize {
			t.Errorf("%s: key size %d, want %d", params.Algorithm, len(k1), KeySize)
		}

		k3, _ := DeriveKey([]byte("passwore"), salt, params)
		if bytes.Equal(k1, k3) {
			t.Errorf("%s: different passwords produced the same key", params.Algorithm)
		}
	}
}

func TestDeriveKeyRejectsUnknownAlgorithm(t *testing.T) {
	_, err := DeriveKey([]byte("pw"), []byte("salt"), KDFParams{Algorithm: "md5"})
	if !errors.Is(err, ErrUnsupportedKDF) {
		t.Errorf("expected ErrUnsupportedKDF, got %v", err)
	}
}

func TestDeriveSubkeySeparation(t *testing.T) {
	master := bytes.Repeat([]byte{1}, KeySize)

	auth, err := DeriveSubkey(master, "auth")
	if err != nil {
		t.Fatal(err)
	}
	enc, err := DeriveSubkey(master, "enc")
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(auth, enc) {
		t.Error("subkeys for different contexts must differ")
	}
	if bytes.Equal(auth, master) || bytes.Equal(enc, master) {
		t.Error("subkey must not equal the master")
	}
}

func TestWeaker(t *testing.T) {
	target := DefaultKDFParams()

	if target.Weaker(target) {
		t.Error("params should not be weaker than themselves")
	}
	low := target
	low.Memory /= 2
	if !low.Weaker(target) {
		t.Error("lower memory should be weaker")
	}
	legacy := KDFParams{Algorithm: KDFPBKDF2SHA256, Iterations: DefaultPBKDF2Iters}
	if !legacy.Weaker(target) {
		t.Error("a different algorithm should count as weaker")
	}
}

func TestEncryptorRoundTrip(t *testing.T) {
	key := bytes.Repeat([]byte{0x42}, KeySize)

	for _, suite := range []CipherSuite{AES256GCM, ChaCha20Poly1305} {
		enc, err := NewEncryptor(suite, key)
		if err != nil {
			t.Fatalf("%s: NewEncryptor failed: %v", suite, err)
		}

		plaintext := []byte("top secret")
		aad := []byte("id/1")
		nonce, ct, err := enc.Seal(plaintext, aad)
		if err != nil {
			t.Fatalf("%s: Seal failed: %v", suite, err)
		}

		got, err := enc.Open(nonce, ct, aad)
		if err != nil {
			t.Fatalf("%s: Open failed: %v", suite, err)
		}
		if !bytes.Equal(got, plaintext) {
			t.Errorf("%s: got %q, want %q", suite, got, plaintext)
		}

		if _, err := enc.Open(nonce, ct, []byte("id/2")); !errors.Is(err, ErrAuthFailed) {
			t.Errorf("%s: wrong aad should fail authentication, got %v", suite, err)
		}

		ct[0] ^= 1
		if _, err := enc.Open(nonce, ct, aad); !errors.Is(err, ErrAuthFailed) {
			t.Errorf("%s: flipped bit should fail authentication, got %v", suite, err)
		}
		enc.Destroy()
	}
}

func TestWrapUnwrapKey(t *testing.T) {
	kek := bytes.Repeat([]byte{1}, KeySize)
	dataKey := bytes.Repeat([]byte{2}, KeySize)

	wrapped, err := WrapKey(kek, dataKey, []byte("ctx"))
	if err != nil {
		t.Fatalf("WrapKey failed: %v", err)
	}
	got, err := UnwrapKey(kek, wrapped, []byte("ctx"))
	if err != nil {
		t.Fatalf("UnwrapKey failed: %v", err)
	}
	if !bytes.Equal(got, dataKey) {
		t.Error("unwrapped key mismatch")
	}

	otherKEK := bytes.Repeat([]byte{3}, KeySize)
	if _, err := UnwrapKey(otherKEK, wrapped, []byte("ctx")); err == nil {
		t.Error("unwrap with wrong KEK should fail")
	}
}

func TestCheckPassword(t *testing.T) {
	tests := []struct {
		password string
		ok       bool
	}{
		{"Tr0ub4dor&3", true},
		{"correct horse battery staple", true},
		{"short", false},
		{"password", false},
		{"aaaaaaaaaaaaaaaaaaaa", false},
		{"12345678901", false},
	}

	for _, tt := range tests {
		err := CheckPassword([]byte(tt.password))
		if tt.ok && err != nil {
			t.Errorf("%q: unexpected rejection: %v", tt.password, err)
		}
		if !tt.ok && err == nil {
			t.Errorf("%q: expected rejection", tt.password)
		}
	}
}

func TestGeneratePassword(t *testing.T) {
	pw, err := GeneratePassword(16)
	if err != nil {
		t.Fatalf("GeneratePassword failed: %v", err)
	}
	if len(pw) != 16 {
		t.Errorf("length %d, want 16", len(pw))
	}
	if err := CheckPassword(pw); err != nil {
		t.Errorf("generated password rejected: %v", err)
	}

	if _, err := GeneratePassword(4); err == nil {
		t.Error("expected error for too short length")
	}
}

func TestConstantTimeCompare(t *testing.T) {
	if !ConstantTimeCompare([]byte("abc"), []byte("abc")) {
		t.Error("equal slices should compare equal")
	}
	if ConstantTimeCompare([]byte("abc"), []byte("abd")) {
		t.Error("different slices should not compare equal")
	}
}
