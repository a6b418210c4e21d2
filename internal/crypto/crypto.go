package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/pbkdf2"
)

const (
	SaltSize = 32 // Salt size in bytes
	KeySize  = 32 // AEAD key size for both suites
	TagSize  = 16 // AEAD authentication tag size

	DefaultArgonMemory  = 64 * 1024 // KiB
	DefaultArgonTime    = 3
	DefaultArgonThreads = 4
	DefaultPBKDF2Iters  = 210000 // OWASP minimum for PBKDF2-HMAC-SHA256
)

// KDF algorithm identifiers, persisted with every credential.
const (
	KDFArgon2id     = "argon2id"
	KDFPBKDF2SHA256 = "pbkdf2-sha256"
)

// CipherSuite identifies the AEAD used for a version. Persisted per entry.
type CipherSuite string

const (
	AES256GCM        CipherSuite = "aes-256-gcm"
	ChaCha20Poly1305 CipherSuite = "chacha20-poly1305"
)

var (
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
	ErrAuthFailed        = errors.New("authentication failed")
	ErrUnsupportedKDF    = errors.New("unsupported key derivation function")
	ErrUnsupportedCipher = errors.New("unsupported cipher suite")
)

// KDFParams describes how a master secret is derived from a password
type KDFParams struct {
	Algorithm  string `json:"algorithm"`
	Memory     uint32 `json:"memory,omitempty"`  // Argon2id memory in KiB
	Time       uint32 `json:"time,omitempty"`    // Argon2id passes
	Threads    uint8  `json:"threads,omitempty"` // Argon2id parallelism
	Iterations uint32 `json:"iterations,omitempty"`
}

// DefaultKDFParams returns the Argon2id parameters used for new credentials
func DefaultKDFParams() KDFParams {
	return KDFParams{
		Algorithm: KDFArgon2id,
		Memory:    DefaultArgonMemory,
		Time:      DefaultArgonTime,
		Threads:   DefaultArgonThreads,
	}
}

// Validate checks that the parameters are usable
func (p KDFParams) Validate() error {
	switch p.Algorithm {
	case KDFArgon2id:
		if p.Memory == 0 || p.Time == 0 || p.Threads == 0 {
			return fmt.Errorf("argon2id: memory, time and threads must be set")
		}
	case KDFPBKDF2SHA256:
		if p.Iterations == 0 {
			return fmt.Errorf("pbkdf2: iterations must be set")
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedKDF, p.Algorithm)
	}
	return nil
}

// Weaker reports whether p costs less than target. A different algorithm
// than the target always counts as weaker.
func (p KDFParams) Weaker(target KDFParams) bool {
	if p.Algorithm != target.Algorithm {
		return true
	}
	switch p.Algorithm {
	case KDFArgon2id:
		return p.Memory < target.Memory || p.Time < target.Time
	case KDFPBKDF2SHA256:
		return p.Iterations < target.Iterations
	}
	return true
}

// String returns a short human readable description
func (p KDFParams) String() string {
	switch p.Algorithm {
	case KDFArgon2id:
		return fmt.Sprintf("argon2id (m=%d KiB, t=%d, p=%d)", p.Memory, p.Time, p.Threads)
	case KDFPBKDF2SHA256:
		return fmt.Sprintf("pbkdf2-sha256 (%d iterations)", p.Iterations)
	}
	return p.Algorithm
}

// DeriveKey derives the master secret from a password
func DeriveKey(password, salt []byte, params KDFParams) ([]byte, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if len(salt) == 0 {
		return nil, errors.New("salt cannot be empty")
	}

	switch params.Algorithm {
	case KDFArgon2id:
		return argon2.IDKey(password, salt, params.Time, params.Memory, params.Threads, KeySize), nil
	case KDFPBKDF2SHA256:
		return pbkdf2.Key(password, salt, int(params.Iterations), KeySize, sha256.New), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedKDF, params.Algorithm)
}

// DeriveSubkey expands master into an independent key bound to context.
// Different contexts yield unrelated keys from the same master.
func DeriveSubkey(master []byte, context string) ([]byte, error) {
	r := hkdf.New(sha256.New, master, nil, []byte(context))
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("failed to derive subkey: %w", err)
	}
	return key, nil
}

// NewAEAD constructs the AEAD for a suite
func NewAEAD(suite CipherSuite, key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d", KeySize, len(key))
	}

	switch suite {
	case AES256GCM:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, fmt.Errorf("failed to create cipher: %w", err)
		}
		gcm, err := cipher.NewGCM(block)
		if err != nil {
			return nil, fmt.Errorf("failed to create GCM: %w", err)
		}
		return gcm, nil
	case ChaCha20Poly1305:
		aead, err := chacha20poly1305.New(key)
		if err != nil {
			return nil, fmt.Errorf("failed to create ChaCha20-Poly1305: %w", err)
		}
		return aead, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedCipher, suite)
}

// ParseCipherSuite validates a suite name from configuration
func ParseCipherSuite(name string) (CipherSuite, error) {
	switch CipherSuite(name) {
	case AES256GCM, ChaCha20Poly1305:
		return CipherSuite(name), nil
	case "":
		return AES256GCM, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedCipher, name)
}

// Encryptor provides authenticated encryption with a fixed key and suite
type Encryptor struct {
	suite CipherSuite
	aead  cipher.AEAD
	key   []byte
}

// NewEncryptor creates a new encryptor. The key is copied; Destroy clears the copy.
func NewEncryptor(suite CipherSuite, key []byte) (*Encryptor, error) {
	k := append([]byte(nil), key...)
	aead, err := NewAEAD(suite, k)
	if err != nil {
		ClearBytes(k)
		return nil, err
	}
	return &Encryptor{suite: suite, aead: aead, key: k}, nil
}

// Suite returns the cipher suite of the encryptor
func (e *Encryptor) Suite() CipherSuite {
	return e.suite
}

// Seal encrypts and authenticates plaintext and aad under a fresh random nonce
func (e *Encryptor) Seal(plaintext, aad []byte) (nonce, ciphertext []byte, err error) {
	nonce, err = GenerateRandom(e.aead.NonceSize())
	if err != nil {
		return nil, nil, err
	}
	return nonce, e.aead.Seal(nil, nonce, plaintext, aad), nil
}

// Open verifies and decrypts ciphertext. Any tag failure is ErrAuthFailed.
func (e *Encryptor) Open(nonce, ciphertext, aad []byte) ([]byte, error) {
	if len(nonce) != e.aead.NonceSize() || len(ciphertext) < e.aead.Overhead() {
		return nil, ErrInvalidCiphertext
	}
	plaintext, err := e.aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, ErrAuthFailed
	}
	return plaintext, nil
}

// Destroy clears the encryptor's key from memory
func (e *Encryptor) Destroy() {
	ClearBytes(e.key)
}

// WrapKey seals a data key under a key-encryption key. Output: nonce || ciphertext.
func WrapKey(kek, dataKey, aad []byte) ([]byte, error) {
	enc, err := NewEncryptor(AES256GCM, kek)
	if err != nil {
		return nil, err
	}
	defer enc.Destroy()

	nonce, ct, err := enc.Seal(dataKey, aad)
	if err != nil {
		return nil, err
	}
	result := make([]byte, len(nonce)+len(ct))
	copy(result, nonce)
	copy(result[len(nonce):], ct)
	return result, nil
}

// UnwrapKey reverses WrapKey
func UnwrapKey(kek, wrapped, aad []byte) ([]byte, error) {
	enc, err := NewEncryptor(AES256GCM, kek)
	if err != nil {
		return nil, err
	}
	defer enc.Destroy()

	n := enc.aead.NonceSize()
	if len(wrapped) < n+TagSize {
		return nil, ErrInvalidCiphertext
	}
	return enc.Open(wrapped[:n], wrapped[n:], aad)
}

// ClearBytes securely clears a byte slice
func ClearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// ConstantTimeCompare performs a constant-time comparison of two byte slices
func ConstantTimeCompare(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// GenerateRandom generates n random bytes
func GenerateRandom(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return b, nil
}
