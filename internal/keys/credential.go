package keys

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/illarion/filevault/internal/crypto"
)

// CredentialFormat is the record format written by this version
const CredentialFormat = 1

// HKDF contexts. Changing them breaks every existing store.
const (
	authContext    = "filevault/v1/auth"
	kekContext     = "filevault/v1/kek"
	wrapAssociated = "filevault/v1/data-key"
)

// Credential is the persisted master credential. It never contains the
// password or any key usable for decryption on its own.
type Credential struct {
	Format     int              `json:"format"`
	KDF        crypto.KDFParams `json:"kdf"`
	Salt       []byte           `json:"salt"`
	Hash       []byte           `json:"hash"`
	WrappedKey []byte           `json:"wrapped_key"`
	Created    time.Time        `json:"created"`
}

// Marshal encodes the credential for storage
func (c *Credential) Marshal() ([]byte, error) {
	return json.Marshal(c)
}

// ParseCredential decodes a stored credential
func ParseCredential(data []byte) (*Credential, error) {
	var c Credential
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to decode credential: %w", err)
	}
	if c.Format != CredentialFormat {
		return nil, fmt.Errorf("unsupported credential format %d", c.Format)
	}
	if err := c.KDF.Validate(); err != nil {
		return nil, fmt.Errorf("invalid credential: %w", err)
	}
	if len(c.Salt) == 0 || len(c.Hash) == 0 || len(c.WrappedKey) == 0 {
		return nil, fmt.Errorf("invalid credential: missing fields")
	}
	return &c, nil
}

// derived holds the two HKDF outputs of a password derivation
type derived struct {
	hash []byte
	kek  []byte
}

func (d *derived) destroy() {
	crypto.ClearBytes(d.hash)
	crypto.ClearBytes(d.kek)
}

func derive(password, salt []byte, params crypto.KDFParams) (*derived, error) {
	master, err := crypto.DeriveKey(password, salt, params)
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(master)

	hash, err := crypto.DeriveSubkey(master, authContext)
	if err != nil {
		return nil, err
	}
	kek, err := crypto.DeriveSubkey(master, kekContext)
	if err != nil {
		crypto.ClearBytes(hash)
		return nil, err
	}
	return &derived{hash: hash, kek: kek}, nil
}

// newCredential builds a credential protecting dataKey with password
func newCredential(password, dataKey []byte, params crypto.KDFParams) (*Credential, error) {
	salt, err := crypto.GenerateRandom(crypto.SaltSize)
	if err != nil {
		return nil, err
	}

	d, err := derive(password, salt, params)
	if err != nil {
		return nil, err
	}
	defer d.destroy()

	wrapped, err := crypto.WrapKey(d.kek, dataKey, []byte(wrapAssociated))
	if err != nil {
		return nil, fmt.Errorf("failed to wrap data key: %w", err)
	}

	return &Credential{
		Format:     CredentialFormat,
		KDF:        params,
		Salt:       salt,
		Hash:       append([]byte(nil), d.hash...),
		WrappedKey: wrapped,
		Created:    time.Now().UTC(),
	}, nil
}
