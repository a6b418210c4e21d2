package keys

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/illarion/filevault/internal/crypto"
	"github.com/illarion/filevault/internal/vaulterr"
)

// Manager derives, verifies and holds the session key
type Manager struct {
	mu     sync.RWMutex
	key    *SessionKey
	params crypto.KDFParams
	log    *slog.Logger
}

// NewManager creates a locked manager. params are used for new and upgraded
// credentials; existing credentials keep their own parameters.
func NewManager(params crypto.KDFParams, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Manager{params: params, log: logger}
}

// Params returns the parameters used for new credentials
func (m *Manager) Params() crypto.KDFParams {
	return m.params
}

// Create builds a credential for a new store and leaves the manager unlocked
// with the new session key. The key is owned by the manager.
func (m *Manager) Create(password []byte) (*Credential, *SessionKey, error) {
	if err := crypto.CheckPassword(password); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", vaulterr.ErrWeakPassword, err)
	}
	if err := m.params.Validate(); err != nil {
		return nil, nil, err
	}

	dataKey, err := crypto.GenerateRandom(crypto.KeySize)
	if err != nil {
		return nil, nil, err
	}

	cred, err := newCredential(password, dataKey, m.params)
	if err != nil {
		crypto.ClearBytes(dataKey)
		return nil, nil, err
	}

	key := newSessionKey(dataKey)
	m.setKey(key)
	m.log.Info("credential created", "kdf", m.params.String())
	return cred, key, nil
}

// Unlock verifies password against cred and, on success, holds the session
// key. Any failure, including a damaged wrapped key, is ErrAuth.
func (m *Manager) Unlock(password []byte, cred *Credential) (*SessionKey, error) {
	dataKey, err := open(password, cred)
	if err != nil {
		return nil, err
	}

	key := newSessionKey(dataKey)
	m.setKey(key)
	m.log.Debug("unlocked")
	return key, nil
}

// Verify checks password against cred without changing state
func (m *Manager) Verify(password []byte, cred *Credential) error {
	dataKey, err := open(password, cred)
	if err != nil {
		return err
	}
	crypto.ClearBytes(dataKey)
	return nil
}

// Lock destroys the session key
func (m *Manager) Lock() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.key != nil {
		m.key.Destroy()
		m.key = nil
		m.log.Debug("locked")
	}
}

// Unlocked reports the current state
func (m *Manager) Unlocked() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.key.Alive()
}

// WithKey runs fn with the session key held under the read lock. The key
// slice must not be retained after fn returns.
func (m *Manager) WithKey(fn func(key []byte) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.key.Alive() {
		return vaulterr.ErrLocked
	}
	return fn(m.key.Bytes())
}

// ChangePassword re-protects the data key of cred with newPassword under a
// fresh salt and the manager's current parameters. Calling it with the same
// password upgrades the KDF cost. Existing versions stay readable since the
// data key does not change.
func (m *Manager) ChangePassword(oldPassword, newPassword []byte, cred *Credential) (*Credential, error) {
	dataKey, err := open(oldPassword, cred)
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(dataKey)

	if err := crypto.CheckPassword(newPassword); err != nil {
		return nil, fmt.Errorf("%w: %v", vaulterr.ErrWeakPassword, err)
	}

	next, err := newCredential(newPassword, dataKey, m.params)
	if err != nil {
		return nil, err
	}
	next.Created = cred.Created

	m.log.Info("credential replaced", "kdf", m.params.String())
	return next, nil
}

// NeedsUpgrade reports whether cred uses a cheaper KDF than the manager's
func (m *Manager) NeedsUpgrade(cred *Credential) bool {
	return cred.KDF.Weaker(m.params)
}

func (m *Manager) setKey(key *SessionKey) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.key != nil {
		m.key.Destroy()
	}
	m.key = key
}

// open verifies password and returns the unwrapped data key
func open(password []byte, cred *Credential) ([]byte, error) {
	if cred == nil {
		return nil, vaulterr.ErrAuth
	}

	d, err := derive(password, cred.Salt, cred.KDF)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	defer d.destroy()

	if !crypto.ConstantTimeCompare(d.hash, cred.Hash) {
		return nil, vaulterr.ErrAuth
	}

	dataKey, err := crypto.UnwrapKey(d.kek, cred.WrappedKey, []byte(wrapAssociated))
	if err != nil {
		return nil, vaulterr.ErrAuth
	}
	return dataKey, nil
}
