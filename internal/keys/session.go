package keys

import "github.com/awnumar/memguard"

// SessionKey is the unwrapped data key of an unlocked store
type SessionKey struct {
	buf *memguard.LockedBuffer
}

// newSessionKey moves b into locked memory. b is wiped.
func newSessionKey(b []byte) *SessionKey {
	return &SessionKey{buf: memguard.NewBufferFromBytes(b)}
}

// Bytes exposes the key. The slice is only valid until Destroy.
func (k *SessionKey) Bytes() []byte {
	return k.buf.Bytes()
}

// Alive reports whether the key has not been destroyed
func (k *SessionKey) Alive() bool {
	return k != nil && k.buf.IsAlive()
}

// Destroy wipes and releases the key
func (k *SessionKey) Destroy() {
	if k != nil {
		k.buf.Destroy()
	}
}
