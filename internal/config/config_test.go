package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illarion/filevault/internal/crypto"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvStore, EnvLogLevel, EnvConfig, EnvRetries} {
		t.Setenv(k, "")
	}
	t.Setenv("HOME", t.TempDir())
}

func TestDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "aes-256-gcm", cfg.Cipher)
	assert.Equal(t, []string{"random", "zeros", "random"}, cfg.Shred.Passes)
	assert.Equal(t, uint64(3), cfg.IORetries)
	assert.Equal(t, crypto.DefaultKDFParams(), cfg.KDFParams())
	assert.Equal(t, "vault.db", filepath.Base(cfg.Store))
}

func TestFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store: /data/vault.db
log_level: debug
cipher: chacha20-poly1305
compression: zstd
kdf:
  memory: 8192
  time: 1
  threads: 1
shred:
  passes: [zeros]
  enabled: false
`), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/vault.db", cfg.Store)
	assert.Equal(t, "chacha20-poly1305", cfg.Cipher)
	assert.Equal(t, "zstd", cfg.Compression)
	assert.Equal(t, uint32(8192), cfg.KDF.Memory)
	assert.Equal(t, []string{"zeros"}, cfg.Shred.Passes)
	assert.False(t, cfg.Shred.Enabled)
	assert.True(t, cfg.Keyring, "unset keys keep their defaults")

	t.Setenv(EnvStore, "/env/vault.db")
	t.Setenv(EnvLogLevel, "error")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/env/vault.db", cfg.Store)
	assert.Equal(t, "error", cfg.LogLevel)
}

func TestInvalidValues(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	for name, body := range map[string]string{
		"cipher":      "cipher: des",
		"compression": "compression: lz4",
		"passes":      "shred:\n  passes: [gutmann]",
		"level":       "log_level: loud",
		"kdf":         "kdf:\n  memory: 0",
		"yaml":        "store: [unterminated",
	} {
		path := filepath.Join(dir, name+".yaml")
		require.NoError(t, os.WriteFile(path, []byte(body), 0600))
		_, err := Load(path)
		assert.Error(t, err, name)
	}
}

func TestExplicitMissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
