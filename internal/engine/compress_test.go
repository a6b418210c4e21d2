package engine

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illarion/filevault/internal/versionstore"
)

func TestDecompressExactSize(t *testing.T) {
	plain := bytes.Repeat([]byte("filevault "), 4096)
	packed, err := compress(versionstore.CompressionZstd, plain)
	require.NoError(t, err)
	require.Less(t, len(packed), len(plain))

	got, err := decompress(versionstore.CompressionZstd, packed, int64(len(plain)))
	require.NoError(t, err)
	assert.Equal(t, plain, got)

	// a frame larger than the recorded size is cut off after one extra byte
	_, err = decompress(versionstore.CompressionZstd, packed, 10)
	assert.ErrorContains(t, err, "decompressed 11 bytes, expected 10")

	_, err = decompress(versionstore.CompressionZstd, packed, int64(len(plain))+1)
	assert.Error(t, err)

	_, err = decompress(versionstore.CompressionZstd, []byte("not zstd"), 8)
	assert.Error(t, err)
}

func TestDecompressEmpty(t *testing.T) {
	packed, err := compress(versionstore.CompressionZstd, nil)
	require.NoError(t, err)

	got, err := decompress(versionstore.CompressionZstd, packed, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}
