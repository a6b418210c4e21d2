package engine

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/illarion/filevault/internal/versionstore"
)

var zstdEncoder = sync.OnceValues(func() (*zstd.Encoder, error) {
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
})

func compress(c versionstore.Compression, data []byte) ([]byte, error) {
	switch c {
	case versionstore.CompressionNone:
		return data, nil
	case versionstore.CompressionZstd:
		enc, err := zstdEncoder()
		if err != nil {
			return nil, err
		}
		return enc.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
	}
	return nil, fmt.Errorf("unsupported compression %q", c)
}

// decompress unpacks data into exactly size bytes. Decoding stops one byte
// past size, so a frame that inflates further is rejected without being
// expanded in memory.
func decompress(c versionstore.Compression, data []byte, size int64) ([]byte, error) {
	switch c {
	case versionstore.CompressionNone:
		return data, nil
	case versionstore.CompressionZstd:
		if len(data) == 0 && size == 0 {
			return []byte{}, nil
		}
		dec, err := zstd.NewReader(bytes.NewReader(data), zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, err
		}
		defer dec.Close()

		var out bytes.Buffer
		n, err := io.Copy(&out, io.LimitReader(dec, size+1))
		if err != nil {
			return nil, err
		}
		if n != size {
			return nil, fmt.Errorf("decompressed %d bytes, expected %d", n, size)
		}
		return out.Bytes(), nil
	}
	return nil, fmt.Errorf("unsupported compression %q", c)
}
