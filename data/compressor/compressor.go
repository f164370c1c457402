package compressor

import (
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"
	"go.vocdoni.io/tokenvote/log"
)

// Compressor is a data compressor that uses zstd. It is safe for concurrent
// use.
type Compressor struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewCompressor creates a new data compressor.
func NewCompressor() Compressor {
	var c Compressor
	var err error
	c.encoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic(err) // static options, cannot fail
	}
	c.decoder, err = zstd.NewReader(nil)
	if err != nil {
		panic(err)
	}
	return c
}

// CompressBytes compresses the input via zstd.
func (c Compressor) CompressBytes(src []byte) []byte {
	start := time.Now()
	dst := c.encoder.EncodeAll(src, make([]byte, 0, len(src)/4))
	if len(src) > 0 {
		log.Debugf("compressed %d bytes to %d in %s, %.1f%% of the original size",
			len(src), len(dst), time.Since(start), float64(len(dst)*100)/float64(len(src)))
	}
	return dst
}

// IsZstd reports whether the input bytes begin with zstd's magic number,
// 0xFD2FB528 in little-endian format.
func IsZstd(src []byte) bool {
	return len(src) >= 4 &&
		src[0] == 0x28 && src[1] == 0xB5 &&
		src[2] == 0x2f && src[3] == 0xFD
}

// DecompressBytes decompresses zstd input. Input without the zstd magic
// number is returned as-is.
func (c Compressor) DecompressBytes(src []byte) ([]byte, error) {
	if !IsZstd(src) {
		return src, nil
	}
	dst, err := c.decoder.DecodeAll(src, make([]byte, 0, len(src)*4))
	if err != nil {
		return nil, fmt.Errorf("could not decompress zstd: %w", err)
	}
	return dst, nil
}
