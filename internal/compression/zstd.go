package compression

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// ZstdCompressor implements Zstandard compression, the default for payload
// blobs.
type ZstdCompressor struct {
	level int
	enc   *zstd.Encoder
	dec   *zstd.Decoder
}

// NewZstdCompressor creates a new Zstandard compressor.
func NewZstdCompressor(level int) (*ZstdCompressor, error) {
	if level < 1 || level > 22 {
		return nil, fmt.Errorf("zstd level must be between 1 and 22, got %d", level)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	return &ZstdCompressor{level: level, enc: enc, dec: dec}, nil
}

// Compress compresses a payload using Zstandard.
func (z *ZstdCompressor) Compress(data []byte) ([]byte, error) {
	return z.enc.EncodeAll(data, nil), nil
}

// Decompress restores a payload; zstd frames carry their own size, so
// originalSize is only used as a capacity hint.
func (z *ZstdCompressor) Decompress(data []byte, originalSize int) ([]byte, error) {
	return z.dec.DecodeAll(data, make([]byte, 0, originalSize))
}

// Algorithm returns the algorithm name.
func (z *ZstdCompressor) Algorithm() string {
	return "zstd"
}

// Close releases encoder and decoder resources.
func (z *ZstdCompressor) Close() error {
	if z.enc != nil {
		z.enc.Close()
	}
	if z.dec != nil {
		z.dec.Close()
	}
	return nil
}
