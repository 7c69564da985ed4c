package compression

import (
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// LZ4Compressor implements LZ4 block compression. LZ4 blocks do not record
// the uncompressed length, which is why the store persists it separately.
type LZ4Compressor struct {
	level int
}

// NewLZ4Compressor creates a new LZ4 compressor.
func NewLZ4Compressor(level int) (*LZ4Compressor, error) {
	if level < 1 || level > 16 {
		return nil, fmt.Errorf("lz4 level must be between 1 and 16, got %d", level)
	}
	return &LZ4Compressor{level: level}, nil
}

// Compress compresses a payload using LZ4.
func (l *LZ4Compressor) Compress(data []byte) ([]byte, error) {
	// LZ4 can expand incompressible data slightly.
	compressed := make([]byte, len(data)+len(data)/255+16)

	compressor := lz4.CompressorHC{Level: lz4.CompressionLevel(l.level)}
	n, err := compressor.CompressBlock(data, compressed)
	if err != nil {
		return nil, fmt.Errorf("failed to compress: %w", err)
	}
	return compressed[:n], nil
}

// Decompress restores a payload into a buffer of the stored original size.
func (l *LZ4Compressor) Decompress(data []byte, originalSize int) ([]byte, error) {
	decompressed := make([]byte, originalSize)
	n, err := lz4.UncompressBlock(data, decompressed)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress: %w", err)
	}
	if n != originalSize {
		return nil, fmt.Errorf("decompressed size %d does not match expected %d", n, originalSize)
	}
	return decompressed, nil
}

// Algorithm returns the algorithm name.
func (l *LZ4Compressor) Algorithm() string {
	return "lz4"
}
