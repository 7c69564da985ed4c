// Package compression shrinks operation payload blobs before they enter the
// log store. The original size is always persisted next to the blob, so
// decompression is size-aware.
package compression

import "fmt"

// Compressor defines the interface for payload compression algorithms.
type Compressor interface {
	// Compress compresses a payload blob.
	Compress(data []byte) ([]byte, error)

	// Decompress restores a payload blob; originalSize is the stored
	// uncompressed length.
	Decompress(data []byte, originalSize int) ([]byte, error)

	// Algorithm returns the algorithm name as persisted with the blob.
	Algorithm() string
}

// NewCompressor creates a compressor based on algorithm name.
func NewCompressor(algorithm string, level int) (Compressor, error) {
	switch algorithm {
	case "zstd":
		return NewZstdCompressor(level)
	case "lz4":
		return NewLZ4Compressor(level)
	case "gzip":
		return NewGzipCompressor(level)
	case "none":
		return NewNoOpCompressor(), nil
	default:
		return nil, fmt.Errorf("unknown compression algorithm: %s", algorithm)
	}
}

// NoOpCompressor passes payloads through unchanged.
type NoOpCompressor struct{}

// NewNoOpCompressor creates a no-op compressor.
func NewNoOpCompressor() *NoOpCompressor {
	return &NoOpCompressor{}
}

// Compress returns data as-is.
func (n *NoOpCompressor) Compress(data []byte) ([]byte, error) {
	return data, nil
}

// Decompress returns data as-is.
func (n *NoOpCompressor) Decompress(data []byte, originalSize int) ([]byte, error) {
	return data, nil
}

// Algorithm returns "none".
func (n *NoOpCompressor) Algorithm() string {
	return "none"
}

// Ratio reports compressed/original size; 0 when the original is empty.
func Ratio(originalSize, compressedSize int) float64 {
	if originalSize == 0 {
		return 0.0
	}
	return float64(compressedSize) / float64(originalSize)
}
