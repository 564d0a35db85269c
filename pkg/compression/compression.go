// Package compression implements the Compressor used by
// internal/transform's CompressionTransformer: a small, whole-payload
// gzip codec for record JSON blobs, not the streaming/content-type-aware
// object compressor an object store would need.
package compression

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
)

// CompressionConfig holds compression configuration.
type CompressionConfig struct {
	// Algorithm specifies the compression algorithm (gzip, none).
	Algorithm string
	// Level specifies the gzip compression level (1-9).
	Level int
}

// CompressionMetadata describes a compressed payload.
type CompressionMetadata struct {
	Algorithm        string  `json:"algorithm"`
	Level            int     `json:"level"`
	OriginalSize     int64   `json:"original_size"`
	CompressedSize   int64   `json:"compressed_size"`
	CompressionRatio float64 `json:"compression_ratio"`
}

// Compressor compresses and decompresses whole payloads.
type Compressor interface {
	Compress(data []byte) (*CompressedData, error)
	Decompress(compressedData *CompressedData) ([]byte, error)
}

// CompressedData is a compressed payload plus the metadata needed to
// decompress it.
type CompressedData struct {
	Data      []byte               `json:"data"`
	Metadata  *CompressionMetadata `json:"metadata"`
	Algorithm string               `json:"algorithm"`
}

// gzipCompressor implements gzip compression.
type gzipCompressor struct {
	config *CompressionConfig
}

// NewGzipCompressor creates a gzip Compressor.
func NewGzipCompressor(config *CompressionConfig) Compressor {
	if config == nil {
		config = DefaultCompressionConfig()
	}
	return &gzipCompressor{config: config}
}

// noopCompressor passes data through unchanged.
type noopCompressor struct{}

// NewNoopCompressor creates a pass-through Compressor, useful when a
// pipeline stage needs a Compressor but compression should be disabled.
func NewNoopCompressor() Compressor {
	return &noopCompressor{}
}

// DefaultCompressionConfig returns the default gzip configuration.
func DefaultCompressionConfig() *CompressionConfig {
	return &CompressionConfig{
		Algorithm: "gzip",
		Level:     6,
	}
}

// Compress gzip-compresses data. If compression would not shrink the
// payload, the original bytes are returned tagged as algorithm "none".
func (c *gzipCompressor) Compress(data []byte) (*CompressedData, error) {
	if len(data) == 0 {
		return c.uncompressedResult(data), nil
	}

	originalSize := int64(len(data))

	var buf bytes.Buffer
	writer, err := gzip.NewWriterLevel(&buf, c.config.Level)
	if err != nil {
		return nil, fmt.Errorf("compression: create gzip writer: %w", err)
	}
	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return nil, fmt.Errorf("compression: write: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("compression: close gzip writer: %w", err)
	}

	compressed := buf.Bytes()
	compressedSize := int64(len(compressed))
	if compressedSize >= originalSize {
		return c.uncompressedResult(data), nil
	}

	return &CompressedData{
		Data:      compressed,
		Algorithm: c.config.Algorithm,
		Metadata: &CompressionMetadata{
			Algorithm:        c.config.Algorithm,
			Level:            c.config.Level,
			OriginalSize:     originalSize,
			CompressedSize:   compressedSize,
			CompressionRatio: float64(compressedSize) / float64(originalSize),
		},
	}, nil
}

// Decompress reverses Compress.
func (c *gzipCompressor) Decompress(compressedData *CompressedData) ([]byte, error) {
	if compressedData.Algorithm == "none" || compressedData.Algorithm == "" {
		return compressedData.Data, nil
	}
	if compressedData.Algorithm != "gzip" {
		return nil, fmt.Errorf("compression: unsupported algorithm %q", compressedData.Algorithm)
	}

	reader, err := gzip.NewReader(bytes.NewReader(compressedData.Data))
	if err != nil {
		return nil, fmt.Errorf("compression: create gzip reader: %w", err)
	}
	defer reader.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return nil, fmt.Errorf("compression: decompress: %w", err)
	}
	return buf.Bytes(), nil
}

func (c *gzipCompressor) uncompressedResult(data []byte) *CompressedData {
	return &CompressedData{
		Data:      data,
		Algorithm: "none",
		Metadata: &CompressionMetadata{
			Algorithm:        "none",
			OriginalSize:     int64(len(data)),
			CompressedSize:   int64(len(data)),
			CompressionRatio: 1.0,
		},
	}
}

// Compress returns data unchanged, tagged as algorithm "none".
func (c *noopCompressor) Compress(data []byte) (*CompressedData, error) {
	return &CompressedData{
		Data:      data,
		Algorithm: "none",
		Metadata: &CompressionMetadata{
			Algorithm:        "none",
			OriginalSize:     int64(len(data)),
			CompressedSize:   int64(len(data)),
			CompressionRatio: 1.0,
		},
	}, nil
}

// Decompress returns the payload unchanged.
func (c *noopCompressor) Decompress(compressedData *CompressedData) ([]byte, error) {
	return compressedData.Data, nil
}
