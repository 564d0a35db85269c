package compression

import (
	"bytes"
	"strings"
	"testing"
)

func TestGzipCompression(t *testing.T) {
	compressor := NewGzipCompressor(DefaultCompressionConfig())

	originalData := []byte(strings.Repeat("Hello, World! This is a test message. ", 100))

	compressed, err := compressor.Compress(originalData)
	if err != nil {
		t.Fatalf("Failed to compress data: %v", err)
	}

	if compressed.Algorithm != "gzip" {
		t.Errorf("Expected algorithm gzip, got %s", compressed.Algorithm)
	}

	if compressed.Metadata.OriginalSize != int64(len(originalData)) {
		t.Errorf("Expected original size %d, got %d", len(originalData), compressed.Metadata.OriginalSize)
	}

	if compressed.Metadata.CompressedSize >= compressed.Metadata.OriginalSize {
		t.Error("Compressed size should be smaller than original")
	}

	decompressed, err := compressor.Decompress(compressed)
	if err != nil {
		t.Fatalf("Failed to decompress data: %v", err)
	}

	if !bytes.Equal(originalData, decompressed) {
		t.Error("Decompressed data doesn't match original")
	}
}

func TestGzipCompressionSkipsIncompressibleData(t *testing.T) {
	compressor := NewGzipCompressor(DefaultCompressionConfig())

	tiny := []byte("x")
	compressed, err := compressor.Compress(tiny)
	if err != nil {
		t.Fatalf("Failed to compress data: %v", err)
	}
	if compressed.Algorithm != "none" {
		t.Errorf("expected algorithm none for incompressible data, got %s", compressed.Algorithm)
	}

	decompressed, err := compressor.Decompress(compressed)
	if err != nil {
		t.Fatalf("Failed to decompress data: %v", err)
	}
	if !bytes.Equal(tiny, decompressed) {
		t.Error("Decompressed data doesn't match original")
	}
}

func TestGzipCompressionEmptyInput(t *testing.T) {
	compressor := NewGzipCompressor(DefaultCompressionConfig())

	compressed, err := compressor.Compress(nil)
	if err != nil {
		t.Fatalf("Failed to compress empty data: %v", err)
	}
	if compressed.Algorithm != "none" {
		t.Errorf("expected algorithm none for empty data, got %s", compressed.Algorithm)
	}
}

func TestNoopCompressor(t *testing.T) {
	compressor := NewNoopCompressor()

	testData := []byte("Test data for noop compressor")

	compressed, err := compressor.Compress(testData)
	if err != nil {
		t.Fatalf("Noop compress failed: %v", err)
	}

	if compressed.Algorithm != "none" {
		t.Errorf("Expected algorithm 'none', got %s", compressed.Algorithm)
	}

	if !bytes.Equal(compressed.Data, testData) {
		t.Error("Noop compressor should return original data")
	}

	decompressed, err := compressor.Decompress(compressed)
	if err != nil {
		t.Fatalf("Noop decompress failed: %v", err)
	}

	if !bytes.Equal(decompressed, testData) {
		t.Error("Noop decompressor should return original data")
	}
}

func TestDecompressRejectsUnknownAlgorithm(t *testing.T) {
	compressor := NewGzipCompressor(DefaultCompressionConfig())

	_, err := compressor.Decompress(&CompressedData{Algorithm: "bzip2", Data: []byte("x")})
	if err == nil {
		t.Error("expected an error for an unsupported algorithm")
	}
}
