package compress

import "fmt"

// Algorithm identifies the compression scheme applied to a persisted
// compiled-template blob (spec.md §4.G).
type Algorithm uint8

const (
	AlgorithmNone Algorithm = 0x1
	AlgorithmZstd Algorithm = 0x2
	AlgorithmS2   Algorithm = 0x3
	AlgorithmLZ4  Algorithm = 0x4
)

func (a Algorithm) String() string {
	switch a {
	case AlgorithmNone:
		return "None"
	case AlgorithmZstd:
		return "Zstd"
	case AlgorithmS2:
		return "S2"
	case AlgorithmLZ4:
		return "LZ4"
	default:
		return "Unknown"
	}
}

// Compressor provides high-performance compression for compiled-template
// cache blobs before they are persisted (spec.md §4.G). Blobs are JSON
// encodings of a template's statement list and typically run from a few
// hundred bytes (trivial templates) to tens of kilobytes (deeply nested
// replication templates with many elements).
type Compressor interface {
	// Compress compresses the input data and returns the compressed result.
	//
	// Memory management:
	//   - Returned slice is newly allocated and owned by the caller
	//   - Input slice is not modified
	//   - Internal buffers may be reused for efficiency
	Compress(data []byte) ([]byte, error)
}

// Decompressor provides decompression of persisted compiled-template cache
// blobs.
//
// Thread Safety: Decompressor implementations must be safe for concurrent use
// or document their thread safety requirements clearly.
type Decompressor interface {
	// Decompress decompresses the input data and returns the original result.
	//
	// Error conditions:
	//   - Returns error if input data is corrupted or invalid
	//   - Returns error if data was compressed with an incompatible algorithm
	Decompress(data []byte) ([]byte, error)
}

// Codec combines both compression and decompression capabilities.
type Codec interface {
	Compressor
	Decompressor
}

// CompressionStats provides detailed information about compression operations,
// used for logging cache-persistence outcomes.
type CompressionStats struct {
	Algorithm           Algorithm
	OriginalSize        int64
	CompressedSize      int64
	Ratio               float64
	CompressionTimeNs   int64
	DecompressionTimeNs int64
}

// CompressionRatio returns the compression ratio (compressed size / original size).
func (s CompressionStats) CompressionRatio() float64 {
	if s.OriginalSize == 0 {
		return 0.0
	}

	return float64(s.CompressedSize) / float64(s.OriginalSize)
}

// SpaceSavings returns the space savings as a percentage; it is negative
// when the compressed form is larger than the original.
func (s CompressionStats) SpaceSavings() float64 {
	return (1.0 - s.CompressionRatio()) * 100.0
}

// CreateCodec is a factory function that creates a Codec for the specified
// algorithm; target names the caller's context in the error returned for
// an unknown algorithm. compiledcache.Save and Load use GetCodec instead.
func CreateCodec(algorithm Algorithm, target string) (Codec, error) {
	switch algorithm {
	case AlgorithmNone:
		return NewNoOpCompressor(), nil
	case AlgorithmZstd:
		return NewZstdCompressor(), nil
	case AlgorithmS2:
		return NewS2Compressor(), nil
	case AlgorithmLZ4:
		return NewLZ4Compressor(), nil
	default:
		return nil, fmt.Errorf("invalid %s compression: %s", target, algorithm)
	}
}

var builtinCodecs = map[Algorithm]Codec{
	AlgorithmNone: NewNoOpCompressor(),
	AlgorithmZstd: NewZstdCompressor(),
	AlgorithmS2:   NewS2Compressor(),
	AlgorithmLZ4:  NewLZ4Compressor(),
}

// GetCodec retrieves a built-in Codec for the specified algorithm.
func GetCodec(algorithm Algorithm) (Codec, error) {
	if codec, ok := builtinCodecs[algorithm]; ok {
		return codec, nil
	}

	return nil, fmt.Errorf("unsupported compression algorithm: %s", algorithm)
}
