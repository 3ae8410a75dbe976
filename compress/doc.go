// Package compress provides compression and decompression codecs for
// persisted compiled-template cache blobs (spec.md §4.G).
//
// A compiled template is a JSON-serialized statement list produced once
// from a resolved descriptor tree; persisting it to disk lets a process
// skip descriptor resolution and recursive-descent template construction
// on the next message that shares the same (descriptor_ids, table_group_key)
// pair. The JSON encoding is verbose, so the cache writer may optionally
// run it through one of these codecs before writing the file, recording
// which one in the blob's header.
//
// # Supported Algorithms
//
//   - None: no compression, fastest open
//   - Zstd: best ratio, moderate speed — good for rarely-touched templates
//   - S2: balanced ratio and speed
//   - LZ4: fastest decompression — good for templates opened on every message
//
// # Architecture
//
//	type Compressor interface {
//	    Compress(data []byte) ([]byte, error)
//	}
//
//	type Decompressor interface {
//	    Decompress(data []byte) ([]byte, error)
//	}
//
//	type Codec interface {
//	    Compressor
//	    Decompressor
//	}
//
// CreateCodec and GetCodec select an implementation by Algorithm, the byte
// a compiled-template cache file records in its header so a later reader
// picks the matching decompressor without guessing.
//
// # Thread Safety
//
// All codec implementations are safe for concurrent use.
//
// # Error Handling
//
// Decompression errors indicate a corrupted or truncated cache file;
// compiledcache.Load returns them wrapped to its caller. The in-memory
// compiledcache.Cache does not read persisted files.
package compress
