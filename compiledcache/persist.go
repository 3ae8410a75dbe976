package compiledcache

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/bufrgo/bufrcore/compress"
)

// magic identifies a persisted compiled-template cache file. header is
// magic (4 bytes) followed by a single codec-id byte (compress.Algorithm),
// mirroring the packed-flag-byte-then-payload header shape the teacher
// uses for its own blob headers (see DESIGN.md).
var magic = [4]byte{'B', 'C', 'T', 'C'} // BufrCore Template Cache

const headerSize = 5

// Save serializes tpl as JSON, optionally compresses it with algorithm,
// and writes magic + codec-id + payload to w.
func Save(w io.Writer, tpl *CompiledTemplate, algorithm compress.Algorithm) error {
	body, err := json.Marshal(tpl)
	if err != nil {
		return fmt.Errorf("compiledcache: marshal template: %w", err)
	}

	if algorithm != compress.AlgorithmNone {
		codec, err := compress.GetCodec(algorithm)
		if err != nil {
			return err
		}
		body, err = codec.Compress(body)
		if err != nil {
			return fmt.Errorf("compiledcache: compress template: %w", err)
		}
	}

	header := make([]byte, headerSize)
	copy(header[:4], magic[:])
	header[4] = byte(algorithm)

	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err = w.Write(body)

	return err
}

// Load reads and validates a compiled-template cache file written by Save.
func Load(r io.Reader) (*CompiledTemplate, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(buf) < headerSize {
		return nil, fmt.Errorf("compiledcache: truncated header")
	}
	if !bytes.Equal(buf[:4], magic[:]) {
		return nil, fmt.Errorf("compiledcache: bad magic")
	}

	algorithm := compress.Algorithm(buf[4])
	body := buf[headerSize:]

	if algorithm != compress.AlgorithmNone {
		codec, err := compress.GetCodec(algorithm)
		if err != nil {
			return nil, err
		}
		body, err = codec.Decompress(body)
		if err != nil {
			return nil, fmt.Errorf("compiledcache: decompress template: %w", err)
		}
	}

	var tpl CompiledTemplate
	if err := json.Unmarshal(body, &tpl); err != nil {
		return nil, fmt.Errorf("compiledcache: unmarshal template: %w", err)
	}

	return &tpl, nil
}
