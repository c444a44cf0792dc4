package etl

import (
	"fmt"
	"io"
	"os"

	"github.com/ugorji/go/codec"
)

// cborHandle is shared across all run-file encoders/decoders, the way the
// teacher shares a single codec.CborHandle per package rather than
// allocating one per call.
var cborHandle = &codec.CborHandle{}

// provider reads back one sorted run file written by flushBuffer, in key
// order, one entry at a time.
type provider struct {
	file    *os.File
	decoder *codec.Decoder
}

func newProvider(path string) (*provider, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &provider{file: f, decoder: codec.NewDecoder(f, cborHandle)}, nil
}

// next returns the next entry in the run file, or io.EOF once exhausted.
func (p *provider) next() (entry, error) {
	var e entry
	if err := p.decoder.Decode(&e); err != nil {
		return entry{}, err
	}
	return e, nil
}

func (p *provider) Close() error {
	err := p.file.Close()
	os.Remove(p.file.Name())
	return err
}

// flushBuffer writes a buffer's entries, already sorted by key, to a new
// run file in dir and returns its path.
func flushBuffer(dir string, es []entry) (string, error) {
	f, err := os.CreateTemp(dir, "etl-run-*.cbor")
	if err != nil {
		return "", err
	}
	defer f.Close()

	enc := codec.NewEncoder(f, cborHandle)
	for _, e := range es {
		if err := enc.Encode(e); err != nil {
			return "", fmt.Errorf("etl: flush run file: %w", err)
		}
	}
	return f.Name(), nil
}

var _ io.Closer = (*provider)(nil)
