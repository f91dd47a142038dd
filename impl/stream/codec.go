package stream

import (
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Names of the supported codecs
const (
	Gzip = "gzip"
	Zstd = "zstd"
	None = "none"
)

// Codec wraps the destination of a copy with an encoder, and a stored record
// with the matching decoder.
type Codec interface {
	Name() string
	NewWriter(w io.Writer) (io.WriteCloser, error)
	NewReader(r io.Reader) (io.ReadCloser, error)
}

// CodecFor returns the codec with the passed name. An empty name selects gzip.
func CodecFor(name string) (Codec, error) {
	switch strings.ToLower(name) {
	case "", Gzip:
		return gzipCodec{}, nil
	case Zstd:
		return zstdCodec{}, nil
	case None:
		return noneCodec{}, nil
	}
	return nil, fmt.Errorf("unsupported compression: %q", name)
}

type gzipCodec struct{}

func (gzipCodec) Name() string {
	return Gzip
}

func (gzipCodec) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return gzip.NewWriter(w), nil
}

func (gzipCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	return gzip.NewReader(r)
}

type zstdCodec struct{}

func (zstdCodec) Name() string {
	return Zstd
}

func (zstdCodec) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return zstd.NewWriter(w)
}

func (zstdCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	return zr.IOReadCloser(), nil
}

type noneCodec struct{}

func (noneCodec) Name() string {
	return None
}

func (noneCodec) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return nopWriteCloser{w}, nil
}

func (noneCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(r), nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error {
	return nil
}
