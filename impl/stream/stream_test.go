package stream

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"io"
	"testing"
)

// countingReader records the largest read request it sees
type countingReader struct {
	r       io.Reader
	maxRead int
}

func (c *countingReader) Read(p []byte) (int, error) {
	if len(p) > c.maxRead {
		c.maxRead = len(p)
	}
	return c.r.Read(p)
}

func TestCopyBoundedBuffer(t *testing.T) {
	data := make([]byte, 3*DefaultChunkSize+17)
	rand.Read(data)
	src := &countingReader{r: bytes.NewReader(data)}
	var dst bytes.Buffer
	n, err := Copy(context.Background(), &dst, src, 0)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if n != int64(len(data)) || !bytes.Equal(dst.Bytes(), data) {
		t.Errorf("copy mismatch: wrote %d of %d bytes", n, len(data))
	}
	if src.maxRead != DefaultChunkSize {
		t.Errorf("expected reads of %d bytes, got %d", DefaultChunkSize, src.maxRead)
	}
}

func TestCopyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var dst bytes.Buffer
	_, err := Copy(ctx, &dst, bytes.NewReader([]byte("abc")), 1)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

type shortWriter struct{}

func (shortWriter) Write(p []byte) (int, error) {
	return len(p) / 2, nil
}

func TestCopyShortWrite(t *testing.T) {
	_, err := Copy(context.Background(), shortWriter{}, bytes.NewReader([]byte("abcdef")), 4)
	if !errors.Is(err, io.ErrShortWrite) {
		t.Errorf("expected io.ErrShortWrite, got %v", err)
	}
}

// Tests that every codec round-trips at the chunk boundary sizes
func TestCodecRoundTrip(t *testing.T) {
	sizes := []int{0, 1, DefaultChunkSize, DefaultChunkSize + 1, 2*DefaultChunkSize + 1}
	for _, name := range []string{Gzip, Zstd, None} {
		codec, err := CodecFor(name)
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if codec.Name() != name {
			t.Errorf("expected codec %s, got %s", name, codec.Name())
		}
		for _, size := range sizes {
			data := make([]byte, size)
			rand.Read(data)
			var stored bytes.Buffer
			w, err := codec.NewWriter(&stored)
			if err != nil {
				t.Fatalf("%s: unable to create writer: %s", name, err)
			}
			if _, err := Copy(context.Background(), w, bytes.NewReader(data), DefaultChunkSize); err != nil {
				t.Fatalf("%s: copy failed: %s", name, err)
			}
			if err := w.Close(); err != nil {
				t.Fatalf("%s: close failed: %s", name, err)
			}
			r, err := codec.NewReader(&stored)
			if err != nil {
				t.Fatalf("%s: unable to create reader: %s", name, err)
			}
			got, err := io.ReadAll(r)
			r.Close()
			if err != nil {
				t.Fatalf("%s: read failed: %s", name, err)
			}
			if !bytes.Equal(got, data) {
				t.Errorf("%s: round trip mismatch for size %d", name, size)
			}
		}
	}
}

func TestCodecFor(t *testing.T) {
	if c, err := CodecFor(""); err != nil || c.Name() != Gzip {
		t.Errorf("expected gzip default, got %v, %v", c, err)
	}
	if _, err := CodecFor("lz4"); err == nil {
		t.Errorf("expected error for unsupported codec")
	}
}
