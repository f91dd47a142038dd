// Package stream copies archive entries to storage through a fixed-size buffer
// so memory use does not depend on the size of the entry, optionally passing
// the data through a compression codec on the way.
package stream

import (
	"context"
	"io"
)

// DefaultChunkSize is the copy buffer size used when none is configured.
const DefaultChunkSize = 4096

// Copy copies 'src' to 'dst' one chunk at a time using a single buffer of
// 'chunkSize' bytes (DefaultChunkSize if not positive). The context is checked
// before every chunk so a long copy can be abandoned between chunks. Returns the
// number of bytes written.
func Copy(ctx context.Context, dst io.Writer, src io.Reader, chunkSize int) (int64, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	buf := make([]byte, chunkSize)
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		nr, rerr := src.Read(buf)
		if nr > 0 {
			nw, werr := dst.Write(buf[:nr])
			written += int64(nw)
			if werr != nil {
				return written, werr
			}
			if nw != nr {
				return written, io.ErrShortWrite
			}
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, rerr
		}
	}
}
