// Package zwrap looks at the start of a buffer or stream and decides if
// it is gzipped. People do compress AlphaFold files without renaming
// them, so a file called x.pdb may well be gzip data.
// Upon calling Close on a wrapped reader, the decompressor will be closed,
// followed by the underlying source.

package zwrap

import (
	"bytes"
	"errors"
	"io"

	"github.com/klauspost/compress/gzip"
)

// magic is the first two bytes of any gzip member (RFC 1952).
var magic = []byte{0x1f, 0x8b}

// IsGzip says if b starts like a gzip stream.
func IsGzip(b []byte) bool { return bytes.HasPrefix(b, magic) }

// ErrTooBig is returned when inflated data would go past the limit.
var ErrTooBig = errors.New("decompressed size over limit")

// ZReader is what we return. It reads decompressed bytes from src.
type ZReader struct {
	src  io.ReadCloser
	zrdr *gzip.Reader
}

func (z *ZReader) Read(p []byte) (int, error) { return z.zrdr.Read(p) }

// Close closes the decompressor, then the underlying source.
func (z *ZReader) Close() error {
	return errors.Join(z.zrdr.Close(), z.src.Close())
}

// Wrap takes a source, which must be gzipped, and returns a reader
// giving decompressed bytes.
func Wrap(src io.ReadCloser) (*ZReader, error) {
	zrdr, err := gzip.NewReader(src)
	if err != nil {
		return nil, err
	}
	return &ZReader{src: src, zrdr: zrdr}, nil
}

// Inflate decompresses a buffer that IsGzip accepted. sizeHint is a guess
// at the decompressed size and only affects the first allocation.
// If limit is positive and the output would be longer, we stop reading
// and return ErrTooBig, so a small file cannot blow up memory.
func Inflate(b []byte, sizeHint int, limit int64) ([]byte, error) {
	z, err := Wrap(io.NopCloser(bytes.NewReader(b)))
	if err != nil {
		return nil, err
	}
	defer z.Close()
	var r io.Reader = z
	if limit > 0 {
		if int64(sizeHint) > limit {
			sizeHint = int(limit)
		}
		r = io.LimitReader(z, limit+1)
	}
	out := bytes.NewBuffer(make([]byte, 0, sizeHint))
	if _, err := out.ReadFrom(r); err != nil {
		return nil, err
	}
	if limit > 0 && int64(out.Len()) > limit {
		return nil, ErrTooBig
	}
	return out.Bytes(), nil
}

// Maybe returns b untouched if it is not gzipped, and the decompressed
// contents if it is. limit is passed on to Inflate.
func Maybe(b []byte, limit int64) ([]byte, error) {
	if !IsGzip(b) {
		return b, nil
	}
	const ratioGuess = 4 // PDB text compresses about this well
	return Inflate(b, ratioGuess*len(b), limit)
}
