package plddt

import (
	"io"
	"os"

	"github.com/edsrzf/mmap-go"
)

// A fileBuf holds the complete contents of one input file. If mm is
// set, data is a read-only mapping and must be released with unmap.
type fileBuf struct {
	data []byte
	mm   mmap.MMap
}

func (fb *fileBuf) release() error {
	if fb.mm == nil {
		return nil
	}
	err := fb.mm.Unmap()
	fb.mm, fb.data = nil, nil
	return err
}

// Hooks so tests can force the read path and break it.
var (
	useMmap   = true
	newReader = func(fp *os.File) io.Reader { return fp }
)

// slurp gets a whole file in one go. We look at the size, then map the
// file. If the mapping fails (some file systems, special files), we
// allocate a buffer of exactly that size and read once.
// Empty files give an empty buffer, since one cannot map zero bytes.
// A mapped file that shrinks later faults on access. filterBuf catches that.
func slurp(fname string) (*fileBuf, error) {
	fp, err := os.Open(fname)
	if err != nil {
		return nil, &FileError{Kind: OpenFailed, Path: fname, Err: err}
	}
	defer fp.Close()
	fi, err := fp.Stat()
	if err != nil {
		return nil, &FileError{Kind: ReadFailed, Path: fname, Err: err}
	}
	size := fi.Size()
	if size == 0 {
		return &fileBuf{}, nil
	}
	if useMmap {
		if mm, err := mmap.Map(fp, mmap.RDONLY, 0); err == nil {
			return &fileBuf{data: mm, mm: mm}, nil
		}
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(newReader(fp), buf); err != nil {
		return nil, &FileError{Kind: ReadFailed, Path: fname, Err: err}
	}
	return &fileBuf{data: buf}, nil
}
