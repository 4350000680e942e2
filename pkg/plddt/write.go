package plddt

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// writeAtomic puts b into fname in one write. The bytes go to a
// temporary file next to fname which is then renamed, so nobody ever
// sees half a file under the real name. If anything breaks, the
// temporary file is removed.
func writeAtomic(fname string, b []byte) error {
	dir, base := filepath.Split(fname)
	tmp := filepath.Join(dir, "."+base+"."+uuid.New().String()+".tmp")
	fp, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o666)
	if err != nil {
		return &FileError{Kind: WriteFailed, Path: fname, Err: err}
	}
	_, err = fp.Write(b)
	if e := fp.Close(); err == nil {
		err = e
	}
	if err == nil {
		err = os.Rename(tmp, fname)
	}
	if err != nil {
		os.Remove(tmp)
		return &FileError{Kind: WriteFailed, Path: fname, Err: err}
	}
	return nil
}
