// An error implementation that saves what we were doing to which file.
// A worker never passes errors upwards. They are printed and the file is
// skipped, so the message has to say everything.

package plddt

import (
	"errors"
	"io/fs"
)

// ErrKind says which stage of the per-file work broke.
type ErrKind byte

const (
	OpenFailed ErrKind = iota + 1
	ReadFailed
	WriteFailed
)

// Sentinels for errors.Is. A *FileError matches the one for its kind.
var (
	ErrOpen      = errors.New("open failed")
	ErrRead      = errors.New("read failed")
	ErrWrite     = errors.New("write failed")
	ErrInputRoot = errors.New("input directory missing")
)

func (k ErrKind) String() string {
	switch k {
	case OpenFailed:
		return "opening"
	case ReadFailed:
		return "reading"
	case WriteFailed:
		return "writing"
	}
	return "working on"
}

func (k ErrKind) sentinel() error {
	switch k {
	case OpenFailed:
		return ErrOpen
	case ReadFailed:
		return ErrRead
	case WriteFailed:
		return ErrWrite
	}
	return nil
}

type FileError struct {
	Kind ErrKind
	Path string // the file we were opening, reading or writing
	Err  error
}

// Error gives "reading /some/file.pdb: unexpected EOF". If the cause is
// a PathError, we drop its copy of the path.
func (e *FileError) Error() string {
	err := e.Err
	var pe *fs.PathError
	if errors.As(err, &pe) {
		err = pe.Err
	}
	return e.Kind.String() + " " + e.Path + ": " + err.Error()
}

func (e *FileError) Unwrap() error { return e.Err }

func (e *FileError) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}
