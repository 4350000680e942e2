package plddt

import (
	"io"
	"os"
)

// Export some internal functions for testing

var (
	NWorkers     = nWorkers
	WriteAtomic  = writeAtomic
	LogWhere     = logWhere
	ParseArgs    = parseArgs
	ErrUsage     = errUsage
	InflateLimit = inflateLimit
)

const ReportEvery = reportEvery

// ReadPath makes slurp skip mmap and read through wrap. The returned
// function puts things back.
func ReadPath(wrap func(fp *os.File) io.Reader) (restore func()) {
	oldMmap, oldReader := useMmap, newReader
	useMmap = false
	if wrap != nil {
		newReader = wrap
	}
	return func() { useMmap, newReader = oldMmap, oldReader }
}

// Slurp returns a copy of what slurp reads.
func Slurp(fname string) ([]byte, error) {
	fb, err := slurp(fname)
	if err != nil {
		return nil, err
	}
	defer fb.release()
	return append([]byte{}, fb.data...), nil
}

type Progress = progress

var NewProgress = newProgress

func (p *progress) Tick()      { p.tick() }
func (p *progress) Count() int { return p.count() }

// FilterShrunk maps fname, cuts the file to nothing and then filters
// what is still mapped. mapped is false if slurp did not use mmap.
func FilterShrunk(fname string, opt Options) (mapped bool, err error) {
	fb, err := slurp(fname)
	if err != nil {
		return false, err
	}
	defer fb.release()
	if err := os.Truncate(fname, 0); err != nil {
		return fb.mm != nil, err
	}
	_, _, err = filterBuf(fb.data, fname, opt)
	return fb.mm != nil, err
}
