// 17 Oct 2026

// Package plddt removes low confidence atoms from AlphaFold PDB files.
// AlphaFold writes pLDDT into the B-factor column. Lines for atoms whose
// value is below a cutoff are dropped, everything else is copied.
// Whole directories of files are done in parallel, one file per worker
// at a time. Within a file we go line by line.
package plddt

import (
	"bytes"
	"runtime/debug"

	"github.com/Rdwayaz/filter-pLDDT/pdb/record"
	"github.com/Rdwayaz/filter-pLDDT/pdb/zwrap"
)

// Job is one input file and where its filtered copy goes.
type Job struct {
	In   string
	Out  string
	Size int64 // input size in bytes, used for the memory estimate
}

// Counts says what happened to the lines of one file.
type Counts struct {
	Lines   int // every line, including a last one without newline
	Atoms   int // lines which were classified as ATOM/HETATM
	Dropped int // atoms with B-factor below the cutoff
}

// Options are the per-file settings.
type Options struct {
	Cutoff     float64
	Strict     bool  // six byte record names, see record.Classify
	Gunzip     bool  // inflate inputs that start with the gzip magic
	MaxInflate int64 // most bytes one inflated input may have, <= 0 for no limit
}

// Filter walks src line by line and appends the lines we keep to dst,
// each followed by exactly one '\n'. A line is dropped only if it is an
// atom record and its B-factor is strictly less than cutoff, so a value
// equal to the cutoff is kept.
// A last line without a newline gets one. A '\r' before the newline is
// treated as part of the line and copied.
func Filter(dst, src []byte, cutoff float64, strict bool) ([]byte, Counts) {
	var c Counts
	for pos := 0; pos < len(src); {
		end := bytes.IndexByte(src[pos:], '\n')
		if end < 0 {
			end = len(src)
		} else {
			end += pos
		}
		line := src[pos:end]
		c.Lines++
		keep := true
		if record.Classify(line, strict) == record.Atom {
			c.Atoms++
			if record.BFactor(line) < cutoff {
				keep = false
				c.Dropped++
			}
		}
		if keep {
			dst = append(dst, line...)
			dst = append(dst, '\n')
		}
		pos = end + 1
	}
	return dst, c
}

// FilterFile reads job.In completely, filters it and writes job.Out.
// Nothing is written unless the whole input was read and parsed.
// Errors are always a *FileError.
func FilterFile(job Job, opt Options) (Counts, error) {
	fb, err := slurp(job.In)
	if err != nil {
		return Counts{}, err
	}
	defer fb.release()
	out, cnt, err := filterBuf(fb.data, job.In, opt)
	if err != nil {
		return Counts{}, err
	}
	if err := writeAtomic(job.Out, out); err != nil {
		return cnt, err
	}
	return cnt, nil
}

// filterBuf does the work of FilterFile once the input is in memory.
// If data is a mapping and the file shrinks under us, touching the lost
// pages faults. The fault becomes a panic here and then a read error for
// this one file.
func filterBuf(data []byte, path string, opt Options) (out []byte, cnt Counts, err error) {
	defer debug.SetPanicOnFault(debug.SetPanicOnFault(true))
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		fault, ok := r.(interface {
			error
			Addr() uintptr
		})
		if !ok {
			panic(r)
		}
		out, cnt, err = nil, Counts{}, &FileError{Kind: ReadFailed, Path: path, Err: fault}
	}()
	src := data
	if opt.Gunzip {
		if src, err = zwrap.Maybe(data, opt.MaxInflate); err != nil {
			return nil, Counts{}, &FileError{Kind: ReadFailed, Path: path, Err: err}
		}
	}
	// Filtering only removes lines. The +1 is for a missing final newline.
	out, cnt = Filter(make([]byte, 0, len(src)+1), src, opt.Cutoff, opt.Strict)
	return out, cnt, nil
}
