// Package record looks at single lines of a PDB file.
// PDB is a fixed column format. The record name lives in columns 1-6
// and for ATOM and HETATM records, the B-factor lives in columns 61-66.
// AlphaFold puts pLDDT in the B-factor column, so that is what we read.
// Nothing here allocates on the fast path. Lines are byte slices which
// point into somebody else's buffer.
package record

import (
	"strconv"
)

// Kind says what we should do with a line.
type Kind byte

const (
	Passthrough Kind = iota // Copy the line, do not look inside
	Atom                    // ATOM or HETATM, B-factor may be read
)

const (
	BfacCol = 60 // zero-based offset of the B-factor field
	MinLen  = 66 // a filterable line must be strictly longer than this
)

func (k Kind) String() string {
	if k == Atom {
		return "atom"
	}
	return "passthrough"
}

// Classify decides if a line is an atomic record. The line must be longer
// than MinLen and start with ATOM or HETA. The comparison is on raw bytes,
// no case folding and no leading white space.
// HETA also matches HETNAM and HETSYN. If strict is set, we compare six
// bytes against "ATOM  " and "HETATM", so those header records pass.
func Classify(line []byte, strict bool) Kind {
	if len(line) <= MinLen {
		return Passthrough
	}
	if strict {
		if string(line[:6]) == "ATOM  " || string(line[:6]) == "HETATM" {
			return Atom
		}
		return Passthrough
	}
	if string(line[:4]) == "ATOM" || string(line[:4]) == "HETA" {
		return Atom
	}
	return Passthrough
}

// maxExact is the largest integer mantissa a float64 holds exactly.
const maxExact = 1<<53 - 1

var pow10 = [...]float64{
	1e0, 1e1, 1e2, 1e3, 1e4, 1e5, 1e6, 1e7, 1e8, 1e9, 1e10, 1e11,
	1e12, 1e13, 1e14, 1e15, 1e16, 1e17, 1e18, 1e19, 1e20, 1e21, 1e22,
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// BFactor reads the number starting at BfacCol. It behaves like the C
// library atof, minus exponents. Leading white space is skipped, then an
// optional sign, digits, an optional '.' and more digits. It stops at the
// first byte that cannot be part of the number, since in PDB files fields
// often run into each other. No digits at all gives 0.
// The caller has to make sure the line is long enough. Classify does this.
func BFactor(line []byte) float64 {
	return ParsePrefix(line[BfacCol:])
}

// ParsePrefix is the parser behind BFactor, working on a whole slice.
func ParsePrefix(b []byte) float64 {
	i := 0
	for i < len(b) && isSpace(b[i]) {
		i++
	}
	start := i
	neg := false
	if i < len(b) && (b[i] == '+' || b[i] == '-') {
		neg = b[i] == '-'
		i++
	}
	var mant uint64
	ndigit, nfrac := 0, 0
	exact := true
	for ; i < len(b) && isDigit(b[i]); i++ {
		ndigit++
		if mant > (maxExact-9)/10 {
			exact = false
		}
		mant = mant*10 + uint64(b[i]-'0')
	}
	if i < len(b) && b[i] == '.' {
		i++
		for ; i < len(b) && isDigit(b[i]); i++ {
			ndigit++
			nfrac++
			if mant > (maxExact-9)/10 {
				exact = false
			}
			mant = mant*10 + uint64(b[i]-'0')
		}
	}
	if ndigit == 0 {
		return 0
	}
	if exact && nfrac < len(pow10) {
		f := float64(mant) / pow10[nfrac]
		if neg {
			f = -f
		}
		return f
	}
	// Long mantissa. ParseFloat rounds correctly and saturates to
	// +/-Inf on overflow, the error is of no interest.
	f, _ := strconv.ParseFloat(string(b[start:i]), 64)
	return f
}
