package plddt

import (
	"fmt"
	"io"
	"strconv"
	"sync"
	"sync/atomic"
)

const reportEvery = 100 // print a progress line after this many files

// progress counts finished files. Every worker calls tick once per file,
// whether the file worked or not, so the count ends at total.
// Printing is serialised, but two workers can race between the increment
// and the lock, so "Processed 200" may come out before "Processed 100".
type progress struct {
	done  atomic.Int64
	total int64
	every int64
	mu    sync.Mutex
	w     io.Writer
}

func newProgress(w io.Writer, total, every int) *progress {
	return &progress{w: w, total: int64(total), every: int64(every)}
}

func (p *progress) tick() {
	done := p.done.Add(1)
	if p.every <= 0 || done%p.every != 0 {
		return
	}
	pct := 100 * float64(done) / float64(p.total)
	p.mu.Lock()
	fmt.Fprintf(p.w, "Processed %d/%d (%s%%)\n", done, p.total,
		strconv.FormatFloat(pct, 'g', 6, 64))
	p.mu.Unlock()
}

func (p *progress) count() int { return int(p.done.Load()) }
