package plddt

import (
	"io"
	"log"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// a fakecloser lets us close whatever logWhere gave us, even when it
// was not a file.
type fakecloser struct{}

func (fakecloser) Close() error { return nil }

// logWhere decides where to send the per-file debug log.
// "" throws it away, "stdout" is standard output, anything else is a file
// we append to. The closer must be called when we are finished.
func logWhere(dest string) (*log.Logger, io.Closer, error) {
	var w io.Writer
	var c io.Closer = fakecloser{}
	switch dest {
	case "":
		w = io.Discard
	case "stdout":
		w = os.Stdout
	default:
		fp, err := os.OpenFile(dest, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, err
		}
		w, c = fp, fp
	}
	return log.New(w, "", log.Lshortfile), c, nil
}

// Warner prints problems with single files. It is safe for concurrent
// use and counts how often it was called.
type Warner struct {
	mu  sync.Mutex
	w   io.Writer
	c   *color.Color
	num int
}

// NewWarner sends warnings to w, in colour only if w is a terminal.
// color.NoColor is no use here since it is about stdout.
func NewWarner(w io.Writer) *Warner {
	c := color.New(color.FgYellow)
	if isTerminal(w) {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return &Warner{w: w, c: c}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok || os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (wr *Warner) Warn(err error) {
	wr.mu.Lock()
	defer wr.mu.Unlock()
	wr.num++
	wr.c.Fprintln(wr.w, "Warning:", err)
}

// N is the number of warnings so far.
func (wr *Warner) N() int {
	wr.mu.Lock()
	defer wr.mu.Unlock()
	return wr.num
}
