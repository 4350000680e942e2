package plddt

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/Jeffail/tunny"
	"github.com/pbnjay/memory"
	"golang.org/x/sync/errgroup"
)

// Config is literally the command line after parsing.
type Config struct {
	InDir    string
	OutDir   string
	Cutoff   float64
	Threads  int    // <= 0 means one per available CPU
	Strict   bool   // six byte record names
	KeepDirs bool   // mirror the input tree instead of flattening
	Dynamic  bool   // hand out files one at a time instead of in ranges
	Gunzip   bool   // inflate gzipped inputs
	LogDest  string // see logWhere
}

// Env is where a run sends its output.
type Env struct {
	Stdout io.Writer   // progress lines
	Warn   *Warner     // per-file problems
	Log    *log.Logger // per-file debug lines
}

// Summary is the result of Run.
type Summary struct {
	Total       int
	Done        int // files finished, including the ones that failed
	Failed      int
	Workers     int
	Atoms       int64
	Dropped     int64
	Interrupted bool
}

type runner struct {
	opt      Options
	keepDirs bool
	env      Env
	prog     *progress
	failed   atomic.Int64
	atoms    atomic.Int64
	dropped  atomic.Int64
}

// process does one job. Errors stay here. They are printed and counted
// and the caller carries on.
func (r *runner) process(job Job) {
	defer r.prog.tick()
	if r.keepDirs {
		if err := os.MkdirAll(filepath.Dir(job.Out), 0o777); err != nil {
			r.fail(&FileError{Kind: WriteFailed, Path: job.Out, Err: err})
			return
		}
	}
	cnt, err := FilterFile(job, r.opt)
	if err != nil {
		r.fail(err)
		return
	}
	r.atoms.Add(int64(cnt.Atoms))
	r.dropped.Add(int64(cnt.Dropped))
	r.env.Log.Printf("%s lines %d atoms %d dropped %d", job.In, cnt.Lines, cnt.Atoms, cnt.Dropped)
}

func (r *runner) fail(err error) {
	r.failed.Add(1)
	r.env.Warn.Warn(err)
}

// nWorkers picks the number of workers. threads wins if it is positive,
// otherwise we take what the runtime will run in parallel. There is no
// point in more workers than jobs.
// Each worker holds an input and an output buffer, so the peak is about
// workers * 2 * largest file. If totalMem is known and this is more than
// half of it, we use fewer workers.
func nWorkers(threads int, jobs []Job, totalMem uint64, lg *log.Logger) int {
	n := runtime.GOMAXPROCS(0)
	if threads > 0 {
		n = threads
	}
	if len(jobs) > 0 && n > len(jobs) {
		n = len(jobs)
	}
	var largest int64
	for _, j := range jobs {
		if j.Size > largest {
			largest = j.Size
		}
	}
	if totalMem == 0 || largest == 0 {
		return n
	}
	budget := totalMem / 2
	perWorker := 2 * uint64(largest)
	if uint64(n)*perWorker > budget {
		m := int(budget / perWorker)
		if m < 1 {
			m = 1
		}
		lg.Printf("largest file %d bytes, memory %d bytes, workers %d -> %d", largest, totalMem, n, m)
		n = m
	}
	return n
}

// If we do not know the memory size, one inflated input may be this big.
const defaultInflateLimit = 1 << 30

// inflateLimit is the most one gunzipped input may grow to. nWorkers only
// sees sizes on disk, so the inflated text has to fit in what is left of
// a worker's share of half the memory, which also holds the output.
func inflateLimit(totalMem uint64, workers int) int64 {
	if totalMem == 0 {
		return defaultInflateLimit
	}
	if workers < 1 {
		workers = 1
	}
	return int64(totalMem / 2 / uint64(workers) / 2)
}

// Run filters every job and returns what happened. ctx is only looked at
// between files, so a file that was started is always finished.
func Run(ctx context.Context, jobs []Job, cfg *Config, env Env) Summary {
	if env.Log == nil {
		env.Log = log.New(io.Discard, "", 0)
	}
	totalMem := memory.TotalMemory()
	n := nWorkers(cfg.Threads, jobs, totalMem, env.Log)
	r := &runner{
		opt:      Options{Cutoff: cfg.Cutoff, Strict: cfg.Strict, Gunzip: cfg.Gunzip},
		keepDirs: cfg.KeepDirs,
		env:      env,
		prog:     newProgress(env.Stdout, len(jobs), reportEvery),
	}
	if cfg.Gunzip {
		r.opt.MaxInflate = inflateLimit(totalMem, n)
	}
	if len(jobs) > 0 {
		if cfg.Dynamic {
			runDynamic(ctx, jobs, n, r)
		} else {
			runStatic(ctx, jobs, n, r)
		}
	}
	return Summary{
		Total:       len(jobs),
		Done:        r.prog.count(),
		Failed:      int(r.failed.Load()),
		Workers:     n,
		Atoms:       r.atoms.Load(),
		Dropped:     r.dropped.Load(),
		Interrupted: ctx.Err() != nil && r.prog.count() < len(jobs),
	}
}

// runStatic splits the jobs into n contiguous ranges of nearly the same
// size and gives each range to one goroutine.
func runStatic(ctx context.Context, jobs []Job, n int, r *runner) {
	var g errgroup.Group
	for i := 0; i < n; i++ {
		part := jobs[i*len(jobs)/n : (i+1)*len(jobs)/n]
		g.Go(func() error {
			for _, job := range part {
				if err := ctx.Err(); err != nil {
					return err
				}
				r.process(job)
			}
			return nil
		})
	}
	g.Wait() // only ever the context error, which the caller looks at
}

// runDynamic hands jobs one at a time to a pool of n workers, so a
// worker that got small files takes more of them.
func runDynamic(ctx context.Context, jobs []Job, n int, r *runner) {
	pool := tunny.NewFunc(n, func(payload interface{}) interface{} {
		r.process(payload.(Job))
		return nil
	})
	defer pool.Close()

	feed := make(chan Job)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range feed {
				pool.Process(job)
			}
		}()
	}
loop:
	for _, job := range jobs {
		if ctx.Err() != nil {
			break
		}
		select {
		case feed <- job:
		case <-ctx.Done():
			break loop
		}
	}
	close(feed)
	wg.Wait()
}

// String is a one line description for the debug log.
func (s Summary) String() string {
	return fmt.Sprintf("files %d done %d failed %d workers %d atoms %d dropped %d",
		s.Total, s.Done, s.Failed, s.Workers, s.Atoms, s.Dropped)
}
