package plddt_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/fatih/color"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/Rdwayaz/filter-pLDDT/pkg/plddt"
)

// makeTree writes n files spread over a few subdirectories of a new
// directory, plus some things which must not be picked up.
func makeTree(t *testing.T, n int) string {
	t.Helper()
	root := t.TempDir()
	for i := 0; i < n; i++ {
		dir := filepath.Join(root, fmt.Sprintf("d%d", i%4), fmt.Sprintf("e%d", i%3))
		require.NoError(t, os.MkdirAll(dir, 0o755))
		name := filepath.Join(dir, fmt.Sprintf("AF-%05d.pdb", i))
		require.NoError(t, os.WriteFile(name, []byte(mixed), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "UPPER.PDB"), []byte(mixed), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "x.pdb.gz"), []byte(mixed), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "dir.pdb"), 0o755))
	return root
}

func TestEnumerate(t *testing.T) {
	root := makeTree(t, 10)
	target := filepath.Join(root, "d0", "e0", "AF-00000.pdb")
	if err := os.Symlink(target, filepath.Join(root, "link.pdb")); err != nil {
		t.Log("no symlinks here:", err)
	}
	var warn bytes.Buffer
	inputs, err := Enumerate(root, NewWarner(&warn))
	require.NoError(t, err)
	assert.Len(t, inputs, 10)
	assert.Empty(t, warn.String())
	for _, in := range inputs {
		assert.True(t, strings.HasSuffix(in.Path, ".pdb"))
		assert.Equal(t, filepath.Join(root, in.Rel), in.Path)
		assert.Equal(t, int64(len(mixed)), in.Size)
	}
}

func TestEnumerateMissingRoot(t *testing.T) {
	_, err := Enumerate("/does/not/exist", NewWarner(io.Discard))
	assert.ErrorIs(t, err, ErrInputRoot)

	fname := filepath.Join(t.TempDir(), "f.pdb")
	require.NoError(t, os.WriteFile(fname, nil, 0o644))
	_, err = Enumerate(fname, NewWarner(io.Discard))
	assert.ErrorIs(t, err, ErrInputRoot)
}

func TestPlan(t *testing.T) {
	inputs := []Input{
		{Path: "in/a/x.pdb", Rel: "a/x.pdb", Size: 3},
		{Path: "in/b/x.pdb", Rel: "b/x.pdb", Size: 4},
	}
	flat := Plan(inputs, "out", false)
	assert.Equal(t, []Job{
		{In: "in/a/x.pdb", Out: filepath.Join("out", "x.pdb"), Size: 3},
		{In: "in/b/x.pdb", Out: filepath.Join("out", "x.pdb"), Size: 4},
	}, flat)
	tree := Plan(inputs, "out", true)
	assert.Equal(t, filepath.Join("out", "a", "x.pdb"), tree[0].Out)
	assert.Equal(t, filepath.Join("out", "b", "x.pdb"), tree[1].Out)
}

func runTree(t *testing.T, n int, cfg *Config) (Summary, string, string) {
	t.Helper()
	root := makeTree(t, n)
	cfg.InDir, cfg.OutDir = root, t.TempDir()
	var stdout, stderr bytes.Buffer
	wr := NewWarner(&stderr)
	inputs, err := Enumerate(root, wr)
	require.NoError(t, err)
	jobs := Plan(inputs, cfg.OutDir, cfg.KeepDirs)
	sum := Run(context.Background(), jobs, cfg, Env{Stdout: &stdout, Warn: wr})
	return sum, stdout.String(), stderr.String()
}

func TestRun(t *testing.T) {
	for _, dynamic := range []bool{false, true} {
		cfg := &Config{Cutoff: 50, Threads: 4, Dynamic: dynamic}
		sum, stdout, stderr := runTree(t, 250, cfg)
		assert.Equal(t, 250, sum.Total)
		assert.Equal(t, 250, sum.Done)
		assert.Zero(t, sum.Failed)
		assert.False(t, sum.Interrupted)
		assert.Equal(t, int64(500), sum.Atoms)
		assert.Equal(t, int64(250), sum.Dropped)
		assert.Empty(t, stderr)

		lines := strings.Split(strings.TrimSpace(stdout), "\n")
		sort.Strings(lines)
		assert.Equal(t, []string{"Processed 100/250 (40%)", "Processed 200/250 (80%)"}, lines)

		ents, err := os.ReadDir(cfg.OutDir)
		require.NoError(t, err)
		assert.Len(t, ents, 250)
		for _, e := range ents {
			got, err := os.ReadFile(filepath.Join(cfg.OutDir, e.Name()))
			require.NoError(t, err)
			assert.Equal(t, mixedOut, string(got))
		}
	}
}

func TestRunKeepDirs(t *testing.T) {
	cfg := &Config{Cutoff: 50, Threads: 3, KeepDirs: true}
	sum, _, _ := runTree(t, 24, cfg)
	assert.Equal(t, 24, sum.Done)
	var n int
	filepath.WalkDir(cfg.OutDir, func(path string, d os.DirEntry, err error) error {
		if err == nil && d.Type().IsRegular() {
			n++
		}
		return nil
	})
	assert.Equal(t, 24, n)
	_, err := os.Stat(filepath.Join(cfg.OutDir, "d1", "e1", "AF-00001.pdb"))
	assert.NoError(t, err)
}

// TestRunCollision has two inputs with the same name. Without keepdirs
// there is one output and it is complete.
func TestRunCollision(t *testing.T) {
	root := t.TempDir()
	for _, d := range []string{"a", "b"} {
		require.NoError(t, os.Mkdir(filepath.Join(root, d), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(root, d, "x.pdb"), []byte(mixed), 0o644))
	}
	outdir := t.TempDir()
	inputs, err := Enumerate(root, NewWarner(io.Discard))
	require.NoError(t, err)
	sum := Run(context.Background(), Plan(inputs, outdir, false), &Config{Cutoff: 50, Threads: 2},
		Env{Stdout: io.Discard, Warn: NewWarner(io.Discard)})
	assert.Equal(t, 2, sum.Done)
	ents, _ := os.ReadDir(outdir)
	require.Len(t, ents, 1)
	got, _ := os.ReadFile(filepath.Join(outdir, "x.pdb"))
	assert.Equal(t, mixedOut, string(got))
}

func TestRunFailuresCounted(t *testing.T) {
	outdir := t.TempDir()
	in := filepath.Join(t.TempDir(), "ok.pdb")
	require.NoError(t, os.WriteFile(in, []byte(mixed), 0o644))
	jobs := []Job{
		{In: "/does/not/exist.pdb", Out: filepath.Join(outdir, "exist.pdb")},
		{In: in, Out: filepath.Join(outdir, "ok.pdb")},
	}
	var stderr, dbg bytes.Buffer
	wr := NewWarner(&stderr)
	sum := Run(context.Background(), jobs, &Config{Cutoff: 50, Threads: 1},
		Env{Stdout: io.Discard, Warn: wr, Log: log.New(&dbg, "", 0)})
	assert.Equal(t, 2, sum.Done)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 1, wr.N())
	assert.Contains(t, stderr.String(), "opening /does/not/exist.pdb")
	assert.Contains(t, dbg.String(), "ok.pdb lines 4 atoms 2 dropped 1")
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, dynamic := range []bool{false, true} {
		outdir := t.TempDir()
		var jobs []Job
		for i := 0; i < 50; i++ {
			jobs = append(jobs, Job{In: "/nope.pdb", Out: filepath.Join(outdir, "nope.pdb")})
		}
		sum := Run(ctx, jobs, &Config{Threads: 4, Dynamic: dynamic},
			Env{Stdout: io.Discard, Warn: NewWarner(io.Discard)})
		assert.True(t, sum.Interrupted)
		assert.Zero(t, sum.Done)
	}
}

func TestRunNothing(t *testing.T) {
	sum := Run(context.Background(), nil, &Config{}, Env{Stdout: io.Discard, Warn: NewWarner(io.Discard)})
	assert.Zero(t, sum.Total)
	assert.False(t, sum.Interrupted)
}

func TestNWorkers(t *testing.T) {
	lg := log.New(io.Discard, "", 0)
	jobs := func(n int, size int64) []Job {
		j := make([]Job, n)
		for i := range j {
			j[i].Size = size
		}
		return j
	}
	dflt := runtime.GOMAXPROCS(0)
	assert.Equal(t, 3, NWorkers(3, jobs(10, 1), 0, lg))
	assert.Equal(t, 2, NWorkers(8, jobs(2, 1), 0, lg))
	assert.Equal(t, min(dflt, 1000), NWorkers(0, jobs(1000, 1), 0, lg))
	assert.Equal(t, min(dflt, 1000), NWorkers(-5, jobs(1000, 1), 0, lg))
	assert.Equal(t, 2, NWorkers(8, jobs(10, 100), 1000, lg), "memory cap")
	assert.Equal(t, 1, NWorkers(8, jobs(10, 1000), 100, lg), "never below one")
	assert.Equal(t, 8, NWorkers(8, jobs(10, 100), 1<<40, lg), "plenty of memory")
}

func TestInflateLimit(t *testing.T) {
	assert.Equal(t, int64(1<<30), InflateLimit(0, 4), "memory unknown")
	assert.Equal(t, int64(1000), InflateLimit(16000, 4))
	assert.Equal(t, int64(4000), InflateLimit(16000, 0))
}

// TestRunGunzip has a gzipped input, which is only decompressed with
// Gunzip set. Otherwise it is copied like any other file.
func TestRunGunzip(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	io.WriteString(zw, mixed)
	require.NoError(t, zw.Close())
	in := filepath.Join(t.TempDir(), "z.pdb")
	require.NoError(t, os.WriteFile(in, buf.Bytes(), 0o644))
	for _, gunzip := range []bool{false, true} {
		out := filepath.Join(t.TempDir(), "z.pdb")
		sum := Run(context.Background(), []Job{{In: in, Out: out, Size: int64(buf.Len())}},
			&Config{Cutoff: 50, Threads: 1, Gunzip: gunzip},
			Env{Stdout: io.Discard, Warn: NewWarner(io.Discard)})
		assert.Zero(t, sum.Failed)
		got, err := os.ReadFile(out)
		require.NoError(t, err)
		if gunzip {
			assert.Equal(t, mixedOut, string(got))
		} else {
			assert.True(t, bytes.HasPrefix(got, buf.Bytes()), "gzip bytes should be copied")
		}
	}
}

// TestWarnerPlain pretends stdout is a terminal. Warnings going somewhere
// else must still come out without escape codes.
func TestWarnerPlain(t *testing.T) {
	old := color.NoColor
	color.NoColor = false
	defer func() { color.NoColor = old }()

	var buf bytes.Buffer
	NewWarner(&buf).Warn(errors.New("bad file"))
	assert.Equal(t, "Warning: bad file\n", buf.String())

	fname := filepath.Join(t.TempDir(), "err.log")
	fp, err := os.Create(fname)
	require.NoError(t, err)
	NewWarner(fp).Warn(errors.New("bad file"))
	require.NoError(t, fp.Close())
	b, err := os.ReadFile(fname)
	require.NoError(t, err)
	assert.Equal(t, "Warning: bad file\n", string(b))
}

// TestProgress hammers the counter from many goroutines. The count has
// to come out right and every report has to be a whole line.
func TestProgress(t *testing.T) {
	var out bytes.Buffer
	const total = 1000
	p := NewProgress(&out, total, ReportEvery)
	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < total/10; i++ {
				p.Tick()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, total, p.Count())
	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.Len(t, lines, total/ReportEvery)
	sort.Slice(lines, func(i, j int) bool { return len(lines[i]) < len(lines[j]) || (len(lines[i]) == len(lines[j]) && lines[i] < lines[j]) })
	assert.Equal(t, "Processed 100/1000 (10%)", lines[0])
	assert.Equal(t, "Processed 1000/1000 (100%)", lines[len(lines)-1])
}

func TestProgressPercent(t *testing.T) {
	var out bytes.Buffer
	p := NewProgress(&out, 300, ReportEvery)
	for i := 0; i < 100; i++ {
		p.Tick()
	}
	assert.Equal(t, "Processed 100/300 (33.3333%)\n", out.String())
}

func TestLogWhere(t *testing.T) {
	lg, c, err := LogWhere("")
	require.NoError(t, err)
	lg.Println("thrown away")
	assert.NoError(t, c.Close())

	fname := filepath.Join(t.TempDir(), "log.txt")
	lg, c, err = LogWhere(fname)
	require.NoError(t, err)
	lg.Println("kept")
	require.NoError(t, c.Close())
	b, err := os.ReadFile(fname)
	require.NoError(t, err)
	assert.Contains(t, string(b), "kept")

	_, _, err = LogWhere(filepath.Join(t.TempDir(), "no", "dir", "log.txt"))
	assert.Error(t, err)
}
