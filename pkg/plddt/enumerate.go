package plddt

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const pdbSuffix = ".pdb" // case matters, x.PDB is not picked up

// Input is a file found under the input root.
type Input struct {
	Path string // as found, starting with the root
	Rel  string // relative to the root
	Size int64
}

// Enumerate walks root and returns every regular file whose name ends in
// ".pdb". Symbolic links are not followed and not returned. A
// subdirectory we cannot read is reported to wr and skipped. The order is
// whatever the walk gives us.
func Enumerate(root string, wr *Warner) ([]Input, error) {
	fi, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInputRoot, err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrInputRoot, root)
	}
	var inputs []Input
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			wr.Warn(fmt.Errorf("skipping %s: %w", path, err))
			return nil
		}
		if !d.Type().IsRegular() || !strings.HasSuffix(d.Name(), pdbSuffix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			wr.Warn(fmt.Errorf("skipping %s: %w", path, err))
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = d.Name()
		}
		inputs = append(inputs, Input{Path: path, Rel: rel, Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInputRoot, err)
	}
	return inputs, nil
}

// Plan turns inputs into jobs. Normally every output goes straight into
// outDir under the input's base name, so two inputs called a.pdb in
// different subdirectories write the same output and the last one wins.
// With keepDirs, the layout below the input root is kept.
func Plan(inputs []Input, outDir string, keepDirs bool) []Job {
	jobs := make([]Job, len(inputs))
	for i, in := range inputs {
		out := filepath.Join(outDir, filepath.Base(in.Path))
		if keepDirs {
			out = filepath.Join(outDir, in.Rel)
		}
		jobs[i] = Job{In: in.Path, Out: out, Size: in.Size}
	}
	return jobs
}
