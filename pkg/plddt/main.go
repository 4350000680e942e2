package plddt

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/Rdwayaz/filter-pLDDT/pkg/common"
)

const progName = "filter_plddt"

const helpText = `filter_plddt

Description:
  Removes residues from AlphaFold PDB structures where pLDDT (stored in B-factor column)
  is below the specified cutoff.

Usage:
  filter_plddt [options] <input_dir> <output_dir> <cutoff> [threads]

Arguments:
  input_dir   Directory containing PDB files, searched recursively for *.pdb
  output_dir  Directory where filtered PDB files will be written (created if needed)
  cutoff      pLDDT threshold, e.g. 50. Atoms with pLDDT below this are removed.
  threads     Optional number of threads to use

Options:
  -strict     Only filter records named exactly "ATOM  " or "HETATM"
  -keepdirs   Keep the directory layout below input_dir
  -dynamic    Hand out files one at a time instead of in fixed ranges
  -z          Decompress input files that are really gzip data
  -l file     Write per-file details to file ("stdout" for standard output)

Example:
  filter_plddt af_models filtered_models 50 112

Notes:
  pLDDT values are read from columns 61-66 of ATOM/HETATM records.
  Output files are flattened into output_dir. Files with the same name in
  different subdirectories overwrite each other unless -keepdirs is given.
  Without -z every file is treated as text, even if it is gzip data.
  With -z such files are decompressed and the output is plain text.
`

const usageHint = "Usage: " + progName + " [options] <input_dir> <output_dir> <cutoff> [threads]\n Use -h for help.\n"

var errUsage = errors.New("invalid arguments")

// parseArgs fills a Config from the command line, without the program
// name. flag.ErrHelp comes back if help was asked for.
func parseArgs(args []string) (*Config, error) {
	var cfg Config
	flags := flag.NewFlagSet(progName, flag.ContinueOnError)
	flags.SetOutput(io.Discard) // we print errors ourselves
	flags.Usage = func() {}
	flags.BoolVar(&cfg.Strict, "strict", false, "six byte record names")
	flags.BoolVar(&cfg.KeepDirs, "keepdirs", false, "keep directory layout")
	flags.BoolVar(&cfg.Dynamic, "dynamic", false, "dynamic scheduling")
	flags.BoolVar(&cfg.Gunzip, "z", false, "decompress gzipped input")
	flags.StringVar(&cfg.LogDest, "l", "", "per-file log destination")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", errUsage, err)
	}
	pos := flags.Args()
	if len(pos) < 3 || len(pos) > 4 {
		return nil, fmt.Errorf("%w: got %d arguments, expected 3 or 4", errUsage, len(pos))
	}
	cfg.InDir, cfg.OutDir = pos[0], pos[1]
	cutoff, err := strconv.ParseFloat(pos[2], 64)
	if err != nil || math.IsNaN(cutoff) {
		return nil, fmt.Errorf("%w: cutoff %q is not a number", errUsage, pos[2])
	}
	cfg.Cutoff = cutoff
	if len(pos) == 4 {
		if cfg.Threads, err = strconv.Atoi(pos[3]); err != nil {
			return nil, fmt.Errorf("%w: threads %q is not an integer", errUsage, pos[3])
		}
	}
	return &cfg, nil
}

// Mymain is the top level main, after the program name has been taken
// off the arguments. It returns the exit code.
func Mymain(args []string, stdout, stderr io.Writer) int {
	cfg, err := parseArgs(args)
	if errors.Is(err, flag.ErrHelp) {
		fmt.Fprint(stdout, helpText)
		return common.ExitSuccess
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		fmt.Fprint(stderr, usageHint)
		return common.ExitFailure
	}
	lg, lgClose, err := logWhere(cfg.LogDest)
	if err != nil {
		fmt.Fprintln(stderr, "creating log file:", err)
		return common.ExitFailure
	}
	defer lgClose.Close()

	wr := NewWarner(stderr)
	inputs, err := Enumerate(cfg.InDir, wr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return common.ExitFailure
	}
	if err := os.MkdirAll(cfg.OutDir, 0o777); err != nil {
		fmt.Fprintln(stderr, "creating output directory:", err)
		return common.ExitFailure
	}
	fmt.Fprintf(stdout, "Found %d PDB files\n", len(inputs))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	jobs := Plan(inputs, cfg.OutDir, cfg.KeepDirs)
	sum := Run(ctx, jobs, cfg, Env{Stdout: stdout, Warn: wr, Log: lg})
	lg.Println(sum)

	if sum.Interrupted {
		fmt.Fprintf(stderr, "Interrupted after %d of %d files\n", sum.Done, sum.Total)
	} else {
		fmt.Fprintf(stdout, "Completed processing %d files\n", sum.Total)
	}
	if sum.Failed > 0 {
		fmt.Fprintf(stderr, "%d files skipped\n", sum.Failed)
	}
	return common.ExitSuccess
}
