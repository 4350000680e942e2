// Package common has the exit codes shared by the commands and a
// helper for writing test input.

package common

import (
	"fmt"
	"os"
)

const (
	ExitSuccess = iota
	ExitFailure
)

// WrtTemp writes a string to a file called name inside dir and returns
// the full path. If dir is "", a temporary directory is made. It is used
// all over the place in testing.
func WrtTemp(dir, name, s string) (string, error) {
	if dir == "" {
		var err error
		if dir, err = os.MkdirTemp("", "_del_me_testing"); err != nil {
			return "", fmt.Errorf("tempdir fail: %w", err)
		}
	}
	fname := dir + string(os.PathSeparator) + name
	if err := os.WriteFile(fname, []byte(s), 0o644); err != nil {
		return "", fmt.Errorf("writing string to temp file %v: %w", fname, err)
	}
	return fname, nil
}
