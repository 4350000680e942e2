// 17 Oct 2026
// filter_plddt removes low pLDDT atoms from a directory tree of
// AlphaFold PDB files.

package main

import (
	"os"

	"github.com/Rdwayaz/filter-pLDDT/pkg/plddt"
)

func main() {
	os.Exit(plddt.Mymain(os.Args[1:], os.Stdout, os.Stderr))
}
