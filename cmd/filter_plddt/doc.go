// 17 Oct 2026
/*

filter_plddt removes atoms with low pLDDT from AlphaFold models in PDB format.

AlphaFold writes its per-residue confidence, pLDDT, into the B-factor column (columns 61-66) of ATOM and HETATM records. Every ATOM/HETATM line whose value is below the cutoff is dropped. Every other line is copied as it is.

Usage:
 filter_plddt [options] input_dir output_dir cutoff [threads]
 filter_plddt -h

Flags:
  -dynamic
    	Give files to workers one at a time. Without this, the list of
    	files is cut into one piece per worker.
  -keepdirs
    	Write output below output_dir with the same subdirectories as
    	under input_dir.
  -l filename
    	Write a line for each file (number of lines, atoms, atoms
    	dropped) to filename. "stdout" means standard output.
  -strict
    	Only treat lines starting with "ATOM  " or "HETATM" as atoms.
    	Without this, the first four characters are checked, so HETNAM
    	and HETSYN lines longer than 66 characters are also filtered.
  -z
    	If a .pdb file is really gzip data, decompress it first. Without
    	this, the bytes are filtered as they are. A file that would
    	decompress to more than its share of memory is skipped.

All files under input_dir whose names end in ".pdb" are read, including subdirectories. Symbolic links are ignored. Without -keepdirs, output goes straight into output_dir, so if two subdirectories both have a file called model.pdb, one will overwrite the other.

A line is only dropped if it is longer than 66 characters, starts with ATOM or HETA and the number starting at column 61 is less than the cutoff. A value equal to the cutoff is kept. Short lines are always kept.

Output always uses '\n' after every line, including the last. Carriage returns from DOS files are left where they are.

Output files are written under a temporary name and renamed when complete. If the program is interrupted, files being worked on are finished and no more are started.

A progress line is printed every 100 files. With many threads, these lines can come out of order.

If threads is missing or not positive, one thread per CPU is used. If the biggest file times the number of threads looks like more than half of the machine's memory, fewer threads are used.

*/
package main
