// elassemble: a high-performance de novo genome assembler.
// Copyright (c) 2020 imec vzw.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version, and Additional Terms
// (see below).

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License and Additional Terms along with this program. If not, see
// <https://github.com/ExaScience/elassemble/blob/master/LICENSE.txt>.

package scaffold

import (
	"bufio"
	"fmt"
	"io"

	"github.com/exascience/elassemble/contig"
)

// WriteAGP describes scaffolds in AGP 2.0 format: one W line for
// every contig, and one N line for every gap of unknown bases.
func WriteAGP(w io.Writer, scaffolds []Scaffold, scaffoldNames, contigNames []string, contigs []contig.Contig) error {
	if len(scaffoldNames) != len(scaffolds) || len(contigNames) != len(contigs) {
		return fmt.Errorf("%v names for %v scaffolds and %v names for %v contigs",
			len(scaffoldNames), len(scaffolds), len(contigNames), len(contigs))
	}
	out := bufio.NewWriter(w)
	fmt.Fprintln(out, "##agp-version\t2.0")
	for i, s := range scaffolds {
		object := scaffoldNames[i]
		objectBeg, partNumber := 1, 0
		for _, p := range s.Parts {
			if p.Gap > 0 {
				partNumber++
				fmt.Fprintf(out, "%s\t%d\t%d\t%d\t%c\t%d\t%s\t%s\t%s\n",
					object, objectBeg, objectBeg+p.Gap-1, partNumber,
					'N', p.Gap, "scaffold", "yes", "paired-ends")
				objectBeg += p.Gap
			}
			length := len(contigs[p.Contig].Sequence)
			componentBeg, componentEnd, strand := 1+p.Overlap, length, '+'
			if !p.Forward {
				componentBeg, componentEnd, strand = 1, length-p.Overlap, '-'
			}
			size := componentEnd - componentBeg + 1
			partNumber++
			fmt.Fprintf(out, "%s\t%d\t%d\t%d\t%c\t%s\t%d\t%d\t%c\n",
				object, objectBeg, objectBeg+size-1, partNumber,
				'W', contigNames[p.Contig], componentBeg, componentEnd, strand)
			objectBeg += size
		}
	}
	return out.Flush()
}
