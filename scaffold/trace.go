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
	"math"

	"github.com/bits-and-blooms/bitset"

	"github.com/exascience/elassemble/contig"
	"github.com/exascience/elassemble/fasta"
)

// maxTraceExpansions bounds the work of a single path search.
const maxTraceExpansions = 1 << 16

// An Oriented contig is a contig read on one of its strands.
type Oriented struct {
	Contig  int
	Forward bool
}

// overlapGraph connects oriented contigs whose sequences overlap by
// exactly k-1 bases, the way adjacent contigs of a de Bruijn graph do.
type overlapGraph struct {
	k        int
	forward  [][]byte
	reverse  [][]byte
	prefixes map[string][]Oriented
}

func newOverlapGraph(contigs []contig.Contig, k int) *overlapGraph {
	g := &overlapGraph{
		k:        k,
		forward:  make([][]byte, len(contigs)),
		reverse:  make([][]byte, len(contigs)),
		prefixes: make(map[string][]Oriented),
	}
	for c := range contigs {
		g.forward[c] = contigs[c].Sequence
		g.reverse[c] = fasta.ReverseComplement(contigs[c].Sequence)
		if k < 2 {
			continue
		}
		for _, forward := range [2]bool{true, false} {
			o := Oriented{c, forward}
			if seq := g.sequence(o); len(seq) >= k-1 {
				prefix := string(seq[:k-1])
				g.prefixes[prefix] = append(g.prefixes[prefix], o)
			}
		}
	}
	return g
}

func (g *overlapGraph) sequence(o Oriented) []byte {
	if o.Forward {
		return g.forward[o.Contig]
	}
	return g.reverse[o.Contig]
}

func (g *overlapGraph) successors(o Oriented) []Oriented {
	if g.k < 2 {
		return nil
	}
	seq := g.sequence(o)
	if len(seq) < g.k-1 {
		return nil
	}
	return g.prefixes[string(seq[len(seq)-g.k+1:])]
}

type traceFrame struct {
	at     Oriented
	path   []Oriented
	length int
}

// trace searches for a chain of at most depth intermediate contigs
// that joins from to to, such that the number of bases between the
// two lies within tolerance of the estimate. The search uses an
// explicit stack. Contigs in excluded are never part of a chain. Of
// all chains found, the one closest to the estimate is returned.
func (g *overlapGraph) trace(from, to Oriented, estimate, tolerance float64, depth int, excluded *bitset.BitSet) ([]Oriented, bool) {
	overlap := g.k - 1
	stack := []traceFrame{{at: from}}
	var best []Oriented
	bestDiff := math.Inf(1)
	expansions := 0
	for len(stack) > 0 && expansions < maxTraceExpansions {
		frame := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		expansions++
		for _, next := range g.successors(frame.at) {
			if next == to {
				gap := float64(frame.length - overlap)
				if diff := math.Abs(gap - estimate); diff <= tolerance && diff < bestDiff {
					best, bestDiff = frame.path, diff
				}
				continue
			}
			if len(frame.path) >= depth || next.Contig == from.Contig || next.Contig == to.Contig ||
				excluded.Test(uint(next.Contig)) || containsContig(frame.path, next.Contig) {
				continue
			}
			length := frame.length + len(g.sequence(next)) - overlap
			if float64(length-overlap) > estimate+tolerance {
				continue
			}
			path := make([]Oriented, len(frame.path), len(frame.path)+1)
			copy(path, frame.path)
			stack = append(stack, traceFrame{at: next, path: append(path, next), length: length})
		}
	}
	return best, !math.IsInf(bestDiff, 1)
}

func containsContig(path []Oriented, c int) bool {
	for _, o := range path {
		if o.Contig == c {
			return true
		}
	}
	return false
}
