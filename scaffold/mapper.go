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
	"github.com/exascience/pargo/parallel"

	"github.com/exascience/elassemble/contig"
	"github.com/exascience/elassemble/fasta"
	"github.com/exascience/elassemble/kmer"
)

// A Placement locates a read on a contig.
type Placement struct {
	// Contig is the index of the contig, or -1 for an unplaced read.
	Contig int
	// Forward is true if the read lies on the contig strand, false if
	// its reverse complement does.
	Forward bool
	// Start is the contig position of the first base of the read, or of
	// its reverse complement. It may be negative, or the read may extend
	// past the end of the contig.
	Start int
	// Length is the length of the read.
	Length int
	// Votes is the number of read k-mers that agree with the placement.
	Votes int
}

// Placed reports whether the read was placed on a contig.
func (p Placement) Placed() bool {
	return p.Contig >= 0
}

type contigHit struct {
	contig  int32
	pos     int32
	forward bool
}

// contigIndex maps every k-mer that occurs exactly once in the contigs
// to its position.
type contigIndex struct {
	k    int
	hits map[kmer.Kmer]contigHit
}

func newContigIndex(contigs []contig.Contig, k int) *contigIndex {
	index := &contigIndex{k: k, hits: make(map[kmer.Kmer]contigHit)}
	for c := range contigs {
		pos := 0
		_ = kmer.Each(contigs[c].Sequence, k, func(km kmer.Kmer, _, _ byte) {
			canonical, forward := km.Canonical(k)
			if _, found := index.hits[canonical]; found {
				index.hits[canonical] = contigHit{contig: -1}
			} else {
				index.hits[canonical] = contigHit{contig: int32(c), pos: int32(pos), forward: forward}
			}
			pos++
		})
	}
	return index
}

type diagonal struct {
	contig  int32
	forward bool
	start   int32
}

// place votes for the diagonal of every read k-mer with a unique
// contig hit. A read with a tie between its best diagonals stays
// unplaced.
func (index *contigIndex) place(read []byte) Placement {
	unplaced := Placement{Contig: -1, Length: len(read)}
	if len(read) < index.k {
		return unplaced
	}
	votes := make(map[diagonal]int)
	offset := 0
	if err := kmer.Each(read, index.k, func(km kmer.Kmer, _, _ byte) {
		canonical, forward := km.Canonical(index.k)
		if hit, found := index.hits[canonical]; found && hit.contig >= 0 {
			d := diagonal{contig: hit.contig, forward: forward == hit.forward}
			if d.forward {
				d.start = hit.pos - int32(offset)
			} else {
				d.start = hit.pos - int32(len(read)-index.k-offset)
			}
			votes[d]++
		}
		offset++
	}); err != nil {
		return unplaced
	}
	var best diagonal
	bestVotes, tie := 0, false
	for d, v := range votes {
		switch {
		case v > bestVotes:
			best, bestVotes, tie = d, v, false
		case v == bestVotes:
			tie = true
		}
	}
	if bestVotes == 0 || tie {
		return unplaced
	}
	return Placement{
		Contig:  int(best.contig),
		Forward: best.forward,
		Start:   int(best.start),
		Length:  len(read),
		Votes:   bestVotes,
	}
}

// MapReads places each read on the contig that shares most of its
// k-mers, in parallel. K-mers that occur more than once in the
// contigs are ignored.
func MapReads(reads []*fasta.Read, contigs []contig.Contig, k int) []Placement {
	index := newContigIndex(contigs, k)
	placements := make([]Placement, len(reads))
	if len(reads) == 0 {
		return placements
	}
	parallel.Range(0, len(reads), 0, func(low, high int) {
		for i := low; i < high; i++ {
			placements[i] = index.place(reads[i].Seq)
		}
	})
	placed := 0
	for _, p := range placements {
		if p.Placed() {
			placed++
		}
	}
	log.Infof("Placed %v of %v reads on %v contigs", placed, len(reads), len(contigs))
	return placements
}
