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

// Package scaffold orders and orients contigs into scaffolds, using
// read pairs that span the gaps between them.
//
// Reads are placed on contigs by their unique k-mers. Each pair with
// mates on two different contigs is evidence for a link between two
// contig ends. Links with too little support are dropped, conflicts
// are resolved greedily, and every connected group of contigs becomes
// one scaffold. Where the contig overlap graph holds a chain of
// contigs that fits a gap, the gap is filled with it; otherwise it is
// written as a run of N.
package scaffold

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/bits-and-blooms/bitset"
	logging "github.com/op/go-logging"

	"github.com/exascience/elassemble/contig"
	"github.com/exascience/elassemble/fasta"
	"github.com/exascience/elassemble/kmer"
)

var log = logging.MustGetLogger("scaffold")

// ErrInvalidParameters is returned for an unusable k-mer length,
// search depth, or redundancy.
var ErrInvalidParameters = errors.New("invalid scaffolding parameters")

// A Part places one contig in a scaffold.
type Part struct {
	Contig  int
	Forward bool
	// Overlap is the number of leading bases of the oriented contig
	// that the scaffold already contains.
	Overlap int
	// Gap is the number of unknown bases before the part.
	Gap int
	// Filled is true if the part was found by path tracing rather than
	// read pairs.
	Filled bool
}

// A Scaffold is an ordered list of oriented contigs.
type Scaffold struct {
	Parts    []Part
	Sequence []byte
}

// A Builder turns contigs into scaffolds.
type Builder interface {
	BuildScaffold(reads []*fasta.Read, contigs []contig.Contig, kmerLength, depth, redundancy int) ([]Scaffold, error)
}

// GraphBuilder is the default Builder. If the library mean is not
// positive, the library is estimated from pairs that lie on a single
// contig.
type GraphBuilder struct {
	Library Library
}

// gapTolerance is the number of standard deviations a traced path may
// differ from a gap estimate.
const gapTolerance = 3

// BuildScaffold implements Builder. Depth bounds the number of contigs
// a traced path may pass through, and redundancy is the minimum number
// of read pairs that must support a link between two contigs.
func (b *GraphBuilder) BuildScaffold(reads []*fasta.Read, contigs []contig.Contig, kmerLength, depth, redundancy int) ([]Scaffold, error) {
	if err := kmer.CheckLength(kmerLength); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParameters, err)
	}
	if depth < 0 {
		return nil, fmt.Errorf("%w: negative depth %v", ErrInvalidParameters, depth)
	}
	if redundancy < 1 {
		return nil, fmt.Errorf("%w: redundancy %v is less than 1", ErrInvalidParameters, redundancy)
	}
	if len(contigs) == 0 {
		return nil, nil
	}

	placements := MapReads(reads, contigs, kmerLength)
	pairs := PairMates(reads)
	lib := b.Library
	if lib.Mean <= 0 {
		if estimate, ok := EstimateLibrary(pairs, placements); ok {
			lib = estimate
			log.Infof("Estimated library fragment length %.1f (sd %.1f)", lib.Mean, lib.StdDev)
		}
	}
	var links []*Link
	if lib.Mean > 0 {
		links = FilterLinks(CollectLinks(pairs, placements, contigs, lib), redundancy)
	} else {
		log.Warning("No library fragment length known, scaffolds will be single contigs")
	}
	accepted := AcceptLinks(links, len(contigs))

	tolerance := gapTolerance * lib.StdDev
	if tolerance < 1 {
		tolerance = 1
	}
	overlaps := newOverlapGraph(contigs, kmerLength)
	scaffolds := walkScaffolds(overlaps, accepted, len(contigs), tolerance, depth)
	sort.SliceStable(scaffolds, func(i, j int) bool {
		return len(scaffolds[i].Sequence) > len(scaffolds[j].Sequence)
	})
	log.Infof("Built %v scaffolds from %v contigs and %v read pairs", len(scaffolds), len(contigs), len(pairs))
	return scaffolds, nil
}

// walkScaffolds follows accepted links from every contig that has at
// least one free end. Every contig ends up in exactly one scaffold.
// Contigs without links become scaffolds of their own, unless a traced
// path already used them. Traced paths never pass through a linked
// contig or a contig placed before.
func walkScaffolds(overlaps *overlapGraph, accepted map[End]*Link, nContigs int, tolerance float64, depth int) []Scaffold {
	used := bitset.New(uint(nContigs))
	for end := range accepted {
		used.Set(uint(end.Contig()))
	}
	visited := bitset.New(uint(nContigs))
	walk := func(c int, forward bool) Scaffold {
		visited.Set(uint(c))
		current := Oriented{c, forward}
		parts := []Part{{Contig: c, Forward: forward}}
		exit := leftEnd(c)
		if forward {
			exit = rightEnd(c)
		}
		for {
			link, found := accepted[exit]
			if !found {
				break
			}
			enter := link.partner(exit)
			next := Oriented{enter.Contig(), !enter.Right()}
			if visited.Test(uint(next.Contig)) {
				break
			}
			if path, found := overlaps.trace(current, next, link.Gap, tolerance, depth, used); found {
				for _, o := range path {
					parts = append(parts, Part{Contig: o.Contig, Forward: o.Forward, Overlap: overlaps.k - 1, Filled: true})
					visited.Set(uint(o.Contig))
					used.Set(uint(o.Contig))
				}
				parts = append(parts, Part{Contig: next.Contig, Forward: next.Forward, Overlap: overlaps.k - 1})
			} else {
				gap := int(math.Round(link.Gap))
				if gap < 1 {
					gap = 1
				}
				parts = append(parts, Part{Contig: next.Contig, Forward: next.Forward, Gap: gap})
			}
			visited.Set(uint(next.Contig))
			current, exit = next, enter.Other()
		}
		return newScaffold(overlaps, parts)
	}

	var scaffolds []Scaffold
	var singles []int
	for c := 0; c < nContigs; c++ {
		if visited.Test(uint(c)) {
			continue
		}
		_, leftLinked := accepted[leftEnd(c)]
		_, rightLinked := accepted[rightEnd(c)]
		switch {
		case leftLinked && rightLinked:
			continue
		case !leftLinked && !rightLinked:
			singles = append(singles, c)
			continue
		}
		scaffolds = append(scaffolds, walk(c, !leftLinked))
	}
	for _, c := range singles {
		if !visited.Test(uint(c)) {
			scaffolds = append(scaffolds, newScaffold(overlaps, []Part{{Contig: c, Forward: true}}))
		}
	}
	return scaffolds
}

func newScaffold(overlaps *overlapGraph, parts []Part) Scaffold {
	var seq []byte
	for _, p := range parts {
		seq = append(seq, bytes.Repeat([]byte{'N'}, p.Gap)...)
		seq = append(seq, overlaps.sequence(Oriented{p.Contig, p.Forward})[p.Overlap:]...)
	}
	return Scaffold{Parts: parts, Sequence: seq}
}
