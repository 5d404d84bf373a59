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
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/exascience/elassemble/contig"
	"github.com/exascience/elassemble/fasta"
)

// A Library describes the fragment lengths of a paired-read library.
type Library struct {
	Mean   float64
	StdDev float64
}

// A Pair holds the read indices of two mates.
type Pair [2]int

var mateSuffixes = [][2]string{{"/1", "/2"}, {".F", ".R"}, {"_1", "_2"}}

func mateName(name string) (base string, mate int) {
	for _, suffixes := range mateSuffixes {
		for m, suffix := range suffixes {
			if strings.HasSuffix(name, suffix) {
				return name[:len(name)-len(suffix)], m
			}
		}
	}
	return "", -1
}

// PairMates matches reads whose names differ only by a mate suffix
// (/1 and /2, .F and .R, or _1 and _2). Reads without a mate are left
// out.
func PairMates(reads []*fasta.Read) []Pair {
	first := make(map[string]int)
	second := make(map[string]int)
	var order []string
	for i, r := range reads {
		base, mate := mateName(r.Name)
		if mate < 0 {
			continue
		}
		table := first
		if mate == 1 {
			table = second
		}
		if _, found := table[base]; found {
			continue
		}
		table[base] = i
		if mate == 0 {
			order = append(order, base)
		}
	}
	var pairs []Pair
	for _, base := range order {
		if j, found := second[base]; found {
			pairs = append(pairs, Pair{first[base], j})
		}
	}
	return pairs
}

// An End identifies one end of a contig: 2*contig for its left end,
// 2*contig+1 for its right end.
type End int

func leftEnd(contig int) End  { return End(2 * contig) }
func rightEnd(contig int) End { return End(2*contig + 1) }

// Contig returns the contig of an end.
func (e End) Contig() int { return int(e) / 2 }

// Right reports whether this is the right end of its contig.
func (e End) Right() bool { return e%2 == 1 }

// Other returns the other end of the same contig.
func (e End) Other() End { return e ^ 1 }

// A Link joins the ends of two different contigs.
type Link struct {
	A, B End
	// Support is the number of read pairs that imply the link.
	Support int
	// Gap is the mean estimated number of bases between the two ends.
	Gap float64
	// Spread is the standard deviation of the individual gap estimates.
	Spread float64
	gaps   []float64
}

// mateEnd returns the contig end a mate points to, and the distance
// from the start of the mate to that end.
func mateEnd(p Placement, contigs []contig.Contig) (End, int) {
	if p.Forward {
		return rightEnd(p.Contig), len(contigs[p.Contig].Sequence) - p.Start
	}
	return leftEnd(p.Contig), p.Start + p.Length
}

// EstimateLibrary computes the fragment length distribution from pairs
// whose mates were both placed on the same contig, facing each other.
// It returns false if no such pair exists.
func EstimateLibrary(pairs []Pair, placements []Placement) (Library, bool) {
	var lengths []float64
	for _, pair := range pairs {
		p, q := placements[pair[0]], placements[pair[1]]
		if !p.Placed() || p.Contig != q.Contig || p.Forward == q.Forward {
			continue
		}
		if !p.Forward {
			p, q = q, p
		}
		if length := q.Start + q.Length - p.Start; length > 0 {
			lengths = append(lengths, float64(length))
		}
	}
	if len(lengths) == 0 {
		return Library{}, false
	}
	mean, sd := stat.MeanStdDev(lengths, nil)
	if math.IsNaN(sd) {
		sd = 0
	}
	return Library{Mean: mean, StdDev: sd}, true
}

// CollectLinks turns every pair with mates on two different contigs
// into evidence for a link between the contig ends the mates point to.
func CollectLinks(pairs []Pair, placements []Placement, contigs []contig.Contig, lib Library) []*Link {
	links := make(map[[2]End]*Link)
	var keys [][2]End
	for _, pair := range pairs {
		p, q := placements[pair[0]], placements[pair[1]]
		if !p.Placed() || !q.Placed() || p.Contig == q.Contig {
			continue
		}
		a, distA := mateEnd(p, contigs)
		b, distB := mateEnd(q, contigs)
		if b < a {
			a, b = b, a
		}
		key := [2]End{a, b}
		link, found := links[key]
		if !found {
			link = &Link{A: a, B: b}
			links[key] = link
			keys = append(keys, key)
		}
		link.Support++
		link.gaps = append(link.gaps, lib.Mean-float64(distA)-float64(distB))
	}
	result := make([]*Link, 0, len(keys))
	for _, key := range keys {
		link := links[key]
		link.Gap = stat.Mean(link.gaps, nil)
		if len(link.gaps) > 1 {
			link.Spread = stat.StdDev(link.gaps, nil)
		}
		link.gaps = nil
		result = append(result, link)
	}
	return result
}

// FilterLinks drops the links that are supported by fewer than
// redundancy read pairs.
func FilterLinks(links []*Link, redundancy int) []*Link {
	var result []*Link
	for _, link := range links {
		if link.Support >= redundancy {
			result = append(result, link)
		}
	}
	log.Debugf("%v of %v contig links have at least %v supporting pairs", len(result), len(links), redundancy)
	return result
}

func findRepContig(grouping []int, contig int) int {
	rep := contig
	for rep != grouping[rep] {
		rep = grouping[rep]
	}
	for contig != rep {
		next := grouping[contig]
		grouping[contig] = rep
		contig = next
	}
	return rep
}

func joinContigs(grouping []int, contig1, contig2 int) bool {
	rep1 := findRepContig(grouping, contig1)
	rep2 := findRepContig(grouping, contig2)
	if rep1 == rep2 {
		return false
	}
	grouping[rep1] = rep2
	return true
}

// AcceptLinks resolves conflicts between links. Links are considered
// by decreasing support, then increasing spread. A link is accepted
// if neither of its ends already carries a link, and it does not close
// a cycle of contigs. The result maps every linked end to its link.
func AcceptLinks(links []*Link, nContigs int) map[End]*Link {
	sorted := append([]*Link(nil), links...)
	sort.SliceStable(sorted, func(i, j int) bool {
		l1, l2 := sorted[i], sorted[j]
		if l1.Support != l2.Support {
			return l1.Support > l2.Support
		}
		if l1.Spread != l2.Spread {
			return l1.Spread < l2.Spread
		}
		if l1.A != l2.A {
			return l1.A < l2.A
		}
		return l1.B < l2.B
	})
	grouping := make([]int, nContigs)
	for i := range grouping {
		grouping[i] = i
	}
	accepted := make(map[End]*Link)
	rejected := 0
	for _, link := range sorted {
		if _, found := accepted[link.A]; found {
			rejected++
			continue
		}
		if _, found := accepted[link.B]; found {
			rejected++
			continue
		}
		if !joinContigs(grouping, link.A.Contig(), link.B.Contig()) {
			rejected++
			continue
		}
		accepted[link.A] = link
		accepted[link.B] = link
	}
	log.Debugf("Accepted %v contig links, rejected %v conflicting ones", len(accepted)/2, rejected)
	return accepted
}

// partner returns the end at the other side of a link.
func (link *Link) partner(e End) End {
	if link.A == e {
		return link.B
	}
	return link.A
}
