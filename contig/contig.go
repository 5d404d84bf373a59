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

// Package contig extracts contigs from a purged de Bruijn graph, and
// removes contigs with low coverage.
package contig

import (
	"bytes"
	"sort"

	"github.com/bits-and-blooms/bitset"
	psort "github.com/exascience/pargo/sort"
	logging "github.com/op/go-logging"

	"github.com/exascience/elassemble/graph"
)

var log = logging.MustGetLogger("contig")

// A Contig is the sequence spelled by one maximal non-branching path.
type Contig struct {
	Sequence []byte
	// Coverage is the average observation count of the k-mers of the contig.
	Coverage float64
	// Path is the graph path the contig was built from. It is only
	// meaningful while the graph is alive.
	Path graph.Path
}

// A Builder extracts contigs from a graph. It reads the graph but
// does not modify it.
type Builder interface {
	Build(g *graph.Graph) []Contig
}

// SimplePathBuilder builds one contig per maximal simple path.
//
// Two adjacent nodes u -> v are on the same path if u has exactly
// one successor and v exactly one predecessor. Every node that is not
// deleted ends up on exactly one path. A path is started on the
// strand on which its first node was observed most often.
type SimplePathBuilder struct{}

// Paths returns all maximal simple paths of the graph.
func (SimplePathBuilder) Paths(g *graph.Graph) graph.PathList {
	visited := bitset.New(uint(g.Len()))
	var paths graph.PathList
	var buf []graph.Step
	g.Each(func(i int) {
		if visited.Test(uint(i)) {
			return
		}
		visited.Set(uint(i))
		start := graph.Step{Node: i, Forward: g.Node(i).Forward()}
		var right, left []graph.Step
		right, buf = extend(g, start, visited, right, buf)
		left, buf = extend(g, start.Reverse(), visited, left, buf)
		steps := make([]graph.Step, 0, len(left)+1+len(right))
		for j := len(left) - 1; j >= 0; j-- {
			steps = append(steps, left[j].Reverse())
		}
		steps = append(steps, start)
		steps = append(steps, right...)
		paths = append(paths, graph.Path{Steps: steps})
	})
	return paths
}

// extend follows unique links forward from a step, marking the nodes
// it takes as visited.
func extend(g *graph.Graph, from graph.Step, visited *bitset.BitSet, steps, buf []graph.Step) ([]graph.Step, []graph.Step) {
	current := from
	for {
		buf = g.Successors(current, buf[:0])
		if len(buf) != 1 {
			return steps, buf
		}
		next := buf[0]
		if g.InDegree(next) != 1 || visited.Test(uint(next.Node)) {
			return steps, buf
		}
		visited.Set(uint(next.Node))
		steps = append(steps, next)
		current = next
	}
}

// Build implements Builder.
func (b SimplePathBuilder) Build(g *graph.Graph) []Contig {
	paths := b.Paths(g)
	contigs := make([]Contig, len(paths))
	for i, p := range paths {
		contigs[i] = Contig{
			Sequence: g.Sequence(p),
			Coverage: g.Coverage(p),
			Path:     p,
		}
	}
	log.Infof("Built %v contigs from %v graph nodes", len(contigs), g.NodeCount())
	return contigs
}

func contigLess(c1, c2 *Contig) bool {
	if len(c1.Sequence) != len(c2.Sequence) {
		return len(c1.Sequence) > len(c2.Sequence)
	}
	return bytes.Compare(c1.Sequence, c2.Sequence) < 0
}

type contigSorter []Contig

func (s contigSorter) SequentialSort(i, j int) {
	t := s[i:j]
	sort.SliceStable(t, func(i, j int) bool {
		return contigLess(&t[i], &t[j])
	})
}

func (s contigSorter) NewTemp() psort.StableSorter {
	return contigSorter(make([]Contig, len(s)))
}

func (s contigSorter) Len() int {
	return len(s)
}

func (s contigSorter) Less(i, j int) bool {
	return contigLess(&s[i], &s[j])
}

func (s contigSorter) Assign(source psort.StableSorter) func(i, j, len int) {
	dst, src := s, source.(contigSorter)
	return func(i, j, len int) {
		copy(dst[i:i+len], src[j:j+len])
	}
}

// SortByLength sorts contigs longest first, and equally long contigs
// by sequence, using a parallel stable sort.
func SortByLength(contigs []Contig) {
	if len(contigs) > 1 {
		psort.StableSort(contigSorter(contigs))
	}
}

// TotalLength returns the sum of the contig lengths.
func TotalLength(contigs []Contig) (total int) {
	for _, c := range contigs {
		total += len(c.Sequence)
	}
	return total
}

// N50 returns the length of the shortest contig among the longest
// contigs that together cover half of the total length.
func N50(contigs []Contig) int {
	lengths := make([]int, len(contigs))
	for i, c := range contigs {
		lengths[i] = len(c.Sequence)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(lengths)))
	half := (TotalLength(contigs) + 1) / 2
	sum := 0
	for _, l := range lengths {
		if sum += l; sum >= half {
			return l
		}
	}
	return 0
}
