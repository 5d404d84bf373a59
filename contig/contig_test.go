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

package contig

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exascience/elassemble/graph"
)

const genome = "GGCTGAAGCAACCTTGTTAGGCGGACCAGAATACTCGTGT"

func build(t *testing.T, k int, reads ...string) *graph.Graph {
	bytes := make([][]byte, len(reads))
	for i, r := range reads {
		bytes[i] = []byte(r)
	}
	g, err := graph.Build(bytes, k)
	require.NoError(t, err)
	return g
}

func sequences(contigs []Contig) []string {
	var result []string
	for _, c := range contigs {
		result = append(result, string(c.Sequence))
	}
	return result
}

// assertCoversGraph checks that every live node is on exactly one contig.
func assertCoversGraph(t *testing.T, g *graph.Graph, contigs []Contig) {
	k := g.KmerLength()
	seen := make(map[int]bool)
	total := 0
	for _, c := range contigs {
		total += len(c.Sequence) - (k - 1)
		for _, s := range c.Path.Steps {
			assert.False(t, seen[s.Node], "node %v on two contigs", s.Node)
			assert.False(t, g.IsDeleted(s.Node))
			seen[s.Node] = true
		}
	}
	assert.Equal(t, g.NodeCount(), total)
	assert.Equal(t, g.NodeCount(), len(seen))
}

func TestBuildLinearChain(t *testing.T) {
	g := build(t, 5, genome)
	contigs := SimplePathBuilder{}.Build(g)
	require.Len(t, contigs, 1)
	assert.Equal(t, genome, string(contigs[0].Sequence))
	assert.Equal(t, 1.0, contigs[0].Coverage)
	assertCoversGraph(t, g, contigs)
}

func TestBuildSplitsAtBranches(t *testing.T) {
	g := build(t, 5, genome, genome, genome[:20]+"AA")
	contigs := SimplePathBuilder{}.Build(g)
	assert.ElementsMatch(t, []string{
		"GGCTGAAGCAACCTTGTTAG",
		"TTAGGCGGACCAGAATACTCGTGT",
		"TTAGAA",
	}, sequences(contigs))
	assertCoversGraph(t, g, contigs)

	variant := genome[:20] + "A" + genome[21:]
	g = build(t, 5, genome, genome, variant)
	contigs = SimplePathBuilder{}.Build(g)
	assert.ElementsMatch(t, []string{
		"GGCTGAAGCAACCTTGTTAG",
		"CGGACCAGAATACTCGTGT",
		"TTAGACGGA",
		"TTAGGCGGA",
	}, sequences(contigs))
	assertCoversGraph(t, g, contigs)
}

func TestBuildCoversRandomGraph(t *testing.T) {
	rnd := rand.New(rand.NewSource(11))
	var reads []string
	for i := 0; i < 200; i++ {
		read := make([]byte, 25)
		for j := range read {
			read[j] = "ACGT"[rnd.Intn(4)]
		}
		reads = append(reads, string(read))
	}
	for _, k := range []int{5, 7, 11} {
		g := build(t, k, reads...)
		assertCoversGraph(t, g, SimplePathBuilder{}.Build(g))
	}
}

func TestBuildEmptyGraph(t *testing.T) {
	g := build(t, 5)
	assert.Empty(t, SimplePathBuilder{}.Build(g))
}

func TestSortByLength(t *testing.T) {
	contigs := []Contig{
		{Sequence: []byte("ACG")},
		{Sequence: []byte("TTTTT")},
		{Sequence: []byte("AAA")},
		{Sequence: []byte("CCCCCCC")},
	}
	SortByLength(contigs)
	assert.Equal(t, []string{"CCCCCCC", "TTTTT", "AAA", "ACG"}, sequences(contigs))
}

func TestN50(t *testing.T) {
	var contigs []Contig
	for _, l := range []int{2, 10, 5, 8, 3} {
		contigs = append(contigs, Contig{Sequence: make([]byte, l)})
	}
	assert.Equal(t, 28, TotalLength(contigs))
	assert.Equal(t, 8, N50(contigs))
	assert.Equal(t, 0, N50(nil))
}

func TestLowCoveragePurger(t *testing.T) {
	g := build(t, 5, genome, genome, genome[:20]+"AA")
	p := &LowCoveragePurger{Threshold: 1.5}
	assert.Equal(t, 2, p.Purge(g))
	assert.NoError(t, g.CheckEdges())

	contigs := SimplePathBuilder{}.Build(g)
	require.Len(t, contigs, 1)
	assert.Equal(t, genome, string(contigs[0].Sequence))

	p.Threshold = 0
	assert.Equal(t, 0, p.Purge(g))
}
