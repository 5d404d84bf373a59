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

package graph

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exascience/elassemble/kmer"
)

func reverseComplement(s string) string {
	complement := map[byte]byte{'A': 'T', 'C': 'G', 'G': 'C', 'T': 'A'}
	result := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		result[len(s)-1-i] = complement[s[i]]
	}
	return string(result)
}

// naiveCounts counts canonical k-mers with strings only.
func naiveCounts(reads []string, k int) map[string]int {
	counts := make(map[string]int)
	for _, read := range reads {
		for i := 0; i+k <= len(read); i++ {
			s := read[i : i+k]
			if rc := reverseComplement(s); rc < s {
				s = rc
			}
			counts[s]++
		}
	}
	return counts
}

func toBytes(reads []string) [][]byte {
	result := make([][]byte, len(reads))
	for i, r := range reads {
		result[i] = []byte(r)
	}
	return result
}

func mustBuild(t *testing.T, reads []string, k int) *Graph {
	g, err := Build(toBytes(reads), k)
	require.NoError(t, err)
	return g
}

func step(t *testing.T, g *Graph, s string) Step {
	km, ok := kmer.Encode([]byte(s))
	require.True(t, ok)
	st, found := g.LookupKmer(km)
	require.True(t, found, s)
	return st
}

func randomReads(n, length int, seed int64) []string {
	rnd := rand.New(rand.NewSource(seed))
	genome := make([]byte, length*4)
	for i := range genome {
		genome[i] = "ACGT"[rnd.Intn(4)]
	}
	reads := make([]string, n)
	for i := range reads {
		start := rnd.Intn(len(genome) - length)
		read := string(genome[start : start+length])
		if rnd.Intn(2) == 0 {
			read = reverseComplement(read)
		}
		reads[i] = read
	}
	return reads
}

func TestBuildCounts(t *testing.T) {
	reads := []string{"GGGAAAAATCAGATT", "GGGAATCAAAATCAG"}
	g := mustBuild(t, reads, 3)
	expected := naiveCounts(reads, 3)
	assert.Equal(t, len(expected), g.NodeCount())
	for s, count := range expected {
		st := step(t, g, s)
		assert.Equal(t, count, g.Node(st.Node).Count(), s)
	}
	for i := 1; i < g.Len(); i++ {
		assert.True(t, g.Node(i-1).Kmer() < g.Node(i).Kmer(), "arena not sorted")
	}
	assert.NoError(t, g.CheckEdges())
}

func TestBuildConcurrentCounts(t *testing.T) {
	var reads []string
	for i := 0; i < 2000; i++ {
		reads = append(reads, "ACGGTCATTGACCA")
	}
	g := mustBuild(t, reads, 5)
	expected := naiveCounts(reads, 5)
	assert.Equal(t, len(expected), g.NodeCount())
	for s, count := range expected {
		assert.Equal(t, count, g.Node(step(t, g, s).Node).Count(), s)
	}
	assert.NoError(t, g.CheckEdges())
}

func TestBuildErrors(t *testing.T) {
	_, err := Build(toBytes([]string{"ACGNT"}), 3)
	assert.Error(t, err)
	_, err = Build(toBytes([]string{"ACGT"}), 0)
	assert.Error(t, err)
	g, err := Build(nil, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, g.NodeCount())
}

func TestNeighbours(t *testing.T) {
	g := mustBuild(t, []string{"AAACCC"}, 3)
	aaa := step(t, g, "AAA")
	aac := step(t, g, "AAC")
	acc := step(t, g, "ACC")
	ccc := step(t, g, "CCC")

	assert.Equal(t, []Step{aac}, g.Successors(aaa, nil))
	assert.Equal(t, []Step{aaa}, g.Predecessors(aac, nil))
	assert.Empty(t, g.Successors(ccc, nil))
	assert.Equal(t, []Step{acc}, g.Predecessors(ccc, nil))

	// GGG is CCC read on the other strand
	ggg := step(t, g, "GGG")
	assert.Equal(t, ccc.Reverse(), ggg)
	assert.Equal(t, []Step{acc.Reverse()}, g.Successors(ggg, nil))
	assert.Equal(t, 0, g.InDegree(ggg))
	assert.Equal(t, 1, g.OutDegree(ggg))

	p := Path{[]Step{aaa, aac, acc, ccc}}
	assert.Equal(t, "AAACCC", string(g.Sequence(p)))
	assert.Equal(t, "GGGTTT", string(g.Sequence(p.Reverse())))
}

func TestForwardFlag(t *testing.T) {
	g := mustBuild(t, []string{"TTTG", "TTTG", "CAAA"}, 4)
	n := g.Node(step(t, g, "CAAA").Node)
	assert.False(t, n.Forward())
	assert.Equal(t, 3, n.Count())
}

func TestRemoveKeepsEdgesMutual(t *testing.T) {
	g := mustBuild(t, randomReads(200, 40, 1), 11)
	require.NoError(t, g.CheckEdges())
	before := g.NodeCount()
	rnd := rand.New(rand.NewSource(2))
	var victims []int
	for i := 0; i < g.Len(); i++ {
		if rnd.Intn(10) == 0 {
			victims = append(victims, i)
		}
	}
	removed := g.RemoveNodes(victims)
	assert.Equal(t, len(victims), removed)
	assert.Equal(t, before-removed, g.NodeCount())
	assert.NoError(t, g.CheckEdges())
	for _, i := range victims {
		assert.True(t, g.IsDeleted(i))
		_, found := g.Lookup(g.Node(i).Kmer())
		assert.False(t, found)
	}
	assert.Equal(t, 0, g.RemoveNodes(victims))

	g.Sweep()
	assert.Equal(t, g.NodeCount(), g.Len())
	assert.NoError(t, g.CheckEdges())
}

func TestPalindromeEdges(t *testing.T) {
	g := mustBuild(t, []string{"CACGTA"}, 4)
	acgt := step(t, g, "ACGT")
	assert.Equal(t, 2, g.OutDegree(acgt))
	assert.Equal(t, 2, g.InDegree(acgt))
	assert.Equal(t, 2, g.OutDegree(acgt.Reverse()))
	require.NoError(t, g.CheckEdges())

	assert.Equal(t, 1, g.RemoveNodes([]int{step(t, g, "CGTA").Node}))
	assert.Equal(t, 1, g.OutDegree(acgt))
	assert.Equal(t, 1, g.InDegree(acgt))
	assert.NoError(t, g.CheckEdges())
}

func TestEvenKmerLengthEdgesMutual(t *testing.T) {
	for _, k := range []int{4, 6, 8, 10} {
		for seed := int64(0); seed < 20; seed++ {
			g := mustBuild(t, randomReads(50, 50, seed), k)
			require.NoError(t, g.CheckEdges(), "k = %v, seed %v", k, seed)

			rnd := rand.New(rand.NewSource(seed))
			var victims []int
			for i := 0; i < g.Len(); i++ {
				if rnd.Intn(5) == 0 {
					victims = append(victims, i)
				}
			}
			g.RemoveNodes(victims)
			require.NoError(t, g.CheckEdges(), "k = %v, seed %v after removal", k, seed)
		}
	}
}

func TestRemovePathsProtectsSurvivors(t *testing.T) {
	g := mustBuild(t, []string{"AAACCC"}, 3)
	aac := step(t, g, "AAC")
	acc := step(t, g, "ACC")
	removed := g.RemovePaths(PathList{{[]Step{aac, acc}}}, PathList{{[]Step{acc}}})
	assert.Equal(t, 1, removed)
	assert.True(t, g.IsDeleted(aac.Node))
	assert.False(t, g.IsDeleted(acc.Node))
	assert.Equal(t, 0, g.InDegree(acc))
	assert.NoError(t, g.CheckEdges())
}

func TestMedianCount(t *testing.T) {
	g := mustBuild(t, []string{"AAACCC"}, 3)
	_, ok := g.MedianCount(2)
	assert.False(t, ok)

	g = mustBuild(t, []string{"ACGGT", "ACGGT", "ACGGT", "ACGG", "ACG"}, 3)
	// ACG: 5, CGG: 4, GGT: 3 -> only counts above 2 qualify
	median, ok := g.MedianCount(2)
	require.True(t, ok)
	assert.Equal(t, 4.0, median)
}

func TestDispose(t *testing.T) {
	g := mustBuild(t, []string{"GGGAAAAATCAGATT"}, 5)
	g.Dispose()
	assert.True(t, g.Disposed())
	assert.Equal(t, 0, g.Len())
	assert.Equal(t, 0, g.NodeCount())
	assert.ErrorIs(t, g.CheckEdges(), ErrDisposed)
	g.Dispose()
	assert.True(t, g.Disposed())
}
