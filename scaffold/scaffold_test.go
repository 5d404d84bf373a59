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
	"bytes"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exascience/elassemble/contig"
	"github.com/exascience/elassemble/fasta"
)

const k = 15

func randomSequence(seed int64, n int) []byte {
	rnd := rand.New(rand.NewSource(seed))
	seq := make([]byte, n)
	for i := range seq {
		seq[i] = "ACGT"[rnd.Intn(4)]
	}
	return seq
}

func contigs(seqs ...[]byte) []contig.Contig {
	result := make([]contig.Contig, len(seqs))
	for i, s := range seqs {
		result[i] = contig.Contig{Sequence: s, Coverage: 1}
	}
	return result
}

func read(name string, seq []byte) *fasta.Read {
	return &fasta.Read{Name: name, Seq: append([]byte(nil), seq...)}
}

// spanningPairs returns n read pairs whose first mate lies forward on
// a at position 150, and whose second mate lies reverse on b at
// position 20. Each pair implies a gap of mean - 100 between the
// right end of a 200 base a and the left end of b.
func spanningPairs(prefix string, n int, a, b []byte) []*fasta.Read {
	var reads []*fasta.Read
	for i := 0; i < n; i++ {
		name := prefix + string(rune('a'+i))
		reads = append(reads,
			read(name+"/1", a[150:180]),
			read(name+"/2", fasta.ReverseComplement(b[20:50])))
	}
	return reads
}

func TestMapReads(t *testing.T) {
	a, b := randomSequence(1, 200), randomSequence(2, 200)
	reads := []*fasta.Read{
		read("r1", a[10:40]),
		read("r2", fasta.ReverseComplement(b[5:35])),
		read("r3", append(append([]byte(nil), a[60:75]...), 'N')),
		read("r4", a[0:10]),
		read("r5", randomSequence(3, 30)),
	}
	placements := MapReads(reads, contigs(a, b), k)
	require.Len(t, placements, 5)
	assert.Equal(t, Placement{Contig: 0, Forward: true, Start: 10, Length: 30, Votes: 16}, placements[0])
	assert.Equal(t, Placement{Contig: 1, Forward: false, Start: 5, Length: 30, Votes: 16}, placements[1])
	assert.False(t, placements[2].Placed())
	assert.False(t, placements[3].Placed())
	assert.False(t, placements[4].Placed())
}

func TestPairMates(t *testing.T) {
	var reads []*fasta.Read
	for _, name := range []string{"a/1", "b", "a/2", "c.F", "c.R", "d_2", "e/2", "e/1"} {
		reads = append(reads, &fasta.Read{Name: name})
	}
	assert.Equal(t, []Pair{{0, 2}, {3, 4}, {7, 6}}, PairMates(reads))
}

func TestEstimateLibrary(t *testing.T) {
	a := randomSequence(4, 200)
	reads := []*fasta.Read{
		read("p/1", a[10:40]),
		read("p/2", fasta.ReverseComplement(a[110:140])),
		read("q/1", fasta.ReverseComplement(a[140:170])),
		read("q/2", a[20:50]),
	}
	placements := MapReads(reads, contigs(a), k)
	lib, ok := EstimateLibrary(PairMates(reads), placements)
	require.True(t, ok)
	assert.InDelta(t, 140, lib.Mean, 1e-9)
	assert.InDelta(t, 14.142, lib.StdDev, 1e-3)

	_, ok = EstimateLibrary(nil, nil)
	assert.False(t, ok)
}

func TestCollectLinks(t *testing.T) {
	a, b := randomSequence(5, 200), randomSequence(6, 200)
	reads := spanningPairs("p", 3, a, b)
	cs := contigs(a, b)
	links := CollectLinks(PairMates(reads), MapReads(reads, cs, k), cs, Library{Mean: 300, StdDev: 10})
	require.Len(t, links, 1)
	assert.Equal(t, rightEnd(0), links[0].A)
	assert.Equal(t, leftEnd(1), links[0].B)
	assert.Equal(t, 3, links[0].Support)
	assert.InDelta(t, 200, links[0].Gap, 1e-9)
	assert.InDelta(t, 0, links[0].Spread, 1e-9)
}

func TestAcceptLinks(t *testing.T) {
	l1 := &Link{A: rightEnd(0), B: leftEnd(1), Support: 5}
	l2 := &Link{A: rightEnd(0), B: leftEnd(2), Support: 3}
	l3 := &Link{A: rightEnd(1), B: leftEnd(2), Support: 4, Spread: 1}
	l4 := &Link{A: leftEnd(0), B: rightEnd(2), Support: 4, Spread: 2}
	accepted := AcceptLinks([]*Link{l4, l3, l2, l1}, 3)
	assert.Len(t, accepted, 4)
	assert.Same(t, l1, accepted[rightEnd(0)])
	assert.Same(t, l1, accepted[leftEnd(1)])
	assert.Same(t, l3, accepted[rightEnd(1)])
	assert.Same(t, l3, accepted[leftEnd(2)])
	assert.NotContains(t, accepted, leftEnd(0))
	assert.NotContains(t, accepted, rightEnd(2))
}

func TestScaffoldRedundancy(t *testing.T) {
	a, b := randomSequence(7, 200), randomSequence(8, 200)
	cs := contigs(a, b)
	builder := &GraphBuilder{Library: Library{Mean: 300, StdDev: 10}}

	scaffolds, err := builder.BuildScaffold(spanningPairs("p", 1, a, b), cs, k, 10, 2)
	require.NoError(t, err)
	require.Len(t, scaffolds, 2)
	for _, s := range scaffolds {
		assert.Len(t, s.Parts, 1)
	}

	scaffolds, err = builder.BuildScaffold(spanningPairs("p", 2, a, b), cs, k, 10, 2)
	require.NoError(t, err)
	require.Len(t, scaffolds, 1)
	assert.Equal(t, []Part{{Contig: 0, Forward: true}, {Contig: 1, Forward: true, Gap: 200}}, scaffolds[0].Parts)
	expected := string(a) + strings.Repeat("N", 200) + string(b)
	assert.Equal(t, expected, string(scaffolds[0].Sequence))
}

func TestScaffoldWeakLinkNeverJoins(t *testing.T) {
	a, b, c := randomSequence(9, 200), randomSequence(10, 200), randomSequence(11, 200)
	reads := append(spanningPairs("ab", 3, a, b), spanningPairs("bc", 1, b, c)...)
	builder := &GraphBuilder{Library: Library{Mean: 300, StdDev: 10}}
	scaffolds, err := builder.BuildScaffold(reads, contigs(a, b, c), k, 10, 2)
	require.NoError(t, err)
	require.Len(t, scaffolds, 2)
	for _, s := range scaffolds {
		for i := 1; i < len(s.Parts); i++ {
			pair := [2]int{s.Parts[i-1].Contig, s.Parts[i].Contig}
			assert.NotEqual(t, [2]int{1, 2}, pair)
			assert.NotEqual(t, [2]int{2, 1}, pair)
		}
	}
}

func TestScaffoldTracesGap(t *testing.T) {
	g := randomSequence(12, 300)
	a, x, b := g[0:100], g[86:186], g[172:300]
	cs := contigs(a, x, b)
	var reads []*fasta.Read
	for _, name := range []string{"p", "q"} {
		reads = append(reads,
			read(name+"/1", g[50:80]),
			read(name+"/2", fasta.ReverseComplement(g[200:230])))
	}
	builder := &GraphBuilder{Library: Library{Mean: 180, StdDev: 5}}

	scaffolds, err := builder.BuildScaffold(reads, cs, k, 10, 2)
	require.NoError(t, err)
	require.Len(t, scaffolds, 1)
	assert.Equal(t, string(g), string(scaffolds[0].Sequence))
	assert.Equal(t, []Part{
		{Contig: 0, Forward: true},
		{Contig: 1, Forward: true, Overlap: k - 1, Filled: true},
		{Contig: 2, Forward: true, Overlap: k - 1},
	}, scaffolds[0].Parts)

	// without search depth, the gap is left unknown
	scaffolds, err = builder.BuildScaffold(reads, cs, k, 0, 2)
	require.NoError(t, err)
	require.Len(t, scaffolds, 2)
	assert.Equal(t, string(a)+strings.Repeat("N", 72)+string(b), string(scaffolds[0].Sequence))
	assert.Equal(t, string(x), string(scaffolds[1].Sequence))
}

func TestScaffoldTraceSkipsLinkedContigs(t *testing.T) {
	g := randomSequence(12, 300)
	a, x, b := g[0:100], g[86:186], g[172:300]
	c := randomSequence(18, 200)
	cs := contigs(a, x, b, c)
	var reads []*fasta.Read
	for _, name := range []string{"p", "q", "r"} {
		reads = append(reads,
			read(name+"/1", g[50:80]),
			read(name+"/2", fasta.ReverseComplement(g[200:230])),
			read(name+"x/1", x[60:90]),
			read(name+"x/2", fasta.ReverseComplement(c[20:50])))
	}
	builder := &GraphBuilder{Library: Library{Mean: 180, StdDev: 5}}

	scaffolds, err := builder.BuildScaffold(reads, cs, k, 10, 2)
	require.NoError(t, err)
	require.Len(t, scaffolds, 2)
	assert.Equal(t, []Part{{Contig: 1, Forward: true}, {Contig: 3, Forward: true, Gap: 90}}, scaffolds[0].Parts)
	assert.Equal(t, []Part{{Contig: 0, Forward: true}, {Contig: 2, Forward: true, Gap: 72}}, scaffolds[1].Parts)

	seen := make(map[int]int)
	for _, s := range scaffolds {
		for _, p := range s.Parts {
			seen[p.Contig]++
		}
	}
	assert.Equal(t, map[int]int{0: 1, 1: 1, 2: 1, 3: 1}, seen)
}

func TestScaffoldWithoutLibrary(t *testing.T) {
	a, b := randomSequence(13, 200), randomSequence(14, 200)
	scaffolds, err := (&GraphBuilder{}).BuildScaffold(spanningPairs("p", 3, a, b), contigs(a, b), k, 10, 2)
	require.NoError(t, err)
	assert.Len(t, scaffolds, 2)
}

func TestScaffoldInvalidParameters(t *testing.T) {
	builder := &GraphBuilder{}
	cs := contigs(randomSequence(15, 50))
	_, err := builder.BuildScaffold(nil, cs, 0, 10, 2)
	assert.ErrorIs(t, err, ErrInvalidParameters)
	_, err = builder.BuildScaffold(nil, cs, k, -1, 2)
	assert.ErrorIs(t, err, ErrInvalidParameters)
	_, err = builder.BuildScaffold(nil, cs, k, 10, 0)
	assert.ErrorIs(t, err, ErrInvalidParameters)

	scaffolds, err := builder.BuildScaffold(nil, nil, k, 10, 2)
	assert.NoError(t, err)
	assert.Empty(t, scaffolds)
}

func TestWriteAGP(t *testing.T) {
	a, b := randomSequence(16, 200), randomSequence(17, 200)
	cs := contigs(a, b)
	scaffolds := []Scaffold{
		{Parts: []Part{{Contig: 0, Forward: true}, {Contig: 1, Forward: false, Gap: 50}}},
		{Parts: []Part{{Contig: 1, Forward: false, Overlap: 14}}},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteAGP(&buf, scaffolds, []string{"s1", "s2"}, []string{"c1", "c2"}, cs))
	assert.Equal(t, "##agp-version\t2.0\n"+
		"s1\t1\t200\t1\tW\tc1\t1\t200\t+\n"+
		"s1\t201\t250\t2\tN\t50\tscaffold\tyes\tpaired-ends\n"+
		"s1\t251\t450\t3\tW\tc2\t1\t200\t-\n"+
		"s2\t1\t186\t1\tW\tc2\t1\t186\t-\n", buf.String())

	assert.Error(t, WriteAGP(&buf, scaffolds, []string{"s1"}, []string{"c1", "c2"}, cs))
}
