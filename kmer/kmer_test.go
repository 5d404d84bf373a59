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

package kmer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reverseComplementString(s string) string {
	result := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		var c byte
		switch s[i] {
		case 'A':
			c = 'T'
		case 'C':
			c = 'G'
		case 'G':
			c = 'C'
		case 'T':
			c = 'A'
		}
		result[len(s)-1-i] = c
	}
	return string(result)
}

func TestEncodeDecode(t *testing.T) {
	for _, s := range []string{"A", "ACGT", "GGGAAAAATCAGATT", "TTTTTTTTTTTTTTTTTTTTTTTTTTTTTTTT"} {
		km, ok := Encode([]byte(s))
		require.True(t, ok, s)
		assert.Equal(t, s, string(km.Decode(len(s))))
	}
	_, ok := Encode([]byte("ACNT"))
	assert.False(t, ok)
	km, ok := Encode([]byte("acgt"))
	require.True(t, ok)
	assert.Equal(t, "ACGT", string(km.Decode(4)))
}

func TestReverseComplement(t *testing.T) {
	for _, s := range []string{"A", "AC", "GGA", "ACGTTGCA", "GGGAATCAAAATCAG", "ACGTACGTACGTACGTACGTACGTACGTACGT"} {
		km, _ := Encode([]byte(s))
		rc := km.ReverseComplement(len(s))
		assert.Equal(t, reverseComplementString(s), string(rc.Decode(len(s))), s)
		assert.Equal(t, km, rc.ReverseComplement(len(s)), s)
	}
}

func TestCanonical(t *testing.T) {
	km, _ := Encode([]byte("TTG"))
	c, forward := km.Canonical(3)
	assert.Equal(t, "CAA", string(c.Decode(3)))
	assert.False(t, forward)

	km, _ = Encode([]byte("AAC"))
	c, forward = km.Canonical(3)
	assert.Equal(t, "AAC", string(c.Decode(3)))
	assert.True(t, forward)

	// palindromes are their own reverse complement
	km, _ = Encode([]byte("ACGT"))
	c, forward = km.Canonical(4)
	assert.Equal(t, km, c)
	assert.True(t, forward)
}

func TestAppendPrepend(t *testing.T) {
	km, _ := Encode([]byte("GGA"))
	assert.Equal(t, "GAT", string(km.Append(3, Code('T')).Decode(3)))
	assert.Equal(t, "CGG", string(km.Prepend(3, Code('C')).Decode(3)))
	assert.Equal(t, Code('G'), km.First(3))
	assert.Equal(t, Code('A'), km.Last())
}

func TestEach(t *testing.T) {
	var got []string
	var prevs, nexts []byte
	err := Each([]byte("GGGAA"), 3, func(km Kmer, prev, next byte) {
		got = append(got, string(km.Decode(3)))
		prevs = append(prevs, prev)
		nexts = append(nexts, next)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"GGG", "GGA", "GAA"}, got)
	assert.Equal(t, []byte{NoBase, Code('G'), Code('G')}, prevs)
	assert.Equal(t, []byte{Code('A'), Code('A'), NoBase}, nexts)

	assert.Error(t, Each([]byte("GGNAA"), 3, func(Kmer, byte, byte) {}))
	assert.Error(t, Each([]byte("GGAA"), 0, func(Kmer, byte, byte) {}))
	assert.Error(t, Each([]byte("GGAA"), MaxLength+1, func(Kmer, byte, byte) {}))

	called := false
	require.NoError(t, Each([]byte("GG"), 3, func(Kmer, byte, byte) { called = true }))
	assert.False(t, called)
}

func TestHashSpreads(t *testing.T) {
	seen := make(map[uint64]bool)
	for i := Kmer(0); i < 1024; i++ {
		seen[i.Hash()%64] = true
	}
	assert.Len(t, seen, 64)
}
