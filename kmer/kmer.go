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

// Package kmer implements packed k-mers over the DNA alphabet.
//
// A Kmer stores up to 32 bases in a single uint64, using two bits per
// base. The first base of a k-mer occupies the most significant bits,
// so that the numeric order of two k-mers of the same length coincides
// with their lexicographic order.
package kmer

import (
	"fmt"
	"math/bits"
)

// MaxLength is the largest k-mer length that fits in a Kmer.
const MaxLength = 32

// NoBase is passed to an Each callback when there is no
// neighbouring base at a read boundary.
const NoBase = byte(0xFF)

// A Kmer is a 2-bit packed sequence of at most MaxLength bases.
type Kmer uint64

var baseCodes = [256]byte{}

var codeBases = [4]byte{'A', 'C', 'G', 'T'}

func init() {
	for i := range baseCodes {
		baseCodes[i] = NoBase
	}
	baseCodes['A'], baseCodes['a'] = 0, 0
	baseCodes['C'], baseCodes['c'] = 1, 1
	baseCodes['G'], baseCodes['g'] = 2, 2
	baseCodes['T'], baseCodes['t'] = 3, 3
}

// Code returns the 2-bit code of a base, or NoBase if the base is
// not one of A, C, G, T (in either case).
func Code(base byte) byte {
	return baseCodes[base]
}

// Base returns the upper-case base for a 2-bit code.
func Base(code byte) byte {
	return codeBases[code&3]
}

// Complement returns the code of the complementary base.
func Complement(code byte) byte {
	return 3 - code
}

// CheckLength returns an error if k cannot be represented.
func CheckLength(k int) error {
	if k < 1 || k > MaxLength {
		return fmt.Errorf("k-mer length %v outside of valid range 1-%v", k, MaxLength)
	}
	return nil
}

// Mask returns the bit mask covering a k-mer of length k.
func Mask(k int) Kmer {
	if k >= MaxLength {
		return ^Kmer(0)
	}
	return Kmer(1)<<(2*uint(k)) - 1
}

// Encode packs the given bases. It returns false if any base is not
// one of A, C, G, T.
func Encode(bases []byte) (Kmer, bool) {
	var km Kmer
	for _, b := range bases {
		c := baseCodes[b]
		if c == NoBase {
			return 0, false
		}
		km = km<<2 | Kmer(c)
	}
	return km, true
}

// Decode unpacks a k-mer of length k.
func (km Kmer) Decode(k int) []byte {
	return km.AppendTo(make([]byte, 0, k), k)
}

// AppendTo appends the bases of a k-mer of length k to buf.
func (km Kmer) AppendTo(buf []byte, k int) []byte {
	for i := k - 1; i >= 0; i-- {
		buf = append(buf, codeBases[(km>>(2*uint(i)))&3])
	}
	return buf
}

// String is for debugging only, as it does not know the k-mer length
// and always shows MaxLength bases.
func (km Kmer) String() string {
	return string(km.Decode(MaxLength))
}

// First returns the code of the first base.
func (km Kmer) First(k int) byte {
	return byte(km>>(2*uint(k-1))) & 3
}

// Last returns the code of the last base.
func (km Kmer) Last() byte {
	return byte(km) & 3
}

// ReverseComplement returns the reverse complement of a k-mer of length k.
func (km Kmer) ReverseComplement(k int) Kmer {
	// Complement all bases, then reverse the order of the 2-bit groups.
	x := uint64(^km)
	x = (x>>2)&0x3333333333333333 | (x&0x3333333333333333)<<2
	x = (x>>4)&0x0F0F0F0F0F0F0F0F | (x&0x0F0F0F0F0F0F0F0F)<<4
	x = bits.ReverseBytes64(x)
	return Kmer(x >> (64 - 2*uint(k)))
}

// Canonical returns the smaller of a k-mer and its reverse
// complement, and true if that is the k-mer itself.
func (km Kmer) Canonical(k int) (Kmer, bool) {
	rc := km.ReverseComplement(k)
	if rc < km {
		return rc, false
	}
	return km, true
}

// Append shifts the given base code in at the end, dropping the first base.
func (km Kmer) Append(k int, code byte) Kmer {
	return (km<<2 | Kmer(code&3)) & Mask(k)
}

// Prepend shifts the given base code in at the front, dropping the last base.
func (km Kmer) Prepend(k int, code byte) Kmer {
	return km>>2 | Kmer(code&3)<<(2*uint(k-1))
}

// Hash implements the pargo sync.Hasher interface.
//
// Uses the 64-bit finalizer of MurmurHash3, so that k-mers differing
// only in their last bases still spread over all splits of a map.
func (km Kmer) Hash() uint64 {
	h := uint64(km)
	h ^= h >> 33
	h *= 0xff51afd7ed558ccd
	h ^= h >> 33
	h *= 0xc4ceb9fe1a85ec53
	h ^= h >> 33
	return h
}

// Each calls fn for every k-mer of length k in read, in order. The
// prev and next arguments are the codes of the bases immediately
// before and after the k-mer, or NoBase at the ends of the read.
//
// Returns an error if k is invalid or the read contains a symbol
// other than A, C, G, T. Reads shorter than k yield no k-mers.
func Each(read []byte, k int, fn func(km Kmer, prev, next byte)) error {
	if err := CheckLength(k); err != nil {
		return err
	}
	if len(read) < k {
		return nil
	}
	codes := make([]byte, len(read))
	for i, b := range read {
		c := baseCodes[b]
		if c == NoBase {
			return fmt.Errorf("invalid symbol %q at position %v in read", b, i)
		}
		codes[i] = c
	}
	var km Kmer
	for _, c := range codes[:k-1] {
		km = km<<2 | Kmer(c)
	}
	mask := Mask(k)
	for i := k - 1; i < len(codes); i++ {
		km = (km<<2 | Kmer(codes[i])) & mask
		start := i - k + 1
		prev, next := NoBase, NoBase
		if start > 0 {
			prev = codes[start-1]
		}
		if i+1 < len(codes) {
			next = codes[i+1]
		}
		fn(km, prev, next)
	}
	return nil
}
