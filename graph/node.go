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
	"math/bits"
	"sync/atomic"

	"github.com/exascience/elassemble/kmer"
)

// A Node is a canonical k-mer in a de Bruijn graph.
//
// The adjacency mask records the edges of the node in its canonical
// orientation: bits 0-3 are the successor bases A, C, G, T, bits 4-7
// are the predecessor bases A, C, G, T. The neighbours themselves are
// not stored, they are found by shifting the extension base into the
// k-mer and looking up the canonical form of the result.
type Node struct {
	kmer      kmer.Kmer
	count     uint32
	forward   uint32
	adjacency uint32
}

// Kmer returns the canonical k-mer of the node.
func (n *Node) Kmer() kmer.Kmer {
	return n.kmer
}

// Count returns how often the k-mer was observed, on either strand.
func (n *Node) Count() int {
	return int(n.count)
}

// Forward reports whether the k-mer was observed at least as often in
// its canonical orientation as in reverse complement orientation.
func (n *Node) Forward() bool {
	return 2*n.forward >= n.count
}

func (n *Node) palindromic(k int) bool {
	return n.kmer == n.kmer.ReverseComplement(k)
}

// observe is safe for concurrent use.
func (n *Node) observe(forward bool, adjacency uint32) {
	atomic.AddUint32(&n.count, 1)
	if forward {
		atomic.AddUint32(&n.forward, 1)
	}
	if adjacency == 0 {
		return
	}
	for {
		old := atomic.LoadUint32(&n.adjacency)
		if old|adjacency == old || atomic.CompareAndSwapUint32(&n.adjacency, old, old|adjacency) {
			return
		}
	}
}

// complementCodes maps bit b of a 4-bit extension mask to bit 3-b.
func complementCodes(ext uint8) uint8 {
	return bits.Reverse8(ext) >> 4
}

// Extensions returns the extension bases on one side of the node, as
// seen when walking the given strand. Bit b is set if base code b
// extends the node. Successor bases are appended to the k-mer,
// predecessor bases are prepended.
func (n *Node) Extensions(forward, successor bool) uint8 {
	if !forward {
		successor = !successor
	}
	var ext uint8
	if successor {
		ext = uint8(n.adjacency) & 0xF
	} else {
		ext = uint8(n.adjacency>>4) & 0xF
	}
	if !forward {
		ext = complementCodes(ext)
	}
	return ext
}

func (n *Node) clearExtension(forward, successor bool, code byte) {
	if !forward {
		successor = !successor
		code = kmer.Complement(code)
	}
	if successor {
		n.adjacency &^= 1 << code
	} else {
		n.adjacency &^= 1 << (4 + code)
	}
}

// adjacencyFor computes the mask contribution of an occurrence of a
// k-mer whose canonical form has the given orientation.
func adjacencyFor(forward bool, prev, next byte) (adjacency uint32) {
	if !forward {
		prev, next = next, prev
		if prev != kmer.NoBase {
			prev = kmer.Complement(prev)
		}
		if next != kmer.NoBase {
			next = kmer.Complement(next)
		}
	}
	if next != kmer.NoBase {
		adjacency |= 1 << next
	}
	if prev != kmer.NoBase {
		adjacency |= 1 << (4 + prev)
	}
	return adjacency
}
