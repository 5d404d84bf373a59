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

// Package graph implements the de Bruijn graph of an assembly run.
//
// Nodes are canonical k-mers, so that a k-mer and its reverse
// complement share one node. A graph is built once from a set of
// reads, can then only lose nodes, and is finally disposed.
//
// Construction is parallel. Purge passes and traversals are not safe
// for concurrent use and must be run by a single goroutine.
package graph

import (
	"errors"
	"fmt"
	"math/bits"
	"runtime"
	"sort"

	"github.com/bits-and-blooms/bitset"
	"github.com/exascience/pargo/parallel"
	psort "github.com/exascience/pargo/sort"
	psync "github.com/exascience/pargo/sync"
	logging "github.com/op/go-logging"

	"github.com/exascience/elassemble/kmer"
)

var log = logging.MustGetLogger("graph")

// ErrDisposed is returned when a disposed graph is used.
var ErrDisposed = errors.New("graph has been disposed")

// A Graph is a de Bruijn graph stored as a dense arena of nodes
// sorted by k-mer. Deleted nodes are tombstoned until the next Sweep,
// so node indices stay valid across deletions.
type Graph struct {
	k        int
	nodes    []Node
	index    map[kmer.Kmer]int32
	deleted  *bitset.BitSet
	live     int
	disposed bool
}

// Build creates the graph of all canonical k-mers of length k that
// occur in the given reads. Reads are processed in parallel. Every
// read must consist of A, C, G, T only (in either case); reads shorter
// than k contribute nothing.
func Build(reads [][]byte, k int) (*Graph, error) {
	if err := kmer.CheckLength(k); err != nil {
		return nil, err
	}
	nodes := psync.NewMap(16 * runtime.GOMAXPROCS(0))
	if len(reads) == 0 {
		return freeze(nodes, k), nil
	}
	result := parallel.RangeReduce(0, len(reads), 0, func(low, high int) interface{} {
		for i := low; i < high; i++ {
			if err := kmer.Each(reads[i], k, func(km kmer.Kmer, prev, next byte) {
				addKmer(nodes, k, km, prev, next)
			}); err != nil {
				return fmt.Errorf("read %v: %w", i, err)
			}
		}
		return nil
	}, func(x, y interface{}) interface{} {
		if x != nil {
			return x
		}
		return y
	})
	if result != nil {
		return nil, result.(error)
	}
	g := freeze(nodes, k)
	log.Infof("Built de Bruijn graph with %v nodes from %v reads (k = %v)", len(g.nodes), len(reads), k)
	return g, nil
}

func addKmer(nodes *psync.Map, k int, km kmer.Kmer, prev, next byte) {
	canonical, forward := km.Canonical(k)
	entry, found := nodes.Load(canonical)
	if !found {
		entry, _ = nodes.LoadOrStore(canonical, &Node{kmer: canonical})
	}
	adjacency := adjacencyFor(forward, prev, next)
	if canonical == canonical.ReverseComplement(k) {
		adjacency |= adjacencyFor(!forward, prev, next)
	}
	entry.(*Node).observe(forward, adjacency)
}

type nodeSorter []Node

func (s nodeSorter) SequentialSort(i, j int) {
	t := s[i:j]
	sort.SliceStable(t, func(i, j int) bool {
		return t[i].kmer < t[j].kmer
	})
}

func (s nodeSorter) NewTemp() psort.StableSorter {
	return nodeSorter(make([]Node, len(s)))
}

func (s nodeSorter) Len() int {
	return len(s)
}

func (s nodeSorter) Less(i, j int) bool {
	return s[i].kmer < s[j].kmer
}

func (s nodeSorter) Assign(source psort.StableSorter) func(i, j, len int) {
	dst, src := s, source.(nodeSorter)
	return func(i, j, len int) {
		copy(dst[i:i+len], src[j:j+len])
	}
}

// freeze moves the concurrently built nodes into a sorted arena.
func freeze(nodes *psync.Map, k int) *Graph {
	collected := nodes.ParallelReduce(func(split map[interface{}]interface{}) interface{} {
		result := make([]Node, 0, len(split))
		for _, value := range split {
			result = append(result, *value.(*Node))
		}
		return result
	}, func(x, y interface{}) interface{} {
		return append(x.([]Node), y.([]Node)...)
	})
	var arena []Node
	if collected != nil {
		arena = collected.([]Node)
	}
	if len(arena) > 1 {
		psort.StableSort(nodeSorter(arena))
	}
	return newGraph(arena, k)
}

func newGraph(arena []Node, k int) *Graph {
	index := make(map[kmer.Kmer]int32, len(arena))
	for i := range arena {
		index[arena[i].kmer] = int32(i)
	}
	return &Graph{
		k:       k,
		nodes:   arena,
		index:   index,
		deleted: bitset.New(uint(len(arena))),
		live:    len(arena),
	}
}

// KmerLength returns k.
func (g *Graph) KmerLength() int {
	return g.k
}

// Len returns the size of the node arena, including deleted nodes.
// Valid node indices are 0 <= i < Len().
func (g *Graph) Len() int {
	return len(g.nodes)
}

// NodeCount returns the number of nodes that are not deleted.
func (g *Graph) NodeCount() int {
	return g.live
}

// Node returns the node at index i.
func (g *Graph) Node(i int) *Node {
	return &g.nodes[i]
}

// IsDeleted reports whether the node at index i has been deleted.
func (g *Graph) IsDeleted(i int) bool {
	return g.deleted.Test(uint(i))
}

// Lookup returns the index of the node for a canonical k-mer, and
// false if there is no such node or it has been deleted.
func (g *Graph) Lookup(canonical kmer.Kmer) (int, bool) {
	i, ok := g.index[canonical]
	if !ok || g.deleted.Test(uint(i)) {
		return -1, false
	}
	return int(i), true
}

// LookupKmer returns the step for an arbitrary k-mer: its node, and
// the strand on which the node spells that k-mer.
func (g *Graph) LookupKmer(km kmer.Kmer) (Step, bool) {
	canonical, forward := km.Canonical(g.k)
	i, ok := g.Lookup(canonical)
	return Step{i, forward}, ok
}

// Kmer returns the k-mer spelled by a step.
func (g *Graph) Kmer(s Step) kmer.Kmer {
	km := g.nodes[s.Node].kmer
	if s.Forward {
		return km
	}
	return km.ReverseComplement(g.k)
}

// Each calls fn for every node that is not deleted, in index order.
func (g *Graph) Each(fn func(i int)) {
	for i := range g.nodes {
		if !g.deleted.Test(uint(i)) {
			fn(i)
		}
	}
}

// OutDegree returns the number of successors of a step.
func (g *Graph) OutDegree(s Step) int {
	return bits.OnesCount8(g.nodes[s.Node].Extensions(s.Forward, true))
}

// InDegree returns the number of predecessors of a step.
func (g *Graph) InDegree(s Step) int {
	return bits.OnesCount8(g.nodes[s.Node].Extensions(s.Forward, false))
}

// Successors appends the successors of a step to buf, in order of
// their extension base.
func (g *Graph) Successors(s Step, buf []Step) []Step {
	ext := g.nodes[s.Node].Extensions(s.Forward, true)
	if ext == 0 {
		return buf
	}
	km := g.Kmer(s)
	for code := byte(0); code < 4; code++ {
		if ext&(1<<code) != 0 {
			if next, ok := g.LookupKmer(km.Append(g.k, code)); ok {
				buf = append(buf, next)
			}
		}
	}
	return buf
}

// Predecessors appends the predecessors of a step to buf, in order of
// their extension base.
func (g *Graph) Predecessors(s Step, buf []Step) []Step {
	ext := g.nodes[s.Node].Extensions(s.Forward, false)
	if ext == 0 {
		return buf
	}
	km := g.Kmer(s)
	for code := byte(0); code < 4; code++ {
		if ext&(1<<code) != 0 {
			if prev, ok := g.LookupKmer(km.Prepend(g.k, code)); ok {
				buf = append(buf, prev)
			}
		}
	}
	return buf
}

// Sequence returns the bases spelled by a path.
func (g *Graph) Sequence(p Path) []byte {
	if len(p.Steps) == 0 {
		return nil
	}
	seq := make([]byte, 0, len(p.Steps)+g.k-1)
	seq = g.Kmer(p.Steps[0]).AppendTo(seq, g.k)
	for _, s := range p.Steps[1:] {
		seq = append(seq, kmer.Base(g.Kmer(s).Last()))
	}
	return seq
}

// Coverage returns the average observation count of the nodes of a path.
func (g *Graph) Coverage(p Path) float64 {
	if len(p.Steps) == 0 {
		return 0
	}
	var sum int
	for _, s := range p.Steps {
		sum += int(g.nodes[s.Node].count)
	}
	return float64(sum) / float64(len(p.Steps))
}

// removeNode deletes a node and clears all edges pointing to it, so
// that every remaining edge stays mutual.
func (g *Graph) removeNode(i int, buf []Step) []Step {
	s := Step{i, true}
	km := g.nodes[i].kmer
	buf = g.Successors(s, buf[:0])
	for _, t := range buf {
		g.clearEdge(t, false, km.First(g.k))
	}
	buf = g.Predecessors(s, buf[:0])
	for _, p := range buf {
		g.clearEdge(p, true, km.Last())
	}
	g.deleted.Set(uint(i))
	g.live--
	return buf
}

// clearEdge removes one extension of a step. A palindromic node spells
// the same k-mer on both strands, so its mask holds every edge twice.
func (g *Graph) clearEdge(s Step, successor bool, code byte) {
	n := &g.nodes[s.Node]
	n.clearExtension(s.Forward, successor, code)
	if n.palindromic(g.k) {
		n.clearExtension(s.Forward, !successor, kmer.Complement(code))
	}
}

// RemovePaths deletes every node on the given paths, except nodes
// that also occur on one of the survivors. It returns the number of
// nodes deleted.
func (g *Graph) RemovePaths(paths, survivors PathList) (removed int) {
	keep := bitset.New(uint(len(g.nodes)))
	for _, p := range survivors {
		for _, s := range p.Steps {
			keep.Set(uint(s.Node))
		}
	}
	var buf []Step
	for _, p := range paths {
		for _, s := range p.Steps {
			if keep.Test(uint(s.Node)) || g.deleted.Test(uint(s.Node)) {
				continue
			}
			buf = g.removeNode(s.Node, buf)
			removed++
		}
	}
	return removed
}

// RemoveNodes deletes the given nodes. It returns the number of nodes
// deleted.
func (g *Graph) RemoveNodes(nodes []int) (removed int) {
	var buf []Step
	for _, i := range nodes {
		if g.deleted.Test(uint(i)) {
			continue
		}
		buf = g.removeNode(i, buf)
		removed++
	}
	return removed
}

// Sweep drops all deleted nodes from the arena. Node indices change,
// so no path or step obtained before a sweep may be used after it.
func (g *Graph) Sweep() {
	if g.live == len(g.nodes) {
		return
	}
	arena := make([]Node, 0, g.live)
	g.Each(func(i int) {
		arena = append(arena, g.nodes[i])
	})
	log.Debugf("Swept %v deleted nodes", len(g.nodes)-len(arena))
	*g = *newGraph(arena, g.k)
}

// Dispose releases the storage of the graph. It is safe to call
// more than once; only the first call has an effect.
func (g *Graph) Dispose() {
	if g.disposed {
		return
	}
	g.nodes = nil
	g.index = nil
	g.deleted = nil
	g.live = 0
	g.disposed = true
}

// Disposed reports whether Dispose has been called.
func (g *Graph) Disposed() bool {
	return g.disposed
}

func containsStep(steps []Step, s Step) bool {
	for _, t := range steps {
		if t == s {
			return true
		}
	}
	return false
}

// CheckEdges verifies that every edge of the graph points to a live
// node and is mutual. It returns an error describing the first
// violation found.
func (g *Graph) CheckEdges() error {
	if g.disposed {
		return ErrDisposed
	}
	if len(g.nodes) == 0 {
		return nil
	}
	result := parallel.RangeReduce(0, len(g.nodes), 0, func(low, high int) interface{} {
		var succ, pred, back []Step
		for i := low; i < high; i++ {
			if g.deleted.Test(uint(i)) {
				continue
			}
			s := Step{i, true}
			succ = g.Successors(s, succ[:0])
			pred = g.Predecessors(s, pred[:0])
			if len(succ) != g.OutDegree(s) || len(pred) != g.InDegree(s) {
				return fmt.Errorf("node %v has edges to missing or deleted nodes", string(g.nodes[i].kmer.Decode(g.k)))
			}
			for _, t := range succ {
				if back = g.Predecessors(t, back[:0]); !containsStep(back, s) {
					return fmt.Errorf("successor edge %v -> %v is not mutual",
						string(g.Kmer(s).Decode(g.k)), string(g.Kmer(t).Decode(g.k)))
				}
			}
			for _, t := range pred {
				if back = g.Successors(t, back[:0]); !containsStep(back, s) {
					return fmt.Errorf("predecessor edge %v <- %v is not mutual",
						string(g.Kmer(s).Decode(g.k)), string(g.Kmer(t).Decode(g.k)))
				}
			}
		}
		return nil
	}, func(x, y interface{}) interface{} {
		if x != nil {
			return x
		}
		return y
	})
	if result != nil {
		return result.(error)
	}
	return nil
}

// MedianCount returns the median observation count over all live
// nodes whose count is greater than minCount. It returns false if no
// node qualifies.
func (g *Graph) MedianCount(minCount int) (float64, bool) {
	if len(g.nodes) == 0 {
		return 0, false
	}
	result := parallel.RangeReduce(0, len(g.nodes), 0, func(low, high int) interface{} {
		var counts []int
		for i := low; i < high; i++ {
			if c := int(g.nodes[i].count); c > minCount && !g.deleted.Test(uint(i)) {
				counts = append(counts, c)
			}
		}
		return counts
	}, func(x, y interface{}) interface{} {
		return append(x.([]int), y.([]int)...)
	})
	var counts []int
	if result != nil {
		counts = result.([]int)
	}
	if len(counts) == 0 {
		return 0, false
	}
	sort.Ints(counts)
	mid := len(counts) / 2
	if len(counts)%2 == 1 {
		return float64(counts[mid]), true
	}
	return float64(counts[mid-1]+counts[mid]) / 2, true
}
