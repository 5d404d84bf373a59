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

package purge

import (
	"math"
	"sort"

	"github.com/exascience/elassemble/graph"
)

// RedundantPaths collapses bubbles: groups of parallel paths that
// leave the same branching node and meet again at the same merging
// node within fewer steps than the length threshold. Of each group
// only the best supported path survives.
//
// The best path has the highest average coverage, then the fewest
// nodes, then the lowest node index. This order does not depend on
// the direction in which a bubble is discovered, so a bubble found
// from both of its ends loses the same paths both times.
type RedundantPaths struct {
	threshold int
	survivors graph.PathList
}

// NewRedundantPaths returns a bubble purger with the given length threshold.
func NewRedundantPaths(threshold int) *RedundantPaths {
	return &RedundantPaths{threshold: threshold}
}

// LengthThreshold implements GraphPurger.
func (p *RedundantPaths) LengthThreshold() int {
	return p.threshold
}

// SetLengthThreshold implements GraphPurger.
func (p *RedundantPaths) SetLengthThreshold(threshold int) {
	p.threshold = threshold
}

// A branch is the interior of one path through a bubble, without the
// branching and the merging node.
type branch struct {
	interior graph.Path
	merge    graph.Step
	coverage float64
	minNode  int
}

func (b *branch) betterThan(c *branch) bool {
	if b.coverage != c.coverage {
		return b.coverage > c.coverage
	}
	if b.interior.Len() != c.interior.Len() {
		return b.interior.Len() < c.interior.Len()
	}
	return b.minNode < c.minNode
}

// followBranch walks from the successor next of a branching node
// through nodes with one predecessor and one successor, until it
// reaches a node with several predecessors.
func (p *RedundantPaths) followBranch(g *graph.Graph, from, next graph.Step, buf []graph.Step) (*branch, bool, []graph.Step) {
	var steps []graph.Step
	current := next
	for g.InDegree(current) <= 1 {
		if g.OutDegree(current) != 1 || current.Node == from.Node || containsNode(steps, current.Node) {
			return nil, false, buf
		}
		steps = append(steps, current)
		if len(steps) >= p.threshold {
			return nil, false, buf
		}
		buf = g.Successors(current, buf[:0])
		if len(buf) != 1 {
			return nil, false, buf
		}
		current = buf[0]
	}
	if current.Node == from.Node || containsNode(steps, current.Node) {
		return nil, false, buf
	}
	b := &branch{
		interior: graph.Path{Steps: steps},
		merge:    current,
		coverage: g.Coverage(graph.Path{Steps: steps}),
		minNode:  -1,
	}
	for _, s := range steps {
		if b.minNode < 0 || s.Node < b.minNode {
			b.minNode = s.Node
		}
	}
	if len(steps) == 0 {
		// a direct edge to the merging node cannot be removed, so it
		// always survives
		b.coverage = math.Inf(1)
	}
	return b, true, buf
}

// DetectErroneousNodes implements GraphPurger.
func (p *RedundantPaths) DetectErroneousNodes(g *graph.Graph) (redundant graph.PathList) {
	p.survivors = nil
	if p.threshold <= 0 || g.NodeCount() == 0 {
		return nil
	}
	var successors, buf []graph.Step
	groups := 0
	g.Each(func(i int) {
		for _, forward := range [2]bool{true, false} {
			from := graph.Step{Node: i, Forward: forward}
			if g.OutDegree(from) < 2 {
				continue
			}
			successors = g.Successors(from, successors[:0])
			byMerge := make(map[graph.Step][]*branch)
			var merges []graph.Step
			for _, next := range successors {
				var b *branch
				var ok bool
				if b, ok, buf = p.followBranch(g, from, next, buf); ok {
					if _, found := byMerge[b.merge]; !found {
						merges = append(merges, b.merge)
					}
					byMerge[b.merge] = append(byMerge[b.merge], b)
				}
			}
			sort.Slice(merges, func(i, j int) bool {
				return stepLess(merges[i], merges[j])
			})
			for _, merge := range merges {
				branches := byMerge[merge]
				if len(branches) < 2 {
					continue
				}
				best := branches[0]
				for _, b := range branches[1:] {
					if b.betterThan(best) {
						best = b
					}
				}
				groups++
				p.survivors = append(p.survivors, best.interior)
				for _, b := range branches {
					if b != best {
						redundant = append(redundant, b.interior)
					}
				}
			}
		}
	})
	log.Debugf("Detected %v redundant path groups shorter than %v", groups, p.threshold)
	return redundant
}

// RemoveErroneousNodes implements GraphPurger. Nodes on the surviving
// paths of the last detection pass are never removed.
func (p *RedundantPaths) RemoveErroneousNodes(g *graph.Graph, paths graph.PathList) int {
	removed := g.RemovePaths(paths, p.survivors)
	p.survivors = nil
	return removed
}
