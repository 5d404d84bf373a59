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
	"github.com/exascience/elassemble/graph"
)

// DanglingLinks removes tips: linear paths that start at a node
// without predecessors and either join the rest of the graph at a
// merging node, or end in another dead end, within fewer steps than
// the length threshold.
type DanglingLinks struct {
	threshold int
}

// NewDanglingLinks returns a tip purger with the given length threshold.
func NewDanglingLinks(threshold int) *DanglingLinks {
	return &DanglingLinks{threshold: threshold}
}

// LengthThreshold implements GraphPurger.
func (p *DanglingLinks) LengthThreshold() int {
	return p.threshold
}

// SetLengthThreshold implements GraphPurger.
func (p *DanglingLinks) SetLengthThreshold(threshold int) {
	p.threshold = threshold
}

type danglingEnd int

const (
	// joins a merging node: a tip if short enough
	endJoin danglingEnd = iota
	// whole component is a linear chain
	endIsolated
	// runs into a node with several successors
	endFork
	// reached the threshold before anything else
	endLong
	// ran into itself
	endCycle
	// isolated chain that is reported from its other end
	endDuplicate
)

// walkDangling follows unique links from a step without predecessors,
// for at most threshold steps.
func walkDangling(g *graph.Graph, start graph.Step, threshold int, buf []graph.Step) (graph.Path, danglingEnd, []graph.Step) {
	steps := []graph.Step{start}
	current := start
	for {
		buf = g.Successors(current, buf[:0])
		switch len(buf) {
		case 0:
			if end := current.Reverse(); stepLess(end, start) {
				return graph.Path{Steps: steps}, endDuplicate, buf
			}
			return graph.Path{Steps: steps}, endIsolated, buf
		case 1:
		default:
			return graph.Path{Steps: steps}, endFork, buf
		}
		next := buf[0]
		if g.InDegree(next) > 1 {
			return graph.Path{Steps: steps}, endJoin, buf
		}
		if containsNode(steps, next.Node) {
			return graph.Path{Steps: steps}, endCycle, buf
		}
		steps = append(steps, next)
		if len(steps) >= threshold {
			return graph.Path{Steps: steps}, endLong, buf
		}
		current = next
	}
}

// deadEnds calls fn for every step that has no predecessors.
func deadEnds(g *graph.Graph, fn func(s graph.Step)) {
	g.Each(func(i int) {
		for _, forward := range [2]bool{true, false} {
			if s := (graph.Step{Node: i, Forward: forward}); g.InDegree(s) == 0 {
				fn(s)
			}
		}
	})
}

func isTip(path graph.Path, end danglingEnd, threshold int) bool {
	return (end == endJoin || end == endIsolated) && path.Len() < threshold
}

// DetectErroneousNodes implements GraphPurger.
func (p *DanglingLinks) DetectErroneousNodes(g *graph.Graph) (tips graph.PathList) {
	if p.threshold <= 1 || g.NodeCount() == 0 {
		return nil
	}
	var buf []graph.Step
	deadEnds(g, func(s graph.Step) {
		var path graph.Path
		var end danglingEnd
		path, end, buf = walkDangling(g, s, p.threshold, buf)
		if isTip(path, end, p.threshold) {
			tips = append(tips, path)
		}
	})
	log.Debugf("Detected %v dangling links shorter than %v", len(tips), p.threshold)
	return tips
}

// RemoveErroneousNodes implements GraphPurger.
func (p *DanglingLinks) RemoveErroneousNodes(g *graph.Graph, paths graph.PathList) int {
	return g.RemovePaths(paths, nil)
}

// ErodeGraphEnds implements GraphErodingPurger.
func (p *DanglingLinks) ErodeGraphEnds(g *graph.Graph, erosionThreshold int) (longest int) {
	if g.NodeCount() == 0 {
		return 0
	}
	var tips graph.PathList
	var eroded []int
	var buf []graph.Step
	deadEnds(g, func(s graph.Step) {
		var path graph.Path
		var end danglingEnd
		path, end, buf = walkDangling(g, s, p.threshold, buf)
		if isTip(path, end, p.threshold) {
			tips = append(tips, path)
			if path.Len() > longest {
				longest = path.Len()
			}
			return
		}
		if erosionThreshold <= 0 || end == endDuplicate || end == endIsolated {
			return
		}
		steps := path.Steps
		if end == endFork {
			steps = steps[:len(steps)-1]
		}
		for _, t := range steps {
			if g.Node(t.Node).Count() >= erosionThreshold {
				break
			}
			eroded = append(eroded, t.Node)
		}
	})
	removed := g.RemovePaths(tips, nil)
	erodedCount := g.RemoveNodes(eroded)
	log.Debugf("Removed %v tip nodes and eroded %v low-coverage end nodes (erosion threshold %v)", removed, erodedCount, erosionThreshold)
	return longest
}
