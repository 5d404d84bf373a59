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

// Package purge removes erroneous structures from a de Bruijn graph:
// short dead ends (tips) and short parallel paths (bubbles).
//
// Purgers work in two phases. Detection walks the graph and returns
// the offending structures as paths; removal deletes their nodes. A
// purger never adds nodes or edges, and a detection pass on a graph
// the purger has already cleaned with the same threshold finds
// nothing.
package purge

import (
	logging "github.com/op/go-logging"

	"github.com/exascience/elassemble/graph"
)

var log = logging.MustGetLogger("purge")

// A GraphPurger detects and removes one kind of erroneous structure.
type GraphPurger interface {
	// DetectErroneousNodes returns the paths to be removed.
	DetectErroneousNodes(g *graph.Graph) graph.PathList

	// RemoveErroneousNodes deletes the nodes of paths returned by the
	// last call to DetectErroneousNodes, and returns the number of
	// nodes deleted.
	RemoveErroneousNodes(g *graph.Graph, paths graph.PathList) int

	// LengthThreshold returns the length below which a structure is
	// considered erroneous.
	LengthThreshold() int

	// SetLengthThreshold changes the length threshold.
	SetLengthThreshold(threshold int)
}

// A GraphErodingPurger can additionally trim low-coverage nodes from
// dead ends while it removes tips.
type GraphErodingPurger interface {
	GraphPurger

	// ErodeGraphEnds removes all tips shorter than the length
	// threshold, and trims nodes with a count below erosionThreshold
	// from the remaining dead ends, in a single traversal. It returns
	// the length of the longest tip it removed.
	ErodeGraphEnds(g *graph.Graph, erosionThreshold int) int
}

func containsNode(steps []graph.Step, node int) bool {
	for _, s := range steps {
		if s.Node == node {
			return true
		}
	}
	return false
}

// stepLess orders steps by node index, forward strand first.
func stepLess(s, t graph.Step) bool {
	if s.Node != t.Node {
		return s.Node < t.Node
	}
	return s.Forward && !t.Forward
}

// Purge runs detection and removal passes until a detection pass finds
// nothing, or a removal pass deletes nothing. It returns the total
// number of nodes deleted.
func Purge(g *graph.Graph, p GraphPurger) (removed int) {
	for g.NodeCount() > 0 {
		paths := p.DetectErroneousNodes(g)
		if len(paths) == 0 {
			break
		}
		n := p.RemoveErroneousNodes(g, paths)
		if n == 0 {
			break
		}
		removed += n
	}
	return removed
}
