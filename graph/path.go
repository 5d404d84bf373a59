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

// A Step is a node visited on one of its two strands. Forward means
// the node's canonical k-mer is read as is, otherwise its reverse
// complement is read.
type Step struct {
	Node    int
	Forward bool
}

// Reverse returns the same node on the other strand.
func (s Step) Reverse() Step {
	return Step{s.Node, !s.Forward}
}

// A Path is a walk through the graph.
type Path struct {
	Steps []Step
}

// Len returns the number of nodes in the path.
func (p Path) Len() int {
	return len(p.Steps)
}

// Reverse returns the path walked backwards on the opposite strand,
// which spells the reverse complement sequence.
func (p Path) Reverse() Path {
	steps := make([]Step, len(p.Steps))
	for i, s := range p.Steps {
		steps[len(steps)-1-i] = s.Reverse()
	}
	return Path{steps}
}

// A PathList is the result of one detection pass over a graph.
type PathList []Path

// NodeCount returns the total number of steps in all paths.
func (l PathList) NodeCount() (n int) {
	for _, p := range l {
		n += p.Len()
	}
	return n
}
