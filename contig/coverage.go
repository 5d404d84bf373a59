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

package contig

import (
	"github.com/exascience/elassemble/graph"
)

// LowCoveragePurger deletes the nodes of all contigs whose average
// coverage is below a threshold. It finds the contigs with its
// Builder, so the graph is cut along the same paths the final contigs
// are built from.
type LowCoveragePurger struct {
	Builder   Builder
	Threshold float64
}

// Purge deletes the nodes of low-coverage contigs, and returns the
// number of nodes deleted.
func (p *LowCoveragePurger) Purge(g *graph.Graph) int {
	if g.NodeCount() == 0 || p.Threshold <= 0 {
		return 0
	}
	builder := p.Builder
	if builder == nil {
		builder = SimplePathBuilder{}
	}
	var low graph.PathList
	for _, c := range builder.Build(g) {
		if c.Coverage < p.Threshold {
			low = append(low, c.Path)
		}
	}
	removed := g.RemovePaths(low, nil)
	log.Infof("Removed %v contigs with coverage below %.2f (%v nodes)", len(low), p.Threshold, removed)
	return removed
}
