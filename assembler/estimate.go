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

package assembler

import (
	"math"

	"github.com/exascience/elassemble/graph"
	"github.com/exascience/elassemble/kmer"
)

// maxEstimatedKmerLength is the largest odd k-mer length that fits in
// a kmer.Kmer. Odd lengths have no palindromic k-mers.
const maxEstimatedKmerLength = kmer.MaxLength - 1

// EstimateKmerLength derives k from read lengths. The shortest read
// bounds k from above, half of the longest read is the target from
// below. If reads vary in length and the target lies below the bound,
// the estimate is the rounded up midpoint of the two, otherwise it is
// the bound itself. Estimates are capped at the largest supported odd
// length. It returns 0 for no reads.
func EstimateKmerLength(lengths []int) int {
	if len(lengths) == 0 {
		return 0
	}
	shortest, longest := lengths[0], lengths[0]
	for _, l := range lengths[1:] {
		if l < shortest {
			shortest = l
		}
		if l > longest {
			longest = l
		}
	}
	upper := float64(shortest)
	lower := float64(longest) / 2
	var k int
	if shortest < longest && lower < upper {
		k = int(math.Ceil((lower + upper) / 2))
	} else {
		k = int(math.Floor(upper))
	}
	if k > maxEstimatedKmerLength {
		k = maxEstimatedKmerLength
	}
	return k
}

// noiseCount is the observation count at or below which k-mers are
// considered noise when estimating coverage.
const noiseCount = 2

// EstimateCoverageThreshold returns the square root of the median
// count of all nodes observed more than twice, or
// DefaultCoverageThreshold if there are none.
func EstimateCoverageThreshold(g *graph.Graph) float64 {
	median, ok := g.MedianCount(noiseCount)
	if !ok {
		return DefaultCoverageThreshold
	}
	return math.Sqrt(median)
}
