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
	"fmt"
)

// Config holds the options of an assembly run. A Config is not
// modified by the assembler.
type Config struct {
	// KmerLength is estimated from the read lengths if not positive.
	KmerLength int

	// DanglingLinksThreshold is the length below which dead ends are
	// removed. Zero means k+1, a negative value disables tip removal.
	DanglingLinksThreshold int

	// ErosionEnabled turns on trimming of low-coverage nodes from dead
	// ends during the first tip removal pass. ErosionThreshold is
	// estimated if not positive.
	ErosionEnabled   bool
	ErosionThreshold int

	// RedundantPathLengthThreshold is the length below which bubbles
	// are collapsed. Zero means 3(k+1), a negative value disables
	// bubble removal.
	RedundantPathLengthThreshold int

	// LowCoverageContigRemovalEnabled turns on removal of contigs with
	// an average coverage below ContigCoverageThreshold, which is
	// estimated if not positive.
	LowCoverageContigRemovalEnabled bool
	ContigCoverageThreshold         float64

	// BuildScaffolds turns on scaffolding. ScaffoldDepth bounds the
	// number of contigs a gap filling path may pass through, and
	// ScaffoldRedundancy is the number of read pairs that must support
	// a link between two contigs. Non-positive values select the
	// defaults.
	BuildScaffolds     bool
	ScaffoldDepth      int
	ScaffoldRedundancy int

	// InsertMean and InsertStdDev describe the fragment lengths of the
	// paired reads. The fragment length is estimated if InsertMean is
	// not positive.
	InsertMean   float64
	InsertStdDev float64

	// Sweep compacts the graph before contigs are built.
	Sweep bool
}

const (
	// DefaultScaffoldDepth is the default search depth for gap filling.
	DefaultScaffoldDepth = 10

	// DefaultScaffoldRedundancy is the default number of read pairs
	// required for a contig link.
	DefaultScaffoldRedundancy = 2

	// DefaultCoverageThreshold is used when no k-mer has been observed
	// often enough to estimate a coverage threshold.
	DefaultCoverageThreshold = 1.0
)

// DefaultConfig returns a configuration that estimates k and all
// thresholds, and builds contigs only.
func DefaultConfig() Config {
	return Config{
		ScaffoldDepth:      DefaultScaffoldDepth,
		ScaffoldRedundancy: DefaultScaffoldRedundancy,
		Sweep:              true,
	}
}

// Validate checks options that do not depend on the reads.
func (c *Config) Validate() error {
	if c.ErosionThreshold < 0 {
		return fmt.Errorf("negative erosion threshold %v", c.ErosionThreshold)
	}
	if c.ContigCoverageThreshold < 0 {
		return fmt.Errorf("negative contig coverage threshold %v", c.ContigCoverageThreshold)
	}
	if c.InsertStdDev < 0 {
		return fmt.Errorf("negative insert size standard deviation %v", c.InsertStdDev)
	}
	return nil
}

// A Stage is one step of the assembly pipeline.
type Stage int

// The stages of an assembly run, in order. PurgeDanglingLinks runs a
// second time after PurgeRedundantPaths.
const (
	Initialize Stage = iota
	BuildGraph
	EstimateThresholds
	PurgeDanglingLinks
	PurgeRedundantPaths
	PurgeLowCoverage
	BuildContigs
	BuildScaffolds
	Done
)

var stageNames = [...]string{
	Initialize:          "Initialize",
	BuildGraph:          "BuildGraph",
	EstimateThresholds:  "EstimateThresholds",
	PurgeDanglingLinks:  "PurgeDanglingLinks",
	PurgeRedundantPaths: "PurgeRedundantPaths",
	PurgeLowCoverage:    "PurgeLowCoverage",
	BuildContigs:        "BuildContigs",
	BuildScaffolds:      "BuildScaffolds",
	Done:                "Done",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("Stage(%d)", int(s))
	}
	return stageNames[s]
}
