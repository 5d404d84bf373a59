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

// Package assembler runs the de Bruijn graph assembly pipeline: it
// builds the graph of a set of reads, removes tips and bubbles, builds
// contigs, and optionally joins them into scaffolds.
//
// The assembler owns the graph for the duration of a run, and
// disposes it once contigs have been built, or when the run fails.
package assembler

import (
	"errors"
	"fmt"
	"math"

	"github.com/exascience/pargo/parallel"
	logging "github.com/op/go-logging"

	"github.com/exascience/elassemble/contig"
	"github.com/exascience/elassemble/fasta"
	"github.com/exascience/elassemble/graph"
	"github.com/exascience/elassemble/internal"
	"github.com/exascience/elassemble/kmer"
	"github.com/exascience/elassemble/purge"
	"github.com/exascience/elassemble/scaffold"
)

var log = logging.MustGetLogger("assembler")

// Errors returned by Assemble, wrapped with details.
var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrNoUsableReads        = errors.New("no usable reads")
	ErrInvalidKmerLength    = errors.New("invalid k-mer length")
	ErrReadTooShort         = errors.New("read shorter than k-mer length")
	ErrMissingContigBuilder = errors.New("missing contig builder")
)

// An Assembler runs assemblies with a fixed configuration. The purgers
// and builders may be replaced before calling Assemble. Nil purgers
// are created with the configured thresholds; a nil ScaffoldBuilder is
// replaced by a scaffold.GraphBuilder, but a nil ContigBuilder is an
// error.
type Assembler struct {
	Config Config

	DanglingLinksPurger purge.GraphPurger
	RedundantPathPurger purge.GraphPurger
	ContigBuilder       contig.Builder
	ScaffoldBuilder     scaffold.Builder
}

// New returns an assembler with the default contig and scaffold builders.
func New(config Config) *Assembler {
	return &Assembler{
		Config:          config,
		ContigBuilder:   contig.SimplePathBuilder{},
		ScaffoldBuilder: newScaffoldBuilder(config),
	}
}

func newScaffoldBuilder(config Config) *scaffold.GraphBuilder {
	return &scaffold.GraphBuilder{Library: scaffold.Library{Mean: config.InsertMean, StdDev: config.InsertStdDev}}
}

// Result is the outcome of a successful assembly run.
type Result struct {
	Contigs   []contig.Contig
	Scaffolds []scaffold.Scaffold

	// The parameters the run actually used. Disabled passes have a
	// threshold of 0.
	KmerLength                   int
	DanglingLinksThreshold       int
	RedundantPathLengthThreshold int
	ErosionThreshold             int
	ContigCoverageThreshold      float64

	// Stages lists the pipeline stages in the order they ran.
	Stages []Stage

	graph *graph.Graph
}

// AssembledSequences returns the scaffold sequences if there are any,
// and the contig sequences otherwise.
func (r *Result) AssembledSequences() [][]byte {
	if len(r.Scaffolds) > 0 {
		seqs := make([][]byte, len(r.Scaffolds))
		for i, s := range r.Scaffolds {
			seqs[i] = s.Sequence
		}
		return seqs
	}
	seqs := make([][]byte, len(r.Contigs))
	for i, c := range r.Contigs {
		seqs[i] = c.Sequence
	}
	return seqs
}

// GraphDisposed reports whether the storage of the graph of the run
// has been released.
func (r *Result) GraphDisposed() bool {
	return r.graph == nil || r.graph.Disposed()
}

func (r *Result) enter(stage Stage) {
	r.Stages = append(r.Stages, stage)
	log.Noticef("Stage %v", stage)
}

// usableReads returns the sequences of the reads without ambiguous
// symbols, in order.
func usableReads(reads []*fasta.Read) ([]*fasta.Read, error) {
	for i, r := range reads {
		if r == nil {
			return nil, fmt.Errorf("%w: read %v is nil", ErrInvalidInput, i)
		}
	}
	if len(reads) == 0 {
		return nil, fmt.Errorf("%w: empty read set", ErrNoUsableReads)
	}
	ambiguous := make([]bool, len(reads))
	parallel.Range(0, len(reads), 0, func(low, high int) {
		for i := low; i < high; i++ {
			ambiguous[i] = reads[i].HasAmbiguity()
		}
	})
	usable := make([]*fasta.Read, 0, len(reads))
	for i, r := range reads {
		if !ambiguous[i] {
			usable = append(usable, r)
		}
	}
	if len(usable) == 0 {
		return nil, fmt.Errorf("%w: all %v reads contain ambiguous symbols or gaps", ErrNoUsableReads, len(reads))
	}
	if dropped := len(reads) - len(usable); dropped > 0 {
		log.Infof("Ignoring %v of %v reads with ambiguous symbols or gaps", dropped, len(reads))
	}
	return usable, nil
}

// resolveKmerLength returns the configured or estimated k, and checks
// that no read is shorter. A configured k is checked against all
// reads, an estimated k only against the usable ones.
func (a *Assembler) resolveKmerLength(reads, usable []*fasta.Read) (int, error) {
	k := a.Config.KmerLength
	if k <= 0 {
		reads = usable
		lengths := make([]int, len(usable))
		for i, r := range usable {
			lengths[i] = len(r.Seq)
		}
		k = EstimateKmerLength(lengths)
		log.Infof("Estimated k-mer length %v", k)
	}
	if err := kmer.CheckLength(k); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidKmerLength, err)
	}
	for i, r := range reads {
		if len(r.Seq) < k {
			return 0, fmt.Errorf("%w: read %v (%v) has length %v, k is %v", ErrReadTooShort, i, r.Name, len(r.Seq), k)
		}
	}
	return k, nil
}

func thresholdFor(configured, deflt int) int {
	switch {
	case configured < 0:
		return 0
	case configured == 0:
		return deflt
	default:
		return configured
	}
}

// Assemble assembles the given reads. Reads with ambiguous symbols
// are ignored. The run fails before building the graph if any read is
// nil or shorter than k, if k is invalid, or if no read is usable.
func (a *Assembler) Assemble(reads []*fasta.Read) (*Result, error) {
	result := &Result{}
	result.enter(Initialize)
	if reads == nil {
		return nil, fmt.Errorf("%w: no reads", ErrInvalidInput)
	}
	if err := a.Config.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if a.ContigBuilder == nil {
		return nil, ErrMissingContigBuilder
	}
	usable, err := usableReads(reads)
	if err != nil {
		return nil, err
	}
	k, err := a.resolveKmerLength(reads, usable)
	if err != nil {
		return nil, err
	}
	result.KmerLength = k
	result.DanglingLinksThreshold = thresholdFor(a.Config.DanglingLinksThreshold, k+1)
	result.RedundantPathLengthThreshold = thresholdFor(a.Config.RedundantPathLengthThreshold, 3*(k+1))

	result.enter(BuildGraph)
	seqs := make([][]byte, len(usable))
	for i, r := range usable {
		seqs[i] = r.Seq
	}
	g, err := graph.Build(seqs, k)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	result.graph = g
	defer g.Dispose()

	result.enter(EstimateThresholds)
	a.estimateThresholds(g, result)

	dangling := a.DanglingLinksPurger
	if dangling == nil {
		dangling = purge.NewDanglingLinks(result.DanglingLinksThreshold)
	} else {
		dangling.SetLengthThreshold(result.DanglingLinksThreshold)
	}
	redundant := a.RedundantPathPurger
	if redundant == nil {
		redundant = purge.NewRedundantPaths(result.RedundantPathLengthThreshold)
	} else {
		redundant.SetLengthThreshold(result.RedundantPathLengthThreshold)
	}

	erosion := result.ErosionThreshold
	result.enter(PurgeDanglingLinks)
	purgeDanglingLinks(g, dangling, &erosion)
	if err = checkGraph(g, PurgeDanglingLinks); err != nil {
		return nil, err
	}
	result.enter(PurgeRedundantPaths)
	if redundant.LengthThreshold() > 0 {
		log.Infof("Removed %v nodes on redundant paths", purge.Purge(g, redundant))
	}
	if err = checkGraph(g, PurgeRedundantPaths); err != nil {
		return nil, err
	}
	result.enter(PurgeDanglingLinks)
	purgeDanglingLinks(g, dangling, &erosion)
	if err = checkGraph(g, PurgeDanglingLinks); err != nil {
		return nil, err
	}

	if a.Config.LowCoverageContigRemovalEnabled {
		result.enter(PurgeLowCoverage)
		p := &contig.LowCoveragePurger{Builder: a.ContigBuilder, Threshold: result.ContigCoverageThreshold}
		p.Purge(g)
		if err = checkGraph(g, PurgeLowCoverage); err != nil {
			return nil, err
		}
	}

	result.enter(BuildContigs)
	if a.Config.Sweep {
		g.Sweep()
	}
	result.Contigs = a.ContigBuilder.Build(g)
	for i := range result.Contigs {
		result.Contigs[i].Path = graph.Path{}
	}
	contig.SortByLength(result.Contigs)
	g.Dispose()
	log.Infof("Assembled %v contigs, %v bases, N50 %v", len(result.Contigs), contig.TotalLength(result.Contigs), contig.N50(result.Contigs))

	if a.Config.BuildScaffolds {
		result.enter(BuildScaffolds)
		builder := a.ScaffoldBuilder
		if builder == nil {
			builder = newScaffoldBuilder(a.Config)
		}
		depth := a.Config.ScaffoldDepth
		if depth <= 0 {
			depth = DefaultScaffoldDepth
		}
		redundancy := a.Config.ScaffoldRedundancy
		if redundancy <= 0 {
			redundancy = DefaultScaffoldRedundancy
		}
		if result.Scaffolds, err = builder.BuildScaffold(usable, result.Contigs, k, depth, redundancy); err != nil {
			return nil, fmt.Errorf("building scaffolds: %w", err)
		}
	}

	result.enter(Done)
	return result, nil
}

// checkGraph verifies that all edges are mutual in pedantic builds.
func checkGraph(g *graph.Graph, stage Stage) error {
	if !internal.PedanticMode {
		return nil
	}
	if err := g.CheckEdges(); err != nil {
		return fmt.Errorf("inconsistent graph after %v: %w", stage, err)
	}
	return nil
}

// estimateThresholds fills in the erosion and coverage thresholds of
// the enabled passes that were not configured.
func (a *Assembler) estimateThresholds(g *graph.Graph, result *Result) {
	estimate := math.NaN()
	coverage := func() float64 {
		if math.IsNaN(estimate) {
			estimate = EstimateCoverageThreshold(g)
			log.Infof("Estimated coverage threshold %.3f", estimate)
		}
		return estimate
	}
	if a.Config.ErosionEnabled {
		if result.ErosionThreshold = a.Config.ErosionThreshold; result.ErosionThreshold <= 0 {
			result.ErosionThreshold = int(math.Round(coverage()))
		}
	}
	if a.Config.LowCoverageContigRemovalEnabled {
		if result.ContigCoverageThreshold = a.Config.ContigCoverageThreshold; result.ContigCoverageThreshold <= 0 {
			result.ContigCoverageThreshold = coverage()
		}
	}
}

// purgeDanglingLinks removes tips. If the purger can erode and an
// erosion threshold is set, tips are removed and ends eroded in one
// traversal, and the erosion threshold is reset so erosion happens
// only once. Otherwise tips are removed by increasing length first.
// Then tips shorter than the full threshold are removed until none
// are left.
func purgeDanglingLinks(g *graph.Graph, p purge.GraphPurger, erosion *int) {
	threshold := p.LengthThreshold()
	if threshold <= 0 {
		return
	}
	before := g.NodeCount()
	eroded := false
	if e, ok := p.(purge.GraphErodingPurger); ok && *erosion > 0 {
		longest := e.ErodeGraphEnds(g, *erosion)
		log.Debugf("Eroded graph ends with threshold %v, longest tip %v", *erosion, longest)
		*erosion = 0
		eroded = true
	}
	if !eroded {
		for length := 1; length < threshold; length++ {
			if g.NodeCount() < length {
				continue
			}
			p.SetLengthThreshold(length + 1)
			if paths := p.DetectErroneousNodes(g); len(paths) > 0 {
				p.RemoveErroneousNodes(g, paths)
			}
		}
		p.SetLengthThreshold(threshold)
	}
	purge.Purge(g, p)
	log.Infof("Removed %v nodes on dangling links", before-g.NodeCount())
}
