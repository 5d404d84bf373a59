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

package cmd

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/shenwei356/xopen"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/exascience/elassemble/assembler"
	"github.com/exascience/elassemble/config"
	"github.com/exascience/elassemble/fasta"
	"github.com/exascience/elassemble/scaffold"
)

var errInvalidArguments = errors.New("invalid arguments")

// assembleCmd assembles reads into contigs, and optionally scaffolds.
var assembleCmd = &cobra.Command{
	Use:   "assemble [reads] ... [readsN]",
	Short: "Assemble reads into contigs and scaffolds",
	Long: `Assemble the reads of one or more FASTA or FASTQ files, optionally gzip
compressed. Reads with ambiguous bases are ignored. Contigs are written
to a FASTA file. With --scaffold, paired reads (named with /1 and /2,
.F and .R, or _1 and _2 suffixes) join contigs into scaffolds, which are
written to a FASTA file and described in an AGP file.`,
	Args:                       cobra.MinimumNArgs(1),
	RunE:                       runAssembleCmd,
	SuggestionsMinimumDistance: 3,
}

func init() {
	flags := assembleCmd.Flags()
	flags.IntP("kmer-length", "k", 0, "k-mer length, estimated from the read lengths if 0")
	flags.Int("dangling-threshold", 0, "remove dead ends shorter than this, k+1 if 0, disabled if negative")
	flags.Bool("erosion", false, "erode low coverage nodes from dead ends")
	flags.Int("erosion-threshold", 0, "coverage below which dead end nodes are eroded, estimated if 0")
	flags.Int("redundant-threshold", 0, "collapse bubbles shorter than this, 3(k+1) if 0, disabled if negative")
	flags.Bool("low-coverage", false, "remove contigs with low average coverage")
	flags.Float64("coverage-threshold", 0, "average coverage below which contigs are removed, estimated if 0")
	flags.Bool("sweep", true, "compact the graph before building contigs")

	flags.BoolP("scaffold", "s", false, "join contigs into scaffolds using paired reads")
	flags.Int("scaffold-depth", assembler.DefaultScaffoldDepth, "maximum number of contigs in a gap filling path")
	flags.Int("scaffold-redundancy", assembler.DefaultScaffoldRedundancy, "read pairs required to link two contigs")
	flags.Float64("insert-mean", 0, "mean fragment length of the read pairs, estimated if 0")
	flags.Float64("insert-sd", 0, "standard deviation of the fragment length")

	flags.StringP("contigs", "o", "contigs.fa", "contigs output file, - for standard output")
	flags.String("scaffolds", "scaffolds.fa", "scaffolds output file")
	flags.String("agp", "scaffolds.agp", "AGP output file describing the scaffolds, none if empty")
	flags.Int("line-width", fasta.DefaultLineWidth, "bases per FASTA line, unwrapped if 0")

	for key, name := range map[string]string{
		"assembly.kmer-length":         "kmer-length",
		"assembly.dangling-threshold":  "dangling-threshold",
		"assembly.erosion":             "erosion",
		"assembly.erosion-threshold":   "erosion-threshold",
		"assembly.redundant-threshold": "redundant-threshold",
		"assembly.low-coverage":        "low-coverage",
		"assembly.coverage-threshold":  "coverage-threshold",
		"assembly.sweep":               "sweep",
		"scaffold.enabled":             "scaffold",
		"scaffold.depth":               "scaffold-depth",
		"scaffold.redundancy":          "scaffold-redundancy",
		"scaffold.insert-mean":         "insert-mean",
		"scaffold.insert-sd":           "insert-sd",
		"output.contigs":               "contigs",
		"output.scaffolds":             "scaffolds",
		"output.agp":                   "agp",
		"output.line-width":            "line-width",
	} {
		viper.BindPFlag(key, flags.Lookup(name))
	}

	rootCmd.AddCommand(assembleCmd)
}

func runAssembleCmd(cmd *cobra.Command, args []string) error {
	timed, err := cmd.Flags().GetBool("timed")
	if err != nil {
		return err
	}
	profile, err := cmd.Flags().GetString("profile")
	if err != nil {
		return err
	}
	if err := setLogOutput(settings.Output.LogPath, settings.Output.LogLevel); err != nil {
		return err
	}
	return runAssemble(settings, args, timed, profile)
}

func checkFiles(c config.Config, inputs []string) error {
	for _, input := range inputs {
		if !checkExist("", input) {
			return fmt.Errorf("%w: cannot read %v", errInvalidArguments, input)
		}
	}
	if !checkCreate("--contigs", c.Output.Contigs) {
		return fmt.Errorf("%w: cannot create %v", errInvalidArguments, c.Output.Contigs)
	}
	if c.Scaffold.Enabled {
		if !checkCreate("--scaffolds", c.Output.Scaffolds) {
			return fmt.Errorf("%w: cannot create %v", errInvalidArguments, c.Output.Scaffolds)
		}
		if c.Output.AGP != "" && !checkCreate("--agp", c.Output.AGP) {
			return fmt.Errorf("%w: cannot create %v", errInvalidArguments, c.Output.AGP)
		}
	}
	return nil
}

// runAssemble reads the input files, assembles them, and writes the
// output files named in the settings.
func runAssemble(c config.Config, inputs []string, timed bool, profile string) error {
	if err := checkFiles(c, inputs); err != nil {
		return err
	}
	var reads []*fasta.Read
	phase := int64(1)
	err := timedRun(timed, profile, "Reading sequencing reads.", phase, func() (err error) {
		reads, err = fasta.ParseReads(inputs...)
		return err
	})
	if err != nil {
		return err
	}
	var result *assembler.Result
	phase++
	err = timedRun(timed, profile, "Assembling.", phase, func() (err error) {
		result, err = assembler.New(c.AssemblerConfig()).Assemble(reads)
		return err
	})
	if err != nil {
		return err
	}
	reads = nil
	go runtime.GC()
	phase++
	return timedRun(timed, profile, "Writing output.", phase, func() error {
		return writeResult(c, result)
	})
}

func writeResult(c config.Config, result *assembler.Result) error {
	contigNames := fasta.SequenceNames("contig", len(result.Contigs))
	contigSeqs := make([][]byte, len(result.Contigs))
	for i, ctg := range result.Contigs {
		contigSeqs[i] = ctg.Sequence
	}
	if err := fasta.WriteFasta(c.Output.Contigs, contigNames, contigSeqs, c.Output.LineWidth); err != nil {
		return err
	}
	if !c.Scaffold.Enabled {
		return nil
	}
	scaffoldNames := fasta.SequenceNames("scaffold", len(result.Scaffolds))
	scaffoldSeqs := make([][]byte, len(result.Scaffolds))
	for i, s := range result.Scaffolds {
		scaffoldSeqs[i] = s.Sequence
	}
	if err := fasta.WriteFasta(c.Output.Scaffolds, scaffoldNames, scaffoldSeqs, c.Output.LineWidth); err != nil {
		return err
	}
	if c.Output.AGP == "" {
		return nil
	}
	return writeAGP(c.Output.AGP, result, scaffoldNames, contigNames)
}

func writeAGP(filename string, result *assembler.Result, scaffoldNames, contigNames []string) (err error) {
	w, err := xopen.Wopen(filename)
	if err != nil {
		return fmt.Errorf("creating %v: %w", filename, err)
	}
	defer func() {
		if nerr := w.Close(); err == nil {
			err = nerr
		}
	}()
	if err = scaffold.WriteAGP(w, result.Scaffolds, scaffoldNames, contigNames, result.Contigs); err != nil {
		return fmt.Errorf("writing %v: %w", filename, err)
	}
	log.Infof("Wrote %v scaffolds to %v", len(result.Scaffolds), filename)
	return nil
}
