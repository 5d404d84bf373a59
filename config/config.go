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

// Package config holds the settings of the elassemble command line.
// Settings are unmarshalled from Viper, which merges defaults, an
// optional settings file, ELASSEMBLE_ environment variables, and
// command line flags (see /cmd).
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/exascience/elassemble/assembler"
	"github.com/exascience/elassemble/fasta"
)

// EnvPrefix is the prefix of environment variables that override settings.
const EnvPrefix = "ELASSEMBLE"

// ErrInvalidConfig is returned for settings that cannot be used.
var ErrInvalidConfig = errors.New("invalid configuration")

// AssemblyConfig are the settings of contig assembly.
type AssemblyConfig struct {
	// k-mer length, estimated from the reads if not positive
	KmerLength int `mapstructure:"kmer-length"`

	// tips shorter than this are removed; 0 means k+1, negative disables
	DanglingThreshold int `mapstructure:"dangling-threshold"`

	// trim low-coverage dead ends once, with an estimated or given threshold
	Erosion          bool `mapstructure:"erosion"`
	ErosionThreshold int  `mapstructure:"erosion-threshold"`

	// bubbles shorter than this are collapsed; 0 means 3(k+1), negative disables
	RedundantThreshold int `mapstructure:"redundant-threshold"`

	// remove contigs with low average coverage
	LowCoverage       bool    `mapstructure:"low-coverage"`
	CoverageThreshold float64 `mapstructure:"coverage-threshold"`

	// compact the graph before building contigs
	Sweep bool `mapstructure:"sweep"`
}

// ScaffoldConfig are the settings of scaffolding.
type ScaffoldConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	Depth      int  `mapstructure:"depth"`
	Redundancy int  `mapstructure:"redundancy"`

	// fragment length distribution of the read pairs, estimated if the
	// mean is not positive
	InsertMean   float64 `mapstructure:"insert-mean"`
	InsertStdDev float64 `mapstructure:"insert-sd"`
}

// OutputConfig are the settings of the output files.
type OutputConfig struct {
	// contigs FASTA file
	Contigs string `mapstructure:"contigs"`

	// scaffolds FASTA and AGP files, written when scaffolding
	Scaffolds string `mapstructure:"scaffolds"`
	AGP       string `mapstructure:"agp"`

	// bases per FASTA line
	LineWidth int `mapstructure:"line-width"`

	// directory under which log files are created, $HOME if empty
	LogPath string `mapstructure:"log-path"`

	// log level: critical, error, warning, notice, info or debug
	LogLevel string `mapstructure:"log-level"`
}

// Config is the root-level settings struct.
type Config struct {
	Assembly AssemblyConfig `mapstructure:"assembly"`
	Scaffold ScaffoldConfig `mapstructure:"scaffold"`
	Output   OutputConfig   `mapstructure:"output"`
}

// SetDefaults registers the default value of every setting. Keys
// without a default cannot be set from the environment.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("assembly.kmer-length", 0)
	v.SetDefault("assembly.dangling-threshold", 0)
	v.SetDefault("assembly.erosion", false)
	v.SetDefault("assembly.erosion-threshold", 0)
	v.SetDefault("assembly.redundant-threshold", 0)
	v.SetDefault("assembly.low-coverage", false)
	v.SetDefault("assembly.coverage-threshold", 0.0)
	v.SetDefault("assembly.sweep", true)

	v.SetDefault("scaffold.enabled", false)
	v.SetDefault("scaffold.depth", assembler.DefaultScaffoldDepth)
	v.SetDefault("scaffold.redundancy", assembler.DefaultScaffoldRedundancy)
	v.SetDefault("scaffold.insert-mean", 0.0)
	v.SetDefault("scaffold.insert-sd", 0.0)

	v.SetDefault("output.contigs", "contigs.fa")
	v.SetDefault("output.scaffolds", "scaffolds.fa")
	v.SetDefault("output.agp", "scaffolds.agp")
	v.SetDefault("output.line-width", fasta.DefaultLineWidth)
	v.SetDefault("output.log-path", "")
	v.SetDefault("output.log-level", "info")
}

// Load reads the settings of a Viper instance that has its defaults
// and flags registered. If settingsFile is not empty, it is read
// first; its format follows its extension (yaml, toml or json).
func Load(v *viper.Viper, settingsFile string) (Config, error) {
	var c Config
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	if settingsFile != "" {
		v.SetConfigFile(settingsFile)
		if err := v.ReadInConfig(); err != nil {
			return c, fmt.Errorf("reading settings file %v: %w", settingsFile, err)
		}
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("decoding settings: %w", err)
	}
	return c, c.Validate()
}

// Validate checks the settings for consistency.
func (c *Config) Validate() error {
	switch {
	case c.Assembly.KmerLength > 32:
		return fmt.Errorf("%w: k-mer length %v is larger than 32", ErrInvalidConfig, c.Assembly.KmerLength)
	case c.Assembly.ErosionThreshold < 0:
		return fmt.Errorf("%w: negative erosion threshold", ErrInvalidConfig)
	case c.Assembly.CoverageThreshold < 0:
		return fmt.Errorf("%w: negative coverage threshold", ErrInvalidConfig)
	case c.Scaffold.Depth < 0:
		return fmt.Errorf("%w: negative scaffold depth", ErrInvalidConfig)
	case c.Scaffold.Redundancy < 0:
		return fmt.Errorf("%w: negative scaffold redundancy", ErrInvalidConfig)
	case c.Scaffold.InsertStdDev < 0:
		return fmt.Errorf("%w: negative insert size standard deviation", ErrInvalidConfig)
	case c.Output.Contigs == "":
		return fmt.Errorf("%w: missing contigs output file", ErrInvalidConfig)
	case c.Scaffold.Enabled && c.Output.Scaffolds == "":
		return fmt.Errorf("%w: missing scaffolds output file", ErrInvalidConfig)
	}
	return nil
}

// AssemblerConfig converts the settings into an assembler configuration.
func (c *Config) AssemblerConfig() assembler.Config {
	return assembler.Config{
		KmerLength:                      c.Assembly.KmerLength,
		DanglingLinksThreshold:          c.Assembly.DanglingThreshold,
		ErosionEnabled:                  c.Assembly.Erosion,
		ErosionThreshold:                c.Assembly.ErosionThreshold,
		RedundantPathLengthThreshold:    c.Assembly.RedundantThreshold,
		LowCoverageContigRemovalEnabled: c.Assembly.LowCoverage,
		ContigCoverageThreshold:         c.Assembly.CoverageThreshold,
		BuildScaffolds:                  c.Scaffold.Enabled,
		ScaffoldDepth:                   c.Scaffold.Depth,
		ScaffoldRedundancy:              c.Scaffold.Redundancy,
		InsertMean:                      c.Scaffold.InsertMean,
		InsertStdDev:                    c.Scaffold.InsertStdDev,
		Sweep:                           c.Assembly.Sweep,
	}
}
