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

// Package cmd is the elassemble command line.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/exascience/elassemble/config"
	"github.com/exascience/elassemble/utils"
)

// settings is loaded before any subcommand runs.
var settings config.Config

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   utils.ProgramName,
	Short: "De novo genome assembly with de Bruijn graphs",
	Long: `Assemble sequencing reads into contigs by building a de Bruijn graph of
their k-mers, removing tips and bubbles caused by sequencing errors, and
walking its unbranched paths. Paired reads optionally join contigs into
scaffolds.

Settings are read from an optional settings file, from ELASSEMBLE_
environment variables (ELASSEMBLE_ASSEMBLY_KMER_LENGTH for
assembly.kmer-length), and from command line flags, in increasing order
of precedence.`,
	Version:       utils.ProgramVersion,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		settingsFile, err := cmd.Flags().GetString("settings")
		if err != nil {
			return err
		}
		if settings, err = config.Load(viper.GetViper(), settingsFile); err != nil {
			return err
		}
		return setLogBackend(settings.Output.LogLevel, os.Stderr, nil)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("%v", err)
	}
}

func init() {
	config.SetDefaults(viper.GetViper())

	flags := rootCmd.PersistentFlags()
	flags.String("settings", "", "settings file (yaml, toml or json)")
	flags.String("log-path", "", "directory under which log files are created, $HOME if empty")
	flags.String("log-level", "info", "log level: critical, error, warning, notice, info or debug")
	flags.Bool("timed", false, "log the elapsed time of every phase")
	flags.String("profile", "", "write a CPU profile of every phase to files with this prefix")

	viper.BindPFlag("output.log-path", flags.Lookup("log-path"))
	viper.BindPFlag("output.log-level", flags.Lookup("log-level"))
}
