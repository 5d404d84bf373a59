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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/exascience/elassemble/assembler"
	"github.com/exascience/elassemble/fasta"
)

// kmerLengthCmd prints the k-mer length assemble would choose.
var kmerLengthCmd = &cobra.Command{
	Use:   "kmer-length [reads] ... [readsN]",
	Short: "Print the k-mer length estimated from the read lengths",
	Long: `Print the k-mer length that assemble uses when --kmer-length is not
given. Reads with ambiguous bases are ignored.`,
	Args:                       cobra.MinimumNArgs(1),
	SuggestionsMinimumDistance: 3,
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, input := range args {
			if !checkExist("", input) {
				return fmt.Errorf("%w: cannot read %v", errInvalidArguments, input)
			}
		}
		reads, err := fasta.ParseReads(args...)
		if err != nil {
			return err
		}
		var lengths []int
		for _, r := range reads {
			if !r.HasAmbiguity() {
				lengths = append(lengths, len(r.Seq))
			}
		}
		if len(lengths) == 0 {
			return fmt.Errorf("%w: all %v reads contain ambiguous symbols or gaps", assembler.ErrNoUsableReads, len(reads))
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), assembler.EstimateKmerLength(lengths))
		return err
	},
}

func init() {
	rootCmd.AddCommand(kmerLengthCmd)
}
